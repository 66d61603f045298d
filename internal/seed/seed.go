package seed

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/yigit/unihousing/internal/app/services"
	"github.com/yigit/unihousing/internal/config"
)

// CreateDefaultData creates the first manager when none is active and, when
// configured, the building's rooms. Existing rooms are left untouched.
func CreateDefaultData(ctx context.Context, cfg *config.Config, users *services.UserService, occupancy *services.OccupancyService, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default data (manager account, rooms)...")
	var finalErr error

	created, err := users.BootstrapManager(ctx, cfg.Bootstrap.ManagerName, cfg.Bootstrap.ManagerEmail)
	if err != nil {
		lgr.Error().Err(err).Msg("Error creating bootstrap manager")
		finalErr = errors.Join(finalErr, err)
	} else if created != nil {
		// Printed once; the account must change it on first login.
		lgr.Warn().
			Str("email", created.User.Email).
			Str("tempPassword", created.TempPassword).
			Msg("Bootstrap manager created")
	}

	if cfg.Building.SeedOnStart {
		count, err := occupancy.SeedBuilding(ctx, "", services.BuildingLayout{
			Floors:        cfg.Building.Floors,
			PremiumFloors: cfg.Building.PremiumFloors,
			BedsPerRoom:   cfg.Building.BedsPerRoom,
		})
		if err != nil {
			lgr.Error().Err(err).Msg("Error seeding building rooms")
			finalErr = errors.Join(finalErr, err)
		} else {
			lgr.Info().Int("created", count).Msg("Building rooms checked")
		}
	}

	return finalErr
}
