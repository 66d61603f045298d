package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/unihousing/internal/app/audit"
	appAuth "github.com/yigit/unihousing/internal/app/auth"
	appControllers "github.com/yigit/unihousing/internal/app/controllers"
	appRepos "github.com/yigit/unihousing/internal/app/repositories"
	appRoutes "github.com/yigit/unihousing/internal/app/routes"
	appServices "github.com/yigit/unihousing/internal/app/services"
	"github.com/yigit/unihousing/internal/config"
	"github.com/yigit/unihousing/internal/db"
	appMiddleware "github.com/yigit/unihousing/internal/middleware"
	pkgAuth "github.com/yigit/unihousing/internal/pkg/auth"
	"github.com/yigit/unihousing/internal/pkg/email"
	"github.com/yigit/unihousing/internal/pkg/filestorage"
	"github.com/yigit/unihousing/internal/pkg/logger"
	"github.com/yigit/unihousing/internal/pkg/metrics"
	"github.com/yigit/unihousing/internal/pkg/tracing"
	"github.com/yigit/unihousing/internal/pkg/websocket"
	"github.com/yigit/unihousing/internal/seed"
	"github.com/yigit/unihousing/internal/store/memory"
	"github.com/yigit/unihousing/internal/store/sqlstore"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Store    appRepos.Store
	Hub      *websocket.Hub
	Recorder *audit.Recorder

	OccupancyService    *appServices.OccupancyService
	RequestService      *appServices.RequestService
	UserService         *appServices.UserService
	StudentService      *appServices.StudentService
	NotificationService *appServices.NotificationService
	BackupService       *appServices.BackupService
	LogService          *appServices.LogService

	Controllers    appRoutes.Controllers
	AuthMiddleware *appMiddleware.AuthMiddleware
	AuthzService   *appAuth.AuthorizationService
	Logger         zerolog.Logger

	// Closers run in reverse order on shutdown
	closers []func(context.Context) error
	cancel  context.CancelFunc
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := config.GetEnv("CONFIG_PATH", filepath.Join("configs", "config.yaml"))
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	lgr := logger.Setup(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stdout,
	})
	lgr.Info().Str("logLevel", cfg.Logging.Level).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase opens the configured store and ensures its schema exists.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (appRepos.Store, error) {
	lgr.Info().Str("driver", cfg.Database.Driver).Msg("Establishing database connection...")

	var store *sqlstore.Store
	switch cfg.Database.Driver {
	case config.DriverMemory:
		lgr.Warn().Msg("Using the in-memory store; data is lost on restart")
		return memory.New(), nil
	case config.DriverSQLite:
		conn, err := db.OpenSQLite(cfg.Database.SQLitePath)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to open sqlite database")
			return nil, err
		}
		store = sqlstore.NewSQL(conn, sqlstore.SQLite, lgr)
	case config.DriverPostgres:
		pool, err := db.NewPostgresPool(cfg, lgr)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to database")
			return nil, err
		}
		store = sqlstore.NewPostgres(pool, lgr)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	lgr.Info().Msg("Database connection successfully established.")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	lgr.Info().Msg("Ensuring database schema...")
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		lgr.Error().Err(err).Msg("Database schema error")
		return nil, fmt.Errorf("database schema setup failed: %w", err)
	}
	lgr.Info().Msg("Database schema ready.")
	return store, nil
}

// SetupBackupStorage builds the object store backups are written to.
func SetupBackupStorage(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (filestorage.Storage, error) {
	switch cfg.Backup.Driver {
	case config.BackupS3:
		s3Storage, err := filestorage.NewS3Storage(ctx, filestorage.S3Config{
			Bucket:       cfg.Backup.Bucket,
			Region:       cfg.Backup.Region,
			Endpoint:     cfg.Backup.Endpoint,
			UsePathStyle: cfg.Backup.UsePathStyle,
			Prefix:       cfg.Backup.Prefix,
		}, lgr)
		if err != nil {
			return nil, err
		}
		return s3Storage, nil
	default:
		local, err := filestorage.NewLocalStorage(cfg.Backup.Dir, lgr)
		if err != nil {
			return nil, err
		}
		return local, nil
	}
}

// BuildDependencies initializes services and controllers on top of store.
func BuildDependencies(cfg *config.Config, store appRepos.Store, lgr zerolog.Logger) (*Dependencies, error) {
	ctx, cancel := context.WithCancel(context.Background())
	deps := &Dependencies{Store: store, Logger: lgr, cancel: cancel}
	deps.closers = append(deps.closers, func(context.Context) error { return store.Close() })

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Server.Mode,
		Insecure:    cfg.Tracing.Insecure,
	}, lgr)
	if err != nil {
		deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	deps.closers = append(deps.closers, func(ctx context.Context) error { return shutdownTracing(ctx) })

	var sinks []audit.Sink
	if cfg.Redis.Addr != "" {
		client, err := audit.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			// The audit stream is optional; the store keeps the authoritative trail.
			lgr.Error().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, audit stream disabled")
		} else {
			sinks = append(sinks, audit.NewRedisSink(client, cfg.Redis.Stream, 10000))
			deps.closers = append(deps.closers, func(context.Context) error { return client.Close() })
		}
	}
	deps.Recorder = audit.NewRecorder(store, lgr, sinks...)

	deps.Hub = websocket.NewHub(lgr.With().Str("component", "hub").Logger())
	go deps.Hub.Run(ctx)

	backups, err := SetupBackupStorage(ctx, cfg, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize backup storage")
		deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize backup storage: %w", err)
	}

	mailer := email.NewSender(email.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, lgr)

	deps.AuthzService = appAuth.NewAuthorizationService(lgr)
	deps.OccupancyService = appServices.NewOccupancyService(store, deps.AuthzService, deps.Recorder, lgr)
	deps.NotificationService = appServices.NewNotificationService(store, deps.AuthzService, deps.Hub, mailer, lgr)
	deps.RequestService = appServices.NewRequestService(store, deps.AuthzService, deps.OccupancyService, deps.NotificationService, deps.Recorder, lgr)
	deps.UserService = appServices.NewUserService(store, deps.AuthzService, deps.Recorder, lgr)
	deps.StudentService = appServices.NewStudentService(store, deps.AuthzService, deps.Recorder, lgr)
	deps.BackupService = appServices.NewBackupService(store, backups, deps.AuthzService, deps.Recorder, lgr)
	deps.LogService = appServices.NewLogService(store, deps.AuthzService, deps.Recorder)

	if err := seed.CreateDefaultData(ctx, cfg, deps.UserService, deps.OccupancyService, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	var verifier *pkgAuth.TokenVerifier
	if cfg.Auth.Secret != "" {
		verifier = pkgAuth.NewTokenVerifier(cfg.Auth.Secret, cfg.Auth.Issuer)
	} else {
		lgr.Warn().Msg("auth.secret is empty, requester identity is taken from headers and bodies")
	}
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(verifier, lgr)

	deps.Controllers = appRoutes.Controllers{
		Rooms:         appControllers.NewRoomController(deps.OccupancyService),
		Students:      appControllers.NewStudentController(deps.StudentService, deps.OccupancyService),
		Requests:      appControllers.NewRequestController(deps.RequestService),
		Users:         appControllers.NewUserController(deps.UserService),
		Notifications: appControllers.NewNotificationController(deps.NotificationService, deps.Hub, lgr),
		Logs:          appControllers.NewLogController(deps.LogService),
		Backup:        appControllers.NewBackupController(deps.BackupService),
	}

	return deps, nil
}

// Close stops the hub and releases every resource in reverse order of acquisition.
func (d *Dependencies) Close(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}
	var firstErr error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			d.Logger.Error().Err(err).Msg("Error releasing resource")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	d.closers = nil
	return firstErr
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		appMiddleware.RequestID(),
		appMiddleware.RequestLogger(lgr),
	)
	if cfg.Metrics.Enabled {
		router.Use(appMiddleware.Metrics())
		router.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}

	limiter := appMiddleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	appRoutes.SetupRouter(router, deps.Controllers, limiter.Handler(), deps.AuthMiddleware.Principal())

	router.GET("/ping", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := deps.Store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": "database unavailable", "status": "error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
