package main

import (
	"os"

	"github.com/yigit/unihousing/internal/pkg/logger"
	"github.com/yigit/unihousing/internal/server"
)

// @title University Housing API
// @version 1.0
// @description Room occupancy, requests and staff management for a university dormitory

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Optional JWT identifying the requester

func main() {
	srv, err := server.NewServer()
	if err != nil {
		// Details are logged by the setup functions
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
	os.Exit(0)
}
