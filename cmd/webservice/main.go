package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/config"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/app"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	postgresDriver "github.com/alimikegami/point-of-sales/catalog-admin-service/internal/infrastructure/database/postgres"
)

func main() {
	config := config.CreateNewConfig()
	db, err := postgresDriver.GetDBInstance(config.PostgreSQLConfig.DBUsername, config.PostgreSQLConfig.DBPassword, config.PostgreSQLConfig.DBHost, config.PostgreSQLConfig.DBPort, config.PostgreSQLConfig.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()

	server := app.App{
		DB:     db,
		Config: config,
		Server: echo.New(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go server.Start()

	<-ctx.Done()
	if err := server.StopServer(); err != nil {
		log.Error().Err(err).Msg("Failed to stop server")
	}
}
