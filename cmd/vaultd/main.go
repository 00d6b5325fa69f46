package main

import (
	"context"
	"fmt"

	"github.com/lifeos/vault/internal/config"
	vaulthttp "github.com/lifeos/vault/internal/handler/http"
	"github.com/lifeos/vault/internal/logger"
	"github.com/lifeos/vault/internal/server"
	"github.com/lifeos/vault/internal/store"
	"github.com/lifeos/vault/migrations"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("vaultd")

	cfg, err := config.GetStructuredConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}
	if err = cfg.ValidateServer(); err != nil {
		log.Fatal().Err(err).Msg("invalid server configs")
	}
	if cfg.App.Version == "" {
		cfg.App.Version = buildVersion
	}

	log.Debug().Str("address", cfg.Server.HTTPAddress).Msg("received configs")

	db, err := store.NewPostgresDB(context.Background(), cfg.Storage.DB.DSN, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error connecting to database")
	}
	defer db.Close()

	if err = migrations.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("error running migrations")
	}

	handler := vaulthttp.NewHandler(store.NewPostgresStore(db, log), vaulthttp.AuthSettings{
		TokenSignKey: cfg.App.TokenSignKey,
		TokenIssuer:  cfg.App.TokenIssuer,
	}, cfg.App.Version, log)

	srv, err := server.NewServer(handler, cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	srv.RunServer()
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
