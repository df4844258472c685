package main

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"github.com/topspinj/find-my-daycare/internal/adapters/ckan"
	"github.com/topspinj/find-my-daycare/internal/adapters/observability"
	"github.com/topspinj/find-my-daycare/internal/app"
	"github.com/topspinj/find-my-daycare/internal/shared"
	mysqlrepo "github.com/topspinj/find-my-daycare/internal/storage/mysql"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("base", cfg.CKANBase).
		Str("package", cfg.CKANPackage).
		Msg("ingestor starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	source, err := ckan.New(cfg.CKANBase, cfg.CKANPackage, 2)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize CKAN client")
	}

	ing := app.NewIngestionService(source, repo)
	tag, n, err := ing.Ingest(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("ingest failed")
	}

	log.Info().Str("tag", tag).Int("records", n).Msg("ingestion completed")
}
