package main

import (
	"context"
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"github.com/topspinj/find-my-daycare/internal/adapters/googlemaps"
	server "github.com/topspinj/find-my-daycare/internal/adapters/http_server"
	"github.com/topspinj/find-my-daycare/internal/adapters/observability"
	redisad "github.com/topspinj/find-my-daycare/internal/adapters/redis"
	"github.com/topspinj/find-my-daycare/internal/app"
	"github.com/topspinj/find-my-daycare/internal/shared"
	mysqlrepo "github.com/topspinj/find-my-daycare/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	maps, err := googlemaps.New(cfg.MapsBase, cfg.MapsKey, 10)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Google Maps client")
	}

	catalog := app.NewCatalog()
	tag, n, err := app.LoadCatalog(context.Background(), repo, catalog)
	if err != nil {
		// Serve anyway: queries return 503 until the ingestor has run and an
		// operator hits /v1/admin/reload.
		log.Warn().Err(err).Msg("catalog not loaded at startup")
	} else {
		observability.SetCatalogSize(n)
		log.Info().Str("tag", tag).Int("records", n).Msg("catalog loaded")
	}

	search := app.NewSearchService(catalog, maps, maps, cache, cfg.CacheTTL)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{S: search, Catalog: catalog, Repo: repo})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
