package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	"authservice/internal/config"
	"authservice/internal/database"
	"authservice/internal/logger"
	"authservice/internal/routing"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long:  `Apply pending migrations and serve the form and /api/v1 routes until interrupted.`,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	log := logger.Load(cfg.LogFormat, os.Stdout)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.LoadDB(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.LogError(log, "load database", err)
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, cfg.DBDriver, log); err != nil {
		logger.LogError(log, "migrate database", err)
		return err
	}

	var mongoDB *mongo.Database
	if cfg.SessionStore == config.StoreMongo {
		mongoDB, err = database.LoadMongo(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			logger.LogError(log, "load mongo", err)
			return err
		}
		defer func() { _ = mongoDB.Client().Disconnect(context.Background()) }()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := mux.NewRouter()
	err = routing.InitRoutes(r, routing.Deps{
		DB:       db,
		Mongo:    mongoDB,
		Config:   cfg,
		Logger:   log,
		Registry: reg,
	})
	if err != nil {
		logger.LogError(log, "init routes", err)
		return err
	}

	log.Info("starting", "driver", cfg.DBDriver, "session_store", cfg.SessionStore, "session_duration", cfg.SessionDuration)
	return routing.StartServer(ctx, cfg.Addr, r, log)
}
