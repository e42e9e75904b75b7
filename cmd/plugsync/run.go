package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/plugsync/migrations"

	"github.com/nerrad567/plugsync/internal/api"
	"github.com/nerrad567/plugsync/internal/bridge"
	"github.com/nerrad567/plugsync/internal/history"
	"github.com/nerrad567/plugsync/internal/infrastructure/config"
	"github.com/nerrad567/plugsync/internal/infrastructure/database"
	"github.com/nerrad567/plugsync/internal/infrastructure/influxdb"
	"github.com/nerrad567/plugsync/internal/infrastructure/logging"
	"github.com/nerrad567/plugsync/internal/keepalive"
	"github.com/nerrad567/plugsync/internal/metrics"
	"github.com/nerrad567/plugsync/internal/router"
)

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: Path to config.yaml
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting plugsync",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)

	observers := []router.Observer{m}
	kaObservers := []keepalive.Observer{m}
	checks := make(map[string]api.HealthChecker)

	var recorder *history.Recorder

	if cfg.Database.Enabled {
		db, err := database.Open(ctx, database.ConfigFrom(cfg.Database))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		log.Info("database ready", "path", db.Path())

		recorder = history.NewRecorder(db.DB, log)
		metrics.RegisterHistoryDropped(reg, recorder.Dropped)
		observers = append(observers, recorder)
		kaObservers = append(kaObservers, recorder)
		checks["database"] = db
	} else {
		log.Info("state history disabled")
	}

	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		observers = append(observers, influxClient)
		checks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	sup, err := bridge.NewSupervisor(bridge.SupervisorConfig{
		Config:             cfg,
		Observers:          observers,
		KeepAliveObservers: kaObservers,
		Instrumentation:    m,
		Logger:             log,
	})
	if err != nil {
		return fmt.Errorf("building bridge: %w", err)
	}
	checks["mqtt"] = sup
	log.Info("bridge configured",
		"driver", cfg.Driver,
		"devices", len(cfg.Locations),
		"keep_alives", len(cfg.KeepAlives),
	)

	if cfg.API.Enabled {
		srv, err := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log,
			Status:   sup,
			Gatherer: reg,
			Checks:   checks,
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	if recorder != nil {
		g.Go(func() error { return recorder.Run(gctx) })
	}
	g.Go(func() error { return sup.Run(gctx) })

	log.Info("plugsync running")
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
