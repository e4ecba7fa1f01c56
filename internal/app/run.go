package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"habitat-monitor/internal/config"
	"habitat-monitor/internal/db"
	"habitat-monitor/internal/httpapi"
	"habitat-monitor/internal/migrate"
	"habitat-monitor/internal/modules/habitat"
	"habitat-monitor/internal/modules/habitat/aggregate"
	"habitat-monitor/internal/modules/habitat/chart"
	"habitat-monitor/internal/modules/habitat/repository"
	"habitat-monitor/internal/modules/habitat/service"
	"habitat-monitor/internal/modules/habitat/stability"
	habitatviews "habitat-monitor/internal/modules/habitat/views"
	"habitat-monitor/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"staticDir", cfg.StaticDir,
		"dbDriver", cfg.Driver,
		"dbPath", cfg.Path,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMaxIdleConns", cfg.MaxIdleConns,
		"dbConnMaxLifetime", cfg.ConnMaxLifetime,
		"location", cfg.Location.String(),
		"aggregateInterval", cfg.AggregateInterval,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)

	repo, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	slog.Info("database connection successful", "driver", cfg.Driver)

	if err := habitatviews.LoadTemplates(); err != nil {
		return err
	}

	logger := slog.Default()
	svc := service.NewService(repo, &stability.Cell{}, chart.NewRenderer(), cfg.Location, logger.With("module", "habitat"))

	// The handler must be set before Connect so OnConnectHandler can subscribe
	// before the broker delivers queued messages.
	var subscriber *mqtt.Subscriber
	mux := httpapi.NewMux(repo, cfg.StaticDir)
	if cfg.MQTTEnabled() {
		subscriber = mqtt.NewSubscriber(cfg, logger.With("component", "mqtt"))
		habitat.RegisterFeature(mux, svc, subscriber)

		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	} else {
		habitat.RegisterFeature(mux, svc, nil)
		slog.Info("mqtt disabled (MQTT_BROKER not set)")
	}

	jobCtx, stopJob := context.WithCancel(ctx)
	defer stopJob()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		job := aggregate.NewJob(repo, cfg.AggregateInterval, cfg.Location, logger.With("component", "aggregate"))
		if err := job.Run(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("aggregate job stopped", "error", err)
		}
	}()

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		stopJob()
		wg.Wait()
		if subscriber != nil {
			subscriber.Disconnect()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		slog.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	stopJob()
	wg.Wait()

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// OpenStore opens the configured reading store and brings its schema up to
// date. The returned func releases it.
func OpenStore(ctx context.Context, cfg config.Config) (repository.HabitatRepository, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		store, err := repository.NewPostgresStore(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		dbConn, err := db.Open(ctx, cfg, slog.Default().With("component", "sqlite"))
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if closeErr := db.Close(dbConn); closeErr != nil {
				slog.Error("db close", "error", closeErr)
			}
		}
		n, err := migrate.Run(ctx, dbConn)
		if err != nil {
			closeDB()
			return nil, nil, err
		}
		slog.Info("migrations applied", "count", n)
		return repository.NewRepository(dbConn), closeDB, nil
	}
}
