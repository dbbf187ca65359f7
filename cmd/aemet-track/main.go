// Command aemet-track maintains a per-calendar-day climate baseline for
// a single weather station and compares the current year against it.
//
// The default mode is a batch run: refresh the persisted history and
// summary if due, then emit the comparison view as JSON on stdout for
// the renderer. With -serve it stays up as a small HTTP service with a
// scheduled refresh instead.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mavillena/aemet-track/internal/aemet"
	httpapi "github.com/mavillena/aemet-track/internal/api/http"
	"github.com/mavillena/aemet-track/internal/climate"
	"github.com/mavillena/aemet-track/internal/config"
	"github.com/mavillena/aemet-track/internal/logger"
	"github.com/mavillena/aemet-track/internal/metrics"
	"github.com/mavillena/aemet-track/internal/scheduler"
	"github.com/mavillena/aemet-track/internal/store"
)

var version = "dev"

func main() {
	confPath := flag.String("config", "setup.json", "path to the setup file")
	serve := flag.Bool("serve", false, "run as an HTTP service with a scheduled refresh")
	force := flag.Bool("force", false, "ignore the work-day gate and staleness check")
	flag.Parse()

	log := logger.New(slog.LevelInfo)

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded", logger.Err(err))
	}

	conf, err := config.Load(*confPath)
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		os.Exit(1)
	}
	log = logger.New(conf.LogLevel)

	apiKey, err := config.APIKey()
	if err != nil {
		log.Error("missing archive credentials", logger.Err(err))
		os.Exit(1)
	}

	st, err := newStore(conf)
	if err != nil {
		log.Error("failed to initialize storage", logger.Err(err))
		os.Exit(1)
	}

	col := metrics.NewCollector("aemet_track", prometheus.DefaultRegisterer)

	httpClient := &http.Client{Timeout: 10 * time.Second}
	source := aemet.NewClient(httpClient, aemet.Config{
		APIKey:    apiKey,
		StationID: conf.Station.ID,
		Pace:      conf.Pace,
	}, log, col)

	service := climate.NewService(source, st, log, col, climate.Params{
		FirstYear: conf.History.FirstYear,
		LastYear:  conf.History.LastYear,
		Pace:      conf.Pace,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *serve {
		if err = runServer(ctx, conf, service, log); err != nil {
			log.Error("server failed", logger.Err(err))
			os.Exit(1)
		}
		return
	}

	if err = runOnce(ctx, conf, service, st, log, *force); err != nil {
		log.Error("run failed", logger.Err(err))
		os.Exit(1)
	}
}

// runOnce performs a single gated batch run: refresh if due, then write
// the comparison JSON to stdout.
func runOnce(ctx context.Context, conf *config.Config, service *climate.Service, st store.Store, log *logger.Logger, force bool) error {
	now := time.Now()

	if !force {
		if !conf.RunsOn(now) {
			log.Info("not a work day, skipping run", slog.String("workDay", conf.WorkDay))
			return nil
		}
		state, err := st.LoadState(ctx)
		switch {
		case err == nil:
			if now.Sub(state.LastReport) < conf.Staleness {
				log.Info("data still fresh, skipping refresh",
					slog.Time("lastReport", state.LastReport))
				return emitComparison(ctx, service, now)
			}
		case errors.Is(err, climate.ErrNotStored):
			// first run
		default:
			return err
		}
	}

	if _, err := service.Refresh(ctx, now); err != nil {
		return err
	}
	if err := st.SaveState(ctx, store.RunState{LastReport: now}); err != nil {
		return err
	}
	return emitComparison(ctx, service, now)
}

func emitComparison(ctx context.Context, service *climate.Service, now time.Time) error {
	cmp, err := service.Comparison(ctx, now)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cmp)
}

// runServer starts the HTTP API and the refresh schedule, blocking until
// the context is cancelled.
func runServer(ctx context.Context, conf *config.Config, service *climate.Service, log *logger.Logger) error {
	sched := scheduler.New(conf, service, log)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "aemet-track",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				code = fiberErr.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "aemet-track",
			"version": version,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(app, service)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(conf.Server.Listen)
	}()

	log.Info("aemet-track service started", slog.String("listen", conf.Server.Listen),
		slog.String("version", version))

	select {
	case err := <-errCh:
		return fmt.Errorf("fiber server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

// newStore selects the persistence backend from the configuration.
func newStore(conf *config.Config) (store.Store, error) {
	switch conf.Storage {
	case "s3":
		r2Conf, err := config.LoadR2Config()
		if err != nil {
			return nil, err
		}
		return store.NewR2Store(r2Conf.AccessKeyID, r2Conf.SecretAccessKey,
			r2Conf.Endpoint, r2Conf.BucketName, r2Conf.Region, r2Conf.Prefix)
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return store.NewFileStore(conf.DataDir)
	}
}
