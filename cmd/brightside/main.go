package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	httpapi "github.com/i474232898/brightside/internal/api/http"
	"github.com/i474232898/brightside/internal/config"
	"github.com/i474232898/brightside/internal/dashboard"
	"github.com/i474232898/brightside/internal/metrics"
	"github.com/i474232898/brightside/internal/scheduler"
	"github.com/i474232898/brightside/internal/store"
	"github.com/i474232898/brightside/internal/weather/providers"
)

const version = "3.0.0"

func main() {
	configFile := flag.String("config-file", "", "Optional YAML configuration file (also CONFIG_FILE)")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("brightside", version)
		return
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	setupLogging(cfg)

	rec := metrics.New()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	provider, err := providers.NewOpenWeatherProvider(providers.ClientConfig{
		Client:  httpClient,
		BaseURL: cfg.OpenWeatherBaseURL,
		RPS:     cfg.ProviderRPS,
		Burst:   cfg.ProviderBurst,
		Metrics: rec,
	}, cfg.OpenWeatherAPIKey)
	if err != nil {
		log.Fatalf("failed to create weather provider: %v", err)
	}

	locator, err := newLocator(cfg)
	if err != nil {
		log.Fatalf("failed to create locator: %v", err)
	}

	cities := dashboard.NewCityBook(citiesFrom(cfg))
	cfg.Watch(func(next *config.AppConfig) {
		cities.Set(citiesFrom(next))
		log.Infof("reloaded city settings: %d pills", len(next.CityPills))
	})

	sessions := store.NewSessionStore(cfg.SessionMax, cfg.SessionMaxIdle)

	// Refreshes are paced so a run never asks the provider for more than its budget.
	sched := scheduler.New(sessions, scheduler.Config{
		Interval:   cfg.RefreshInterval,
		RefreshRPS: cfg.ProviderRPS / dashboard.CallsPerCycle,
		Burst:      cfg.ProviderBurst / dashboard.CallsPerCycle,
	}, rec)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "brightside",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "brightside",
			"version":  version,
			"sessions": sessions.Len(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(rec.Registry(), promhttp.HandlerOpts{})))

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Provider: provider,
		Sessions: sessions,
		Cities:   cities,
		Locator:  locator,
		Metrics:  rec,
		Context:  ctx,
	})

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir, fiber.Static{
			Compress: true,
			MaxAge:   3600,
		})
	}

	// Start server with graceful shutdown
	go func() {
		log.Infof("brightside listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Errorf("fiber server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorf("error during shutdown: %v", err)
	}
}

func setupLogging(cfg *config.AppConfig) {
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	log.SetOutput(os.Stdout)
}

func newLocator(cfg *config.AppConfig) (dashboard.Locator, error) {
	switch {
	case cfg.Location != nil:
		return dashboard.StaticLocator{Coords: *cfg.Location}, nil
	case cfg.GeocoderAddress != "":
		l, err := dashboard.NewGeocoderLocator(cfg.GeocoderAPIKey, cfg.GeocoderAddress)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, nil
	}
}

func citiesFrom(cfg *config.AppConfig) dashboard.Cities {
	return dashboard.Cities{
		Denied:        cfg.DefaultCity,
		NoGeolocation: cfg.NoGeolocationCity,
		Suggested:     cfg.SuggestedCity,
		Pills:         cfg.CityPills,
	}
}
