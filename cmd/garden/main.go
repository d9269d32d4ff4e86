package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"flower-garden/config"
	"flower-garden/driver"
	"flower-garden/handlers"
	"flower-garden/observability"
	"flower-garden/persistence"
	"flower-garden/render"
	"flower-garden/services"
)

func main() {
	configPath := flag.String("config", os.Getenv(config.EnvConfigFile), "path to a TOML config file")
	flag.Parse()

	final, err := run(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "garden: %v\n", err)
		os.Exit(1)
	}
	// The screen is torn down by now; leave the last garden on the terminal
	fmt.Print(final)
}

// run plays the garden until a key is pressed or the process is signalled
// and returns the final rendering
func run(configPath string) (string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}

	logger, logCloser, err := observability.InitLogger("flower-garden", cfg.Log)
	if err != nil {
		return "", err
	}
	defer logCloser.Close()

	db, err := persistence.Open(cfg.Storage)
	if err != nil {
		return "", fmt.Errorf("failed to initialize persistence: %w", err)
	}
	if db != nil {
		defer db.Close()
	}
	logger.Info().Str("storage", cfg.Storage.Type).Msg("persistence initialized")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewGardenMetrics(reg)

	screen, err := tcell.NewScreen()
	if err != nil {
		return "", fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return "", fmt.Errorf("failed to initialize screen: %w", err)
	}
	defer screen.Fini()
	renderer := render.NewTerminalRenderer(screen)

	height, width := cfg.Garden.Height, cfg.Garden.Width
	if height == 0 || width == 0 {
		termHeight, termWidth := renderer.GardenSize()
		if height == 0 {
			height = termHeight
		}
		if width == 0 {
			width = termWidth
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	harvests := services.NewHarvestService(db, logger, metrics)
	spectators := handlers.NewSpectatorManager(logger, metrics)

	garden, err := services.NewGarden(ctx, height, width,
		services.WithTick(cfg.Garden.Tick.Duration),
		services.WithLogger(logger),
		services.WithMetrics(metrics),
		services.WithListener(harvests.HandleEvent),
		services.WithListener(spectators.HandleEvent),
	)
	if err != nil {
		return "", err
	}
	logger.Info().Int("height", height).Int("width", width).Dur("tick", cfg.Garden.Tick.Duration).Msg("garden created")

	ledgerCtx, stopLedger := context.WithCancel(context.Background())
	ledgerDone := make(chan struct{})
	go func() {
		harvests.Run(ledgerCtx)
		close(ledgerDone)
	}()
	defer func() {
		stopLedger()
		<-ledgerDone
	}()

	if cfg.Spectator.Enabled {
		server := &http.Server{
			Addr:              cfg.Spectator.Addr,
			Handler:           handlers.NewServeMux(garden, harvests, spectators, reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go spectators.Run(ctx, garden, cfg.Garden.FrameEvery.Duration)
		go func() {
			logger.Info().Str("addr", cfg.Spectator.Addr).Msg("spectator feed listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("spectator feed failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	go renderer.WatchKeys(ctx, stop)

	seed := cfg.Garden.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	d := driver.New(garden, renderer, driver.Options{
		FrameEvery: cfg.Garden.FrameEvery.Duration,
		PlantEvery: cfg.Garden.PlantEvery.Duration,
		Rand:       rand.New(rand.NewSource(seed)),
		Harvests:   harvests,
		Logger:     logger.With().Str("component", "driver").Logger(),
	})
	if err := d.Run(ctx); err != nil {
		return "", err
	}

	logger.Info().Int("harvested", harvests.Total()).Msg("garden stopped")
	return garden.String(), nil
}
