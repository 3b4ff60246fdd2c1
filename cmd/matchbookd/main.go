// Command matchbookd runs the matching engine, its synthetic liquidity
// makers, the periodic market-data broadcaster, and the TCP/websocket front
// ends as one process.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"matchbook/internal/config"
	"matchbook/internal/feed"
	"matchbook/internal/makers"
	"matchbook/internal/matching"
	"matchbook/internal/server"
)

func main() {
	cfgPath := "configs/matchbook.yaml"
	if p := os.Getenv("MATCHBOOK_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "matchbookd: load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "matchbookd: invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := matching.New(matching.DefaultCapacity)
	for _, sym := range cfg.Symbols {
		if err := engine.AddSymbol(sym.Symbol, sym.InitialPrice); err != nil {
			logger.Fatal().Err(err).Str("symbol", sym.Symbol).Msg("register symbol")
		}
	}

	tape := feed.NewTape()
	srv := server.New(cfg.Listen.Address, cfg.Listen.Port, engine, tape, logger.With().Str("component", "server").Logger())
	hub := feed.NewHub(logger.With().Str("component", "hub").Logger())

	broadcaster := feed.NewBroadcaster(engine, cfg.Feed.SnapshotInterval, logger.With().Str("component", "broadcaster").Logger())
	broadcaster.Attach(srv)
	broadcaster.Attach(hub)

	makerCfgs := make([]makers.Config, 0, len(cfg.Symbols))
	for i, sym := range cfg.Symbols {
		makerCfgs = append(makerCfgs, makers.Config{
			Symbol:          sym.Symbol,
			S0:              sym.InitialPrice,
			Mu:              cfg.Maker.Mu,
			Sigma:           cfg.Maker.Sigma,
			Dt:              makers.YearsFromWallClock(cfg.Maker.Dt),
			SpreadBps:       cfg.Maker.SpreadBps,
			LevelSpacingBps: cfg.Maker.LevelSpacingBps,
			Levels:          cfg.Maker.Levels,
			OrderSize:       cfg.Maker.OrderSize,
			Seed:            cfg.Maker.Seed + uint32(i),
		})
	}
	pool := makers.NewPool(makerCfgs, engine, logger.With().Str("component", "makers").Logger())

	stopBroadcast := make(chan struct{})
	go broadcaster.Run(stopBroadcast)

	stopMakers := make(chan struct{})
	go runMakers(pool, cfg.Maker.UpdateInterval, stopMakers)

	go func() {
		mux := http.NewServeMux()
		mux.Handle(cfg.Feed.WebsocketPath, hub)
		addr := fmt.Sprintf(":%d", cfg.Listen.Port+1)
		logger.Info().Str("address", addr).Str("path", cfg.Feed.WebsocketPath).Msg("websocket feed listening")
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error().Err(err).Msg("websocket feed stopped")
		}
	}()

	go func() {
		if err := srv.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("tcp server stopped")
		}
	}()

	logger.Info().Int("symbols", len(cfg.Symbols)).Msg("matchbookd started")

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	close(stopBroadcast)
	close(stopMakers)
}

func runMakers(pool *makers.Pool, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			pool.UpdateAll()
		}
	}
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var w = os.Stdout
	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
