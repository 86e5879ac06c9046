package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"calc-api/api/internal/calc"
	"calc-api/api/internal/config"
	"calc-api/api/internal/engines"
	"calc-api/api/internal/handle"
	"calc-api/api/internal/httpserver"
	"calc-api/api/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if err := cfg.Validate(); err != nil {
		lg.Fatal("invalid config", zap.Error(err))
	}

	reg, err := engines.Build(cfg, lg)
	if err != nil {
		lg.Fatal("engines", zap.Error(err))
	}

	pipe := calc.New(reg, lg.Named("calc"))
	h := handle.New(pipe, lg.Named("http"), cfg.Timeout(), cfg.MaxBodyBytes())
	srv := httpserver.New(cfg.Addr(), httpserver.WithCORS(httpserver.NewMux(h), cfg.Origins()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg.Info("calc-server starting",
		zap.String("env", cfg.Env),
		zap.String("addr", cfg.Addr()),
		zap.String("default_engine", reg.Default()),
		zap.Strings("engines", reg.Names()),
	)
	if err := httpserver.Run(ctx, srv, lg); err != nil {
		lg.Fatal("server", zap.Error(err))
	}
}
