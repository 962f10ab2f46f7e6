package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"safechat/api/internal/app"
	"safechat/api/internal/config"
	"safechat/api/internal/handle"
	"safechat/api/internal/httpserver"
	"safechat/api/internal/logger"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := logger.New(cfg.LogLevel)
	if envErr != nil {
		log.Debug("no .env file found, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("init")
	}
	defer a.Close()
	go a.PurgeLoop(ctx, time.Hour)

	mux := http.NewServeMux()
	httpserver.Register(mux, a.Registry, a.HealthCheck())

	h := handle.New(a.Engines, a.Analyzer, log)
	mux.HandleFunc("/v1/toxicity/analyze", h.Analyze)

	if err := httpserver.StartHTTP(ctx, ":"+cfg.Port, mux, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("http server")
	}
}
