package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evcpms/internal/config"
	"evcpms/internal/db"
	"evcpms/internal/httpapi"
	"evcpms/internal/metrics"
	"evcpms/internal/repo"
	"evcpms/internal/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg := config.Load()
	logger := initLogger(cfg.Debug, cfg.LogLevel)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d, err := db.Connect(ctx, cfg.DatabaseURL, db.Options{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer d.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc := services.NewChargePointService(
		repo.NewChargeBoxRepo(d.Pool),
		repo.NewConnectorsRepo(d.Pool),
		repo.NewMeterValuesRepo(d.Pool),
		repo.NewTransactionsRepo(d.Pool),
		m,
		logger.Named("persistence"),
	)
	processor := services.NewEventsProcessor(svc, cfg.MaxEventSkew)

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metricsHandler = m.Handler()
	}
	srv := httpapi.NewServer(cfg, processor, d, metricsHandler, logger.Named("http"))

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("CPMS listening", zap.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := httpServer.Shutdown(ctx2); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("CPMS shutdown complete")
}

func initLogger(debug bool, level string) *zap.Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	if lvl, err := zapcore.ParseLevel(level); err == nil && !debug {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
