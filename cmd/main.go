package main

import (
	"flag"

	"go.uber.org/zap"

	"github.com/RaprApraP54/rapz-auction/internal/app"
	"github.com/RaprApraP54/rapz-auction/internal/config"
	"github.com/RaprApraP54/rapz-auction/pkg/logger"
)

const serviceName = "rapz-auction"

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: serviceName,
		Environment: cfg.Service.Env,
	}); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("starting service",
		zap.String("service", serviceName),
		zap.String("env", cfg.Service.Env),
		zap.Int("http_port", cfg.Service.HTTPPort),
		zap.String("chain_mode", cfg.Blockchain.Mode),
	)

	application, err := app.NewApp(cfg)
	if err != nil {
		logger.Fatal("failed to create app", zap.Error(err))
	}

	if err := application.Run(); err != nil {
		logger.Fatal("app run error", zap.Error(err))
	}

	logger.Info("service stopped")
}
