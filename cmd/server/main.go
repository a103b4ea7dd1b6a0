package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"blackjack-service/internal/api"
	"blackjack-service/internal/config"
	"blackjack-service/internal/repo"
	"blackjack-service/internal/service"
	"blackjack-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 1. Load Config
	config.LoadConfig(configPath)

	// 2. Init Logger
	logger.InitLogger(config.GlobalConfig.Server.Mode)
	defer logger.Log.Sync()

	logger.Log.Info("Starting server...",
		zap.String("mode", config.GlobalConfig.Server.Mode),
		zap.String("store", config.GlobalConfig.Store.Backend),
	)

	// 3. Init DB & Redis; both are optional with the memory store
	if config.GlobalConfig.Database.DSN != "" {
		repo.InitDB()
	}
	if config.GlobalConfig.Redis.Addr != "" {
		repo.InitRedis()
	}

	// 3.5 Init Services
	services, err := service.NewContainer(config.GlobalConfig, repo.DB, repo.RDB)
	if err != nil {
		logger.Log.Fatal("failed to build services", zap.Error(err))
	}
	if err := services.Start(ctx); err != nil {
		logger.Log.Fatal("failed to start services", zap.Error(err))
	}

	// 4. Init Router
	if config.GlobalConfig.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// Register Routes
	api.RegisterRoutes(r, services)

	// 5. Start Server
	addr := fmt.Sprintf(":%s", config.GlobalConfig.Server.Port)
	logger.Log.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		logger.Log.Fatal("Server failed to start", zap.Error(err))
	}
}
