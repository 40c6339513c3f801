package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kazuhidet/Web-Interface-for-WoL/agent/internal/api"
	"github.com/kazuhidet/Web-Interface-for-WoL/agent/internal/config"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/logger"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/wol"

	_ "github.com/kazuhidet/Web-Interface-for-WoL/agent/docs"
)

// @title Wake-on-LAN Relay Agent API
// @version 1.0
// @description Relay agent that sends magic packets on its local network segment on behalf of the controller

// @host localhost:3001
// @BasePath /
// @schemes http https

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Log.Fatalf("Failed to load config: %v", err)
	}

	logger.SetLevel(cfg.LogLevel)
	logger.SetFormat(cfg.LogFormat)
	logger.Log.Info("Starting Wake-on-LAN Relay Agent")
	logger.Log.Infof("Default destination %s:%d", cfg.DefaultBroadcast, cfg.DefaultWoLPort)

	sender := wol.NewSender(cfg.DefaultBroadcast, cfg.DefaultWoLPort)
	handler := api.NewHandler(sender, cfg.Token)
	router := api.SetupRouter(handler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		logger.Log.Infof("Agent listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down agent...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Log.Info("Agent exited")
}
