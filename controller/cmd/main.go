package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kazuhidet/Web-Interface-for-WoL/controller/internal/api"
	"github.com/kazuhidet/Web-Interface-for-WoL/controller/internal/config"
	"github.com/kazuhidet/Web-Interface-for-WoL/controller/internal/database"
	"github.com/kazuhidet/Web-Interface-for-WoL/controller/internal/dispatch"
	"github.com/kazuhidet/Web-Interface-for-WoL/controller/internal/monitor"
	"github.com/kazuhidet/Web-Interface-for-WoL/controller/internal/registry"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/events"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/logger"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/nats"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/redis"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/relay"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/wol"

	_ "github.com/kazuhidet/Web-Interface-for-WoL/controller/docs"
)

// @title Wake-on-LAN Controller API
// @version 1.0
// @description Registry of hosts and relay agents; wakes hosts locally or through the agent on their network segment

// @host localhost:3000
// @BasePath /
// @schemes http https

// @securityDefinitions.basic BasicAuth

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Log.Fatalf("Failed to load config: %v", err)
	}

	logger.SetLevel(cfg.LogLevel)
	logger.SetFormat(cfg.LogFormat)
	logger.Log.Info("Starting Wake-on-LAN Controller")

	// Event publishers are optional; a disabled or unreachable broker only
	// costs us the events
	redisClient, err := redis.NewClient(redis.Config{
		Address:  cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Enabled:  cfg.RedisEnabled,
	})
	if err != nil {
		logger.Log.Warnf("Redis unavailable, continuing without it: %v", err)
		redisClient = nil
	}
	defer redisClient.Close()

	var natsClient *nats.Client
	if cfg.NATSEnabled {
		natsClient = nats.NewClient(nats.Config{
			URLs:           cfg.NATSURLs,
			Token:          cfg.NATSToken,
			MaxReconnect:   10,
			ReconnectWait:  2 * time.Second,
			ConnectionName: "wol-controller",
			SubjectPrefix:  cfg.NATSSubjectPrefix,
			Enabled:        true,
		})
		if err := natsClient.Connect(); err != nil {
			logger.Log.Warnf("NATS unavailable, continuing without it: %v", err)
			natsClient = nil
		}
	}
	defer natsClient.Close()

	fanout := events.NewFanout(redisClient, natsClient)
	logger.Log.Infof("Event publishing enabled on %d broker(s)", fanout.Len())

	store, err := registry.NewFileStore(cfg.DataFile)
	if err != nil {
		logger.Log.Fatalf("Failed to initialize registry: %v", err)
	}
	reg := registry.New(store, fanout)
	logger.Log.Infof("Registry stored at %s", store.Path())

	db, err := database.New(cfg.DBPath)
	if err != nil {
		logger.Log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if pruned, err := db.PruneWakes(cfg.HistoryKeep); err != nil {
		logger.Log.Warnf("Failed to prune wake history: %v", err)
	} else if pruned > 0 {
		logger.Log.Infof("Pruned %d old wake history entries", pruned)
	}

	sender := wol.NewSender(cfg.DefaultBroadcast, cfg.DefaultWoLPort)
	relayClient := relay.NewClient(cfg.RelayTimeout, cfg.ProbeTimeout)
	dispatcher := dispatch.New(reg, sender, relayClient, db, fanout)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var statuses api.StatusProvider
	if cfg.MonitorInterval > 0 {
		mon := monitor.New(reg, relayClient, cfg.MonitorInterval, cfg.MonitorMaxDelay)
		mon.Start(ctx)
		defer mon.Stop()
		statuses = mon
	} else {
		logger.Log.Info("Agent monitor disabled")
	}

	handler := api.NewHandler(reg, dispatcher, db, statuses)

	if redisClient != nil {
		handler.AddBroker("redis", redisClient)
	}
	if natsClient != nil {
		handler.AddBroker("nats", natsClient)
	}

	if cfg.AdminAuthEnabled() {
		handler.SetAdminCredentials(cfg.AdminUsername, cfg.AdminPassword)
		logger.Log.Info("Admin authentication enabled for /api")
	}

	router := api.SetupRouter(handler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		logger.Log.Infof("Controller listening on port %s", cfg.Port)
		logger.Log.Infof("Swagger docs available at http://localhost:%s/swagger/index.html", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorf("Server forced to shutdown: %v", err)
	}

	if natsClient != nil {
		if err := natsClient.Flush(); err != nil {
			logger.Log.Warnf("Failed to flush NATS events: %v", err)
		}
	}

	logger.Log.Info("Server exited")
}
