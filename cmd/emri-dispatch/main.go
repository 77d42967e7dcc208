package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emri-dispatch/internal/config"
	"emri-dispatch/internal/database"
	httpapi "emri-dispatch/internal/http"
	"emri-dispatch/internal/logger"
	"emri-dispatch/internal/mqtt"
	"emri-dispatch/internal/repository"
	"emri-dispatch/internal/service"
	"emri-dispatch/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "emri-dispatch")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	kv := store.NewRedisKV(redisClient)

	vehiclesRepo := repository.NewPostgresVehiclesRepository(db)
	remarksRepo := repository.NewPostgresRemarksRepository(db)
	usersRepo := repository.NewPostgresUsersRepository(db)

	dispatchSvc := service.NewDispatchService(vehiclesRepo, remarksRepo, log)
	authSvc := service.NewAuthService(usersRepo, kv, cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, log)

	authMW := httpapi.NewAuthMiddleware(authSvc, log)
	dispatchHandler := httpapi.NewDispatchHandler(dispatchSvc, log)
	authHandler := httpapi.NewAuthHandler(authSvc, cfg.Auth.SessionTTL, cfg.Auth.CookieSecure, log)

	router := httpapi.NewRouter(log)
	router.RegisterDispatchRoutes(dispatchHandler, authMW)
	router.RegisterAuthRoutes(authHandler)

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.NewClient(&cfg.MQTT, log)
		if err != nil {
			log.Fatal("failed to connect to MQTT broker", zap.Error(err))
		}
		ingest := mqtt.NewTelemetryIngest(vehiclesRepo, log)
		if err := mqttClient.Subscribe(cfg.MQTT.Topic, cfg.MQTT.QoS, ingest.HandleMessage); err != nil {
			log.Fatal("failed to subscribe to telemetry topic", zap.Error(err))
		}
		log.Info("telemetry ingest enabled",
			zap.String("broker", cfg.MQTT.Broker),
			zap.String("topic", cfg.MQTT.Topic))
	}

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server stopped unexpectedly", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
}
