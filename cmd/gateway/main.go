package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forum/internal/config"
	"forum/internal/consul"
	"forum/internal/gateway"
	"forum/internal/logger"
	"forum/internal/server"
)

func main() {
	log := logger.New(logger.OptionsFromEnv("api-gateway"))
	logger.SetDefault(log)

	if err := config.ValidateEnv([]string{"CONSUL_HTTP_ADDR"}); err != nil {
		log.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	port := config.GetEnvInt("GATEWAY_PORT", 8080)
	consulAddr := config.GetEnvOrDefault("CONSUL_HTTP_ADDR", "localhost:8500")
	consulToken := config.GetEnvOrDefault("CONSUL_HTTP_TOKEN", "")
	upstream := config.GetEnvOrDefault("UPSTREAM_SERVICE", "forum-service")

	log.Info("Starting API Gateway",
		"port", port,
		"consul_addr", consulAddr,
		"upstream", upstream,
	)

	consulClient, err := consul.NewClientWithToken(consulAddr, consulToken)
	if err != nil {
		log.Error("Failed to create Consul client", "error", err)
		os.Exit(1)
	}

	router := gateway.SetupRouter(consulClient, gateway.Options{
		Upstream:       upstream,
		Logger:         log,
		AllowedOrigins: config.GetEnvList("CORS_ALLOWED_ORIGINS", []string{server.DefaultAllowedOrigin}),
		Checks:         map[string]server.HealthCheck{"consul": consulClient.Health},
	})

	srv := server.New(server.Config{
		Port:         port,
		ReadTimeout:  config.GetEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: config.GetEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:  config.GetEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
	}, router)

	go func() {
		log.Info("API Gateway listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down API Gateway")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("API Gateway stopped")
}
