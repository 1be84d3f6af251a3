package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"forum/internal/config"
	"forum/internal/consul"
	"forum/internal/database"
	"forum/internal/kafka"
	"forum/internal/logger"
	"forum/internal/orm"
	"forum/internal/posts"
	"forum/internal/server"
	"forum/internal/storage"
	"forum/internal/telemetry"
	"forum/internal/topics"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Forum service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.OptionsFromEnv(cfg.ServiceName))
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting forum service",
		"port", cfg.Port,
		"backend", cfg.StoreBackend,
		"redis", cfg.RedisAddr != "",
		"kafka", cfg.KafkaBrokers != "",
		"consul", cfg.ConsulAddr != "")

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:   cfg.ServiceName,
		TraceExporter: cfg.TracesExporter,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("Failed to flush traces", "error", err)
		}
	}()

	checks := map[string]server.HealthCheck{}

	repos, err := openBackend(ctx, cfg, log, checks)
	if err != nil {
		return err
	}
	defer repos.close()

	opts := posts.Options{
		Logger:      log,
		EventsTopic: cfg.PostEventsTopic,
	}

	if cfg.RedisAddr != "" {
		rdb := posts.NewRedisClient(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)
		if rdb != nil {
			defer rdb.Close()
			opts.Cache = rdb
			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		}
	}

	if cfg.KafkaBrokers != "" {
		kcfg, err := kafka.NewConfig(cfg.KafkaBrokers, cfg.PostEventsTopic)
		if err != nil {
			return err
		}
		producer, err := kafka.NewProducer(kcfg, log)
		if err != nil {
			log.Warn("Kafka unavailable, post events disabled", "error", err)
		} else {
			defer producer.Close()
			opts.Events = producer
		}
	}

	postService := posts.NewService(repos.posts, opts)
	topicService := topics.NewService(repos.topics, postService, log)

	router := server.NewRouter(server.RouterOptions{
		ServiceName:    cfg.ServiceName,
		Logger:         log,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Checks:         checks,
	})
	api := router.Group("/api/v1")
	posts.RegisterRoutes(api, posts.NewHandler(postService, log))
	topics.RegisterRoutes(api, topics.NewHandler(topicService, log))

	srv := server.New(server.Config{
		Port:         cfg.Port,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}, router)

	if cfg.ConsulAddr != "" {
		deregister, err := register(cfg, log, checks)
		if err != nil {
			return err
		}
		defer deregister()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Forum service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Forum service stopped")
	return nil
}

type backend struct {
	posts  posts.Repository
	topics topics.Repository
	close  func()
}

// openBackend builds the post and topic repositories for STORE_BACKEND. Topics live in
// Postgres for the relational backends and in memory otherwise.
func openBackend(ctx context.Context, cfg *config.Config, log *slog.Logger, checks map[string]server.HealthCheck) (*backend, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres, config.BackendORM:
		db, err := database.New(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := database.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		checks["database"] = func(ctx context.Context) error { return db.DB().PingContext(ctx) }

		b := &backend{
			posts:  posts.NewRepository(db),
			topics: topics.NewRepository(db),
			close:  func() { db.Close() },
		}
		if cfg.StoreBackend == config.BackendORM {
			gdb, err := orm.Open(db)
			if err != nil {
				db.Close()
				return nil, err
			}
			b.posts = orm.NewPostRepository(gdb)
		}
		log.Info("Database backend ready", "backend", cfg.StoreBackend)
		return b, nil

	case config.BackendS3:
		store, err := storage.New(ctx, storage.Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			UseSSL:    cfg.S3.UseSSL,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("connect object storage: %w", err)
		}
		checks["storage"] = store.Health
		log.Info("Object storage backend ready", "bucket", cfg.S3.Bucket)
		return &backend{posts: store, topics: topics.NewMemoryRepository(), close: func() {}}, nil

	default:
		return &backend{
			posts:  posts.NewMemoryRepository(),
			topics: topics.NewMemoryRepository(),
			close:  func() {},
		}, nil
	}
}

func register(cfg *config.Config, log *slog.Logger, checks map[string]server.HealthCheck) (func(), error) {
	client, err := consul.NewClientWithToken(cfg.ConsulAddr, cfg.ConsulToken)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}
	checks["consul"] = client.Health

	svc := consul.HTTPService(cfg.ServiceName, cfg.ServiceHost, cfg.Port, "forum", "posts", "topics")

	// Clean up a registration left behind by a crashed instance
	_ = client.Deregister(svc.ID)

	if err := client.Register(svc); err != nil {
		return nil, err
	}
	log.Info("Registered with Consul", "service_id", svc.ID)

	return func() {
		if err := client.Deregister(svc.ID); err != nil {
			log.Warn("Failed to deregister from Consul", "error", err)
			return
		}
		log.Info("Deregistered from Consul", "service_id", svc.ID)
	}, nil
}
