// Package config loads the forum service settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// Storage backends selectable with STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendORM      = "orm"
	BackendS3       = "s3"
)

var Backends = []string{BackendMemory, BackendPostgres, BackendORM, BackendS3}

type Config struct {
	Port        int
	ServiceName string
	ServiceHost string

	StoreBackend string
	DatabaseURL  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers    string
	PostEventsTopic string

	S3 S3Config

	ConsulAddr  string
	ConsulToken string

	CORSAllowedOrigins []string
	TracesExporter     string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Load reads the configuration and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        GetEnvInt("PORT", 8080),
		ServiceName: GetEnvOrDefault("SERVICE_NAME", "forum-service"),
		ServiceHost: GetEnvOrDefault("SERVICE_HOST", "localhost"),

		StoreBackend: GetEnvOrDefault("STORE_BACKEND", BackendMemory),
		DatabaseURL:  GetEnvOrDefault("DATABASE_URL", ""),

		RedisAddr:     GetEnvOrDefault("REDIS_ADDR", ""),
		RedisPassword: GetEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:       GetEnvInt("REDIS_DB", 0),

		KafkaBrokers:    GetEnvOrDefault("KAFKA_BROKERS", ""),
		PostEventsTopic: GetEnvOrDefault("KAFKA_TOPIC_POST_EVENTS", "post-events"),

		S3: S3Config{
			Endpoint:  GetEnvOrDefault("S3_ENDPOINT", ""),
			AccessKey: GetEnvOrDefault("S3_ACCESS_KEY", ""),
			SecretKey: GetEnvOrDefault("S3_SECRET_KEY", ""),
			Bucket:    GetEnvOrDefault("S3_BUCKET_NAME", "forum-posts"),
			Region:    GetEnvOrDefault("S3_REGION", "us-east-1"),
			UseSSL:    GetEnvBool("S3_USE_SSL", false),
		},

		ConsulAddr:  GetEnvOrDefault("CONSUL_HTTP_ADDR", ""),
		ConsulToken: GetEnvOrDefault("CONSUL_HTTP_TOKEN", ""),

		CORSAllowedOrigins: GetEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		TracesExporter:     GetEnvOrDefault("OTEL_TRACES_EXPORTER", "none"),

		ReadTimeout:  GetEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: GetEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:  GetEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
