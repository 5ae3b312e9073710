/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// EventBridge selects how bus events leave the process.
type EventBridge string

const (
	BridgeNone  EventBridge = "none"
	BridgeNATS  EventBridge = "nats"
	BridgeRedis EventBridge = "redis"
)

// StorageBackend selects where photo attachments are kept.
type StorageBackend string

const (
	StorageFS StorageBackend = "fs"
	StorageS3 StorageBackend = "s3"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string
	MetricsBind   string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Event bridge for multi-instance deployments
	EventBridge   EventBridge
	NATSURL       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Attachment storage
	StorageBackend    StorageBackend
	StorageRoot       string
	S3Region          string
	S3Bucket          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3UsePathStyle    bool

	// Payroll
	OvertimeWeeklyHours float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnv("SITEWISE_ENV", "development"),
		HTTPBind:      getEnv("SITEWISE_HTTP_BIND", "0.0.0.0"),
		HTTPPort:      getEnvInt("SITEWISE_HTTP_PORT", 8080),
		DBBackend:     DatabaseBackend(getEnv("SITEWISE_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:         getEnv("SITEWISE_DB_DSN", ""),
		JWTSigningKey: getEnv("SITEWISE_JWT_SIGNING_KEY", ""),
		MetricsBind:   getEnv("SITEWISE_METRICS_BIND", "127.0.0.1:9000"),

		TracingEnabled:    getEnvBool("SITEWISE_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("SITEWISE_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("SITEWISE_TRACING_SAMPLE_RATE", 1.0),

		EventBridge:   EventBridge(getEnv("SITEWISE_EVENT_BRIDGE", string(BridgeNone))),
		NATSURL:       getEnv("SITEWISE_NATS_URL", "nats://localhost:4222"),
		RedisAddr:     getEnv("SITEWISE_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("SITEWISE_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("SITEWISE_REDIS_DB", 0),

		StorageBackend:    StorageBackend(getEnv("SITEWISE_STORAGE_BACKEND", string(StorageFS))),
		StorageRoot:       getEnv("SITEWISE_STORAGE_ROOT", "./data/attachments"),
		S3Region:          getEnv("SITEWISE_S3_REGION", "us-east-1"),
		S3Bucket:          getEnv("SITEWISE_S3_BUCKET", ""),
		S3Endpoint:        getEnv("SITEWISE_S3_ENDPOINT", ""),
		S3AccessKeyID:     getEnv("SITEWISE_S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("SITEWISE_S3_SECRET_ACCESS_KEY", ""),
		S3UsePathStyle:    getEnvBool("SITEWISE_S3_USE_PATH_STYLE", false),

		OvertimeWeeklyHours: getEnvFloat("SITEWISE_OVERTIME_WEEKLY_HOURS", 40),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("SITEWISE_DB_DSN must be provided")
	}
	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("SITEWISE_JWT_SIGNING_KEY must be provided")
	}
	if cfg.EventBridge != BridgeNone && cfg.EventBridge != BridgeNATS && cfg.EventBridge != BridgeRedis {
		return nil, fmt.Errorf("unsupported event bridge %q", cfg.EventBridge)
	}
	if cfg.StorageBackend != StorageFS && cfg.StorageBackend != StorageS3 {
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
	if cfg.StorageBackend == StorageS3 && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("SITEWISE_S3_BUCKET is required when storage backend is s3")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
