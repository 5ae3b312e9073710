/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for frequently
// accessed directory records. Calendar projections and geofence lookups
// resolve jobs and employees on every request; the cache keeps those
// reads off the database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	DefaultJobTTL      = 10 * time.Minute
	DefaultEmployeeTTL = 10 * time.Minute
)

// Key prefixes for Redis cache.
const (
	keyJob      = "sitewise:cache:job:"      // + job_id
	keyEmployee = "sitewise:cache:employee:" // + employee_id
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JobTTL      time.Duration
	EmployeeTTL time.Duration

	// If true, disable caching on Redis errors instead of retrying.
	DisableOnError bool
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		JobTTL:         DefaultJobTTL,
		EmployeeTTL:    DefaultEmployeeTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback. A cache
// that cannot reach Redis behaves like an always-empty cache.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool
}

// New creates a new cache instance.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// get retrieves a value from cache and unmarshals it.
func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}

	return true, nil
}

// set stores a value in cache with TTL.
func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}

	return nil
}

// delete removes a key from cache.
func (c *Cache) delete(ctx context.Context, key string) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}

	return nil
}

// CachedJob is the subset of a job record needed by schedule projections
// and geofence checks.
type CachedJob struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Status       string  `json:"status"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	FenceRadiusM float64 `json:"fence_radius_m"`
}

// GetJob retrieves a cached job record.
func (c *Cache) GetJob(ctx context.Context, jobID string) (*CachedJob, bool) {
	var job CachedJob
	found, err := c.get(ctx, keyJob+jobID, &job)
	if err != nil || !found {
		return nil, false
	}
	return &job, true
}

// SetJob caches a job record.
func (c *Cache) SetJob(ctx context.Context, job *CachedJob) error {
	return c.set(ctx, keyJob+job.ID, job, c.config.JobTTL)
}

// InvalidateJob removes a job from the cache.
func (c *Cache) InvalidateJob(ctx context.Context, jobID string) error {
	return c.delete(ctx, keyJob+jobID)
}

// CachedEmployee is the subset of an employee record needed by schedule
// projections and payroll display.
type CachedEmployee struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Trade      string  `json:"trade"`
	HourlyRate float64 `json:"hourly_rate"`
	Active     bool    `json:"active"`
}

// GetEmployee retrieves a cached employee record.
func (c *Cache) GetEmployee(ctx context.Context, employeeID string) (*CachedEmployee, bool) {
	var emp CachedEmployee
	found, err := c.get(ctx, keyEmployee+employeeID, &emp)
	if err != nil || !found {
		return nil, false
	}
	return &emp, true
}

// SetEmployee caches an employee record.
func (c *Cache) SetEmployee(ctx context.Context, emp *CachedEmployee) error {
	return c.set(ctx, keyEmployee+emp.ID, emp, c.config.EmployeeTTL)
}

// InvalidateEmployee removes an employee from the cache.
func (c *Cache) InvalidateEmployee(ctx context.Context, employeeID string) error {
	return c.delete(ctx, keyEmployee+employeeID)
}
