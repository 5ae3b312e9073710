/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/sitewisehq/sitewise/internal/events"
)

// RedisBus bridges the local event bus over Redis pub/sub.
type RedisBus struct {
	client *redis.Client
	logger zerolog.Logger
	local  *events.Bus
	nodeID string

	mu          sync.Mutex
	channels    map[events.EventType]*redis.PubSub
	degraded    bool
	failures    int
	maxFailures int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Consecutive failures before the bridge drops to local-only delivery.
	MaxFailures int
}

// NewRedisBus creates a Redis-backed event bus. If Redis is unreachable at
// startup the bridge degrades to local-only delivery.
func NewRedisBus(cfg RedisConfig, nodeID string, logger zerolog.Logger) (*RedisBus, error) {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}

	rb := &RedisBus{
		logger:      logger,
		local:       events.NewBus(),
		nodeID:      nodeID,
		channels:    make(map[events.EventType]*redis.PubSub),
		maxFailures: cfg.MaxFailures,
		ctx:         ctx,
		cancel:      cancel,
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("Redis connection failed, using in-memory event bus")
		rb.degraded = true
		return rb, nil
	}

	rb.client = client
	logger.Info().Str("addr", cfg.Addr).Msg("Redis event bus initialized")
	return rb, nil
}

// Subscribe registers a subscriber for an event type, attaching a Redis
// pub/sub channel on first use.
func (rb *RedisBus) Subscribe(eventType events.EventType) events.Subscriber {
	sub := rb.local.Subscribe(eventType)

	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.degraded {
		return sub
	}

	if _, exists := rb.channels[eventType]; !exists {
		pubsub := rb.client.Subscribe(rb.ctx, string(eventType))
		rb.channels[eventType] = pubsub

		rb.wg.Add(1)
		go rb.receive(eventType, pubsub)
	}

	return sub
}

func (rb *RedisBus) receive(eventType events.EventType, pubsub *redis.PubSub) {
	defer rb.wg.Done()

	ch := pubsub.Channel()
	for {
		select {
		case <-rb.ctx.Done():
			return
		case raw, ok := <-ch:
			if !ok {
				rb.logger.Warn().Str("event_type", string(eventType)).Msg("Redis channel closed")
				rb.recordFailure()
				return
			}

			msg, err := unmarshalMessage([]byte(raw.Payload))
			if err != nil {
				rb.logger.Error().Err(err).Msg("bad Redis event payload")
				continue
			}
			if msg.NodeID == rb.nodeID {
				continue
			}

			rb.local.Publish(msg.EventType, msg.Payload)
		}
	}
}

// Publish delivers the event locally and to the Redis channel.
func (rb *RedisBus) Publish(eventType events.EventType, payload events.Payload) {
	rb.local.Publish(eventType, payload)

	rb.mu.Lock()
	degraded := rb.degraded
	rb.mu.Unlock()
	if degraded {
		return
	}

	data, err := marshalMessage(eventType, payload, rb.nodeID)
	if err != nil {
		rb.logger.Error().Err(err).Msg("marshal Redis event")
		return
	}

	ctx, cancel := context.WithTimeout(rb.ctx, 2*time.Second)
	defer cancel()

	if err := rb.client.Publish(ctx, string(eventType), data).Err(); err != nil {
		rb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("publish to Redis failed")
		rb.recordFailure()
		return
	}

	rb.mu.Lock()
	rb.failures = 0
	rb.mu.Unlock()
}

// Unsubscribe removes the subscriber.
func (rb *RedisBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	rb.local.Unsubscribe(eventType, sub)
}

// Close shuts down the Redis connection and all receivers.
func (rb *RedisBus) Close() error {
	rb.cancel()
	rb.wg.Wait()

	rb.mu.Lock()
	for _, pubsub := range rb.channels {
		pubsub.Close()
	}
	rb.channels = make(map[events.EventType]*redis.PubSub)
	rb.mu.Unlock()

	if rb.client == nil {
		return nil
	}
	return rb.client.Close()
}

// recordFailure switches to local-only delivery after repeated broker errors.
func (rb *RedisBus) recordFailure() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.failures++
	if rb.failures >= rb.maxFailures && !rb.degraded {
		rb.logger.Warn().Int("failures", rb.failures).Msg("Redis failure threshold reached, switching to in-memory delivery")
		rb.degraded = true
	}
}
