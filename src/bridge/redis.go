package bridge

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/agentsolvr/relay/src/types"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// bridgeFrame wraps an envelope with its topic and the originating
// instance ID so that a node can skip its own published envelopes.
type bridgeFrame struct {
	InstanceID string         `json:"instance_id"`
	Topic      string         `json:"topic"`
	Envelope   types.Envelope `json:"envelope"`
}

// RedisBridge relays envelopes between server instances via Redis pub/sub.
type RedisBridge struct {
	client     *redis.Client
	prefix     string
	instanceID string
	hub        BroadcastTarget
	logger     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	active bool
}

// NewRedisBridge creates a bridge that uses Redis pub/sub for
// cross-instance envelope fan-out.
func NewRedisBridge(cfg *RedisConfig, hub BroadcastTarget, logger zerolog.Logger) *RedisBridge {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithCancel(context.Background())

	return &RedisBridge{
		client:     client,
		prefix:     cfg.Prefix,
		instanceID: uuid.New().String(),
		hub:        hub,
		logger:     logger.With().Str("component", "redis-bridge").Logger(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start subscribes to the Redis broadcast channel and begins relaying
// envelopes.
func (b *RedisBridge) Start() error {
	if err := b.client.Ping(b.ctx).Err(); err != nil {
		return err
	}

	channel := b.prefix + "broadcast"
	sub := b.client.Subscribe(b.ctx, channel)

	// Wait for subscription confirmation.
	if _, err := sub.Receive(b.ctx); err != nil {
		return err
	}

	b.mu.Lock()
	b.active = true
	b.mu.Unlock()

	b.wg.Add(1)
	go b.listen(sub)

	b.logger.Info().
		Str("instance_id", b.instanceID).
		Str("channel", channel).
		Msg("redis bridge started")
	return nil
}

// Publish sends an envelope to all other instances via Redis.
func (b *RedisBridge) Publish(topic string, env types.Envelope) error {
	frame := bridgeFrame{
		InstanceID: b.instanceID,
		Topic:      topic,
		Envelope:   env,
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	channel := b.prefix + "broadcast"
	return b.client.Publish(b.ctx, channel, data).Err()
}

// Stop unsubscribes and closes the Redis connection.
func (b *RedisBridge) Stop() error {
	b.mu.Lock()
	b.active = false
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
	return b.client.Close()
}

// Available reports whether the bridge is connected.
func (b *RedisBridge) Available() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.active
}

// listen reads frames from the Redis subscription and forwards them to
// the local hub.
func (b *RedisBridge) listen(sub *redis.PubSub) {
	defer b.wg.Done()
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handleRedisMessage(msg)
		case <-b.ctx.Done():
			return
		}
	}
}

// handleRedisMessage decodes a frame and forwards non-self envelopes to
// the hub.
func (b *RedisBridge) handleRedisMessage(msg *redis.Message) {
	var frame bridgeFrame
	if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
		b.logger.Error().Err(err).Msg("failed to decode redis message")
		return
	}

	// Skip envelopes that originated from this instance.
	if frame.InstanceID == b.instanceID {
		return
	}

	b.logger.Debug().
		Str("from_instance", frame.InstanceID).
		Str("topic", frame.Topic).
		Msg("relaying envelope from redis")

	b.hub.BroadcastToLocal(frame.Topic, frame.Envelope)
}
