package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRelay republishes every event on a Redis pub/sub channel so tools
// outside the browser can follow builds.
type RedisRelay struct {
	client  *redis.Client
	channel string
	out     *outbox
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewRedisRelay connects a relay to the Redis server at rawURL.
func NewRedisRelay(rawURL, channel string, logger *slog.Logger) (*RedisRelay, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &RedisRelay{
		client:  redis.NewClient(opts),
		channel: channel,
		out:     newOutbox(256),
		logger:  logger,
	}
	r.wg.Add(1)
	go r.run()
	return r, nil
}

func (r *RedisRelay) ID() string {
	return "redis:" + r.channel
}

// Send queues ev for publishing. A full queue drops ev and reports the relay
// as not writable, so a slow Redis never gets the relay detached.
func (r *RedisRelay) Send(ev Event) error {
	err := r.out.push(ev)
	if errors.Is(err, ErrQueueFull) {
		r.logger.Debug("redis relay queue full, event dropped", "type", ev.Type, "plugin", ev.PluginID)
		return ErrNotWritable
	}
	return err
}

// Close stops publishing and closes the Redis client.
func (r *RedisRelay) Close() error {
	r.out.close()
	r.wg.Wait()
	return r.client.Close()
}

func (r *RedisRelay) run() {
	defer r.wg.Done()
	for {
		select {
		case <-r.out.done:
			return
		case ev := <-r.out.ch:
			r.publish(ev)
		}
	}
}

func (r *RedisRelay) publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		r.logger.Warn("redis relay publish failed", "channel", r.channel, "error", err)
	}
}

// ConnectRedisRelay attaches a relay to ch when rawURL is set. An empty URL
// is not an error: it is logged and nothing is attached.
func ConnectRedisRelay(ch *Channel, rawURL, channel string, logger *slog.Logger) (*RedisRelay, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if rawURL == "" {
		logger.Warn("redis relay not configured; events stay local")
		return nil, nil
	}
	relay, err := NewRedisRelay(rawURL, channel, logger)
	if err != nil {
		return nil, err
	}
	if err := ch.Connect(relay); err != nil {
		relay.Close()
		return nil, err
	}
	logger.Info("relaying events to redis", "channel", channel)
	return relay, nil
}
