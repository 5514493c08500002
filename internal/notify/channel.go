package notify

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/plugin"
)

var (
	// ErrNotWritable means a subscriber cannot take events right now. The
	// channel skips it; its transport prunes it.
	ErrNotWritable = errors.New("subscriber not writable")
	// ErrQueueFull means a subscriber fell too far behind and is dropped.
	ErrQueueFull = errors.New("subscriber queue full")
	// ErrClosed is returned by Connect once the channel stopped accepting.
	ErrClosed = errors.New("notification channel closed")
)

// Subscriber is one connected client. Send must not block.
type Subscriber interface {
	ID() string
	Send(Event) error
	Close() error
}

// SnapshotFunc returns the current plugin views for newly connected clients.
type SnapshotFunc func() []plugin.View

// RegistrySnapshot adapts a registry into a SnapshotFunc.
func RegistrySnapshot(reg *plugin.Registry) SnapshotFunc {
	return func() []plugin.View {
		return plugin.Views(reg.List())
	}
}

// Channel broadcasts events to every connected subscriber. Broadcasts are
// serialized, so every subscriber sees events in the same order.
type Channel struct {
	mu       sync.Mutex
	subs     map[string]Subscriber
	closed   bool
	snapshot SnapshotFunc
	logger   *slog.Logger
	metrics  *channelMetrics
}

// ChannelOption configures a Channel.
type ChannelOption func(*Channel)

// WithLogger sets the channel logger.
func WithLogger(l *slog.Logger) ChannelOption {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewChannel creates a channel that greets subscribers with snapshot().
func NewChannel(snapshot SnapshotFunc, opts ...ChannelOption) *Channel {
	c := &Channel{
		subs:     make(map[string]Subscriber),
		snapshot: snapshot,
		logger:   slog.Default(),
		metrics:  globalChannelMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect registers sub and immediately sends it a plugins-list snapshot.
func (c *Channel) Connect(sub Subscriber) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	var views []plugin.View
	if c.snapshot != nil {
		views = c.snapshot()
	}
	if err := sub.Send(PluginsList(views)); err != nil {
		return err
	}

	c.subs[sub.ID()] = sub
	c.metrics.subscribers.Set(float64(len(c.subs)))
	c.logger.Debug("subscriber connected", "subscriber", sub.ID(), "plugins", len(views))
	return nil
}

// Disconnect removes and closes a subscriber. Unknown ids are ignored.
func (c *Channel) Disconnect(id string) {
	c.mu.Lock()
	sub, ok := c.subs[id]
	if ok {
		delete(c.subs, id)
		c.metrics.subscribers.Set(float64(len(c.subs)))
	}
	c.mu.Unlock()

	if ok {
		sub.Close()
		c.logger.Debug("subscriber disconnected", "subscriber", id)
	}
}

// Broadcast delivers ev to every subscriber. Subscribers that are not
// writable are skipped; subscribers whose send fails otherwise are dropped.
// A failure on one subscriber never affects the others.
func (c *Channel) Broadcast(ev Event) {
	c.mu.Lock()
	var dropped []Subscriber
	for id, sub := range c.subs {
		err := sub.Send(ev)
		switch {
		case err == nil:
		case errors.Is(err, ErrNotWritable):
			c.metrics.skipped.Inc()
		default:
			delete(c.subs, id)
			dropped = append(dropped, sub)
		}
	}
	c.metrics.events.WithLabelValues(string(ev.Type)).Inc()
	c.metrics.subscribers.Set(float64(len(c.subs)))
	c.mu.Unlock()

	for _, sub := range dropped {
		c.metrics.dropped.Inc()
		c.logger.Debug("dropping subscriber", "subscriber", sub.ID())
		sub.Close()
	}
}

// BroadcastSnapshot sends a plugins-list with the current snapshot to everyone.
func (c *Channel) BroadcastSnapshot() {
	var views []plugin.View
	if c.snapshot != nil {
		views = c.snapshot()
	}
	c.Broadcast(PluginsList(views))
}

// StopAccepting makes later Connect calls fail with ErrClosed.
func (c *Channel) StopAccepting() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// CloseAll disconnects every subscriber.
func (c *Channel) CloseAll() {
	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[string]Subscriber)
	c.metrics.subscribers.Set(0)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

// Accepting reports whether new subscribers are accepted.
func (c *Channel) Accepting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Count returns the number of connected subscribers.
func (c *Channel) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}
