package notify

import (
	"log/slog"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRedisRelay(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		ch := NewChannel(nil)
		relay, err := ConnectRedisRelay(ch, "", "devserver", nil)
		assert.NoError(t, err)
		assert.Nil(t, relay)
		assert.Zero(t, ch.Count())
	})

	t.Run("bad url", func(t *testing.T) {
		ch := NewChannel(nil)
		_, err := ConnectRedisRelay(ch, "http://not-redis", "devserver", nil)
		assert.Error(t, err)
		assert.Zero(t, ch.Count())
	})

	t.Run("unreachable server stays attached", func(t *testing.T) {
		ch := NewChannel(nil)
		relay, err := ConnectRedisRelay(ch, "redis://127.0.0.1:1/0", "devserver", nil)
		require.NoError(t, err)
		require.NotNil(t, relay)
		assert.Equal(t, "redis:devserver", relay.ID())
		assert.Equal(t, 1, ch.Count())

		// Publish failures are logged, never surfaced to the channel.
		ch.Broadcast(Reload("alpha"))
		assert.Equal(t, 1, ch.Count())

		ch.CloseAll()
		assert.ErrorIs(t, relay.Send(Reload("alpha")), ErrNotWritable)
	})

	t.Run("refused when channel closed", func(t *testing.T) {
		ch := NewChannel(nil)
		ch.StopAccepting()
		_, err := ConnectRedisRelay(ch, "redis://127.0.0.1:1/0", "devserver", nil)
		assert.ErrorIs(t, err, ErrClosed)
	})
}

func TestRedisRelayFullQueueIsSkipped(t *testing.T) {
	// No publisher goroutine runs, so the queue stays full.
	relay := &RedisRelay{
		client:  redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}),
		channel: "devserver",
		out:     newOutbox(1),
		logger:  slog.Default(),
	}
	defer relay.Close()

	// The plugins-list sent on connect takes the only slot.
	ch := NewChannel(nil)
	require.NoError(t, ch.Connect(relay))
	assert.ErrorIs(t, relay.Send(Reload("beta")), ErrNotWritable)

	for range 5 {
		ch.Broadcast(BuildStart("alpha"))
	}
	assert.Equal(t, 1, ch.Count())
}
