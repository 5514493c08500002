package server_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/config"
	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/notify"
	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/plugin"
	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/plugin/bundler/bundlertest"
	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/plugin/plugintest"
	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/server"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		PluginsDir:        t.TempDir(),
		Addr:              "127.0.0.1:0",
		Debounce:          50 * time.Millisecond,
		MaxParallelBuilds: 2,
		ManifestFile:      "manifest.json",
		EntryPoints:       plugin.DefaultEntryPointCandidates,
		ShutdownTimeout:   5 * time.Second,
		BuildLogSize:      50,
		CORS:              config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

func TestServerLifecycle(t *testing.T) {
	cfg := testConfig(t)
	plugintest.Plugin(t, cfg.PluginsDir, "alpha", plugintest.Manifest("alpha"))
	plugintest.Plugin(t, cfg.PluginsDir, "beta", plugintest.Manifest("beta"))

	fake := bundlertest.New()
	srv, err := server.New(cfg, server.WithBundler(fake))
	require.NoError(t, err)
	assert.Empty(t, srv.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, srv.Start(ctx))
	base := "http://" + srv.Addr()

	// Plugins are built before the listener is bound.
	assert.Equal(t, 2, fake.CallCount())
	assert.True(t, srv.Loader().Watching())

	resp, err := http.Get(base + "/api/plugins")
	require.NoError(t, err)
	var body struct {
		Plugins []plugin.View `json:"plugins"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	require.Len(t, body.Plugins, 2)
	assert.Equal(t, plugin.StateSucceeded, body.Plugins[0].Status)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	var ev notify.Event
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, notify.EventPluginsList, ev.Type)
	assert.Len(t, ev.Plugins, 2)

	// An edit goes watcher -> coalescer -> build -> notification.
	plugintest.WriteFile(t, cfg.PluginsDir, "alpha/src/index.ts", "export const edited = true;\n")
	var seen []notify.EventType
	for len(seen) < 3 {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		require.NoError(t, conn.ReadJSON(&ev))
		assert.Equal(t, "alpha", ev.PluginID)
		seen = append(seen, ev.Type)
	}
	assert.Equal(t, []notify.EventType{notify.EventBuildStart, notify.EventBuildComplete, notify.EventReload}, seen)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	require.NoError(t, srv.Shutdown(shutdownCtx))

	assert.False(t, srv.Loader().Watching())
	assert.False(t, srv.Channel().Accepting())
	assert.Zero(t, srv.Channel().Count())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error %v", err)

	_, err = http.Get(base + "/api/health")
	assert.Error(t, err, "listener should be closed")

	assert.NoError(t, srv.Shutdown(shutdownCtx), "Shutdown is idempotent")
}

func TestServerBindFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := testConfig(t)
	cfg.Addr = busy.Addr().String()
	plugintest.Plugin(t, cfg.PluginsDir, "alpha", plugintest.Manifest("alpha"))

	srv, err := server.New(cfg, server.WithBundler(bundlertest.New()))
	require.NoError(t, err)

	err = srv.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen on")
	assert.False(t, srv.Loader().Watching(), "background work is stopped when binding fails")
}

func TestServerStartsWithFailingPlugin(t *testing.T) {
	cfg := testConfig(t)
	plugintest.WriteFile(t, cfg.PluginsDir, "broken/manifest.json", plugintest.Manifest("broken"))

	srv, err := server.New(cfg, server.WithBundler(bundlertest.New()))
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))
	defer srv.Shutdown(context.Background())

	rec, ok := srv.Registry().Get("broken")
	require.True(t, ok)
	assert.Equal(t, plugin.StateFailed, rec.Status.State)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	srv, err := server.New(cfg, server.WithBundler(bundlertest.New()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, func() bool { return srv.Loader().Watching() }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewRejectsBadBundlerOptions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Bundler.Target = "es1999"
	_, err := server.New(cfg)
	assert.Error(t, err)
}
