// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/taskbus/codec"
	"github.com/tochemey/taskbus/log"
	"github.com/tochemey/taskbus/routing"
)

func TestConfig(t *testing.T) {
	t.Run("With defaults", func(t *testing.T) {
		cfg := New("ui")
		require.NoError(t, cfg.Validate())
		assert.Equal(t, time.Second, cfg.ReceiveTimeout)
		assert.Equal(t, 100*time.Millisecond, cfg.PollTimeout)
		assert.Equal(t, 50*time.Millisecond, cfg.ForwarderInterval)
		assert.Equal(t, routing.DefaultSnapshotTTL, cfg.Routes.SnapshotTTL)
		assert.False(t, cfg.Remoting.Enabled)

		store, err := cfg.RouteStore()
		require.NoError(t, err)
		assert.IsType(t, &routing.MemoryStore{}, store)
		require.NoError(t, store.Close())

		frameCodec, err := cfg.Codec()
		require.NoError(t, err)
		assert.Equal(t, codec.NoCompression, frameCodec.Compression())
	})
	t.Run("With options", func(t *testing.T) {
		dir := t.TempDir()
		cfg := New("robot",
			WithReceiveTimeout(200*time.Millisecond),
			WithPollTimeout(10*time.Millisecond),
			WithForwarderInterval(5*time.Millisecond),
			WithRemoting("127.0.0.1", "zstd"),
			WithSnapshotTTL(time.Minute),
			WithRouteStore(filepath.Join(dir, "routes.db")),
			WithLogLevel("debug"),
			WithLogFile(filepath.Join(dir, "taskbus.log")),
		)
		require.NoError(t, cfg.Validate())
		assert.Equal(t, 200*time.Millisecond, cfg.ReceiveTimeout)
		assert.True(t, cfg.Remoting.Enabled)
		assert.Equal(t, "127.0.0.1", cfg.Remoting.BindAddress)

		frameCodec, err := cfg.Codec()
		require.NoError(t, err)
		assert.Equal(t, codec.ZstdCompression, frameCodec.Compression())

		store, err := cfg.RouteStore()
		require.NoError(t, err)
		assert.IsType(t, &routing.BoltStore{}, store)
		require.NoError(t, store.Close())

		logger := cfg.Logger()
		assert.Equal(t, log.DebugLevel, logger.LogLevel())
		logger.Info("hello")
		require.NoError(t, logger.Flush())
		assert.FileExists(t, filepath.Join(dir, "taskbus.log"))
	})
	t.Run("With invalid settings", func(t *testing.T) {
		cfg := New("",
			WithReceiveTimeout(0),
			WithRemoting("", "lz4"),
			WithLogLevel("loud"),
		)
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "the [name] is required")
		assert.Contains(t, err.Error(), "receive_timeout")
		assert.Contains(t, err.Error(), "remoting.bind_address")
		assert.Contains(t, err.Error(), "remoting.compression")
		assert.Contains(t, err.Error(), "logging.level")
	})
	t.Run("With unresolvable bind address", func(t *testing.T) {
		err := New("ui", WithRemoting("no-such-iface0", "none")).Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "the [remoting.bind_address] is invalid")

		require.NoError(t, New("ui", WithRemoting("::1", "none")).Validate())
	})
	t.Run("With read-only route store", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "routes.db")
		writer, err := New("ui", WithRouteStore(path)).RouteStore()
		require.NoError(t, err)
		reader, err := New("worker", WithRouteStore(path), WithReadOnlyRoutes()).RouteStore()
		require.NoError(t, err)

		ctx := context.Background()
		require.NoError(t, writer.Append(ctx, routing.NewLocal("ui", "ping")))
		local, _, err := reader.Load(ctx)
		require.NoError(t, err)
		require.Len(t, local, 1)
		assert.Equal(t, "ui", local[0].Name)
		assert.Error(t, reader.Append(ctx, routing.NewLocal("worker", "pong")))

		require.NoError(t, reader.Close())
		require.NoError(t, writer.Close())
	})
}

func TestLoad(t *testing.T) {
	t.Run("With YAML file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "taskbus.yaml")
		content := `
name: worker
poll_timeout: 250ms
remoting:
  enabled: true
  bind_address: 127.0.0.1
  compression: brotli
routes:
  snapshot_ttl: 2s
  read_only: true
logging:
  level: warn
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "worker", cfg.Name)
		assert.Equal(t, 250*time.Millisecond, cfg.PollTimeout)
		assert.Equal(t, time.Second, cfg.ReceiveTimeout)
		assert.True(t, cfg.Remoting.Enabled)
		assert.Equal(t, "brotli", cfg.Remoting.Compression)
		assert.Equal(t, 2*time.Second, cfg.Routes.SnapshotTTL)
		assert.True(t, cfg.Routes.ReadOnly)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})
	t.Run("With environment overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "taskbus.yaml")
		require.NoError(t, os.WriteFile(path, []byte("name: worker\n"), 0o600))
		t.Setenv("TASKBUS_NAME", "ui")
		t.Setenv("TASKBUS_REMOTING_INTERVAL", "20ms")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "ui", cfg.Name)
		assert.Equal(t, 20*time.Millisecond, cfg.Remoting.Interval)
	})
	t.Run("With config path from the environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("name: from-env\n"), 0o600))
		t.Setenv("TASKBUS_CONFIG", path)

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.Name)
	})
	t.Run("With invalid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "taskbus.yaml")
		require.NoError(t, os.WriteFile(path, []byte("name: worker\npoll_timeout: -1s\n"), 0o600))
		_, err := Load(path)
		require.Error(t, err)

		_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}
