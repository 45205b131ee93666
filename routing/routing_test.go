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

package routing

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/taskbus/errors"
	"github.com/tochemey/taskbus/log"
	"github.com/tochemey/taskbus/message"
)

type recordingHandle struct {
	envelopes []*message.Envelope
}

func (h *recordingHandle) Push(envelope *message.Envelope) error {
	h.envelopes = append(h.envelopes, envelope)
	return nil
}

func TestDescriptor(t *testing.T) {
	t.Run("With valid descriptors", func(t *testing.T) {
		require.NoError(t, NewLocal("ui", "ping", "pong").Validate())
		require.NoError(t, NewRemote("dev1", "10.0.0.2", 5000, 5001, "sensor").Validate())
	})
	t.Run("With invalid descriptors", func(t *testing.T) {
		err := NewLocal("", "ping").Validate()
		assert.ErrorIs(t, err, errors.ErrInvalidDescriptor)

		err = NewLocal("ui", "ping", "").Validate()
		assert.ErrorIs(t, err, errors.ErrInvalidDescriptor)

		err = NewRemote("dev1", "", 0, 5001, "sensor").Validate()
		require.ErrorIs(t, err, errors.ErrInvalidDescriptor)
		assert.Contains(t, err.Error(), "address")
		assert.Contains(t, err.Error(), "inboundPort")

		err = Descriptor{Scope: Scope(7), Name: "x"}.Validate()
		assert.ErrorIs(t, err, errors.ErrInvalidDescriptor)
	})
	t.Run("With clone", func(t *testing.T) {
		source := NewLocal("ui", "ping")
		clone := source.Clone()
		clone.Tasks[0] = "changed"
		assert.Equal(t, "ping", source.Tasks[0])
	})
	t.Run("With string", func(t *testing.T) {
		assert.Equal(t, "LOCAL ui=ping,pong", NewLocal("ui", "ping", "pong").String())
		assert.Equal(t, "REMOTE dev1=sensor:10.0.0.2,5000,5001", NewRemote("dev1", "10.0.0.2", 5000, 5001, "sensor").String())
		assert.Equal(t, "Scope(3)", Scope(3).String())
	})
}

func TestRouter(t *testing.T) {
	ctx := context.Background()

	t.Run("With local preferred over remote", func(t *testing.T) {
		router := NewRouter(WithLogger(log.DiscardLogger))
		require.NoError(t, router.AddRoute(ctx, NewRemote("dev1", "10.0.0.2", 5000, 5001, "shared", "sensor")))
		require.NoError(t, router.AddRoute(ctx, NewLocal("worker", "shared")))

		descriptor, _, ok := router.RouteFor(ctx, "shared")
		require.True(t, ok)
		assert.Equal(t, Local, descriptor.Scope)
		assert.Equal(t, "worker", descriptor.Name)
		assert.False(t, router.IsRemote(ctx, "shared"))

		descriptor, _, ok = router.RouteFor(ctx, "sensor")
		require.True(t, ok)
		assert.Equal(t, Remote, descriptor.Scope)
		assert.True(t, router.IsRemote(ctx, "sensor"))
	})
	t.Run("With first match winning", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		router := NewRouter(WithLogger(log.NewZap(log.WarningLevel, buffer)))
		require.NoError(t, router.AddRoute(ctx, NewLocal("first", "dup")))
		require.NoError(t, router.AddRoute(ctx, NewLocal("second", "dup")))
		assert.Contains(t, buffer.String(), "the earlier route wins")

		descriptor, _, ok := router.RouteFor(ctx, "dup")
		require.True(t, ok)
		assert.Equal(t, "first", descriptor.Name)
	})
	t.Run("With unknown task", func(t *testing.T) {
		router := NewRouter(WithLogger(log.DiscardLogger))
		_, handle, ok := router.RouteFor(ctx, "GHOST")
		assert.False(t, ok)
		assert.Nil(t, handle)
		assert.False(t, router.IsRemote(ctx, "GHOST"))
		_, _, ok = router.AddressFor(ctx, "GHOST")
		assert.False(t, ok)
	})
	t.Run("With invalid descriptor rejected", func(t *testing.T) {
		router := NewRouter(WithLogger(log.DiscardLogger))
		err := router.AddRoute(ctx, NewRemote("dev1", "10.0.0.2", 0, 0, "sensor"))
		assert.ErrorIs(t, err, errors.ErrInvalidDescriptor)
		assert.Empty(t, router.Routes(ctx, Remote))
	})
	t.Run("With address of remote task", func(t *testing.T) {
		router := NewRouter(WithLogger(log.DiscardLogger))
		require.NoError(t, router.AddRoute(ctx, NewRemote("dev1", "10.0.0.2", 5000, 5001, "sensor")))
		require.NoError(t, router.AddRoute(ctx, NewLocal("worker", "local")))

		address, port, ok := router.AddressFor(ctx, "sensor")
		require.True(t, ok)
		assert.Equal(t, "10.0.0.2", address)
		assert.Equal(t, 5001, port)

		_, _, ok = router.AddressFor(ctx, "local")
		assert.False(t, ok)
	})
	t.Run("With bound handles", func(t *testing.T) {
		router := NewRouter(WithLogger(log.DiscardLogger))
		require.NoError(t, router.AddRoute(ctx, NewLocal("worker", "pong")))

		_, handle, ok := router.RouteFor(ctx, "pong")
		require.True(t, ok)
		assert.Nil(t, handle)

		recorder := new(recordingHandle)
		router.Bind("worker", recorder)
		_, handle, ok = router.RouteFor(ctx, "pong")
		require.True(t, ok)
		require.NotNil(t, handle)
		require.NoError(t, handle.Push(message.New("pong", message.OneWay("x"))))
		assert.Len(t, recorder.envelopes, 1)

		router.Unbind("worker")
		_, handle, _ = router.RouteFor(ctx, "pong")
		assert.Nil(t, handle)
	})
	t.Run("With snapshot refreshed after TTL", func(t *testing.T) {
		store := NewMemoryStore()
		router := NewRouter(WithStore(store), WithSnapshotTTL(50*time.Millisecond), WithLogger(log.DiscardLogger))
		require.NoError(t, router.AddRoute(ctx, NewLocal("worker", "pong")))
		require.True(t, func() bool { _, _, ok := router.RouteFor(ctx, "pong"); return ok }())

		// another process appends straight to the shared store
		require.NoError(t, store.Append(ctx, NewLocal("late", "late-task")))
		_, _, ok := router.RouteFor(ctx, "late-task")
		assert.False(t, ok)

		time.Sleep(60 * time.Millisecond)
		_, _, ok = router.RouteFor(ctx, "late-task")
		assert.True(t, ok)
	})
	t.Run("With explicit invalidation", func(t *testing.T) {
		store := NewMemoryStore()
		router := NewRouter(WithStore(store), WithSnapshotTTL(time.Hour), WithLogger(log.DiscardLogger))
		assert.Empty(t, router.Routes(ctx, Local))

		require.NoError(t, store.Append(ctx, NewLocal("late", "late-task")))
		assert.Empty(t, router.Routes(ctx, Local))

		router.Invalidate()
		assert.Len(t, router.Routes(ctx, Local), 1)
	})
	t.Run("With returned descriptors detached from the snapshot", func(t *testing.T) {
		router := NewRouter(WithLogger(log.DiscardLogger))
		require.NoError(t, router.AddRoute(ctx, NewLocal("worker", "pong")))
		descriptor, _, _ := router.RouteFor(ctx, "pong")
		descriptor.Tasks[0] = "mutated"
		routes := router.Routes(ctx, Local)
		routes[0].Tasks[0] = "mutated"
		_, _, ok := router.RouteFor(ctx, "pong")
		assert.True(t, ok)
	})
	t.Run("With closed store", func(t *testing.T) {
		router := NewRouter(WithLogger(log.DiscardLogger))
		require.NoError(t, router.AddRoute(ctx, NewLocal("worker", "pong")))
		_, _, ok := router.RouteFor(ctx, "pong")
		require.True(t, ok)

		require.NoError(t, router.Close())
		router.Invalidate()
		assert.ErrorIs(t, router.AddRoute(ctx, NewLocal("x", "y")), errors.ErrStoreClosed)
		_, _, ok = router.RouteFor(ctx, "pong")
		assert.False(t, ok)
	})
}

func TestBoltStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "routes.db")

	t.Run("With tables shared through the file", func(t *testing.T) {
		store, err := NewBoltStore(path)
		require.NoError(t, err)
		assert.Equal(t, path, store.Path())

		router := NewRouter(WithStore(store), WithLogger(log.DiscardLogger))
		require.NoError(t, router.AddRoute(ctx, NewLocal("ui", "ping")))
		require.NoError(t, router.AddRoute(ctx, NewLocal("worker", "pong", "echo")))
		require.NoError(t, router.AddRoute(ctx, NewRemote("dev1", "10.0.0.2", 5000, 5001, "sensor")))
		require.NoError(t, router.Close())
		require.NoError(t, store.Close())

		reader, err := NewBoltStore(path, WithReadOnly(), WithOpenTimeout(time.Second))
		require.NoError(t, err)
		t.Cleanup(func() { _ = reader.Close() })

		local, remote, err := reader.Load(ctx)
		require.NoError(t, err)
		require.Len(t, local, 2)
		assert.Equal(t, "ui", local[0].Name)
		assert.Equal(t, []string{"pong", "echo"}, local[1].Tasks)
		require.Len(t, remote, 1)
		assert.Equal(t, NewRemote("dev1", "10.0.0.2", 5000, 5001, "sensor"), remote[0])

		assert.Error(t, reader.Append(ctx, NewLocal("x", "y")))
	})
	t.Run("With writer and reader open at once", func(t *testing.T) {
		shared := filepath.Join(t.TempDir(), "shared.db")

		reader, err := NewBoltStore(shared, WithReadOnly())
		require.NoError(t, err)
		local, remote, err := reader.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, local)
		assert.Empty(t, remote)

		writer, err := NewBoltStore(shared)
		require.NoError(t, err)
		other, err := NewBoltStore(shared)
		require.NoError(t, err)

		readerRouter := NewRouter(WithStore(reader), WithSnapshotTTL(time.Hour), WithLogger(log.DiscardLogger))
		writerRouter := NewRouter(WithStore(writer), WithLogger(log.DiscardLogger))
		otherRouter := NewRouter(WithStore(other), WithLogger(log.DiscardLogger))
		t.Cleanup(func() {
			_ = readerRouter.Close()
			_ = writerRouter.Close()
			_ = otherRouter.Close()
		})

		require.NoError(t, writerRouter.AddRoute(ctx, NewLocal("ui", "ping")))
		_, _, ok := readerRouter.RouteFor(ctx, "ping")
		require.True(t, ok)

		require.NoError(t, writerRouter.AddRoute(ctx, NewLocal("worker", "pong")))
		require.NoError(t, otherRouter.AddRoute(ctx, NewRemote("dev1", "10.0.0.2", 5000, 5001, "sensor")))

		_, _, ok = readerRouter.RouteFor(ctx, "pong")
		assert.False(t, ok)

		readerRouter.Invalidate()
		descriptor, _, ok := readerRouter.RouteFor(ctx, "pong")
		require.True(t, ok)
		assert.Equal(t, "worker", descriptor.Name)
		assert.True(t, readerRouter.IsRemote(ctx, "sensor"))
		assert.Len(t, otherRouter.Routes(ctx, Local), 2)
	})
	t.Run("With closed store", func(t *testing.T) {
		store, err := NewBoltStore(filepath.Join(t.TempDir(), "closed.db"))
		require.NoError(t, err)
		require.NoError(t, store.Close())
		require.NoError(t, store.Close())
		_, _, err = store.Load(ctx)
		assert.ErrorIs(t, err, errors.ErrStoreClosed)
		assert.ErrorIs(t, store.Append(ctx, NewLocal("x", "y")), errors.ErrStoreClosed)
	})
	t.Run("With canceled context", func(t *testing.T) {
		store := NewMemoryStore()
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, store.Append(canceled, NewLocal("x", "y")), context.Canceled)
	})
}
