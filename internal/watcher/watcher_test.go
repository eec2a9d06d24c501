package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibtopo/internal/config"
)

const discoveryName = "ib-subnet-fe80:0000:0000:0000.txt"

func TestNotifyFiltersEvents(t *testing.T) {
	w := New(t.TempDir(), nil, func(context.Context) {}).WithClock(clockwork.NewFakeClock())

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"discovery write", fsnotify.Event{Name: "/in/" + discoveryName, Op: fsnotify.Write}, true},
		{"route dump create", fsnotify.Event{Name: "/in/ibroutes-fe80:0000:0000:0000/ibroute-fe80:0000:0000:0000-10.txt", Op: fsnotify.Create}, true},
		{"route dir removed", fsnotify.Event{Name: "/in/ibroutes-fe80:0000:0000:0000", Op: fsnotify.Remove}, true},
		{"unrelated file", fsnotify.Event{Name: "/in/notes.txt", Op: fsnotify.Write}, false},
		{"chmod only", fsnotify.Event{Name: "/in/" + discoveryName, Op: fsnotify.Chmod}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Notify(tt.event))
		})
	}
}

func TestDebounceDefault(t *testing.T) {
	w := New(t.TempDir(), nil, func(context.Context) {})
	assert.Equal(t, config.DefaultDebounce, w.debounce)

	w.WithDebounce(0)
	assert.Equal(t, config.DefaultDebounce, w.debounce, "zero keeps the default")

	w.WithDebounce(-time.Second)
	assert.Equal(t, config.DefaultDebounce, w.debounce)
}

func TestDebounceCoalescesEvents(t *testing.T) {
	clock := clockwork.NewFakeClock()
	w := New(t.TempDir(), nil, func(context.Context) {}).
		WithClock(clock).
		WithDebounce(2 * time.Second)

	ev := fsnotify.Event{Name: discoveryName, Op: fsnotify.Write}
	for i := 0; i < 5; i++ {
		require.True(t, w.Notify(ev))
		clock.Advance(time.Second)
	}

	select {
	case <-w.fire:
		t.Fatal("fired before the input settled")
	default:
	}

	clock.Advance(time.Second)
	select {
	case <-w.fire:
	case <-time.After(time.Second):
		t.Fatal("expected a run after the debounce window")
	}

	assert.Never(t, func() bool { return len(w.fire) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestWatchRunsOnChange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "ibroutes-fe80:0000:0000:0000"), 0o755))

	var runs atomic.Int32
	w := New(dir, nil, func(context.Context) { runs.Add(1) }).WithDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	route := filepath.Join(dir, "ibroutes-fe80:0000:0000:0000", "ibroute-fe80:0000:0000:0000-10.txt")
	require.NoError(t, os.WriteFile(route, []byte("Unicast lids\n"), 0o644))

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
