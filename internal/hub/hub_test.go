package hub

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastReachesClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New(nil)
	go h.Run(ctx)

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 16)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	require.Equal(t, ": connected", next(t, lines))
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	h.Broadcast(map[string]string{"type": "run_completed"})

	var data string
	for data == "" {
		line := next(t, lines)
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	assert.JSONEq(t, `{"type":"run_completed"}`, data)
}

func TestRunStopClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New(nil)
	go h.Run(ctx)

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	require.True(t, sc.Scan())

	cancel()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func next(t *testing.T, lines <-chan string) string {
	t.Helper()
	select {
	case line, ok := <-lines:
		require.True(t, ok, "stream closed")
		return line
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return ""
	}
}
