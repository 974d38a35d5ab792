package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBotAPI struct {
	mu       sync.Mutex
	sent     []map[string]string
	failures int
	updates  string
}

func (f *fakeBotAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/botTOKEN/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failures > 0 {
			f.failures--
			http.Error(w, `{"ok":false}`, http.StatusBadGateway)
			return
		}
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		f.sent = append(f.sent, payload)
		w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/botTOKEN/getUpdates", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		body := f.updates
		f.updates = `{"ok":true,"result":[]}`
		f.mu.Unlock()
		w.Write([]byte(body))
	})
	return mux
}

func newTestNotifier(url string) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "42", "")
	n.BaseURL = url
	return n
}

func TestTelegram_PublishSendsHTML(t *testing.T) {
	api := &fakeBotAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	err := newTestNotifier(srv.URL).Publish(context.Background(), sampleSnapshot())
	require.NoError(t, err)

	require.Len(t, api.sent, 1)
	assert.Equal(t, "42", api.sent[0]["chat_id"])
	assert.Equal(t, "HTML", api.sent[0]["parse_mode"])
	assert.Contains(t, api.sent[0]["text"], "<b>GoldSentinel</b>")
}

func TestTelegram_SendWithRetryRecovers(t *testing.T) {
	api := &fakeBotAPI{failures: 1}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	err := newTestNotifier(srv.URL).SendWithRetry(context.Background(), "hello", 1)
	require.NoError(t, err)
	assert.Len(t, api.sent, 1)
}

func TestTelegram_SendWithRetryHonoursContext(t *testing.T) {
	api := &fakeBotAPI{failures: 10}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := newTestNotifier(srv.URL).SendWithRetry(ctx, "hello", 3)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTelegram_PollingDispatchesCommands(t *testing.T) {
	api := &fakeBotAPI{updates: `{"ok":true,"result":[{"update_id":7,"message":{"text":" /quota "}}]}`}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got string
	done := make(chan struct{})
	go func() {
		newTestNotifier(srv.URL).StartPolling(ctx, func(_ context.Context, cmd string) string {
			got = cmd
			cancel()
			return "quota ok"
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}
	assert.Equal(t, "/quota", got)
}
