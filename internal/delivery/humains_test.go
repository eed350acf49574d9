package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hub fakes the login and inject endpoints. Logins hand out "t1", "t2", ...
// With rejectT1 set the first token is refused with 401.
type hub struct {
	logins   atomic.Int32
	injects  atomic.Int32
	rejectT1 bool

	mu   sync.Mutex
	last injectRequest
}

func (h *hub) lastBody() injectRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

func (h *hub) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "bot" || pass != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		n := h.logins.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": fmt.Sprintf("t%d", n)})
	})
	mux.HandleFunc("/hub/inject", func(w http.ResponseWriter, r *http.Request) {
		h.injects.Add(1)
		auth := r.Header.Get("Authorization")
		if h.rejectT1 && auth == "Bearer t1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(auth, "Bearer t") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body injectRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h.mu.Lock()
		h.last = body
		h.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server, user, pass string) *Client {
	return NewClient(srv.URL+"/auth/login", srv.URL+"/hub/inject", user, pass, 0)
}

func TestClient_Inject(t *testing.T) {
	h := &hub{}
	c := newTestClient(h.server(t), "bot", "secret")

	err := c.Inject(context.Background(), "client-1", "conv-1", map[string]string{"server_search": "תשובה"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), h.logins.Load())
	body := h.lastBody()
	assert.Equal(t, "client-1", body.ClientID)
	assert.Equal(t, "conv-1", body.ConversationID)
	assert.Equal(t, map[string]string{"server_search": "תשובה"}, body.Values)

	// The token is reused.
	require.NoError(t, c.Inject(context.Background(), "client-1", "conv-1", map[string]string{"answer": "x"}))
	assert.Equal(t, int32(1), h.logins.Load())
	assert.Equal(t, int32(2), h.injects.Load())
}

func TestClient_Inject_RetriesOnUnauthorized(t *testing.T) {
	h := &hub{rejectT1: true}
	c := newTestClient(h.server(t), "bot", "secret")

	require.NoError(t, c.Inject(context.Background(), "c", "v", map[string]string{"server_search": "ok"}))
	assert.Equal(t, int32(2), h.logins.Load())
	assert.Equal(t, int32(2), h.injects.Load())
	assert.Equal(t, "t2", c.cachedToken())
}

func TestClient_Inject_LoginFailure(t *testing.T) {
	h := &hub{}
	c := newTestClient(h.server(t), "bot", "wrong")

	err := c.Inject(context.Background(), "c", "v", map[string]string{"server_search": "ok"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Equal(t, int32(0), h.injects.Load())
}

func TestClient_Login_NoToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"welcome"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "bot", "secret", 0)
	_, err := c.Login(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestClient_NotConfigured(t *testing.T) {
	c := NewClient("", "", "", "", 0)
	assert.False(t, c.Configured())

	err := c.Inject(context.Background(), "c", "v", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	var nilClient *Client
	assert.False(t, nilClient.Configured())
}

func TestTruncateValues(t *testing.T) {
	long := strings.Repeat("ש", MaxValueRunes+5)
	in := map[string]string{"server_search": long, "answer": "קצר"}

	got := TruncateValues(in, MaxValueRunes)

	assert.Equal(t, MaxValueRunes+3, len([]rune(got["server_search"])))
	assert.True(t, strings.HasSuffix(got["server_search"], "..."))
	assert.Equal(t, "קצר", got["answer"])
	assert.Equal(t, long, in["server_search"], "input must not be modified")
}
