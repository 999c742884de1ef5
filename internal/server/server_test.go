package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/lox/pokermatic/internal/auth"
	"github.com/lox/pokermatic/internal/metrics"
	"github.com/lox/pokermatic/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Type    string          `json:"type"`
	TableID int64           `json:"table_id"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, token string) (*Server, *httptest.Server) {
	t.Helper()

	reg := prometheus.NewRegistry()
	var srv *Server
	lobby := session.NotifierFunc(func(ctx context.Context, msg session.Message) error {
		return srv.Publish(ctx, msg)
	})
	d := newTestDispatcher(t, quartz.NewReal(), WithDispatchMetrics(metrics.New(reg)), WithLobby(lobby))
	var admins auth.Validator
	if token != "" {
		admins = auth.NewStaticValidator(token)
	}
	srv = NewServer(d, log.New(io.Discard), reg, admins)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server, path string, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readType(t *testing.T, conn *websocket.Conn, want string) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var env envelope
		require.NoError(t, conn.ReadJSON(&env))
		if env.Type == want {
			return env
		}
	}
}

func TestServerHealth(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, "")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestServerMetrics(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, "")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pokermatic_active_tables")
}

func TestAdminRequiresToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		token  string
		header string
	}{
		{"admin disabled", "", "Bearer "},
		{"missing header", "secret", ""},
		{"wrong token", "secret", "Bearer nope"},
		{"wrong scheme", "secret", "Basic secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv, _ := newTestServer(t, tt.token)
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestWebSocketFlow(t *testing.T) {
	t.Parallel()

	srv, ts := newTestServer(t, "secret")

	player := dial(t, ts, "/ws", nil)
	require.NoError(t, player.WriteJSON(map[string]any{"command": "join_table", "table_id": 1}))
	errEnv := readType(t, player, string(session.TypeError))
	assert.Contains(t, string(errEnv.Data), ErrNotRegistered.Error())

	require.NoError(t, player.WriteJSON(map[string]any{"command": "register", "name": "alice", "command_id": "r1"}))
	env := readType(t, player, string(TypeRegistration))
	var reg Registration
	require.NoError(t, json.Unmarshal(env.Data, &reg))
	assert.Equal(t, "r1", reg.CommandID)
	assert.Positive(t, reg.PlayerID)
	assert.Equal(t, DefaultStartingBankroll, reg.Bankroll)

	admin := dial(t, ts, "/admin", http.Header{"Authorization": []string{"Bearer secret"}})
	require.NoError(t, admin.WriteJSON(map[string]any{"command": "create_table", "name": "main", "blinds": 2}))
	env = readType(t, admin, string(TypeTableCreated))
	var created TableCreated
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "main", created.Name)

	announced := readType(t, player, string(TypeTableCreated))
	assert.JSONEq(t, string(env.Data), string(announced.Data))

	require.NoError(t, player.WriteJSON(map[string]any{"command": "join_table", "table_id": created.ID}))
	env = readType(t, player, string(session.TypeTableSubscription))
	assert.Equal(t, created.ID, env.TableID)
	var sub session.TableSubscription
	require.NoError(t, json.Unmarshal(env.Data, &sub))
	assert.Equal(t, reg.PlayerID, sub.PlayerID)
	assert.True(t, sub.Seated)

	require.NoError(t, player.WriteJSON(map[string]any{"command": "join_table", "table_id": created.ID}))
	errEnv = readType(t, player, string(session.TypeError))
	assert.Contains(t, string(errEnv.Data), ErrAlreadySeated.Error())

	assert.Equal(t, 2, srv.ConnectionCount())
	_ = player.Close()
	require.Eventually(t, func() bool { return srv.ConnectionCount() == 1 }, 5*time.Second, 10*time.Millisecond)
}
