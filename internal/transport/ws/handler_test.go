package ws_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/cory-johannsen/arena/internal/game/event"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/transport/ws"
)

type frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type gateway struct {
	hub  *ws.Hub
	game *fakeGame
	srv  *httptest.Server
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	return newGatewayWith(t, ws.Options{})
}

func newGatewayWith(t *testing.T, opts ws.Options) *gateway {
	t.Helper()
	hub := ws.NewHub(zap.NewNop())
	game := newFakeGame(hub)
	handler := ws.NewHandler(game, hub, opts, zap.NewNop())
	srv := httptest.NewServer(ws.NewRouter(game, handler, zap.NewNop()))
	t.Cleanup(srv.Close)
	return &gateway{hub: hub, game: game, srv: srv}
}

func (g *gateway) dial(t *testing.T, ctx context.Context, gameID, playerID string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(g.srv.URL, "http") + "/ws?game=" + gameID + "&player=" + playerID
	return websocket.Dial(ctx, url, nil)
}

func read(t *testing.T, ctx context.Context, conn *websocket.Conn) frame {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestWebsocket_RoundTrip(t *testing.T) {
	g := newGateway(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := g.dial(t, ctx, "g1", "p1")
	require.NoError(t, err)
	defer conn.Close(websocket.StatusInternalError, "test ended")

	assert.Equal(t, string(event.GameState), read(t, ctx, conn).Event)
	assert.True(t, g.game.has("connected p1"))

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"move","position":{"x":1,"y":2}}`)))
	require.Eventually(t, func() bool { return g.game.has("move p1 (1,2)") }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"dance"}`)))
	assert.Equal(t, "invalid-command", read(t, ctx, conn).Event)

	g.hub.Broadcast("g1", event.Event{Name: event.TurnChanged, Payload: "p2"})
	got := read(t, ctx, conn)
	assert.Equal(t, string(event.TurnChanged), got.Event)
	assert.JSONEq(t, `"p2"`, string(got.Payload))

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))
	require.Eventually(t, func() bool { return g.game.has("disconnected p1") }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, g.hub.Connections("g1"))
}

func TestWebsocket_SecondTabKeepsPlayerConnected(t *testing.T) {
	g := newGateway(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, _, err := g.dial(t, ctx, "g1", "p1")
	require.NoError(t, err)
	read(t, ctx, first)
	second, _, err := g.dial(t, ctx, "g1", "p1")
	require.NoError(t, err)
	defer second.Close(websocket.StatusNormalClosure, "")
	read(t, ctx, second)

	require.NoError(t, first.Close(websocket.StatusNormalClosure, "bye"))
	require.Eventually(t, func() bool { return g.hub.Connections("g1") == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, g.game.count("disconnected p1"))
}

func TestWebsocket_SilentClientStaysConnected(t *testing.T) {
	g := newGatewayWith(t, ws.Options{PingInterval: 20 * time.Millisecond, PongTimeout: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := g.dial(t, ctx, "g1", "p1")
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")
	read(t, ctx, conn)

	// A pending Read answers the server's pings.
	frames := make(chan frame, 1)
	go func() {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var f frame
		if json.Unmarshal(data, &f) == nil {
			frames <- f
		}
	}()

	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, g.game.count("disconnected p1"))
	assert.Equal(t, 1, g.hub.Connections("g1"))

	g.hub.Broadcast("g1", event.Event{Name: event.TurnChanged, Payload: "p1"})
	select {
	case f := <-frames:
		assert.Equal(t, string(event.TurnChanged), f.Event)
	case <-ctx.Done():
		t.Fatal("no frame after a silent spell")
	}
}

func TestWebsocket_UnansweredPingDisconnects(t *testing.T) {
	g := newGatewayWith(t, ws.Options{PingInterval: 20 * time.Millisecond, PongTimeout: 50 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := g.dial(t, ctx, "g1", "p1")
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Never reading means pongs are never sent.
	require.Eventually(t, func() bool { return g.game.has("disconnected p1") }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, g.hub.Connections("g1"))
}

func TestWebsocket_Rejected(t *testing.T) {
	g := newGateway(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tests := []struct {
		name, game, player string
		status             int
	}{
		{"unknown game", "nope", "p1", http.StatusNotFound},
		{"unknown player", "g1", "ghost", http.StatusNotFound},
		{"bots cannot connect", "g1", "b1", http.StatusNotFound},
		{"missing player", "g1", "", http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, resp, err := g.dial(t, ctx, tc.game, tc.player)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestCreateGame(t *testing.T) {
	g := newGateway(t)

	resp, err := http.Post(g.srv.URL+"/games", "application/json", strings.NewReader(`{"players":[{"name":"alice"},{"name":"bot","bot":true}]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var snap struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "g1", snap.ID)
	assert.True(t, g.game.has("create 2"))
}

func TestCreateGame_BadRequests(t *testing.T) {
	g := newGateway(t)
	for _, body := range []string{`{`, `{"players":[]}`} {
		resp, err := http.Post(g.srv.URL+"/games", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestHealthz(t *testing.T) {
	g := newGateway(t)
	resp, err := http.Get(g.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type fakeResults struct {
	mu    sync.Mutex
	limit int
	err   error
}

func (f *fakeResults) lastLimit() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.limit
}

func (f *fakeResults) Recent(_ context.Context, limit int) ([]match.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []match.Result{{GameID: "g0", Mode: match.ModeClassic}}, nil
}

func TestResults(t *testing.T) {
	lister := &fakeResults{}
	hub := ws.NewHub(zap.NewNop())
	game := newFakeGame(hub)
	srv := httptest.NewServer(ws.NewRouter(game, ws.NewHandler(game, hub, ws.Options{}, zap.NewNop()), zap.NewNop(), ws.WithResults(lister)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/results?limit=500")
	require.NoError(t, err)
	var got []match.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 100, lister.lastLimit(), "limit is capped")
	require.Len(t, got, 1)
	assert.Equal(t, "g0", got[0].GameID)

	resp, err = http.Get(srv.URL + "/results?limit=zero")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	lister.mu.Lock()
	lister.err = errors.New("db down")
	lister.mu.Unlock()
	resp, err = http.Get(srv.URL + "/results")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, 20, lister.lastLimit())
}
