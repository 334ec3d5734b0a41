package ws

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/cory-johannsen/arena/internal/game/event"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/observability"
)

// invalidCommand is sent to the sender of an undecodable frame only.
const invalidCommand event.Name = "invalid-command"

// Options tune websocket connections.
type Options struct {
	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration
	// PingInterval is the time between keepalive pings. Reads have no
	// deadline; a silent but live client stays connected.
	PingInterval time.Duration
	// PongTimeout drops a connection whose ping goes unanswered this long.
	PongTimeout time.Duration
	// OutboxSize is the number of frames buffered per connection.
	OutboxSize int
	// OriginPatterns are passed to websocket.Accept.
	OriginPatterns []string
}

func (o Options) withDefaults() Options {
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 20 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 10 * time.Second
	}
	if o.OutboxSize <= 0 {
		o.OutboxSize = defaultOutboxSize
	}
	return o
}

// Handler upgrades players of a game to websocket connections.
type Handler struct {
	game   Game
	hub    *Hub
	opts   Options
	logger *zap.Logger
}

// NewHandler creates a Handler.
//
// Precondition: game, hub and logger must be non-nil.
func NewHandler(game Game, hub *Hub, opts Options, logger *zap.Logger) *Handler {
	return &Handler{game: game, hub: hub, opts: opts.withDefaults(), logger: logger}
}

// ServeHTTP handles GET /ws?game=<id>&player=<id>.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game")
	playerID := r.URL.Query().Get("player")
	if gameID == "" || playerID == "" {
		http.Error(w, "missing game or player", http.StatusBadRequest)
		return
	}
	snap, ok := h.game.Snapshot(gameID)
	if !ok {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	if !slices.ContainsFunc(snap.Players, func(p *match.Player) bool { return p.ID == playerID && !p.IsBot }) {
		http.Error(w, "player not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.opts.OriginPatterns})
	if err != nil {
		h.logger.Warn("websocket accept", observability.Game(gameID), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	logger := h.logger.With(observability.Game(gameID), observability.Player(playerID))
	out := NewOutbox(uuid.NewString(), playerID, h.opts.OutboxSize)
	h.hub.Join(gameID, out)
	h.game.PlayerConnected(gameID, playerID)
	logger.Info("player connected", zap.String("conn_id", out.ID()))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.writeLoop(ctx, cancel, conn, out, logger)
	go h.pingLoop(ctx, cancel, conn, logger)

	h.readLoop(ctx, conn, gameID, playerID, out, logger)

	if h.hub.Leave(gameID, out) {
		h.game.PlayerDisconnected(gameID, playerID)
	}
	logger.Info("player left", zap.String("conn_id", out.ID()))
}

func (h *Handler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out *Outbox, logger *zap.Logger) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-out.Frames():
			if !ok {
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, h.opts.WriteTimeout)
			err := conn.Write(wctx, websocket.MessageText, frame)
			wcancel()
			if err != nil {
				logger.Debug("websocket write", zap.Error(err))
				return
			}
		}
	}
}

// pingLoop keeps the connection alive and cancels ctx once a ping goes
// unanswered. Pongs are only processed while readLoop is reading.
func (h *Handler) pingLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, logger *zap.Logger) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, pcancel := context.WithTimeout(ctx, h.opts.PongTimeout)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				if ctx.Err() == nil {
					logger.Info("websocket ping unanswered", zap.Error(err))
				}
				cancel()
				return
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, gameID, playerID string, out *Outbox, logger *zap.Logger) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch status := websocket.CloseStatus(err); {
			case status == websocket.StatusNormalClosure, status == websocket.StatusGoingAway:
			case errors.Is(err, context.Canceled):
				logger.Debug("websocket cancelled", zap.Error(err))
			default:
				logger.Debug("websocket read", zap.Error(err))
			}
			return
		}
		cmd, err := DecodeCommand(data)
		if err != nil {
			h.hub.Send(out, event.Event{Name: invalidCommand, Payload: err.Error()})
			continue
		}
		accepted := Dispatch(h.game, gameID, playerID, cmd)
		logger.Debug("command", zap.String("type", cmd.Type), zap.Bool("accepted", accepted))
	}
}
