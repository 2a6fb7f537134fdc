package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/websocket"
)

const maxDecodeErrorsPerConn = 3

// JoinLimiter ограничивает частоту join-запросов одного соединения
// (реализация — INCR/EXPIRE в redis, см. cache/rediscache).
type JoinLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type WSOptions struct {
	JoinLimiter        JoinLimiter
	JoinLimitPerMinute int64
}

type wsIdentityKey struct{}

var connSeq uint64

// WSServer принимает соединения, аутентифицирует их на рукопожатии и гоняет
// цикл чтения фреймов с явной таблицей диспетчеризации event -> handler.
type WSServer struct {
	hub      *Hub
	auth     *Authenticator
	opts     WSOptions
	handlers map[string]func(ctx context.Context, c *Conn, payload json.RawMessage)
}

func NewWSServer(hub *Hub, auth *Authenticator, opts WSOptions) *WSServer {
	s := &WSServer{hub: hub, auth: auth, opts: opts}
	s.handlers = map[string]func(ctx context.Context, c *Conn, payload json.RawMessage){
		EventJoin:  s.handleJoin,
		EventLeave: s.handleLeave,
	}
	return s
}

// Handler проверяет credential до апгрейда: невалидный токен — отказ в
// соединении (401), отсутствие токена — гость.
func (s *WSServer) Handler() http.Handler {
	wsHandler := websocket.Handler(s.handleConn)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.auth.Authenticate(credentialFromRequest(r))
		if err != nil {
			slog.Info("ws handshake rejected", "remote", r.RemoteAddr, "err", err)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), wsIdentityKey{}, identity)
		wsHandler.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Токен берём из Authorization: Bearer либо из query-параметра token —
// браузерный WebSocket не умеет выставлять заголовки.
func credentialFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func (s *WSServer) handleConn(ws *websocket.Conn) {
	defer func() { _ = ws.Close() }()

	identity := GuestIdentity()
	ctx := context.Background()
	if req := ws.Request(); req != nil {
		ctx = req.Context()
		if id, ok := ctx.Value(wsIdentityKey{}).(Identity); ok {
			identity = id
		}
	}

	c := NewConn(fmt.Sprintf("conn_%d", atomic.AddUint64(&connSeq, 1)), identity, ws)
	s.hub.Registry().Register(c)
	// Свип присутствия обязан отработать при любом исходе цикла чтения,
	// включая обрыв сети без явных leave.
	defer s.hub.Disconnect(c)

	decoder := json.NewDecoder(ws)
	decodeErrors := 0
	for {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			s.sendError(c, "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		handler, ok := s.handlers[frame.Type]
		if !ok {
			s.sendError(c, "unsupported event type "+frame.Type)
			continue
		}
		handler(ctx, c, frame.Payload)
	}
}

func (s *WSServer) handleJoin(ctx context.Context, c *Conn, payload json.RawMessage) {
	var p JoinPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.ShipmentID == 0 {
		s.sendError(c, "shipment_id is required")
		return
	}

	if s.opts.JoinLimiter != nil && s.opts.JoinLimitPerMinute > 0 {
		key := "ws:join:" + c.ID
		ok, _, err := s.opts.JoinLimiter.Allow(ctx, key, s.opts.JoinLimitPerMinute, time.Minute)
		if err != nil {
			slog.Warn("join rate limit check", "conn", c.ID, "err", err)
		} else if !ok {
			s.sendError(c, "join rate limit exceeded")
			return
		}
	}

	s.hub.Join(c, p.ShipmentID)
}

func (s *WSServer) handleLeave(_ context.Context, c *Conn, payload json.RawMessage) {
	var p JoinPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.ShipmentID == 0 {
		s.sendError(c, "shipment_id is required")
		return
	}
	s.hub.Leave(c, p.ShipmentID)
}

// Ошибка уходит только этому соединению, само соединение живёт дальше.
func (s *WSServer) sendError(c *Conn, message string) {
	if err := c.writeFrame(newFrame(EventError, ErrorPayload{Message: message})); err != nil {
		slog.Debug("send error frame", "conn", c.ID, "err", err)
	}
}
