package realtime

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/mcpboard-dev/mcpboard/internal/auth"
)

// Subprotocol is the application protocol negotiated at upgrade time.
// Connections that do not offer it are rejected, no fallback.
const Subprotocol = "mcp-dashboard-v1"

type GatewayConfig struct {
	AllowedOrigins []string
	// DevMode bypasses the origin allow-list for local frontends.
	DevMode bool
}

// NewHandler returns the upgrade endpoint: subprotocol and origin checks run
// before the upgrade, then the connection is handed to the hub.
func NewHandler(hub *Hub, cfg GatewayConfig) fiber.Handler {
	wsHandler := websocket.New(func(c *websocket.Conn) {
		hub.ServeConn(c)
	}, websocket.Config{
		Subprotocols: []string{Subprotocol},
	})

	return func(ctx *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(ctx) {
			return fiber.ErrUpgradeRequired
		}
		if !offersSubprotocol(ctx.Get("Sec-Websocket-Protocol")) {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "unsupported subprotocol"})
		}
		if !cfg.DevMode && !originAllowed(ctx.Get("Origin"), cfg.AllowedOrigins) {
			return ctx.Status(http.StatusForbidden).JSON(fiber.Map{"error": "origin not allowed"})
		}
		return wsHandler(ctx)
	}
}

func offersSubprotocol(header string) bool {
	for _, offered := range strings.Split(header, ",") {
		if strings.TrimSpace(offered) == Subprotocol {
			return true
		}
	}
	return false
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(origin, a) {
			return true
		}
	}
	return false
}

// ServeConn registers a session for the connection and runs its read loop
// until the socket closes. Every exit path funnels into evict.
func (h *Hub) ServeConn(conn Conn) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	s := newSession(uuid.NewString(), conn)
	h.registry.Add(s)
	h.mu.Unlock()

	h.wg.Add(1)
	go h.writePump(s)

	defer h.evict(s.ID, websocket.CloseNormalClosure, "")

	pongWait := 2 * h.heartbeatInterval
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		s.touchHeartbeat()
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	h.send(s, TypeConnectionEstablished, fiber.Map{"sessionId": s.ID})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.recordReceived(len(raw))

		in, err := ParseInbound(raw)
		if err != nil {
			code := CodeBadMessage
			if errors.Is(err, ErrUnknownType) {
				code = CodeUnknownType
			}
			h.sendError(s, code, err.Error())
			continue
		}
		h.dispatch(s, in)
	}
}

func (h *Hub) dispatch(s *Session, in *Inbound) {
	switch in.Type {
	case TypeAuthenticate:
		h.handleAuthenticate(s, in.Authenticate)
	case TypeSubscribe:
		h.handleSubscribe(s, in.Subscribe)
	case TypeUnsubscribe:
		h.handleUnsubscribe(s, in.Unsubscribe)
	case TypeHeartbeat:
		s.touchHeartbeat()
		h.send(s, TypeHeartbeat, fiber.Map{})
	case TypeGetServerStatus:
		h.handleServerStatus(s)
	case TypeGetMetrics:
		h.handleMetrics(s, in.MetricsQuery)
	}
}

// handleAuthenticate binds a user identity to the session. A missing token
// keeps the connection open for retry; a bad token closes it after the error
// frame has had a moment to flush, so clients cannot silently retry-loop.
func (h *Hub) handleAuthenticate(s *Session, p *AuthenticatePayload) {
	if p.Token == "" {
		h.sendError(s, CodeTokenMissing, "authenticate requires a token")
		return
	}

	identity, err := h.verifier.Verify(p.Token)
	if err != nil {
		code := CodeTokenInvalid
		msg := "token rejected, closing connection"
		if errors.Is(err, auth.ErrTokenExpired) {
			code = CodeTokenExpired
			msg = "token expired, reconnect with a fresh token"
		}
		h.sendError(s, code, msg)
		time.AfterFunc(authFailureCloseDelay, func() {
			h.evict(s.ID, websocket.ClosePolicyViolation, "authentication failed")
		})
		return
	}

	// Re-authentication just overwrites the identity.
	h.mu.Lock()
	s.UserID = identity.UserID
	s.Permissions = identity.Permissions
	h.mu.Unlock()

	h.send(s, TypeAuthenticated, fiber.Map{
		"userId":      identity.UserID,
		"permissions": identity.Permissions,
	})
}

func (h *Hub) handleSubscribe(s *Session, p *SubscribePayload) {
	h.mu.Lock()
	if !s.authenticated() {
		h.mu.Unlock()
		h.sendError(s, CodeAuthRequired, "authenticate before subscribing")
		return
	}
	h.index.Subscribe(s.ID, p.ServerIDs)
	for _, topic := range p.ServerIDs {
		if topic != "" {
			s.subscriptions[topic] = struct{}{}
		}
	}
	subs := s.subscriptionList()
	h.mu.Unlock()

	sort.Strings(subs)
	h.send(s, TypeSubscribed, fiber.Map{"serverIds": subs})
}

func (h *Hub) handleUnsubscribe(s *Session, p *UnsubscribePayload) {
	h.mu.Lock()
	h.index.Unsubscribe(s.ID, p.ServerIDs)
	for _, topic := range p.ServerIDs {
		delete(s.subscriptions, topic)
	}
	subs := s.subscriptionList()
	h.mu.Unlock()

	sort.Strings(subs)
	h.send(s, TypeUnsubscribed, fiber.Map{"serverIds": subs})
}

func (h *Hub) handleServerStatus(s *Session) {
	if !h.sessionAuthenticated(s) {
		h.sendError(s, CodeAuthRequired, "authenticate first")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	statuses, err := h.servers.Statuses(ctx)
	if err != nil {
		h.sendError(s, CodeUpstreamError, "could not fetch server status")
		return
	}
	h.send(s, TypeServerStatusResponse, fiber.Map{"servers": statuses})
}

func (h *Hub) handleMetrics(s *Session, q *MetricsQueryPayload) {
	if !h.sessionAuthenticated(s) {
		h.sendError(s, CodeAuthRequired, "authenticate first")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	payload, err := h.metrics.Get(ctx, q.ServerID, q.TimeRange)
	if err != nil {
		h.sendError(s, CodeUpstreamError, "could not fetch metrics")
		return
	}
	h.send(s, TypeMetricsResponse, payload)
}

func (h *Hub) sessionAuthenticated(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return s.authenticated()
}
