package realtime

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/mcpboard-dev/mcpboard/internal/auth"
)

// CredentialVerifier validates the bearer token from an authenticate
// message and resolves it to a user identity.
type CredentialVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// ServerStatus is the per-server snapshot returned to get_server_status
// requests.
type ServerStatus struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
}

// ServerStore is the read-only view of the server metadata layer.
type ServerStore interface {
	Statuses(ctx context.Context) ([]ServerStatus, error)
}

// MetricsSource answers get_metrics requests.
type MetricsSource interface {
	Get(ctx context.Context, serverID, timeRange string) (json.RawMessage, error)
}

const (
	// Delay before dropping a connection that failed authentication, so
	// the error frame can flush first.
	authFailureCloseDelay = 500 * time.Millisecond

	// Time allowed for downstream lookups triggered by a client request.
	requestTimeout = 10 * time.Second
)

// Hub owns the session registry and subscription index and is the only
// component that mutates them. One mutex guards the pair so a session can
// never be present in the index but absent from the registry.
type Hub struct {
	verifier CredentialVerifier
	servers  ServerStore
	metrics  MetricsSource

	heartbeatInterval time.Duration

	mu       sync.Mutex
	registry *Registry
	index    *SubscriptionIndex
	closed   bool

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewHub(verifier CredentialVerifier, servers ServerStore, metrics MetricsSource, heartbeatInterval time.Duration) *Hub {
	if heartbeatInterval <= 0 {
		heartbeatInterval = 30 * time.Second
	}
	return &Hub{
		verifier:          verifier,
		servers:           servers,
		metrics:           metrics,
		heartbeatInterval: heartbeatInterval,
		registry:          NewRegistry(),
		index:             NewSubscriptionIndex(),
		done:              make(chan struct{}),
	}
}

// Run starts the heartbeat sweep. Call once after construction.
func (h *Hub) Run() {
	h.wg.Add(1)
	go h.sweepLoop()
}

// SessionCount reports the number of live sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.Len()
}

// Publish delivers one message to every authenticated session subscribed to
// topic. The payload is serialized once; a recipient whose socket is dead or
// whose buffer is full is evicted instead of retried.
func (h *Hub) Publish(topic, msgType string, payload any) {
	data, err := Encode(msgType, payload)
	if err != nil {
		log.Printf("realtime: encode %s failed: %v", msgType, err)
		return
	}
	h.deliver(h.subscriberSnapshot(topic), data)
}

// PublishAll delivers to every authenticated session regardless of topic.
func (h *Hub) PublishAll(msgType string, payload any) {
	data, err := Encode(msgType, payload)
	if err != nil {
		log.Printf("realtime: encode %s failed: %v", msgType, err)
		return
	}
	h.mu.Lock()
	targets := make([]*Session, 0, h.registry.Len())
	for _, s := range h.registry.List() {
		if s.authenticated() {
			targets = append(targets, s)
		}
	}
	h.mu.Unlock()
	h.deliver(targets, data)
}

func (h *Hub) subscriberSnapshot(topic string) []*Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := h.index.Subscribers(topic)
	targets := make([]*Session, 0, len(ids))
	for _, id := range ids {
		if s, ok := h.registry.Get(id); ok && s.authenticated() {
			targets = append(targets, s)
		}
	}
	return targets
}

func (h *Hub) deliver(targets []*Session, data []byte) {
	for _, s := range targets {
		if !s.enqueue(data) {
			h.evict(s.ID, websocket.CloseGoingAway, "send buffer overflow")
		}
	}
}

// send encodes and queues a direct reply to one session.
func (h *Hub) send(s *Session, msgType string, payload any) {
	data, err := Encode(msgType, payload)
	if err != nil {
		log.Printf("realtime: encode %s failed: %v", msgType, err)
		return
	}
	if !s.enqueue(data) {
		h.evict(s.ID, websocket.CloseGoingAway, "send buffer overflow")
	}
}

func (h *Hub) sendError(s *Session, code, message string) {
	if !s.enqueue(encodeError(code, message)) {
		h.evict(s.ID, websocket.CloseGoingAway, "send buffer overflow")
	}
}

// evict is the single removal routine every trigger converges on: client
// close, read/write error, heartbeat timeout, failed authentication and
// shutdown. A second call for the same id is a no-op.
func (h *Hub) evict(id string, closeCode int, reason string) {
	h.mu.Lock()
	s, ok := h.registry.Remove(id)
	if ok {
		h.index.Purge(id)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	if reason != "" {
		log.Printf("realtime: session %s closed: %s", id, reason)
	}
	atomic.StoreInt32(&s.closeCode, int32(closeCode))
	s.close()
}

func (h *Hub) sweepLoop() {
	defer h.wg.Done()
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

// sweep evicts sessions whose last heartbeat is older than twice the
// interval. Liveness probes themselves are sent by each session's write
// pump; an unresponsive peer simply stops refreshing its stamp.
func (h *Hub) sweep() {
	timeout := 2 * h.heartbeatInterval

	h.mu.Lock()
	sessions := h.registry.List()
	h.mu.Unlock()

	for _, s := range sessions {
		if elapsed := time.Since(s.lastHeartbeatAt()); elapsed > timeout {
			h.evict(s.ID, websocket.ClosePolicyViolation, "heartbeat timeout")
		}
	}
}

// Shutdown stops accepting sessions, closes every live one with a going-away
// status, and waits for the sweep and write pumps to drain.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		sessions := h.registry.List()
		h.mu.Unlock()

		for _, s := range sessions {
			h.evict(s.ID, websocket.CloseGoingAway, "server shutting down")
		}
		close(h.done)
	})

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// writePump is the sole writer for one connection. It drains the session's
// outbound buffer, sends periodic pings, and emits the close frame when the
// session ends.
func (h *Hub) writePump(s *Session) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			code := int(atomic.LoadInt32(&s.closeCode))
			_ = s.conn.WriteMessage(websocket.CloseMessage, closeFrame(code))
			return

		case data := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.evict(s.ID, websocket.CloseAbnormalClosure, "write failed")
				continue
			}
			s.recordSent(len(data))

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.evict(s.ID, websocket.CloseAbnormalClosure, "ping failed")
			}
		}
	}
}

func closeFrame(code int) []byte {
	if code == 0 {
		code = websocket.CloseNormalClosure
	}
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(code))
	return buf
}
