package realtime

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Outbound buffer per session. A subscriber that falls this far behind
	// is treated as dead and evicted.
	sendBufferSize = 256

	// Max inbound frame size. Client messages are small control frames.
	maxMessageSize = 4096
)

// Conn is the subset of the websocket connection the hub touches. The
// gofiber contrib *websocket.Conn satisfies it; tests substitute fakes.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// Session is the server-side state for one live client connection. Identity
// and subscription fields are guarded by the hub mutex; traffic counters are
// atomics because the read and write pumps update them concurrently.
type Session struct {
	ID          string
	ConnectedAt time.Time

	// Set by the authentication handshake, empty until then.
	UserID      string
	Permissions []string

	subscriptions map[string]struct{}

	conn Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	// Websocket status code for the close frame, set by the hub before the
	// session is closed.
	closeCode int32

	lastHeartbeat int64 // unix nanos

	messagesSent     uint64
	messagesReceived uint64
	bytesSent        uint64
	bytesReceived    uint64
}

func newSession(id string, conn Conn) *Session {
	now := time.Now()
	s := &Session{
		ID:            id,
		ConnectedAt:   now,
		subscriptions: make(map[string]struct{}),
		conn:          conn,
		send:          make(chan []byte, sendBufferSize),
		done:          make(chan struct{}),
	}
	s.touchHeartbeat()
	return s
}

func (s *Session) authenticated() bool {
	return s.UserID != ""
}

// subscriptionList snapshots the session's current topic set. Callers sort
// it before replying.
func (s *Session) subscriptionList() []string {
	out := make([]string, 0, len(s.subscriptions))
	for topic := range s.subscriptions {
		out = append(out, topic)
	}
	return out
}

func (s *Session) touchHeartbeat() {
	atomic.StoreInt64(&s.lastHeartbeat, time.Now().UnixNano())
}

func (s *Session) lastHeartbeatAt() time.Time {
	return time.Unix(0, atomic.LoadInt64(&s.lastHeartbeat))
}

// enqueue hands a pre-serialized message to the session's writer. It never
// blocks: a full buffer or a closed session reports failure and the caller
// evicts the session.
func (s *Session) enqueue(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// close is idempotent; every eviction trigger lands here via the hub.
func (s *Session) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

type SessionCounters struct {
	MessagesSent     uint64 `json:"messagesSent"`
	MessagesReceived uint64 `json:"messagesReceived"`
	BytesSent        uint64 `json:"bytesSent"`
	BytesReceived    uint64 `json:"bytesReceived"`
}

func (s *Session) Counters() SessionCounters {
	return SessionCounters{
		MessagesSent:     atomic.LoadUint64(&s.messagesSent),
		MessagesReceived: atomic.LoadUint64(&s.messagesReceived),
		BytesSent:        atomic.LoadUint64(&s.bytesSent),
		BytesReceived:    atomic.LoadUint64(&s.bytesReceived),
	}
}

func (s *Session) recordSent(n int) {
	atomic.AddUint64(&s.messagesSent, 1)
	atomic.AddUint64(&s.bytesSent, uint64(n))
}

func (s *Session) recordReceived(n int) {
	atomic.AddUint64(&s.messagesReceived, 1)
	atomic.AddUint64(&s.bytesReceived, uint64(n))
}
