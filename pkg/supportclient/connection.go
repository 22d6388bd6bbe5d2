package supportclient

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tokodesk/pkg/logger"
)

type ConnectionState int32

const (
	StateConnecting ConnectionState = iota
	StateConnected
	StateDisconnected
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second
	eventQueueSize = 256
)

// ConnectionManager owns the one live connection of a support screen. It is
// created on mount, handed by reference to the room registry and the store,
// and released with Close on every exit path. All inbound frames land on a
// single event queue in arrival order.
type ConnectionManager struct {
	url    string
	token  string
	dialer *websocket.Dialer

	mu    sync.Mutex
	conn  *websocket.Conn
	state ConnectionState

	events    chan Event
	closed    chan struct{}
	closeOnce sync.Once
}

func NewConnectionManager(url, token string) *ConnectionManager {
	return &ConnectionManager{
		url:    url,
		token:  token,
		dialer: websocket.DefaultDialer,
		state:  StateDisconnected,
		events: make(chan Event, eventQueueSize),
		closed: make(chan struct{}),
	}
}

// Connect starts the dial/read loop. Reconnection with exponential backoff
// is handled internally; observers learn about it through Connected and
// Disconnected events on the queue.
func (m *ConnectionManager) Connect() {
	go m.run()
}

func (m *ConnectionManager) run() {
	backoff := initialBackoff

	for {
		select {
		case <-m.closed:
			return
		default:
		}

		m.setState(StateConnecting)

		header := http.Header{}
		header.Set("Authorization", "Bearer "+m.token)

		conn, _, err := m.dialer.Dial(m.url, header)
		if err != nil {
			logger.Debug("supportclient: dial failed, retrying in %v: %v", backoff, err)
			m.setState(StateDisconnected)
			m.emit(Disconnected{Err: err})

			select {
			case <-m.closed:
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		m.mu.Lock()
		m.conn = conn
		m.state = StateConnected
		m.mu.Unlock()

		backoff = initialBackoff
		m.emit(Connected{})

		m.readLoop(conn)

		m.mu.Lock()
		if m.conn == conn {
			m.conn = nil
		}
		closedNow := m.state == StateClosed
		if !closedNow {
			m.state = StateDisconnected
		}
		m.mu.Unlock()

		if closedNow {
			return
		}
		m.emit(Disconnected{})
	}
}

// readLoop decodes inbound frames onto the event queue until the connection
// dies. Malformed frames indicate a remote-side bug and are dropped without
// surfacing to the user.
func (m *ConnectionManager) readLoop(conn *websocket.Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return
		}

		event, err := decodeEvent(frame)
		if err != nil {
			logger.Debug("supportclient: dropping frame: %v", err)
			continue
		}

		m.emit(event)
	}
}

func (m *ConnectionManager) emit(event Event) {
	select {
	case m.events <- event:
	case <-m.closed:
	}
}

// send writes an event frame on the live connection. It fails when the
// connection is down; callers fall back to REST.
func (m *ConnectionManager) send(eventType string, data interface{}) error {
	frame, err := encodeFrame(eventType, data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateConnected || m.conn == nil {
		return ErrNotConnected
	}

	return m.conn.WriteMessage(websocket.TextMessage, frame)
}

// Events is the single inbound queue; the store's Run loop drains it.
func (m *ConnectionManager) Events() <-chan Event {
	return m.events
}

func (m *ConnectionManager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *ConnectionManager) IsConnected() bool {
	return m.State() == StateConnected
}

func (m *ConnectionManager) setState(state ConnectionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateClosed {
		m.state = state
	}
}

// Close tears the connection down. It is idempotent and safe to defer
// unconditionally on screen teardown.
func (m *ConnectionManager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.state = StateClosed
		conn := m.conn
		m.conn = nil
		m.mu.Unlock()

		close(m.closed)
		if conn != nil {
			conn.Close()
		}
	})
}
