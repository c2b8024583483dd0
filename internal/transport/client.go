package transport

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second    // time allowed to write a frame to the peer
	pongWait       = 60 * time.Second    // time allowed to read the next pong
	pingPeriod     = (pongWait * 9) / 10 // must be less than pongWait
	maxMessageSize = 1 << 20
)

// envelope is the wire format: one JSON object per frame.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler receives the raw payload of a push event.
type Handler func(data json.RawMessage)

// Subscription identifies one registered handler. Go funcs are not
// comparable, so unsubscribing goes through this token instead of the
// handler reference.
type Subscription struct {
	event string
	id    uint64
}

type subscriber struct {
	id uint64
	fn Handler
}

// Conn is the subset of *websocket.Conn the client needs; tests substitute
// an in-memory implementation.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a connection to the push server, authenticating with the
// bearer token.
type Dialer func(url, token string) (Conn, error)

// Client owns the single live connection to the real-time server. It keeps
// a many-handlers-per-event registry and redials automatically after an
// unexpected disconnect, up to maxAttempts tries spaced by retryDelay.
type Client struct {
	url         string
	dial        Dialer
	logger      *log.Logger
	maxAttempts int
	retryDelay  time.Duration

	mu        sync.Mutex
	conn      Conn
	connected bool
	closed    bool
	token     string
	nextID    uint64
	handlers  map[string][]subscriber

	writeMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithDialer substitutes the websocket dialer; used by tests.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

// WithRetryPolicy overrides the reconnection policy.
func WithRetryPolicy(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = attempts
		c.retryDelay = delay
	}
}

func NewClient(url string, logger *log.Logger, opts ...Option) *Client {
	c := &Client{
		url:         url,
		dial:        dialWebsocket,
		logger:      logger,
		maxAttempts: 5,
		retryDelay:  2 * time.Second,
		handlers:    make(map[string][]subscriber),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func dialWebsocket(url, token string) (Conn, error) {
	header := make(map[string][]string)
	header["Authorization"] = []string{"Bearer " + token}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return deadlineConn{conn}, nil
}

// deadlineConn arms a write deadline before every frame.
type deadlineConn struct {
	*websocket.Conn
}

func (c deadlineConn) WriteMessage(messageType int, data []byte) error {
	c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(messageType, data)
}

// Connect opens the socket. It is idempotent: a connected client ignores
// the call. Connection state changes are logged and dispatched as the
// synthetic connect/disconnect events, never surfaced as UI-blocking errors.
func (c *Client) Connect(token string) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		c.logger.Println("transport: already connected")
		return nil
	}
	c.token = token
	c.closed = false
	c.mu.Unlock()

	conn, err := c.dial(c.url, token)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", c.url, err)
	}

	c.startConn(conn)
	return nil
}

func (c *Client) startConn(conn Conn) {
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.logger.Println("transport: connected")
	c.dispatch(EventConnect, nil)

	go c.readLoop(conn)
	go c.pingLoop(conn)
}

// Disconnect tears down the socket and clears the whole listener registry.
// Components that forgot to unsubscribe lose their handlers here; that is
// deliberate cleanup on logout.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.closed = true
	c.connected = false
	conn := c.conn
	c.conn = nil
	c.handlers = make(map[string][]subscriber)
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.logger.Println("transport: disconnected")
}

// IsConnected reports whether the socket is currently live.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Subscribe registers a handler for an event. Handlers for the same event
// fire in registration order.
func (c *Client) Subscribe(event string, fn Handler) Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	sub := Subscription{event: event, id: c.nextID}
	c.handlers[event] = append(c.handlers[event], subscriber{id: sub.id, fn: fn})
	return sub
}

// Unsubscribe removes exactly the handler behind the subscription, leaving
// any other handlers on the same event untouched.
func (c *Client) Unsubscribe(sub Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := c.handlers[sub.event]
	for i, s := range subs {
		if s.id == sub.id {
			c.handlers[sub.event] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Emit sends an event to the server. When the socket is down the event is
// dropped with a warning; it is never queued and never returns an error to
// the caller.
func (c *Client) Emit(event string, payload any) {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected || conn == nil {
		c.logger.Printf("transport: not connected, dropping emit %q", event)
		return
	}

	env := envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			c.logger.Printf("transport: encoding %q payload: %v", event, err)
			return
		}
		env.Data = data
	}
	frame, err := json.Marshal(env)
	if err != nil {
		c.logger.Printf("transport: encoding %q envelope: %v", event, err)
		return
	}

	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, frame)
	c.writeMu.Unlock()
	if err != nil {
		c.logger.Printf("transport: writing %q: %v", event, err)
	}
}

func (c *Client) readLoop(conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := c.conn != conn
			closed := c.closed
			if !stale {
				c.connected = false
				c.conn = nil
			}
			c.mu.Unlock()

			if stale || closed {
				return
			}
			c.logger.Printf("transport: read error: %v", err)
			c.dispatch(EventDisconnect, nil)
			go c.reconnect()
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Printf("transport: malformed frame: %v", err)
			continue
		}
		if env.Event == "" {
			continue
		}
		c.dispatch(env.Event, env.Data)
	}
}

func (c *Client) pingLoop(conn Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		current := c.conn == conn && c.connected
		c.mu.Unlock()
		if !current {
			return
		}
		c.writeMu.Lock()
		err := conn.WriteMessage(websocket.PingMessage, nil)
		c.writeMu.Unlock()
		if err != nil {
			return
		}
	}
}

func (c *Client) reconnect() {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		time.Sleep(c.retryDelay)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		token := c.token
		c.mu.Unlock()

		conn, err := c.dial(c.url, token)
		if err != nil {
			c.logger.Printf("transport: reconnect %d/%d failed: %v", attempt, c.maxAttempts, err)
			continue
		}
		c.startConn(conn)
		return
	}
	c.logger.Printf("transport: giving up after %d reconnect attempts", c.maxAttempts)
}

func (c *Client) dispatch(event string, data json.RawMessage) {
	c.mu.Lock()
	subs := make([]subscriber, len(c.handlers[event]))
	copy(subs, c.handlers[event])
	c.mu.Unlock()

	for _, s := range subs {
		s.fn(data)
	}
}
