package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

// Client is one authenticated websocket session.
type Client struct {
	conn *websocket.Conn
	info ConnInfo
	send chan []byte
	// done is closed when the session is torn down.
	done chan struct{}
	// closing asks the writer to flush the queue and stop.
	closing chan struct{}
	// flushed is closed once the writer has returned.
	flushed     chan struct{}
	closeOnce   sync.Once
	closingOnce sync.Once
}

func newClient(conn *websocket.Conn, info ConnInfo) *Client {
	return &Client{
		conn:    conn,
		info:    info,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
		closing: make(chan struct{}),
		flushed: make(chan struct{}),
	}
}

// enqueue queues data for the writer. It reports false when the buffer is
// full or the client is closed.
func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// flush asks the writer to write everything queued, send a normal close
// frame and stop. It returns when the writer is gone or timeout elapses.
func (c *Client) flush(timeout time.Duration) {
	c.closingOnce.Do(func() { close(c.closing) })
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-c.flushed:
	case <-timer.C:
		log.Printf("websocket flush timed out conn_id=%s user_id=%d", c.info.ConnID, c.info.UserID)
	}
}

// writePump is the only writer of the connection after the handshake.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		close(c.flushed)
	}()
	for {
		select {
		case <-c.done:
			return
		case <-c.closing:
			c.drain()
			return
		case data := <-c.send:
			if !c.write(websocket.TextMessage, data) {
				return
			}
		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// drain writes the frames still queued, then a normal close frame.
func (c *Client) drain() {
	for {
		select {
		case data := <-c.send:
			if !c.write(websocket.TextMessage, data) {
				return
			}
		default:
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		if messageType != websocket.PingMessage {
			log.Printf("websocket write error conn_id=%s user_id=%d: %v", c.info.ConnID, c.info.UserID, err)
		}
		return false
	}
	return true
}

// Hub tracks live sessions by user id. A user may hold several sessions.
type Hub struct {
	clients map[int64]map[*Client]struct{}
	mu      sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[int64]map[*Client]struct{})}
}

// Register adds a session.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sessions, ok := h.clients[c.info.UserID]
	if !ok {
		sessions = make(map[*Client]struct{})
		h.clients[c.info.UserID] = sessions
	}
	sessions[c] = struct{}{}
}

// Unregister removes a session. It reports whether the session was present.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	sessions, ok := h.clients[c.info.UserID]
	if !ok {
		return false
	}
	if _, ok := sessions[c]; !ok {
		return false
	}
	delete(sessions, c)
	if len(sessions) == 0 {
		delete(h.clients, c.info.UserID)
	}
	return true
}

// Sessions returns the number of live sessions of userID.
func (h *Hub) Sessions(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Publish delivers payload as a MESSAGE frame on channel to every session of
// userID. Sessions whose queue is full are evicted. A user without sessions
// is not an error.
func (h *Hub) Publish(ctx context.Context, userID int64, channel string, payload any) error {
	data, err := messageFrame(channel, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	var slow []*Client
	for c := range h.clients[userID] {
		if !c.enqueue(data) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.evict(ctx, c, "send buffer full")
	}
	return nil
}

func (h *Hub) evict(ctx context.Context, c *Client, reason string) {
	if !h.Unregister(c) {
		return
	}
	log.Printf("websocket evicted conn_id=%s user_id=%d reason=%s", c.info.ConnID, c.info.UserID, reason)
	c.close()
	publishWSEvent(ctx, c.info, "ws_error", reason, time.Since(c.info.ConnectedAt).Milliseconds())
}
