package web

import (
	"context"
	"encoding/json"
	"errors"
	log "log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"jarvis/internal/assistant"
	"jarvis/internal/speech"
)

var ErrNoBrowser = errors.New("no browser connected")

// Frame is one JSON message on the browser WebSocket.
type Frame struct {
	Type     string              `json:"type"`
	Text     string              `json:"text,omitempty"`
	URL      string              `json:"url,omitempty"`
	Action   string              `json:"action,omitempty"`
	Message  string              `json:"message,omitempty"`
	Snapshot *assistant.Snapshot `json:"snapshot,omitempty"`
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

type client struct {
	conn *ws.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub fans frames out to connected browsers. The newest browser is the
// primary one: it opens URLs, speaks and runs speech recognition. Hub
// implements dispatch.Browser, voice.Provider and speech.Recognizer.
type Hub struct {
	mu      sync.Mutex
	clients []*client // oldest first
	// listener is the browser running recognition, nil when idle.
	listener *client
	emit     func(speech.Event)
}

func NewHub() *Hub {
	return &Hub{}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients = append(h.clients, c)
	log.Info("Browser connected", "clients", len(h.clients))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	for i, cc := range h.clients {
		if cc == c {
			h.clients = append(h.clients[:i], h.clients[i+1:]...)
			break
		}
	}
	var emit func(speech.Event)
	if h.listener == c {
		emit = h.emit
		h.listener, h.emit = nil, nil
	}
	n := len(h.clients)
	h.mu.Unlock()

	c.close()
	log.Info("Browser disconnected", "clients", n)

	// The recognizer went away with its page.
	if emit != nil {
		emit(speech.Event{Kind: speech.End})
	}
}

func (h *Hub) primary() *client {
	if len(h.clients) == 0 {
		return nil
	}
	return h.clients[len(h.clients)-1]
}

// Broadcast sends f to every browser and reports how many it reached.
func (h *Hub) Broadcast(f Frame) int {
	data, err := json.Marshal(f)
	if err != nil {
		log.Error("Failed to encode frame", "type", f.Type, "err", err)
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, c := range h.clients {
		if h.enqueue(c, data) {
			n++
		}
	}
	return n
}

func (h *Hub) sendPrimary(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.primary()
	if c == nil || !h.enqueue(c, data) {
		return ErrNoBrowser
	}
	return nil
}

// enqueue must be called with h.mu held. A browser that cannot keep up is
// disconnected.
func (h *Hub) enqueue(c *client, data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		log.Warn("Browser too slow, dropping it")
		c.conn.Close()
		return false
	}
}

// OpenURL asks the primary browser to open rawURL in a new tab.
func (h *Hub) OpenURL(_ context.Context, rawURL string) error {
	return h.sendPrimary(Frame{Type: "open", URL: rawURL})
}

func (h *Hub) Name() string {
	return "browser"
}

// Speak hands text to the primary browser's speechSynthesis. It returns
// once the frame is queued.
func (h *Hub) Speak(_ context.Context, text string) error {
	return h.sendPrimary(Frame{Type: "speak", Text: text})
}

func (h *Hub) Start(_ context.Context, emit func(speech.Event)) error {
	data, err := json.Marshal(Frame{Type: "recognition", Action: "start"})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.primary()
	if c == nil || !h.enqueue(c, data) {
		return ErrNoBrowser
	}
	h.listener, h.emit = c, emit
	return nil
}

func (h *Hub) Stop() error {
	data, err := json.Marshal(Frame{Type: "recognition", Action: "stop"})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.listener == nil {
		return nil
	}
	h.enqueue(h.listener, data)
	h.listener, h.emit = nil, nil
	return nil
}

// recognition forwards a recognition frame from c to the active recognizer
// callback. Frames from other browsers are ignored.
func (h *Hub) recognition(c *client, f Frame) {
	h.mu.Lock()
	emit := h.emit
	if h.listener != c {
		emit = nil
	}
	h.mu.Unlock()

	if emit == nil {
		log.Debug("Ignoring recognition frame", "type", f.Type)
		return
	}

	switch f.Type {
	case "interim":
		emit(speech.Event{Kind: speech.Interim, Text: f.Text})
	case "final":
		emit(speech.Event{Kind: speech.Final, Text: f.Text})
	case "error":
		emit(speech.Event{Kind: speech.Error, Err: errors.New(f.Message)})
	case "end":
		emit(speech.Event{Kind: speech.End})
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(ws.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, msg); err != nil {
				log.Debug("Write ws failed", "err", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(ws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump delivers frames to handle until the connection closes.
func (c *client) readPump(handle func(Frame)) {
	c.conn.SetReadLimit(64 << 10)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				log.Warn("Read ws failed", "err", err)
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			log.Warn("Malformed frame", "err", err)
			continue
		}
		log.Debug("Read ws", "type", f.Type)
		handle(f)
	}
}
