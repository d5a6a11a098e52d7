// Package websocket streams per-run formation progress to subscribers.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the envelope sent to subscribers.
type Message struct {
	Type  string `json:"type"`
	RunID string `json:"run_id"`
	Data  any    `json:"data,omitempty"`
}

const (
	MessageProgress = "formation_progress"
	MessageComplete = "run_complete"
	MessageFailed   = "run_failed"
)

type subscriber struct {
	runID string
	conn  *websocket.Conn
	send  chan []byte
}

// Hub fans run messages out to the subscribers of that run. Registration
// goes through Run; broadcasts take the lock directly.
type Hub struct {
	runs       map[string]map[*subscriber]struct{}
	register   chan *subscriber
	unregister chan *subscriber
	done       chan struct{}
	logger     *logrus.Entry
	mu         sync.RWMutex
}

func NewHub(logger *logrus.Entry) *Hub {
	return &Hub{
		runs:       make(map[string]map[*subscriber]struct{}),
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations until ctx is done, then closes every subscriber.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, subs := range h.runs {
				for s := range subs {
					h.removeLocked(s)
				}
			}
			h.mu.Unlock()
			return

		case s := <-h.register:
			h.mu.Lock()
			if h.runs[s.runID] == nil {
				h.runs[s.runID] = make(map[*subscriber]struct{})
			}
			h.runs[s.runID][s] = struct{}{}
			h.mu.Unlock()
			h.logger.WithField("run_id", s.runID).Debug("Run subscriber joined")

		case s := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(s)
			h.mu.Unlock()
			h.logger.WithField("run_id", s.runID).Debug("Run subscriber left")
		}
	}
}

// removeLocked is a no-op for an already removed subscriber.
func (h *Hub) removeLocked(s *subscriber) {
	subs := h.runs[s.runID]
	if _, ok := subs[s]; !ok {
		return
	}
	delete(subs, s)
	close(s.send)
	if len(subs) == 0 {
		delete(h.runs, s.runID)
	}
}

// HandleWebSocket upgrades GET /ws/runs/:run_id.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	runID := c.Param("run_id")
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run id is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	s := &subscriber{runID: runID, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- s:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writeLoop(s)
	go h.readLoop(s)
}

// BroadcastToRun sends msg to every subscriber of runID. A subscriber whose
// queue is full is dropped.
func (h *Hub) BroadcastToRun(runID string, msg Message) {
	msg.RunID = runID
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode run message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.runs[runID] {
		select {
		case s.send <- payload:
		default:
			h.removeLocked(s)
		}
	}
}

// Subscribers returns the number of connections watching runID.
func (h *Hub) Subscribers(runID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.runs[runID])
}

// ConnectionCount returns the number of open connections across all runs.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, subs := range h.runs {
		n += len(subs)
	}
	return n
}

// readLoop only exists to notice pongs and disconnects; subscribers never
// send anything meaningful.
func (h *Hub) readLoop(s *subscriber) {
	defer func() {
		select {
		case h.unregister <- s:
		case <-h.done:
		}
		s.conn.Close()
	}()

	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.WithError(err).WithField("run_id", s.runID).Warn("Run subscriber read failed")
			}
			return
		}
	}
}

func (h *Hub) writeLoop(s *subscriber) {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		s.conn.Close()
	}()

	for {
		var (
			kind    = websocket.PingMessage
			payload []byte
		)
		select {
		case msg, ok := <-s.send:
			if !ok {
				_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			kind, payload = websocket.TextMessage, msg
		case <-ping.C:
		}

		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(kind, payload); err != nil {
			h.logger.WithError(err).WithField("run_id", s.runID).Debug("Run subscriber write failed")
			return
		}
	}
}
