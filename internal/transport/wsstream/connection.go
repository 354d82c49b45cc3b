package wsstream

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mettagrid/internal/logger"
)

// Connection wraps one controller's websocket, adapted from the teacher's
// internal/delivery/websocket.Connection: a buffered Send channel decouples
// the simulation's step loop from slow network writers, and Serve's read
// loop and writePump run on separate goroutines.
type Connection struct {
	ID        string
	EpisodeID string
	conn      *websocket.Conn
	Send      chan StepResult
	mu        sync.Mutex
	closed    bool
}

// NewConnection wraps conn for episodeID, with a buffered send queue sized
// the way the teacher's hub sizes per-client queues.
func NewConnection(id, episodeID string, conn *websocket.Conn) *Connection {
	return &Connection{
		ID:        id,
		EpisodeID: episodeID,
		conn:      conn,
		Send:      make(chan StepResult, 16),
	}
}

// ReadStepFrame blocks for the next caller-submitted StepFrame.
func (c *Connection) ReadStepFrame() (StepFrame, error) {
	var frame StepFrame
	err := c.conn.ReadJSON(&frame)
	return frame, err
}

// WriteResult sends one StepResult to the controller.
func (c *Connection) WriteResult(result StepResult) error {
	return c.conn.WriteJSON(result)
}

// WriteError sends a stream-level error frame without closing the socket.
func (c *Connection) WriteError(msg string) error {
	return c.conn.WriteJSON(ErrorFrame{Error: msg})
}

// Close closes the underlying connection exactly once.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if err := c.conn.Close(); err != nil {
		logger.Get().Debug("wsstream connection close error", zap.String("connection_id", c.ID), zap.Error(err))
	}
}
