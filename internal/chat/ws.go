package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/iwvelando/fpna/internal/store"
	"go.uber.org/zap"
)

// PostFunc persists a message and returns it with its id and time set.
type PostFunc func(ctx context.Context, m store.Message) (store.Message, error)

// wsConn writes server text frames to a websocket.
type wsConn struct {
	mu   sync.Mutex
	conn net.Conn
}

// NewConn wraps an upgraded websocket connection.
func NewConn(conn net.Conn) Conn {
	return &wsConn{conn: conn}
}

func (c *wsConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return wsutil.WriteServerMessage(c.conn, ws.OpText, payload)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// inbound is a message frame sent by a client. Author fields in the frame
// are ignored.
type inbound struct {
	Text string `json:"text"`
}

// Serve subscribes an upgraded connection to thread and reads client frames
// until the connection ends. Each text frame is stored through post as
// written by userID with role, then broadcast to the thread.
func (h *Hub) Serve(ctx context.Context, conn net.Conn, thread, userID, role string, post PostFunc) {
	c := NewConn(conn)
	h.Join(thread, c)
	defer func() {
		h.Leave(thread, c)
		_ = c.Close()
	}()

	for {
		data, op, err := wsutil.ReadClientData(conn)
		if err != nil {
			if !isClosed(err) {
				h.logger.Warn("chat connection read failed",
					zap.String("op", "chat.Serve"),
					zap.String("thread", thread),
					zap.Error(err),
				)
			}
			return
		}
		if op != ws.OpText {
			continue
		}

		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			h.logger.Warn("ignoring malformed chat frame",
				zap.String("op", "chat.Serve"),
				zap.String("thread", thread),
				zap.Error(err),
			)
			continue
		}
		saved, err := post(ctx, store.Message{ThreadID: thread, UserID: userID, Role: role, Text: in.Text})
		if err != nil {
			h.logger.Error("failed to store chat message",
				zap.String("op", "chat.Serve"),
				zap.String("thread", thread),
				zap.Error(err),
			)
			continue
		}
		h.Broadcast(saved)
	}
}

func isClosed(err error) bool {
	var closed wsutil.ClosedError
	return errors.As(err, &closed) || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
