package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // must be < pongWait
	closeGrace = 250 * time.Millisecond
)

// Conn is the outbound side of a client connection as seen by sessions and
// rooms. Send must never block.
type Conn interface {
	Send(msg []byte) error
	Close() error
}

// clientConn queues frames for a single writer goroutine so that a slow peer
// never stalls the broadcaster.
type clientConn struct {
	rawConn   *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClientConn(raw *websocket.Conn, buffer int) *clientConn {
	return &clientConn{
		rawConn: raw,
		send:    make(chan []byte, buffer),
		done:    make(chan struct{}),
	}
}

func (c *clientConn) Send(msg []byte) error {
	if c.closed() {
		return ErrConnClosed
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSlowConsumer
	}
}

// Close never blocks. The write pump sends the close frame; the socket is torn
// down after closeGrace either way.
func (c *clientConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		time.AfterFunc(closeGrace, func() { _ = c.rawConn.Close() })
	})
	return nil
}

func (c *clientConn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *clientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.rawConn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(closeGrace))
			_ = c.rawConn.Close()
			return
		case msg := <-c.send:
			_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.rawConn.WriteMessage(websocket.TextMessage, msg); err != nil {
				zap.L().Debug("ws.write", zap.Error(err))
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.rawConn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}
