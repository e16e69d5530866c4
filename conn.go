package drawchat

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// WSChannel is a Channel over a client websocket. Writes are serialized.
type WSChannel struct {
	sock   *websocket.Conn
	mux    *sync.Mutex
	closed bool
	logger *log.Entry
}

var dialer = websocket.Dialer{
	ReadBufferSize:   512,
	WriteBufferSize:  512,
	HandshakeTimeout: 10 * time.Second,
}

// DialSession opens the websocket at addr.
func DialSession(ctx context.Context, addr string) (*WSChannel, error) {
	sock, _, err := dialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, err
	}
	return NewWSChannel(sock), nil
}

func NewWSChannel(sock *websocket.Conn) *WSChannel {
	return &WSChannel{
		sock:   sock,
		mux:    new(sync.Mutex),
		logger: log.WithFields(log.Fields{"component": "websocket", "remote": sock.RemoteAddr().String()}),
	}
}

func (c *WSChannel) Send(msg interface{}) error {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.closed {
		return ErrSessionClosed
	}
	return c.sock.WriteJSON(msg)
}

// Close sends a close frame and drops the connection.
func (c *WSChannel) Close() error {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.sock.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		c.logger.WithError(err).Debugln("Can't send close frame")
	}
	return c.sock.Close()
}

func (c *WSChannel) isClosed() bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.closed
}

// Serve dispatches inbound text frames to session until it closes, the
// connection drops or ctx is done. It returns nil when the session closed
// normally.
func (c *WSChannel) Serve(ctx context.Context, session *Session) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-stop:
		}
	}()

	session.Opened()
	for session.State() != StateClosed {
		msgType, data, err := c.sock.ReadMessage()
		if err != nil {
			if session.State() == StateClosed {
				break
			}
			if ctx.Err() != nil {
				err = ctx.Err()
			} else if c.isClosed() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = ErrSessionClosed
			}
			c.Close()
			session.Abort(err)
			return err
		}
		if msgType != websocket.TextMessage {
			c.logger.WithField("type", msgType).Debugln("Ignoring non-text frame")
			continue
		}
		if err := session.HandleMessage(data); err != nil {
			return err
		}
	}
	return session.Err()
}
