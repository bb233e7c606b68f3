package stream

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	sendBuffer = 256
	writeWait  = 5 * time.Second
)

var errSendBufferFull = errors.New("send buffer full")

// Client is one WebSocket connection. Inbound messages drive its own
// subscription set; outbound traffic goes through a buffered send channel so
// a slow reader cannot stall the broadcaster.
type Client struct {
	id     string
	conn   net.Conn
	hub    *Hub
	logger *zap.Logger
	send   chan []byte
	done   chan struct{}
}

func newClient(conn net.Conn, hub *Hub, logger *zap.Logger) *Client {
	return &Client{
		id:     uuid.NewString(),
		conn:   conn,
		hub:    hub,
		logger: logger,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// Send queues a message for the write pump. It fails rather than blocks when
// the connection is gone or the buffer is full.
func (c *Client) Send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return net.ErrClosed
	case c.send <- b:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *Client) start() {
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		close(c.done)
		c.conn.Close()
	}()

	for {
		data, err := wsutil.ReadClientText(c.conn)
		if err != nil {
			// Clean close and peer-vanished both end here; same cleanup.
			c.logger.Debug("read loop ended", zap.String("conn", c.id), zap.Error(err))
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			c.logger.Debug("bad message", zap.String("conn", c.id), zap.Error(err))
			continue
		}

		switch req.Type {
		case TypeSubscribe:
			c.hub.Subscribe(c, req.Symbols)
			_ = c.Send(Ack{Type: TypeSubscribed, Symbols: req.Symbols})
		case TypeUnsubscribe:
			c.hub.Unsubscribe(c, req.Symbols)
			_ = c.Send(Ack{Type: TypeUnsubscribed, Symbols: req.Symbols})
		default:
			c.logger.Debug("unknown message type", zap.String("conn", c.id), zap.String("type", req.Type))
		}
	}
}

func (c *Client) writePump() {
	for {
		select {
		case <-c.done:
			return
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsutil.WriteServerText(c.conn, b); err != nil {
				c.logger.Debug("write failed", zap.String("conn", c.id), zap.Error(err))
				return
			}
		}
	}
}

// Handler upgrades HTTP requests to WebSocket connections and runs them
// against the hub.
type Handler struct {
	Hub    *Hub
	Logger *zap.Logger
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		h.Logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	c := newClient(conn, h.Hub, h.Logger)
	h.Hub.Register(c)
	go c.start()
}
