package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client is one websocket connection of an authenticated user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string

	joined bool // read goroutine only
	closed bool // hub goroutine only
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{hub: hub, conn: conn, send: make(chan []byte, 64), userID: userID}
}

// close must be called from the hub goroutine.
func (c *Client) close() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ReadPump handles the join handshake and keeps the connection alive.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.Unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).WithField("user", c.userID).Warn("websocket closed unexpectedly")
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Event != "join" {
			continue
		}

		var room string
		if err := json.Unmarshal(msg.Data, &room); err != nil || room != c.userID {
			c.reply(Message{Event: "error", Data: "cannot join another user's channel"})
			continue
		}
		if c.joined {
			continue
		}
		c.joined = true
		select {
		case c.hub.Register <- c:
		case <-c.hub.done:
			return
		}
		c.reply(Message{Event: "joined", Data: c.userID})
	}
}

// reply queues a frame for this connection only. The hub owns send, so the
// frame goes through it and is dropped once the client is closed.
func (c *Client) reply(m Message) {
	m.Timestamp = time.Now()
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	select {
	case c.hub.replies <- clientMessage{client: c, data: data}:
	case <-c.hub.done:
	}
}

// WritePump writes queued frames and pings until send is closed.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// SetAllowedOrigins restricts upgrades to the given origins. An empty list or "*" allows all.
func SetAllowedOrigins(origins []string) {
	allowed := map[string]bool{}
	for _, o := range origins {
		if o == "*" {
			allowed = nil
			break
		}
		allowed[o] = true
	}
	upgrader.CheckOrigin = func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		return allowed[r.Header.Get("Origin")]
	}
}

// ServeWs upgrades the request and starts the pumps for userID's connection.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(hub, conn, userID)
	go client.WritePump()
	go client.ReadPump()
	return nil
}
