// Package realtime pushes events to the open websocket connections of a user.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/apex/log"
)

var ErrBacklogFull = errors.New("realtime: push backlog full")

// Message is the frame written to clients.
type Message struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type directMessage struct {
	userID string
	data   []byte
}

type clientMessage struct {
	client *Client
	data   []byte
}

// Hub keeps one room per user. A client joins its own room after the join handshake.
type Hub struct {
	// Joined clients per user id
	rooms map[string]map[*Client]bool

	// Register requests from clients that completed the handshake
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	direct  chan directMessage
	replies chan clientMessage
	done    chan struct{}

	mutex sync.RWMutex

	connectedClients int
	delivered        int64
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		direct:     make(chan directMessage, 256),
		replies:    make(chan clientMessage),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for _, room := range h.rooms {
				for client := range room {
					client.close()
				}
			}
			h.rooms = make(map[string]map[*Client]bool)
			h.connectedClients = 0
			h.mutex.Unlock()
			return

		case client := <-h.Register:
			h.mutex.Lock()
			room, ok := h.rooms[client.userID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[client.userID] = room
			}
			room[client] = true
			h.connectedClients++
			h.mutex.Unlock()
			log.WithFields(log.Fields{"user": client.userID, "clients": h.connectedClients}).Debug("client joined")

		case client := <-h.Unregister:
			h.mutex.Lock()
			h.remove(client)
			client.close()
			h.mutex.Unlock()

		case msg := <-h.replies:
			if msg.client.closed {
				break
			}
			select {
			case msg.client.send <- msg.data:
			default:
			}

		case msg := <-h.direct:
			h.mutex.Lock()
			for client := range h.rooms[msg.userID] {
				select {
				case client.send <- msg.data:
					h.delivered++
				default:
					h.remove(client)
					client.close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// remove must be called with the mutex held.
func (h *Hub) remove(client *Client) {
	room, ok := h.rooms[client.userID]
	if !ok || !room[client] {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.userID)
	}
	h.connectedClients--
}

// PushToUser queues event for every connection of userID. Users without a
// connection are skipped silently.
func (h *Hub) PushToUser(userID string, event string, payload interface{}) error {
	data, err := json.Marshal(Message{Event: event, Data: payload, Timestamp: time.Now()})
	if err != nil {
		return err
	}
	select {
	case h.direct <- directMessage{userID: userID, data: data}:
		return nil
	case <-h.done:
		return nil
	default:
		return ErrBacklogFull
	}
}

// Online reports whether userID has a joined connection.
func (h *Hub) Online(userID string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[userID]) > 0
}

// GetStats returns the number of joined connections and delivered frames.
func (h *Hub) GetStats() (int, int64) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.connectedClients, h.delivered
}
