// Package ws streams a server's audit log to websocket subscribers. Each
// managed server gets its own hub; the registry publishes every appended
// entry and new subscribers receive a backlog before the live stream.
package ws

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"omlethub/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type subscription struct {
	client  *Client
	backlog [][]byte
}

type Hub struct {
	clients     map[*Client]bool
	broadcast   chan []byte
	subscribe   chan subscription
	unsubscribe chan *Client
	stop        chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		broadcast:   make(chan []byte, 256),
		subscribe:   make(chan subscription, 8),
		unsubscribe: make(chan *Client),
		stop:        make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.subscribe:
			for _, msg := range sub.backlog {
				select {
				case sub.client.send <- msg:
				default:
				}
			}
			h.clients[sub.client] = true

		case client := <-h.unsubscribe:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}

		case <-h.stop:
			for client := range h.clients {
				close(client.send)
			}
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.stop)
}

// Publish fans an audit entry out to all subscribers. Never blocks the
// caller: the entry is dropped when the hub's queue is full.
func (h *Hub) Publish(entry domain.LogEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

// ServeWs upgrades the request and attaches the client, replaying the given
// backlog of audit entries first.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request, backlog []domain.LogEntry) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256)}

	encoded := make([][]byte, 0, len(backlog))
	for _, entry := range backlog {
		data, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		encoded = append(encoded, data)
	}

	go client.writePump()
	go client.readPump()

	h.subscribe <- subscription{client: client, backlog: encoded}
}
