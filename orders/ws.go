package orders

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans order lifecycle events out to connected dashboard clients.
// All state is owned by the Run goroutine; callers talk to it over
// channels only.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	stop       chan struct{}
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	Send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		stop:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- msg:
				default:
					// Slow consumer; drop it.
					delete(h.clients, client)
					close(client.Send)
				}
			}
		case <-h.stop:
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.stop)
}

// Broadcast queues a payload for every connected client.
func (h *Hub) Broadcast(payload []byte) {
	select {
	case h.broadcast <- payload:
	default:
		log.Println("order hub: broadcast queue full, dropping event")
	}
}

// ServeWS upgrades the connection and parks the client on the hub.
// Manager/admin gating happens at the route.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("order hub: upgrade failed: %v", err)
		return
	}

	client := &Client{hub: h, conn: conn, Send: make(chan []byte, 16)}
	h.register <- client

	go client.writePump()
	client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.Send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
