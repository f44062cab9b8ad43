package live

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Event is pushed to every client watching an itinerary after one of its
// mutations lands. Clients respond by reloading the schedule; the event
// carries no diff.
type Event struct {
	Action      string `json:"action"`
	ItineraryID string `json:"itineraryid"`
	Timestamp   int64  `json:"timestamp"`
}

type Client struct {
	Conn        *websocket.Conn
	Send        chan []byte
	ItineraryID string
	UserID      string
}

type broadcastMsg struct {
	ItineraryID string
	Data        []byte
}

type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	quit       chan struct{}
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg),
		quit:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.ItineraryID] == nil {
				h.rooms[c.ItineraryID] = make(map[*Client]bool)
			}
			h.rooms[c.ItineraryID][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if conns := h.rooms[c.ItineraryID]; conns != nil {
				if conns[c] {
					delete(conns, c)
					close(c.Send)
				}
			}
			h.mu.Unlock()

		case m := <-h.broadcast:
			h.mu.Lock()
			for c := range h.rooms[m.ItineraryID] {
				select {
				case c.Send <- m.Data:
				default:
					close(c.Send)
					delete(h.rooms[m.ItineraryID], c)
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.quit)
}

// ScheduleChanged notifies every watcher of the itinerary. Safe to call
// from any goroutine, including the mutation queue workers.
func (h *Hub) ScheduleChanged(itineraryID string) {
	event := Event{
		Action:      "schedule_changed",
		ItineraryID: itineraryID,
		Timestamp:   time.Now().Unix(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- broadcastMsg{ItineraryID: itineraryID, Data: data}:
	case <-h.quit:
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// GET /ws/itineraries/:id
func WebSocketHandler(hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		itineraryID := ps.ByName("id")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade:", err)
			return
		}
		client := &Client{
			Conn:        conn,
			Send:        make(chan []byte, 256),
			ItineraryID: itineraryID,
		}

		hub.register <- client
		go writePump(client)
		go readPump(client, hub)
	}
}

func writePump(c *Client) {
	defer c.Conn.Close()
	for msg := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}

// Clients only listen; the read side exists to notice disconnects.
func readPump(c *Client, hub *Hub) {
	defer func() {
		hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}
