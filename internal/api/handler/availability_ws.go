package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LotAvailabilityEvent is pushed to every connected dashboard whenever
// an allocation or release commits.
type LotAvailabilityEvent struct {
	Type           string `json:"type"`
	LotID          int    `json:"lot_id"`
	AvailableSpots int    `json:"available_spots"`
	MaximumSpots   int    `json:"maximum_spots"`
}

// AvailabilityHub fans lot availability changes out to websocket
// clients. Publishing never blocks: when the broadcast buffer is full
// the event is dropped, a fresh snapshot follows with the next change.
type AvailabilityHub struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	mutex      sync.RWMutex
}

func NewAvailabilityHub() *AvailabilityHub {
	return &AvailabilityHub{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan []byte, 16),
	}
}

func (h *AvailabilityHub) Start() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			log.Printf("availability client connected, total: %d", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			log.Printf("availability client disconnected, total: %d", total)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					log.Printf("error writing to availability client: %v", err)
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// NotifyLotAvailability implements service.AvailabilityNotifier.
func (h *AvailabilityHub) NotifyLotAvailability(lotID, available, maximum int) {
	event := LotAvailabilityEvent{
		Type:           "lot_availability",
		LotID:          lotID,
		AvailableSpots: available,
		MaximumSpots:   maximum,
	}
	message, err := json.Marshal(event)
	if err != nil {
		log.Printf("error marshaling availability event: %v", err)
		return
	}

	select {
	case h.broadcast <- message:
	default:
		log.Println("availability broadcast channel full, dropping event")
	}
}

type AvailabilityWSHandler struct {
	hub *AvailabilityHub
}

func NewAvailabilityWSHandler(hub *AvailabilityHub) *AvailabilityWSHandler {
	return &AvailabilityWSHandler{hub: hub}
}

// GET /ws
func (h *AvailabilityWSHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("failed to upgrade to websocket: %v", err)
		return
	}

	h.hub.register <- conn

	go func() {
		defer func() {
			h.hub.unregister <- conn
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("availability websocket error: %v", err)
				}
				break
			}
		}
	}()
}
