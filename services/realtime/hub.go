package realtimesvc

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/woolzip/backend/core"
)

// Hub fans events out to every websocket connection of a family.
// It implements core.EventPublisher so domain services can broadcast
// without knowing about the transport.
type Hub struct {
	mu       sync.RWMutex
	families map[string]map[*websocket.Conn]bool
	logger   core.Logger
}

var _ core.EventPublisher = (*Hub)(nil)

func NewHub(logger core.Logger) *Hub {
	return &Hub{
		families: make(map[string]map[*websocket.Conn]bool),
		logger:   logger,
	}
}

func (h *Hub) AddConnection(familyID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.families[familyID] == nil {
		h.families[familyID] = make(map[*websocket.Conn]bool)
	}
	h.families[familyID][conn] = true
}

func (h *Hub) RemoveConnection(familyID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.families[familyID]; ok {
		delete(conns, conn)
		conn.Close()
		if len(conns) == 0 {
			delete(h.families, familyID)
		}
	}
}

func (h *Hub) Publish(event core.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.families[event.FamilyID]
	if !ok {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn(fmt.Sprintf("encoding event: %v", err), err)
		return
	}

	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(conns, conn)
		}
	}
}
