package ws

import (
	"sync"

	"omlethub/internal/domain"
)

// HubManager lazily creates one hub per server and implements the registry's
// log sink: entries for servers nobody subscribed to are dropped.
type HubManager struct {
	hubs map[string]*Hub
	mu   sync.Mutex
}

func NewHubManager() *HubManager {
	return &HubManager{
		hubs: make(map[string]*Hub),
	}
}

func (m *HubManager) GetHub(serverID string) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[serverID]; ok {
		return hub
	}

	hub := NewHub()
	go hub.Run()
	m.hubs[serverID] = hub
	return hub
}

func (m *HubManager) RemoveHub(serverID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[serverID]; ok {
		hub.Stop()
		delete(m.hubs, serverID)
	}
}

// PublishLog satisfies fleet.LogSink.
func (m *HubManager) PublishLog(serverID string, entry domain.LogEntry) {
	m.mu.Lock()
	hub, ok := m.hubs[serverID]
	m.mu.Unlock()

	if ok {
		hub.Publish(entry)
	}
}
