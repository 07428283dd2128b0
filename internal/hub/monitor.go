package hub

import (
	"sort"

	"github.com/krrishamadhavtech-bit/LiveChatting/internal/model"
)

// MonitorService provides methods to gather hub statistics
type MonitorService struct {
	hub *Hub
}

// NewMonitorService creates a new monitor service
func NewMonitorService(hub *Hub) *MonitorService {
	return &MonitorService{hub: hub}
}

// GetStats gathers and returns all hub statistics
func (ms *MonitorService) GetStats() model.MonitorResponse {
	connectionStats, clients := ms.getConnections()
	topicStats := ms.getTopicStats()

	// Determine overall health status
	status := "healthy"
	if connectionStats.TotalConnections == 0 {
		status = "idle"
	}

	return model.MonitorResponse{
		Status:      status,
		Connections: connectionStats,
		Topics:      topicStats,
		Clients:     clients,
	}
}

// getConnections returns connection statistics and the client list
func (ms *MonitorService) getConnections() (model.ConnectionStats, []model.ClientInfo) {
	ms.hub.clientsMu.RLock()
	defer ms.hub.clientsMu.RUnlock()

	stats := model.ConnectionStats{
		UniqueUsers: len(ms.hub.clients),
	}

	clients := make([]model.ClientInfo, 0)
	for userID, conns := range ms.hub.clients {
		stats.TotalConnections += len(conns)
		for _, client := range conns {
			clients = append(clients, model.ClientInfo{
				ClientID: client.ID,
				UserID:   userID,
				Topics:   client.topics(),
			})
		}
	}

	// stable output for dashboards
	sort.Slice(clients, func(i, j int) bool {
		if clients[i].UserID != clients[j].UserID {
			return clients[i].UserID < clients[j].UserID
		}
		return clients[i].ClientID < clients[j].ClientID
	})

	return stats, clients
}

// getTopicStats returns fanout subscription statistics
func (ms *MonitorService) getTopicStats() model.TopicStats {
	byTopic := ms.hub.broker.SubscriberCount()

	stats := model.TopicStats{
		TotalTopics:        len(byTopic),
		SubscribersByTopic: byTopic,
	}
	for _, n := range byTopic {
		stats.TotalSubscriptions += n
	}

	return stats
}

// topics returns a sorted list of the topics this connection subscribes to.
func (c *Client) topics() []string {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	topics := make([]string, 0, len(c.subs))
	for topic := range c.subs {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}
