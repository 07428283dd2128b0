package model

// -----------------------------------------------------------------
// Monitor API Response Models
// -----------------------------------------------------------------

// MonitorResponse is the main response for the monitor API
type MonitorResponse struct {
	Status      string          `json:"status"`      // "healthy", "idle"
	Connections ConnectionStats `json:"connections"` // Client connection stats
	Topics      TopicStats      `json:"topics"`      // Fanout topic stats
	Clients     []ClientInfo    `json:"clients"`     // List of connected clients
}

// ConnectionStats holds connection-related statistics
type ConnectionStats struct {
	TotalConnections int `json:"totalConnections"` // Open websocket connections
	UniqueUsers      int `json:"uniqueUsers"`      // Distinct authenticated users
}

// TopicStats holds fanout subscription statistics
type TopicStats struct {
	TotalTopics        int            `json:"totalTopics"`        // Topics with at least one subscriber
	TotalSubscriptions int            `json:"totalSubscriptions"` // Sum of subscribers over all topics
	SubscribersByTopic map[string]int `json:"subscribersByTopic"` // Per-topic subscriber counts
}

// ClientInfo contains information about a connected client
type ClientInfo struct {
	ClientID string   `json:"clientId"`
	UserID   string   `json:"userId"`
	Topics   []string `json:"topics"` // Topics this connection is subscribed to
}
