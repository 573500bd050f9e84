package notify

import "time"

// Event represents a tunnel lifecycle notification.
type Event struct {
	Type     string    `json:"type"` // "tunnel.created", "tunnel.create_failed", "tunnel.deleted", "tunnel.delete_failed"
	TunnelID string    `json:"tunnel_id,omitempty"`
	Hostname string    `json:"hostname,omitempty"`
	Message  string    `json:"message,omitempty"`
	Time     time.Time `json:"time"`
}

// Notifier sends tunnel lifecycle notifications.
type Notifier interface {
	Notify(event Event)
}

// Hub dispatches events to multiple notifiers.
type Hub struct {
	notifiers []Notifier
}

// NewHub creates a Hub with the given notifiers.
func NewHub(notifiers ...Notifier) *Hub {
	return &Hub{notifiers: notifiers}
}

// Notify sends an event to all registered notifiers.
func (h *Hub) Notify(event Event) {
	for _, n := range h.notifiers {
		go n.Notify(event)
	}
}
