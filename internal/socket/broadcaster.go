package socket

import (
	"fmt"
)

// Broadcaster provides high-level methods for publishing committed state
// transitions to connected clients. Delivery is best-effort and happens
// strictly after the store commit; a failure here never affects state.
type Broadcaster struct {
	hub *Hub
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

// PublishToUser sends an addressed event to every live session of one user.
// Payloads carry the full post-transition record so a client that missed an
// intermediate event can reconcile from the next one plus a re-fetch.
func (b *Broadcaster) PublishToUser(userID string, event MessageType, payload map[string]interface{}) {
	b.hub.SendToUser(userID, event, payload)
}

// PublishToServer broadcasts an event to everyone subscribed to a server's
// room, optionally excluding the acting user.
func (b *Broadcaster) PublishToServer(serverID string, event MessageType, payload map[string]interface{}, excludeUserID string) {
	room := fmt.Sprintf("server:%s", serverID)
	b.hub.SendToRoom(room, event, payload, excludeUserID)
}

// ============================================
// Notification Broadcasting
// ============================================

// SendNotification pushes an inbox notification to a specific user
func (b *Broadcaster) SendNotification(userID string, notification map[string]interface{}) {
	b.hub.SendToUser(userID, MessageNotification, notification)
}

// SendNotificationCount updates notification count for a user
func (b *Broadcaster) SendNotificationCount(userID string, total, unread int) {
	b.hub.SendToUser(userID, MessageNotificationCount, map[string]interface{}{
		"total":  total,
		"unread": unread,
	})
}
