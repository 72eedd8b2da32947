package notification

import (
	"context"
	"fmt"

	"github.com/havenchat/haven-backend/internal/repository"
	"github.com/havenchat/haven-backend/internal/socket"
)

// Notification types
const (
	TypeFriendRequest         = "FRIEND_REQUEST"
	TypeFriendRequestAccepted = "FRIEND_REQUEST_ACCEPTED"
	TypeServerInvite          = "SERVER_INVITE"
	TypeRoleAssigned          = "ROLE_ASSIGNED"
	TypeRemovedFromServer     = "REMOVED_FROM_SERVER"
)

// Service persists inbox notifications and mirrors them to live sessions.
// The inbox is the durable copy; the websocket push is best-effort.
type Service struct {
	notificationRepo repository.NotificationRepository
	broadcaster      *socket.Broadcaster
}

// NewService creates a new notification service
func NewService(notificationRepo repository.NotificationRepository) *Service {
	return &Service{notificationRepo: notificationRepo}
}

// SetBroadcaster wires the websocket broadcaster; set after the hub starts.
func (s *Service) SetBroadcaster(b *socket.Broadcaster) {
	s.broadcaster = b
}

// ============================================
// WebSocket Helper
// ============================================

func (s *Service) pushToSocket(ctx context.Context, notification *repository.Notification) {
	if s.broadcaster == nil || notification == nil {
		return
	}

	s.broadcaster.SendNotification(notification.UserID, map[string]interface{}{
		"id":        notification.ID,
		"type":      notification.Type,
		"title":     notification.Title,
		"message":   notification.Message,
		"data":      notification.Data,
		"read":      notification.Read,
		"createdAt": notification.CreatedAt,
	})

	if total, unread, err := s.notificationRepo.CountByUserID(ctx, notification.UserID); err == nil {
		s.broadcaster.SendNotificationCount(notification.UserID, total, unread)
	}
}

func (s *Service) create(ctx context.Context, notification *repository.Notification) error {
	if notification.UserID == "" {
		return nil
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		return err
	}
	s.pushToSocket(ctx, notification)
	return nil
}

// ============================================
// Relationship Notifications
// ============================================

// SendFriendRequest notifies a user of an incoming friend request.
func (s *Service) SendFriendRequest(ctx context.Context, userID, fromUsername, friendshipID string) error {
	return s.create(ctx, &repository.Notification{
		UserID:  userID,
		Type:    TypeFriendRequest,
		Title:   "Friend Request",
		Message: fmt.Sprintf("%s sent you a friend request", fromUsername),
		Data: map[string]interface{}{
			"friendshipId": friendshipID,
			"action":       "view_requests",
		},
	})
}

// SendFriendRequestAccepted notifies the original requester of acceptance.
func (s *Service) SendFriendRequestAccepted(ctx context.Context, userID, byUsername string) error {
	return s.create(ctx, &repository.Notification{
		UserID:  userID,
		Type:    TypeFriendRequestAccepted,
		Title:   "Friend Request Accepted",
		Message: fmt.Sprintf("%s accepted your friend request", byUsername),
		Data: map[string]interface{}{
			"action": "view_friends",
		},
	})
}

// ============================================
// Server Notifications
// ============================================

// SendServerInvite notifies a user of an incoming server invite.
func (s *Service) SendServerInvite(ctx context.Context, userID, fromUsername, serverName, inviteID string) error {
	return s.create(ctx, &repository.Notification{
		UserID:  userID,
		Type:    TypeServerInvite,
		Title:   "Server Invite",
		Message: fmt.Sprintf("%s invited you to join %s", fromUsername, serverName),
		Data: map[string]interface{}{
			"inviteId": inviteID,
			"action":   "view_invites",
		},
	})
}

// SendRoleAssigned notifies a member that they were given a role.
func (s *Service) SendRoleAssigned(ctx context.Context, userID, serverName, roleName, serverID string) error {
	return s.create(ctx, &repository.Notification{
		UserID:  userID,
		Type:    TypeRoleAssigned,
		Title:   "Role Assigned",
		Message: fmt.Sprintf("You are now %s in %s", roleName, serverName),
		Data: map[string]interface{}{
			"serverId": serverID,
			"action":   "view_server",
		},
	})
}

// SendRemovedFromServer notifies a user that they were removed from a server.
func (s *Service) SendRemovedFromServer(ctx context.Context, userID, serverName string) error {
	return s.create(ctx, &repository.Notification{
		UserID:  userID,
		Type:    TypeRemovedFromServer,
		Title:   "Removed From Server",
		Message: fmt.Sprintf("You were removed from %s", serverName),
		Data:    map[string]interface{}{},
	})
}

// ============================================
// Inbox (for handlers)
// ============================================

func (s *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]*repository.Notification, error) {
	return s.notificationRepo.FindByUserID(ctx, userID, unreadOnly)
}

func (s *Service) Count(ctx context.Context, userID string) (total int, unread int, err error) {
	return s.notificationRepo.CountByUserID(ctx, userID)
}

func (s *Service) MarkAsRead(ctx context.Context, userID, id string) error {
	notification, err := s.notificationRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if notification == nil || notification.UserID != userID {
		return nil
	}
	return s.notificationRepo.MarkAsRead(ctx, id)
}

func (s *Service) MarkAllAsRead(ctx context.Context, userID string) error {
	return s.notificationRepo.MarkAllAsRead(ctx, userID)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	notification, err := s.notificationRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if notification == nil || notification.UserID != userID {
		return nil
	}
	return s.notificationRepo.Delete(ctx, id)
}

func (s *Service) DeleteAll(ctx context.Context, userID string) error {
	return s.notificationRepo.DeleteAll(ctx, userID)
}
