package service

import (
	"github.com/havenchat/haven-backend/internal/repository"
)

// Socket event payloads carry the full post-transition record, with the same
// field names the REST responses use, so a client can reconcile its state
// from a single message. Contextual keys (who acted, resolved display names)
// are layered on top of the record, never in place of it.

func friendshipPayload(f *repository.Friendship) map[string]interface{} {
	return map[string]interface{}{
		"id":          f.ID,
		"requesterId": f.RequesterID,
		"receiverId":  f.ReceiverID,
		"status":      f.Status,
		"createdAt":   f.CreatedAt,
		"updatedAt":   f.UpdatedAt,
	}
}

func invitePayload(inv *repository.ServerInvite) map[string]interface{} {
	return map[string]interface{}{
		"id":         inv.ID,
		"serverId":   inv.ServerID,
		"fromUserId": inv.FromUserID,
		"toUserId":   inv.ToUserID,
		"status":     inv.Status,
		"createdAt":  inv.CreatedAt,
		"updatedAt":  inv.UpdatedAt,
	}
}

func membershipPayload(m *repository.Membership) map[string]interface{} {
	return map[string]interface{}{
		"id":       m.ID,
		"serverId": m.ServerID,
		"userId":   m.UserID,
		"roleId":   m.RoleID,
		"joinedAt": m.JoinedAt,
	}
}

func rolePayload(r *repository.Role) map[string]interface{} {
	return map[string]interface{}{
		"id":          r.ID,
		"serverId":    r.ServerID,
		"name":        r.Name,
		"color":       r.Color,
		"permissions": r.Permissions,
		"isDefault":   r.IsDefault,
		"createdAt":   r.CreatedAt,
	}
}

func channelPayload(ch *repository.Channel) map[string]interface{} {
	return map[string]interface{}{
		"id":        ch.ID,
		"serverId":  ch.ServerID,
		"name":      ch.Name,
		"createdAt": ch.CreatedAt,
	}
}
