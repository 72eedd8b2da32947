package service

import (
	"context"
	"log"

	"github.com/havenchat/haven-backend/internal/email"
	"github.com/havenchat/haven-backend/internal/notification"
	"github.com/havenchat/haven-backend/internal/repository"
	"github.com/havenchat/haven-backend/internal/socket"
)

// ============================================
// Server Invite Service
// ============================================

// InviteView is a pending invite as its receiver sees it.
type InviteView struct {
	InviteID     string  `json:"inviteId"`
	ServerID     string  `json:"serverId"`
	ServerName   string  `json:"serverName"`
	FromUserID   string  `json:"fromUserId"`
	FromUsername string  `json:"fromUsername"`
	FromAvatar   *string `json:"fromAvatarUrl"`
}

type InviteService interface {
	SendInvite(ctx context.Context, serverID, fromUserID, toUserID string) (*repository.ServerInvite, error)
	AcceptInvite(ctx context.Context, inviteID, userID string) (*repository.Membership, error)
	RejectInvite(ctx context.Context, inviteID, userID string) error
	CancelInvite(ctx context.Context, inviteID, userID string) error
	ListPending(ctx context.Context, userID string) ([]*InviteView, error)
}

type inviteService struct {
	inviteRepo repository.InviteRepository
	serverRepo repository.ServerRepository
	userRepo   repository.UserRepository
	roleSvc    RoleService
	notifSvc   *notification.Service
	emailSvc   *email.Service
	publisher  EventPublisher
}

func NewInviteService(
	inviteRepo repository.InviteRepository,
	serverRepo repository.ServerRepository,
	userRepo repository.UserRepository,
	roleSvc RoleService,
	notifSvc *notification.Service,
	emailSvc *email.Service,
	publisher EventPublisher,
) InviteService {
	return &inviteService{
		inviteRepo: inviteRepo,
		serverRepo: serverRepo,
		userRepo:   userRepo,
		roleSvc:    roleSvc,
		notifSvc:   notifSvc,
		emailSvc:   emailSvc,
		publisher:  publisher,
	}
}

func (s *inviteService) SendInvite(ctx context.Context, serverID, fromUserID, toUserID string) (*repository.ServerInvite, error) {
	server, err := s.serverRepo.FindByID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, ErrServerNotFound
	}

	toUser, err := s.userRepo.FindByID(ctx, toUserID)
	if err != nil {
		return nil, err
	}
	if toUser == nil {
		return nil, ErrPeerNotFound
	}

	// The sender must be a member holding INVITE_MEMBER (or the owner, or a
	// fail-open variant).
	if server.OwnerID != fromUserID {
		sender, err := s.serverRepo.FindMember(ctx, serverID, fromUserID)
		if err != nil {
			return nil, err
		}
		if sender == nil {
			return nil, ErrNotAMember
		}
	}
	if err := s.roleSvc.Require(ctx, server, fromUserID, PermissionInviteMember); err != nil {
		return nil, err
	}

	existing, err := s.serverRepo.FindMember(ctx, serverID, toUserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyMember
	}

	invite := &repository.ServerInvite{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		ServerID:   serverID,
		Status:     repository.StatusPending,
	}
	// One PENDING invite per (receiver, server); the partial unique index
	// settles concurrent sends.
	if err := s.inviteRepo.Create(ctx, invite); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrInviteExists
		}
		return nil, err
	}

	fromUser, err := s.userRepo.FindByID(ctx, fromUserID)
	if err == nil && fromUser != nil {
		if s.publisher != nil {
			payload := invitePayload(invite)
			payload["serverName"] = server.Name
			payload["fromUsername"] = fromUser.Username
			s.publisher.PublishToUser(toUserID, socket.MessageServerInviteReceived, payload)
		}
		if s.notifSvc != nil {
			s.notifSvc.SendServerInvite(ctx, toUserID, fromUser.Username, server.Name, invite.ID)
		}
		if s.emailSvc != nil {
			go func() {
				if err := s.emailSvc.SendServerInvite(toUser.Email, fromUser.Username, server.Name); err != nil {
					log.Printf("[INVITE] Failed to send invite email to %s: %v", toUser.Email, err)
				}
			}()
		}
	}
	return invite, nil
}

func (s *inviteService) AcceptInvite(ctx context.Context, inviteID, userID string) (*repository.Membership, error) {
	invite, err := s.inviteRepo.FindByID(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	if invite == nil {
		return nil, ErrInviteNotFound
	}
	if invite.ToUserID != userID {
		return nil, ErrForbidden
	}

	server, err := s.serverRepo.FindByID(ctx, invite.ServerID)
	if err != nil {
		return nil, err
	}
	if server == nil {
		// The server vanished after the invite was sent; the invite is dead
		// and the cron sweep will reap the row.
		return nil, ErrServerNotFound
	}

	accepted, member, created, err := s.inviteRepo.AcceptAndJoin(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	if accepted == nil {
		// Already terminal. Accepting an accepted invite is a no-op success;
		// accepting a rejected one is a conflict.
		current, err := s.inviteRepo.FindByID(ctx, inviteID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, ErrInviteNotFound
		}
		if current.Status == repository.StatusAccepted {
			existing, err := s.serverRepo.FindMember(ctx, current.ServerID, userID)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, ErrAlreadyResolved
	}

	if s.publisher != nil {
		s.publisher.PublishToUser(accepted.FromUserID, socket.MessageServerInviteAccepted, invitePayload(accepted))
		if created {
			user, err := s.userRepo.FindByID(ctx, userID)
			if err == nil && user != nil {
				payload := membershipPayload(member)
				payload["username"] = user.Username
				s.publisher.PublishToServer(accepted.ServerID, socket.MessageMemberJoined, payload, userID)
			}
		}
	}
	return member, nil
}

func (s *inviteService) RejectInvite(ctx context.Context, inviteID, userID string) error {
	invite, err := s.inviteRepo.FindByID(ctx, inviteID)
	if err != nil {
		return err
	}
	if invite == nil {
		return ErrInviteNotFound
	}
	if invite.ToUserID != userID {
		return ErrForbidden
	}

	rejected, err := s.inviteRepo.UpdateStatusIfPending(ctx, inviteID, repository.StatusRejected)
	if err != nil {
		return err
	}
	if rejected == nil {
		current, err := s.inviteRepo.FindByID(ctx, inviteID)
		if err != nil {
			return err
		}
		if current != nil && current.Status == repository.StatusRejected {
			return nil
		}
		return ErrAlreadyResolved
	}

	if s.publisher != nil {
		s.publisher.PublishToUser(rejected.FromUserID, socket.MessageServerInviteRejected, invitePayload(rejected))
	}
	return nil
}

func (s *inviteService) CancelInvite(ctx context.Context, inviteID, userID string) error {
	deleted, err := s.inviteRepo.DeleteIfPendingFromSender(ctx, inviteID, userID)
	if err != nil {
		return err
	}
	if deleted == nil {
		invite, err := s.inviteRepo.FindByID(ctx, inviteID)
		if err != nil {
			return err
		}
		if invite == nil {
			return ErrInviteNotFound
		}
		if invite.FromUserID != userID {
			return ErrForbidden
		}
		return ErrAlreadyResolved
	}

	if s.publisher != nil {
		s.publisher.PublishToUser(deleted.ToUserID, socket.MessageServerInviteCancelled, invitePayload(deleted))
	}
	return nil
}

func (s *inviteService) ListPending(ctx context.Context, userID string) ([]*InviteView, error) {
	pending, err := s.inviteRepo.FindPendingByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]*InviteView, 0, len(pending))
	for _, p := range pending {
		views = append(views, &InviteView{
			InviteID:     p.Invite.ID,
			ServerID:     p.Invite.ServerID,
			ServerName:   p.ServerName,
			FromUserID:   p.FromUser.ID,
			FromUsername: p.FromUser.Username,
			FromAvatar:   p.FromUser.Avatar,
		})
	}
	return views, nil
}
