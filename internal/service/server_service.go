package service

import (
	"context"

	"github.com/havenchat/haven-backend/internal/notification"
	"github.com/havenchat/haven-backend/internal/repository"
	"github.com/havenchat/haven-backend/internal/socket"
)

// ============================================
// Server Service
// ============================================

type ServerService interface {
	Create(ctx context.Context, ownerID, name string, description *string) (*repository.Server, error)
	Get(ctx context.Context, serverID, requesterID string) (*repository.Server, error)
	ListByUser(ctx context.Context, userID string) ([]*repository.Server, error)
	Update(ctx context.Context, serverID, requesterID string, name *string, description *string) (*repository.Server, error)
	Delete(ctx context.Context, serverID, requesterID string) error

	Join(ctx context.Context, serverID, userID string) (*repository.Membership, error)
	Leave(ctx context.Context, serverID, userID string) error
	RemoveMember(ctx context.Context, serverID, targetUserID, requesterID string) error
	ListMembers(ctx context.Context, serverID, requesterID string) ([]*repository.Membership, error)
}

type serverService struct {
	serverRepo repository.ServerRepository
	userRepo   repository.UserRepository
	roleSvc    RoleService
	notifSvc   *notification.Service
	publisher  EventPublisher
}

func NewServerService(
	serverRepo repository.ServerRepository,
	userRepo repository.UserRepository,
	roleSvc RoleService,
	notifSvc *notification.Service,
	publisher EventPublisher,
) ServerService {
	return &serverService{
		serverRepo: serverRepo,
		userRepo:   userRepo,
		roleSvc:    roleSvc,
		notifSvc:   notifSvc,
		publisher:  publisher,
	}
}

func (s *serverService) Create(ctx context.Context, ownerID, name string, description *string) (*repository.Server, error) {
	if name == "" {
		return nil, ErrInvalidInput
	}
	owner, err := s.userRepo.FindByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, ErrUserNotFound
	}

	server := &repository.Server{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
	}
	// Server, Admin/Member defaults and the owner's membership land in one
	// transaction; a half-created server is never observable.
	if err := s.serverRepo.CreateWithDefaults(ctx, server, DefaultRoles()); err != nil {
		return nil, err
	}
	return server, nil
}

func (s *serverService) Get(ctx context.Context, serverID, requesterID string) (*repository.Server, error) {
	server, err := s.serverRepo.FindByID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, ErrServerNotFound
	}
	if err := s.requireMember(ctx, server, requesterID); err != nil {
		return nil, err
	}
	return server, nil
}

func (s *serverService) ListByUser(ctx context.Context, userID string) ([]*repository.Server, error) {
	return s.serverRepo.FindByUserID(ctx, userID)
}

func (s *serverService) Update(ctx context.Context, serverID, requesterID string, name *string, description *string) (*repository.Server, error) {
	server, err := s.serverRepo.FindByID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, ErrServerNotFound
	}
	if server.OwnerID != requesterID {
		return nil, ErrForbidden
	}

	if name != nil && *name != "" {
		server.Name = *name
	}
	if description != nil {
		server.Description = description
	}
	if err := s.serverRepo.Update(ctx, server); err != nil {
		return nil, err
	}
	return server, nil
}

func (s *serverService) Delete(ctx context.Context, serverID, requesterID string) error {
	server, err := s.serverRepo.FindByID(ctx, serverID)
	if err != nil {
		return err
	}
	if server == nil {
		return ErrServerNotFound
	}
	if server.OwnerID != requesterID {
		if err := s.roleSvc.Require(ctx, server, requesterID, PermissionDeleteServer); err != nil {
			return err
		}
	}

	if err := s.serverRepo.Delete(ctx, serverID); err != nil {
		return err
	}

	if s.publisher != nil {
		s.publisher.PublishToServer(serverID, socket.MessageServerDeleted, map[string]interface{}{
			"serverId": serverID,
		}, "")
	}
	return nil
}

func (s *serverService) Join(ctx context.Context, serverID, userID string) (*repository.Membership, error) {
	server, err := s.serverRepo.FindByID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, ErrServerNotFound
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	member, created, err := s.serverRepo.AddMember(ctx, serverID, userID)
	if err != nil {
		return nil, err
	}
	if created && s.publisher != nil {
		payload := membershipPayload(member)
		payload["username"] = user.Username
		s.publisher.PublishToServer(serverID, socket.MessageMemberJoined, payload, userID)
	}
	return member, nil
}

func (s *serverService) Leave(ctx context.Context, serverID, userID string) error {
	server, err := s.serverRepo.FindByID(ctx, serverID)
	if err != nil {
		return err
	}
	if server == nil {
		return ErrServerNotFound
	}
	if server.OwnerID == userID {
		// Ownership transfer is not supported; owners delete instead.
		return ErrOwnerCannotLeave
	}

	removed, err := s.serverRepo.RemoveMember(ctx, serverID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotAMember
	}

	if s.publisher != nil {
		s.publisher.PublishToServer(serverID, socket.MessageMemberLeft, map[string]interface{}{
			"serverId": serverID,
			"userId":   userID,
		}, userID)
	}
	return nil
}

func (s *serverService) RemoveMember(ctx context.Context, serverID, targetUserID, requesterID string) error {
	server, err := s.serverRepo.FindByID(ctx, serverID)
	if err != nil {
		return err
	}
	if server == nil {
		return ErrServerNotFound
	}
	if server.OwnerID == targetUserID {
		return ErrCannotRemoveOwner
	}
	if server.OwnerID != requesterID {
		if err := s.roleSvc.Require(ctx, server, requesterID, PermissionRemoveMember); err != nil {
			return err
		}
	}

	removed, err := s.serverRepo.RemoveMember(ctx, serverID, targetUserID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotAMember
	}

	if s.publisher != nil {
		s.publisher.PublishToServer(serverID, socket.MessageMemberRemoved, map[string]interface{}{
			"serverId":  serverID,
			"userId":    targetUserID,
			"removedBy": requesterID,
		}, "")
		s.publisher.PublishToUser(targetUserID, socket.MessageMemberRemoved, map[string]interface{}{
			"serverId":   serverID,
			"serverName": server.Name,
		})
	}
	if s.notifSvc != nil {
		s.notifSvc.SendRemovedFromServer(ctx, targetUserID, server.Name)
	}
	return nil
}

func (s *serverService) ListMembers(ctx context.Context, serverID, requesterID string) ([]*repository.Membership, error) {
	server, err := s.serverRepo.FindByID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, ErrServerNotFound
	}
	if err := s.requireMember(ctx, server, requesterID); err != nil {
		return nil, err
	}
	return s.serverRepo.FindMembers(ctx, serverID)
}

func (s *serverService) requireMember(ctx context.Context, server *repository.Server, userID string) error {
	if server.OwnerID == userID {
		return nil
	}
	member, err := s.serverRepo.FindMember(ctx, server.ID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return ErrForbidden
	}
	return nil
}
