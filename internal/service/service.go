package service

import (
	"github.com/havenchat/haven-backend/internal/config"
	"github.com/havenchat/haven-backend/internal/db"
	"github.com/havenchat/haven-backend/internal/email"
	"github.com/havenchat/haven-backend/internal/notification"
	"github.com/havenchat/haven-backend/internal/repository"
	"github.com/havenchat/haven-backend/internal/socket"
)

// EventPublisher is what services need from the real-time transport. The
// socket.Broadcaster satisfies it; tests substitute a recorder. Publishing
// happens only after a successful store commit and is fire-and-forget.
type EventPublisher interface {
	PublishToUser(userID string, event socket.MessageType, payload map[string]interface{})
	PublishToServer(serverID string, event socket.MessageType, payload map[string]interface{}, excludeUserID string)
}

// ============================================
// Services Container
// ============================================

type Services struct {
	Auth       AuthService
	User       UserService
	Friendship FriendshipService
	Server     ServerService
	Role       RoleService
	Invite     InviteService
	Channel    ChannelService

	Broadcaster *socket.Broadcaster
}

// ServiceDeps contains all dependencies needed to create services
type ServiceDeps struct {
	Config      *config.Config
	Repos       *repository.Repositories
	NotifSvc    *notification.Service
	EmailSvc    *email.Service
	Broadcaster *socket.Broadcaster
	Redis       *db.RedisDB
}

func NewServices(deps *ServiceDeps) *Services {
	// RoleService first: the membership and invite flows consult it for
	// every authorization decision.
	roleService := NewRoleService(
		deps.Repos.RoleRepo,
		deps.Repos.ServerRepo,
		deps.Broadcaster,
		deps.NotifSvc,
	)

	serverService := NewServerService(
		deps.Repos.ServerRepo,
		deps.Repos.UserRepo,
		roleService,
		deps.NotifSvc,
		deps.Broadcaster,
	)

	return &Services{
		Auth: NewAuthService(deps.Config, deps.Repos.UserRepo),
		User: NewUserService(deps.Repos.UserRepo, deps.Redis),
		Friendship: NewFriendshipService(
			deps.Repos.FriendshipRepo,
			deps.Repos.UserRepo,
			deps.NotifSvc,
			deps.Broadcaster,
		),
		Server: serverService,
		Role:   roleService,
		Invite: NewInviteService(
			deps.Repos.InviteRepo,
			deps.Repos.ServerRepo,
			deps.Repos.UserRepo,
			roleService,
			deps.NotifSvc,
			deps.EmailSvc,
			deps.Broadcaster,
		),
		Channel: NewChannelService(
			deps.Repos.ChannelRepo,
			deps.Repos.ServerRepo,
			roleService,
			deps.Broadcaster,
		),
		Broadcaster: deps.Broadcaster,
	}
}
