package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repositories struct {
	UserRepo         UserRepository
	FriendshipRepo   FriendshipRepository
	ServerRepo       ServerRepository
	RoleRepo         RoleRepository
	InviteRepo       InviteRepository
	ChannelRepo      ChannelRepository
	NotificationRepo NotificationRepository
}

func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepo:         NewUserRepository(pool),
		FriendshipRepo:   NewFriendshipRepository(pool),
		ServerRepo:       NewServerRepository(pool),
		RoleRepo:         NewRoleRepository(pool),
		InviteRepo:       NewInviteRepository(pool),
		ChannelRepo:      NewChannelRepository(pool),
		NotificationRepo: NewNotificationRepository(pool),
	}
}
