package service

import (
	"context"

	"github.com/havenchat/haven-backend/internal/repository"
	"github.com/havenchat/haven-backend/internal/socket"
)

type ChannelService interface {
	CreateChannel(ctx context.Context, serverID, requesterID, name string) (*repository.Channel, error)
	DeleteChannel(ctx context.Context, channelID, requesterID string) error
	ListChannels(ctx context.Context, serverID, requesterID string) ([]*repository.Channel, error)
}

type channelService struct {
	channelRepo repository.ChannelRepository
	serverRepo  repository.ServerRepository
	roleSvc     RoleService
	publisher   EventPublisher
}

func NewChannelService(
	channelRepo repository.ChannelRepository,
	serverRepo repository.ServerRepository,
	roleSvc RoleService,
	publisher EventPublisher,
) ChannelService {
	return &channelService{
		channelRepo: channelRepo,
		serverRepo:  serverRepo,
		roleSvc:     roleSvc,
		publisher:   publisher,
	}
}

func (s *channelService) CreateChannel(ctx context.Context, serverID, requesterID, name string) (*repository.Channel, error) {
	if name == "" {
		return nil, ErrInvalidInput
	}
	server, err := s.serverRepo.FindByID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, ErrServerNotFound
	}
	if err := s.roleSvc.Require(ctx, server, requesterID, PermissionCreateChannel); err != nil {
		return nil, err
	}

	channel := &repository.Channel{
		ServerID: serverID,
		Name:     name,
	}
	if err := s.channelRepo.Create(ctx, channel); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		s.publisher.PublishToServer(serverID, socket.MessageChannelCreated, channelPayload(channel), "")
	}
	return channel, nil
}

func (s *channelService) DeleteChannel(ctx context.Context, channelID, requesterID string) error {
	channel, err := s.channelRepo.FindByID(ctx, channelID)
	if err != nil {
		return err
	}
	if channel == nil {
		return ErrChannelNotFound
	}
	server, err := s.serverRepo.FindByID(ctx, channel.ServerID)
	if err != nil {
		return err
	}
	if server == nil {
		return ErrServerNotFound
	}
	if err := s.roleSvc.Require(ctx, server, requesterID, PermissionDeleteChannel); err != nil {
		return err
	}

	if err := s.channelRepo.Delete(ctx, channelID); err != nil {
		return err
	}

	if s.publisher != nil {
		s.publisher.PublishToServer(channel.ServerID, socket.MessageChannelDeleted, channelPayload(channel), "")
	}
	return nil
}

func (s *channelService) ListChannels(ctx context.Context, serverID, requesterID string) ([]*repository.Channel, error) {
	server, err := s.serverRepo.FindByID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, ErrServerNotFound
	}
	if server.OwnerID != requesterID {
		member, err := s.serverRepo.FindMember(ctx, serverID, requesterID)
		if err != nil {
			return nil, err
		}
		if member == nil {
			return nil, ErrForbidden
		}
	}
	return s.channelRepo.FindByServer(ctx, serverID)
}
