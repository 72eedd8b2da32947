package service

import (
	"context"
	"time"

	"github.com/havenchat/haven-backend/internal/db"
	"github.com/havenchat/haven-backend/internal/repository"
)

// Profile is the resolved display shape of an opaque user id. Nothing in
// this core ever writes through it.
type Profile struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	AvatarURL *string `json:"avatarUrl"`
	Status    string  `json:"status"`
}

// UserService is the identity directory read path.
type UserService interface {
	ResolveProfile(ctx context.Context, userID string) (*Profile, error)
	ResolveProfiles(ctx context.Context, userIDs []string) (map[string]*Profile, error)
	Search(ctx context.Context, query string) ([]*Profile, error)
	UpdateProfile(ctx context.Context, userID string, username, avatar *string) (*Profile, error)
	SetPresence(ctx context.Context, userID, status string) error
}

type userService struct {
	userRepo repository.UserRepository
	redis    *db.RedisDB
}

func NewUserService(userRepo repository.UserRepository, redis *db.RedisDB) UserService {
	return &userService{userRepo: userRepo, redis: redis}
}

const presenceTTL = 2 * time.Minute

func (s *userService) toProfile(ctx context.Context, user *repository.User) *Profile {
	p := &Profile{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		AvatarURL: user.Avatar,
		Status:    user.Status,
	}
	// Live presence beats the stored status when redis is configured.
	if s.redis != nil {
		if status, err := s.redis.GetPresence(ctx, user.ID); err == nil && status != "" {
			p.Status = status
		}
	}
	return p
}

func (s *userService) ResolveProfile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return s.toProfile(ctx, user), nil
}

func (s *userService) ResolveProfiles(ctx context.Context, userIDs []string) (map[string]*Profile, error) {
	users, err := s.userRepo.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	profiles := make(map[string]*Profile, len(users))
	for _, user := range users {
		profiles[user.ID] = s.toProfile(ctx, user)
	}
	return profiles, nil
}

func (s *userService) Search(ctx context.Context, query string) ([]*Profile, error) {
	users, err := s.userRepo.Search(ctx, query, 20)
	if err != nil {
		return nil, err
	}
	profiles := make([]*Profile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, s.toProfile(ctx, user))
	}
	return profiles, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, username, avatar *string) (*Profile, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if username != nil && *username != "" {
		user.Username = *username
	}
	if avatar != nil {
		user.Avatar = avatar
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.toProfile(ctx, user), nil
}

func (s *userService) SetPresence(ctx context.Context, userID, status string) error {
	if s.redis != nil {
		if status == "offline" {
			_ = s.redis.ClearPresence(ctx, userID)
		} else if err := s.redis.SetPresence(ctx, userID, status, presenceTTL); err != nil {
			return err
		}
	}
	return s.userRepo.UpdateStatus(ctx, userID, status)
}
