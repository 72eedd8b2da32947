package service

import (
	"context"
	"time"

	"github.com/havenchat/haven-backend/internal/notification"
	"github.com/havenchat/haven-backend/internal/repository"
	"github.com/havenchat/haven-backend/internal/socket"
)

// ============================================
// Friendship Service
// ============================================

// Friend is an accepted friendship seen from one side of the pair.
type Friend struct {
	FriendshipID string    `json:"friendshipId"`
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	Avatar       *string   `json:"avatarUrl"`
	Status       string    `json:"status"`
	Since        time.Time `json:"since"`
}

// PendingRequest is an incoming PENDING request seen by its receiver.
type PendingRequest struct {
	FriendshipID string    `json:"friendshipId"`
	RequesterID  string    `json:"requesterId"`
	Username     string    `json:"username"`
	Avatar       *string   `json:"avatarUrl"`
	CreatedAt    time.Time `json:"createdAt"`
}

type FriendshipService interface {
	SendRequest(ctx context.Context, requesterID, receiverID string) (*repository.Friendship, error)
	Respond(ctx context.Context, friendshipID, responderID string, accept bool) (*repository.Friendship, error)
	Cancel(ctx context.Context, friendshipID, requesterID string) error
	Remove(ctx context.Context, friendshipID, userID string) error
	ListFriends(ctx context.Context, userID string) ([]*Friend, error)
	ListPending(ctx context.Context, userID string) ([]*PendingRequest, error)
}

type friendshipService struct {
	friendshipRepo repository.FriendshipRepository
	userRepo       repository.UserRepository
	notifSvc       *notification.Service
	publisher      EventPublisher
}

func NewFriendshipService(
	friendshipRepo repository.FriendshipRepository,
	userRepo repository.UserRepository,
	notifSvc *notification.Service,
	publisher EventPublisher,
) FriendshipService {
	return &friendshipService{
		friendshipRepo: friendshipRepo,
		userRepo:       userRepo,
		notifSvc:       notifSvc,
		publisher:      publisher,
	}
}

func (s *friendshipService) SendRequest(ctx context.Context, requesterID, receiverID string) (*repository.Friendship, error) {
	if requesterID == receiverID {
		return nil, ErrSelfRequest
	}

	receiver, err := s.userRepo.FindByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, ErrPeerNotFound
	}

	// Cheap pre-check for a friendlier error; the partial unique index on
	// the sorted pair is what actually enforces uniqueness under races.
	existing, err := s.friendshipRepo.FindLiveByPair(ctx, requesterID, receiverID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrRequestExists
	}

	friendship := &repository.Friendship{
		RequesterID: requesterID,
		ReceiverID:  receiverID,
		Status:      repository.StatusPending,
	}
	if err := s.friendshipRepo.Create(ctx, friendship); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrRequestExists
		}
		return nil, err
	}

	requester, err := s.userRepo.FindByID(ctx, requesterID)
	if err == nil && requester != nil {
		if s.publisher != nil {
			payload := friendshipPayload(friendship)
			payload["username"] = requester.Username
			payload["avatarUrl"] = requester.Avatar
			s.publisher.PublishToUser(receiverID, socket.MessageFriendRequestReceived, payload)
		}
		if s.notifSvc != nil {
			s.notifSvc.SendFriendRequest(ctx, receiverID, requester.Username, friendship.ID)
		}
	}
	return friendship, nil
}

func (s *friendshipService) Respond(ctx context.Context, friendshipID, responderID string, accept bool) (*repository.Friendship, error) {
	friendship, err := s.friendshipRepo.FindByID(ctx, friendshipID)
	if err != nil {
		return nil, err
	}
	if friendship == nil {
		return nil, ErrRequestNotFound
	}
	if friendship.ReceiverID != responderID {
		// Only the receiver resolves a request; the requester withdraws via
		// Cancel instead.
		return nil, ErrForbidden
	}

	target := repository.StatusRejected
	if accept {
		target = repository.StatusAccepted
	}

	updated, err := s.friendshipRepo.UpdateStatusIfPending(ctx, friendshipID, target)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// Lost the race or repeated the call. Re-read to tell the two apart:
		// same terminal status is an idempotent success, a different one is
		// a real conflict.
		current, err := s.friendshipRepo.FindByID(ctx, friendshipID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, ErrRequestNotFound
		}
		if current.Status == target {
			return current, nil
		}
		return nil, ErrAlreadyResolved
	}

	if s.publisher != nil {
		payload := friendshipPayload(updated)
		payload["responderId"] = responderID
		s.publisher.PublishToUser(updated.RequesterID, socket.MessageFriendRequestResponded, payload)
	}
	if s.notifSvc != nil && accept {
		responder, err := s.userRepo.FindByID(ctx, responderID)
		if err == nil && responder != nil {
			s.notifSvc.SendFriendRequestAccepted(ctx, updated.RequesterID, responder.Username)
		}
	}
	return updated, nil
}

func (s *friendshipService) Cancel(ctx context.Context, friendshipID, requesterID string) error {
	deleted, err := s.friendshipRepo.DeleteIfPendingFromRequester(ctx, friendshipID, requesterID)
	if err != nil {
		return err
	}
	if deleted == nil {
		friendship, err := s.friendshipRepo.FindByID(ctx, friendshipID)
		if err != nil {
			return err
		}
		if friendship == nil {
			return ErrRequestNotFound
		}
		if friendship.RequesterID != requesterID {
			return ErrForbidden
		}
		return ErrAlreadyResolved
	}

	if s.publisher != nil {
		s.publisher.PublishToUser(deleted.ReceiverID, socket.MessageFriendRequestCancelled, friendshipPayload(deleted))
	}
	return nil
}

func (s *friendshipService) Remove(ctx context.Context, friendshipID, userID string) error {
	friendship, err := s.friendshipRepo.FindByID(ctx, friendshipID)
	if err != nil {
		return err
	}
	if friendship == nil {
		return ErrRequestNotFound
	}
	if friendship.RequesterID != userID && friendship.ReceiverID != userID {
		return ErrForbidden
	}

	deleted, err := s.friendshipRepo.DeleteIfAccepted(ctx, friendshipID)
	if err != nil {
		return err
	}
	if deleted == nil {
		// The row exists but is not ACCEPTED; removal only applies to
		// established friendships.
		return ErrRequestNotFound
	}

	if s.publisher != nil {
		payload := friendshipPayload(deleted)
		payload["removedBy"] = userID
		s.publisher.PublishToUser(deleted.RequesterID, socket.MessageFriendshipRemoved, payload)
		s.publisher.PublishToUser(deleted.ReceiverID, socket.MessageFriendshipRemoved, payload)
	}
	return nil
}

func (s *friendshipService) ListFriends(ctx context.Context, userID string) ([]*Friend, error) {
	friendships, err := s.friendshipRepo.FindAcceptedByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(friendships) == 0 {
		return []*Friend{}, nil
	}

	peerIDs := make([]string, 0, len(friendships))
	for _, f := range friendships {
		peerIDs = append(peerIDs, peerOf(f, userID))
	}
	users, err := s.userRepo.FindByIDs(ctx, peerIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*repository.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	friends := make([]*Friend, 0, len(friendships))
	for _, f := range friendships {
		peer, ok := byID[peerOf(f, userID)]
		if !ok {
			continue
		}
		friends = append(friends, &Friend{
			FriendshipID: f.ID,
			UserID:       peer.ID,
			Username:     peer.Username,
			Avatar:       peer.Avatar,
			Status:       peer.Status,
			Since:        f.UpdatedAt,
		})
	}
	return friends, nil
}

func (s *friendshipService) ListPending(ctx context.Context, userID string) ([]*PendingRequest, error) {
	friendships, err := s.friendshipRepo.FindPendingByReceiver(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(friendships) == 0 {
		return []*PendingRequest{}, nil
	}

	requesterIDs := make([]string, 0, len(friendships))
	for _, f := range friendships {
		requesterIDs = append(requesterIDs, f.RequesterID)
	}
	users, err := s.userRepo.FindByIDs(ctx, requesterIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*repository.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	pending := make([]*PendingRequest, 0, len(friendships))
	for _, f := range friendships {
		requester, ok := byID[f.RequesterID]
		if !ok {
			continue
		}
		pending = append(pending, &PendingRequest{
			FriendshipID: f.ID,
			RequesterID:  requester.ID,
			Username:     requester.Username,
			Avatar:       requester.Avatar,
			CreatedAt:    f.CreatedAt,
		})
	}
	return pending, nil
}

// peerOf returns the other side of a friendship relative to userID.
func peerOf(f *repository.Friendship, userID string) string {
	if f.RequesterID == userID {
		return f.ReceiverID
	}
	return f.RequesterID
}
