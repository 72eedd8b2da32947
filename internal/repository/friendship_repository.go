package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Friendship is directed at creation (requester -> receiver) but means an
// unordered pair once ACCEPTED. A partial unique index on the sorted pair
// keeps at most one non-REJECTED row per pair, in either direction.
type Friendship struct {
	ID          string
	RequesterID string
	ReceiverID  string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type FriendshipRepository interface {
	Create(ctx context.Context, friendship *Friendship) error
	FindByID(ctx context.Context, id string) (*Friendship, error)
	FindLiveByPair(ctx context.Context, userA, userB string) (*Friendship, error)
	FindAcceptedByUser(ctx context.Context, userID string) ([]*Friendship, error)
	FindPendingByReceiver(ctx context.Context, receiverID string) ([]*Friendship, error)
	// UpdateStatusIfPending performs the conditional transition; it returns
	// (nil, nil) when the row was not PENDING anymore, so exactly one caller
	// of a race observes the transition.
	UpdateStatusIfPending(ctx context.Context, id, status string) (*Friendship, error)
	DeleteIfAccepted(ctx context.Context, id string) (*Friendship, error)
	DeleteIfPendingFromRequester(ctx context.Context, id, requesterID string) (*Friendship, error)
	DeleteRejectedOlderThan(ctx context.Context, olderThan time.Time) (int, error)
}

type pgFriendshipRepository struct {
	pool *pgxpool.Pool
}

func NewFriendshipRepository(pool *pgxpool.Pool) FriendshipRepository {
	return &pgFriendshipRepository{pool: pool}
}

const friendshipColumns = `id, requester_id, receiver_id, status, created_at, updated_at`

func scanFriendship(row pgx.Row) (*Friendship, error) {
	f := &Friendship{}
	err := row.Scan(&f.ID, &f.RequesterID, &f.ReceiverID, &f.Status, &f.CreatedAt, &f.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *pgFriendshipRepository) Create(ctx context.Context, friendship *Friendship) error {
	query := `
		INSERT INTO friendships (requester_id, receiver_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	return r.pool.QueryRow(ctx, query,
		friendship.RequesterID, friendship.ReceiverID, friendship.Status,
	).Scan(&friendship.ID, &friendship.CreatedAt, &friendship.UpdatedAt)
}

func (r *pgFriendshipRepository) FindByID(ctx context.Context, id string) (*Friendship, error) {
	query := `SELECT ` + friendshipColumns + ` FROM friendships WHERE id = $1`
	return scanFriendship(r.pool.QueryRow(ctx, query, id))
}

func (r *pgFriendshipRepository) FindLiveByPair(ctx context.Context, userA, userB string) (*Friendship, error) {
	query := `
		SELECT ` + friendshipColumns + `
		FROM friendships
		WHERE LEAST(requester_id, receiver_id) = LEAST($1::uuid, $2::uuid)
		  AND GREATEST(requester_id, receiver_id) = GREATEST($1::uuid, $2::uuid)
		  AND status <> 'REJECTED'
	`
	return scanFriendship(r.pool.QueryRow(ctx, query, userA, userB))
}

func (r *pgFriendshipRepository) FindAcceptedByUser(ctx context.Context, userID string) ([]*Friendship, error) {
	query := `
		SELECT ` + friendshipColumns + `
		FROM friendships
		WHERE (requester_id = $1 OR receiver_id = $1) AND status = 'ACCEPTED'
		ORDER BY created_at DESC
	`
	return r.queryFriendships(ctx, query, userID)
}

func (r *pgFriendshipRepository) FindPendingByReceiver(ctx context.Context, receiverID string) ([]*Friendship, error) {
	query := `
		SELECT ` + friendshipColumns + `
		FROM friendships
		WHERE receiver_id = $1 AND status = 'PENDING'
		ORDER BY created_at DESC
	`
	return r.queryFriendships(ctx, query, receiverID)
}

func (r *pgFriendshipRepository) UpdateStatusIfPending(ctx context.Context, id, status string) (*Friendship, error) {
	query := `
		UPDATE friendships
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING ` + friendshipColumns + `
	`
	return scanFriendship(r.pool.QueryRow(ctx, query, id, status))
}

func (r *pgFriendshipRepository) DeleteIfAccepted(ctx context.Context, id string) (*Friendship, error) {
	query := `
		DELETE FROM friendships
		WHERE id = $1 AND status = 'ACCEPTED'
		RETURNING ` + friendshipColumns + `
	`
	return scanFriendship(r.pool.QueryRow(ctx, query, id))
}

func (r *pgFriendshipRepository) DeleteIfPendingFromRequester(ctx context.Context, id, requesterID string) (*Friendship, error) {
	query := `
		DELETE FROM friendships
		WHERE id = $1 AND requester_id = $2 AND status = 'PENDING'
		RETURNING ` + friendshipColumns + `
	`
	return scanFriendship(r.pool.QueryRow(ctx, query, id, requesterID))
}

func (r *pgFriendshipRepository) DeleteRejectedOlderThan(ctx context.Context, olderThan time.Time) (int, error) {
	query := `DELETE FROM friendships WHERE status = 'REJECTED' AND updated_at < $1`
	result, err := r.pool.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, err
	}
	return int(result.RowsAffected()), nil
}

func (r *pgFriendshipRepository) queryFriendships(ctx context.Context, query string, args ...interface{}) ([]*Friendship, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var friendships []*Friendship
	for rows.Next() {
		f := &Friendship{}
		if err := rows.Scan(&f.ID, &f.RequesterID, &f.ReceiverID, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		friendships = append(friendships, f)
	}
	return friendships, rows.Err()
}
