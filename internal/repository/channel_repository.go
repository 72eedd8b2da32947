package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Channel carries just enough for the membership/permission surface; message
// storage lives elsewhere.
type Channel struct {
	ID        string
	ServerID  string
	Name      string
	CreatedAt time.Time
}

type ChannelRepository interface {
	Create(ctx context.Context, channel *Channel) error
	FindByID(ctx context.Context, id string) (*Channel, error)
	FindByServer(ctx context.Context, serverID string) ([]*Channel, error)
	Delete(ctx context.Context, id string) error
}

type pgChannelRepository struct {
	pool *pgxpool.Pool
}

func NewChannelRepository(pool *pgxpool.Pool) ChannelRepository {
	return &pgChannelRepository{pool: pool}
}

func (r *pgChannelRepository) Create(ctx context.Context, channel *Channel) error {
	query := `
		INSERT INTO channels (server_id, name)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	return r.pool.QueryRow(ctx, query, channel.ServerID, channel.Name).
		Scan(&channel.ID, &channel.CreatedAt)
}

func (r *pgChannelRepository) FindByID(ctx context.Context, id string) (*Channel, error) {
	query := `SELECT id, server_id, name, created_at FROM channels WHERE id = $1`
	ch := &Channel{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&ch.ID, &ch.ServerID, &ch.Name, &ch.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (r *pgChannelRepository) FindByServer(ctx context.Context, serverID string) ([]*Channel, error) {
	query := `SELECT id, server_id, name, created_at FROM channels WHERE server_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []*Channel
	for rows.Next() {
		ch := &Channel{}
		if err := rows.Scan(&ch.ID, &ch.ServerID, &ch.Name, &ch.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func (r *pgChannelRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	return err
}
