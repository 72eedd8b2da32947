package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ServerInvite struct {
	ID         string
	FromUserID string
	ToUserID   string
	ServerID   string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PendingInvite is the listing shape: the invite resolved with the inviting
// user's profile and the server's name. Invites whose server has since been
// deleted never appear here.
type PendingInvite struct {
	Invite     *ServerInvite
	FromUser   *User
	ServerName string
}

type InviteRepository interface {
	Create(ctx context.Context, invite *ServerInvite) error
	FindByID(ctx context.Context, id string) (*ServerInvite, error)
	FindPendingByUser(ctx context.Context, userID string) ([]*PendingInvite, error)
	// UpdateStatusIfPending is the conditional transition; (nil, nil) means
	// the invite was already terminal.
	UpdateStatusIfPending(ctx context.Context, id, status string) (*ServerInvite, error)
	// AcceptAndJoin transitions the invite to ACCEPTED and admits the user to
	// the server as one transaction. If membership creation fails the invite
	// stays PENDING. The bool reports whether a membership row was created.
	AcceptAndJoin(ctx context.Context, id string) (*ServerInvite, *Membership, bool, error)
	DeleteIfPendingFromSender(ctx context.Context, id, fromUserID string) (*ServerInvite, error)
	DeleteTerminalOlderThan(ctx context.Context, olderThan time.Time) (int, error)
	DeleteOrphaned(ctx context.Context) (int, error)
}

type pgInviteRepository struct {
	pool *pgxpool.Pool
}

func NewInviteRepository(pool *pgxpool.Pool) InviteRepository {
	return &pgInviteRepository{pool: pool}
}

const inviteColumns = `id, from_user_id, to_user_id, server_id, status, created_at, updated_at`

func scanInvite(row pgx.Row) (*ServerInvite, error) {
	inv := &ServerInvite{}
	err := row.Scan(
		&inv.ID, &inv.FromUserID, &inv.ToUserID, &inv.ServerID,
		&inv.Status, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *pgInviteRepository) Create(ctx context.Context, invite *ServerInvite) error {
	query := `
		INSERT INTO server_invites (from_user_id, to_user_id, server_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	return r.pool.QueryRow(ctx, query,
		invite.FromUserID, invite.ToUserID, invite.ServerID, invite.Status,
	).Scan(&invite.ID, &invite.CreatedAt, &invite.UpdatedAt)
}

func (r *pgInviteRepository) FindByID(ctx context.Context, id string) (*ServerInvite, error) {
	query := `SELECT ` + inviteColumns + ` FROM server_invites WHERE id = $1`
	return scanInvite(r.pool.QueryRow(ctx, query, id))
}

func (r *pgInviteRepository) FindPendingByUser(ctx context.Context, userID string) ([]*PendingInvite, error) {
	// Inner join on servers drops invites to since-deleted servers.
	query := `
		SELECT i.id, i.from_user_id, i.to_user_id, i.server_id, i.status, i.created_at, i.updated_at,
		       u.id, u.username, u.email, u.avatar, u.status,
		       s.name
		FROM server_invites i
		JOIN users u ON u.id = i.from_user_id
		JOIN servers s ON s.id = i.server_id
		WHERE i.to_user_id = $1 AND i.status = 'PENDING'
		ORDER BY i.created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []*PendingInvite
	for rows.Next() {
		p := &PendingInvite{Invite: &ServerInvite{}, FromUser: &User{}}
		if err := rows.Scan(
			&p.Invite.ID, &p.Invite.FromUserID, &p.Invite.ToUserID, &p.Invite.ServerID,
			&p.Invite.Status, &p.Invite.CreatedAt, &p.Invite.UpdatedAt,
			&p.FromUser.ID, &p.FromUser.Username, &p.FromUser.Email, &p.FromUser.Avatar, &p.FromUser.Status,
			&p.ServerName,
		); err != nil {
			return nil, err
		}
		invites = append(invites, p)
	}
	return invites, rows.Err()
}

func (r *pgInviteRepository) UpdateStatusIfPending(ctx context.Context, id, status string) (*ServerInvite, error) {
	query := `
		UPDATE server_invites
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING ` + inviteColumns + `
	`
	return scanInvite(r.pool.QueryRow(ctx, query, id, status))
}

func (r *pgInviteRepository) AcceptAndJoin(ctx context.Context, id string) (*ServerInvite, *Membership, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, false, err
	}
	defer tx.Rollback(ctx)

	invite, err := scanInvite(tx.QueryRow(ctx, `
		UPDATE server_invites
		SET status = 'ACCEPTED', updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+inviteColumns+`
	`, id))
	if err != nil {
		return nil, nil, false, err
	}
	if invite == nil {
		// Lost the race to another transition; nothing to commit.
		return nil, nil, false, nil
	}

	member := &Membership{}
	created := true
	err = tx.QueryRow(ctx, `
		INSERT INTO server_members (server_id, user_id, role_id)
		VALUES ($1, $2, NULL)
		ON CONFLICT (server_id, user_id) DO NOTHING
		RETURNING id, server_id, user_id, role_id, joined_at
	`, invite.ServerID, invite.ToUserID).
		Scan(&member.ID, &member.ServerID, &member.UserID, &member.RoleID, &member.JoinedAt)
	if err == pgx.ErrNoRows {
		// Already a member; the invite transition still commits.
		created = false
		err = tx.QueryRow(ctx, `
			SELECT id, server_id, user_id, role_id, joined_at
			FROM server_members WHERE server_id = $1 AND user_id = $2
		`, invite.ServerID, invite.ToUserID).
			Scan(&member.ID, &member.ServerID, &member.UserID, &member.RoleID, &member.JoinedAt)
	}
	if err != nil {
		return nil, nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, false, err
	}
	return invite, member, created, nil
}

func (r *pgInviteRepository) DeleteIfPendingFromSender(ctx context.Context, id, fromUserID string) (*ServerInvite, error) {
	query := `
		DELETE FROM server_invites
		WHERE id = $1 AND from_user_id = $2 AND status = 'PENDING'
		RETURNING ` + inviteColumns + `
	`
	return scanInvite(r.pool.QueryRow(ctx, query, id, fromUserID))
}

func (r *pgInviteRepository) DeleteTerminalOlderThan(ctx context.Context, olderThan time.Time) (int, error) {
	query := `DELETE FROM server_invites WHERE status <> 'PENDING' AND updated_at < $1`
	result, err := r.pool.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, err
	}
	return int(result.RowsAffected()), nil
}

func (r *pgInviteRepository) DeleteOrphaned(ctx context.Context) (int, error) {
	query := `
		DELETE FROM server_invites i
		WHERE NOT EXISTS (SELECT 1 FROM servers s WHERE s.id = i.server_id)
	`
	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return int(result.RowsAffected()), nil
}
