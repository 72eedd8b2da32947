package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Server struct {
	ID          string
	Name        string
	Description *string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Membership ties a user to a server. RoleID is nil until a role is
// explicitly assigned; such members get the fail-open default access.
type Membership struct {
	ID       string
	ServerID string
	UserID   string
	RoleID   *string
	JoinedAt time.Time
	User     *User
}

type ServerRepository interface {
	// CreateWithDefaults writes the server, its default roles and the owner's
	// membership in one transaction. Either all of them exist or none do.
	CreateWithDefaults(ctx context.Context, server *Server, defaultRoles []*Role) error
	FindByID(ctx context.Context, id string) (*Server, error)
	FindByUserID(ctx context.Context, userID string) ([]*Server, error)
	Update(ctx context.Context, server *Server) error
	Delete(ctx context.Context, id string) error

	// AddMember is idempotent: joining a server twice leaves one membership.
	// The second return reports whether a new row was created.
	AddMember(ctx context.Context, serverID, userID string) (*Membership, bool, error)
	FindMember(ctx context.Context, serverID, userID string) (*Membership, error)
	FindMembers(ctx context.Context, serverID string) ([]*Membership, error)
	FindMemberUserIDs(ctx context.Context, serverID string) ([]string, error)
	RemoveMember(ctx context.Context, serverID, userID string) (bool, error)
	SetMemberRole(ctx context.Context, serverID, userID string, roleID *string) (bool, error)
}

type pgServerRepository struct {
	pool *pgxpool.Pool
}

func NewServerRepository(pool *pgxpool.Pool) ServerRepository {
	return &pgServerRepository{pool: pool}
}

const serverColumns = `id, name, description, owner_id, created_at, updated_at`

func scanServer(row pgx.Row) (*Server, error) {
	s := &Server{}
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.OwnerID, &s.CreatedAt, &s.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *pgServerRepository) CreateWithDefaults(ctx context.Context, server *Server, defaultRoles []*Role) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO servers (name, description, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, server.Name, server.Description, server.OwnerID).
		Scan(&server.ID, &server.CreatedAt, &server.UpdatedAt)
	if err != nil {
		return err
	}

	for _, role := range defaultRoles {
		role.ServerID = server.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO roles (server_id, name, color, permissions, is_default)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`, role.ServerID, role.Name, role.Color, role.Permissions, role.IsDefault).
			Scan(&role.ID, &role.CreatedAt)
		if err != nil {
			return err
		}
	}

	// Owner membership carries no explicit role; ownership bypasses role
	// checks entirely.
	_, err = tx.Exec(ctx, `
		INSERT INTO server_members (server_id, user_id, role_id)
		VALUES ($1, $2, NULL)
	`, server.ID, server.OwnerID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *pgServerRepository) FindByID(ctx context.Context, id string) (*Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers WHERE id = $1`
	return scanServer(r.pool.QueryRow(ctx, query, id))
}

func (r *pgServerRepository) FindByUserID(ctx context.Context, userID string) ([]*Server, error) {
	query := `
		SELECT s.id, s.name, s.description, s.owner_id, s.created_at, s.updated_at
		FROM servers s
		JOIN server_members sm ON s.id = sm.server_id
		WHERE sm.user_id = $1
		ORDER BY s.name
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servers []*Server
	for rows.Next() {
		s := &Server{}
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.OwnerID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		servers = append(servers, s)
	}
	return servers, rows.Err()
}

func (r *pgServerRepository) Update(ctx context.Context, server *Server) error {
	query := `
		UPDATE servers SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, server.ID, server.Name, server.Description)
	return err
}

func (r *pgServerRepository) Delete(ctx context.Context, id string) error {
	// Channels, memberships and roles go with the server via FK cascade.
	// Invites have no FK on purpose; pending listings filter them out.
	_, err := r.pool.Exec(ctx, `DELETE FROM servers WHERE id = $1`, id)
	return err
}

func (r *pgServerRepository) AddMember(ctx context.Context, serverID, userID string) (*Membership, bool, error) {
	insert := `
		INSERT INTO server_members (server_id, user_id, role_id)
		VALUES ($1, $2, NULL)
		ON CONFLICT (server_id, user_id) DO NOTHING
		RETURNING id, server_id, user_id, role_id, joined_at
	`
	m := &Membership{}
	err := r.pool.QueryRow(ctx, insert, serverID, userID).
		Scan(&m.ID, &m.ServerID, &m.UserID, &m.RoleID, &m.JoinedAt)
	if err == nil {
		return m, true, nil
	}
	if err != pgx.ErrNoRows {
		return nil, false, err
	}

	// Conflict: the membership already exists, return it unchanged.
	existing, err := r.FindMember(ctx, serverID, userID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *pgServerRepository) FindMember(ctx context.Context, serverID, userID string) (*Membership, error) {
	query := `
		SELECT id, server_id, user_id, role_id, joined_at
		FROM server_members
		WHERE server_id = $1 AND user_id = $2
	`
	m := &Membership{}
	err := r.pool.QueryRow(ctx, query, serverID, userID).
		Scan(&m.ID, &m.ServerID, &m.UserID, &m.RoleID, &m.JoinedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *pgServerRepository) FindMembers(ctx context.Context, serverID string) ([]*Membership, error) {
	query := `
		SELECT sm.id, sm.server_id, sm.user_id, sm.role_id, sm.joined_at,
		       u.id, u.username, u.email, u.avatar, u.status
		FROM server_members sm
		JOIN users u ON u.id = sm.user_id
		WHERE sm.server_id = $1
		ORDER BY sm.joined_at
	`
	rows, err := r.pool.Query(ctx, query, serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*Membership
	for rows.Next() {
		m := &Membership{User: &User{}}
		if err := rows.Scan(
			&m.ID, &m.ServerID, &m.UserID, &m.RoleID, &m.JoinedAt,
			&m.User.ID, &m.User.Username, &m.User.Email, &m.User.Avatar, &m.User.Status,
		); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *pgServerRepository) FindMemberUserIDs(ctx context.Context, serverID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM server_members WHERE server_id = $1`, serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *pgServerRepository) RemoveMember(ctx context.Context, serverID, userID string) (bool, error) {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM server_members WHERE server_id = $1 AND user_id = $2`,
		serverID, userID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *pgServerRepository) SetMemberRole(ctx context.Context, serverID, userID string, roleID *string) (bool, error) {
	result, err := r.pool.Exec(ctx,
		`UPDATE server_members SET role_id = $3 WHERE server_id = $1 AND user_id = $2`,
		serverID, userID, roleID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}
