package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Role struct {
	ID          string
	ServerID    string
	Name        string
	Color       *string
	Permissions []string
	IsDefault   bool
	CreatedAt   time.Time
}

type RoleRepository interface {
	Create(ctx context.Context, role *Role) error
	FindByID(ctx context.Context, id string) (*Role, error)
	FindByServer(ctx context.Context, serverID string) ([]*Role, error)
	Update(ctx context.Context, role *Role) error
	// Delete reverts assigned members to the unassigned state via the
	// role_id FK (ON DELETE SET NULL).
	Delete(ctx context.Context, id string) error
}

type pgRoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &pgRoleRepository{pool: pool}
}

const roleColumns = `id, server_id, name, color, permissions, is_default, created_at`

func scanRole(row pgx.Row) (*Role, error) {
	role := &Role{}
	err := row.Scan(
		&role.ID, &role.ServerID, &role.Name, &role.Color,
		&role.Permissions, &role.IsDefault, &role.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return role, nil
}

func (r *pgRoleRepository) Create(ctx context.Context, role *Role) error {
	query := `
		INSERT INTO roles (server_id, name, color, permissions, is_default)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return r.pool.QueryRow(ctx, query,
		role.ServerID, role.Name, role.Color, role.Permissions, role.IsDefault,
	).Scan(&role.ID, &role.CreatedAt)
}

func (r *pgRoleRepository) FindByID(ctx context.Context, id string) (*Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles WHERE id = $1`
	return scanRole(r.pool.QueryRow(ctx, query, id))
}

func (r *pgRoleRepository) FindByServer(ctx context.Context, serverID string) ([]*Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles WHERE server_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		role := &Role{}
		if err := rows.Scan(
			&role.ID, &role.ServerID, &role.Name, &role.Color,
			&role.Permissions, &role.IsDefault, &role.CreatedAt,
		); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *pgRoleRepository) Update(ctx context.Context, role *Role) error {
	query := `
		UPDATE roles SET name = $2, color = $3, permissions = $4
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, role.ID, role.Name, role.Color, role.Permissions)
	return err
}

func (r *pgRoleRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	return err
}
