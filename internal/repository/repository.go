// internal/repository/repository.go
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Status values shared by friendships and server invites.
const (
	StatusPending  = "PENDING"
	StatusAccepted = "ACCEPTED"
	StatusRejected = "REJECTED"
)

// IsUniqueViolation reports whether err is a postgres unique-constraint
// violation. Services use this to turn index collisions (duplicate pending
// request/invite) into conflict errors instead of internal ones.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
