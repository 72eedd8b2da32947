package service

import "errors"

// ErrorKind classifies a rejected operation so the HTTP layer can pick a
// status and callers know whether to retry, re-fetch, or give up.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindInternal
)

// Error is a rejected transition with a stable machine-readable code.
type Error struct {
	Code    string
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	// Friendship
	ErrSelfRequest     = &Error{Code: "SELF_REQUEST", Kind: KindValidation, Message: "cannot send a friend request to yourself"}
	ErrPeerNotFound    = &Error{Code: "PEER_NOT_FOUND", Kind: KindNotFound, Message: "peer user not found"}
	ErrRequestExists   = &Error{Code: "REQUEST_EXISTS", Kind: KindConflict, Message: "a live friendship already exists for this pair"}
	ErrRequestNotFound = &Error{Code: "REQUEST_NOT_FOUND", Kind: KindNotFound, Message: "friend request not found"}
	ErrAlreadyResolved = &Error{Code: "ALREADY_RESOLVED", Kind: KindConflict, Message: "already resolved with a different decision"}

	// Server membership
	ErrServerNotFound    = &Error{Code: "SERVER_NOT_FOUND", Kind: KindNotFound, Message: "server not found"}
	ErrNotAMember        = &Error{Code: "NOT_A_MEMBER", Kind: KindNotFound, Message: "user is not a member of this server"}
	ErrCannotRemoveOwner = &Error{Code: "CANNOT_REMOVE_OWNER", Kind: KindForbidden, Message: "the server owner cannot be removed"}
	ErrOwnerCannotLeave  = &Error{Code: "OWNER_CANNOT_LEAVE", Kind: KindForbidden, Message: "the server owner cannot leave; delete the server instead"}

	// Invites
	ErrInviteExists   = &Error{Code: "INVITE_EXISTS", Kind: KindConflict, Message: "a pending invite already exists for this user and server"}
	ErrInviteNotFound = &Error{Code: "INVITE_NOT_FOUND", Kind: KindNotFound, Message: "server invite not found"}
	ErrAlreadyMember  = &Error{Code: "ALREADY_MEMBER", Kind: KindConflict, Message: "user is already a member of this server"}

	// Roles
	ErrRoleNotFound         = &Error{Code: "ROLE_NOT_FOUND", Kind: KindNotFound, Message: "role not found"}
	ErrDefaultRoleImmutable = &Error{Code: "DEFAULT_ROLE_IMMUTABLE", Kind: KindForbidden, Message: "the default roles cannot be modified or deleted"}
	ErrInvalidPermission    = &Error{Code: "INVALID_PERMISSION", Kind: KindValidation, Message: "unknown permission"}
	ErrRoleExists           = &Error{Code: "ROLE_EXISTS", Kind: KindConflict, Message: "a role with this name already exists on the server"}

	// Cross-cutting
	ErrForbidden       = &Error{Code: "FORBIDDEN", Kind: KindForbidden, Message: "forbidden"}
	ErrInvalidInput    = &Error{Code: "VALIDATION", Kind: KindValidation, Message: "invalid input"}
	ErrChannelNotFound = &Error{Code: "CHANNEL_NOT_FOUND", Kind: KindNotFound, Message: "channel not found"}
	ErrNotFound        = &Error{Code: "NOT_FOUND", Kind: KindNotFound, Message: "resource not found"}

	// Auth
	ErrInvalidCredentials = &Error{Code: "INVALID_CREDENTIALS", Kind: KindForbidden, Message: "invalid credentials"}
	ErrUserExists         = &Error{Code: "USER_EXISTS", Kind: KindConflict, Message: "user already exists"}
	ErrUserNotFound       = &Error{Code: "USER_NOT_FOUND", Kind: KindNotFound, Message: "user not found"}
	ErrInvalidToken       = &Error{Code: "INVALID_TOKEN", Kind: KindValidation, Message: "invalid or expired token"}
)

// AsError unwraps err to a *Error, or nil when it is an internal error.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
