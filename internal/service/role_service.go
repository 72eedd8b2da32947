package service

import (
	"context"

	"github.com/havenchat/haven-backend/internal/notification"
	"github.com/havenchat/haven-backend/internal/repository"
	"github.com/havenchat/haven-backend/internal/socket"
)

// ============================================
// Permissions
// ============================================

type Permission string

const (
	PermissionCreateChannel Permission = "CREATE_CHANNEL"
	PermissionDeleteChannel Permission = "DELETE_CHANNEL"
	PermissionDeleteServer  Permission = "DELETE_SERVER"
	PermissionInviteMember  Permission = "INVITE_MEMBER"
	PermissionRemoveMember  Permission = "REMOVE_MEMBER"
	PermissionManageRoles   Permission = "MANAGE_ROLES"
)

var allPermissions = []Permission{
	PermissionCreateChannel,
	PermissionDeleteChannel,
	PermissionDeleteServer,
	PermissionInviteMember,
	PermissionRemoveMember,
	PermissionManageRoles,
}

func ValidPermission(p Permission) bool {
	for _, known := range allPermissions {
		if p == known {
			return true
		}
	}
	return false
}

// The two system-default roles every server is created with. Their names are
// the protection key: they can never be renamed, recolored, repermissioned
// or deleted.
const (
	DefaultRoleAdmin  = "Admin"
	DefaultRoleMember = "Member"
)

func isDefaultRoleName(name string) bool {
	return name == DefaultRoleAdmin || name == DefaultRoleMember
}

// DefaultRoles returns fresh default role records for a new server.
func DefaultRoles() []*repository.Role {
	adminColor := "#e74c3c"
	memberColor := "#95a5a6"
	return []*repository.Role{
		{
			Name:        DefaultRoleAdmin,
			Color:       &adminColor,
			Permissions: permissionStrings(allPermissions),
			IsDefault:   true,
		},
		{
			Name:        DefaultRoleMember,
			Color:       &memberColor,
			Permissions: permissionStrings([]Permission{PermissionCreateChannel, PermissionInviteMember}),
			IsDefault:   true,
		},
	}
}

func permissionStrings(perms []Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

// ============================================
// Authorization decisions
// ============================================

// Decision is the outcome of a permission check. The fail-open branches are
// explicit variants rather than a null role silently comparing as true, so
// the escape hatch stays auditable.
type Decision int

const (
	DecisionDenied Decision = iota
	// DecisionGranted: the member's assigned role carries the permission.
	DecisionGranted
	// DecisionOwner: server owners bypass role checks entirely.
	DecisionOwner
	// DecisionUnassigned: member with no role; fail-open until assigned.
	DecisionUnassigned
	// DecisionSessionPending: caller identity not resolved yet; fail-open by
	// design, never trusted for the destructive call itself.
	DecisionSessionPending
)

func (d Decision) Allowed() bool { return d != DecisionDenied }

// ============================================
// Role Service
// ============================================

type RoleService interface {
	HasPermission(ctx context.Context, server *repository.Server, userID string, perm Permission) (Decision, error)
	HasPermissionByID(ctx context.Context, serverID, userID string, perm Permission) (Decision, error)
	// Require is the guard form: nil when allowed, ErrForbidden otherwise.
	Require(ctx context.Context, server *repository.Server, userID string, perm Permission) error

	CreateRole(ctx context.Context, serverID, requesterID, name string, color *string, permissions []Permission) (*repository.Role, error)
	UpdateRole(ctx context.Context, roleID, requesterID string, name *string, color *string, permissions []Permission) (*repository.Role, error)
	DeleteRole(ctx context.Context, roleID, requesterID string) error
	AssignRole(ctx context.Context, serverID, memberID, roleID, requesterID string) (*repository.Membership, error)
	ListRoles(ctx context.Context, serverID, requesterID string) ([]*repository.Role, error)
}

type roleService struct {
	roleRepo   repository.RoleRepository
	serverRepo repository.ServerRepository
	publisher  EventPublisher
	notifSvc   *notification.Service
}

func NewRoleService(
	roleRepo repository.RoleRepository,
	serverRepo repository.ServerRepository,
	publisher EventPublisher,
	notifSvc *notification.Service,
) RoleService {
	return &roleService{
		roleRepo:   roleRepo,
		serverRepo: serverRepo,
		publisher:  publisher,
		notifSvc:   notifSvc,
	}
}

func (s *roleService) HasPermission(ctx context.Context, server *repository.Server, userID string, perm Permission) (Decision, error) {
	if server == nil {
		return DecisionDenied, ErrServerNotFound
	}
	if userID == "" {
		return DecisionSessionPending, nil
	}
	if server.OwnerID == userID {
		return DecisionOwner, nil
	}

	member, err := s.serverRepo.FindMember(ctx, server.ID, userID)
	if err != nil {
		return DecisionDenied, err
	}
	if member == nil {
		// Permission checks apply to members; outsiders never fall open.
		return DecisionDenied, nil
	}
	if member.RoleID == nil {
		// Joined but not yet assigned a role: fail-open.
		return DecisionUnassigned, nil
	}

	role, err := s.roleRepo.FindByID(ctx, *member.RoleID)
	if err != nil {
		return DecisionDenied, err
	}
	if role == nil {
		// Role deleted between assignment and check; treat as unassigned.
		return DecisionUnassigned, nil
	}
	for _, granted := range role.Permissions {
		if granted == string(perm) {
			return DecisionGranted, nil
		}
	}
	return DecisionDenied, nil
}

func (s *roleService) HasPermissionByID(ctx context.Context, serverID, userID string, perm Permission) (Decision, error) {
	server, err := s.serverRepo.FindByID(ctx, serverID)
	if err != nil {
		return DecisionDenied, err
	}
	if server == nil {
		return DecisionDenied, ErrServerNotFound
	}
	return s.HasPermission(ctx, server, userID, perm)
}

func (s *roleService) Require(ctx context.Context, server *repository.Server, userID string, perm Permission) error {
	decision, err := s.HasPermission(ctx, server, userID, perm)
	if err != nil {
		return err
	}
	if !decision.Allowed() {
		return ErrForbidden
	}
	return nil
}

func (s *roleService) CreateRole(ctx context.Context, serverID, requesterID, name string, color *string, permissions []Permission) (*repository.Role, error) {
	if name == "" {
		return nil, ErrInvalidInput
	}
	if isDefaultRoleName(name) {
		// Custom roles may not reuse the protected names; the name is the
		// immutability key.
		return nil, ErrRoleExists
	}
	for _, p := range permissions {
		if !ValidPermission(p) {
			return nil, ErrInvalidPermission
		}
	}

	server, err := s.serverRepo.FindByID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, ErrServerNotFound
	}
	if err := s.Require(ctx, server, requesterID, PermissionManageRoles); err != nil {
		return nil, err
	}

	role := &repository.Role{
		ServerID:    serverID,
		Name:        name,
		Color:       color,
		Permissions: permissionStrings(permissions),
	}
	if err := s.roleRepo.Create(ctx, role); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrRoleExists
		}
		return nil, err
	}

	if s.publisher != nil {
		s.publisher.PublishToServer(serverID, socket.MessageRoleCreated, rolePayload(role), requesterID)
	}
	return role, nil
}

func (s *roleService) UpdateRole(ctx context.Context, roleID, requesterID string, name *string, color *string, permissions []Permission) (*repository.Role, error) {
	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	if isDefaultRoleName(role.Name) {
		return nil, ErrDefaultRoleImmutable
	}

	server, err := s.serverRepo.FindByID(ctx, role.ServerID)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, ErrServerNotFound
	}
	if err := s.Require(ctx, server, requesterID, PermissionManageRoles); err != nil {
		return nil, err
	}

	if name != nil && *name != "" {
		if isDefaultRoleName(*name) {
			return nil, ErrRoleExists
		}
		role.Name = *name
	}
	if color != nil {
		role.Color = color
	}
	if permissions != nil {
		for _, p := range permissions {
			if !ValidPermission(p) {
				return nil, ErrInvalidPermission
			}
		}
		role.Permissions = permissionStrings(permissions)
	}

	if err := s.roleRepo.Update(ctx, role); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrRoleExists
		}
		return nil, err
	}

	if s.publisher != nil {
		s.publisher.PublishToServer(role.ServerID, socket.MessageRoleUpdated, rolePayload(role), requesterID)
	}
	return role, nil
}

func (s *roleService) DeleteRole(ctx context.Context, roleID, requesterID string) error {
	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role == nil {
		return ErrRoleNotFound
	}
	if isDefaultRoleName(role.Name) {
		return ErrDefaultRoleImmutable
	}

	server, err := s.serverRepo.FindByID(ctx, role.ServerID)
	if err != nil {
		return err
	}
	if server == nil {
		return ErrServerNotFound
	}
	if err := s.Require(ctx, server, requesterID, PermissionManageRoles); err != nil {
		return err
	}

	// Members still holding this role revert to the unassigned fail-open
	// state; they are not re-pointed at the default Member role.
	if err := s.roleRepo.Delete(ctx, roleID); err != nil {
		return err
	}

	if s.publisher != nil {
		s.publisher.PublishToServer(role.ServerID, socket.MessageRoleDeleted, rolePayload(role), requesterID)
	}
	return nil
}

func (s *roleService) AssignRole(ctx context.Context, serverID, memberID, roleID, requesterID string) (*repository.Membership, error) {
	server, err := s.serverRepo.FindByID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, ErrServerNotFound
	}
	if err := s.Require(ctx, server, requesterID, PermissionManageRoles); err != nil {
		return nil, err
	}

	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil || role.ServerID != serverID {
		return nil, ErrRoleNotFound
	}

	// Overwrites any prior assignment: one role per member per server.
	updated, err := s.serverRepo.SetMemberRole(ctx, serverID, memberID, &roleID)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ErrNotAMember
	}

	member, err := s.serverRepo.FindMember(ctx, serverID, memberID)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		payload := membershipPayload(member)
		payload["roleName"] = role.Name
		s.publisher.PublishToServer(serverID, socket.MessageMemberRoleChanged, payload, "")
	}
	if s.notifSvc != nil {
		s.notifSvc.SendRoleAssigned(ctx, memberID, server.Name, role.Name, serverID)
	}
	return member, nil
}

func (s *roleService) ListRoles(ctx context.Context, serverID, requesterID string) ([]*repository.Role, error) {
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
	return s.roleRepo.FindByServer(ctx, serverID)
}
