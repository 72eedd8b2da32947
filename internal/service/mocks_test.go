package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/havenchat/haven-backend/internal/repository"
	"github.com/havenchat/haven-backend/internal/socket"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- MOCKS ---
// In-memory fakes that mirror the conditional-write semantics of the real
// Postgres repositories, including unique violations for racing creates.

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505"}
}

// recordedEvent is one captured publish.
type recordedEvent struct {
	Target  string
	Event   socket.MessageType
	Payload map[string]interface{}
}

type recordingPublisher struct {
	UserEvents   []recordedEvent
	ServerEvents []recordedEvent
}

func (p *recordingPublisher) PublishToUser(userID string, event socket.MessageType, payload map[string]interface{}) {
	p.UserEvents = append(p.UserEvents, recordedEvent{Target: userID, Event: event, Payload: payload})
}

func (p *recordingPublisher) PublishToServer(serverID string, event socket.MessageType, payload map[string]interface{}, excludeUserID string) {
	p.ServerEvents = append(p.ServerEvents, recordedEvent{Target: serverID, Event: event, Payload: payload})
}

func (p *recordingPublisher) userEventsOfType(event socket.MessageType) []recordedEvent {
	var out []recordedEvent
	for _, e := range p.UserEvents {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// ============================================
// User repository fake
// ============================================

type fakeUserRepo struct {
	users  map[string]*repository.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*repository.User)}
}

func (r *fakeUserRepo) addUser(username string) *repository.User {
	r.nextID++
	u := &repository.User{
		ID:       fmt.Sprintf("user-%d", r.nextID),
		Username: username,
		Email:    username + "@example.com",
		Status:   "online",
	}
	r.users[u.ID] = u
	return u
}

func (r *fakeUserRepo) Create(ctx context.Context, user *repository.User) error {
	r.nextID++
	user.ID = fmt.Sprintf("user-%d", r.nextID)
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*repository.User, error) {
	return r.users[id], nil
}

func (r *fakeUserRepo) FindByIDs(ctx context.Context, ids []string) ([]*repository.User, error) {
	var out []*repository.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*repository.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*repository.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *repository.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) UpdateStatus(ctx context.Context, id, status string) error {
	if u, ok := r.users[id]; ok {
		u.Status = status
	}
	return nil
}

func (r *fakeUserRepo) Search(ctx context.Context, query string, limit int) ([]*repository.User, error) {
	var out []*repository.User
	for _, u := range r.users {
		if strings.Contains(u.Username, query) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) StoreRefreshToken(ctx context.Context, token *repository.RefreshToken) error {
	return nil
}

func (r *fakeUserRepo) FindRefreshToken(ctx context.Context, token string) (*repository.RefreshToken, error) {
	return nil, nil
}

func (r *fakeUserRepo) DeleteRefreshToken(ctx context.Context, token string) error {
	return nil
}

// ============================================
// Friendship repository fake
// ============================================

type fakeFriendshipRepo struct {
	rows   map[string]*repository.Friendship
	nextID int
}

func newFakeFriendshipRepo() *fakeFriendshipRepo {
	return &fakeFriendshipRepo{rows: make(map[string]*repository.Friendship)}
}

func pairKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}

func (r *fakeFriendshipRepo) Create(ctx context.Context, f *repository.Friendship) error {
	for _, existing := range r.rows {
		if existing.Status != repository.StatusRejected &&
			pairKey(existing.RequesterID, existing.ReceiverID) == pairKey(f.RequesterID, f.ReceiverID) {
			return uniqueViolation()
		}
	}
	r.nextID++
	f.ID = fmt.Sprintf("friendship-%d", r.nextID)
	f.CreatedAt = time.Now()
	f.UpdatedAt = f.CreatedAt
	copy := *f
	r.rows[f.ID] = &copy
	return nil
}

func (r *fakeFriendshipRepo) FindByID(ctx context.Context, id string) (*repository.Friendship, error) {
	if f, ok := r.rows[id]; ok {
		copy := *f
		return &copy, nil
	}
	return nil, nil
}

func (r *fakeFriendshipRepo) FindLiveByPair(ctx context.Context, userA, userB string) (*repository.Friendship, error) {
	for _, f := range r.rows {
		if f.Status != repository.StatusRejected &&
			pairKey(f.RequesterID, f.ReceiverID) == pairKey(userA, userB) {
			copy := *f
			return &copy, nil
		}
	}
	return nil, nil
}

func (r *fakeFriendshipRepo) FindAcceptedByUser(ctx context.Context, userID string) ([]*repository.Friendship, error) {
	var out []*repository.Friendship
	for _, f := range r.rows {
		if f.Status == repository.StatusAccepted && (f.RequesterID == userID || f.ReceiverID == userID) {
			copy := *f
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeFriendshipRepo) FindPendingByReceiver(ctx context.Context, receiverID string) ([]*repository.Friendship, error) {
	var out []*repository.Friendship
	for _, f := range r.rows {
		if f.Status == repository.StatusPending && f.ReceiverID == receiverID {
			copy := *f
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeFriendshipRepo) UpdateStatusIfPending(ctx context.Context, id, status string) (*repository.Friendship, error) {
	f, ok := r.rows[id]
	if !ok || f.Status != repository.StatusPending {
		return nil, nil
	}
	f.Status = status
	f.UpdatedAt = time.Now()
	copy := *f
	return &copy, nil
}

func (r *fakeFriendshipRepo) DeleteIfAccepted(ctx context.Context, id string) (*repository.Friendship, error) {
	f, ok := r.rows[id]
	if !ok || f.Status != repository.StatusAccepted {
		return nil, nil
	}
	delete(r.rows, id)
	return f, nil
}

func (r *fakeFriendshipRepo) DeleteIfPendingFromRequester(ctx context.Context, id, requesterID string) (*repository.Friendship, error) {
	f, ok := r.rows[id]
	if !ok || f.Status != repository.StatusPending || f.RequesterID != requesterID {
		return nil, nil
	}
	delete(r.rows, id)
	return f, nil
}

func (r *fakeFriendshipRepo) DeleteRejectedOlderThan(ctx context.Context, olderThan time.Time) (int, error) {
	count := 0
	for id, f := range r.rows {
		if f.Status == repository.StatusRejected && f.UpdatedAt.Before(olderThan) {
			delete(r.rows, id)
			count++
		}
	}
	return count, nil
}

// ============================================
// Server repository fake
// ============================================

type fakeServerRepo struct {
	servers  map[string]*repository.Server
	members  map[string]*repository.Membership
	roleRepo *fakeRoleRepo
	nextID   int
}

func newFakeServerRepo(roleRepo *fakeRoleRepo) *fakeServerRepo {
	return &fakeServerRepo{
		servers:  make(map[string]*repository.Server),
		members:  make(map[string]*repository.Membership),
		roleRepo: roleRepo,
	}
}

func memberKey(serverID, userID string) string {
	return serverID + "/" + userID
}

func (r *fakeServerRepo) CreateWithDefaults(ctx context.Context, server *repository.Server, defaultRoles []*repository.Role) error {
	r.nextID++
	server.ID = fmt.Sprintf("server-%d", r.nextID)
	server.CreatedAt = time.Now()
	server.UpdatedAt = server.CreatedAt
	copy := *server
	r.servers[server.ID] = &copy

	for _, role := range defaultRoles {
		role.ServerID = server.ID
		if r.roleRepo != nil {
			r.roleRepo.Create(ctx, role)
		}
	}

	r.members[memberKey(server.ID, server.OwnerID)] = &repository.Membership{
		ID:       fmt.Sprintf("member-%s-%s", server.ID, server.OwnerID),
		ServerID: server.ID,
		UserID:   server.OwnerID,
		JoinedAt: time.Now(),
	}
	return nil
}

func (r *fakeServerRepo) FindByID(ctx context.Context, id string) (*repository.Server, error) {
	if s, ok := r.servers[id]; ok {
		copy := *s
		return &copy, nil
	}
	return nil, nil
}

func (r *fakeServerRepo) FindByUserID(ctx context.Context, userID string) ([]*repository.Server, error) {
	var out []*repository.Server
	for _, m := range r.members {
		if m.UserID == userID {
			if s, ok := r.servers[m.ServerID]; ok {
				copy := *s
				out = append(out, &copy)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeServerRepo) Update(ctx context.Context, server *repository.Server) error {
	copy := *server
	r.servers[server.ID] = &copy
	return nil
}

func (r *fakeServerRepo) Delete(ctx context.Context, id string) error {
	delete(r.servers, id)
	for key, m := range r.members {
		if m.ServerID == id {
			delete(r.members, key)
		}
	}
	return nil
}

func (r *fakeServerRepo) AddMember(ctx context.Context, serverID, userID string) (*repository.Membership, bool, error) {
	key := memberKey(serverID, userID)
	if existing, ok := r.members[key]; ok {
		copy := *existing
		return &copy, false, nil
	}
	m := &repository.Membership{
		ID:       fmt.Sprintf("member-%s-%s", serverID, userID),
		ServerID: serverID,
		UserID:   userID,
		JoinedAt: time.Now(),
	}
	r.members[key] = m
	copy := *m
	return &copy, true, nil
}

func (r *fakeServerRepo) FindMember(ctx context.Context, serverID, userID string) (*repository.Membership, error) {
	if m, ok := r.members[memberKey(serverID, userID)]; ok {
		copy := *m
		return &copy, nil
	}
	return nil, nil
}

func (r *fakeServerRepo) FindMembers(ctx context.Context, serverID string) ([]*repository.Membership, error) {
	var out []*repository.Membership
	for _, m := range r.members {
		if m.ServerID == serverID {
			copy := *m
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *fakeServerRepo) FindMemberUserIDs(ctx context.Context, serverID string) ([]string, error) {
	members, _ := r.FindMembers(ctx, serverID)
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	return ids, nil
}

func (r *fakeServerRepo) RemoveMember(ctx context.Context, serverID, userID string) (bool, error) {
	key := memberKey(serverID, userID)
	if _, ok := r.members[key]; !ok {
		return false, nil
	}
	delete(r.members, key)
	return true, nil
}

func (r *fakeServerRepo) SetMemberRole(ctx context.Context, serverID, userID string, roleID *string) (bool, error) {
	m, ok := r.members[memberKey(serverID, userID)]
	if !ok {
		return false, nil
	}
	m.RoleID = roleID
	return true, nil
}

// clearRoleAssignments mirrors the role_id ON DELETE SET NULL behavior.
func (r *fakeServerRepo) clearRoleAssignments(roleID string) {
	for _, m := range r.members {
		if m.RoleID != nil && *m.RoleID == roleID {
			m.RoleID = nil
		}
	}
}

// ============================================
// Role repository fake
// ============================================

type fakeRoleRepo struct {
	roles      map[string]*repository.Role
	serverRepo *fakeServerRepo
	nextID     int
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{roles: make(map[string]*repository.Role)}
}

func (r *fakeRoleRepo) Create(ctx context.Context, role *repository.Role) error {
	for _, existing := range r.roles {
		if existing.ServerID == role.ServerID && existing.Name == role.Name {
			return uniqueViolation()
		}
	}
	r.nextID++
	role.ID = fmt.Sprintf("role-%d", r.nextID)
	role.CreatedAt = time.Now()
	copy := *role
	r.roles[role.ID] = &copy
	return nil
}

func (r *fakeRoleRepo) FindByID(ctx context.Context, id string) (*repository.Role, error) {
	if role, ok := r.roles[id]; ok {
		copy := *role
		return &copy, nil
	}
	return nil, nil
}

func (r *fakeRoleRepo) FindByServer(ctx context.Context, serverID string) ([]*repository.Role, error) {
	var out []*repository.Role
	for _, role := range r.roles {
		if role.ServerID == serverID {
			copy := *role
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRoleRepo) Update(ctx context.Context, role *repository.Role) error {
	for _, existing := range r.roles {
		if existing.ID != role.ID && existing.ServerID == role.ServerID && existing.Name == role.Name {
			return uniqueViolation()
		}
	}
	copy := *role
	r.roles[role.ID] = &copy
	return nil
}

func (r *fakeRoleRepo) Delete(ctx context.Context, id string) error {
	delete(r.roles, id)
	if r.serverRepo != nil {
		r.serverRepo.clearRoleAssignments(id)
	}
	return nil
}

// ============================================
// Invite repository fake
// ============================================

type fakeInviteRepo struct {
	invites    map[string]*repository.ServerInvite
	serverRepo *fakeServerRepo
	userRepo   *fakeUserRepo
	nextID     int
}

func newFakeInviteRepo(serverRepo *fakeServerRepo, userRepo *fakeUserRepo) *fakeInviteRepo {
	return &fakeInviteRepo{
		invites:    make(map[string]*repository.ServerInvite),
		serverRepo: serverRepo,
		userRepo:   userRepo,
	}
}

func (r *fakeInviteRepo) Create(ctx context.Context, invite *repository.ServerInvite) error {
	for _, existing := range r.invites {
		if existing.Status == repository.StatusPending &&
			existing.ToUserID == invite.ToUserID && existing.ServerID == invite.ServerID {
			return uniqueViolation()
		}
	}
	r.nextID++
	invite.ID = fmt.Sprintf("invite-%d", r.nextID)
	invite.CreatedAt = time.Now()
	invite.UpdatedAt = invite.CreatedAt
	copy := *invite
	r.invites[invite.ID] = &copy
	return nil
}

func (r *fakeInviteRepo) FindByID(ctx context.Context, id string) (*repository.ServerInvite, error) {
	if inv, ok := r.invites[id]; ok {
		copy := *inv
		return &copy, nil
	}
	return nil, nil
}

func (r *fakeInviteRepo) FindPendingByUser(ctx context.Context, userID string) ([]*repository.PendingInvite, error) {
	var out []*repository.PendingInvite
	for _, inv := range r.invites {
		if inv.Status != repository.StatusPending || inv.ToUserID != userID {
			continue
		}
		// Invites to deleted servers are dropped by the join.
		server, _ := r.serverRepo.FindByID(ctx, inv.ServerID)
		if server == nil {
			continue
		}
		fromUser, _ := r.userRepo.FindByID(ctx, inv.FromUserID)
		copy := *inv
		out = append(out, &repository.PendingInvite{
			Invite:     &copy,
			FromUser:   fromUser,
			ServerName: server.Name,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Invite.ID < out[j].Invite.ID })
	return out, nil
}

func (r *fakeInviteRepo) UpdateStatusIfPending(ctx context.Context, id, status string) (*repository.ServerInvite, error) {
	inv, ok := r.invites[id]
	if !ok || inv.Status != repository.StatusPending {
		return nil, nil
	}
	inv.Status = status
	inv.UpdatedAt = time.Now()
	copy := *inv
	return &copy, nil
}

func (r *fakeInviteRepo) AcceptAndJoin(ctx context.Context, id string) (*repository.ServerInvite, *repository.Membership, bool, error) {
	inv, ok := r.invites[id]
	if !ok || inv.Status != repository.StatusPending {
		return nil, nil, false, nil
	}
	inv.Status = repository.StatusAccepted
	inv.UpdatedAt = time.Now()
	member, created, err := r.serverRepo.AddMember(ctx, inv.ServerID, inv.ToUserID)
	if err != nil {
		return nil, nil, false, err
	}
	copy := *inv
	return &copy, member, created, nil
}

func (r *fakeInviteRepo) DeleteIfPendingFromSender(ctx context.Context, id, fromUserID string) (*repository.ServerInvite, error) {
	inv, ok := r.invites[id]
	if !ok || inv.Status != repository.StatusPending || inv.FromUserID != fromUserID {
		return nil, nil
	}
	delete(r.invites, id)
	return inv, nil
}

func (r *fakeInviteRepo) DeleteTerminalOlderThan(ctx context.Context, olderThan time.Time) (int, error) {
	count := 0
	for id, inv := range r.invites {
		if inv.Status != repository.StatusPending && inv.UpdatedAt.Before(olderThan) {
			delete(r.invites, id)
			count++
		}
	}
	return count, nil
}

func (r *fakeInviteRepo) DeleteOrphaned(ctx context.Context) (int, error) {
	count := 0
	for id, inv := range r.invites {
		if server, _ := r.serverRepo.FindByID(ctx, inv.ServerID); server == nil {
			delete(r.invites, id)
			count++
		}
	}
	return count, nil
}

// ============================================
// Channel repository fake
// ============================================

type fakeChannelRepo struct {
	channels map[string]*repository.Channel
	nextID   int
}

func newFakeChannelRepo() *fakeChannelRepo {
	return &fakeChannelRepo{channels: make(map[string]*repository.Channel)}
}

func (r *fakeChannelRepo) Create(ctx context.Context, channel *repository.Channel) error {
	r.nextID++
	channel.ID = fmt.Sprintf("channel-%d", r.nextID)
	channel.CreatedAt = time.Now()
	copy := *channel
	r.channels[channel.ID] = &copy
	return nil
}

func (r *fakeChannelRepo) FindByID(ctx context.Context, id string) (*repository.Channel, error) {
	if ch, ok := r.channels[id]; ok {
		copy := *ch
		return &copy, nil
	}
	return nil, nil
}

func (r *fakeChannelRepo) FindByServer(ctx context.Context, serverID string) ([]*repository.Channel, error) {
	var out []*repository.Channel
	for _, ch := range r.channels {
		if ch.ServerID == serverID {
			copy := *ch
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeChannelRepo) Delete(ctx context.Context, id string) error {
	delete(r.channels, id)
	return nil
}

// ============================================
// Shared fixture
// ============================================

// env bundles the fakes and services most tests need.
type env struct {
	users       *fakeUserRepo
	friendships *fakeFriendshipRepo
	servers     *fakeServerRepo
	roles       *fakeRoleRepo
	invites     *fakeInviteRepo
	channels    *fakeChannelRepo
	publisher   *recordingPublisher

	friendshipSvc FriendshipService
	serverSvc     ServerService
	roleSvc       RoleService
	inviteSvc     InviteService
	channelSvc    ChannelService
}

func newEnv() *env {
	users := newFakeUserRepo()
	roles := newFakeRoleRepo()
	servers := newFakeServerRepo(roles)
	roles.serverRepo = servers
	friendships := newFakeFriendshipRepo()
	invites := newFakeInviteRepo(servers, users)
	channels := newFakeChannelRepo()
	publisher := &recordingPublisher{}

	roleSvc := NewRoleService(roles, servers, publisher, nil)

	return &env{
		users:       users,
		friendships: friendships,
		servers:     servers,
		roles:       roles,
		invites:     invites,
		channels:    channels,
		publisher:   publisher,

		friendshipSvc: NewFriendshipService(friendships, users, nil, publisher),
		serverSvc:     NewServerService(servers, users, roleSvc, nil, publisher),
		roleSvc:       roleSvc,
		inviteSvc:     NewInviteService(invites, servers, users, roleSvc, nil, nil, publisher),
		channelSvc:    NewChannelService(channels, servers, roleSvc, publisher),
	}
}

// createServer is a fixture helper: owner plus a ready server.
func (e *env) createServer(t interface {
	Fatalf(format string, args ...interface{})
}, ownerID, name string) *repository.Server {
	server, err := e.serverSvc.Create(context.Background(), ownerID, name, nil)
	if err != nil {
		t.Fatalf("failed to create server %q: %v", name, err)
	}
	return server
}

// roleByName looks up a role on a server by name.
func (e *env) roleByName(serverID, name string) *repository.Role {
	for _, role := range e.roles.roles {
		if role.ServerID == serverID && role.Name == name {
			copy := *role
			return &copy
		}
	}
	return nil
}
