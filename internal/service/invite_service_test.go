package service

import (
	"context"
	"errors"
	"testing"

	"github.com/havenchat/haven-backend/internal/repository"
	"github.com/havenchat/haven-backend/internal/socket"
)

func TestSendInvite(t *testing.T) {
	t.Run("member with INVITE_MEMBER can invite", func(t *testing.T) {
		e := newEnv()
		owner := e.users.addUser("owner")
		sender := e.users.addUser("sender")
		guest := e.users.addUser("guest")
		server := e.createServer(t, owner.ID, "Haven HQ")
		e.serverSvc.Join(context.Background(), server.ID, sender.ID)
		memberRole := e.roleByName(server.ID, DefaultRoleMember)
		e.roleSvc.AssignRole(context.Background(), server.ID, sender.ID, memberRole.ID, owner.ID)

		invite, err := e.inviteSvc.SendInvite(context.Background(), server.ID, sender.ID, guest.ID)
		if err != nil {
			t.Fatalf("send invite failed: %v", err)
		}
		if invite.Status != repository.StatusPending {
			t.Errorf("expected PENDING, got %s", invite.Status)
		}

		events := e.publisher.userEventsOfType(socket.MessageServerInviteReceived)
		if len(events) != 1 || events[0].Target != guest.ID {
			t.Errorf("expected invite event to guest, got %+v", events)
		}

		// Full record plus the resolved display names.
		payload := events[0].Payload
		if payload["id"] != invite.ID || payload["serverId"] != server.ID {
			t.Errorf("payload record mismatch: %+v", payload)
		}
		if payload["fromUserId"] != sender.ID || payload["toUserId"] != guest.ID {
			t.Errorf("payload parties mismatch: %+v", payload)
		}
		if payload["status"] != repository.StatusPending {
			t.Errorf("payload status = %v, want %s", payload["status"], repository.StatusPending)
		}
		if payload["serverName"] != "Haven HQ" {
			t.Errorf("payload serverName = %v", payload["serverName"])
		}
	})

	t.Run("non-member cannot invite", func(t *testing.T) {
		e := newEnv()
		owner := e.users.addUser("owner")
		outsider := e.users.addUser("outsider")
		guest := e.users.addUser("guest")
		server := e.createServer(t, owner.ID, "Haven HQ")

		_, err := e.inviteSvc.SendInvite(context.Background(), server.ID, outsider.ID, guest.ID)
		if !errors.Is(err, ErrNotAMember) {
			t.Errorf("expected ErrNotAMember, got %v", err)
		}
	})

	t.Run("inviting an existing member is ALREADY_MEMBER", func(t *testing.T) {
		e := newEnv()
		owner := e.users.addUser("owner")
		member := e.users.addUser("member")
		server := e.createServer(t, owner.ID, "Haven HQ")
		e.serverSvc.Join(context.Background(), server.ID, member.ID)

		_, err := e.inviteSvc.SendInvite(context.Background(), server.ID, owner.ID, member.ID)
		if !errors.Is(err, ErrAlreadyMember) {
			t.Errorf("expected ErrAlreadyMember, got %v", err)
		}
	})

	t.Run("one pending invite per user and server", func(t *testing.T) {
		e := newEnv()
		owner := e.users.addUser("owner")
		guest := e.users.addUser("guest")
		server := e.createServer(t, owner.ID, "Haven HQ")

		if _, err := e.inviteSvc.SendInvite(context.Background(), server.ID, owner.ID, guest.ID); err != nil {
			t.Fatalf("first invite failed: %v", err)
		}
		_, err := e.inviteSvc.SendInvite(context.Background(), server.ID, owner.ID, guest.ID)
		if !errors.Is(err, ErrInviteExists) {
			t.Errorf("expected ErrInviteExists, got %v", err)
		}
	})

	t.Run("unknown server or user", func(t *testing.T) {
		e := newEnv()
		owner := e.users.addUser("owner")
		guest := e.users.addUser("guest")
		server := e.createServer(t, owner.ID, "Haven HQ")

		if _, err := e.inviteSvc.SendInvite(context.Background(), "nope", owner.ID, guest.ID); !errors.Is(err, ErrServerNotFound) {
			t.Errorf("expected ErrServerNotFound, got %v", err)
		}
		if _, err := e.inviteSvc.SendInvite(context.Background(), server.ID, owner.ID, "nope"); !errors.Is(err, ErrPeerNotFound) {
			t.Errorf("expected ErrPeerNotFound, got %v", err)
		}
	})
}

func TestAcceptInvite(t *testing.T) {
	t.Run("accept admits the user and notifies the sender", func(t *testing.T) {
		e := newEnv()
		owner := e.users.addUser("owner")
		guest := e.users.addUser("guest")
		server := e.createServer(t, owner.ID, "Haven HQ")
		invite, _ := e.inviteSvc.SendInvite(context.Background(), server.ID, owner.ID, guest.ID)

		member, err := e.inviteSvc.AcceptInvite(context.Background(), invite.ID, guest.ID)
		if err != nil {
			t.Fatalf("accept failed: %v", err)
		}
		if member == nil || member.UserID != guest.ID {
			t.Fatalf("expected membership for guest, got %+v", member)
		}

		stored, _ := e.invites.FindByID(context.Background(), invite.ID)
		if stored.Status != repository.StatusAccepted {
			t.Errorf("invite status = %s, want ACCEPTED", stored.Status)
		}

		events := e.publisher.userEventsOfType(socket.MessageServerInviteAccepted)
		if len(events) != 1 || events[0].Target != owner.ID {
			t.Errorf("expected accepted event to sender, got %+v", events)
		}
	})

	t.Run("only the recipient may accept", func(t *testing.T) {
		e := newEnv()
		owner := e.users.addUser("owner")
		guest := e.users.addUser("guest")
		other := e.users.addUser("other")
		server := e.createServer(t, owner.ID, "Haven HQ")
		invite, _ := e.inviteSvc.SendInvite(context.Background(), server.ID, owner.ID, guest.ID)

		if _, err := e.inviteSvc.AcceptInvite(context.Background(), invite.ID, other.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("repeated accept is an idempotent success", func(t *testing.T) {
		e := newEnv()
		owner := e.users.addUser("owner")
		guest := e.users.addUser("guest")
		server := e.createServer(t, owner.ID, "Haven HQ")
		invite, _ := e.inviteSvc.SendInvite(context.Background(), server.ID, owner.ID, guest.ID)

		if _, err := e.inviteSvc.AcceptInvite(context.Background(), invite.ID, guest.ID); err != nil {
			t.Fatalf("first accept failed: %v", err)
		}
		member, err := e.inviteSvc.AcceptInvite(context.Background(), invite.ID, guest.ID)
		if err != nil {
			t.Fatalf("second accept should succeed, got %v", err)
		}
		if member == nil || member.UserID != guest.ID {
			t.Errorf("expected existing membership, got %+v", member)
		}
	})

	t.Run("accept after reject is ALREADY_RESOLVED", func(t *testing.T) {
		e := newEnv()
		owner := e.users.addUser("owner")
		guest := e.users.addUser("guest")
		server := e.createServer(t, owner.ID, "Haven HQ")
		invite, _ := e.inviteSvc.SendInvite(context.Background(), server.ID, owner.ID, guest.ID)

		if err := e.inviteSvc.RejectInvite(context.Background(), invite.ID, guest.ID); err != nil {
			t.Fatalf("reject failed: %v", err)
		}
		_, err := e.inviteSvc.AcceptInvite(context.Background(), invite.ID, guest.ID)
		if !errors.Is(err, ErrAlreadyResolved) {
			t.Errorf("expected ErrAlreadyResolved, got %v", err)
		}

		// Rejection did not admit the user.
		if m, _ := e.servers.FindMember(context.Background(), server.ID, guest.ID); m != nil {
			t.Error("rejected invite must not create a membership")
		}
	})

	t.Run("accept against a deleted server fails cleanly", func(t *testing.T) {
		e := newEnv()
		owner := e.users.addUser("owner")
		guest := e.users.addUser("guest")
		server := e.createServer(t, owner.ID, "Haven HQ")
		invite, _ := e.inviteSvc.SendInvite(context.Background(), server.ID, owner.ID, guest.ID)

		e.serverSvc.Delete(context.Background(), server.ID, owner.ID)

		_, err := e.inviteSvc.AcceptInvite(context.Background(), invite.ID, guest.ID)
		if !errors.Is(err, ErrServerNotFound) {
			t.Errorf("expected ErrServerNotFound, got %v", err)
		}
	})
}

func TestRejectAndCancelInvite(t *testing.T) {
	t.Run("repeated reject is idempotent", func(t *testing.T) {
		e := newEnv()
		owner := e.users.addUser("owner")
		guest := e.users.addUser("guest")
		server := e.createServer(t, owner.ID, "Haven HQ")
		invite, _ := e.inviteSvc.SendInvite(context.Background(), server.ID, owner.ID, guest.ID)

		if err := e.inviteSvc.RejectInvite(context.Background(), invite.ID, guest.ID); err != nil {
			t.Fatalf("reject failed: %v", err)
		}
		if err := e.inviteSvc.RejectInvite(context.Background(), invite.ID, guest.ID); err != nil {
			t.Errorf("second reject should be a no-op, got %v", err)
		}
	})

	t.Run("only the sender may cancel", func(t *testing.T) {
		e := newEnv()
		owner := e.users.addUser("owner")
		guest := e.users.addUser("guest")
		server := e.createServer(t, owner.ID, "Haven HQ")
		invite, _ := e.inviteSvc.SendInvite(context.Background(), server.ID, owner.ID, guest.ID)

		if err := e.inviteSvc.CancelInvite(context.Background(), invite.ID, guest.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("recipient cancelling: expected ErrForbidden, got %v", err)
		}
		if err := e.inviteSvc.CancelInvite(context.Background(), invite.ID, owner.ID); err != nil {
			t.Fatalf("sender cancel failed: %v", err)
		}

		events := e.publisher.userEventsOfType(socket.MessageServerInviteCancelled)
		if len(events) != 1 || events[0].Target != guest.ID {
			t.Errorf("expected cancelled event to guest, got %+v", events)
		}
	})
}

func TestListPendingInvites(t *testing.T) {
	e := newEnv()
	owner := e.users.addUser("owner")
	guest := e.users.addUser("guest")
	keep := e.createServer(t, owner.ID, "Keep")
	doomed := e.createServer(t, owner.ID, "Doomed")

	e.inviteSvc.SendInvite(context.Background(), keep.ID, owner.ID, guest.ID)
	e.inviteSvc.SendInvite(context.Background(), doomed.ID, owner.ID, guest.ID)

	// Deleting a server silently drops its invites from the listing.
	e.serverSvc.Delete(context.Background(), doomed.ID, owner.ID)

	pending, err := e.inviteSvc.ListPending(context.Background(), guest.ID)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending invite, got %d", len(pending))
	}
	if pending[0].ServerName != "Keep" {
		t.Errorf("expected invite for Keep, got %s", pending[0].ServerName)
	}
}
