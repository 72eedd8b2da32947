package service

import (
	"context"
	"errors"
	"testing"

	"github.com/havenchat/haven-backend/internal/repository"
	"github.com/havenchat/haven-backend/internal/socket"
)

func TestSendRequest(t *testing.T) {
	t.Run("creates a pending request and notifies the receiver", func(t *testing.T) {
		e := newEnv()
		alice := e.users.addUser("alice")
		bob := e.users.addUser("bob")

		friendship, err := e.friendshipSvc.SendRequest(context.Background(), alice.ID, bob.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if friendship.Status != repository.StatusPending {
			t.Errorf("expected PENDING, got %s", friendship.Status)
		}

		events := e.publisher.userEventsOfType(socket.MessageFriendRequestReceived)
		if len(events) != 1 {
			t.Fatalf("expected 1 friendRequest:received event, got %d", len(events))
		}
		if events[0].Target != bob.ID {
			t.Errorf("event went to %s, want %s", events[0].Target, bob.ID)
		}
	})

	t.Run("rejects self requests", func(t *testing.T) {
		e := newEnv()
		alice := e.users.addUser("alice")

		_, err := e.friendshipSvc.SendRequest(context.Background(), alice.ID, alice.ID)
		if !errors.Is(err, ErrSelfRequest) {
			t.Errorf("expected ErrSelfRequest, got %v", err)
		}
	})

	t.Run("rejects unknown receivers", func(t *testing.T) {
		e := newEnv()
		alice := e.users.addUser("alice")

		_, err := e.friendshipSvc.SendRequest(context.Background(), alice.ID, "no-such-user")
		if !errors.Is(err, ErrPeerNotFound) {
			t.Errorf("expected ErrPeerNotFound, got %v", err)
		}
	})

	t.Run("rejects a duplicate request in either direction", func(t *testing.T) {
		e := newEnv()
		alice := e.users.addUser("alice")
		bob := e.users.addUser("bob")

		if _, err := e.friendshipSvc.SendRequest(context.Background(), alice.ID, bob.ID); err != nil {
			t.Fatalf("first request failed: %v", err)
		}

		// Same direction.
		_, err := e.friendshipSvc.SendRequest(context.Background(), alice.ID, bob.ID)
		if !errors.Is(err, ErrRequestExists) {
			t.Errorf("expected ErrRequestExists, got %v", err)
		}

		// Reverse direction collapses onto the same unordered pair.
		_, err = e.friendshipSvc.SendRequest(context.Background(), bob.ID, alice.ID)
		if !errors.Is(err, ErrRequestExists) {
			t.Errorf("expected ErrRequestExists for reverse direction, got %v", err)
		}
	})

	t.Run("allows a new request after a rejection", func(t *testing.T) {
		e := newEnv()
		alice := e.users.addUser("alice")
		bob := e.users.addUser("bob")

		first, err := e.friendshipSvc.SendRequest(context.Background(), alice.ID, bob.ID)
		if err != nil {
			t.Fatalf("first request failed: %v", err)
		}
		if _, err := e.friendshipSvc.Respond(context.Background(), first.ID, bob.ID, false); err != nil {
			t.Fatalf("reject failed: %v", err)
		}

		if _, err := e.friendshipSvc.SendRequest(context.Background(), alice.ID, bob.ID); err != nil {
			t.Errorf("expected re-request after rejection to succeed, got %v", err)
		}
	})
}

func TestRespond(t *testing.T) {
	t.Run("accept establishes the friendship and notifies the requester", func(t *testing.T) {
		e := newEnv()
		alice := e.users.addUser("alice")
		bob := e.users.addUser("bob")

		req, _ := e.friendshipSvc.SendRequest(context.Background(), alice.ID, bob.ID)
		accepted, err := e.friendshipSvc.Respond(context.Background(), req.ID, bob.ID, true)
		if err != nil {
			t.Fatalf("accept failed: %v", err)
		}
		if accepted.Status != repository.StatusAccepted {
			t.Errorf("expected ACCEPTED, got %s", accepted.Status)
		}

		events := e.publisher.userEventsOfType(socket.MessageFriendRequestResponded)
		if len(events) != 1 {
			t.Fatalf("expected 1 responded event, got %d", len(events))
		}
		if events[0].Target != alice.ID {
			t.Errorf("responded event went to %s, want requester %s", events[0].Target, alice.ID)
		}

		// The payload is the full updated record, so a client can reconcile
		// its state from the event alone.
		payload := events[0].Payload
		if payload["id"] != req.ID {
			t.Errorf("payload id = %v, want %s", payload["id"], req.ID)
		}
		if payload["requesterId"] != alice.ID {
			t.Errorf("payload requesterId = %v, want %s", payload["requesterId"], alice.ID)
		}
		if payload["receiverId"] != bob.ID {
			t.Errorf("payload receiverId = %v, want %s", payload["receiverId"], bob.ID)
		}
		if payload["status"] != repository.StatusAccepted {
			t.Errorf("payload status = %v, want %s", payload["status"], repository.StatusAccepted)
		}
		for _, field := range []string{"createdAt", "updatedAt"} {
			if _, ok := payload[field]; !ok {
				t.Errorf("payload missing %s", field)
			}
		}
	})

	t.Run("only the receiver may respond", func(t *testing.T) {
		e := newEnv()
		alice := e.users.addUser("alice")
		bob := e.users.addUser("bob")
		carol := e.users.addUser("carol")

		req, _ := e.friendshipSvc.SendRequest(context.Background(), alice.ID, bob.ID)

		if _, err := e.friendshipSvc.Respond(context.Background(), req.ID, alice.ID, true); !errors.Is(err, ErrForbidden) {
			t.Errorf("requester responding: expected ErrForbidden, got %v", err)
		}
		if _, err := e.friendshipSvc.Respond(context.Background(), req.ID, carol.ID, true); !errors.Is(err, ErrForbidden) {
			t.Errorf("third party responding: expected ErrForbidden, got %v", err)
		}
	})

	t.Run("repeating the same decision is an idempotent success", func(t *testing.T) {
		e := newEnv()
		alice := e.users.addUser("alice")
		bob := e.users.addUser("bob")

		req, _ := e.friendshipSvc.SendRequest(context.Background(), alice.ID, bob.ID)
		if _, err := e.friendshipSvc.Respond(context.Background(), req.ID, bob.ID, true); err != nil {
			t.Fatalf("first accept failed: %v", err)
		}

		again, err := e.friendshipSvc.Respond(context.Background(), req.ID, bob.ID, true)
		if err != nil {
			t.Fatalf("second accept should be a no-op success, got %v", err)
		}
		if again.Status != repository.StatusAccepted {
			t.Errorf("expected ACCEPTED, got %s", again.Status)
		}

		// The second accept must not emit a duplicate event.
		events := e.publisher.userEventsOfType(socket.MessageFriendRequestResponded)
		if len(events) != 1 {
			t.Errorf("expected 1 responded event after replay, got %d", len(events))
		}
	})

	t.Run("a conflicting decision after resolution is ALREADY_RESOLVED", func(t *testing.T) {
		e := newEnv()
		alice := e.users.addUser("alice")
		bob := e.users.addUser("bob")

		req, _ := e.friendshipSvc.SendRequest(context.Background(), alice.ID, bob.ID)
		if _, err := e.friendshipSvc.Respond(context.Background(), req.ID, bob.ID, true); err != nil {
			t.Fatalf("accept failed: %v", err)
		}

		_, err := e.friendshipSvc.Respond(context.Background(), req.ID, bob.ID, false)
		if !errors.Is(err, ErrAlreadyResolved) {
			t.Errorf("expected ErrAlreadyResolved, got %v", err)
		}
	})

	t.Run("unknown request is REQUEST_NOT_FOUND", func(t *testing.T) {
		e := newEnv()
		bob := e.users.addUser("bob")

		_, err := e.friendshipSvc.Respond(context.Background(), "nope", bob.ID, true)
		if !errors.Is(err, ErrRequestNotFound) {
			t.Errorf("expected ErrRequestNotFound, got %v", err)
		}
	})
}

func TestCancel(t *testing.T) {
	t.Run("requester cancels a pending request", func(t *testing.T) {
		e := newEnv()
		alice := e.users.addUser("alice")
		bob := e.users.addUser("bob")

		req, _ := e.friendshipSvc.SendRequest(context.Background(), alice.ID, bob.ID)
		if err := e.friendshipSvc.Cancel(context.Background(), req.ID, alice.ID); err != nil {
			t.Fatalf("cancel failed: %v", err)
		}

		events := e.publisher.userEventsOfType(socket.MessageFriendRequestCancelled)
		if len(events) != 1 || events[0].Target != bob.ID {
			t.Errorf("expected cancelled event to %s, got %+v", bob.ID, events)
		}

		// The pair is free again.
		if _, err := e.friendshipSvc.SendRequest(context.Background(), bob.ID, alice.ID); err != nil {
			t.Errorf("expected re-request after cancel to succeed, got %v", err)
		}
	})

	t.Run("receiver cannot cancel", func(t *testing.T) {
		e := newEnv()
		alice := e.users.addUser("alice")
		bob := e.users.addUser("bob")

		req, _ := e.friendshipSvc.SendRequest(context.Background(), alice.ID, bob.ID)
		if err := e.friendshipSvc.Cancel(context.Background(), req.ID, bob.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("cancel after acceptance is ALREADY_RESOLVED", func(t *testing.T) {
		e := newEnv()
		alice := e.users.addUser("alice")
		bob := e.users.addUser("bob")

		req, _ := e.friendshipSvc.SendRequest(context.Background(), alice.ID, bob.ID)
		e.friendshipSvc.Respond(context.Background(), req.ID, bob.ID, true)

		if err := e.friendshipSvc.Cancel(context.Background(), req.ID, alice.ID); !errors.Is(err, ErrAlreadyResolved) {
			t.Errorf("expected ErrAlreadyResolved, got %v", err)
		}
	})
}

func TestRemove(t *testing.T) {
	t.Run("either side can remove an accepted friendship", func(t *testing.T) {
		e := newEnv()
		alice := e.users.addUser("alice")
		bob := e.users.addUser("bob")

		req, _ := e.friendshipSvc.SendRequest(context.Background(), alice.ID, bob.ID)
		e.friendshipSvc.Respond(context.Background(), req.ID, bob.ID, true)

		// Receiver side removes.
		if err := e.friendshipSvc.Remove(context.Background(), req.ID, bob.ID); err != nil {
			t.Fatalf("remove failed: %v", err)
		}

		events := e.publisher.userEventsOfType(socket.MessageFriendshipRemoved)
		if len(events) != 2 {
			t.Errorf("expected removal events to both parties, got %d", len(events))
		}

		friends, _ := e.friendshipSvc.ListFriends(context.Background(), alice.ID)
		if len(friends) != 0 {
			t.Errorf("expected no friends after removal, got %d", len(friends))
		}
	})

	t.Run("non-party cannot remove", func(t *testing.T) {
		e := newEnv()
		alice := e.users.addUser("alice")
		bob := e.users.addUser("bob")
		carol := e.users.addUser("carol")

		req, _ := e.friendshipSvc.SendRequest(context.Background(), alice.ID, bob.ID)
		e.friendshipSvc.Respond(context.Background(), req.ID, bob.ID, true)

		if err := e.friendshipSvc.Remove(context.Background(), req.ID, carol.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("a pending request cannot be removed", func(t *testing.T) {
		e := newEnv()
		alice := e.users.addUser("alice")
		bob := e.users.addUser("bob")

		req, _ := e.friendshipSvc.SendRequest(context.Background(), alice.ID, bob.ID)
		if err := e.friendshipSvc.Remove(context.Background(), req.ID, alice.ID); !errors.Is(err, ErrRequestNotFound) {
			t.Errorf("expected ErrRequestNotFound, got %v", err)
		}
	})
}

func TestListFriends(t *testing.T) {
	e := newEnv()
	alice := e.users.addUser("alice")
	bob := e.users.addUser("bob")
	carol := e.users.addUser("carol")

	// alice<->bob accepted, carol->alice still pending.
	req, _ := e.friendshipSvc.SendRequest(context.Background(), alice.ID, bob.ID)
	e.friendshipSvc.Respond(context.Background(), req.ID, bob.ID, true)
	e.friendshipSvc.SendRequest(context.Background(), carol.ID, alice.ID)

	aliceFriends, err := e.friendshipSvc.ListFriends(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("ListFriends failed: %v", err)
	}
	if len(aliceFriends) != 1 || aliceFriends[0].UserID != bob.ID {
		t.Errorf("alice's friends = %+v, want just bob", aliceFriends)
	}

	// Symmetric: bob sees alice even though alice initiated.
	bobFriends, _ := e.friendshipSvc.ListFriends(context.Background(), bob.ID)
	if len(bobFriends) != 1 || bobFriends[0].UserID != alice.ID {
		t.Errorf("bob's friends = %+v, want just alice", bobFriends)
	}

	pending, _ := e.friendshipSvc.ListPending(context.Background(), alice.ID)
	if len(pending) != 1 || pending[0].RequesterID != carol.ID {
		t.Errorf("alice's pending = %+v, want carol's request", pending)
	}

	// The requester does not see their own outgoing request as incoming.
	carolPending, _ := e.friendshipSvc.ListPending(context.Background(), carol.ID)
	if len(carolPending) != 0 {
		t.Errorf("carol's pending = %+v, want empty", carolPending)
	}
}
