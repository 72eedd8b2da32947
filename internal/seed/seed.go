package seed

import (
	"context"
	"log"

	"github.com/havenchat/haven-backend/internal/repository"
	"github.com/havenchat/haven-backend/internal/service"
	"golang.org/x/crypto/bcrypt"
)

// SeedData populates a development database with a few users, a server and
// some in-flight relationship state. Never runs in production.
func SeedData(repos *repository.Repositories) {
	ctx := context.Background()

	existing, _ := repos.UserRepo.FindByEmail(ctx, "alice@havenchat.app")
	if existing != nil {
		log.Println("[Seed] Data already exists, skipping...")
		return
	}

	log.Println("[Seed] Creating development data...")

	password, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)

	alice := &repository.User{
		Username: "alice",
		Email:    "alice@havenchat.app",
		Password: string(password),
		Status:   "online",
	}
	repos.UserRepo.Create(ctx, alice)

	bob := &repository.User{
		Username: "bob",
		Email:    "bob@havenchat.app",
		Password: string(password),
		Status:   "online",
	}
	repos.UserRepo.Create(ctx, bob)

	carol := &repository.User{
		Username: "carol",
		Email:    "carol@havenchat.app",
		Password: string(password),
		Status:   "away",
	}
	repos.UserRepo.Create(ctx, carol)

	dave := &repository.User{
		Username: "dave",
		Email:    "dave@havenchat.app",
		Password: string(password),
		Status:   "offline",
	}
	repos.UserRepo.Create(ctx, dave)

	log.Println("[Seed] Created 4 users (password: password123)")

	// Alice and Bob are friends; Carol has a request pending with Alice.
	aliceBob := &repository.Friendship{
		RequesterID: alice.ID,
		ReceiverID:  bob.ID,
		Status:      repository.StatusPending,
	}
	repos.FriendshipRepo.Create(ctx, aliceBob)
	repos.FriendshipRepo.UpdateStatusIfPending(ctx, aliceBob.ID, repository.StatusAccepted)

	repos.FriendshipRepo.Create(ctx, &repository.Friendship{
		RequesterID: carol.ID,
		ReceiverID:  alice.ID,
		Status:      repository.StatusPending,
	})

	// Alice owns a server with the stock default roles.
	description := "A place to hang out"
	server := &repository.Server{
		Name:        "Haven HQ",
		Description: &description,
		OwnerID:     alice.ID,
	}
	if err := repos.ServerRepo.CreateWithDefaults(ctx, server, service.DefaultRoles()); err != nil {
		log.Printf("[Seed] Failed to create server: %v", err)
		return
	}

	// Bob joins and gets the Member role.
	repos.ServerRepo.AddMember(ctx, server.ID, bob.ID)
	roles, _ := repos.RoleRepo.FindByServer(ctx, server.ID)
	for _, role := range roles {
		if role.Name == service.DefaultRoleMember {
			repos.ServerRepo.SetMemberRole(ctx, server.ID, bob.ID, &role.ID)
		}
	}

	repos.ChannelRepo.Create(ctx, &repository.Channel{
		ServerID: server.ID,
		Name:     "general",
	})

	// Dave has an invite waiting.
	repos.InviteRepo.Create(ctx, &repository.ServerInvite{
		FromUserID: alice.ID,
		ToUserID:   dave.ID,
		ServerID:   server.ID,
		Status:     repository.StatusPending,
	})

	log.Println("[Seed] Development data ready")
}
