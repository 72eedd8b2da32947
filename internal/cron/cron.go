package cron

import (
	"context"
	"log"
	"time"

	"github.com/havenchat/haven-backend/internal/repository"
	"github.com/robfig/cron/v3"
)

// Scheduler handles scheduled maintenance tasks
type Scheduler struct {
	cron             *cron.Cron
	friendshipRepo   repository.FriendshipRepository
	inviteRepo       repository.InviteRepository
	notificationRepo repository.NotificationRepository
}

// NewScheduler creates a new scheduler
func NewScheduler(
	friendshipRepo repository.FriendshipRepository,
	inviteRepo repository.InviteRepository,
	notificationRepo repository.NotificationRepository,
) *Scheduler {
	return &Scheduler{
		cron:             cron.New(),
		friendshipRepo:   friendshipRepo,
		inviteRepo:       inviteRepo,
		notificationRepo: notificationRepo,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	// Purge REJECTED friendship rows nightly. REJECTED rows do not block a
	// re-request, they only record history, so dropping them is safe.
	s.cron.AddFunc("0 3 * * *", func() {
		log.Println("[Cron] Running rejected friendship cleanup...")
		s.cleanupRejectedFriendships()
	})

	// Purge terminal invites nightly.
	s.cron.AddFunc("30 3 * * *", func() {
		log.Println("[Cron] Running terminal invite cleanup...")
		s.cleanupTerminalInvites()
	})

	// Reap invites whose server was deleted. Listing already hides them;
	// this keeps the table from accumulating dead rows.
	s.cron.AddFunc("0 * * * *", func() {
		log.Println("[Cron] Running orphaned invite cleanup...")
		s.cleanupOrphanedInvites()
	})

	// Clean up old read notifications - Run every Sunday at midnight
	s.cron.AddFunc("0 0 * * 0", func() {
		log.Println("[Cron] Running notification cleanup...")
		s.cleanupOldNotifications()
	})

	s.cron.Start()
	log.Println("[Cron] Scheduler started")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[Cron] Scheduler stopped")
}

func (s *Scheduler) cleanupRejectedFriendships() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -30)
	count, err := s.friendshipRepo.DeleteRejectedOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("[Cron] Failed to clean up rejected friendships: %v", err)
		return
	}
	if count > 0 {
		log.Printf("[Cron] Deleted %d rejected friendships", count)
	}
}

func (s *Scheduler) cleanupTerminalInvites() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -30)
	count, err := s.inviteRepo.DeleteTerminalOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("[Cron] Failed to clean up terminal invites: %v", err)
		return
	}
	if count > 0 {
		log.Printf("[Cron] Deleted %d terminal invites", count)
	}
}

func (s *Scheduler) cleanupOrphanedInvites() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := s.inviteRepo.DeleteOrphaned(ctx)
	if err != nil {
		log.Printf("[Cron] Failed to clean up orphaned invites: %v", err)
		return
	}
	if count > 0 {
		log.Printf("[Cron] Deleted %d orphaned invites", count)
	}
}

func (s *Scheduler) cleanupOldNotifications() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -30)
	count, err := s.notificationRepo.DeleteOlderThan(ctx, cutoff, true)
	if err != nil {
		log.Printf("[Cron] Failed to clean up notifications: %v", err)
		return
	}
	if count > 0 {
		log.Printf("[Cron] Deleted %d old notifications", count)
	}
}
