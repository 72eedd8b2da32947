// main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/havenchat/haven-backend/internal/api/handlers"
	"github.com/havenchat/haven-backend/internal/api/middleware"
	"github.com/havenchat/haven-backend/internal/config"
	"github.com/havenchat/haven-backend/internal/cron"
	"github.com/havenchat/haven-backend/internal/db"
	"github.com/havenchat/haven-backend/internal/email"
	"github.com/havenchat/haven-backend/internal/notification"
	"github.com/havenchat/haven-backend/internal/repository"
	"github.com/havenchat/haven-backend/internal/seed"
	"github.com/havenchat/haven-backend/internal/service"
	"github.com/havenchat/haven-backend/internal/socket"
	"github.com/joho/godotenv"
)

func main() {
	// ============================================
	// Load environment variables
	// ============================================
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// ============================================
	// Run Database Migrations FIRST
	// ============================================
	log.Println("Running database migrations...")
	migrationsPath := "./internal/db/migrations"
	if err := db.RunMigrations(cfg.DatabaseURL, migrationsPath); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Database migrations completed")

	// ============================================
	// Initialize PostgreSQL
	// ============================================
	postgres, err := db.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer postgres.Close()
	log.Println("Connected to PostgreSQL")

	repos := repository.NewRepositories(postgres.Pool)

	// ============================================
	// Initialize Redis (optional)
	// ============================================
	var redisDB *db.RedisDB
	if cfg.RedisURL != "" {
		redisDB, err = db.NewRedisDB(cfg.RedisURL)
		if err != nil {
			log.Printf("Failed to connect to Redis: %v (continuing without presence cache)", err)
			redisDB = nil
		} else {
			defer redisDB.Close()
			log.Println("Redis presence cache enabled")
		}
	}

	// ============================================
	// Initialize Email Service (optional)
	// ============================================
	var emailSvc *email.Service
	if cfg.SMTPHost != "" {
		emailSvc = email.NewService(&email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			UseTLS:   cfg.SMTPUseTLS,
		})
		log.Println("Email service initialized")
	} else {
		log.Println("Email not configured (SMTP_HOST not set)")
	}

	// ============================================
	// Initialize WebSocket Hub
	// ============================================
	hub := socket.NewHub()
	go hub.Run()
	broadcaster := socket.NewBroadcaster(hub)
	wsHandler := socket.NewHandler(hub, cfg.JWTSecret)
	log.Println("WebSocket hub initialized")

	// ============================================
	// Seed Data (for development)
	// ============================================
	if cfg.Environment != "production" {
		seed.SeedData(repos)
	}

	// ============================================
	// Initialize Services
	// ============================================
	notificationSvc := notification.NewService(repos.NotificationRepo)
	notificationSvc.SetBroadcaster(broadcaster)

	services := service.NewServices(&service.ServiceDeps{
		Config:      cfg,
		Repos:       repos,
		NotifSvc:    notificationSvc,
		EmailSvc:    emailSvc,
		Broadcaster: broadcaster,
		Redis:       redisDB,
	})
	log.Println("All services initialized")

	h := handlers.NewHandlers(services, notificationSvc)

	// ============================================
	// Initialize Cron Scheduler
	// ============================================
	cronScheduler := cron.NewScheduler(
		repos.FriendshipRepo,
		repos.InviteRepo,
		repos.NotificationRepo,
	)
	cronScheduler.Start()
	defer cronScheduler.Stop()

	// ============================================
	// Create Gin Router
	// ============================================
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"timestamp":  time.Now(),
			"database":   "connected",
			"presence":   getCacheStatus(redisDB),
			"websocket":  "active",
			"ws_clients": hub.GetConnectedClientsCount(),
			"email":      getEmailStatus(emailSvc),
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
			auth.POST("/logout", h.Auth.Logout)
		}

		// WebSocket route
		api.GET("/ws", wsHandler.HandleWebSocket)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(services.Auth))
		{
			users := protected.Group("/users")
			{
				users.GET("/me", h.User.GetCurrentUser)
				users.PUT("/me", h.User.UpdateCurrentUser)
				users.PUT("/me/presence", h.User.UpdatePresence)
				users.GET("/search", h.User.SearchUsers)
				users.GET("/:id", h.User.GetUser)
			}

			friends := protected.Group("/friends")
			{
				friends.GET("", h.Friendship.ListFriends)
				friends.GET("/requests", h.Friendship.ListPending)
				friends.POST("/requests", h.Friendship.SendRequest)
				friends.PUT("/requests/:id", h.Friendship.Respond)
				friends.DELETE("/requests/:id", h.Friendship.Cancel)
				friends.DELETE("/:id", h.Friendship.Remove)
			}

			servers := protected.Group("/servers")
			{
				servers.GET("", h.Server.List)
				servers.POST("", h.Server.Create)
				servers.GET("/:id", h.Server.Get)
				servers.PUT("/:id", h.Server.Update)
				servers.DELETE("/:id", h.Server.Delete)
				servers.POST("/:id/join", h.Server.Join)
				servers.POST("/:id/leave", h.Server.Leave)

				servers.GET("/:id/members", h.Server.ListMembers)
				servers.DELETE("/:id/members/:userId", h.Server.RemoveMember)

				servers.GET("/:id/roles", h.Role.List)
				servers.POST("/:id/roles", h.Role.Create)
				servers.PUT("/:id/roles/:roleId", h.Role.Update)
				servers.DELETE("/:id/roles/:roleId", h.Role.Delete)
				servers.POST("/:id/roles/assign", h.Role.Assign)

				servers.GET("/:id/channels", h.Channel.List)
				servers.POST("/:id/channels", h.Channel.Create)
				servers.DELETE("/:id/channels/:channelId", h.Channel.Delete)
			}

			invites := protected.Group("/invites")
			{
				invites.GET("", h.Invite.ListPending)
				invites.POST("", h.Invite.Send)
				invites.POST("/:id/accept", h.Invite.Accept)
				invites.POST("/:id/reject", h.Invite.Reject)
				invites.DELETE("/:id", h.Invite.Cancel)
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.GET("/count", h.Notification.Count)
				notifications.PUT("/:id/read", h.Notification.MarkAsRead)
				notifications.PUT("/read-all", h.Notification.MarkAllAsRead)
				notifications.DELETE("/:id", h.Notification.Delete)
				notifications.DELETE("", h.Notification.DeleteAll)
			}
		}
	}

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func getCacheStatus(redisDB *db.RedisDB) string {
	if redisDB != nil {
		return "connected"
	}
	return "disabled"
}

func getEmailStatus(emailSvc *email.Service) string {
	if emailSvc != nil {
		return "configured"
	}
	return "disabled"
}
