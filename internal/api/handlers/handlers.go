package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/havenchat/haven-backend/internal/notification"
	"github.com/havenchat/haven-backend/internal/service"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Friendship   *FriendshipHandler
	Server       *ServerHandler
	Role         *RoleHandler
	Invite       *InviteHandler
	Channel      *ChannelHandler
	Notification *NotificationHandler
}

// NewHandlers creates all handlers
func NewHandlers(services *service.Services, notifSvc *notification.Service) *Handlers {
	return &Handlers{
		Auth:         &AuthHandler{authService: services.Auth},
		User:         &UserHandler{userService: services.User},
		Friendship:   &FriendshipHandler{friendshipService: services.Friendship},
		Server:       &ServerHandler{serverService: services.Server},
		Role:         &RoleHandler{roleService: services.Role},
		Invite:       &InviteHandler{inviteService: services.Invite},
		Channel:      &ChannelHandler{channelService: services.Channel},
		Notification: &NotificationHandler{notificationService: notifSvc},
	}
}

// handleServiceError maps a service error to an HTTP response. Service
// errors carry a stable code; anything else is a 500 with no internals
// leaked to the client.
func handleServiceError(c *gin.Context, err error) {
	svcErr := service.AsError(err)
	if svcErr == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
			"code":  "INTERNAL",
		})
		return
	}

	status := http.StatusInternalServerError
	switch svcErr.Kind {
	case service.KindValidation:
		status = http.StatusBadRequest
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindForbidden:
		status = http.StatusForbidden
	case service.KindConflict:
		status = http.StatusConflict
	}

	c.JSON(status, gin.H{
		"error": svcErr.Message,
		"code":  svcErr.Code,
	})
}
