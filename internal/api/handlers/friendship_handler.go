package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/havenchat/haven-backend/internal/api/middleware"
	"github.com/havenchat/haven-backend/internal/repository"
	"github.com/havenchat/haven-backend/internal/service"
)

// ============================================
// Friendship Handler
// ============================================

type FriendshipHandler struct {
	friendshipService service.FriendshipService
}

type sendFriendRequestRequest struct {
	ReceiverID string `json:"receiverId" binding:"required,uuid"`
}

type respondFriendRequestRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

func (h *FriendshipHandler) SendRequest(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req sendFriendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	friendship, err := h.friendshipService.SendRequest(c.Request.Context(), userID, req.ReceiverID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toFriendshipResponse(friendship))
}

func (h *FriendshipHandler) Respond(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req respondFriendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	friendship, err := h.friendshipService.Respond(c.Request.Context(), c.Param("id"), userID, *req.Accept)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toFriendshipResponse(friendship))
}

func (h *FriendshipHandler) Cancel(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.friendshipService.Cancel(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Request cancelled"})
}

func (h *FriendshipHandler) Remove(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.friendshipService.Remove(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Friend removed"})
}

func (h *FriendshipHandler) ListFriends(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	friends, err := h.friendshipService.ListFriends(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, friends)
}

func (h *FriendshipHandler) ListPending(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	pending, err := h.friendshipService.ListPending(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, pending)
}

func toFriendshipResponse(f *repository.Friendship) gin.H {
	return gin.H{
		"id":          f.ID,
		"requesterId": f.RequesterID,
		"receiverId":  f.ReceiverID,
		"status":      f.Status,
		"createdAt":   f.CreatedAt,
		"updatedAt":   f.UpdatedAt,
	}
}
