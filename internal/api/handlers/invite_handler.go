package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/havenchat/haven-backend/internal/api/middleware"
	"github.com/havenchat/haven-backend/internal/service"
)

// ============================================
// Server Invite Handler
// ============================================

type InviteHandler struct {
	inviteService service.InviteService
}

type sendInviteRequest struct {
	ServerID string `json:"serverId" binding:"required,uuid"`
	ToUserID string `json:"toUserId" binding:"required,uuid"`
}

func (h *InviteHandler) Send(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req sendInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invite, err := h.inviteService.SendInvite(c.Request.Context(), req.ServerID, userID, req.ToUserID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":         invite.ID,
		"serverId":   invite.ServerID,
		"fromUserId": invite.FromUserID,
		"toUserId":   invite.ToUserID,
		"status":     invite.Status,
		"createdAt":  invite.CreatedAt,
	})
}

func (h *InviteHandler) Accept(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	member, err := h.inviteService.AcceptInvite(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toMemberResponse(member))
}

func (h *InviteHandler) Reject(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.inviteService.RejectInvite(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invite rejected"})
}

func (h *InviteHandler) Cancel(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.inviteService.CancelInvite(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invite cancelled"})
}

func (h *InviteHandler) ListPending(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	invites, err := h.inviteService.ListPending(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, invites)
}
