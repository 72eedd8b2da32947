package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/havenchat/haven-backend/internal/api/middleware"
	"github.com/havenchat/haven-backend/internal/repository"
	"github.com/havenchat/haven-backend/internal/service"
)

// ============================================
// Channel Handler
// ============================================

type ChannelHandler struct {
	channelService service.ChannelService
}

type createChannelRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

func (h *ChannelHandler) Create(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channel, err := h.channelService.CreateChannel(c.Request.Context(), c.Param("id"), userID, req.Name)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toChannelResponse(channel))
}

func (h *ChannelHandler) Delete(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.channelService.DeleteChannel(c.Request.Context(), c.Param("channelId"), userID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Channel deleted"})
}

func (h *ChannelHandler) List(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	channels, err := h.channelService.ListChannels(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response := make([]gin.H, len(channels))
	for i, ch := range channels {
		response[i] = toChannelResponse(ch)
	}
	c.JSON(http.StatusOK, response)
}

func toChannelResponse(ch *repository.Channel) gin.H {
	return gin.H{
		"id":        ch.ID,
		"serverId":  ch.ServerID,
		"name":      ch.Name,
		"createdAt": ch.CreatedAt,
	}
}
