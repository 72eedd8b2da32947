package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/havenchat/haven-backend/internal/api/middleware"
	"github.com/havenchat/haven-backend/internal/repository"
	"github.com/havenchat/haven-backend/internal/service"
)

// ============================================
// Role Handler
// ============================================

type RoleHandler struct {
	roleService service.RoleService
}

type createRoleRequest struct {
	Name        string   `json:"name" binding:"required,min=1,max=50"`
	Color       *string  `json:"color"`
	Permissions []string `json:"permissions"`
}

type updateRoleRequest struct {
	Name        *string  `json:"name"`
	Color       *string  `json:"color"`
	Permissions []string `json:"permissions"`
}

type assignRoleRequest struct {
	UserID string `json:"userId" binding:"required,uuid"`
	RoleID string `json:"roleId" binding:"required,uuid"`
}

func (h *RoleHandler) Create(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req createRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := h.roleService.CreateRole(c.Request.Context(),
		c.Param("id"), userID, req.Name, req.Color, toPermissions(req.Permissions))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toRoleResponse(role))
}

func (h *RoleHandler) Update(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var perms []service.Permission
	if req.Permissions != nil {
		perms = toPermissions(req.Permissions)
	}

	role, err := h.roleService.UpdateRole(c.Request.Context(),
		c.Param("roleId"), userID, req.Name, req.Color, perms)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRoleResponse(role))
}

func (h *RoleHandler) Delete(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.roleService.DeleteRole(c.Request.Context(), c.Param("roleId"), userID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Role deleted"})
}

func (h *RoleHandler) Assign(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req assignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.roleService.AssignRole(c.Request.Context(),
		c.Param("id"), req.UserID, req.RoleID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toMemberResponse(member))
}

func (h *RoleHandler) List(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	roles, err := h.roleService.ListRoles(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response := make([]gin.H, len(roles))
	for i, r := range roles {
		response[i] = toRoleResponse(r)
	}
	c.JSON(http.StatusOK, response)
}

func toPermissions(raw []string) []service.Permission {
	perms := make([]service.Permission, len(raw))
	for i, p := range raw {
		perms[i] = service.Permission(p)
	}
	return perms
}

func toRoleResponse(r *repository.Role) gin.H {
	return gin.H{
		"id":          r.ID,
		"serverId":    r.ServerID,
		"name":        r.Name,
		"color":       r.Color,
		"permissions": r.Permissions,
		"isDefault":   r.IsDefault,
		"createdAt":   r.CreatedAt,
	}
}
