package api

import (
	"net/http"

	"chatter/internal/auth"
	"chatter/internal/group"

	"github.com/gin-gonic/gin"
)

type GroupHandlers struct {
	service *group.GroupService
}

func NewGroupHandlers(service *group.GroupService) *GroupHandlers {
	return &GroupHandlers{service: service}
}

type CreateGroupRequest struct {
	Name         string   `json:"name" example:"weekend plans"`
	Description  string   `json:"description"`
	GroupPicture string   `json:"groupPicture"`
	Members      []string `json:"members"`
}

type UpdateGroupRequest struct {
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	GroupPicture *string `json:"groupPicture,omitempty"`
}

type AddMembersRequest struct {
	Members []string `json:"members" binding:"required"`
}

// CreateGroupHandler creates a group
// @Summary Create a group
// @Description The caller becomes a member and the first admin
// @Tags Groups
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body CreateGroupRequest true "Group"
// @Success 201 {object} chat.Group
// @Failure 400 {object} ErrorResponse
// @Router /api/group/create [post]
func (h *GroupHandlers) CreateGroupHandler(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	g, err := h.service.CreateGroup(auth.CurrentUserID(c), req.Name, req.Description, req.GroupPicture, req.Members)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

// ListGroupsHandler handles GET /api/group.
func (h *GroupHandlers) ListGroupsHandler(c *gin.Context) {
	groups, err := h.service.GetUserGroups(auth.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

// UpdateGroupHandler handles PUT /api/group/:groupId.
func (h *GroupHandlers) UpdateGroupHandler(c *gin.Context) {
	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	g, err := h.service.UpdateGroup(auth.CurrentUserID(c), c.Param("groupId"), group.GroupUpdate{
		Name:         req.Name,
		Description:  req.Description,
		GroupPicture: req.GroupPicture,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// AddMembersHandler handles POST /api/group/:groupId/members.
func (h *GroupHandlers) AddMembersHandler(c *gin.Context) {
	var req AddMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	g, err := h.service.AddMembers(auth.CurrentUserID(c), c.Param("groupId"), req.Members)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// LeaveGroupHandler handles POST /api/group/leave/:groupId.
func (h *GroupHandlers) LeaveGroupHandler(c *gin.Context) {
	if err := h.service.LeaveGroup(auth.CurrentUserID(c), c.Param("groupId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Left group"})
}

// RemoveMemberHandler handles DELETE /api/group/:groupId/members/:memberId.
func (h *GroupHandlers) RemoveMemberHandler(c *gin.Context) {
	err := h.service.RemoveMember(auth.CurrentUserID(c), c.Param("groupId"), c.Param("memberId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Member removed"})
}

// DeleteGroupHandler handles DELETE /api/group/:groupId.
func (h *GroupHandlers) DeleteGroupHandler(c *gin.Context) {
	if err := h.service.DeleteGroup(auth.CurrentUserID(c), c.Param("groupId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Group deleted"})
}
