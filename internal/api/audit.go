package api

import (
	"net/http"
	"strconv"

	"chatter/internal/audit"
	"chatter/internal/auth"
	"chatter/pkg/chat"

	"github.com/gin-gonic/gin"
)

type AuditHandlers struct {
	service *audit.AuditService
}

func NewAuditHandlers(service *audit.AuditService) *AuditHandlers {
	return &AuditHandlers{service: service}
}

type AuditLogsResponse struct {
	Logs  []chat.AuditLog `json:"logs"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// pagination reads page and limit, defaulting to 1 and 20 and capping limit
// at 100.
func pagination(c *gin.Context) (page, limit int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// GetGroupAuditLogsHandler gets audit logs for a group
// @Summary Get group audit logs
// @Description Only group admins can view the log, newest first
// @Tags Audit Logs
// @Produce json
// @Security CookieAuth
// @Param groupId path string true "Group ID"
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Results per page (default: 20, max: 100)"
// @Success 200 {object} AuditLogsResponse
// @Failure 403 {object} ErrorResponse "Only group admins can view audit logs"
// @Failure 404 {object} ErrorResponse "Group not found"
// @Router /api/group/{groupId}/audit [get]
func (h *AuditHandlers) GetGroupAuditLogsHandler(c *gin.Context) {
	page, limit := pagination(c)

	logs, total, err := h.service.GetGroupAuditLogs(auth.CurrentUserID(c), c.Param("groupId"), limit, (page-1)*limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if logs == nil {
		logs = []chat.AuditLog{}
	}

	c.JSON(http.StatusOK, AuditLogsResponse{Logs: logs, Total: total, Page: page, Limit: limit})
}
