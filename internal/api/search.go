package api

import (
	"net/http"
	"strconv"

	"chatter/internal/auth"
	"chatter/internal/search"
	"chatter/pkg/chat"

	"github.com/gin-gonic/gin"
)

type SearchHandlers struct {
	service *search.SearchService
}

func NewSearchHandlers(service *search.SearchService) *SearchHandlers {
	return &SearchHandlers{service: service}
}

type UserSearchResponse struct {
	Users []chat.User `json:"users"`
	Total int64       `json:"total"`
	Query string      `json:"query"`
}

// SearchUsersHandler searches users
// @Summary Search users
// @Description Case-insensitive match on full name or email, excluding the caller
// @Tags Search
// @Produce json
// @Security CookieAuth
// @Param q query string true "Search query"
// @Param limit query int false "Max results (default: 20, max: 50)"
// @Success 200 {object} UserSearchResponse
// @Failure 400 {object} ErrorResponse "Missing query"
// @Router /api/users/search [get]
func (h *SearchHandlers) SearchUsersHandler(c *gin.Context) {
	query := c.Query("q")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(search.DefaultLimit)))
	if err != nil {
		badRequest(c, "limit must be a number")
		return
	}

	users, total, err := h.service.SearchUsers(auth.CurrentUserID(c), query, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if users == nil {
		users = []chat.User{}
	}

	c.JSON(http.StatusOK, UserSearchResponse{Users: users, Total: total, Query: query})
}
