package search

import (
	"errors"
	"strings"

	"chatter/pkg/chat"

	"gorm.io/gorm"
)

var ErrEmptyQuery = errors.New("search query is required")

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

type SearchService struct {
	db *gorm.DB
}

func NewSearchService(db *gorm.DB) *SearchService {
	return &SearchService{db: db}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// SearchUsers matches query against full name and email, case-insensitively,
// excluding the searcher. The total counts every match regardless of limit.
func (s *SearchService) SearchUsers(searcherID, query string, limit int) ([]chat.User, int64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	likeQuery := "%" + escapeLike(strings.ToLower(query)) + "%"
	match := s.db.Model(&chat.User{}).
		Where(`(LOWER(full_name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\') AND id != ?`,
			likeQuery, likeQuery, searcherID)

	var total int64
	if err := match.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []chat.User
	err := match.Session(&gorm.Session{}).
		Order("full_name ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
