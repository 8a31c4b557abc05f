package user

import (
	"errors"
	"fmt"
	"strings"

	"chatter/pkg/chat"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrNothingToUpdate = errors.New("nothing to update")
	ErrEmptyName       = errors.New("full name cannot be empty")
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type UpdateProfileRequest struct {
	FullName   *string `json:"fullName,omitempty"`
	ProfilePic *string `json:"profilePic,omitempty"`
}

func (s *UserService) GetUser(userID string) (*chat.User, error) {
	var user chat.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(userID string, req UpdateProfileRequest) (*chat.User, error) {
	updates := make(map[string]any)
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, ErrEmptyName
		}
		updates["full_name"] = name
	}
	if req.ProfilePic != nil && strings.TrimSpace(*req.ProfilePic) != "" {
		updates["profile_picture"] = strings.TrimSpace(*req.ProfilePic)
	}
	if len(updates) == 0 {
		return nil, ErrNothingToUpdate
	}

	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return s.GetUser(userID)
}

// DeleteAccount soft deletes the user and drops every refresh token they
// hold. The email stays reserved.
func (s *UserService) DeleteAccount(userID string) error {
	user, err := s.GetUser(userID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(user).Error; err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		if err := tx.Unscoped().Where("user_id = ?", userID).Delete(&chat.RefreshToken{}).Error; err != nil {
			return fmt.Errorf("failed to revoke refresh tokens: %w", err)
		}
		return nil
	})
}
