package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"chatter/pkg/chat"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrMissingFields       = errors.New("all fields are required")
	ErrPasswordTooShort    = errors.New("password must be at least 6 characters long")
	ErrInvalidEmail        = errors.New("please provide a valid email address")
	ErrUserExists          = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

const minPasswordLength = 6

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type AuthService struct {
	db         *gorm.DB
	refreshTTL time.Duration
	now        func() time.Time
}

func NewAuthService(db *gorm.DB, refreshTTL time.Duration) *AuthService {
	return &AuthService{db: db, refreshTTL: refreshTTL, now: time.Now}
}

func (s *AuthService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(fullName, email, password string) (*chat.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = normalizeEmail(email)
	if fullName == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if !emailRegex.MatchString(email) {
		return nil, ErrInvalidEmail
	}

	var count int64
	if err := s.db.Model(&chat.User{}).Unscoped().Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	hashedPassword, err := HashString(password)
	if err != nil {
		return nil, err
	}

	user := chat.User{
		FullName: fullName,
		Email:    email,
		Password: hashedPassword,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

func (s *AuthService) Login(email, password string) (*chat.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	var user chat.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !VerifyHashedString(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// UserExists reports whether userID belongs to an account that has not been
// deleted.
func (s *AuthService) UserExists(userID string) (bool, error) {
	var count int64
	if err := s.db.Model(&chat.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateRefreshToken issues an opaque "<row id>.<secret>" token. Only a bcrypt
// hash of the secret is stored.
func (s *AuthService) CreateRefreshToken(userID string) (string, error) {
	return s.createRefreshToken(s.db, userID)
}

func (s *AuthService) createRefreshToken(tx *gorm.DB, userID string) (string, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", err
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)

	hash, err := HashString(secret)
	if err != nil {
		return "", err
	}

	refreshToken := chat.RefreshToken{
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: s.now().Add(s.refreshTTL).Unix(),
	}
	if err := tx.Create(&refreshToken).Error; err != nil {
		return "", err
	}

	return strconv.FormatUint(uint64(refreshToken.ID), 10) + "." + secret, nil
}

func (s *AuthService) findRefreshToken(tx *gorm.DB, token string) (*chat.RefreshToken, error) {
	idPart, secret, ok := strings.Cut(token, ".")
	if !ok || secret == "" {
		return nil, ErrInvalidRefreshToken
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	var rt chat.RefreshToken
	err = tx.Where("id = ? AND expires_at > ?", id, s.now().Unix()).First(&rt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}
	if !VerifyHashedString(secret, rt.TokenHash) {
		return nil, ErrInvalidRefreshToken
	}
	return &rt, nil
}

func (s *AuthService) ValidateRefreshToken(token string) (*chat.User, error) {
	rt, err := s.findRefreshToken(s.db, token)
	if err != nil {
		return nil, err
	}
	return s.tokenOwner(s.db, rt)
}

func (s *AuthService) tokenOwner(tx *gorm.DB, rt *chat.RefreshToken) (*chat.User, error) {
	var user chat.User
	err := tx.Where("id = ?", rt.UserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// RotateRefreshToken exchanges a valid refresh token for a new one. The old
// token is claimed by deleting its row, so of several concurrent rotations of
// the same token exactly one succeeds. Expired tokens of the same user are
// purged on the way.
func (s *AuthService) RotateRefreshToken(token string) (*chat.User, string, error) {
	var (
		user *chat.User
		next string
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		rt, err := s.findRefreshToken(tx, token)
		if err != nil {
			return err
		}
		user, err = s.tokenOwner(tx, rt)
		if err != nil {
			return err
		}

		res := tx.Unscoped().Where("id = ?", rt.ID).Delete(&chat.RefreshToken{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrInvalidRefreshToken
		}

		err = tx.Unscoped().Where("user_id = ? AND expires_at <= ?", user.ID, s.now().Unix()).
			Delete(&chat.RefreshToken{}).Error
		if err != nil {
			return fmt.Errorf("purge expired refresh tokens: %w", err)
		}

		next, err = s.createRefreshToken(tx, user.ID)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return user, next, nil
}

func (s *AuthService) RevokeRefreshToken(token string) error {
	rt, err := s.findRefreshToken(s.db, token)
	if errors.Is(err, ErrInvalidRefreshToken) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.db.Unscoped().Delete(rt).Error
}

func (s *AuthService) RevokeAllRefreshTokens(userID string) error {
	return s.db.Unscoped().Where("user_id = ?", userID).Delete(&chat.RefreshToken{}).Error
}

func HashString(originalString string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(originalString), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func VerifyHashedString(originalString, hashedString string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedString), []byte(originalString)) == nil
}
