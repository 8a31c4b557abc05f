package storage

import (
	"errors"
	"fmt"
	"os"

	"chatter/pkg/chat"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type SeedUser struct {
	Email          string `yaml:"email"`
	FullName       string `yaml:"fullName"`
	Password       string `yaml:"password"`
	ProfilePicture string `yaml:"profilePicture"`
}

type seedFile struct {
	Users []SeedUser `yaml:"users"`
}

func LoadSeedFile(path string) ([]SeedUser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f.Users, nil
}

// SeedUsers inserts users whose email is not taken yet and returns how many
// were created.
func SeedUsers(db *gorm.DB, users []SeedUser, log *zap.Logger) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}

	created := 0
	for _, u := range users {
		var existing chat.User
		err := db.Unscoped().First(&existing, "email = ?", u.Email).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return created, fmt.Errorf("hash password for %s: %w", u.Email, err)
		}

		user := chat.User{
			Email:          u.Email,
			FullName:       u.FullName,
			Password:       string(hash),
			ProfilePicture: u.ProfilePicture,
		}
		if err := db.Create(&user).Error; err != nil {
			log.Warn("failed to seed user", zap.String("email", u.Email), zap.Error(err))
			continue
		}
		log.Debug("seeded user", zap.String("email", u.Email), zap.String("id", user.ID))
		created++
	}
	return created, nil
}
