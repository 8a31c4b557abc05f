package storage

import (
	"os"
	"path/filepath"
	"testing"

	"chatter/pkg/chat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestConnect_MigratesModels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatter.db")

	db, err := Connect(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })

	for _, model := range chat.AllModels() {
		assert.True(t, db.Migrator().HasTable(model), "%T", model)
	}
	assert.True(t, db.Migrator().HasTable("group_members"))
	assert.True(t, db.Migrator().HasTable("group_message_reads"))
}

func TestSeedUsers(t *testing.T) {
	db, err := Connect(filepath.Join(t.TempDir(), "seed.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })

	users := []SeedUser{
		{Email: "a@example.com", FullName: "A", Password: "secret-a"},
		{Email: "b@example.com", FullName: "B", Password: "secret-b", ProfilePicture: "https://img.test/b.png"},
	}

	created, err := SeedUsers(db, users, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = SeedUsers(db, users, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, created, "seeding is idempotent")

	var b chat.User
	require.NoError(t, db.First(&b, "email = ?", "b@example.com").Error)
	assert.Equal(t, "https://img.test/b.png", b.ProfilePicture)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(b.Password), []byte("secret-b")))
}

func TestLoadSeedFile(t *testing.T) {
	users, err := LoadSeedFile(filepath.Join("..", "..", "configs", "seed.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, users)
	assert.Equal(t, "Emma Wilson", users[0].FullName)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("users: {"), 0o600))
	_, err = LoadSeedFile(bad)
	assert.Error(t, err)
}

func TestGormLogger_LogsFailedQueries(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	db, err := Connect(filepath.Join(t.TempDir(), "log.db"), zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })

	before := logs.FilterMessage("query failed").Len()
	db.Exec("SELECT * FROM no_such_table")
	assert.Equal(t, before+1, logs.FilterMessage("query failed").Len())

	var u chat.User
	db.First(&u, "id = ?", "missing")
	assert.Equal(t, before+1, logs.FilterMessage("query failed").Len(), "record-not-found is not an error")

	quiet := NewGormLogger(zap.New(core)).LogMode(logger.Silent)
	db.Session(&gorm.Session{Logger: quiet}).Exec("SELECT * FROM no_such_table")
	assert.Equal(t, before+1, logs.FilterMessage("query failed").Len())
}
