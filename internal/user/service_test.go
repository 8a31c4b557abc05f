package user

import (
	"testing"

	"chatter/internal/testutil"
	"chatter/pkg/chat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUpdateProfile(t *testing.T) {
	tests := []struct {
		name        string
		req         UpdateProfileRequest
		wantErr     error
		wantName    string
		wantPicture string
	}{
		{
			name:     "full name",
			req:      UpdateProfileRequest{FullName: strPtr("  Alice Cooper ")},
			wantName: "Alice Cooper",
		},
		{
			name:        "profile picture",
			req:         UpdateProfileRequest{ProfilePic: strPtr("https://img.example/a.png")},
			wantName:    "Alice",
			wantPicture: "https://img.example/a.png",
		},
		{
			name:        "both",
			req:         UpdateProfileRequest{FullName: strPtr("Al"), ProfilePic: strPtr("https://img.example/b.png")},
			wantName:    "Al",
			wantPicture: "https://img.example/b.png",
		},
		{name: "nothing", req: UpdateProfileRequest{}, wantErr: ErrNothingToUpdate},
		{name: "blank picture only", req: UpdateProfileRequest{ProfilePic: strPtr(" ")}, wantErr: ErrNothingToUpdate},
		{name: "blank name", req: UpdateProfileRequest{FullName: strPtr("")}, wantErr: ErrEmptyName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.NewInMemoryDB(t)
			service := NewUserService(db)
			alice := testutil.CreateUser(t, db, "Alice", "alice@example.com")

			got, err := service.UpdateProfile(alice.ID, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, got.FullName)
			assert.Equal(t, tt.wantPicture, got.ProfilePicture)
			assert.Equal(t, "alice@example.com", got.Email)
		})
	}
}

func TestUpdateProfile_UnknownUser(t *testing.T) {
	db := testutil.NewInMemoryDB(t)
	service := NewUserService(db)

	_, err := service.UpdateProfile("ghost", UpdateProfileRequest{FullName: strPtr("x")})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteAccount(t *testing.T) {
	db := testutil.NewInMemoryDB(t)
	service := NewUserService(db)
	alice := testutil.CreateUser(t, db, "Alice", "alice@example.com")
	bob := testutil.CreateUser(t, db, "Bob", "bob@example.com")

	require.NoError(t, db.Create(&chat.RefreshToken{UserID: alice.ID, TokenHash: "h1", ExpiresAt: 1}).Error)
	require.NoError(t, db.Create(&chat.RefreshToken{UserID: bob.ID, TokenHash: "h2", ExpiresAt: 1}).Error)

	require.NoError(t, service.DeleteAccount(alice.ID))

	_, err := service.GetUser(alice.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	var softDeleted chat.User
	require.NoError(t, db.Unscoped().First(&softDeleted, "id = ?", alice.ID).Error)
	assert.True(t, softDeleted.DeletedAt.Valid)

	var tokens []chat.RefreshToken
	require.NoError(t, db.Unscoped().Find(&tokens).Error)
	require.Len(t, tokens, 1)
	assert.Equal(t, bob.ID, tokens[0].UserID)

	assert.ErrorIs(t, service.DeleteAccount(alice.ID), ErrUserNotFound)
}
