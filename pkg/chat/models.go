package chat

import (
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"
)

type User struct {
	ID             string `gorm:"primaryKey;size:12" json:"id"`
	FullName       string `gorm:"not null" json:"fullName"`
	Email          string `gorm:"uniqueIndex;not null" json:"email"`
	Password       string `gorm:"not null" json:"-"`
	ProfilePicture string `json:"profilePicture"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type RefreshToken struct {
	gorm.Model
	UserID    string `gorm:"index;not null"`
	TokenHash string `gorm:"not null"`
	ExpiresAt int64  `gorm:"index"`
}

const (
	FriendRequestPending  = "pending"
	FriendRequestAccepted = "accepted"
	FriendRequestRejected = "rejected"
)

type FriendRequest struct {
	ID         string `gorm:"primaryKey;size:12" json:"id"`
	SenderID   string `gorm:"index;not null" json:"senderId"`
	ReceiverID string `gorm:"index;not null" json:"receiverId"`
	Status     string `gorm:"not null;default:pending" json:"status"`

	Sender   User `gorm:"foreignKey:SenderID" json:"sender"`
	Receiver User `gorm:"foreignKey:ReceiverID" json:"receiver"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Group struct {
	ID           string `gorm:"primaryKey;size:12" json:"id"`
	Name         string `gorm:"not null" json:"name"`
	Description  string `json:"description"`
	CreatorID    string `gorm:"index;not null" json:"creatorId"`
	GroupPicture string `json:"groupPicture"`

	Creator User   `gorm:"foreignKey:CreatorID" json:"-"`
	Members []User `gorm:"many2many:group_members" json:"members"`
	Admins  []User `gorm:"many2many:group_admins" json:"admins"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasMember reports whether userID is in the loaded Members association.
func (g *Group) HasMember(userID string) bool {
	return containsUser(g.Members, userID)
}

// HasAdmin reports whether userID is in the loaded Admins association.
func (g *Group) HasAdmin(userID string) bool {
	return containsUser(g.Admins, userID)
}

func containsUser(users []User, userID string) bool {
	for _, u := range users {
		if u.ID == userID {
			return true
		}
	}
	return false
}

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
)

type GroupMessage struct {
	ID          string `gorm:"primaryKey;size:12" json:"id"`
	SenderID    string `gorm:"index;not null" json:"senderId"`
	GroupID     string `gorm:"index;not null" json:"groupId"`
	Content     string `json:"content"`
	Image       string `json:"image,omitempty"`
	MessageType string `gorm:"not null;default:text" json:"messageType"`

	Sender User   `gorm:"foreignKey:SenderID" json:"sender"`
	ReadBy []User `gorm:"many2many:group_message_reads" json:"readBy"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is a direct message between two users.
type Message struct {
	ID         string `gorm:"primaryKey;size:12" json:"id"`
	SenderID   string `gorm:"index;not null" json:"senderId"`
	ReceiverID string `gorm:"index;not null" json:"receiverId"`
	Content    string `json:"content"`
	Image      string `json:"image,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type AuditLog struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Action      string  `gorm:"index;not null" json:"action"`
	ActorID     string  `gorm:"index;not null" json:"actorId"`
	TargetID    *string `gorm:"index" json:"targetId,omitempty"`
	GroupID     *string `gorm:"index" json:"groupId,omitempty"`
	Description string  `json:"description"`
	Metadata    string  `json:"-"`

	Actor  User  `gorm:"foreignKey:ActorID" json:"actor"`
	Target *User `gorm:"foreignKey:TargetID" json:"target,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID, err = nanoid.New(8)
	}
	return
}

func (f *FriendRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == "" {
		f.ID, err = nanoid.New(10)
	}
	return
}

func (g *Group) BeforeCreate(tx *gorm.DB) (err error) {
	if g.ID == "" {
		g.ID, err = nanoid.New(6)
	}
	return
}

func (m *GroupMessage) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID, err = nanoid.New(12)
	}
	return
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID, err = nanoid.New(12)
	}
	return
}

// AllModels lists every table migrated at startup.
func AllModels() []any {
	return []any{
		&User{},
		&RefreshToken{},
		&FriendRequest{},
		&Group{},
		&GroupMessage{},
		&Message{},
		&AuditLog{},
	}
}
