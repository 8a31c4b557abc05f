package message

import (
	"errors"
	"strings"

	"chatter/internal/group"
	"chatter/pkg/chat"

	"gorm.io/gorm"
)

var (
	ErrEmptyMessage   = errors.New("message must have text or an image")
	ErrUserNotFound   = errors.New("user not found")
	ErrBadMessageType = errors.New("message type must be text, image or file")
	ErrMessageToSelf  = errors.New("cannot send a message to yourself")
)

type MessageService struct {
	db     *gorm.DB
	groups *group.GroupService
}

func NewMessageService(db *gorm.DB, groups *group.GroupService) *MessageService {
	return &MessageService{db: db, groups: groups}
}

// GetSidebarUsers lists every user except userID, by name.
func (s *MessageService) GetSidebarUsers(userID string) ([]chat.User, error) {
	var users []chat.User
	err := s.db.Where("id != ?", userID).Order("full_name ASC").Find(&users).Error
	return users, err
}

// GetConversation returns the direct messages exchanged between two users,
// oldest first.
func (s *MessageService) GetConversation(userID, otherID string) ([]chat.Message, error) {
	var messages []chat.Message
	err := s.db.
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, otherID, otherID, userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error
	return messages, err
}

func (s *MessageService) SendMessage(senderID, receiverID, text, image string) (*chat.Message, error) {
	text = strings.TrimSpace(text)
	image = strings.TrimSpace(image)
	if text == "" && image == "" {
		return nil, ErrEmptyMessage
	}
	if senderID == receiverID {
		return nil, ErrMessageToSelf
	}

	var count int64
	if err := s.db.Model(&chat.User{}).Where("id = ?", receiverID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrUserNotFound
	}

	message := chat.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    text,
		Image:      image,
	}
	if err := s.db.Create(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

func (s *MessageService) requireMember(groupID, userID string) error {
	ok, err := s.groups.IsMember(groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return group.ErrNotMember
	}
	return nil
}

func normalizeType(messageType, image string) (string, error) {
	switch messageType {
	case "":
		if image != "" {
			return chat.MessageTypeImage, nil
		}
		return chat.MessageTypeText, nil
	case chat.MessageTypeText, chat.MessageTypeImage, chat.MessageTypeFile:
		return messageType, nil
	default:
		return "", ErrBadMessageType
	}
}

// SendGroupMessage stores a message from a group member. The sender counts
// as its first reader.
func (s *MessageService) SendGroupMessage(senderID, groupID, content, image, messageType string) (*chat.GroupMessage, error) {
	content = strings.TrimSpace(content)
	image = strings.TrimSpace(image)
	if content == "" && image == "" {
		return nil, ErrEmptyMessage
	}
	messageType, err := normalizeType(messageType, image)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(groupID, senderID); err != nil {
		return nil, err
	}

	var sender chat.User
	if err := s.db.First(&sender, "id = ?", senderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	message := chat.GroupMessage{
		SenderID:    senderID,
		GroupID:     groupID,
		Content:     content,
		Image:       image,
		MessageType: messageType,
		ReadBy:      []chat.User{sender},
	}
	if err := s.db.Create(&message).Error; err != nil {
		return nil, err
	}

	if err := s.db.Preload("Sender").Preload("ReadBy").First(&message, "id = ?", message.ID).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// GetGroupMessages returns the group's history oldest first and marks every
// returned message as read by userID. The returned read lists are the ones
// observed before marking.
func (s *MessageService) GetGroupMessages(userID, groupID string) ([]chat.GroupMessage, error) {
	if err := s.requireMember(groupID, userID); err != nil {
		return nil, err
	}

	var messages []chat.GroupMessage
	err := s.db.Preload("Sender").Preload("ReadBy").
		Where("group_id = ?", groupID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	var unread []string
	for _, m := range messages {
		if !readBy(m, userID) {
			unread = append(unread, m.ID)
		}
	}
	if len(unread) == 0 {
		return messages, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, id := range unread {
			err := tx.Exec("INSERT INTO group_message_reads (group_message_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
				id, userID).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func readBy(m chat.GroupMessage, userID string) bool {
	for _, u := range m.ReadBy {
		if u.ID == userID {
			return true
		}
	}
	return false
}
