package friend

import (
	"errors"

	"chatter/pkg/chat"

	"gorm.io/gorm"
)

var (
	ErrRequestExists   = errors.New("friend request already exists")
	ErrSelfRequest     = errors.New("cannot send a friend request to yourself")
	ErrUserNotFound    = errors.New("user not found")
	ErrRequestNotFound = errors.New("friend request not found")
	ErrNotReceiver     = errors.New("not authorized to handle this request")
	ErrBadAction       = errors.New("action must be accept or reject")
)

const (
	ActionAccept = "accept"
	ActionReject = "reject"
)

type FriendService struct {
	db *gorm.DB
}

func NewFriendService(db *gorm.DB) *FriendService {
	return &FriendService{db: db}
}

// SendRequest creates a pending request. Only one request may exist between
// two users, whichever direction it was sent in.
func (s *FriendService) SendRequest(senderID, receiverID string) (*chat.FriendRequest, error) {
	if senderID == receiverID {
		return nil, ErrSelfRequest
	}

	var receivers int64
	if err := s.db.Model(&chat.User{}).Where("id = ?", receiverID).Count(&receivers).Error; err != nil {
		return nil, err
	}
	if receivers == 0 {
		return nil, ErrUserNotFound
	}

	var existing int64
	err := s.db.Model(&chat.FriendRequest{}).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			senderID, receiverID, receiverID, senderID).
		Count(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrRequestExists
	}

	request := chat.FriendRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     chat.FriendRequestPending,
	}
	if err := s.db.Create(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// GetPendingReceived lists pending requests addressed to userID.
func (s *FriendService) GetPendingReceived(userID string) ([]chat.FriendRequest, error) {
	var requests []chat.FriendRequest
	err := s.db.Preload("Sender").
		Where("receiver_id = ? AND status = ?", userID, chat.FriendRequestPending).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

// GetPendingSent lists pending requests sent by userID.
func (s *FriendService) GetPendingSent(userID string) ([]chat.FriendRequest, error) {
	var requests []chat.FriendRequest
	err := s.db.Preload("Receiver").
		Where("sender_id = ? AND status = ?", userID, chat.FriendRequestPending).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

// HandleRequest accepts or rejects a request addressed to userID. A rejected
// request is deleted; the returned value then carries the rejected status.
func (s *FriendService) HandleRequest(userID, requestID, action string) (*chat.FriendRequest, error) {
	if action != ActionAccept && action != ActionReject {
		return nil, ErrBadAction
	}

	var request chat.FriendRequest
	err := s.db.First(&request, "id = ?", requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	if request.ReceiverID != userID {
		return nil, ErrNotReceiver
	}

	if action == ActionAccept {
		request.Status = chat.FriendRequestAccepted
		if err := s.db.Model(&request).Update("status", request.Status).Error; err != nil {
			return nil, err
		}
		return &request, nil
	}

	if err := s.db.Delete(&request).Error; err != nil {
		return nil, err
	}
	request.Status = chat.FriendRequestRejected
	return &request, nil
}

// GetFriends lists users linked to userID by an accepted request.
func (s *FriendService) GetFriends(userID string) ([]chat.User, error) {
	var requests []chat.FriendRequest
	err := s.db.Where("(sender_id = ? OR receiver_id = ?) AND status = ?",
		userID, userID, chat.FriendRequestAccepted).
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return []chat.User{}, nil
	}

	ids := make([]string, 0, len(requests))
	for _, r := range requests {
		if r.SenderID == userID {
			ids = append(ids, r.ReceiverID)
		} else {
			ids = append(ids, r.SenderID)
		}
	}

	var friends []chat.User
	err = s.db.Where("id IN ?", ids).Order("full_name ASC").Find(&friends).Error
	return friends, err
}
