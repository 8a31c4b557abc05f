package audit

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"chatter/pkg/chat"

	"gorm.io/gorm"
)

var ErrNotGroupAdmin = errors.New("only group admins can view the audit log")

type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Action constants for audit logging
const (
	ActionCreateGroup  = "CREATE_GROUP"
	ActionUpdateGroup  = "UPDATE_GROUP"
	ActionDeleteGroup  = "DELETE_GROUP"
	ActionAddMembers   = "ADD_MEMBERS"
	ActionRemoveMember = "REMOVE_MEMBER"
	ActionLeaveGroup   = "LEAVE_GROUP"
)

type AuditMetadata struct {
	Members []string          `json:"members,omitempty"`
	Changes map[string]string `json:"changes,omitempty"`
	Name    string            `json:"name,omitempty"`
}

func (s *AuditService) create(tx *gorm.DB, entry chat.AuditLog, metadata *AuditMetadata) error {
	entry.Metadata = "{}"
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		entry.Metadata = string(b)
	}
	return tx.Create(&entry).Error
}

// WithTx returns a service writing through tx so entries commit or roll back
// together with the change they describe.
func (s *AuditService) WithTx(tx *gorm.DB) *AuditService {
	return &AuditService{db: tx}
}

func (s *AuditService) LogGroupCreation(actorID, groupID, groupName string, memberIDs []string) error {
	return s.create(s.db, chat.AuditLog{
		Action:      ActionCreateGroup,
		ActorID:     actorID,
		GroupID:     &groupID,
		Description: "Created group '" + groupName + "'",
	}, &AuditMetadata{Name: groupName, Members: memberIDs})
}

func (s *AuditService) LogGroupUpdate(actorID, groupID string, changes map[string]string) error {
	fields := make([]string, 0, len(changes))
	for k := range changes {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return s.create(s.db, chat.AuditLog{
		Action:      ActionUpdateGroup,
		ActorID:     actorID,
		GroupID:     &groupID,
		Description: "Updated group " + strings.Join(fields, ", "),
	}, &AuditMetadata{Changes: changes})
}

func (s *AuditService) LogGroupDeletion(actorID, groupID, groupName string) error {
	return s.create(s.db, chat.AuditLog{
		Action:      ActionDeleteGroup,
		ActorID:     actorID,
		GroupID:     &groupID,
		Description: "Deleted group '" + groupName + "'",
	}, &AuditMetadata{Name: groupName})
}

func (s *AuditService) LogMembersAdded(actorID, groupID string, memberIDs []string) error {
	return s.create(s.db, chat.AuditLog{
		Action:      ActionAddMembers,
		ActorID:     actorID,
		GroupID:     &groupID,
		Description: "Added members",
	}, &AuditMetadata{Members: memberIDs})
}

func (s *AuditService) LogMemberRemoved(actorID, targetID, groupID string) error {
	return s.create(s.db, chat.AuditLog{
		Action:      ActionRemoveMember,
		ActorID:     actorID,
		TargetID:    &targetID,
		GroupID:     &groupID,
		Description: "Removed member",
	}, nil)
}

func (s *AuditService) LogGroupLeave(userID, groupID string) error {
	return s.create(s.db, chat.AuditLog{
		Action:      ActionLeaveGroup,
		ActorID:     userID,
		GroupID:     &groupID,
		Description: "Left group",
	}, nil)
}

// GetAuditLogs retrieves audit logs with pagination and filtering
func (s *AuditService) GetAuditLogs(groupID *string, actorID *string, action *string, limit, offset int) ([]chat.AuditLog, int64, error) {
	query := s.db.Model(&chat.AuditLog{})

	if groupID != nil {
		query = query.Where("group_id = ?", *groupID)
	}
	if actorID != nil {
		query = query.Where("actor_id = ?", *actorID)
	}
	if action != nil {
		query = query.Where("action = ?", *action)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []chat.AuditLog
	err := query.
		Preload("Actor", withDeleted).
		Preload("Target", withDeleted).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error

	return logs, total, err
}

// GetGroupAuditLogs retrieves audit logs for a group. Only its admins may
// read them.
func (s *AuditService) GetGroupAuditLogs(requestorID, groupID string, limit, offset int) ([]chat.AuditLog, int64, error) {
	var group chat.Group
	if err := s.db.Select("id").First(&group, "id = ?", groupID).Error; err != nil {
		return nil, 0, err
	}

	var admins int64
	err := s.db.Table("group_admins").
		Where("group_id = ? AND user_id = ?", groupID, requestorID).
		Count(&admins).Error
	if err != nil {
		return nil, 0, err
	}
	if admins == 0 {
		return nil, 0, ErrNotGroupAdmin
	}

	return s.GetAuditLogs(&groupID, nil, nil, limit, offset)
}

// Deleted users still show up as actors in history.
func withDeleted(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}
