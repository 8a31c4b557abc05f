package group

import (
	"errors"
	"strings"

	"chatter/internal/audit"
	"chatter/pkg/chat"

	"gorm.io/gorm"
)

var (
	ErrGroupNotFound   = errors.New("group not found")
	ErrNameRequired    = errors.New("group name is required")
	ErrNotAdmin        = errors.New("only group admins can do that")
	ErrNotMember       = errors.New("you are not a member of this group")
	ErrLastAdmin       = errors.New("cannot leave group as the last admin, assign another admin or delete the group")
	ErrRemoveAdmin     = errors.New("cannot remove an admin from the group")
	ErrMemberNotFound  = errors.New("member not found in the group")
	ErrNothingToUpdate = errors.New("no update data provided")
)

type GroupService struct {
	db    *gorm.DB
	audit *audit.AuditService
}

func NewGroupService(db *gorm.DB, auditService *audit.AuditService) *GroupService {
	return &GroupService{db: db, audit: auditService}
}

// usersByID loads the existing, non-deleted users among ids, deduplicated.
func usersByID(tx *gorm.DB, ids []string) ([]chat.User, error) {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, nil
	}

	var users []chat.User
	err := tx.Where("id IN ?", unique).Find(&users).Error
	return users, err
}

func userIDs(users []chat.User) []string {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

// CreateGroup makes creatorID the first admin and a member alongside
// memberIDs. Unknown member ids are skipped.
func (s *GroupService) CreateGroup(creatorID, name, description, picture string, memberIDs []string) (*chat.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	var group chat.Group
	err := s.db.Transaction(func(tx *gorm.DB) error {
		ids := append([]string{creatorID}, memberIDs...)
		members, err := usersByID(tx, ids)
		if err != nil {
			return err
		}
		var creator chat.User
		if err := tx.First(&creator, "id = ?", creatorID).Error; err != nil {
			return err
		}

		group = chat.Group{
			Name:         name,
			Description:  description,
			CreatorID:    creatorID,
			GroupPicture: picture,
			Members:      members,
			Admins:       []chat.User{creator},
		}
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		return s.audit.WithTx(tx).LogGroupCreation(creatorID, group.ID, group.Name, userIDs(members))
	})
	if err != nil {
		return nil, err
	}
	return s.GetGroup(group.ID)
}

func (s *GroupService) GetGroup(groupID string) (*chat.Group, error) {
	var group chat.Group
	err := s.db.Preload("Members").Preload("Admins").First(&group, "id = ?", groupID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetUserGroups lists the groups userID belongs to, newest first.
func (s *GroupService) GetUserGroups(userID string) ([]chat.Group, error) {
	var groups []chat.Group
	err := s.db.Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ?", userID).
		Preload("Members").
		Preload("Admins").
		Order("groups.created_at DESC").
		Find(&groups).Error
	return groups, err
}

// IsMember reports whether userID belongs to groupID. A missing group is
// ErrGroupNotFound.
func (s *GroupService) IsMember(groupID, userID string) (bool, error) {
	var exists int64
	if err := s.db.Model(&chat.Group{}).Where("id = ?", groupID).Count(&exists).Error; err != nil {
		return false, err
	}
	if exists == 0 {
		return false, ErrGroupNotFound
	}

	var count int64
	err := s.db.Table("group_members").
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

func (s *GroupService) requireAdmin(groupID, userID string) (*chat.Group, error) {
	group, err := s.GetGroup(groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasAdmin(userID) {
		return nil, ErrNotAdmin
	}
	return group, nil
}

type GroupUpdate struct {
	Name         *string
	Description  *string
	GroupPicture *string
}

func (s *GroupService) UpdateGroup(actorID, groupID string, update GroupUpdate) (*chat.Group, error) {
	group, err := s.requireAdmin(groupID, actorID)
	if err != nil {
		return nil, err
	}

	changes := make(map[string]any)
	logged := make(map[string]string)
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		changes["name"] = name
		logged["name"] = name
	}
	if update.Description != nil {
		changes["description"] = *update.Description
		logged["description"] = *update.Description
	}
	if update.GroupPicture != nil {
		changes["group_picture"] = *update.GroupPicture
		logged["groupPicture"] = *update.GroupPicture
	}
	if len(changes) == 0 {
		return nil, ErrNothingToUpdate
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(group).Updates(changes).Error; err != nil {
			return err
		}
		return s.audit.WithTx(tx).LogGroupUpdate(actorID, groupID, logged)
	})
	if err != nil {
		return nil, err
	}
	return s.GetGroup(groupID)
}

// AddMembers adds the given users, skipping existing members and unknown ids.
func (s *GroupService) AddMembers(actorID, groupID string, memberIDs []string) (*chat.Group, error) {
	group, err := s.requireAdmin(groupID, actorID)
	if err != nil {
		return nil, err
	}

	users, err := usersByID(s.db, memberIDs)
	if err != nil {
		return nil, err
	}
	var fresh []chat.User
	for _, u := range users {
		if !group.HasMember(u.ID) {
			fresh = append(fresh, u)
		}
	}
	if len(fresh) == 0 {
		return group, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(group).Association("Members").Append(&fresh); err != nil {
			return err
		}
		return s.audit.WithTx(tx).LogMembersAdded(actorID, groupID, userIDs(fresh))
	})
	if err != nil {
		return nil, err
	}
	return s.GetGroup(groupID)
}

func (s *GroupService) LeaveGroup(userID, groupID string) error {
	group, err := s.GetGroup(groupID)
	if err != nil {
		return err
	}
	if !group.HasMember(userID) {
		return ErrNotMember
	}
	if group.HasAdmin(userID) && len(group.Admins) == 1 {
		return ErrLastAdmin
	}

	user := chat.User{ID: userID}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(group).Association("Members").Delete(&user); err != nil {
			return err
		}
		if err := tx.Model(group).Association("Admins").Delete(&user); err != nil {
			return err
		}
		return s.audit.WithTx(tx).LogGroupLeave(userID, groupID)
	})
}

func (s *GroupService) RemoveMember(actorID, groupID, memberID string) error {
	group, err := s.requireAdmin(groupID, actorID)
	if err != nil {
		return err
	}
	if group.HasAdmin(memberID) {
		return ErrRemoveAdmin
	}
	if !group.HasMember(memberID) {
		return ErrMemberNotFound
	}

	member := chat.User{ID: memberID}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(group).Association("Members").Delete(&member); err != nil {
			return err
		}
		return s.audit.WithTx(tx).LogMemberRemoved(actorID, memberID, groupID)
	})
}

// DeleteGroup removes the group, its memberships and its message history.
func (s *GroupService) DeleteGroup(actorID, groupID string) error {
	group, err := s.requireAdmin(groupID, actorID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var messageIDs []string
		if err := tx.Model(&chat.GroupMessage{}).Where("group_id = ?", groupID).Pluck("id", &messageIDs).Error; err != nil {
			return err
		}
		if len(messageIDs) > 0 {
			if err := tx.Exec("DELETE FROM group_message_reads WHERE group_message_id IN ?", messageIDs).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&chat.GroupMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Model(group).Association("Members").Clear(); err != nil {
			return err
		}
		if err := tx.Model(group).Association("Admins").Clear(); err != nil {
			return err
		}
		if err := tx.Delete(group).Error; err != nil {
			return err
		}
		return s.audit.WithTx(tx).LogGroupDeletion(actorID, groupID, group.Name)
	})
}
