package auth

import (
	"strings"

	"github.com/fieldmon/fieldmon/database"
	"github.com/fieldmon/fieldmon/database/model"
	"github.com/fieldmon/fieldmon/util/common"
)

// RoleService manages roles and their privileges. Protected roles
// (Administrator) can never be renamed, deleted or have privileges edited
// through it.
type RoleService struct {
	auth *Service
}

func NewRoleService(auth *Service) *RoleService {
	return &RoleService{auth: auth}
}

func (s *RoleService) CreateRole(name, description string) error {
	if strings.TrimSpace(name) == "" {
		return common.NewError("role name can not be empty")
	}

	db := database.GetDB()
	var count int64
	if err := db.Model(&model.Role{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return common.NewErrorf("role %q already exists", name)
	}
	return db.Create(&model.Role{Name: name, Description: description}).Error
}

func (s *RoleService) RenameRole(id int, newName string) error {
	if strings.TrimSpace(newName) == "" {
		return common.NewError("role name can not be empty")
	}

	role, err := s.editableRole(id)
	if err != nil {
		return err
	}
	return database.GetDB().Model(role).Update("name", newName).Error
}

func (s *RoleService) DeleteRole(id int) error {
	role, err := s.editableRole(id)
	if err != nil {
		return err
	}

	db := database.GetDB()
	var count int64
	if err := db.Model(&model.User{}).Where("role_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return common.NewErrorf("role %q is still assigned to %d user(s)", role.Name, count)
	}
	return db.Delete(role).Error
}

// SetRolePrivileges replaces the role's privilege set and invalidates the
// cached permission and role entries of every user holding the role, so
// privilege changes are visible within a lookup, not a TTL.
func (s *RoleService) SetRolePrivileges(id int, privilegeIDs []int) error {
	role, err := s.editableRole(id)
	if err != nil {
		return err
	}

	db := database.GetDB()
	privileges := make([]*model.Privilege, 0, len(privilegeIDs))
	if len(privilegeIDs) > 0 {
		if err := db.Where("id IN ?", privilegeIDs).Find(&privileges).Error; err != nil {
			return err
		}
		if len(privileges) != len(privilegeIDs) {
			return common.NewError("unknown privilege id in assignment")
		}
	}
	if err := db.Model(role).Association("Privileges").Replace(privileges); err != nil {
		return err
	}

	var userIDs []int
	if err := db.Model(&model.User{}).Where("role_id = ?", id).Pluck("id", &userIDs).Error; err != nil {
		return err
	}
	for _, userID := range userIDs {
		s.auth.invalidateUserCaches(userID)
	}
	return nil
}

func (s *RoleService) editableRole(id int) (*model.Role, error) {
	role := &model.Role{}
	err := database.GetDB().Where("id = ?", id).First(role).Error
	if database.IsNotFound(err) {
		return nil, common.NewErrorf("role %d does not exist", id)
	} else if err != nil {
		return nil, err
	}
	if role.Protected {
		return nil, common.NewErrorf("role %q is protected and can not be modified", role.Name)
	}
	return role, nil
}
