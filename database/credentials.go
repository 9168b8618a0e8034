package database

import (
	"github.com/fieldmon/fieldmon/database/model"
)

// Credentials is the sqlite-backed credential store consumed by the auth
// core. Absent records are reported as nil results, not errors.
type Credentials struct{}

func (Credentials) FindUserByEmail(email string) (*model.User, error) {
	user := &model.User{}
	err := GetDB().Model(model.User{}).
		Where("email = ?", email).
		First(user).
		Error
	if IsNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return user, nil
}

func (Credentials) FindUserByID(id int) (*model.User, error) {
	user := &model.User{}
	err := GetDB().Model(model.User{}).
		Where("id = ?", id).
		First(user).
		Error
	if IsNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return user, nil
}

// FindUserByIDEmail resolves a user only when both the id and the email from
// a restored session match the stored record.
func (Credentials) FindUserByIDEmail(id int, email string) (*model.User, error) {
	user := &model.User{}
	err := GetDB().Model(model.User{}).
		Where("id = ? AND email = ?", id, email).
		First(user).
		Error
	if IsNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return user, nil
}

// EmailExists reports whether any user holds the email, compared
// case-insensitively so two casings of one address cannot coexist.
func (Credentials) EmailExists(email string) (bool, error) {
	var count int64
	err := GetDB().Model(&model.User{}).
		Where("LOWER(email) = LOWER(?)", email).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (Credentials) FindRoleByName(name string) (*model.Role, error) {
	role := &model.Role{}
	err := GetDB().Model(model.Role{}).
		Where("name = ?", name).
		First(role).
		Error
	if IsNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return role, nil
}

func (Credentials) CreateRole(role *model.Role) error {
	return GetDB().Create(role).Error
}

func (Credentials) CreateUser(user *model.User) error {
	return GetDB().Create(user).Error
}

func (Credentials) UpdateUserPassword(id int, hash, salt string) error {
	return GetDB().Model(model.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"password_hash": hash, "password_salt": salt}).
		Error
}

// RoleForUser returns the user's role with its privileges preloaded, or nil
// when the user or its role does not exist.
func (c Credentials) RoleForUser(userID int) (*model.Role, error) {
	user, err := c.FindUserByID(userID)
	if err != nil || user == nil {
		return nil, err
	}

	role := &model.Role{}
	err = GetDB().Preload("Privileges").
		Where("id = ?", user.RoleId).
		First(role).
		Error
	if IsNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return role, nil
}
