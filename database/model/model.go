// Package model defines the database records for the fieldmon auth core.
package model

// User is a registered account. The raw password is never stored; only the
// PBKDF2 hash and its salt are persisted.
type User struct {
	Id           int    `json:"id" gorm:"primaryKey;autoIncrement"`
	Email        string `json:"email" gorm:"uniqueIndex;not null"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	PasswordHash string `json:"-" gorm:"column:password_hash"`
	PasswordSalt string `json:"-" gorm:"column:password_salt"`
	RoleId       int    `json:"roleId" gorm:"not null"`
	Role         *Role  `json:"role,omitempty" gorm:"foreignKey:RoleId"`
}

// Role groups privileges. Protected roles (Administrator) cannot be renamed,
// deleted or have their privileges edited.
type Role struct {
	Id          int          `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string       `json:"name" gorm:"uniqueIndex;not null"`
	Description string       `json:"description"`
	Protected   bool         `json:"protected"`
	Privileges  []*Privilege `json:"privileges,omitempty" gorm:"many2many:role_privileges;"`
}

// Privilege is a named capability owned by an application module.
type Privilege struct {
	Id     int    `json:"id" gorm:"primaryKey;autoIncrement"`
	Name   string `json:"name" gorm:"uniqueIndex;not null"`
	Module string `json:"module"`
}

// Setting is a key-value row in the durable preference store. The persisted
// session blob lives here under a single well-known key.
type Setting struct {
	Id    int    `json:"id" gorm:"primaryKey;autoIncrement"`
	Key   string `json:"key" gorm:"uniqueIndex"`
	Value string `json:"value"`
}
