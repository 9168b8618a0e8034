// Package database bootstraps the sqlite store and seeds the records the
// auth core depends on (protected Administrator role, Guest role, default
// admin account).
package database

import (
	"io/fs"
	"log"
	"os"
	"path"

	"github.com/fieldmon/fieldmon/config"
	"github.com/fieldmon/fieldmon/database/model"
	"github.com/fieldmon/fieldmon/util/crypto"
	"github.com/fieldmon/fieldmon/util/random"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

const (
	defaultAdminEmail = "admin@fieldmon.local"

	// RoleAdministrator is protected: it cannot be renamed, deleted or have
	// its privileges edited.
	RoleAdministrator = "Administrator"
	// RoleGuest is assigned to newly registered users.
	RoleGuest = "Guest"
)

func initModels() error {
	models := []any{
		&model.User{},
		&model.Role{},
		&model.Privilege{},
		&model.Setting{},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			log.Printf("Error auto migrating model: %v", err)
			return err
		}
	}
	return nil
}

// initRoles ensures the Administrator and Guest roles exist. Safe to run on
// every startup.
func initRoles() error {
	seeds := []model.Role{
		{Name: RoleAdministrator, Description: "Full access to every module", Protected: true},
		{Name: RoleGuest, Description: "Default role for newly registered users"},
	}
	for _, seed := range seeds {
		var count int64
		if err := db.Model(&model.Role{}).Where("name = ?", seed.Name).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			role := seed
			if err := db.Create(&role).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func initUser() error {
	empty, err := isTableEmpty("users")
	if err != nil {
		log.Printf("Error checking if users table is empty: %v", err)
		return err
	}
	if !empty {
		return nil
	}

	admin := &model.Role{}
	if err := db.Where("name = ?", RoleAdministrator).First(admin).Error; err != nil {
		return err
	}
	password := random.Seq(12)
	hash, salt, err := crypto.HashPassword(password)
	if err != nil {
		return err
	}
	user := &model.User{
		Email:        defaultAdminEmail,
		FirstName:    "System",
		LastName:     "Administrator",
		PasswordHash: hash,
		PasswordSalt: salt,
		RoleId:       admin.Id,
	}
	if err := db.Create(user).Error; err != nil {
		return err
	}
	log.Printf("seeded default admin %s with generated password: %s", defaultAdminEmail, password)
	return nil
}

func isTableEmpty(tableName string) (bool, error) {
	var count int64
	err := db.Table(tableName).Count(&count).Error
	return count == 0, err
}

func InitDB(dbPath string) error {
	dir := path.Dir(dbPath)
	err := os.MkdirAll(dir, fs.ModePerm)
	if err != nil {
		return err
	}

	var gormLogger logger.Interface

	if config.IsDebug() {
		gormLogger = logger.Default
	} else {
		gormLogger = logger.Discard
	}

	c := &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	}

	dsn := dbPath + "?cache=shared&_journal_mode=WAL&_synchronous=NORMAL"
	db, err = gorm.Open(sqlite.Open(dsn), c)
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	_, err = sqlDB.Exec("PRAGMA cache_size = -64000;")
	if err != nil {
		return err
	}
	_, err = sqlDB.Exec("PRAGMA temp_store = MEMORY;")
	if err != nil {
		return err
	}
	_, err = sqlDB.Exec("PRAGMA foreign_keys = ON;")
	if err != nil {
		return err
	}

	if err := initModels(); err != nil {
		return err
	}
	if err := initRoles(); err != nil {
		return err
	}
	if err := initUser(); err != nil {
		return err
	}

	return nil
}

func CloseDB() error {
	if db != nil {
		if err := Checkpoint(); err != nil {
			log.Printf("error executing checkpoint: %v", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

func GetDB() *gorm.DB {
	return db
}

func IsNotFound(err error) bool {
	return err == gorm.ErrRecordNotFound
}

func Checkpoint() error {
	// Update WAL
	err := db.Exec("PRAGMA wal_checkpoint;").Error
	if err != nil {
		return err
	}
	return nil
}
