// Package session persists a single session token blob in the durable
// key-value settings store. Exactly one session may be persisted at a time;
// saving a new one overwrites the old.
package session

import (
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/fieldmon/fieldmon/database"
	"github.com/fieldmon/fieldmon/database/model"
	"github.com/fieldmon/fieldmon/token"
)

// SlotKey is the settings key holding the serialized session.
const SlotKey = "sessionToken"

// ErrCorrupt marks a present but undecodable session blob. Callers clear the
// slot and treat it as "no session".
var ErrCorrupt = errors.New("session: corrupt persisted blob")

// Slot is single-slot durable persistence for the session token.
// Load returns (nil, nil) when no session is persisted and an error wrapping
// ErrCorrupt when the stored blob cannot be decoded.
type Slot interface {
	Load() (*token.SessionToken, error)
	Save(t *token.SessionToken) error
	Clear() error
}

// persistedSession is the wire form of the blob: clear JSON with an ISO8601
// expiry, matching what the consuming application has always stored.
type persistedSession struct {
	UserID int    `json:"userId"`
	Email  string `json:"email"`
	Token  string `json:"token"`
	Expiry string `json:"expiry"`
}

// SettingSlot stores the blob in the settings table.
type SettingSlot struct {
	key string
}

func NewSettingSlot() *SettingSlot {
	return &SettingSlot{key: SlotKey}
}

func (s *SettingSlot) Load() (*token.SessionToken, error) {
	setting := &model.Setting{}
	err := database.GetDB().Model(model.Setting{}).
		Where("key = ?", s.key).
		First(setting).
		Error
	if database.IsNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	if setting.Value == "" {
		return nil, ErrCorrupt
	}

	var blob persistedSession
	if err := json.Unmarshal([]byte(setting.Value), &blob); err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}
	expiry, err := time.Parse(time.RFC3339, blob.Expiry)
	if err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}

	return &token.SessionToken{
		UserID:    blob.UserID,
		Email:     blob.Email,
		Token:     blob.Token,
		ExpiresAt: expiry,
	}, nil
}

func (s *SettingSlot) Save(t *token.SessionToken) error {
	blob := persistedSession{
		UserID: t.UserID,
		Email:  t.Email,
		Token:  t.Token,
		Expiry: t.ExpiresAt.Format(time.RFC3339),
	}
	value, err := json.Marshal(blob)
	if err != nil {
		return err
	}

	db := database.GetDB()
	setting := &model.Setting{}
	err = db.Model(model.Setting{}).Where("key = ?", s.key).First(setting).Error
	if database.IsNotFound(err) {
		return db.Create(&model.Setting{Key: s.key, Value: string(value)}).Error
	} else if err != nil {
		return err
	}
	setting.Value = string(value)
	return db.Save(setting).Error
}

// Clear removes the persisted session. Clearing an empty slot is a no-op.
func (s *SettingSlot) Clear() error {
	return database.GetDB().
		Where("key = ?", s.key).
		Delete(&model.Setting{}).
		Error
}
