package session

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldmon/fieldmon/database"
	"github.com/fieldmon/fieldmon/database/model"
	"github.com/fieldmon/fieldmon/token"
)

func setup(t *testing.T) {
	t.Helper()
	dbPath := "test.db"
	os.Remove(dbPath)
	require.NoError(t, database.InitDB(dbPath))
}

func teardown() {
	sqlDB, _ := database.GetDB().DB()
	sqlDB.Close()
	os.Remove("test.db")
}

func sampleToken() *token.SessionToken {
	return &token.SessionToken{
		UserID:    7,
		Email:     "a@x.com",
		Token:     "opaque-token-string",
		ExpiresAt: time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
}

func TestLoadAbsent(t *testing.T) {
	setup(t)
	defer teardown()

	loaded, err := NewSettingSlot().Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	setup(t)
	defer teardown()

	slot := NewSettingSlot()
	saved := sampleToken()
	require.NoError(t, slot.Save(saved))

	loaded, err := slot.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, saved.UserID, loaded.UserID)
	assert.Equal(t, saved.Email, loaded.Email)
	assert.Equal(t, saved.Token, loaded.Token)
	assert.True(t, saved.ExpiresAt.Equal(loaded.ExpiresAt))
}

func TestSaveOverwritesSingleSlot(t *testing.T) {
	setup(t)
	defer teardown()

	slot := NewSettingSlot()
	require.NoError(t, slot.Save(sampleToken()))

	second := sampleToken()
	second.UserID = 8
	second.Email = "b@x.com"
	require.NoError(t, slot.Save(second))

	loaded, err := slot.Load()
	require.NoError(t, err)
	assert.Equal(t, 8, loaded.UserID)

	var count int64
	require.NoError(t, database.GetDB().Model(&model.Setting{}).Where("key = ?", SlotKey).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestClearIsIdempotent(t *testing.T) {
	setup(t)
	defer teardown()

	slot := NewSettingSlot()
	require.NoError(t, slot.Save(sampleToken()))
	require.NoError(t, slot.Clear())
	require.NoError(t, slot.Clear())

	loaded, err := slot.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadCorruptBlobs(t *testing.T) {
	setup(t)
	defer teardown()

	tests := []struct {
		name  string
		value string
	}{
		{"empty string", ""},
		{"not json", "}{definitely-not-json"},
		{"wrong shape", `{"userId":"seven"}`},
		{"bad expiry", `{"userId":7,"email":"a@x.com","token":"t","expiry":"not-a-date"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := database.GetDB()
			require.NoError(t, db.Where("key = ?", SlotKey).Delete(&model.Setting{}).Error)
			require.NoError(t, db.Create(&model.Setting{Key: SlotKey, Value: tc.value}).Error)

			loaded, err := NewSettingSlot().Load()
			assert.Nil(t, loaded)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}
