package auth

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/op/go-logging"

	"github.com/fieldmon/fieldmon/cache"
	"github.com/fieldmon/fieldmon/database/model"
	"github.com/fieldmon/fieldmon/logger"
	"github.com/fieldmon/fieldmon/session"
	"github.com/fieldmon/fieldmon/token"
	"github.com/fieldmon/fieldmon/util/crypto"
)

func TestMain(m *testing.M) {
	os.Setenv("FM_LOG_FOLDER", os.TempDir())
	logger.InitLogger(logging.DEBUG)
	os.Exit(m.Run())
}

// fakeStore is an in-memory CredentialStore with call counters, so tests can
// assert cache hits without a database.
type fakeStore struct {
	users map[int]*model.User
	roles map[int]*model.Role

	nextUserID int
	nextRoleID int

	findByEmailCalls int
	roleForUserCalls int

	failAll error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      make(map[int]*model.User),
		roles:      make(map[int]*model.Role),
		nextUserID: 1,
		nextRoleID: 1,
	}
}

// addUser seeds a user with a properly hashed password under the named role,
// creating the role when needed.
func (f *fakeStore) addUser(t *testing.T, email, password, roleName string) *model.User {
	t.Helper()

	role := f.roleByName(roleName)
	if role == nil {
		role = &model.Role{Id: f.nextRoleID, Name: roleName}
		f.roles[role.Id] = role
		f.nextRoleID++
	}

	hash, salt, err := crypto.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &model.User{
		Id:           f.nextUserID,
		Email:        email,
		PasswordHash: hash,
		PasswordSalt: salt,
		RoleId:       role.Id,
	}
	f.users[user.Id] = user
	f.nextUserID++
	return user
}

func (f *fakeStore) roleByName(name string) *model.Role {
	for _, role := range f.roles {
		if role.Name == name {
			return role
		}
	}
	return nil
}

func (f *fakeStore) FindUserByEmail(email string) (*model.User, error) {
	f.findByEmailCalls++
	if f.failAll != nil {
		return nil, f.failAll
	}
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindUserByID(id int) (*model.User, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	return f.users[id], nil
}

func (f *fakeStore) FindUserByIDEmail(id int, email string) (*model.User, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	user := f.users[id]
	if user == nil || user.Email != email {
		return nil, nil
	}
	return user, nil
}

func (f *fakeStore) EmailExists(email string) (bool, error) {
	if f.failAll != nil {
		return false, f.failAll
	}
	for _, user := range f.users {
		if strings.EqualFold(user.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) FindRoleByName(name string) (*model.Role, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	return f.roleByName(name), nil
}

func (f *fakeStore) CreateRole(role *model.Role) error {
	if f.failAll != nil {
		return f.failAll
	}
	role.Id = f.nextRoleID
	f.nextRoleID++
	f.roles[role.Id] = role
	return nil
}

func (f *fakeStore) CreateUser(user *model.User) error {
	if f.failAll != nil {
		return f.failAll
	}
	user.Id = f.nextUserID
	f.nextUserID++
	f.users[user.Id] = user
	return nil
}

func (f *fakeStore) UpdateUserPassword(id int, hash, salt string) error {
	if f.failAll != nil {
		return f.failAll
	}
	user := f.users[id]
	if user == nil {
		return errors.New("no such user")
	}
	user.PasswordHash = hash
	user.PasswordSalt = salt
	return nil
}

func (f *fakeStore) RoleForUser(userID int) (*model.Role, error) {
	f.roleForUserCalls++
	if f.failAll != nil {
		return nil, f.failAll
	}
	user := f.users[userID]
	if user == nil {
		return nil, nil
	}
	return f.roles[user.RoleId], nil
}

// fakeSlot is an in-memory session.Slot.
type fakeSlot struct {
	stored  *token.SessionToken
	corrupt bool
	loadErr error

	saveCalls  int
	clearCalls int
}

func (f *fakeSlot) Load() (*token.SessionToken, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.corrupt {
		return nil, session.ErrCorrupt
	}
	return f.stored, nil
}

func (f *fakeSlot) Save(t *token.SessionToken) error {
	f.saveCalls++
	f.stored = t
	return nil
}

func (f *fakeSlot) Clear() error {
	f.clearCalls++
	f.stored = nil
	f.corrupt = false
	return nil
}

func newTestService(store CredentialStore, slot session.Slot) *Service {
	return NewService(store, slot, token.NewService([]byte("test-secret"), time.Hour), cache.New())
}
