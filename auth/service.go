// Package auth implements the authentication, session and permission-gating
// core: credential checks, durable session restore, cached role and
// permission resolution and route-level access decisions.
package auth

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/fieldmon/fieldmon/cache"
	"github.com/fieldmon/fieldmon/config"
	"github.com/fieldmon/fieldmon/database"
	"github.com/fieldmon/fieldmon/database/model"
	"github.com/fieldmon/fieldmon/logger"
	"github.com/fieldmon/fieldmon/session"
	"github.com/fieldmon/fieldmon/token"
	"github.com/fieldmon/fieldmon/util/crypto"
)

const (
	// PermissionAll is the reserved sentinel meaning "all permissions".
	// Only the Administrator role resolves to it; it is never a real
	// privilege row.
	PermissionAll = "*"

	permissionCacheTTL = 5 * time.Minute
	roleCacheTTL       = 10 * time.Minute
)

// CredentialStore is the narrow query surface the auth core needs from the
// backing data store. Absent records are nil results, not errors.
type CredentialStore interface {
	FindUserByEmail(email string) (*model.User, error)
	FindUserByID(id int) (*model.User, error)
	FindUserByIDEmail(id int, email string) (*model.User, error)
	EmailExists(email string) (bool, error)
	FindRoleByName(name string) (*model.Role, error)
	CreateRole(role *model.Role) error
	CreateUser(user *model.User) error
	UpdateUserPassword(id int, hash, salt string) error
	RoleForUser(userID int) (*model.Role, error)
}

// Service owns the process-wide current identity and orchestrates
// credential checks, session persistence and cached permission lookups.
type Service struct {
	store  CredentialStore
	slot   session.Slot
	tokens *token.Service
	cache  *cache.Cache

	mu      sync.Mutex
	current *model.User

	initMu      sync.Mutex
	initialized atomic.Bool

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(*model.User)
}

// NewService wires an auth core from explicit collaborators.
func NewService(store CredentialStore, slot session.Slot, tokens *token.Service, c *cache.Cache) *Service {
	return &Service{
		store:  store,
		slot:   slot,
		tokens: tokens,
		cache:  c,
		subs:   make(map[int]func(*model.User)),
	}
}

// NewDefaultService wires the sqlite-backed store and settings-table session
// slot with token policy from config. The database must be initialized
// first.
func NewDefaultService() *Service {
	return NewService(
		database.Credentials{},
		session.NewSettingSlot(),
		token.NewService(config.GetTokenSecret(), config.GetTokenLifetime()),
		cache.New(),
	)
}

// Subscribe registers a callback fired whenever the authenticated identity
// changes. The returned function unregisters it; forgetting to call it is a
// handler leak in long-lived UI components.
func (s *Service) Subscribe(fn func(*model.User)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Service) notify(user *model.User) {
	s.subMu.Lock()
	callbacks := make([]func(*model.User), 0, len(s.subs))
	for _, fn := range s.subs {
		callbacks = append(callbacks, fn)
	}
	s.subMu.Unlock()

	for _, fn := range callbacks {
		fn(user)
	}
}

// CurrentUser returns a snapshot of the logged-in user, or nil.
func (s *Service) CurrentUser() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func sameIdentity(a, b *model.User) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Id == b.Id
}

func permissionsKey(userID int) string {
	return "permissions:" + strconv.Itoa(userID)
}

func roleKey(userID int) string {
	return "role:" + strconv.Itoa(userID)
}

func (s *Service) invalidateUserCaches(userID int) {
	s.cache.Remove(permissionsKey(userID))
	s.cache.Remove(roleKey(userID))
}

// Init restores any persisted session. Idempotent: after the first
// successful run, later calls return nil without side effects. A missing or
// recoverably-corrupt session still counts as success; only infrastructure
// faults surface as errors.
func (s *Service) Init() error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.initialized.Load() {
		return nil
	}
	if _, err := s.RestoreSession(); err != nil {
		return err
	}
	s.initialized.Store(true)
	return nil
}

// RestoreSession loads the persisted token, validates it and re-fetches the
// user. A corrupt blob, an invalid or expired token, or a vanished user all
// clear the slot and report false. Only store faults return an error.
func (s *Service) RestoreSession() (bool, error) {
	persisted, err := s.slot.Load()
	if err != nil {
		if errors.Is(err, session.ErrCorrupt) {
			logger.Warning("restore session: clearing corrupt blob:", err)
			s.clearSlot()
			return false, nil
		}
		return false, err
	}
	if persisted == nil {
		return false, nil
	}

	if !s.tokens.Validate(persisted.Token) {
		logger.Info("restore session: token invalid or expired, clearing")
		s.clearSlot()
		return false, nil
	}

	user, err := s.store.FindUserByIDEmail(persisted.UserID, persisted.Email)
	if err != nil {
		return false, err
	}
	if user == nil {
		logger.Warningf("restore session: no user matches id %d, clearing", persisted.UserID)
		s.clearSlot()
		return false, nil
	}

	s.mu.Lock()
	s.current = user
	s.mu.Unlock()
	s.notify(user)
	return true, nil
}

// Authenticate checks the credentials and, on success, makes the user the
// current identity and persists a fresh session, overwriting any prior one.
// Blank input is rejected without touching the store.
func (s *Service) Authenticate(email, password string) *model.User {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	user, err := s.store.FindUserByEmail(email)
	if err != nil {
		logger.Warning("authenticate: find user err:", err)
		return nil
	}
	if user == nil {
		return nil
	}

	if !crypto.CheckPasswordHash(password, user.PasswordHash, user.PasswordSalt) {
		return nil
	}

	s.SetCurrentUser(user)
	return user
}

// SetCurrentUser replaces the current identity. The previous user's cache
// entries are invalidated when the identity actually changes; a non-nil new
// user gets a fresh persisted session and a defensive cache refresh. The
// change notification fires only on a real identity change.
func (s *Service) SetCurrentUser(user *model.User) {
	s.mu.Lock()
	prev := s.current
	s.current = user
	s.mu.Unlock()

	changed := !sameIdentity(prev, user)
	if changed && prev != nil {
		s.invalidateUserCaches(prev.Id)
	}

	if user != nil {
		s.invalidateUserCaches(user.Id)
		s.persistSession(user)
	}

	if changed {
		s.notify(user)
	}
}

func (s *Service) persistSession(user *model.User) {
	sessionToken, err := s.tokens.Generate(user.Id, user.Email)
	if err != nil {
		logger.Warningf("persist session: generate token for user %d err: %v", user.Id, err)
		return
	}
	if err := s.slot.Save(sessionToken); err != nil {
		logger.Warningf("persist session: save for user %d err: %v", user.Id, err)
	}
}

func (s *Service) clearSlot() {
	if err := s.slot.Clear(); err != nil {
		logger.Warning("clear session err:", err)
	}
}

// Logout drops the current identity and the persisted session. The change
// notification always fires, even when nobody was logged in.
func (s *Service) Logout() {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.mu.Unlock()

	if prev != nil {
		s.invalidateUserCaches(prev.Id)
	}
	s.clearSlot()
	s.notify(nil)
}

// Register creates a new account under the Guest role, seeding the role if
// it is missing. Duplicate emails (case-insensitive) and blank fields fail.
func (s *Service) Register(firstName, lastName, email, password string) bool {
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" ||
		strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return false
	}

	exists, err := s.store.EmailExists(email)
	if err != nil {
		logger.Warning("register: email lookup err:", err)
		return false
	}
	if exists {
		return false
	}

	guest, err := s.guestRole()
	if err != nil {
		logger.Warning("register: guest role err:", err)
		return false
	}

	hash, salt, err := crypto.HashPassword(password)
	if err != nil {
		logger.Warning("register: hash password err:", err)
		return false
	}

	user := &model.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		PasswordSalt: salt,
		RoleId:       guest.Id,
	}
	if err := s.store.CreateUser(user); err != nil {
		logger.Warning("register: create user err:", err)
		return false
	}
	return true
}

// guestRole fetches the Guest role, creating it when absent. Idempotent.
func (s *Service) guestRole() (*model.Role, error) {
	role, err := s.store.FindRoleByName(database.RoleGuest)
	if err != nil {
		return nil, err
	}
	if role != nil {
		return role, nil
	}
	role = &model.Role{
		Name:        database.RoleGuest,
		Description: "Default role for newly registered users",
	}
	if err := s.store.CreateRole(role); err != nil {
		return nil, err
	}
	return role, nil
}

// ChangePassword verifies the current password and stores a new hash. When
// the changed account is the logged-in user the persisted session is
// refreshed; the token does not encode the password, so this is not a
// re-auth.
func (s *Service) ChangePassword(userID int, currentPassword, newPassword string) bool {
	if userID <= 0 || strings.TrimSpace(newPassword) == "" {
		return false
	}

	user, err := s.store.FindUserByID(userID)
	if err != nil {
		logger.Warningf("change password: find user %d err: %v", userID, err)
		return false
	}
	if user == nil {
		return false
	}

	if !crypto.CheckPasswordHash(currentPassword, user.PasswordHash, user.PasswordSalt) {
		return false
	}

	hash, salt, err := crypto.HashPassword(newPassword)
	if err != nil {
		logger.Warningf("change password: hash for user %d err: %v", userID, err)
		return false
	}
	if err := s.store.UpdateUserPassword(userID, hash, salt); err != nil {
		logger.Warningf("change password: update user %d err: %v", userID, err)
		return false
	}

	if current := s.CurrentUser(); current != nil && current.Id == userID {
		s.persistSession(current)
	}
	return true
}

// GetUserPermissions resolves the user's permission names through the cache
// (5 minute TTL). An Administrator resolves to the "*" sentinel alone,
// regardless of row-level privileges. A missing user or role, or any store
// fault, yields an empty list — never an error and never nil.
func (s *Service) GetUserPermissions(userID int) []string {
	if userID <= 0 {
		return []string{}
	}

	permissions, err := cache.GetOrCreate(s.cache, permissionsKey(userID), permissionCacheTTL, func() ([]string, error) {
		role, err := s.store.RoleForUser(userID)
		if err != nil {
			return nil, err
		}
		if role == nil {
			return []string{}, nil
		}
		if strings.EqualFold(role.Name, database.RoleAdministrator) {
			return []string{PermissionAll}, nil
		}
		names := make([]string, 0, len(role.Privileges))
		for _, privilege := range role.Privileges {
			names = append(names, privilege.Name)
		}
		return names, nil
	})
	if err != nil {
		logger.Warningf("resolve permissions for user %d err: %v", userID, err)
		return []string{}
	}
	return permissions
}

// HasPermission reports whether the user holds the named permission, either
// via the "*" sentinel or a case-insensitive exact match. Fails closed on
// invalid input.
func (s *Service) HasPermission(userID int, permissionName string) bool {
	if userID <= 0 || strings.TrimSpace(permissionName) == "" {
		return false
	}
	for _, permission := range s.GetUserPermissions(userID) {
		if permission == PermissionAll || strings.EqualFold(permission, permissionName) {
			return true
		}
	}
	return false
}

// IsInRole reports whether the user's role matches roleName,
// case-insensitively, through the cache (10 minute TTL). A user without a
// resolvable role is in no role. Fails closed.
func (s *Service) IsInRole(userID int, roleName string) bool {
	if userID <= 0 || strings.TrimSpace(roleName) == "" {
		return false
	}

	name, err := cache.GetOrCreate(s.cache, roleKey(userID), roleCacheTTL, func() (string, error) {
		role, err := s.store.RoleForUser(userID)
		if err != nil {
			return "", err
		}
		if role == nil {
			// cached miss marker: the user resolves to no role
			return "", nil
		}
		return role.Name, nil
	})
	if err != nil {
		logger.Warningf("resolve role for user %d err: %v", userID, err)
		return false
	}
	return name != "" && strings.EqualFold(name, roleName)
}
