package auth

import "github.com/fieldmon/fieldmon/database"

// publicRoutes are reachable with no identity at all.
var publicRoutes = map[string]bool{
	"LoginPage":    true,
	"RegisterPage": true,
}

// adminRoutes additionally require the Administrator role.
var adminRoutes = map[string]bool{
	"AdminDashboardPage": true,
	"UserManagementPage": true,
	"RoleManagementPage": true,
	"BackupSettingsPage": true,
}

// Guard decides route-level access in three tiers: public, admin-only and
// authenticated (the default). Every uncertainty denies; the caller is
// expected to redirect to the login flow rather than surface an error.
type Guard struct {
	auth *Service
}

func NewGuard(auth *Service) *Guard {
	return &Guard{auth: auth}
}

// CanNavigate reports whether the current user may open the route.
func (g *Guard) CanNavigate(route string) bool {
	if publicRoutes[route] {
		return true
	}

	user := g.auth.CurrentUser()
	if user == nil {
		return false
	}

	if adminRoutes[route] {
		return g.auth.IsInRole(user.Id, database.RoleAdministrator)
	}
	return true
}
