// internal/domain/auth/entity.go
package auth

const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Actor is whoever performs a privileged operation: an authenticated
// caller of the admin API or an operator running the CLI.
type Actor struct {
	ID     string   `json:"id"`
	Roles  []string `json:"roles"`
	Source string   `json:"source"`
}

const (
	SourceHTTP = "http"
	SourceCLI  = "cli"
)

func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin checks if the actor is an admin (including super admin)
func (a Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin) || a.HasRole(RoleSuperAdmin)
}
