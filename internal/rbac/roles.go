package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleManager     = "manager"
	RoleAgent       = "agent"
	RoleAdmin       = "admin"
	RoleIntegration = "integration" // hidden machine role for imports
)

func IsAdmin(role string) bool { return role == RoleAdmin }

func IsHiddenRole(role string) bool { return role == RoleIntegration }
