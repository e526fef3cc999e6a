package auth

type Role string

const (
	RoleUser   Role = "user"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
	// RoleSystem is used by internal callers such as payment reconciliation.
	RoleSystem Role = "system"
)

// Actor is the identity a request acts as. The HTTP layer builds it from a
// verified token; the core trusts it without re-checking credentials.
type Actor struct {
	UserID int64
	Role   Role
}

// System is the actor for gateway-driven transitions.
var System = Actor{Role: RoleSystem}

func (a Actor) IsAdmin() bool  { return a.Role == RoleAdmin }
func (a Actor) IsSeller() bool { return a.Role == RoleSeller }
func (a Actor) IsSystem() bool { return a.Role == RoleSystem }

// Privileged reports whether the actor bypasses ownership checks.
func (a Actor) Privileged() bool { return a.IsAdmin() || a.IsSystem() }
