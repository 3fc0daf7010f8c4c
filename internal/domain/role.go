package domain

// Role is a user's privilege tier.
type Role string

const (
	RoleClient     Role = "CLIENT"
	RoleOperator   Role = "OPERATOR"
	RoleSupervisor Role = "SUPERVISOR"
	RoleAdmin      Role = "ADMIN"
)

// roleHierarchy lists roles from lowest to highest privilege.
var roleHierarchy = []Role{RoleClient, RoleOperator, RoleSupervisor, RoleAdmin}

// Roles returns every role in ascending privilege order.
func Roles() []Role {
	out := make([]Role, len(roleHierarchy))
	copy(out, roleHierarchy)
	return out
}

// Level returns the role's position in the hierarchy, or -1 for unknown roles.
func (r Role) Level() int {
	for i, candidate := range roleHierarchy {
		if candidate == r {
			return i
		}
	}
	return -1
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r.Level() >= 0
}

// AtLeast reports whether r ranks at or above min. Unknown roles never qualify.
func (r Role) AtLeast(min Role) bool {
	level := r.Level()
	return level >= 0 && min.Level() >= 0 && level >= min.Level()
}

// IsStaff reports whether r belongs to the internal staff side.
func (r Role) IsStaff() bool {
	return r.Valid() && r != RoleClient
}

// IsManager reports whether r may assign and delete leads and claims.
func (r Role) IsManager() bool {
	return r == RoleAdmin || r == RoleSupervisor
}
