package workflow

import "fmt"

// Role is the actor's position in the review hierarchy
type Role string

const (
	RoleMember     Role = "member"
	RoleLead       Role = "lead"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleMember, RoleLead, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// ParseRole converts raw input into a role
func ParseRole(raw string) (Role, error) {
	r := Role(raw)
	if !r.IsValid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return r, nil
}

// Actor identifies who is performing an action. It is always passed
// explicitly; nothing in the core reads ambient session state.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// NewActor creates an actor
func NewActor(id string, role Role) Actor {
	return Actor{ID: id, Role: role}
}
