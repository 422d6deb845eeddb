package entity

import (
	"time"

	"github.com/garyjia/event-approval/internal/domain/workflow"
)

// User is a member of the organization known to the directory
type User struct {
	ID           string        `db:"id" json:"id"`
	Email        string        `db:"email" json:"email"`
	DisplayName  string        `db:"display_name" json:"display_name"`
	Role         workflow.Role `db:"role" json:"role"`
	DepartmentID string        `db:"department_id" json:"department_id,omitempty"`
	Active       bool          `db:"active" json:"active"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// Actor returns the workflow actor for this user
func (u *User) Actor() workflow.Actor {
	return workflow.NewActor(u.ID, u.Role)
}
