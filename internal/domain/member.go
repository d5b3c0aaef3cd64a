package domain

import "time"

// MemberRole is a user's standing inside one project.
type MemberRole string

const (
	MemberRoleOwner   MemberRole = "owner"
	MemberRoleManager MemberRole = "manager"
	MemberRoleMember  MemberRole = "member"
)

// Valid reports whether r is a known membership role.
func (r MemberRole) Valid() bool {
	switch r {
	case MemberRoleOwner, MemberRoleManager, MemberRoleMember:
		return true
	}
	return false
}

// ProjectMember links a user to a project.
type ProjectMember struct {
	ProjectID string     `json:"projectId"`
	UserID    string     `json:"userId"`
	Role      MemberRole `json:"role"`
	JoinedAt  time.Time  `json:"joinedAt"`
	Username  string     `json:"username,omitempty"`
	Email     string     `json:"email,omitempty"`
	FirstName string     `json:"firstName,omitempty"`
	LastName  string     `json:"lastName,omitempty"`
}
