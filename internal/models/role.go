package models

// Role is a named permission bundle held by a user within a workspace or team.
type Role string

const (
	RoleOwner       Role = "owner"
	RoleAdmin       Role = "admin"
	RoleManager     Role = "manager"
	RoleContributor Role = "contributor"
	RoleMember      Role = "member"
	RoleViewer      Role = "viewer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleContributor, RoleMember, RoleViewer:
		return true
	}
	return false
}
