package models

// Role is the access level carried in a verified token.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// CanManage reports whether an actor with role may modify a record owned by ownerID.
func CanManage(actorID string, role Role, ownerID string) bool {
	return role == RoleAdmin || (actorID != "" && actorID == ownerID)
}
