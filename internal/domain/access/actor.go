package access

import "strings"

type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleWarehouse  Role = "warehouse"
	RoleCompany    Role = "company"
	RoleEntitas    Role = "entitas"
	RoleBorrower   Role = "borrower"
)

// Actor is the authenticated caller as forwarded by the gateway.
type Actor struct {
	ID        string
	Name      string
	Role      Role
	Companies []string
}

func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "superadmin", "super_admin", "super-admin":
		return RoleSuperAdmin
	case "admin":
		return RoleAdmin
	case "warehouse", "gudang":
		return RoleWarehouse
	case "company", "perusahaan", "approver":
		return RoleCompany
	case "entitas", "entity":
		return RoleEntitas
	default:
		return RoleBorrower
	}
}

// IsPrivileged reports whether the actor may act on any company.
func (a Actor) IsPrivileged() bool {
	return a.Role == RoleSuperAdmin || a.Role == RoleAdmin
}

func (a Actor) IsWarehouse() bool { return a.Role == RoleWarehouse }

// CanActOn reports whether the actor may mutate the approval entry of company.
func (a Actor) CanActOn(company string) bool {
	if a.IsPrivileged() {
		return true
	}
	for _, c := range a.Companies {
		if strings.EqualFold(strings.TrimSpace(c), company) {
			return true
		}
	}
	return false
}

// DisplayName prefers the human name and falls back to the id.
func (a Actor) DisplayName() string {
	if n := strings.TrimSpace(a.Name); n != "" {
		return n
	}
	return a.ID
}
