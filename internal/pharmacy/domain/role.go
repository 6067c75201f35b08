package domain

import "fmt"

// Role is the closed set of roles the platform knows. Adding a role means
// extending the enum and the policy table below; there is no string-keyed
// dispatch anywhere.
type Role int

const (
	RoleCustomer Role = iota
	RolePharmacist
	RoleAdmin
)

// Name returns the wire name for the role.
func (r Role) Name() string {
	switch r {
	case RoleCustomer:
		return "customer"
	case RolePharmacist:
		return "pharmacist"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// ParseRole maps a stored role name back to the enum.
func ParseRole(s string) (Role, error) {
	switch s {
	case "customer":
		return RoleCustomer, nil
	case "pharmacist":
		return RolePharmacist, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return RoleCustomer, fmt.Errorf("%w: unknown role %q", ErrValidation, s)
	}
}

// Module names permitted-module claims are built from.
const (
	ModuleCatalog   = "catalog"
	ModuleCart      = "cart"
	ModuleCards     = "cards"
	ModuleCheckout  = "checkout"
	ModuleOrders    = "orders"
	ModuleInventory = "inventory"
	ModuleUsers     = "users"
	ModuleAudit     = "audit"
)

// AccessPolicy maps every role to the modules it may call. Built once at
// startup and passed into the token service; no mutable globals.
type AccessPolicy struct {
	modules map[Role][]string
}

// DefaultAccessPolicy returns the platform's fixed role -> module table.
func DefaultAccessPolicy() AccessPolicy {
	return AccessPolicy{modules: map[Role][]string{
		RoleCustomer: {ModuleCatalog, ModuleCart, ModuleCards, ModuleCheckout, ModuleOrders},
		RolePharmacist: {
			ModuleCatalog, ModuleInventory, ModuleOrders,
		},
		RoleAdmin: {
			ModuleCatalog, ModuleCart, ModuleCards, ModuleCheckout,
			ModuleOrders, ModuleInventory, ModuleUsers, ModuleAudit,
		},
	}}
}

// Modules returns a copy of the module list for r. Total over the enum:
// every defined role has an entry, unknown values get nothing.
func (p AccessPolicy) Modules(r Role) []string {
	mods, ok := p.modules[r]
	if !ok {
		return nil
	}
	out := make([]string, len(mods))
	copy(out, mods)
	return out
}
