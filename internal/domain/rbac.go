package domain

// Role names a marketplace privilege tier.
type Role string

const (
	RoleUser   Role = "USER"
	RoleVendor Role = "VENDOR"
	RoleAdmin  Role = "ADMIN"
)

// Authorizer decides whether a held role satisfies a required role. It is a
// set of independent linear hierarchies; each hierarchy carries its own
// 1-based rank sequence and hierarchies are never compared against each other.
type Authorizer struct {
	hierarchies []map[Role]int
}

// NewAuthorizer builds an authorizer from ordered role chains, lowest rank
// first within each chain.
func NewAuthorizer(hierarchies ...[]Role) *Authorizer {
	a := &Authorizer{}
	for _, chain := range hierarchies {
		ranks := make(map[Role]int, len(chain))
		rank := 1
		for _, role := range chain {
			ranks[role] = rank
			rank++
		}
		a.hierarchies = append(a.hierarchies, ranks)
	}
	return a
}

// DefaultAuthorizer wires the marketplace chains: admins satisfy user and
// vendor requirements, but vendor does not imply user privileges.
func DefaultAuthorizer() *Authorizer {
	return NewAuthorizer(
		[]Role{RoleUser, RoleAdmin},
		[]Role{RoleVendor, RoleAdmin},
	)
}

// IsAuthorized reports whether currentRole satisfies requiredRole: equality,
// or a shared hierarchy where currentRole ranks at least as high.
func (a *Authorizer) IsAuthorized(currentRole, requiredRole Role) bool {
	if currentRole == requiredRole {
		return true
	}
	for _, ranks := range a.hierarchies {
		current, okCurrent := ranks[currentRole]
		required, okRequired := ranks[requiredRole]
		if okCurrent && okRequired && current >= required {
			return true
		}
	}
	return false
}

// AnyAuthorized reports whether any held role satisfies requiredRole.
func (a *Authorizer) AnyAuthorized(held []Role, requiredRole Role) bool {
	for _, role := range held {
		if a.IsAuthorized(role, requiredRole) {
			return true
		}
	}
	return false
}
