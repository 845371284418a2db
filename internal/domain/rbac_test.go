package domain_test

import (
	"testing"

	"github.com/studentmarketplace/identity-service/internal/domain"
)

func TestDefaultAuthorizerHierarchies(t *testing.T) {
	t.Parallel()

	auth := domain.DefaultAuthorizer()

	cases := []struct {
		name     string
		current  domain.Role
		required domain.Role
		want     bool
	}{
		{"admin satisfies user", domain.RoleAdmin, domain.RoleUser, true},
		{"admin satisfies vendor", domain.RoleAdmin, domain.RoleVendor, true},
		{"admin satisfies admin", domain.RoleAdmin, domain.RoleAdmin, true},
		{"user satisfies user", domain.RoleUser, domain.RoleUser, true},
		{"user does not satisfy admin", domain.RoleUser, domain.RoleAdmin, false},
		{"vendor does not satisfy user", domain.RoleVendor, domain.RoleUser, false},
		{"user does not satisfy vendor", domain.RoleUser, domain.RoleVendor, false},
		{"vendor does not satisfy admin", domain.RoleVendor, domain.RoleAdmin, false},
	}
	for _, tc := range cases {
		if got := auth.IsAuthorized(tc.current, tc.required); got != tc.want {
			t.Errorf("%s: IsAuthorized(%s, %s) = %v, want %v", tc.name, tc.current, tc.required, got, tc.want)
		}
	}
}

func TestIsAuthorizedUnknownRoleMatchesByEqualityOnly(t *testing.T) {
	t.Parallel()

	auth := domain.DefaultAuthorizer()
	custom := domain.Role("AUDITOR")

	if !auth.IsAuthorized(custom, custom) {
		t.Fatalf("a role must always satisfy itself")
	}
	if auth.IsAuthorized(custom, domain.RoleUser) {
		t.Fatalf("role outside every hierarchy must not satisfy ranked roles")
	}
	if auth.IsAuthorized(domain.RoleAdmin, custom) {
		t.Fatalf("ranked role must not satisfy a role outside every hierarchy")
	}
}

func TestAnyAuthorized(t *testing.T) {
	t.Parallel()

	auth := domain.DefaultAuthorizer()

	if !auth.AnyAuthorized([]domain.Role{domain.RoleVendor, domain.RoleUser}, domain.RoleUser) {
		t.Fatalf("one matching held role must be enough")
	}
	if auth.AnyAuthorized([]domain.Role{domain.RoleVendor, domain.RoleUser}, domain.RoleAdmin) {
		t.Fatalf("no held role satisfies admin")
	}
	if auth.AnyAuthorized(nil, domain.RoleUser) {
		t.Fatalf("empty role set must never authorize")
	}
}
