package domain_test

import (
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestAuthorize(t *testing.T) {
	owner := domain.Actor{ID: "customer-1", Role: domain.RoleCustomer}
	stranger := domain.Actor{ID: "customer-2", Role: domain.RoleCustomer}
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	order := makeOrder() // принадлежит customer-1

	cases := []struct {
		name    string
		actor   domain.Actor
		op      domain.Operation
		allowed bool
	}{
		{"admin confirms", admin, domain.OpConfirm, true},
		{"customer cannot confirm", owner, domain.OpConfirm, false},
		{"admin ships", admin, domain.OpShip, true},
		{"admin delivers", admin, domain.OpDeliver, true},
		{"admin forces tracking", admin, domain.OpForceTracking, true},
		{"owner cancels", owner, domain.OpCancel, true},
		// Отмена требует строго владения: админской подмены нет.
		{"admin cannot cancel", admin, domain.OpCancel, false},
		{"stranger cannot cancel", stranger, domain.OpCancel, false},
		{"owner requests return", owner, domain.OpRequestReturn, true},
		{"stranger cannot request return", stranger, domain.OpRequestReturn, false},
		{"owner reads", owner, domain.OpRead, true},
		{"admin reads", admin, domain.OpRead, true},
		{"stranger cannot read", stranger, domain.OpRead, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := domain.Authorize(tc.actor, tc.op, &order)
			if tc.allowed && err != nil {
				t.Fatalf("expected allow, got %v", err)
			}
			if !tc.allowed {
				if err == nil {
					t.Fatal("expected deny")
				}
				if !domain.IsKind(err, domain.KindForbidden) {
					t.Fatalf("expected FORBIDDEN, got %s", domain.KindOf(err))
				}
			}
		})
	}
}
