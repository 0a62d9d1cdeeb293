package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want domain.Kind
	}{
		{"explicit kind", domain.E(domain.KindForbidden, "nope"), domain.KindForbidden},
		{"wrapped kind", fmt.Errorf("outer: %w", domain.E(domain.KindInvalidTransition, "bad move")), domain.KindInvalidTransition},
		{"sentinel not found", domain.ErrOrderNotFound, domain.KindNotFound},
		{"sentinel product not found", fmt.Errorf("load: %w", domain.ErrProductNotFound), domain.KindNotFound},
		{"plain error", errors.New("boom"), domain.KindInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := domain.Wrap(domain.KindUpstreamUnavailable, "store unreachable", cause)

	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause should be reachable via errors.Is")
	}
	if !domain.IsKind(err, domain.KindUpstreamUnavailable) {
		t.Fatalf("expected UPSTREAM_UNAVAILABLE, got %s", domain.KindOf(err))
	}
	// Сообщение включает причину для логов, но категория стабильна.
	if err.Error() != "store unreachable: connection refused" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestIsVersionConflict(t *testing.T) {
	if !domain.IsVersionConflict(fmt.Errorf("save: %w", domain.ErrOrderVersionConflict)) {
		t.Fatal("wrapped version conflict should be detected")
	}
	if domain.IsVersionConflict(errors.New("other")) {
		t.Fatal("unrelated error reported as version conflict")
	}
}
