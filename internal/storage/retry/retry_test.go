package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// testConfig убирает задержки, чтобы тесты не спали.
func testConfig() Config {
	return Config{MaxAttempts: 3, BaseDelay: 0, MaxDelay: 0}
}

type stubStore struct {
	reconnects int
	probeErr   error
}

func (s *stubStore) Reconnect(ctx context.Context) error {
	s.reconnects++
	return nil
}

func (s *stubStore) Probe(ctx context.Context) (time.Duration, error) {
	return 3 * time.Millisecond, s.probeErr
}

func TestDoSucceedsOnThirdAttempt(t *testing.T) {
	store := &stubStore{}
	exec := NewExecutor(testConfig(), store, nil)

	calls := 0
	err := exec.Do(context.Background(), "save-order", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("read tcp: connection reset by peer")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected exactly 3 invocations, got %d", calls)
	}
	// Перед каждой повторной попыткой было переподключение.
	if store.reconnects != 2 {
		t.Fatalf("expected 2 reconnects, got %d", store.reconnects)
	}
}

func TestDoNonRetryableFailsImmediately(t *testing.T) {
	exec := NewExecutor(testConfig(), nil, nil)

	permanent := errors.New("duplicate key value violates unique constraint")
	calls := 0
	err := exec.Do(context.Background(), "create-order", func(ctx context.Context) error {
		calls++
		return permanent
	})

	if calls != 1 {
		t.Fatalf("expected exactly 1 invocation, got %d", calls)
	}
	// Ошибка уходит вызывающему без обёртки.
	if !errors.Is(err, permanent) || err.Error() != permanent.Error() {
		t.Fatalf("expected original error, got %v", err)
	}
}

func TestDoExhaustionReturnsLastError(t *testing.T) {
	exec := NewExecutor(testConfig(), nil, nil)

	last := errors.New("dial tcp: i/o timeout")
	calls := 0
	err := exec.Do(context.Background(), "load-order", func(ctx context.Context) error {
		calls++
		return last
	})

	if calls != 3 {
		t.Fatalf("expected 3 invocations, got %d", calls)
	}
	if !errors.Is(err, last) {
		t.Fatalf("expected last error unchanged, got %v", err)
	}
}

func TestDoValueReturnsResult(t *testing.T) {
	exec := NewExecutor(testConfig(), nil, nil)

	calls := 0
	got, err := DoValue(context.Background(), exec, "get-order", func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("connection closed")
		}
		return "order-1", nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "order-1" {
		t.Fatalf("expected order-1, got %q", got)
	}
}

func TestDoContextCancelledDuringBackoff(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BaseDelay: time.Hour}
	exec := NewExecutor(cfg, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := exec.Do(ctx, "save-order", func(ctx context.Context) error {
		return errors.New("connection refused")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("connection refused"), true},
		{errors.New("use of closed network connection"), true},
		{errors.New("i/o timeout"), true},
		{errors.New("write: broken pipe"), true},
		{errors.New("order not found"), false},
		{errors.New("violates check constraint"), false},
		{nil, false},
	}

	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestCheckHealth(t *testing.T) {
	healthy := CheckHealth(context.Background(), &stubStore{})
	if !healthy.OK || healthy.Latency != 3*time.Millisecond {
		t.Fatalf("unexpected health: %+v", healthy)
	}

	sick := CheckHealth(context.Background(), &stubStore{probeErr: errors.New("connection refused")})
	if sick.OK || sick.Error == "" {
		t.Fatalf("unexpected health: %+v", sick)
	}
}
