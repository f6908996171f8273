package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestBreakerSetPassesThroughSuccess(t *testing.T) {
	set := NewBreakerSet(DefaultConfig())

	calls := 0
	err := set.Execute("primary", func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one invocation, got %d", calls)
	}
}

func TestBreakerSetOpensAfterRepeatedFailures(t *testing.T) {
	cfg := Config{
		Enabled:          true,
		MinRequests:      3,
		FailureRatio:     0.5,
		OpenTimeout:      time.Minute,
		HalfOpenMaxCalls: 1,
	}
	set := NewBreakerSet(cfg)
	boom := errors.New("endpoint down")

	for i := 0; i < 3; i++ {
		if err := set.Execute("primary", func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: expected the callback error, got %v", i, err)
		}
	}

	calls := 0
	err := set.Execute("primary", func() error {
		calls++
		return nil
	})
	if !IsCircuitOpen(err) {
		t.Fatalf("expected an open circuit, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("open breaker must fail fast without invoking the callback")
	}
}

func TestBreakerSetTracksEndpointsIndependently(t *testing.T) {
	cfg := Config{
		Enabled:          true,
		MinRequests:      2,
		FailureRatio:     0.5,
		OpenTimeout:      time.Minute,
		HalfOpenMaxCalls: 1,
	}
	set := NewBreakerSet(cfg)
	boom := errors.New("endpoint down")

	for i := 0; i < 2; i++ {
		_ = set.Execute("primary", func() error { return boom })
	}
	if err := set.Execute("primary", func() error { return nil }); !IsCircuitOpen(err) {
		t.Fatalf("expected primary breaker open, got %v", err)
	}

	if err := set.Execute("fallback", func() error { return nil }); err != nil {
		t.Fatalf("fallback breaker must be unaffected, got %v", err)
	}
}

func TestBreakerSetDisabled(t *testing.T) {
	set := NewBreakerSet(Config{Enabled: false})
	boom := errors.New("endpoint down")

	for i := 0; i < 20; i++ {
		if err := set.Execute("primary", func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("disabled breaker must always run the callback, got %v", err)
		}
	}
}

func TestExecuteRejectsNilCallback(t *testing.T) {
	set := NewBreakerSet(DefaultConfig())
	if err := set.Execute("primary", nil); err == nil {
		t.Fatalf("expected an error for a nil callback")
	}
}
