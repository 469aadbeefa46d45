package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		if err := b.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: err = %v, want boom", i, err)
		}
	}

	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	_ = b.Execute(func() error { return errBoom })
	_ = b.Execute(func() error { return errBoom })
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("success call: %v", err)
	}

	// Two more failures should not open the circuit after the reset.
	_ = b.Execute(func() error { return errBoom })
	_ = b.Execute(func() error { return errBoom })
	if err := b.Execute(func() error { return nil }); errors.Is(err, ErrCircuitOpen) {
		t.Fatal("circuit opened despite reset")
	}
}

func TestBreakerHalfOpenAfterTimeout(t *testing.T) {
	now := time.Now()
	b := NewBreaker(1, time.Minute)
	b.now = func() time.Time { return now }

	_ = b.Execute(func() error { return errBoom })
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}

	// After the timeout a probe call is let through.
	now = now.Add(2 * time.Minute)
	called := false
	if err := b.Execute(func() error { called = true; return nil }); err != nil {
		t.Fatalf("half-open probe: %v", err)
	}
	if !called {
		t.Fatal("probe not executed")
	}

	// Success in half-open closes the circuit.
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("closed circuit call: %v", err)
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(1, time.Minute)
	b.now = func() time.Time { return now }

	_ = b.Execute(func() error { return errBoom })
	now = now.Add(2 * time.Minute)

	// Failing probe reopens immediately.
	_ = b.Execute(func() error { return errBoom })
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen after failed probe", err)
	}
}
