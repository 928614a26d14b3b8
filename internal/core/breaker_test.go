package core

import (
	"errors"
	"testing"
)

func TestBreakerRegistry_KindsAreIndependent(t *testing.T) {
	reg := NewBreakerRegistry()
	boom := errors.New("boom")

	for i := 0; i < 5; i++ {
		_ = reg.Call(Npm, func() error { return boom })
	}

	if reg.State()[Npm] != "open" {
		t.Fatalf("Npm breaker state = %q, want open", reg.State()[Npm])
	}

	var called bool
	err := reg.Call(CratesIo, func() error { called = true; return nil })
	if err != nil {
		t.Fatalf("CratesIo.Call returned %v, want nil (separate breaker)", err)
	}
	if !called {
		t.Error("CratesIo fn was not called despite Npm breaker being open")
	}
}

func TestBreakerRegistry_OpenFailsFast(t *testing.T) {
	reg := NewBreakerRegistry()
	boom := errors.New("boom")

	for i := 0; i < 5; i++ {
		_ = reg.Call(GoProxy, func() error { return boom })
	}

	var called bool
	err := reg.Call(GoProxy, func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("fn was called despite open breaker")
	}
}
