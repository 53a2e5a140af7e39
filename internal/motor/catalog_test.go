package motor

import (
	"errors"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	names := c.Designations()
	if len(names) == 0 {
		t.Fatal("expected built-in motors")
	}

	m, err := c.Lookup("C6")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if m.BurnTime() <= 0 || m.TotalImpulse() <= 0 {
		t.Errorf("C6 has invalid curve: burn %f impulse %f", m.BurnTime(), m.TotalImpulse())
	}
	if m.Diameter() != 0.018 {
		t.Errorf("C6 diameter = %f, want 0.018", m.Diameter())
	}
}

func TestCatalogLookupUnknown(t *testing.T) {
	_, err := NewCatalog().Lookup("Z9000")
	if !errors.Is(err, ErrUnknownMotor) {
		t.Errorf("expected ErrUnknownMotor, got %v", err)
	}
}

func TestCatalogRegister(t *testing.T) {
	c := NewCatalog()
	m, _ := ConstantThrust("custom", 50, 1, 0.02, 0.02)

	if err := c.Register(m); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := c.Register(m); err == nil {
		t.Error("expected duplicate registration to fail")
	}

	got, err := c.Lookup("custom")
	if err != nil || got != m {
		t.Errorf("lookup returned %v, %v", got, err)
	}
}
