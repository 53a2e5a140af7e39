package motor

import (
	"fmt"
	"sort"
	"sync"
)

// Database resolves a motor designation to its curves.
type Database interface {
	Lookup(designation string) (*Model, error)
}

// Catalog is an in-memory Database safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	models map[string]*Model
}

func NewCatalog() *Catalog {
	return &Catalog{models: make(map[string]*Model)}
}

// DefaultCatalog returns a catalog holding the generic built-in motors.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, b := range builtins {
		m, err := NewModel(b.designation, b.curve, b.propellant, b.casing)
		if err != nil {
			panic(fmt.Sprintf("motor: bad builtin %s: %v", b.designation, err))
		}
		c.models[b.designation] = m.WithDimensions(b.diameter, b.length)
	}
	return c
}

func (c *Catalog) Register(m *Model) error {
	if m == nil {
		return fmt.Errorf("motor: nil model")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.models[m.Designation()]; exists {
		return fmt.Errorf("motor: %s already registered", m.Designation())
	}
	c.models[m.Designation()] = m
	return nil
}

func (c *Catalog) Lookup(designation string) (*Model, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.models[designation]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMotor, designation)
	}
	return m, nil
}

func (c *Catalog) Designations() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.models))
	for name := range c.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type builtin struct {
	designation string
	diameter    float64
	length      float64
	propellant  float64
	casing      float64
	curve       []Sample
}

// Generic curves shaped like common hobby motors. Not certified data.
var builtins = []builtin{
	{"A8", 0.018, 0.070, 0.00312, 0.01288, []Sample{
		{0, 0}, {0.04, 9.7}, {0.10, 10.5}, {0.20, 4.2}, {0.50, 2.9}, {0.73, 0},
	}},
	{"B6", 0.018, 0.070, 0.0056, 0.0134, []Sample{
		{0, 0}, {0.05, 4.0}, {0.15, 12.1}, {0.25, 4.8}, {0.80, 4.5}, {0.86, 0},
	}},
	{"C6", 0.018, 0.070, 0.0108, 0.0132, []Sample{
		{0, 0}, {0.05, 3.8}, {0.18, 14.1}, {0.30, 5.5}, {1.80, 4.5}, {1.86, 0},
	}},
	{"D12", 0.024, 0.070, 0.0211, 0.0229, []Sample{
		{0, 0}, {0.05, 5.0}, {0.25, 29.7}, {0.40, 12.0}, {1.60, 10.3}, {1.70, 0},
	}},
	{"E9", 0.024, 0.095, 0.0358, 0.0212, []Sample{
		{0, 0}, {0.05, 8.0}, {0.30, 19.5}, {0.50, 8.8}, {3.00, 8.0}, {3.10, 0},
	}},
	{"F15", 0.029, 0.114, 0.0602, 0.0418, []Sample{
		{0, 0}, {0.10, 25.0}, {0.40, 18.0}, {3.20, 13.5}, {3.40, 0},
	}},
	{"G40", 0.029, 0.124, 0.0624, 0.0606, []Sample{
		{0, 0}, {0.05, 52.0}, {0.60, 48.0}, {2.00, 35.0}, {2.40, 0},
	}},
	{"H128", 0.029, 0.194, 0.0946, 0.1114, []Sample{
		{0, 0}, {0.05, 160.0}, {0.80, 140.0}, {1.40, 95.0}, {1.60, 0},
	}},
}
