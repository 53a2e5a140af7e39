package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/flightsim/internal/integrators"
)

const StandardGravity = 9.80665

// Environment describes the launch site and atmosphere. Angles are radians;
// LaunchAngle is measured from vertical and Heading from +x towards +y.
type Environment struct {
	Gravity     float64    `yaml:"gravity"`
	AirDensity  float64    `yaml:"air_density"`
	ScaleHeight float64    `yaml:"scale_height"`
	Wind        mgl64.Vec3 `yaml:"wind"`
	RailLength  float64    `yaml:"rail_length"`
	LaunchAngle float64    `yaml:"launch_angle"`
	Heading     float64    `yaml:"heading"`
}

func DefaultEnvironment() Environment {
	return Environment{
		Gravity:     StandardGravity,
		AirDensity:  1.225,
		ScaleHeight: 8500,
		RailLength:  1,
	}
}

// Density returns the air density at altitude h.
func (e Environment) Density(h float64) float64 {
	if e.ScaleHeight <= 0 {
		return e.AirDensity
	}
	return e.AirDensity * math.Exp(-math.Max(h, 0)/e.ScaleHeight)
}

// RailAxis is the unit direction of the launch rail.
func (e Environment) RailAxis() mgl64.Vec3 {
	s, c := math.Sincos(e.LaunchAngle)
	sh, ch := math.Sincos(e.Heading)
	return mgl64.Vec3{ch * s, sh * s, c}
}

// LaunchOrientation rotates the body axis onto the rail.
func (e Environment) LaunchOrientation() mgl64.Quat {
	sh, ch := math.Sincos(e.Heading)
	return mgl64.QuatRotate(e.LaunchAngle, mgl64.Vec3{-sh, ch, 0})
}

type Config struct {
	Dt             float64 `yaml:"dt"`
	MinDt          float64 `yaml:"min_dt"`
	MaxDt          float64 `yaml:"max_dt"`
	Tolerance      float64 `yaml:"tolerance"`
	MaxMinSteps    int     `yaml:"max_min_steps"`
	MaxTime        float64 `yaml:"max_time"`
	SampleInterval float64 `yaml:"sample_interval"`
	EventTolerance float64 `yaml:"event_tolerance"`
	Seed           int64   `yaml:"seed"`

	// SimulateDetached keeps stepping stages that fall away until they land.
	// When false their branch ends at the separation.
	SimulateDetached bool `yaml:"simulate_detached"`

	Environment Environment `yaml:"environment"`
}

func DefaultConfig() Config {
	return Config{
		Dt:               0.01,
		MinDt:            1e-6,
		MaxDt:            0.05,
		Tolerance:        1e-7,
		MaxMinSteps:      200,
		MaxTime:          600,
		SampleInterval:   0.05,
		EventTolerance:   1e-5,
		SimulateDetached: true,
		Environment:      DefaultEnvironment(),
	}
}

// StepControl converts the step bounds for the integrator.
func (c Config) StepControl() integrators.StepControl {
	return integrators.StepControl{
		Tolerance:   c.Tolerance,
		MinDt:       c.MinDt,
		MaxDt:       c.MaxDt,
		MaxMinSteps: c.MaxMinSteps,
	}
}

func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.Dt > 0, "dt must be positive, got %g", c.Dt)
	check(c.MinDt > 0, "min_dt must be positive, got %g", c.MinDt)
	check(c.MaxDt >= c.MinDt, "max_dt %g is below min_dt %g", c.MaxDt, c.MinDt)
	check(c.Tolerance > 0, "tolerance must be positive, got %g", c.Tolerance)
	check(c.MaxMinSteps >= 0, "max_min_steps must not be negative")
	check(c.MaxTime > 0, "max_time must be positive, got %g", c.MaxTime)
	check(c.SampleInterval >= 0, "sample_interval must not be negative")
	check(c.EventTolerance > 0, "event_tolerance must be positive, got %g", c.EventTolerance)

	env := c.Environment
	check(env.Gravity >= 0, "gravity must not be negative")
	check(env.AirDensity >= 0, "air density must not be negative")
	check(env.RailLength >= 0, "rail length must not be negative")
	check(math.Abs(env.LaunchAngle) < math.Pi/2, "launch angle %g rad is not above the horizon", env.LaunchAngle)
	return errors.Join(errs...)
}
