// Package config reads flight files, resolves their motors and builds the
// immutable rocket handed to the engine. It also holds the built-in presets
// and the process settings.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/flightsim/internal/motor"
	"github.com/san-kum/flightsim/internal/rocket"
	"github.com/san-kum/flightsim/internal/sim"
)

const DefaultIntegrator = "rk45"

// File is a flight file: the rocket, its motors and the simulation options.
type File struct {
	Name       string      `yaml:"name"`
	Integrator string      `yaml:"integrator"`
	Simulation sim.Config  `yaml:"simulation"`
	Stages     []StageSpec `yaml:"stages"`
	Motors     []MotorSpec `yaml:"motors"`
	Curves     []CurveSpec `yaml:"curves,omitempty"`
}

type StageSpec struct {
	Name            string         `yaml:"name"`
	DryMass         float64        `yaml:"dry_mass"`
	Length          float64        `yaml:"length"`
	Diameter        float64        `yaml:"diameter"`
	DragCoefficient float64        `yaml:"cd"`
	Area            float64        `yaml:"area,omitempty"`
	Separation      SeparationSpec `yaml:"separation,omitempty"`
	Recovery        []RecoverySpec `yaml:"recovery,omitempty"`
}

type SeparationSpec struct {
	Trigger string  `yaml:"trigger,omitempty"`
	Delay   float64 `yaml:"delay,omitempty"`
}

type RecoverySpec struct {
	Name     string  `yaml:"name"`
	Trigger  string  `yaml:"trigger"`
	Delay    float64 `yaml:"delay,omitempty"`
	Altitude float64 `yaml:"altitude,omitempty"`
	Velocity float64 `yaml:"velocity,omitempty"`
	CdA      float64 `yaml:"cda"`
}

// MotorSpec mounts a motor from the database on a stage, named by its
// stage name. Scale multiplies the thrust curve when non-zero.
type MotorSpec struct {
	ID          string  `yaml:"id"`
	Designation string  `yaml:"designation"`
	Stage       string  `yaml:"stage"`
	Ignition    string  `yaml:"ignition,omitempty"`
	Ref         string  `yaml:"ref,omitempty"`
	Altitude    float64 `yaml:"altitude,omitempty"`
	Delay       float64 `yaml:"delay,omitempty"`
	Scale       float64 `yaml:"scale,omitempty"`
}

// CurveSpec registers a user thrust curve under Designation.
type CurveSpec struct {
	Designation string         `yaml:"designation"`
	Propellant  float64        `yaml:"propellant_mass"`
	Casing      float64        `yaml:"casing_mass"`
	Diameter    float64        `yaml:"diameter,omitempty"`
	Length      float64        `yaml:"length,omitempty"`
	Thrust      []motor.Sample `yaml:"thrust"`
}

func DefaultFile() *File {
	return &File{
		Name:       "rocket",
		Integrator: DefaultIntegrator,
		Simulation: sim.DefaultConfig(),
	}
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a flight file over the defaults.
func Parse(data []byte) (*File, error) {
	f := DefaultFile()
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return f, nil
}

func Save(path string, f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy of f.
func (f *File) Clone() *File {
	c := *f
	c.Stages = nil
	for _, s := range f.Stages {
		s.Recovery = append([]RecoverySpec(nil), s.Recovery...)
		c.Stages = append(c.Stages, s)
	}
	c.Motors = append([]MotorSpec(nil), f.Motors...)
	c.Curves = nil
	for _, cv := range f.Curves {
		cv.Thrust = append([]motor.Sample(nil), cv.Thrust...)
		c.Curves = append(c.Curves, cv)
	}
	return &c
}

// Database layers the file's own curves over base.
func (f *File) Database(base motor.Database) (motor.Database, error) {
	if len(f.Curves) == 0 {
		return base, nil
	}
	own := motor.NewCatalog()
	for _, c := range f.Curves {
		m, err := motor.NewModel(c.Designation, c.Thrust, c.Propellant, c.Casing)
		if err != nil {
			return nil, err
		}
		if err := own.Register(m.WithDimensions(c.Diameter, c.Length)); err != nil {
			return nil, err
		}
	}
	return layered{own: own, base: base}, nil
}

type layered struct {
	own  *motor.Catalog
	base motor.Database
}

func (l layered) Lookup(designation string) (*motor.Model, error) {
	m, err := l.own.Lookup(designation)
	if err == nil || l.base == nil || !errors.Is(err, motor.ErrUnknownMotor) {
		return m, err
	}
	return l.base.Lookup(designation)
}

// Rocket resolves the motors through db and builds the rocket. Structural
// checks are left to rocket.Validate; only references the rocket cannot
// express, such as unknown stage names, are rejected here.
func (f *File) Rocket(db motor.Database) (*rocket.Rocket, error) {
	db, err := f.Database(db)
	if err != nil {
		return nil, err
	}

	var errs []error
	stages := make([]rocket.Stage, len(f.Stages))
	index := make(map[string]int, len(f.Stages))
	for i, s := range f.Stages {
		if _, dup := index[s.Name]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate stage name %q", rocket.ErrInvalid, s.Name))
		} else {
			index[s.Name] = i
		}
		sep, err := rocket.ParseSeparationTrigger(s.Separation.Trigger)
		if err != nil {
			errs = append(errs, fmt.Errorf("stage %q: %w", s.Name, err))
		}
		st := rocket.Stage{
			Name:            s.Name,
			DryMass:         s.DryMass,
			Length:          s.Length,
			Diameter:        s.Diameter,
			DragCoefficient: s.DragCoefficient,
			Area:            s.Area,
			Separation:      rocket.Separation{Trigger: sep, Delay: s.Separation.Delay},
		}
		for _, d := range s.Recovery {
			trig, err := rocket.ParseDeployTrigger(d.Trigger)
			if err != nil {
				errs = append(errs, fmt.Errorf("stage %q: %w", s.Name, err))
			}
			st.Recovery = append(st.Recovery, rocket.RecoveryDevice{
				Name:     d.Name,
				Trigger:  trig,
				Delay:    d.Delay,
				Altitude: d.Altitude,
				Velocity: d.Velocity,
				CdA:      d.CdA,
			})
		}
		stages[i] = st
	}

	motors := make([]motor.Configuration, 0, len(f.Motors))
	for _, ms := range f.Motors {
		stage, ok := index[ms.Stage]
		if !ok {
			errs = append(errs, fmt.Errorf("motor %q: unknown stage %q", ms.ID, ms.Stage))
			continue
		}
		trig, err := motor.ParseTrigger(ms.Ignition)
		if err != nil {
			errs = append(errs, fmt.Errorf("motor %q: %w", ms.ID, err))
			continue
		}
		model, err := db.Lookup(ms.Designation)
		if err != nil {
			errs = append(errs, fmt.Errorf("motor %q: %w", ms.ID, err))
			continue
		}
		if ms.Scale != 0 && ms.Scale != 1 {
			if model, err = model.Scaled(ms.Scale); err != nil {
				errs = append(errs, fmt.Errorf("motor %q: %w", ms.ID, err))
				continue
			}
		}
		motors = append(motors, motor.Configuration{
			ID:       ms.ID,
			Model:    model,
			Stage:    stage,
			Ignition: trig,
			Ref:      ms.Ref,
			Altitude: ms.Altitude,
			Delay:    ms.Delay,
		})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return rocket.New(f.Name, stages, motors), nil
}
