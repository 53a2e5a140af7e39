package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/flightsim/internal/flight"
	"github.com/san-kum/flightsim/internal/motor"
	"github.com/san-kum/flightsim/internal/rocket"
	"github.com/san-kum/flightsim/internal/sim"
)

const flightFile = `
name: Test
integrator: rk4
simulation:
  max_time: 120
  environment:
    wind: [3, 0, 0]
    launch_angle: 0.05
stages:
  - name: sustainer
    dry_mass: 0.05
    length: 0.4
    diameter: 0.025
    cd: 0.5
    recovery:
      - name: chute
        trigger: altitude
        altitude: 50
        cda: 0.05
  - name: booster
    dry_mass: 0.03
    length: 0.2
    diameter: 0.025
    cd: 0.6
    separation:
      trigger: burnout
      delay: 0.1
motors:
  - id: b
    designation: X20
    stage: booster
  - id: s
    designation: C6
    stage: sustainer
    ignition: separation
    ref: booster
    scale: 1.5
curves:
  - designation: X20
    propellant_mass: 0.02
    casing_mass: 0.02
    thrust:
      - {t: 0, f: 20}
      - {t: 1, f: 20}
`

func TestDefaultFile(t *testing.T) {
	f := DefaultFile()
	assert.Equal(t, DefaultIntegrator, f.Integrator)
	assert.Equal(t, sim.DefaultConfig(), f.Simulation)
	assert.Empty(t, f.Stages)
}

func TestParse(t *testing.T) {
	f, err := Parse([]byte(flightFile))
	require.NoError(t, err)

	assert.Equal(t, "Test", f.Name)
	assert.Equal(t, "rk4", f.Integrator)
	assert.Equal(t, 120.0, f.Simulation.MaxTime)
	assert.Equal(t, sim.DefaultConfig().Dt, f.Simulation.Dt, "unset fields keep defaults")
	assert.Equal(t, 3.0, f.Simulation.Environment.Wind.X())
	assert.Equal(t, sim.StandardGravity, f.Simulation.Environment.Gravity)
	require.Len(t, f.Stages, 2)
	assert.Equal(t, "burnout", f.Stages[1].Separation.Trigger)
	require.Len(t, f.Curves, 1)
	assert.Len(t, f.Curves[0].Thrust, 2)
}

func TestRocket(t *testing.T) {
	f, err := Parse([]byte(flightFile))
	require.NoError(t, err)

	r, err := f.Rocket(motor.DefaultCatalog())
	require.NoError(t, err)
	require.NoError(t, r.Validate())

	assert.Equal(t, "Test", r.Name())
	assert.Equal(t, 2, r.NumStages())
	assert.Equal(t, rocket.SeparateAtBurnout, r.Stage(1).Separation.Trigger)
	assert.Equal(t, rocket.DeployAtAltitude, r.Stage(0).Recovery[0].Trigger)

	b := r.Motor(r.MotorIndex("b"))
	assert.Equal(t, "X20", b.Model.Designation())
	assert.Equal(t, 1, b.Stage)

	s := r.Motor(r.MotorIndex("s"))
	assert.Equal(t, motor.IgniteAtSeparation, s.Ignition)
	c6, _ := motor.DefaultCatalog().Lookup("C6")
	assert.InDelta(t, 1.5*c6.TotalImpulse(), s.Model.TotalImpulse(), 1e-9)
}

func TestRocketErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *File)
		want   error
	}{
		{"unknown motor", func(f *File) { f.Motors[0].Designation = "Z999" }, motor.ErrUnknownMotor},
		{"bad curve", func(f *File) { f.Curves[0].Thrust[0].Time = 0.5 }, motor.ErrInvalidCurve},
		{"unknown stage", func(f *File) { f.Motors[1].Stage = "payload" }, nil},
		{"bad ignition", func(f *File) { f.Motors[1].Ignition = "whenever" }, nil},
		{"bad separation", func(f *File) { f.Stages[1].Separation.Trigger = "sometimes" }, nil},
		{"bad deploy", func(f *File) { f.Stages[0].Recovery[0].Trigger = "landing" }, nil},
		{"duplicate stage", func(f *File) { f.Stages[1].Name = "sustainer" }, rocket.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(flightFile))
			require.NoError(t, err)
			tt.mutate(f)
			_, err = f.Rocket(motor.DefaultCatalog())
			require.Error(t, err)
			if tt.want != nil {
				assert.True(t, errors.Is(err, tt.want), "got %v", err)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flight.yaml")
	f := GetPreset("two-stage")
	require.NotNil(t, f)
	require.NoError(t, Save(path, f))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, f, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestClone(t *testing.T) {
	f := GetPreset("dual-deploy")
	c := f.Clone()
	c.Stages[0].Recovery[0].CdA = 99
	c.Motors[0].Designation = "A8"
	assert.NotEqual(t, 99.0, f.Stages[0].Recovery[0].CdA)
	assert.Equal(t, "G40", f.Motors[0].Designation)
}

func TestGetPreset(t *testing.T) {
	assert.Nil(t, GetPreset("nonexistent"))
	assert.Equal(t, []string{"dual-deploy", "single", "two-stage"}, ListPresets())

	f := GetPreset("single")
	f.Stages[0].DryMass = 100
	assert.NotEqual(t, 100.0, Presets["single"].Stages[0].DryMass, "presets must not be shared")
}

func TestPresetsFly(t *testing.T) {
	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			r, err := GetPreset(name).Rocket(motor.DefaultCatalog())
			require.NoError(t, err)
			require.NoError(t, r.Validate())

			res, err := sim.New(r, GetPreset(name).Simulation).Run(context.Background())
			require.NoError(t, err)
			main := res.Main()
			assert.True(t, main.HasEvent(flight.Apogee))
			assert.True(t, main.HasEvent(flight.GroundHit))
			assert.True(t, main.HasEvent(flight.Deployment))
			if r.NumStages() > 1 {
				assert.Len(t, res.Branches, r.NumStages())
			}
		})
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, "console", s.LogFormat)
	assert.Equal(t, "./runs", s.DataDir)
	assert.Equal(t, 0, s.Workers)
	assert.Equal(t, DefaultIntegrator, s.Integrator)
	assert.Equal(t, 200*time.Millisecond, s.ProgressInterval)
	assert.Empty(t, s.SentryDSN)
}

func TestLoadSettingsFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flightsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\nworkers: 3\ndata:\n  dir: /tmp/flights\n"), 0644))
	t.Setenv("FLIGHTSIM_WORKERS", "5")
	t.Setenv("FLIGHTSIM_SENTRY_DSN", "https://key@example.com/1")

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, "/tmp/flights", s.DataDir)
	assert.Equal(t, 5, s.Workers, "environment overrides the file")
	assert.Equal(t, "https://key@example.com/1", s.SentryDSN)
}

func TestLoadSettingsErrors(t *testing.T) {
	_, err := LoadSettings("/nonexistent/flightsim.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")

	t.Setenv("FLIGHTSIM_WORKERS", "-1")
	_, err = LoadSettings("")
	assert.Error(t, err)
}
