package rocket

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/flightsim/internal/motor"
)

func testMotor(t *testing.T) *motor.Model {
	t.Helper()
	m, err := motor.ConstantThrust("T", 50, 1, 0.05, 0.05)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func twoStage(t *testing.T) *Rocket {
	m := testMotor(t)
	return New("two", []Stage{
		{Name: "sustainer", DryMass: 0.5, Diameter: 0.03, DragCoefficient: 0.5,
			Recovery: []RecoveryDevice{{Name: "chute", Trigger: DeployAtApogee, CdA: 0.3}}},
		{Name: "booster", DryMass: 0.3, Diameter: 0.03, Separation: Separation{Trigger: SeparateAtBurnout}},
	}, []motor.Configuration{
		{ID: "b", Model: m, Stage: 1, Ignition: motor.IgniteAtLaunch},
		{ID: "s", Model: m, Stage: 0, Ignition: motor.IgniteAtBurnout, Ref: "b"},
	})
}

func TestValidRocket(t *testing.T) {
	r := twoStage(t)
	if err := r.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.NumStages() != 2 || r.NumMotors() != 2 {
		t.Errorf("unexpected shape: %d stages %d motors", r.NumStages(), r.NumMotors())
	}
	if got := r.MotorsOn(1); len(got) != 1 || got[0] != 0 {
		t.Errorf("MotorsOn(1) = %v", got)
	}
	if r.StageIndex("booster") != 1 || r.StageIndex("nope") != -1 {
		t.Error("StageIndex lookup failed")
	}
}

func TestValidateErrors(t *testing.T) {
	m := testMotor(t)
	stage := Stage{Name: "s", DryMass: 1}

	tests := []struct {
		name   string
		rocket *Rocket
		want   string
	}{
		{"no stages", New("r", nil, nil), "no stages"},
		{"no motors", New("r", []Stage{stage}, nil), "no motors"},
		{"bad mount", New("r", []Stage{stage}, []motor.Configuration{
			{ID: "a", Model: m, Stage: 3}}), "nonexistent stage"},
		{"nil model", New("r", []Stage{stage}, []motor.Configuration{
			{ID: "a", Stage: 0}}), "no model"},
		{"unknown burnout ref", New("r", []Stage{stage}, []motor.Configuration{
			{ID: "a", Model: m},
			{ID: "b", Model: m, Ignition: motor.IgniteAtBurnout, Ref: "zzz"}}), "unknown motor"},
		{"no launch motor", New("r", []Stage{stage}, []motor.Configuration{
			{ID: "a", Model: m, Ignition: motor.IgniteAtApogee}}), "ignites at launch"},
		{"cycle", New("r", []Stage{stage}, []motor.Configuration{
			{ID: "l", Model: m},
			{ID: "a", Model: m, Ignition: motor.IgniteAtBurnout, Ref: "b"},
			{ID: "b", Model: m, Ignition: motor.IgniteAtBurnout, Ref: "a"}}), "cycle"},
		{"top stage separation", New("r", []Stage{
			{Name: "top", DryMass: 1, Separation: Separation{Trigger: SeparateAtApogee}}},
			[]motor.Configuration{{ID: "a", Model: m}}), "cannot separate"},
		{"separation without motors", New("r", []Stage{
			stage, {Name: "b", DryMass: 1, Separation: Separation{Trigger: SeparateAtBurnout}}},
			[]motor.Configuration{{ID: "a", Model: m}}), "carries no motors"},
		{"bad deployment", New("r", []Stage{{Name: "s", DryMass: 1,
			Recovery: []RecoveryDevice{{Name: "d", Trigger: DeployAtAltitude}}}},
			[]motor.Configuration{{ID: "a", Model: m}}), "non-positive altitude"},
		{"separation ref", New("r", []Stage{stage}, []motor.Configuration{
			{ID: "a", Model: m},
			{ID: "b", Model: m, Ignition: motor.IgniteAtSeparation, Ref: "ghost"}}), "unknown stage"},
		{"duplicate stage", New("r", []Stage{
			{Name: "stage", DryMass: 1},
			{Name: "stage", DryMass: 1, Separation: Separation{Trigger: SeparateAtBurnout}}},
			[]motor.Configuration{{ID: "a", Model: m, Stage: 1}}), "duplicate stage name"},
		{"duplicate device", New("r", []Stage{{Name: "s", DryMass: 1,
			Recovery: []RecoveryDevice{
				{Name: "chute", Trigger: DeployAtApogee, CdA: 0.1},
				{Name: "chute", Trigger: DeployAtApogee, Delay: 1, CdA: 0.1}}}},
			[]motor.Configuration{{ID: "a", Model: m}}), "duplicate recovery device"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rocket.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestRocketIsImmutable(t *testing.T) {
	stages := []Stage{{Name: "s", DryMass: 1, Recovery: []RecoveryDevice{{Name: "d", CdA: 1}}}}
	r := New("r", stages, nil)

	stages[0].DryMass = 99
	stages[0].Recovery[0].CdA = 99
	if r.Stage(0).DryMass != 1 || r.Stage(0).Recovery[0].CdA != 1 {
		t.Error("rocket shares memory with its inputs")
	}

	got := r.Stages()
	got[0].Recovery[0].CdA = 42
	if r.Stage(0).Recovery[0].CdA != 1 {
		t.Error("Stages() leaks internal slices")
	}
}

func TestReferenceArea(t *testing.T) {
	s := Stage{Diameter: 0.1}
	if math.Abs(s.ReferenceArea()-math.Pi*0.0025) > 1e-12 {
		t.Errorf("ReferenceArea = %v", s.ReferenceArea())
	}
	s.Area = 0.5
	if s.ReferenceArea() != 0.5 {
		t.Errorf("explicit area ignored: %v", s.ReferenceArea())
	}
}

func TestParseTriggers(t *testing.T) {
	sep := []struct {
		in   string
		want SeparationTrigger
		ok   bool
	}{
		{"", SeparateNever, true},
		{"burnout", SeparateAtBurnout, true},
		{"Apogee", SeparateAtApogee, true},
		{"time", SeparateAtTime, true},
		{"sometimes", 0, false},
	}
	for _, tt := range sep {
		got, err := ParseSeparationTrigger(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseSeparationTrigger(%q) = %v, %v", tt.in, got, err)
		}
	}

	dep := []struct {
		in   string
		want DeployTrigger
		ok   bool
	}{
		{"", DeployAtApogee, true},
		{"altitude", DeployAtAltitude, true},
		{"VELOCITY", DeployAtVelocity, true},
		{"time", DeployAtTime, true},
		{"landing", 0, false},
	}
	for _, tt := range dep {
		got, err := ParseDeployTrigger(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseDeployTrigger(%q) = %v, %v", tt.in, got, err)
		}
	}
}
