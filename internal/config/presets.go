package config

import "sort"

func preset(name string, stages []StageSpec, motors []MotorSpec) *File {
	f := DefaultFile()
	f.Name = name
	f.Stages = stages
	f.Motors = motors
	return f
}

var Presets = map[string]*File{
	"single": preset("Alpha",
		[]StageSpec{{
			Name: "body", DryMass: 0.040, Length: 0.40, Diameter: 0.025, DragCoefficient: 0.55,
			Recovery: []RecoverySpec{{Name: "streamer", Trigger: "apogee", Delay: 1, CdA: 0.01}},
		}},
		[]MotorSpec{{ID: "main", Designation: "C6", Stage: "body"}},
	),
	"two-stage": preset("Comanche",
		[]StageSpec{
			{
				Name: "sustainer", DryMass: 0.035, Length: 0.45, Diameter: 0.025, DragCoefficient: 0.5,
				Recovery: []RecoverySpec{{Name: "chute", Trigger: "apogee", CdA: 0.05}},
			},
			{
				Name: "booster", DryMass: 0.020, Length: 0.20, Diameter: 0.025, DragCoefficient: 0.6,
				Separation: SeparationSpec{Trigger: "burnout"},
				Recovery:   []RecoverySpec{{Name: "streamer", Trigger: "apogee", CdA: 0.01}},
			},
		},
		[]MotorSpec{
			{ID: "booster", Designation: "D12", Stage: "booster"},
			{ID: "sustainer", Designation: "C6", Stage: "sustainer", Ignition: "burnout", Ref: "booster"},
		},
	),
	"dual-deploy": preset("Dual Deploy",
		[]StageSpec{{
			Name: "airframe", DryMass: 0.60, Length: 1.00, Diameter: 0.054, DragCoefficient: 0.45,
			Recovery: []RecoverySpec{
				{Name: "drogue", Trigger: "apogee", CdA: 0.05},
				{Name: "main", Trigger: "altitude", Altitude: 150, CdA: 0.5},
			},
		}},
		[]MotorSpec{{ID: "main", Designation: "G40", Stage: "airframe"}},
	),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *File {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return p.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
