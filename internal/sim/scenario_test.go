package sim_test

import (
	"context"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/flightsim/internal/flight"
	"github.com/san-kum/flightsim/internal/motor"
	"github.com/san-kum/flightsim/internal/rocket"
	"github.com/san-kum/flightsim/internal/sim"
)

func constant(name string, thrust, burn float64) *motor.Model {
	m, err := motor.ConstantThrust(name, thrust, burn, 0.05, 0.05)
	Expect(err).NotTo(HaveOccurred())
	return m
}

func fly(r *rocket.Rocket, cfg sim.Config) *sim.Result {
	res, err := sim.New(r, cfg).Run(context.Background())
	Expect(err).NotTo(HaveOccurred())
	return res
}

func first(b *flight.Branch, t flight.EventType) flight.Event {
	e, ok := b.FirstEvent(t)
	Expect(ok).To(BeTrue(), "missing %s in %s", t, b.Name())
	return e
}

var _ = Describe("Engine", func() {
	var cfg sim.Config

	BeforeEach(func() {
		cfg = sim.DefaultConfig()
	})

	Describe("recovery", func() {
		It("deploys an altitude-triggered chute on the way down", func() {
			r := rocket.New("dual", []rocket.Stage{{
				Name: "body", DryMass: 0.5, Diameter: 0.04, DragCoefficient: 0.5,
				Recovery: []rocket.RecoveryDevice{
					{Name: "drogue", Trigger: rocket.DeployAtApogee, Delay: 1, CdA: 0.02},
					{Name: "main", Trigger: rocket.DeployAtAltitude, Altitude: 60, CdA: 0.3},
				},
			}}, []motor.Configuration{{ID: "m", Model: constant("E", 30, 1.5)}})

			main := fly(r, cfg).Main()
			apogee := first(main, flight.Apogee)
			Expect(apogee.State.Altitude()).To(BeNumerically(">", 60))

			var deployments []flight.Event
			for _, e := range main.Events() {
				if e.Type == flight.Deployment {
					deployments = append(deployments, e)
				}
			}
			Expect(deployments).To(HaveLen(2))
			Expect(deployments[0].Source).To(Equal("body/drogue"))
			Expect(deployments[0].Time).To(BeNumerically("~", apogee.Time+1, 1e-9))
			Expect(deployments[1].Source).To(Equal("body/main"))
			Expect(deployments[1].State.Altitude()).To(BeNumerically("~", 60, 0.05))
			Expect(deployments[1].State.VerticalVelocity()).To(BeNumerically("<", 0))
		})

		It("deploys on descent speed", func() {
			r := rocket.New("fast", []rocket.Stage{{
				Name: "body", DryMass: 0.5,
				Recovery: []rocket.RecoveryDevice{{Name: "chute", Trigger: rocket.DeployAtVelocity, Velocity: 15, CdA: 0.3}},
			}}, []motor.Configuration{{ID: "m", Model: constant("E", 30, 1.5)}})

			e := first(fly(r, cfg).Main(), flight.Deployment)
			Expect(-e.State.VerticalVelocity()).To(BeNumerically("~", 15, 0.01))
		})
	})

	Describe("ignition triggers", func() {
		It("lights an air-start motor when passing an altitude", func() {
			r := rocket.New("airstart", []rocket.Stage{{Name: "body", DryMass: 0.5}},
				[]motor.Configuration{
					{ID: "main", Model: constant("E", 30, 1)},
					{ID: "air", Model: constant("D", 15, 1), Ignition: motor.IgniteAtAltitude, Altitude: 20, Delay: 0.2},
				})

			main := fly(r, cfg).Main()
			var ignitions []flight.Event
			for _, e := range main.Events() {
				if e.Type == flight.Ignition {
					ignitions = append(ignitions, e)
				}
			}
			Expect(ignitions).To(HaveLen(2))
			Expect(ignitions[1].Source).To(Equal("air"))
			Expect(ignitions[1].State.Altitude()).To(BeNumerically(">", 20))
		})

		It("lights an upper stage at apogee of the lower one", func() {
			r := rocket.New("apogee-sep", []rocket.Stage{
				{Name: "upper", DryMass: 0.3},
				{Name: "lower", DryMass: 0.3, Separation: rocket.Separation{Trigger: rocket.SeparateAtApogee, Delay: 0.5}},
			}, []motor.Configuration{
				{ID: "l", Model: constant("E", 30, 1), Stage: 1},
				{ID: "u", Model: constant("D", 20, 1), Stage: 0, Ignition: motor.IgniteAtSeparation, Ref: "lower"},
			})

			res := fly(r, cfg)
			Expect(res.Branches).To(HaveLen(2))
			upper := res.Branches[0]

			sep := first(upper, flight.StageSeparation)
			Expect(sep.Time).To(BeNumerically("~", first(upper, flight.Apogee).Time+0.5, 1e-9))

			var lit bool
			for _, e := range upper.Events() {
				if e.Type == flight.Ignition && e.Source == "u" {
					lit = true
					Expect(e.Time).To(Equal(sep.Time))
				}
			}
			Expect(lit).To(BeTrue())
			Expect(res.Branches[1].HasEvent(flight.Ignition)).To(BeTrue())
		})
	})

	Describe("launch site", func() {
		It("drifts a tilted launch downrange and keeps it on the rail first", func() {
			cfg.Environment.LaunchAngle = 10 * math.Pi / 180
			cfg.Environment.RailLength = 2
			cfg.Environment.Wind = mgl64.Vec3{3, 0, 0}
			r := rocket.New("tilted", []rocket.Stage{{Name: "body", DryMass: 0.5, Diameter: 0.04, DragCoefficient: 0.4}},
				[]motor.Configuration{{ID: "m", Model: constant("E", 30, 1.5)}})

			main := fly(r, cfg).Main()
			cleared := first(main, flight.LaunchRodClearance)
			axis := cfg.Environment.RailAxis()
			along := cleared.State.Position.Dot(axis)
			Expect(along).To(BeNumerically("~", 2, 1e-3))
			Expect(cleared.State.Position.Sub(axis.Mul(along)).Len()).To(BeNumerically("<", 1e-9))

			land := first(main, flight.GroundHit)
			Expect(land.State.Position.X()).To(BeNumerically(">", 5))
			Expect(math.Abs(land.State.Position.Y())).To(BeNumerically("<", 1e-6))
		})
	})

	Describe("deterministic randomness", func() {
		It("seeds each branch from the run seed", func() {
			r := rocket.New("seeded", []rocket.Stage{{Name: "body", DryMass: 0.5}},
				[]motor.Configuration{{ID: "m", Model: constant("E", 30, 1)}})

			draw := func(seed int64) float64 {
				cfg.Seed = seed
				e := sim.New(r, cfg)
				e.AddListener(sim.Listener{
					Name: "noise",
					PostStep: func(st *sim.Status) error {
						if _, ok := st.Get("noise"); !ok {
							st.Set("noise", st.Rand.Float64())
						}
						return nil
					},
				})
				res, err := e.Run(context.Background())
				Expect(err).NotTo(HaveOccurred())
				v, ok := res.Float(0, "noise")
				Expect(ok).To(BeTrue())
				return v
			}

			Expect(draw(1)).To(Equal(draw(1)))
			Expect(draw(1)).NotTo(Equal(draw(2)))
		})
	})
})
