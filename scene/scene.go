// Package scene loads a YAML scene description into a runnable world,
// mirroring the config-file pattern san-kum/dynsim's internal/config
// package uses for its simulation presets. The core engine packages
// (mathx, state, grid, world, rigidsys, mdsys, neighbor) never parse
// configuration themselves; only the CLI layer, through this package,
// reads YAML.
package scene

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"

	"github.com/minerva-sim/minerva/mathx"
	"github.com/minerva-sim/minerva/mdsys"
	"github.com/minerva-sim/minerva/rigidsys"
	"github.com/minerva-sim/minerva/state"
	"github.com/minerva-sim/minerva/world"
)

// Vec3 is the YAML-friendly [x, y, z] triple used throughout a scene file.
type Vec3 [3]float64

func (v Vec3) toMathx() mathx.Vec3 { return mathx.New(v[0], v[1], v[2]) }

// RigidBodyDesc describes one sphere in the scene file.
type RigidBodyDesc struct {
	Position  Vec3    `yaml:"position"`
	Velocity  Vec3    `yaml:"velocity"`
	Mass      float64 `yaml:"mass"`
	Radius    float64 `yaml:"radius"`
	Kinematic bool    `yaml:"kinematic"`
}

// ParticleDesc describes one MD particle in the scene file.
type ParticleDesc struct {
	Position Vec3    `yaml:"position"`
	Velocity Vec3    `yaml:"velocity"`
	Mass     float64 `yaml:"mass"`
}

// RigidBodySystemDesc configures the rigid-body system, mirroring
// rigidsys.Config field-for-field.
type RigidBodySystemDesc struct {
	Enabled         bool    `yaml:"enabled"`
	Substeps        int     `yaml:"substeps"`
	Restitution     float64 `yaml:"restitution"`
	GroundY         float64 `yaml:"ground_y"`
	PairIterations  int     `yaml:"pair_iterations"`
	PenetrationSlop float64 `yaml:"penetration_slop"`
	ContactOffset   float64 `yaml:"contact_offset"`
	Baumgarte       float64 `yaml:"baumgarte"`
}

// MDSystemDesc configures the molecular-dynamics system, mirroring
// mdsys.Config field-for-field.
type MDSystemDesc struct {
	Enabled            bool    `yaml:"enabled"`
	Substeps           int     `yaml:"substeps"`
	Epsilon            float64 `yaml:"epsilon"`
	Sigma              float64 `yaml:"sigma"`
	RcutSigma          float64 `yaml:"rcut_sigma"`
	NVT                bool    `yaml:"nvt"`
	Temp               float64 `yaml:"temp"`
	TauThermo          float64 `yaml:"tau_thermo"`
	NoNeighborList     bool    `yaml:"no_neighbor_list"`
	NlistSkin          float64 `yaml:"nlist_skin"`
	NlistCheckInterval int     `yaml:"nlist_check_interval"`
	Parallel           bool    `yaml:"parallel"`
	Workers            int     `yaml:"workers"`
}

// OverlapPrepassDesc configures the optional scene overlap pre-pass.
type OverlapPrepassDesc struct {
	Enabled       bool `yaml:"enabled"`
	MaxIterations int  `yaml:"max_iterations"`
}

// Scene is the top-level YAML document shape accepted by `minervactl run`
// and `minervactl inspect`.
type Scene struct {
	// Gravity is a pointer so an omitted field and an explicit
	// `gravity: [0, 0, 0]` are distinguishable: the former falls back to
	// world.DefaultGravity in Build, the latter is honored verbatim
	// (needed for zero-gravity MD-only scenes and head-on collision tests).
	Gravity         *Vec3               `yaml:"gravity"`
	RigidBody       []RigidBodyDesc     `yaml:"rigid_bodies"`
	Particles       []ParticleDesc      `yaml:"particles"`
	RigidBodySystem RigidBodySystemDesc `yaml:"rigid_body_system"`
	MDSystem        MDSystemDesc        `yaml:"md_system"`
	OverlapPrepass  OverlapPrepassDesc  `yaml:"overlap_prepass"`
}

// Load reads and parses a scene file from path.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scene.Load: %w", err)
	}
	var sc Scene
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("scene.Load: parsing %s: %w", path, err)
	}
	return &sc, nil
}

// Build constructs a world.World plus the registered systems described by
// the scene, using logger for every system's diagnostic output.
func (sc *Scene) Build(logger logr.Logger) (*world.World, error) {
	w := world.New()
	if sc.Gravity != nil {
		w.Gravity = sc.Gravity.toMathx()
	}

	for _, rb := range sc.RigidBody {
		mass := rb.Mass
		if mass == 0 {
			mass = state.DefaultMass
		}
		radius := rb.Radius
		if radius == 0 {
			radius = state.DefaultRadius
		}
		w.AddBody(&state.RigidBody{
			Position:  rb.Position.toMathx(),
			Velocity:  rb.Velocity.toMathx(),
			Mass:      mass,
			Radius:    radius,
			Kinematic: rb.Kinematic,
		})
	}

	w.Particles = state.NewParticleSet(len(sc.Particles))
	for _, p := range sc.Particles {
		mass := p.Mass
		if mass == 0 {
			mass = 1
		}
		w.Particles.Add(state.Particle{
			Position: p.Position.toMathx(),
			Velocity: p.Velocity.toMathx(),
			Mass:     mass,
		})
	}

	if sc.RigidBodySystem.Enabled {
		cfg := rigidsys.DefaultConfig()
		cfg.Logger = logger
		if sc.RigidBodySystem.Restitution != 0 {
			cfg.Restitution = sc.RigidBodySystem.Restitution
		}
		cfg.GroundY = sc.RigidBodySystem.GroundY
		if sc.RigidBodySystem.PairIterations != 0 {
			cfg.PairIterations = sc.RigidBodySystem.PairIterations
		}
		if sc.RigidBodySystem.PenetrationSlop != 0 {
			cfg.PenetrationSlop = sc.RigidBodySystem.PenetrationSlop
		}
		if sc.RigidBodySystem.ContactOffset != 0 {
			cfg.ContactOffset = sc.RigidBodySystem.ContactOffset
		}
		if sc.RigidBodySystem.Baumgarte != 0 {
			cfg.Baumgarte = sc.RigidBodySystem.Baumgarte
		}
		sys, err := rigidsys.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("scene.Build: rigid_body_system: %w", err)
		}
		substeps := sc.RigidBodySystem.Substeps
		if substeps == 0 {
			substeps = 1
		}
		w.Register(sys, substeps)
	}

	if sc.MDSystem.Enabled {
		cfg := mdsys.DefaultConfig()
		cfg.Logger = logger
		if sc.MDSystem.Epsilon != 0 {
			cfg.Epsilon = sc.MDSystem.Epsilon
		}
		if sc.MDSystem.Sigma != 0 {
			cfg.Sigma = sc.MDSystem.Sigma
		}
		if sc.MDSystem.RcutSigma != 0 {
			cfg.RcutSigma = sc.MDSystem.RcutSigma
		}
		cfg.NVT = sc.MDSystem.NVT
		cfg.Temp = sc.MDSystem.Temp
		if sc.MDSystem.TauThermo != 0 {
			cfg.TauThermo = sc.MDSystem.TauThermo
		}
		cfg.UseNeighborList = !sc.MDSystem.NoNeighborList
		if sc.MDSystem.NlistSkin != 0 {
			cfg.NlistSkin = sc.MDSystem.NlistSkin
		}
		if sc.MDSystem.NlistCheckInterval != 0 {
			cfg.NlistCheckInterval = sc.MDSystem.NlistCheckInterval
		}
		cfg.Parallel = sc.MDSystem.Parallel
		cfg.Workers = sc.MDSystem.Workers
		sys, err := mdsys.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("scene.Build: md_system: %w", err)
		}
		substeps := sc.MDSystem.Substeps
		if substeps == 0 {
			substeps = 1
		}
		w.Register(sys, substeps)
	}

	return w, nil
}
