package scene

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"

	"github.com/minerva-sim/minerva/mathx"
	"github.com/minerva-sim/minerva/world"
)

const sampleYAML = `
gravity: [0, -9.81, 0]
rigid_bodies:
  - position: [0, 5, 0]
    velocity: [0, 0, 0]
    mass: 1
    radius: 0.5
  - position: [0, 0.5, 0]
    kinematic: true
particles:
  - position: [0, 0, 0]
    mass: 1
  - position: [1, 0, 0]
    mass: 1
rigid_body_system:
  enabled: true
  substeps: 2
  restitution: 0.5
md_system:
  enabled: true
  substeps: 1
  epsilon: 1
  sigma: 1
overlap_prepass:
  enabled: true
  max_iterations: 50
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadParsesAllSections(t *testing.T) {
	sc, err := Load(writeSample(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sc.RigidBody) != 2 {
		t.Fatalf("rigid bodies = %d, want 2", len(sc.RigidBody))
	}
	if len(sc.Particles) != 2 {
		t.Fatalf("particles = %d, want 2", len(sc.Particles))
	}
	if !sc.RigidBodySystem.Enabled || sc.RigidBodySystem.Substeps != 2 {
		t.Errorf("rigid_body_system = %+v", sc.RigidBodySystem)
	}
	if !sc.MDSystem.Enabled {
		t.Errorf("md_system.enabled = false, want true")
	}
	if !sc.OverlapPrepass.Enabled || sc.OverlapPrepass.MaxIterations != 50 {
		t.Errorf("overlap_prepass = %+v", sc.OverlapPrepass)
	}
}

func TestLoadDistinguishesOmittedFromExplicitZeroGravity(t *testing.T) {
	omitted := writeYAML(t, "rigid_bodies: []\n")
	sc, err := Load(omitted)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sc.Gravity != nil {
		t.Errorf("gravity = %v, want nil for an omitted field", sc.Gravity)
	}

	explicit := writeYAML(t, "gravity: [0, 0, 0]\nrigid_bodies: []\n")
	sc, err = Load(explicit)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sc.Gravity == nil || *sc.Gravity != (Vec3{0, 0, 0}) {
		t.Errorf("gravity = %v, want &Vec3{0,0,0}", sc.Gravity)
	}
}

func writeYAML(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestBuildRegistersEnabledSystemsOnly(t *testing.T) {
	sc, err := Load(writeSample(t))
	if err != nil {
		t.Fatal(err)
	}
	w, err := sc.Build(logr.Discard())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(w.Bodies) != 2 {
		t.Fatalf("bodies = %d, want 2", len(w.Bodies))
	}
	if w.Particles.Len() != 2 {
		t.Fatalf("particles = %d, want 2", w.Particles.Len())
	}
	if got := len(w.Scheduler.Systems()); got != 2 {
		t.Fatalf("registered systems = %d, want 2 (rigid body + md)", got)
	}
	if !w.Bodies[1].Kinematic {
		t.Errorf("second body should be kinematic")
	}
}

func TestBuildSkipsDisabledSystems(t *testing.T) {
	sc := &Scene{}
	w, err := sc.Build(logr.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if got := len(w.Scheduler.Systems()); got != 0 {
		t.Fatalf("registered systems = %d, want 0", got)
	}
}

func TestBuildWithoutGravityFallsBackToDefault(t *testing.T) {
	sc := &Scene{}
	w, err := sc.Build(logr.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if w.Gravity != world.DefaultGravity {
		t.Errorf("gravity = %v, want default %v", w.Gravity, world.DefaultGravity)
	}
}

func TestBuildHonorsExplicitZeroGravity(t *testing.T) {
	sc := &Scene{Gravity: &Vec3{0, 0, 0}}
	w, err := sc.Build(logr.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if w.Gravity != mathx.Zero {
		t.Errorf("gravity = %v, want zero (explicit gravity: [0,0,0] must not fall back to default)", w.Gravity)
	}
}
