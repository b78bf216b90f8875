// Package writer defines the simulation output interface and a
// row-oriented CSV implementation. Grounded on the reference engine's
// simcore/io/writer.hpp and csv_writer.cpp, adapted to Go's encoding/csv
// in the style of san-kum/dynsim's internal/storage.Store.
package writer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/minerva-sim/minerva/world"
)

// Writer writes one frame of simulation state. Finalize is called once
// after the last frame; implementations for which it is meaningless may
// leave it a no-op.
type Writer interface {
	Write(w *world.World, frame int) error
	Finalize() error
}

// ErrInvalidOutputDir is returned by NewCSVWriter when OutputDir is empty.
var ErrInvalidOutputDir = errors.New("writer: output_dir must not be empty")

// CSVConfig holds the tunables for CSVWriter.
type CSVConfig struct {
	OutputDir        string
	Prefix           string // default "sim"
	WriteRigidBodies bool
	WriteParticles   bool
}

// DefaultCSVConfig returns a config that writes both rigid bodies and
// particles with prefix "sim".
func DefaultCSVConfig(outputDir string) CSVConfig {
	return CSVConfig{
		OutputDir:        outputDir,
		Prefix:           "sim",
		WriteRigidBodies: true,
		WriteParticles:   true,
	}
}

// CSVWriter writes one row per body (or particle) per frame into
// append-only, per-frame CSV files under OutputDir, matching the field
// layout of the reference engine's CSVWriter exactly.
type CSVWriter struct {
	cfg         CSVConfig
	initialized bool
}

// NewCSVWriter validates cfg and returns a ready CSVWriter. The output
// directory is created lazily on the first Write call, not here.
func NewCSVWriter(cfg CSVConfig) (*CSVWriter, error) {
	if cfg.OutputDir == "" {
		return nil, ErrInvalidOutputDir
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "sim"
	}
	return &CSVWriter{cfg: cfg}, nil
}

// Write emits this frame's rigid-body and/or particle snapshot, per
// CSVConfig's flags.
func (c *CSVWriter) Write(w *world.World, frame int) error {
	if !c.initialized {
		if err := os.MkdirAll(c.cfg.OutputDir, 0755); err != nil {
			return fmt.Errorf("writer: creating output dir %q: %w", c.cfg.OutputDir, err)
		}
		c.initialized = true
	}

	if c.cfg.WriteRigidBodies {
		if err := c.writeRigidBodies(w, frame); err != nil {
			return err
		}
	}
	if c.cfg.WriteParticles {
		if err := c.writeParticles(w, frame); err != nil {
			return err
		}
	}
	return nil
}

// Finalize is a no-op: the CSV writer has nothing to flush across frames
// beyond what each per-frame file already closes.
func (c *CSVWriter) Finalize() error { return nil }

func (c *CSVWriter) writeRigidBodies(w *world.World, frame int) error {
	path := filepath.Join(c.cfg.OutputDir, fmt.Sprintf("%s_rb_%06d.csv", c.cfg.Prefix, frame))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writer: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if err := cw.Write([]string{"id", "x", "y", "z", "vx", "vy", "vz", "mass", "radius", "kinematic"}); err != nil {
		return err
	}
	for i, b := range w.Bodies {
		kinematic := "0"
		if b.Kinematic {
			kinematic = "1"
		}
		row := []string{
			strconv.Itoa(i),
			ff(b.Position.X()), ff(b.Position.Y()), ff(b.Position.Z()),
			ff(b.Velocity.X()), ff(b.Velocity.Y()), ff(b.Velocity.Z()),
			ff(b.Mass), ff(b.Radius), kinematic,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}

func (c *CSVWriter) writeParticles(w *world.World, frame int) error {
	path := filepath.Join(c.cfg.OutputDir, fmt.Sprintf("%s_md_%06d.csv", c.cfg.Prefix, frame))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writer: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if err := cw.Write([]string{"id", "x", "y", "z", "vx", "vy", "vz", "mass"}); err != nil {
		return err
	}
	if w.Particles == nil {
		return cw.Error()
	}
	for i, p := range w.Particles.Particles {
		row := []string{
			strconv.Itoa(i),
			ff(p.Position.X()), ff(p.Position.Y()), ff(p.Position.Z()),
			ff(p.Velocity.X()), ff(p.Velocity.Y()), ff(p.Velocity.Z()),
			ff(p.Mass),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}

func ff(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
