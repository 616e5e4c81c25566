package storage

import (
	"testing"

	"github.com/mawry/graupel/internal/math3"
	"github.com/mawry/graupel/internal/metrics"
	"github.com/mawry/graupel/internal/particle"
)

func sampleParticles() []particle.Particle {
	return []particle.Particle{
		particle.New(particle.ElasticPlastic, math3.V(1, 2, 3), math3.V(0, -1, 0), 0),
		particle.New(particle.GranularSand, math3.V(4, 5, 6), math3.Vec3{}, 0),
	}
}

func TestRunRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	run, err := store.CreateRun("snow")
	if err != nil {
		t.Fatal(err)
	}

	ps := sampleParticles()
	for frame := 0; frame < 3; frame++ {
		if err := run.WriteFrame(frame, float64(frame)*0.01, ps); err != nil {
			t.Fatal(err)
		}
	}
	err = run.Finalize(RunMetadata{
		Scenario:  "snow",
		Frames:    3,
		Particles: len(ps),
		BaseDt:    1e-6,
		FrameDt:   0.01,
		APIC:      true,
		Metrics:   map[string]float64{"kinetic_energy": 0.5},
	})
	if err != nil {
		t.Fatal(err)
	}

	meta, err := store.Load(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Scenario != "snow" || meta.Frames != 3 || meta.Particles != 2 {
		t.Errorf("metadata = %+v", meta)
	}

	records, err := store.LoadFrames(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 6 {
		t.Fatalf("got %d records, want 6", len(records))
	}
	if records[0].X != 1 || records[0].VY != -1 || records[0].State != "buffer" {
		t.Errorf("first record = %+v", records[0])
	}
	if records[5].Frame != 2 {
		t.Errorf("last record frame = %d, want 2", records[5].Frame)
	}
}

func TestWriteMetricsProducesRows(t *testing.T) {
	store := New(t.TempDir())
	run, err := store.CreateRun("sand")
	if err != nil {
		t.Fatal(err)
	}
	ms := metrics.Standard()
	for frame := 0; frame < 2; frame++ {
		if err := run.WriteMetrics(frame, float64(frame)*0.01, ms); err != nil {
			t.Fatal(err)
		}
	}
	if err := run.Finalize(RunMetadata{Scenario: "sand"}); err != nil {
		t.Fatal(err)
	}
	meta, err := store.Load(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.ID != run.ID {
		t.Errorf("metadata id = %q, want %q", meta.ID, run.ID)
	}
}

func TestListSkipsUnfinalizedRuns(t *testing.T) {
	store := New(t.TempDir())

	run, err := store.CreateRun("snow")
	if err != nil {
		t.Fatal(err)
	}
	if err := run.Finalize(RunMetadata{Scenario: "snow"}); err != nil {
		t.Fatal(err)
	}
	// A second run is left open: no metadata yet.
	if _, err := store.CreateRun("snow"); err != nil {
		t.Fatal(err)
	}

	runs, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("listed %d runs, want 1", len(runs))
	}
	if runs[0].ID != run.ID {
		t.Errorf("listed run %q, want %q", runs[0].ID, run.ID)
	}
}

func TestListEmptyBaseDir(t *testing.T) {
	store := New(t.TempDir() + "/missing")
	runs, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("listed %d runs from missing dir", len(runs))
	}
}
