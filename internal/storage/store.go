// Package storage persists simulation runs: a metadata document per run,
// per-frame particle snapshots, and the per-frame metric series. Runs live in
// one directory each under a common base so they can be listed and reloaded.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/mawry/graupel/internal/metrics"
	"github.com/mawry/graupel/internal/particle"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Scenario   string             `json:"scenario"`
	Timestamp  time.Time          `json:"timestamp"`
	Frames     int                `json:"frames"`
	Particles  int                `json:"particles"`
	Resolution [3]int             `json:"resolution"`
	BaseDt     float64            `json:"base_dt"`
	FrameDt    float64            `json:"frame_dt"`
	Async      bool               `json:"async"`
	APIC       bool               `json:"apic"`
	Metrics    map[string]float64 `json:"metrics"`
}

// ParticleRecord is one particle in one frame of the snapshot file.
type ParticleRecord struct {
	Frame int     `csv:"frame"`
	Time  float64 `csv:"time"`
	X     float64 `csv:"x"`
	Y     float64 `csv:"y"`
	Z     float64 `csv:"z"`
	VX    float64 `csv:"vx"`
	VY    float64 `csv:"vy"`
	VZ    float64 `csv:"vz"`
	State string  `csv:"state"`
}

// Run is an open run being written. Close it through Finalize.
type Run struct {
	ID  string
	dir string

	framesFile    *os.File
	framesHeader  bool
	metricsFile   *os.File
	metricsCSV    *csv.Writer
	metricsHeader bool
}

// CreateRun opens a new run directory named after the scenario and the
// current time.
func (s *Store) CreateRun(scenario string) (*Run, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	id := fmt.Sprintf("%s_%d", scenario, time.Now().UnixNano())
	dir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	frames, err := os.Create(filepath.Join(dir, "frames.csv"))
	if err != nil {
		return nil, err
	}
	metricsFile, err := os.Create(filepath.Join(dir, "metrics.csv"))
	if err != nil {
		frames.Close()
		return nil, err
	}
	return &Run{
		ID:          id,
		dir:         dir,
		framesFile:  frames,
		metricsFile: metricsFile,
		metricsCSV:  csv.NewWriter(metricsFile),
	}, nil
}

// WriteFrame appends a particle snapshot for one frame.
func (r *Run) WriteFrame(frame int, t float64, ps []particle.Particle) error {
	records := make([]ParticleRecord, len(ps))
	for i := range ps {
		records[i] = ParticleRecord{
			Frame: frame,
			Time:  t,
			X:     ps[i].Pos.X,
			Y:     ps[i].Pos.Y,
			Z:     ps[i].Pos.Z,
			VX:    ps[i].Vel.X,
			VY:    ps[i].Vel.Y,
			VZ:    ps[i].Vel.Z,
			State: ps[i].State.String(),
		}
	}
	if !r.framesHeader {
		r.framesHeader = true
		return gocsv.Marshal(records, r.framesFile)
	}
	return gocsv.MarshalWithoutHeaders(records, r.framesFile)
}

// WriteMetrics appends one row of metric values. The column set is fixed by
// the first call.
func (r *Run) WriteMetrics(frame int, t float64, ms []metrics.Metric) error {
	if !r.metricsHeader {
		header := []string{"frame", "time"}
		for _, m := range ms {
			header = append(header, m.Name())
		}
		if err := r.metricsCSV.Write(header); err != nil {
			return err
		}
		r.metricsHeader = true
	}
	row := []string{
		strconv.Itoa(frame),
		strconv.FormatFloat(t, 'g', -1, 64),
	}
	for _, m := range ms {
		row = append(row, strconv.FormatFloat(m.Value(), 'g', -1, 64))
	}
	if err := r.metricsCSV.Write(row); err != nil {
		return err
	}
	r.metricsCSV.Flush()
	return r.metricsCSV.Error()
}

// Finalize writes the metadata document and closes the run's files.
func (r *Run) Finalize(meta RunMetadata) error {
	meta.ID = r.ID
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}

	r.metricsCSV.Flush()
	if err := r.metricsCSV.Error(); err != nil {
		return err
	}
	if err := r.framesFile.Close(); err != nil {
		return err
	}
	if err := r.metricsFile.Close(); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(r.dir, "metadata.json"))
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// List returns the metadata of every completed run, skipping directories
// without a readable metadata document.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

// Load reads one run's metadata.
func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadFrames reads back the particle snapshots of a run.
func (s *Store) LoadFrames(runID string) ([]ParticleRecord, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "frames.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []ParticleRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return nil, err
	}
	return records, nil
}
