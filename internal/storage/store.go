// Package storage persists field maps and polarisation profiles, one
// directory per map: metadata.json, field.csv and, once a beam has been run
// through it, polarisation.csv.
package storage

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/neutronsim/internal/beam"
	"github.com/san-kum/neutronsim/internal/coils"
	"github.com/san-kum/neutronsim/internal/field"
	"github.com/san-kum/neutronsim/internal/sim"
)

const (
	metadataFile     = "metadata.json"
	fieldFile        = "field.csv"
	polarisationFile = "polarisation.csv"
)

var (
	fieldHeader        = []string{"i", "j", "k", "x", "y", "z", "bx", "by", "bz"}
	polarisationHeader = []string{"x", "count", "px", "py", "pz"}
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return fmt.Errorf("%w: %v", sim.ErrStorageFailure, err)
	}
	return nil
}

type ElementSummary struct {
	Name     string     `json:"name"`
	Kind     string     `json:"kind"`
	Position [3]float64 `json:"position"`
	Current  float64    `json:"current"`
}

type FieldMetadata struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Grid      field.GridConfig `json:"grid"`
	Points    int              `json:"points"`
	Elements  []ElementSummary `json:"elements"`
}

func summarize(elements []coils.Element) []ElementSummary {
	out := make([]ElementSummary, len(elements))
	for i, e := range elements {
		p := e.Position()
		out[i] = ElementSummary{
			Name:     e.Name(),
			Kind:     e.Kind(),
			Position: [3]float64{p.X, p.Y, p.Z},
			Current:  e.Current(),
		}
	}
	return out
}

func storageErr(path string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", sim.ErrStorageFailure, path, fmt.Sprintf(format, args...))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// SaveField writes c under id, or under a timestamped id when id is empty.
// An existing map with the same id is overwritten.
func (s *Store) SaveField(id string, c *field.Cache, elements []coils.Element) (string, error) {
	if id == "" {
		id = fmt.Sprintf("field_%d", time.Now().Unix())
	}
	dir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", storageErr(dir, "%v", err)
	}

	meta := FieldMetadata{
		ID:        id,
		Timestamp: time.Now(),
		Grid:      c.Grid().Config(),
		Points:    c.Len(),
		Elements:  summarize(elements),
	}
	if err := writeJSON(filepath.Join(dir, metadataFile), meta); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fieldFile)
	err := writeCSV(path, fieldHeader, func(w *csv.Writer) error {
		for _, idx := range c.Keys() {
			p, b := c.Point(idx), c.At(idx)
			row := []string{
				strconv.Itoa(idx.I), strconv.Itoa(idx.J), strconv.Itoa(idx.K),
				formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z),
				formatFloat(b.X), formatFloat(b.Y), formatFloat(b.Z),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// LoadField reads the map stored under id. Every grid point must appear
// exactly once with coordinates matching the stored grid.
func (s *Store) LoadField(id string) (*field.Cache, *FieldMetadata, error) {
	meta, err := s.Load(id)
	if err != nil {
		return nil, nil, err
	}
	g, err := field.NewGrid(meta.Grid)
	if err != nil {
		return nil, nil, storageErr(filepath.Join(s.baseDir, id, metadataFile), "%v", err)
	}

	path := filepath.Join(s.baseDir, id, fieldFile)
	records, err := readCSV(path, fieldHeader)
	if err != nil {
		return nil, nil, err
	}

	c := field.NewCache(g)
	seen := make([]bool, g.Len())
	for n, rec := range records {
		row := n + 2
		var ints [3]int
		for i := range ints {
			if ints[i], err = strconv.Atoi(rec[i]); err != nil {
				return nil, nil, storageErr(path, "row %d: bad index %q", row, rec[i])
			}
		}
		var vals [6]float64
		for i := range vals {
			if vals[i], err = strconv.ParseFloat(rec[3+i], 64); err != nil {
				return nil, nil, storageErr(path, "row %d: bad value %q", row, rec[3+i])
			}
		}

		idx := field.Index{I: ints[0], J: ints[1], K: ints[2]}
		if !g.Valid(idx) {
			return nil, nil, storageErr(path, "row %d: index %v outside the grid", row, idx)
		}
		p := r3.Vec{X: vals[0], Y: vals[1], Z: vals[2]}
		if p != g.Point(idx) {
			return nil, nil, storageErr(path, "row %d: coordinates %v do not match grid point %v", row, p, g.Point(idx))
		}
		flat := g.Flat(idx)
		if seen[flat] {
			return nil, nil, storageErr(path, "row %d: duplicate point %v", row, idx)
		}
		seen[flat] = true
		c.Set(idx, r3.Vec{X: vals[3], Y: vals[4], Z: vals[5]})
	}

	if len(records) != g.Len() {
		return nil, nil, storageErr(path, "expected %d points, found %d", g.Len(), len(records))
	}
	return c, meta, nil
}

// SavePolarisation stores a polarisation profile next to the field map.
func (s *Store) SavePolarisation(id string, cells []beam.CellPolarisation) error {
	dir := filepath.Join(s.baseDir, id)
	if _, err := os.Stat(dir); err != nil {
		return storageErr(dir, "%v", err)
	}
	return writeCSV(filepath.Join(dir, polarisationFile), polarisationHeader, func(w *csv.Writer) error {
		for _, c := range cells {
			row := []string{
				formatFloat(c.X), strconv.Itoa(c.Count),
				formatFloat(c.Polarisation.X), formatFloat(c.Polarisation.Y), formatFloat(c.Polarisation.Z),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) LoadPolarisation(id string) ([]beam.CellPolarisation, error) {
	path := filepath.Join(s.baseDir, id, polarisationFile)
	records, err := readCSV(path, polarisationHeader)
	if err != nil {
		return nil, err
	}

	cells := make([]beam.CellPolarisation, 0, len(records))
	for n, rec := range records {
		var vals [4]float64
		for i, col := range []int{0, 2, 3, 4} {
			if vals[i], err = strconv.ParseFloat(rec[col], 64); err != nil {
				return nil, storageErr(path, "row %d: bad value %q", n+2, rec[col])
			}
		}
		count, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, storageErr(path, "row %d: bad count %q", n+2, rec[1])
		}
		cells = append(cells, beam.CellPolarisation{
			X:            vals[0],
			Count:        count,
			Polarisation: r3.Vec{X: vals[1], Y: vals[2], Z: vals[3]},
		})
	}
	return cells, nil
}

// HasPolarisation reports whether a profile was stored for id.
func (s *Store) HasPolarisation(id string) bool {
	_, err := os.Stat(filepath.Join(s.baseDir, id, polarisationFile))
	return err == nil
}

// List returns the metadata of every stored map, newest first. Directories
// without readable metadata are skipped.
func (s *Store) List() ([]FieldMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []FieldMetadata{}, nil
		}
		return nil, fmt.Errorf("%w: %v", sim.ErrStorageFailure, err)
	}

	maps := make([]FieldMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		maps = append(maps, *meta)
	}

	sort.Slice(maps, func(i, j int) bool { return maps[i].Timestamp.After(maps[j].Timestamp) })
	return maps, nil
}

func (s *Store) Load(id string) (*FieldMetadata, error) {
	path := filepath.Join(s.baseDir, id, metadataFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, storageErr(path, "%v", err)
	}

	var meta FieldMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, storageErr(path, "%v", err)
	}
	return &meta, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return storageErr(path, "%v", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return storageErr(path, "%v", err)
	}
	return nil
}

func writeCSV(path string, header []string, rows func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return storageErr(path, "%v", err)
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	w := csv.NewWriter(buf)
	if err := w.Write(header); err != nil {
		return storageErr(path, "%v", err)
	}
	if err := rows(w); err != nil {
		return storageErr(path, "%v", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return storageErr(path, "%v", err)
	}
	if err := buf.Flush(); err != nil {
		return storageErr(path, "%v", err)
	}
	return nil
}

// readCSV checks the header and returns the data rows.
func readCSV(path string, header []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, storageErr(path, "%v", err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = len(header)

	got, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, storageErr(path, "empty file")
	}
	if err != nil {
		return nil, storageErr(path, "header: %v", err)
	}
	for i := range header {
		if got[i] != header[i] {
			return nil, storageErr(path, "unexpected header %v", got)
		}
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, storageErr(path, "%v", err)
	}
	return records, nil
}
