package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/neutronsim/internal/beam"
	"github.com/san-kum/neutronsim/internal/field"
)

type ExportPoint struct {
	Index field.Index `json:"index"`
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	Z     float64     `json:"z"`
	BX    float64     `json:"bx"`
	BY    float64     `json:"by"`
	BZ    float64     `json:"bz"`
}

type ExportData struct {
	Metadata     FieldMetadata           `json:"metadata"`
	Field        []ExportPoint           `json:"field"`
	Polarisation []beam.CellPolarisation `json:"polarisation,omitempty"`
}

// ExportJSON writes the metadata, the field map and an optional polarisation
// profile as one JSON document.
func ExportJSON(w io.Writer, meta FieldMetadata, c *field.Cache, cells []beam.CellPolarisation) error {
	data := ExportData{
		Metadata:     meta,
		Field:        make([]ExportPoint, 0, c.Len()),
		Polarisation: cells,
	}
	for _, idx := range c.Keys() {
		p, b := c.Point(idx), c.At(idx)
		data.Field = append(data.Field, ExportPoint{
			Index: idx,
			X:     p.X,
			Y:     p.Y,
			Z:     p.Z,
			BX:    b.X,
			BY:    b.Y,
			BZ:    b.Z,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportFile writes the map stored under id, with its polarisation profile
// when one exists.
func (s *Store) ExportFile(w io.Writer, id string) error {
	c, meta, err := s.LoadField(id)
	if err != nil {
		return err
	}
	var cells []beam.CellPolarisation
	if s.HasPolarisation(id) {
		if cells, err = s.LoadPolarisation(id); err != nil {
			return err
		}
	}
	return ExportJSON(w, *meta, c, cells)
}
