// Package spots parses and models the Visium spot layer: the tissue_positions
// CSV emitted by Space Ranger and the scalefactors needed to size spots in
// full-resolution pixel space.
package spots

import (
	"encoding/csv"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Spot is one capture spot on the Visium slide.
type Spot struct {
	Barcode         string `json:"barcode"`
	InTissue        bool   `json:"in_tissue"`
	ArrayRow        int    `json:"array_row"`
	ArrayCol        int    `json:"array_col"`
	PxlRowInFullres int    `json:"pxl_row_in_fullres"`
	PxlColInFullres int    `json:"pxl_col_in_fullres"`
}

// Center returns the spot center in full-resolution image coordinates (x, y).
func (s Spot) Center() image.Point {
	return image.Pt(s.PxlColInFullres, s.PxlRowInFullres)
}

// Bounds returns the bounding box of the spot in the full-resolution image
// for the given diameter in pixels.
func (s Spot) Bounds(diameter float64) image.Rectangle {
	r := diameter / 2
	return image.Rect(
		int(float64(s.PxlColInFullres)-r),
		int(float64(s.PxlRowInFullres)-r),
		int(float64(s.PxlColInFullres)+r),
		int(float64(s.PxlRowInFullres)+r),
	)
}

// Table is the full spot layer of one sample.
type Table []Spot

// InTissue returns the number of spots under tissue.
func (t Table) InTissue() int {
	n := 0
	for _, s := range t {
		if s.InTissue {
			n++
		}
	}
	return n
}

// Column order of the headerless tissue_positions_list.csv generation.
var positionColumns = []string{
	"barcode",
	"in_tissue",
	"array_row",
	"array_col",
	"pxl_row_in_fullres",
	"pxl_col_in_fullres",
}

// ReadTissuePositionsFile opens and parses a tissue positions CSV. Space Ranger
// shipped two generations of this file: tissue_positions_list.csv has no header
// row, tissue_positions.csv has one. The generation is picked by file name.
func ReadTissuePositionsFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	headerless := filepath.Base(path) == "tissue_positions_list.csv"
	t, err := ReadTissuePositions(f, headerless)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// ReadTissuePositions parses tissue position rows from r. When headerless is
// false the first record is a header row and columns are matched by name.
func ReadTissuePositions(r io.Reader, headerless bool) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(positionColumns)

	cols := make(map[string]int, len(positionColumns))
	if headerless {
		for i, name := range positionColumns {
			cols[name] = i
		}
	} else {
		header, err := cr.Read()
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		for i, name := range header {
			cols[name] = i
		}
		for _, name := range positionColumns {
			if _, ok := cols[name]; !ok {
				return nil, fmt.Errorf("missing column %q", name)
			}
		}
	}

	var table Table
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		spot := Spot{Barcode: rec[cols["barcode"]]}
		spot.InTissue = rec[cols["in_tissue"]] == "1"

		ints := []struct {
			name string
			dst  *int
		}{
			{"array_row", &spot.ArrayRow},
			{"array_col", &spot.ArrayCol},
			{"pxl_row_in_fullres", &spot.PxlRowInFullres},
			{"pxl_col_in_fullres", &spot.PxlColInFullres},
		}
		for _, c := range ints {
			v, err := strconv.Atoi(rec[cols[c.name]])
			if err != nil {
				return nil, fmt.Errorf("row %d: parse %s: %w", line, c.name, err)
			}
			*c.dst = v
		}

		table = append(table, spot)
	}
	return table, nil
}

// WriteCSV writes the table in the headed tissue_positions.csv layout.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(positionColumns); err != nil {
		return err
	}
	for _, s := range t {
		inTissue := "0"
		if s.InTissue {
			inTissue = "1"
		}
		rec := []string{
			s.Barcode,
			inTissue,
			strconv.Itoa(s.ArrayRow),
			strconv.Itoa(s.ArrayCol),
			strconv.Itoa(s.PxlRowInFullres),
			strconv.Itoa(s.PxlColInFullres),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
