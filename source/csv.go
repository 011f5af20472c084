package source

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/hobu-inc/ept/point"
)

// CSVOpener reads "x,y,z[,attr]" rows; the optional fourth field's text is
// taken as the attribute bytes as-is. It exists as a default,
// dependency-free reference source for tests and for inputs that are
// already plain text; real LAS/LAZ parsing is a separate collaborator this
// package never implements.
type CSVOpener struct{}

func (CSVOpener) Open(_ context.Context, path string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	s := &csvStream{f: f}
	bounds := point.Bounds{}
	first := true
	for i, row := range rows {
		if len(row) < 3 {
			return nil, errors.Errorf("%s: row %d has fewer than 3 fields", path, i)
		}
		p, err := parsePoint(row)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: row %d", path, i)
		}
		var attr []byte
		if len(row) > 3 {
			attr = []byte(row[3])
		}
		s.records = append(s.records, Record{Point: p, Attr: attr})

		if first {
			bounds = point.NewBounds(p, p)
			first = false
		} else {
			bounds = growBounds(bounds, p)
		}
	}
	s.bounds = bounds
	return s, nil
}

func parsePoint(row []string) (point.Point, error) {
	vals := make([]float64, 3)
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(row[i], 64)
		if err != nil {
			return point.Point{}, errors.Wrapf(err, "field %d", i)
		}
		vals[i] = v
	}
	return point.Point{vals[0], vals[1], vals[2]}, nil
}

func growBounds(b point.Bounds, p point.Point) point.Bounds {
	return point.NewBounds(
		point.Point{minF(b.Min.X, p.X), minF(b.Min.Y, p.Y), minF(b.Min.Z, p.Z)},
		point.Point{maxF(b.Max.X, p.X), maxF(b.Max.Y, p.Y), maxF(b.Max.Z, p.Z)},
	)
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

type csvStream struct {
	f       *os.File
	records []Record
	pos     int
	bounds  point.Bounds
}

func (s *csvStream) Next(_ context.Context) (Record, bool, error) {
	if s.pos >= len(s.records) {
		return Record{}, false, nil
	}
	r := s.records[s.pos]
	s.pos++
	return r, true, nil
}

func (s *csvStream) Bounds() point.Bounds { return s.bounds }
func (s *csvStream) PointCount() uint64   { return uint64(len(s.records)) }

func (s *csvStream) Close() error {
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}
