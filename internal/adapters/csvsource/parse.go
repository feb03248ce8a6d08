package csvsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/samirrijal/streetrisk/internal/core/domain"
)

// Street-view analysis columns. The normalized score wins over the overall one.
const (
	colLatitude   = "latitude"
	colLongitude  = "longitude"
	colNormalized = "normalized_discomfort"
	colOverall    = "overall_discomfort"
)

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader
}

// ParseStreetView reads a street-view analysis CSV with a header row.
// Rows that are short or do not parse are skipped; a header lacking the
// coordinate or score columns yields no samples.
func ParseStreetView(r io.Reader) ([]domain.PointSample, error) {
	reader := newReader(r)
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cols := indexColumns(header)

	latIdx, okLat := cols[colLatitude]
	lonIdx, okLon := cols[colLongitude]
	scoreIdx, okScore := cols[colNormalized]
	if !okScore {
		scoreIdx, okScore = cols[colOverall]
	}
	if !okLat || !okLon || !okScore {
		return nil, nil
	}

	return readRows(reader, latIdx, lonIdx, scoreIdx, domain.SourceStreetView)
}

// ParseCrime reads a crime CSV: a header row, then latitude, longitude and
// score in the first three columns.
func ParseCrime(r io.Reader) ([]domain.PointSample, error) {
	reader := newReader(r)
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return readRows(reader, 0, 1, 2, domain.SourceCrime)
}

func readRows(reader *csv.Reader, latIdx, lonIdx, scoreIdx int, source domain.SampleSource) ([]domain.PointSample, error) {
	need := max(latIdx, lonIdx, scoreIdx)
	var out []domain.PointSample
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return out, err
		}
		if len(record) <= need {
			continue
		}

		lat, err1 := parseFloat(record[latIdx])
		lon, err2 := parseFloat(record[lonIdx])
		score, err3 := parseFloat(record[scoreIdx])
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		out = append(out, domain.PointSample{
			Location: domain.GeoPoint{Lat: lat, Lon: lon},
			Score:    score,
			Source:   source,
		})
	}
	return out, nil
}

// parseFloat parses a finite number; NaN and infinities are rejected.
func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

// indexColumns maps header names to positions. The first occurrence of a
// name wins.
func indexColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		// Strip BOM from first column
		col = strings.TrimSpace(strings.TrimPrefix(col, "\xef\xbb\xbf"))
		if _, seen := m[col]; !seen {
			m[col] = i
		}
	}
	return m
}
