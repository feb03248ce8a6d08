package geospatial_test

import (
	"math"
	"testing"

	"github.com/samirrijal/streetrisk/internal/core/domain"
	"github.com/samirrijal/streetrisk/internal/pkg/geospatial"
)

func TestPointToPolyline_OnSegment(t *testing.T) {
	line := []domain.GeoPoint{{Lat: 47.60, Lon: -122.33}, {Lat: 47.61, Lon: -122.33}}
	p := domain.GeoPoint{Lat: 47.605, Lon: -122.33}
	if d := geospatial.PointToPolylineDistance(p, line); d > 1e-6 {
		t.Errorf("expected ~0 for a point on the segment, got %f", d)
	}
}

func TestPointToPolyline_ClampsToEndpoint(t *testing.T) {
	a := domain.GeoPoint{Lat: 47.60, Lon: -122.33}
	b := domain.GeoPoint{Lat: 47.61, Lon: -122.33}
	p := domain.GeoPoint{Lat: 47.59, Lon: -122.33} // beyond a
	got := geospatial.PointToPolylineDistance(p, []domain.GeoPoint{a, b})
	want := geospatial.Distance(p, a)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected clamp to start vertex (%f), got %f", want, got)
	}
}

func TestPointToPolyline_PerpendicularOffset(t *testing.T) {
	line := []domain.GeoPoint{{Lat: 47.60, Lon: -122.34}, {Lat: 47.60, Lon: -122.32}}
	p := domain.GeoPoint{Lat: 47.601, Lon: -122.33}
	got := geospatial.PointToPolylineDistance(p, line)
	want := geospatial.Haversine(47.601, -122.33, 47.60, -122.33)
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("expected %f, got %f", want, got)
	}
}

func TestPointToPolyline_NeverExceedsVertexDistance(t *testing.T) {
	line := []domain.GeoPoint{
		{Lat: 47.600, Lon: -122.330},
		{Lat: 47.602, Lon: -122.331},
		{Lat: 47.603, Lon: -122.335},
		{Lat: 47.606, Lon: -122.336},
	}
	probes := []domain.GeoPoint{
		{Lat: 47.601, Lon: -122.334},
		{Lat: 47.610, Lon: -122.320},
		{Lat: 47.590, Lon: -122.340},
		{Lat: 47.603, Lon: -122.335},
	}
	for _, p := range probes {
		d := geospatial.PointToPolylineDistance(p, line)
		for _, v := range line {
			if vd := geospatial.Distance(p, v); d > vd+1e-9 {
				t.Errorf("polyline distance %f exceeds vertex distance %f for %v", d, vd, p)
			}
		}
	}
}

func TestPointToPolyline_Degenerate(t *testing.T) {
	p := domain.GeoPoint{Lat: 47.6, Lon: -122.3}
	if d := geospatial.PointToPolylineDistance(p, nil); !math.IsInf(d, 1) {
		t.Errorf("expected +Inf for empty polyline, got %f", d)
	}
	if d := geospatial.PointToPolylineDistance(p, []domain.GeoPoint{p}); !math.IsInf(d, 1) {
		t.Errorf("expected +Inf for single point, got %f", d)
	}
	same := domain.GeoPoint{Lat: 47.61, Lon: -122.31}
	if d := geospatial.PointToPolylineDistance(p, []domain.GeoPoint{same, same}); !math.IsInf(d, 1) {
		t.Errorf("expected +Inf when every segment is degenerate, got %f", d)
	}

	// A degenerate segment is skipped but the rest still counts.
	line := []domain.GeoPoint{same, same, {Lat: 47.62, Lon: -122.31}}
	if d := geospatial.PointToPolylineDistance(p, line); math.IsInf(d, 1) {
		t.Error("expected a finite distance once a real segment follows")
	}
}
