package scoring_test

import "github.com/samirrijal/streetrisk/internal/core/domain"

func pt(lat, lon float64) domain.GeoPoint {
	return domain.GeoPoint{Lat: lat, Lon: lon}
}

func sample(src domain.SampleSource, lat, lon, score float64) domain.PointSample {
	return domain.PointSample{Location: pt(lat, lon), Score: score, Source: src}
}

func fragment(id, name string, score float64, pts ...domain.GeoPoint) domain.Street {
	return domain.Street{ID: id, Name: name, Score: score, Coordinates: pts}
}

func graphOf(ways ...domain.Way) *domain.WayGraph {
	return &domain.WayGraph{Nodes: map[int64]domain.GeoPoint{}, Ways: ways}
}

// addWay appends a way with fresh node ids, one per coordinate.
func addWay(g *domain.WayGraph, id int64, name string, pts ...domain.GeoPoint) {
	w := domain.Way{ID: id, Name: name}
	for _, p := range pts {
		nid := int64(len(g.Nodes) + 1)
		g.Nodes[nid] = p
		w.NodeIDs = append(w.NodeIDs, nid)
	}
	g.Ways = append(g.Ways, w)
}
