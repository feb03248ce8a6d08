package overpass

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/samirrijal/streetrisk/internal/core/domain"
)

type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type  string            `json:"type"`
	ID    int64             `json:"id"`
	Lat   float64           `json:"lat"`
	Lon   float64           `json:"lon"`
	Nodes []int64           `json:"nodes"`
	Tags  map[string]string `json:"tags"`
}

// ErrEmptyResponse is returned for a JSON null body.
var ErrEmptyResponse = errors.New("overpass returned an empty response")

// Decode parses an Overpass JSON body into a way graph. An object without an
// elements array decodes to an empty graph; a null body is an error.
func Decode(r io.Reader) (*domain.WayGraph, error) {
	var resp *response
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}
	if resp == nil {
		return nil, ErrEmptyResponse
	}

	graph := &domain.WayGraph{Nodes: make(map[int64]domain.GeoPoint)}
	for _, el := range resp.Elements {
		switch el.Type {
		case "node":
			graph.Nodes[el.ID] = domain.GeoPoint{Lat: el.Lat, Lon: el.Lon}
		case "way":
			graph.Ways = append(graph.Ways, domain.Way{
				ID:      el.ID,
				NodeIDs: el.Nodes,
				Name:    el.Tags["name"],
			})
		}
	}
	return graph, nil
}
