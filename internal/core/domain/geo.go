package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Way is a street polyline as returned by the geometry provider, before
// node references are resolved to coordinates.
type Way struct {
	ID      int64   `json:"id"`
	NodeIDs []int64 `json:"node_ids"`
	Name    string  `json:"name,omitempty"` // empty when the way has no name tag
}

// WayGraph is the node/way graph fetched for one bounding box.
type WayGraph struct {
	Nodes map[int64]GeoPoint `json:"nodes"`
	Ways  []Way              `json:"ways"`
}

// Resolve maps a way's node references to coordinates.
// Unknown node ids are dropped silently.
func (g *WayGraph) Resolve(w Way) []GeoPoint {
	pts := make([]GeoPoint, 0, len(w.NodeIDs))
	for _, id := range w.NodeIDs {
		if p, ok := g.Nodes[id]; ok {
			pts = append(pts, p)
		}
	}
	return pts
}

// Empty reports whether the graph carries no ways.
func (g *WayGraph) Empty() bool {
	return g == nil || len(g.Ways) == 0
}
