package overpass

import (
	"fmt"

	"github.com/samirrijal/streetrisk/internal/core/domain"
)

// BuildQuery returns the Overpass QL selecting every highway way inside b
// together with its nodes. Coordinates are in south,west,north,east order.
func BuildQuery(b domain.Bounds, timeoutSeconds int) string {
	return fmt.Sprintf(
		`[out:json][timeout:%d];(way["highway"](%.6f,%.6f,%.6f,%.6f);>;);out body;`,
		timeoutSeconds, b.MinLat, b.MinLon, b.MaxLat, b.MaxLon,
	)
}
