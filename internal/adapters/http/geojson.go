package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/samirrijal/streetrisk/internal/core/domain"
)

// StreetFeatures converts streets to a GeoJSON FeatureCollection of
// LineStrings. Streets with fewer than two points are skipped.
func StreetFeatures(streets []domain.Street) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(streets))}
	for _, s := range streets {
		if len(s.Coordinates) < 2 {
			continue
		}
		flat := make([]float64, 0, len(s.Coordinates)*2)
		for _, p := range s.Coordinates {
			flat = append(flat, p.Lon, p.Lat)
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       s.ID,
			Geometry: geom.NewLineStringFlat(geom.XY, flat),
			Properties: map[string]interface{}{
				"name":    s.Name,
				"score":   s.Score,
				"bucket":  s.Bucket.String(),
				"color":   s.Color,
				"samples": len(s.Samples),
			},
		})
	}
	return fc
}

// StreetsGeoJSONHandler serves the scored streets as GeoJSON.
func StreetsGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		streets, err := deps.Streets.Streets(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}
		streets, err = filterStreets(c, streets)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		data, err := StreetFeatures(streets).MarshalJSON()
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}
