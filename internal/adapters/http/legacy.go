package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/streetrisk/internal/core/domain"
)

// legacyPoint and legacyStreet keep the field names of the original
// unversioned /api/streets payload.
type legacyPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type legacySample struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	CrimeScore float64 `json:"crimeScore"`
}

type legacyStreet struct {
	StreetID          string         `json:"streetId"`
	StreetName        string         `json:"streetName"`
	Coordinates       []legacyPoint  `json:"coordinates"`
	AverageCrimeScore float64        `json:"averageCrimeScore"`
	Color             string         `json:"color"`
	CrimePoints       []legacySample `json:"crimePoints"`
}

func toLegacy(s domain.Street) legacyStreet {
	out := legacyStreet{
		StreetID:          s.ID,
		StreetName:        s.Name,
		Coordinates:       make([]legacyPoint, len(s.Coordinates)),
		AverageCrimeScore: s.Score,
		Color:             s.Color,
		CrimePoints:       make([]legacySample, len(s.Samples)),
	}
	for i, p := range s.Coordinates {
		out.Coordinates[i] = legacyPoint{Latitude: p.Lat, Longitude: p.Lon}
	}
	for i, smp := range s.Samples {
		out.CrimePoints[i] = legacySample{Latitude: smp.Location.Lat, Longitude: smp.Location.Lon, CrimeScore: smp.Score}
	}
	return out
}

// LegacyStreetsHandler serves the unpaginated street list in its original shape.
func LegacyStreetsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		streets, err := deps.Streets.Streets(c.UserContext())
		if err != nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		out := make([]legacyStreet, len(streets))
		for i, s := range streets {
			out[i] = toLegacy(s)
		}
		return c.JSON(out)
	}
}
