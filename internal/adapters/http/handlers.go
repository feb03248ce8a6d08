package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/streetrisk/internal/core/domain"
	"github.com/samirrijal/streetrisk/internal/core/usecases"
)

const (
	defaultStreetLimit = 100
	maxStreetLimit     = 1000
)

// StreetsSummary reports how many streets fall in each color bucket.
type StreetsSummary struct {
	Total   int            `json:"total"`
	Buckets map[string]int `json:"buckets"`
	Bounds  domain.Bounds  `json:"bounds"`
}

// filterStreets applies the optional ?bucket= filter and strips samples
// unless ?samples=true.
func filterStreets(c *fiber.Ctx, streets []domain.Street) ([]domain.Street, error) {
	var want *domain.ColorBucket
	if raw := c.Query("bucket"); raw != "" {
		b, err := domain.ParseBucket(raw)
		if err != nil {
			return nil, err
		}
		want = &b
	}
	withSamples := c.QueryBool("samples", false)

	out := make([]domain.Street, 0, len(streets))
	for _, s := range streets {
		if want != nil && s.Bucket != *want {
			continue
		}
		if !withSamples {
			s.Samples = nil
		}
		out = append(out, s)
	}
	return out, nil
}

// ListStreetsHandler returns the scored streets, paginated.
func ListStreetsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		streets, err := deps.Streets.Streets(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}
		streets, err = filterStreets(c, streets)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		pg := pageParams(c, defaultStreetLimit, maxStreetLimit, len(streets))
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: paginate(streets, pg), Pagination: pg})
	}
}

// StreetsSummaryHandler returns the number of streets per bucket.
func StreetsSummaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		streets, err := deps.Streets.Streets(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(StreetsSummary{
			Total:   len(streets),
			Buckets: domain.CountBuckets(streets),
			Bounds:  deps.Streets.Bounds(),
		})
	}
}

// RescoreHandler queues a rescore. The optional JSON body {"reason": "..."}
// is passed through to the rescorer.
func RescoreHandler(deps *Dependencies) fiber.Handler {
	type rescoreRequest struct {
		Reason string `json:"reason"`
	}

	return func(c *fiber.Ctx) error {
		var req rescoreRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}
		req.Reason = strings.TrimSpace(req.Reason)
		if len(req.Reason) > 200 {
			return errBadRequest(c, "reason too long (max 200 characters)")
		}

		if err := deps.Streets.RequestRescore(c.UserContext(), req.Reason); err != nil {
			if errors.Is(err, usecases.ErrRescoreUnavailable) {
				return errUnavailable(c, err.Error())
			}
			return errInternal(c, err.Error())
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "queued"})
	}
}

// LatestRunHandler returns the summary of the most recent persisted run.
func LatestRunHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		run, err := deps.Streets.LatestRun(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}
		if run == nil {
			return errNotFound(c, "no scoring run recorded yet")
		}

		c.Set("Cache-Control", "public, max-age=30")
		return c.JSON(run.Summary())
	}
}
