package http

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PaginatedResponse wraps list results with pagination metadata.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination contains offset-based pagination info.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// pageParams reads ?offset= and ?limit=, clamping limit to (0, max].
func pageParams(c *fiber.Ctx, defaultLimit, maxLimit, total int) Pagination {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", defaultLimit)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	return Pagination{Offset: offset, Limit: limit, Total: total}
}

// paginate returns the page of items described by p; never nil.
func paginate[T any](items []T, p Pagination) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	end := min(p.Offset+p.Limit, len(items))
	return items[p.Offset:end]
}

// SetLinkHeaders adds RFC 8288 Link headers for paginated responses,
// carrying every other query parameter (e.g. bucket) through unchanged.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	base := c.Path()
	extra := preservedQuery(c)
	link := func(offset int, rel string) string {
		return fmt.Sprintf(`<%s?offset=%d&limit=%d%s>; rel="%s"`, base, offset, p.Limit, extra, rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(p.Offset-p.Limit, 0), "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}
	links = append(links, link(max(p.Total-p.Limit, 0), "last"))

	c.Set("Link", strings.Join(links, ", "))
}

func preservedQuery(c *fiber.Ctx) string {
	var b strings.Builder
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		if k == "offset" || k == "limit" {
			return
		}
		b.WriteString("&" + url.QueryEscape(k) + "=" + url.QueryEscape(string(value)))
	})
	return b.String()
}
