package http

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/streetrisk/internal/adapters/postgres"
	"github.com/samirrijal/streetrisk/internal/adapters/valkey"
	"github.com/samirrijal/streetrisk/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Streets *usecases.StreetService
	NATS    *nats.Conn
	DB      *postgres.DB
	Cache   *valkey.Cache

	// LegacySunset is announced on /api/streets responses.
	LegacySunset time.Time
	// RequestTimeout bounds every /v1 request; zero means 60s.
	RequestTimeout time.Duration
}

func (d *Dependencies) requestTimeout() time.Duration {
	if d.RequestTimeout <= 0 {
		return 60 * time.Second
	}
	return d.RequestTimeout
}
