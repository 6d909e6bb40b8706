package http

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/ebtfinder/internal/adapters/postgres"
	"github.com/samirrijal/ebtfinder/internal/adapters/valkey"
	"github.com/samirrijal/ebtfinder/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Search    *usecases.SearchService
	Locations *usecases.LocationService
	Clicks    *usecases.ClickService
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache

	// RequestTimeout bounds each API request; zero means 15s.
	RequestTimeout time.Duration
	// AllowOrigins is the CORS allowlist; empty disables CORS.
	AllowOrigins string
	// OpenAPIPath is the document served under /docs; empty means
	// api/openapi.yaml relative to the working directory.
	OpenAPIPath string
}

func (d *Dependencies) requestTimeout() time.Duration {
	if d.RequestTimeout <= 0 {
		return 15 * time.Second
	}
	return d.RequestTimeout
}

func (d *Dependencies) openAPIPath() string {
	if d.OpenAPIPath == "" {
		return "api/openapi.yaml"
	}
	return d.OpenAPIPath
}
