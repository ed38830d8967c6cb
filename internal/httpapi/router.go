// Package httpapi wires every HTTP surface the broker exposes: ingest,
// streaming, channel/control endpoints, and health. Handlers are methods
// on server so they share one set of dependencies without a context-grab-bag.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mood-agency/logbroker/internal/bufpool"
	"github.com/mood-agency/logbroker/internal/bus"
	"github.com/mood-agency/logbroker/internal/channelregistry"
	"github.com/mood-agency/logbroker/internal/config"
	"github.com/mood-agency/logbroker/internal/connmanager"
	"github.com/mood-agency/logbroker/internal/health"
	"github.com/mood-agency/logbroker/internal/idpool"
	"github.com/mood-agency/logbroker/internal/metrics"
	"github.com/mood-agency/logbroker/internal/normalize"
	"github.com/mood-agency/logbroker/internal/ratelimit"
)

// Deps collects every component the HTTP surface depends on.
type Deps struct {
	Log        zerolog.Logger
	Config     config.Config
	Normalizer *normalize.Normalizer
	Registry   *channelregistry.Registry
	Bus        *bus.Bus
	Conns      *connmanager.Manager
	Limiter    *ratelimit.Limiter
	Metrics    *metrics.Metrics
	Health     *health.Sampler
	IDs        *idpool.Pool
	Bufs       *bufpool.Pool
}

type server struct {
	log        zerolog.Logger
	cfg        config.Config
	normalizer *normalize.Normalizer
	registry   *channelregistry.Registry
	bus        *bus.Bus
	conns      *connmanager.Manager
	limiter    *ratelimit.Limiter
	metrics    *metrics.Metrics
	health     *health.Sampler
	ids        *idpool.Pool
	bufs       *bufpool.Pool
}

// New builds the root HTTP handler: middleware chain plus every route.
func New(d Deps) http.Handler {
	bufs := d.Bufs
	if bufs == nil {
		bufs = bufpool.New()
	}
	s := &server{
		log:        d.Log,
		cfg:        d.Config,
		normalizer: d.Normalizer,
		registry:   d.Registry,
		bus:        d.Bus,
		conns:      d.Conns,
		limiter:    d.Limiter,
		metrics:    d.Metrics,
		health:     d.Health,
		ids:        d.IDs,
		bufs:       bufs,
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(recovery(s.log))
	r.Use(securityHeaders(s.cfg.Production))
	r.Use(requestLogging(s.log))
	r.Use(cors(s.cfg.CORSOrigin))

	r.Get("/health", s.handleHealth)

	r.Group(func(protected chi.Router) {
		protected.Use(requireAPIKey(s.cfg.APIKey, s.cfg.RequireAPIKey))

		protected.Post("/api/logs", s.handleIngest)
		protected.Delete("/api/logs", s.handleClear)
		protected.Get("/api/logs/stream", s.handleStream)
		protected.Post("/api/logs/disconnect", s.handleDisconnect)
		protected.Get("/api/channels", s.handleChannels)
		protected.Get("/api/stats", s.handleStats)
		protected.Get("/api/generate-key", s.handleGenerateKey)
	})

	return r
}
