// Package api serves the launchpad over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solana-token-launchpad/internal/launch"
	"solana-token-launchpad/internal/observability"
	"solana-token-launchpad/internal/storage"
)

// DefaultMaxUploadBytes bounds a create-token form, image included.
const DefaultMaxUploadBytes = 10 << 20

// maxJSONBytes bounds every JSON request body.
const maxJSONBytes = 1 << 20

// Launchpad is the service behind the handlers.
type Launchpad interface {
	CreateToken(ctx context.Context, req launch.CreateTokenRequest) (*launch.CreateTokenResult, error)
	MintToken(ctx context.Context, req launch.MintTokenRequest) (*launch.MintTokenResult, error)
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
	Airdrop(ctx context.Context, address string, amount decimal.Decimal) (*launch.AirdropResult, error)
	ResolveATA(ctx context.Context, req launch.ResolveATARequest) (*launch.ResolveATAResult, error)
	Submit(ctx context.Context, signed string, lastValidBlockHeight uint64) (*launch.SubmitResult, error)
}

var _ Launchpad = (*launch.Service)(nil)

// Options configures NewRouter.
type Options struct {
	Service Launchpad

	// Events receives one build event per POST request. Optional.
	Events *EventRecorder
	// Stats serves GET /stats. Optional.
	Stats storage.BuildEventStore

	Logger         zerolog.Logger
	MaxUploadBytes int64
	Now            func() time.Time
}

type handler struct {
	svc            Launchpad
	stats          storage.BuildEventStore
	maxUploadBytes int64
	now            func() time.Time
}

// NewRouter builds the HTTP handler. Every route is served both at the
// root and under /api.
func NewRouter(opts Options) http.Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	h := &handler{
		svc:            opts.Service,
		stats:          opts.Stats,
		maxUploadBytes: opts.MaxUploadBytes,
		now:            opts.Now,
	}

	r := chi.NewRouter()
	r.Use(requestLogger(opts.Logger))
	r.Use(middleware.Recoverer)

	routes := func(r chi.Router) {
		r.Get("/health", h.health)
		r.Method(http.MethodGet, "/metrics", observability.Handler())
		if h.stats != nil {
			r.Get("/stats", h.buildStats)
		}

		r.Group(func(r chi.Router) {
			r.Use(trackBuild(opts.Events, opts.Now))
			r.Post("/create-token", h.createToken)
			r.Post("/mint-token", h.mintToken)
			r.Post("/get-balance", h.getBalance)
			r.Post("/airdrop-sol", h.airdropSOL)
			r.Post("/associated-token-account", h.associatedTokenAccount)
			r.Post("/submit-transaction", h.submitTransaction)
		})
	}
	routes(r)
	r.Route(apiPrefix, routes)

	return r
}

// trackedRoutes are the routes that emit build events.
var trackedRoutes = []string{
	"/create-token",
	"/mint-token",
	"/get-balance",
	"/airdrop-sol",
	"/associated-token-account",
	"/submit-transaction",
}
