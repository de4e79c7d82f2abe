package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"solana-token-launchpad/internal/domain"
	"solana-token-launchpad/internal/observability"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// apiPrefix is the mount point of the duplicate route tree.
const apiPrefix = "/api"

// requestLogger assigns a request id, attaches a request-scoped logger to
// the context, and logs and measures every request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			reqLog := log.With().Str("request_id", id).Logger()
			r = r.WithContext(reqLog.WithContext(r.Context()))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routeLabel(r)
			elapsed := time.Since(start)
			observability.RecordHTTPRequest(route, status, elapsed.Seconds())

			reqLog.Info().
				Str("method", r.Method).
				Str("route", route).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", elapsed).
				Msg("request served")
		})
	}
}

// routeLabel returns the matched route pattern with the /api prefix
// removed, so both mounts share one label.
func routeLabel(r *http.Request) string {
	pattern := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			pattern = p
		} else {
			pattern = "unmatched"
		}
	}
	if trimmed := strings.TrimPrefix(pattern, apiPrefix); trimmed != pattern && trimmed != "" {
		return trimmed
	}
	return pattern
}

type buildInfoKey struct{}

// buildInfo is filled in by a handler for its build event.
type buildInfo struct {
	instructions int
}

// setInstructionCount records how many instructions the response carried.
func setInstructionCount(ctx context.Context, n int) {
	if bi, ok := ctx.Value(buildInfoKey{}).(*buildInfo); ok {
		bi.instructions = n
	}
}

// trackBuild emits a build event for every request it wraps.
func trackBuild(events *EventRecorder, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if events == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := now()
			bi := &buildInfo{}
			r = r.WithContext(context.WithValue(r.Context(), buildInfoKey{}, bi))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			events.Record(&domain.BuildEvent{
				EventID:          uuid.NewString(),
				Route:            routeLabel(r),
				Outcome:          outcomeOf(ww.Status()),
				DurationMs:       now().Sub(start).Milliseconds(),
				InstructionCount: bi.instructions,
				TimestampMs:      start.UnixMilli(),
			})
		})
	}
}

func outcomeOf(status int) domain.Outcome {
	switch {
	case status >= 500:
		return domain.OutcomeError
	case status >= 400:
		return domain.OutcomeRejected
	default:
		return domain.OutcomeOK
	}
}
