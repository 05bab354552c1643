// Package middleware provides chi middleware for the ingester HTTP API.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/uber-go/tally"
)

// scopeByEndpoint scopes stats by path and method, ignoring any path variables.
// For example, "GET /failures/{id}/retry" is converted into the scope
// "failures.retry.GET".
//
// Note: scopeByEndpoint should always be called AFTER the "next" handler serves,
// such that chi can populate proper route context with the path.
//
// Wrong:
//
//	scopeByEndpoint(stats, r).Counter("n").Inc(1)
//	next.ServeHTTP(w, r)
//
// Right:
//
//	next.ServeHTTP(w, r)
//	scopeByEndpoint(stats, r).Counter("n").Inc(1)
func scopeByEndpoint(stats tally.Scope, r *http.Request) tally.Scope {
	ctx := chi.RouteContext(r.Context())
	if ctx != nil {
		pattern := strings.Join(ctx.RoutePatterns, "/")
		for _, part := range strings.Split(pattern, "/") {
			if len(part) == 0 || part[0] == '{' || part == "*" {
				continue
			}
			stats = stats.SubScope(part)
		}
	}
	stats = stats.SubScope(strings.ToUpper(r.Method))
	return stats
}

// LatencyTimer measures endpoint latencies.
func LatencyTimer(stats tally.Scope) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			scopeByEndpoint(stats, r).Timer("latency").Record(time.Since(start))
		})
	}
}

// HitCounter measures endpoint hit count.
func HitCounter(stats tally.Scope) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			scopeByEndpoint(stats, r).Counter("count").Inc(1)
		})
	}
}

// StatusCounter counts endpoint responses by status code, e.g. the counter
// "failures.GET.404".
func StatusCounter(stats tally.Scope) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			scopeByEndpoint(stats, r).Counter(strconv.Itoa(status)).Inc(1)
		})
	}
}
