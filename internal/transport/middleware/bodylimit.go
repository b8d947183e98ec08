package middleware

import (
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/credify/internal"
	"github.com/frahmantamala/credify/internal/transport"
)

// MaxBodySize caps request bodies at limit bytes. A declared length over the cap is
// refused up front; anything else fails with *http.MaxBytesError once read past it.
func MaxBodySize(limit int64, logger *slog.Logger) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				logger.Warn("request body too large", "length", r.ContentLength, "limit", limit, "path", r.URL.Path)
				base.HandleServiceError(w, errors.ErrPayloadTooLarge)
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
