// Package api wires the HTTP middleware chain shared by all handlers.
package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rallydesk/rallydesk/internal/api/apiutil"
	"github.com/rallydesk/rallydesk/internal/authz"
	appdb "github.com/rallydesk/rallydesk/internal/db"
)

const (
	userIDHeader      = "X-User-ID"
	operatorKeyHeader = "X-Operator-Key"

	identityLookupTimeout = 5 * time.Second
)

type requestIDKeyType struct{}

var requestIDKey requestIDKeyType

type Middleware func(http.Handler) http.Handler

func ChainMiddleware(h http.Handler, middleware ...Middleware) http.Handler {
	for _, m := range middleware {
		h = m(h)
	}
	return h
}

func WithLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Response wrapper captures the status code for the access log.
		wrapped := wrapResponseWriter(w)

		next.ServeHTTP(wrapped, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.status).
			Dur("duration", time.Since(start)).
			Str("request_id", RequestIDFromContext(r.Context())).
			Msg("Request completed")
	})
}

func WithRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger := log.Ctx(r.Context())
				stack := debug.Stack()
				logger.Error().
					Interface("error", err).
					Str("stack", string(stack)).
					Msg("Panic recovered")

				apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error", "internal_error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()

		logger := log.With().Str("request_id", requestID).Logger()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		ctx = logger.WithContext(ctx)

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the request id set by WithRequestID, if any.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey).(string)
	return requestID
}

// WithIdentity resolves the caller from the X-User-ID and X-Operator-Key
// headers. A valid operator key marks the identity as staff regardless of the
// user row. Requests without either header pass through unauthenticated.
func WithIdentity(queries *appdb.Queries, operatorKeyHash string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := log.Ctx(r.Context())

			rawUserID := r.Header.Get(userIDHeader)
			operatorKey := r.Header.Get(operatorKeyHeader)
			if rawUserID == "" && operatorKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity := &authz.Identity{}

			if operatorKey != "" {
				if !authz.VerifyOperatorKey(operatorKeyHash, operatorKey) {
					logger.Warn().Msg("Rejected invalid operator key")
					apiutil.WriteError(w, http.StatusUnauthorized, "Invalid operator key", "invalid_credentials")
					return
				}
				identity.IsStaff = true
			}

			if rawUserID != "" {
				userID, err := apiutil.ParsePositiveInt64Field(rawUserID, userIDHeader)
				if err != nil {
					apiutil.WriteError(w, http.StatusUnauthorized, "Invalid user id header", "invalid_credentials")
					return
				}

				lookupCtx, cancel := context.WithTimeout(r.Context(), identityLookupTimeout)
				user, err := queries.GetUserByID(lookupCtx, userID)
				cancel()
				if err != nil {
					if errors.Is(err, sql.ErrNoRows) {
						logger.Warn().Int64("user_id", userID).Msg("Unknown user in identity header")
						apiutil.WriteError(w, http.StatusUnauthorized, "Unknown user", "invalid_credentials")
						return
					}
					logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to load user for identity header")
					apiutil.WriteError(w, http.StatusInternalServerError, "Failed to authorize request", "internal_error")
					return
				}
				identity.UserID = user.ID
				identity.IsStaff = identity.IsStaff || user.IsStaff
			}

			ctx := authz.ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// responseWriter wrapper to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
