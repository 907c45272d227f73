package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/alexisbanda/operations-management-system/cleaning"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// REQUEST CONTEXT
// =============================================================================

type ctxKey int

const (
	profileKey ctxKey = iota
	traceIDKey
)

// ProfileFrom returns the profile resolved by Authenticate.
func ProfileFrom(ctx context.Context) (cleaning.Profile, bool) {
	p, ok := ctx.Value(profileKey).(cleaning.Profile)
	return p, ok
}

func traceIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

// =============================================================================
// REQUEST LOG
// =============================================================================

// TraceHeader carries the trace id in both directions.
const TraceHeader = "X-Trace-ID"

// requestLogger logs one line per request with a trace id. An incoming
// X-Trace-ID is kept when it is a valid uuid.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get(TraceHeader)
			if _, err := uuid.Parse(traceID); err != nil {
				traceID = uuid.NewString()
			}
			w.Header().Set(TraceHeader, traceID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			ctx := context.WithValue(r.Context(), traceIDKey, traceID)

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.Info("request",
				zap.String("trace_id", traceID),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

// Authenticate verifies the bearer token and resolves the caller's profile.
// A bad or revoked token is 401; a valid token without a profile is 403.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			h.writeError(w, r, http.StatusUnauthorized, "missing bearer token", nil)
			return
		}

		identity, err := h.verifier.Verify(r.Context(), raw)
		if err != nil {
			h.respondError(w, r, err)
			return
		}

		profile, err := h.sessions.Resolve(r.Context(), identity)
		if err != nil {
			h.respondError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), profileKey, profile)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects callers whose role is not listed.
func (h *Handler) RequireRole(roles ...cleaning.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile, ok := ProfileFrom(r.Context())
			if !ok {
				h.writeError(w, r, http.StatusForbidden, "no profile", nil)
				return
			}
			for _, role := range roles {
				if profile.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			h.writeError(w, r, http.StatusForbidden, "role "+string(profile.Role)+" may not perform this action", nil)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// =============================================================================
// SESSION TERMINATION LOG
// =============================================================================

type loggingTerminator struct {
	next cleaning.SessionTerminator
	log  *zap.Logger
}

// LogTerminations wraps next so that every forced sign-out is logged.
func LogTerminations(next cleaning.SessionTerminator, log *zap.Logger) cleaning.SessionTerminator {
	return loggingTerminator{next: next, log: log}
}

func (t loggingTerminator) Terminate(ctx context.Context, subject string) error {
	err := t.next.Terminate(ctx, subject)
	if err != nil {
		t.log.Error("session termination failed",
			zap.String("subject", subject),
			zap.String("trace_id", traceIDFrom(ctx)),
			zap.Error(err))
		return err
	}
	t.log.Warn("session terminated: identity has no profile",
		zap.String("subject", subject),
		zap.String("trace_id", traceIDFrom(ctx)))
	return nil
}
