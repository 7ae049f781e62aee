package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/magnolia-hms/finance/internal/service/journal"
)

type ctxKey string

const ctxKeyEntryInput ctxKey = "validatedEntryInput"

// requestLogger logs basic request info at INFO.
func requestLogger(l *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			reqID := chimw.GetReqID(r.Context())
			l.Info("request started", "req_id", reqID, "method", r.Method, "path", r.URL.Path)

			next.ServeHTTP(ww, r)

			l.Info("request complete",
				"req_id", reqID,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
			)
		})
	}
}

// recoverer logs panics as ERROR and returns 500.
func recoverer(l *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					reqID := chimw.GetReqID(r.Context())
					l.Error("panic", "req_id", reqID, "err", rec, "stack", string(debug.Stack()))
					w.WriteHeader(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requireJSON ensures the request has Content-Type application/json
// (optionally with params). Writes 415 and returns false otherwise.
func requireJSON(w http.ResponseWriter, r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		writeErr(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "unsupported_media_type")
		return false
	}
	mime := strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	if mime != "application/json" {
		writeErr(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "unsupported_media_type")
		return false
	}
	return true
}

// validatePostEntry decodes and validates the entry body through the journal
// service and stores the resulting EntryInput in the request context.
func (s *Server) validatePostEntry() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postEntryRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			in := toEntryInput(req)
			if err := s.journal.Validate(r.Context(), in); err != nil {
				writeDomainErr(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyEntryInput, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func entryInputFrom(ctx context.Context) journal.EntryInput {
	in, _ := ctx.Value(ctxKeyEntryInput).(journal.EntryInput)
	return in
}
