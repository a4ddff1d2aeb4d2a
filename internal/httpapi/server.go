package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inferd/internal/format"
	"inferd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ModelName() string
	StartedAt() time.Time
	Ready() bool
	Status() types.ServiceStatus
	Complete(ctx context.Context, req types.ChatCompletionRequest) (types.ChatCompletionResponse, error)
}

// NewMux builds the router: /health, /v1/models, /v1/chat/completions,
// /metrics, and a structured 404 for everything else.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, structured panic recovery
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(recoverJSON)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		st := svc.Status()
		writeJSON(w, http.StatusOK, types.HealthResponse{
			Status:            "ok",
			ServerRunning:     st.Running,
			ModelLoaded:       st.ModelLoaded,
			RequestsProcessed: st.RequestsProcessed,
			UptimeSeconds:     st.UptimeSeconds,
		})
	})

	r.Get("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		created := svc.StartedAt()
		if created.IsZero() {
			created = time.Now()
		}
		writeJSON(w, http.StatusOK, format.ModelList(svc.ModelName(), created))
	})

	r.Post("/v1/chat/completions", chatCompletions(svc))

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	notFound := func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusNotFound, "not_found", "Endpoint not found: "+r.URL.Path)
	}
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	return r
}

func chatCompletions(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Content-Type check
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeAPIError(w, http.StatusUnsupportedMediaType, "invalid_request", "Content-Type must be application/json")
			return
		}
		// Limit body size (configurable, default 64MiB)
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAPIError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}

		start := time.Now()
		lvl := requestLogLevel(r)
		if lvl >= LevelInfo {
			logEvent(r).Str("model", req.Model).Msg("completion start")
		}
		resp, err := svc.Complete(r.Context(), req)
		if err != nil {
			status := errorStatus(err)
			writeError(w, err)
			if lvl >= LevelInfo {
				logEvent(r).Int("status", status).Dur("dur", time.Since(start)).Err(err).Msg("completion end")
			}
			return
		}
		writeJSON(w, http.StatusOK, resp)
		if lvl >= LevelInfo {
			logEvent(r).Int("status", http.StatusOK).Dur("dur", time.Since(start)).Msg("completion end")
		}
	}
}

// recoverJSON converts handler panics into a structured api_error body so
// an internal fault never crashes the listener or leaks a raw trace.
func recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				if zlog != nil {
					zlog.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panic")
				}
				writeAPIError(w, http.StatusInternalServerError, "api_error", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
