package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/goutham-m7/VerbaFlow/internal/config"
	"github.com/goutham-m7/VerbaFlow/internal/room"
	"github.com/goutham-m7/VerbaFlow/internal/storage/sqlite"
	"github.com/goutham-m7/VerbaFlow/internal/transcribe"
	"github.com/goutham-m7/VerbaFlow/internal/translation"
	"github.com/goutham-m7/VerbaFlow/internal/websocket"
	"github.com/goutham-m7/VerbaFlow/pkg/logger"
)

// Router sets up the API routes
type Router struct {
	handler *Handler
	config  *config.Config
	logger  *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(registry *room.Registry, wsServer *websocket.Server, transcribeServer *transcribe.Server, translationService translation.Service, transcriptStorage *sqlite.TranscriptStorage, cfg *config.Config, log *logger.Logger) *Router {
	return &Router{
		handler: NewHandler(registry, wsServer, transcribeServer, translationService, transcriptStorage, cfg, log),
		config:  cfg,
		logger:  log.Named("api-router"),
	}
}

// Routes returns the HTTP handler with all routes configured
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(rt.corsMiddleware)
	r.Use(rt.loggingMiddleware)

	r.Get("/health", rt.handler.GetHealth)

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoints
		r.Get("/ws", rt.handler.HandleWebSocket)
		r.Get("/ws/live-transcribe", rt.handler.HandleLiveTranscribe)

		// Room endpoints
		r.Get("/rooms/stats", rt.handler.GetRoomStats)

		// Transcript endpoints
		r.Get("/transcripts", rt.handler.GetAllTranscripts)
		r.Get("/transcripts/room/{id}", rt.handler.GetTranscriptsByRoom)
		r.Get("/transcripts/session/{id}", rt.handler.GetTranscriptsBySession)

		// Translation endpoints
		r.Post("/translation/translate", rt.handler.Translate)
		r.Post("/translation/detect", rt.handler.DetectLanguage)
		r.Get("/translation/languages", rt.handler.GetSupportedLanguages)
	})

	return r
}

// corsMiddleware applies the configured CORS policy
func (rt *Router) corsMiddleware(next http.Handler) http.Handler {
	allowed := rt.config.Server.CORSAllowedOrigins

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			for _, o := range allowed {
				if o == "*" || o == origin {
					w.Header().Set("Access-Control-Allow-Origin", o)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
					break
				}
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs request durations at debug level
func (rt *Router) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		rt.logger.Debug("Request handled",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Duration("duration", time.Since(start)))
	})
}
