package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zOOGal/Routed/internal/api"
	"github.com/zOOGal/Routed/internal/api/canonical"
	"github.com/zOOGal/Routed/internal/api/detours"
	"github.com/zOOGal/Routed/internal/api/social"
)

// Config contains the handlers and shared dependencies the router mounts.
type Config struct {
	SocialHandler    *social.Handler
	CanonicalHandler *canonical.Handler
	DetoursHandler   *detours.Handler
	Pool             *pgxpool.Pool
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are expected to
// be applied before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if cfg.Pool != nil {
			if err := cfg.Pool.Ping(req.Context()); err != nil {
				api.ErrorResponse(w, req, http.StatusServiceUnavailable, "database unreachable")
				return
			}
		}
		api.WriteJSONResponse(w, req, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/social", func(r chi.Router) {
			r.Post("/posts", cfg.SocialHandler.CreatePost)
			r.Post("/posts/batch", cfg.SocialHandler.CreateBatch)
		})

		r.Route("/places", func(r chi.Router) {
			r.Post("/canonicalize/{postID}", cfg.CanonicalHandler.CanonicalizePost)
		})

		r.Route("/detours", func(r chi.Router) {
			r.Post("/suggest", cfg.DetoursHandler.SuggestDetours)
		})
	})

	return r
}
