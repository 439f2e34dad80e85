package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/tendant/simple-sharelink/pkg/sharelink"
	"github.com/tendant/simple-sharelink/pkg/sharelink/config"
)

// NewRouter assembles the full HTTP surface: the public redemption
// endpoint under the configured download prefix, and the token-gated
// management API under /api.
func NewRouter(service sharelink.Service, cfg *config.ServerConfig) http.Handler {
	auth := NewAuthHandler(cfg.Auth)
	links := NewLinkHandler(service)
	browse := NewBrowseHandler(service)
	download := NewDownloadHandler(service)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware(cfg.CORSAllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Mount("/auth", auth.Routes())

		// Everything below requires a valid admin token. Redemption
		// stays outside this group on purpose.
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(auth.TokenAuth()))
			r.Use(jwtauth.Authenticator)

			r.Mount("/links", links.Routes())
			r.Post("/cleanup", links.Cleanup)
			r.Get("/buckets", browse.ListBuckets)
			r.Get("/objects", browse.ListObjects)
		})
	})

	r.Mount("/"+cfg.DownloadPrefix, download.Routes())

	return r
}

func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
