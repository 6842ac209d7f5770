package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/chi-demo/app"

	"github.com/tendant/campus-gateway/pkg/api"
	"github.com/tendant/campus-gateway/pkg/config"
	"github.com/tendant/campus-gateway/pkg/resourcestore"
)

// HTTPServer wires the resource store and the upstream relay behind one router
type HTTPServer struct {
	service   resourcestore.Service
	relay     api.Relay
	tokenAuth *jwtauth.JWTAuth
	config    *config.Config
}

// NewHTTPServer creates a new HTTP server wrapper. A nil tokenAuth leaves
// every request anonymous.
func NewHTTPServer(service resourcestore.Service, relay api.Relay, tokenAuth *jwtauth.JWTAuth, cfg *config.Config) *HTTPServer {
	return &HTTPServer{
		service:   service,
		relay:     relay,
		tokenAuth: tokenAuth,
		config:    cfg,
	}
}

// Routes sets up the HTTP routes
func (s *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.RequestLogger(slog.Default()))
	r.Use(api.Recoverer)
	r.Use(api.CORS(s.config.CORSAllowedOrigins))
	r.Use(api.Metrics)

	app.RoutesHealthz(r)
	app.RoutesHealthzReady(r)
	r.Get("/health", api.Health)
	r.Handle("/metrics", promhttp.Handler())

	prefix := s.config.APIPrefix
	resources := api.NewResourceHandler(s.service,
		api.WithUploadPolicy(s.config.UploadPolicy()),
		api.WithPublicPath(prefix+"/resources"),
	)
	proxy := api.NewProxyHandler(s.relay,
		api.WithStripPrefix(prefix),
		api.WithMaxBodyBytes(s.config.Upstream.MaxBodyBytes),
	)

	r.Route(prefix, func(r chi.Router) {
		r.Use(api.Identify(s.tokenAuth))
		r.Mount("/resources", resources.Routes())
		// everything else belongs to the upstream
		r.Handle("/*", proxy)
	})

	return r
}
