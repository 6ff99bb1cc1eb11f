package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/savegress/odcv/internal/analysis"
	"github.com/savegress/odcv/internal/config"
	"github.com/savegress/odcv/internal/storage"
)

// Server represents the API server
type Server struct {
	router chi.Router
	cfg    *config.Config
	store  storage.Store
	engine *analysis.Engine
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, store storage.Store, engine *analysis.Engine) *Server {
	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		store:  store,
		engine: engine,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	s.router.Get("/health", s.healthCheck)

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		// Datasets
		r.Route("/datasets", func(r chi.Router) {
			r.Get("/", s.listDatasets)
			r.Post("/", s.uploadDataset)
			r.Get("/{id}", s.getDataset)
			r.Delete("/{id}", s.deleteDataset)
		})

		// Dashboard
		r.Get("/dashboard/metrics", s.getDashboardMetrics)

		// Sensors
		r.Route("/sensors", func(r chi.Router) {
			r.Get("/", s.listSensors)
			r.Get("/metrics", s.getSensorMetrics)
			r.Get("/{id}/timeline", s.getSensorTimeline)
			r.Get("/{id}/validations", s.getSensorValidations)
		})

		// Pairing and profiles
		r.Get("/pairs", s.listPairs)
		r.Get("/profiles", s.listProfiles)

		// Synthetic data
		r.Post("/testdata", s.generateTestData)
	})
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}
