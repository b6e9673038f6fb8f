package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/openbench/openbench/internal/catalog"
	"github.com/openbench/openbench/internal/config"
	"github.com/openbench/openbench/internal/handlers"
	"github.com/openbench/openbench/internal/runner"
)

type Server struct {
	httpServer    *http.Server
	port          int
	logger        *slog.Logger
	serviceConfig *config.Config
	engine        *runner.Engine
	catalog       *catalog.Catalog
	validate      *validator.Validate
}

// NewServer creates the HTTP server. Routing uses the standard library
// net/http.ServeMux without a web framework; routes switch on the HTTP
// method manually and everything is wrapped with the Prometheus metrics
// middleware and otelhttp instrumentation.
func NewServer(logger *slog.Logger,
	serviceConfig *config.Config,
	engine *runner.Engine,
	cat *catalog.Catalog,
	validate *validator.Validate) (*Server, error) {

	if logger == nil {
		return nil, fmt.Errorf("logger is required for the server")
	}
	if (serviceConfig == nil) || (serviceConfig.Service == nil) {
		return nil, fmt.Errorf("service config is required for the server")
	}
	if engine == nil {
		return nil, fmt.Errorf("run engine is required for the server")
	}
	if validate == nil {
		return nil, fmt.Errorf("validator is required for the server")
	}

	return &Server{
		port:          serviceConfig.Service.Port,
		logger:        logger,
		serviceConfig: serviceConfig,
		engine:        engine,
		catalog:       cat,
		validate:      validate,
	}, nil
}

func (s *Server) GetPort() int {
	return s.port
}

func (s *Server) setupRoutes() (http.Handler, error) {
	router := http.NewServeMux()
	h := handlers.New(s.engine, s.catalog, s.validate, s.logger)

	// Health endpoint
	router.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.HandleHealth(w, r)
		default:
			methodNotAllowed(w, r)
		}
	})

	// Run collection endpoints
	router.HandleFunc("/api/v1/runs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.HandleCreateRun(w, r)
		case http.MethodGet:
			h.HandleListRuns(w, r)
		default:
			methodNotAllowed(w, r)
		}
	})

	// Individual run endpoints
	router.HandleFunc("/api/v1/runs/{run_id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.HandleGetRun(w, r)
		case http.MethodDelete:
			h.HandleCancelRun(w, r)
		default:
			methodNotAllowed(w, r)
		}
	})

	router.HandleFunc("/api/v1/runs/{run_id}/logs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.HandleRunLogs(w, r)
		default:
			methodNotAllowed(w, r)
		}
	})

	router.HandleFunc("/api/v1/runs/{run_id}/command", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.HandleRunCommand(w, r)
		default:
			methodNotAllowed(w, r)
		}
	})

	router.HandleFunc("/api/v1/runs/{run_id}/artifacts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.HandleRunArtifacts(w, r)
		default:
			methodNotAllowed(w, r)
		}
	})

	router.HandleFunc("/api/v1/runs/{run_id}/summary", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.HandleRunSummary(w, r)
		default:
			methodNotAllowed(w, r)
		}
	})

	// Benchmark catalog endpoints
	router.HandleFunc("/api/v1/benchmarks", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.HandleListBenchmarks(w, r)
		default:
			methodNotAllowed(w, r)
		}
	})

	router.HandleFunc("/api/v1/benchmarks/{name}", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.HandleGetBenchmark(w, r)
		default:
			methodNotAllowed(w, r)
		}
	})

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Enable CORS in local mode only (for development/testing)
	handler := http.Handler(router)
	if s.serviceConfig.Service.LocalMode {
		handler = corsMiddleware(handler)
	}

	// Wrap with metrics middleware (outermost for complete observability)
	handler = metricsMiddleware(handler)
	handler = otelhttp.NewHandler(handler, "openbench")

	return handler, nil
}

// SetupRoutes exposes the route setup for testing
func (s *Server) SetupRoutes() (http.Handler, error) {
	return s.setupRoutes()
}

func (s *Server) Start() error {
	handler, err := s.setupRoutes()
	if err != nil {
		return err
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Server starting", "port", s.port)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server gracefully...")

	return s.httpServer.Shutdown(ctx)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusMethodNotAllowed)
	fmt.Fprintf(w, `{"error":"method %s not allowed on %s","code":405}`+"\n", r.Method, r.URL.Path)
}
