// Package server exposes the scheduling use cases over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"schedcal/internal/models"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxBodyBytes = 1 << 20

// Scheduler is the set of use cases served over HTTP.
type Scheduler interface {
	Availability(ctx context.Context, req models.ScheduleRequest) (models.AvailabilityResponse, error)
	StoreForm(ctx context.Context, form models.FormData) (string, error)
	RetrieveForm(ctx context.Context, id string) (models.FormData, error)
	RescheduleData(ctx context.Context, id string) (models.FormData, error)
	UpdateCandidates(ctx context.Context, id string, candidates [][2]string, attendees map[string][]string) error
	DeleteForm(ctx context.Context, id string) error
	Book(ctx context.Context, req models.AppointmentRequest) (models.AppointmentResponse, error)
	Reschedule(ctx context.Context, req models.RescheduleRequest) (models.RescheduleResponse, error)
	Employees(ctx context.Context) ([]models.Employee, error)
}

// Check reports whether a dependency is ready to serve traffic.
type Check func(ctx context.Context) error

// Options configure the HTTP surface.
type Options struct {
	AllowedOrigins []string
	ReadyChecks    map[string]Check
	Registry       *prometheus.Registry
	RequestTimeout time.Duration
}

// Server routes HTTP requests to a Scheduler.
type Server struct {
	svc     Scheduler
	logger  *slog.Logger
	checks  map[string]Check
	metrics *metrics
	handler http.Handler
}

// New builds the router and middleware stack around svc.
func New(logger *slog.Logger, svc Scheduler, opts Options) *Server {
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	s := &Server{
		svc:     svc,
		logger:  logger,
		checks:  opts.ReadyChecks,
		metrics: newMetrics(opts.Registry),
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.readyz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(s.metrics.middleware, withTimeout(opts.RequestTimeout))
	api.HandleFunc("/availability", s.availability).Methods(http.MethodPost)
	api.HandleFunc("/store_form_data", s.storeForm).Methods(http.MethodPost)
	api.HandleFunc("/retrieve_form_data", s.retrieveForm).Methods(http.MethodGet)
	api.HandleFunc("/appointment", s.appointment).Methods(http.MethodPost)
	api.HandleFunc("/reschedule", s.rescheduleData).Methods(http.MethodGet)
	api.HandleFunc("/reschedule", s.reschedule).Methods(http.MethodPost)
	api.HandleFunc("/forms/{id}/candidates", s.updateCandidates).Methods(http.MethodPut)
	api.HandleFunc("/forms/{id}", s.deleteForm).Methods(http.MethodDelete)
	api.HandleFunc("/employee_directory", s.employees).Methods(http.MethodGet)

	var h http.Handler = r
	h = withAccessLog(logger)(h)
	h = withRequestID(h)
	if len(opts.AllowedOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(opts.AllowedOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization", requestIDHeader}),
			handlers.AllowCredentials(),
		)(h)
	}
	s.handler = otelhttp.NewHandler(h, "schedcal")
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	status := map[string]string{}
	ready := true
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.Warn("Readiness check failed", "check", name, "error", err)
			status[name] = err.Error()
			ready = false
			continue
		}
		status[name] = "ok"
	}
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
