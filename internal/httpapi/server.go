// internal/httpapi/server.go
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/tamzrod/saj-modbus/internal/poller"
	"github.com/tamzrod/saj-modbus/internal/status"
	"github.com/tamzrod/saj-modbus/internal/writer"
)

// Controller is the coordinator surface served over HTTP.
type Controller interface {
	writer.Commander
	Snapshot() status.Snapshot
}

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
	maxBodyBytes      = 1 << 16
)

// Server is the HTTP adapter: snapshot, commands, metrics and health.
type Server struct {
	ctrl    Controller
	metrics http.Handler
	router  *mux.Router
	server  *http.Server
	log     *zap.Logger
}

// New builds the router. metrics may be nil, which leaves /metrics unrouted.
func New(listen string, ctrl Controller, metrics http.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		ctrl:    ctrl,
		metrics: metrics,
		router:  mux.NewRouter(),
		log:     log.With(zap.String("component", "http")),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              listen,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/limitpower", s.handleLimitPower).Methods(http.MethodPost)
	api.HandleFunc("/poweronoff", s.handlePowerOnOff).Methods(http.MethodPost)
	api.HandleFunc("/clock", s.handleClock).Methods(http.MethodPost)
	api.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info("http listening", zap.String("addr", s.server.Addr))
		errc <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.log.Info("http stopped")
	return nil
}

// ------------------------------------------------------------
// READ HANDLERS
// ------------------------------------------------------------

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	body, err := status.Encode(s.ctrl.Snapshot())
	if err != nil {
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.ctrl.Snapshot()

	code := http.StatusOK
	if snap.Health != status.HealthOK {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, map[string]any{
		"health":     snap.Health.String(),
		"last_error": snap.LastError,
		"failures":   snap.Failures,
	}, code)
}

// ------------------------------------------------------------
// COMMAND HANDLERS
// ------------------------------------------------------------

type limitPowerRequest struct {
	Watts *float64 `json:"watts"`
}

type powerOnOffRequest struct {
	On *bool `json:"on"`
}

type clockRequest struct {
	DateTime string `json:"datetime"`
}

func (s *Server) handleLimitPower(w http.ResponseWriter, r *http.Request) {
	var req limitPowerRequest
	if err := decode(w, r, &req); err != nil || req.Watts == nil {
		s.writeError(w, "body must be {\"watts\": number}", http.StatusBadRequest)
		return
	}
	s.command(w, "limitpower", s.ctrl.SetLimitPower(r.Context(), *req.Watts))
}

func (s *Server) handlePowerOnOff(w http.ResponseWriter, r *http.Request) {
	var req powerOnOffRequest
	if err := decode(w, r, &req); err != nil || req.On == nil {
		s.writeError(w, "body must be {\"on\": bool}", http.StatusBadRequest)
		return
	}
	s.command(w, "poweronoff", s.ctrl.SetPowerOnOff(r.Context(), *req.On))
}

func (s *Server) handleClock(w http.ResponseWriter, r *http.Request) {
	var req clockRequest
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			s.writeError(w, "body must be {\"datetime\": RFC 3339}", http.StatusBadRequest)
			return
		}
	}
	t, err := writer.ParseDateTime(req.DateTime)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.command(w, "clock", s.ctrl.SetClock(r.Context(), t))
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.ctrl.RequestRefresh()
	s.writeJSON(w, map[string]string{"status": "accepted"}, http.StatusAccepted)
}

// command maps a command outcome to a response. Failures request a refresh
// so every sink re-converges on the device state.
func (s *Server) command(w http.ResponseWriter, name string, err error) {
	if err == nil {
		s.writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
		return
	}

	s.log.Warn("command failed", zap.String("command", name), zap.Error(err))
	s.ctrl.RequestRefresh()
	s.writeError(w, err.Error(), StatusFor(err))
}

// StatusFor maps a command error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, poller.ErrControlDisabled):
		return http.StatusConflict
	case errors.Is(err, poller.ErrOutOfRange), errors.Is(err, writer.ErrBadPayload):
		return http.StatusBadRequest
	case errors.Is(err, poller.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, poller.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// ------------------------------------------------------------
// HELPERS
// ------------------------------------------------------------

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) writeJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("response encode failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, code int) {
	s.writeJSON(w, map[string]string{"error": message}, code)
}
