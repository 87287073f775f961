package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/godilite/driver-compliance/internal/service"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 10 * time.Second

type ProfileAssembler interface {
	Assemble(ctx context.Context, driverID int64) (service.ProfileView, error)
}

type Server struct {
	profiles ProfileAssembler
	logger   *zap.Logger
	timeout  time.Duration
}

// NewServer creates the HTTP adapter for the profile page.
func NewServer(profiles ProfileAssembler, logger *zap.Logger) *Server {
	if profiles == nil {
		panic("nil ProfileAssembler provided to NewServer")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		profiles: profiles,
		logger:   logger.Named("http-handler"),
		timeout:  defaultRequestTimeout,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/drivers/{driverID}/profile", s.handleGetDriverProfile)

	return r
}

func (s *Server) handleGetDriverProfile(w http.ResponseWriter, r *http.Request) {
	driverID, err := strconv.ParseInt(chi.URLParam(r, "driverID"), 10, 64)
	if err != nil || driverID <= 0 {
		writeError(w, http.StatusBadRequest, service.UserMessage(service.ErrInvalidDriverID))
		return
	}

	mode, err := service.ParseViewMode(r.URL.Query().Get("view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, service.UserMessage(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	view, err := s.profiles.Assemble(ctx, driverID)
	if err != nil {
		s.handleError(w, r, driverID, err)
		return
	}
	view.ActiveView = mode

	// The embed URL carries a short-lived bearer token.
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, driverID int64, err error) {
	fields := []zap.Field{
		zap.Int64("driver_id", driverID),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	}

	switch {
	case errors.Is(err, context.Canceled):
		s.logger.Info("client went away", fields...)
		return
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("request timeout", fields...)
		writeError(w, http.StatusGatewayTimeout, "The request timed out.")
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, service.UserMessage(err))
	case errors.Is(err, service.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, service.UserMessage(err))
	case errors.Is(err, service.ErrProfileUnavailable):
		s.logger.Warn("profile source unavailable", append(fields, zap.Error(err))...)
		writeError(w, http.StatusServiceUnavailable, service.UserMessage(err))
	default:
		s.logger.Error("assemble profile failed", append(fields, zap.Error(err))...)
		writeError(w, http.StatusInternalServerError, service.UserMessage(err))
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("remote_addr", r.RemoteAddr))
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
