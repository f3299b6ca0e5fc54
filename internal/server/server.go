// Package server exposes the planning service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/iwvelando/fpna/internal/auth"
	"github.com/iwvelando/fpna/internal/chat"
	"github.com/iwvelando/fpna/internal/config"
	"github.com/iwvelando/fpna/internal/importer"
	"github.com/iwvelando/fpna/internal/scenario"
	"github.com/iwvelando/fpna/pkg/constants"
	"go.uber.org/zap"
)

type handler struct {
	logger         *zap.Logger
	svc            *scenario.Service
	dir            *auth.Directory
	hub            *chat.Hub
	maxUploadSize  int64
	requestTimeout time.Duration
	version        string
}

// NewHandler constructs the API router. A nil hub is replaced by a private
// one, so chat posts reach only that handler's websockets.
func NewHandler(logger *zap.Logger, svc *scenario.Service, dir *auth.Directory, hub *chat.Hub, cfg config.ServerConfig, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hub == nil {
		hub = chat.NewHub(logger)
	}

	maxUploadSize := cfg.UploadSizeBytes()
	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = time.Duration(constants.DefaultRequestTimeoutSeconds) * time.Second
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:         logger,
		svc:            svc,
		dir:            dir,
		hub:            hub,
		maxUploadSize:  maxUploadSize,
		requestTimeout: timeout,
		version:        trimmedVersion,
	}
	return h.routes()
}

func (h *handler) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	// Websocket connections outlive the request timeout.
	r.With(h.requireRole(auth.Readers...)).Get("/chat/ws", h.handleChatWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(h.requestTimeout))

		r.Get("/health", h.handleHealth)
		r.Get("/version", h.handleVersion)
		r.Post("/auth/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.requireRole(auth.Readers...))

			r.Get("/scenarios", h.handleListScenarios)
			r.Get("/scenarios/{key}", h.handleGetScenario)
			r.Get("/versions/list", h.handleListVersions)
			r.Get("/audit/logs", h.handleAuditLogs)
			r.Post("/bva/analyze", h.handleAnalyze)
			r.Post("/forecast/ai", h.handleForecast)
			r.Get("/kpi", h.handleKPIs)
			r.Post("/excel/retrieve", h.handleRetrieve)
			r.Get("/excel/expand_children", h.handleExpandChildren)
			r.Get("/headcount", h.handleListHeadcount)
			r.Get("/fx/rates", h.handleListRates)
			r.Get("/chat/messages", h.handleListMessages)
			r.Post("/chat/messages", h.handlePostMessage)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.requireRole(auth.Writers...))

			r.Post("/preset/qsr", h.handlePresetQSR)
			r.Post("/budget/autogen", h.handleAutogen)
			r.Delete("/scenarios/{key}", h.handleDeleteScenario)
			r.Post("/scenario/clone", h.handleClone)
			r.Post("/scenario/sensitivity", h.handleSensitivity)
			r.Post("/versions/save", h.handleSaveVersion)
			r.Post("/versions/restore", h.handleRestoreVersion)
			r.Post("/solver/goal_seek", h.handleGoalSeek)
			r.Post("/report/boardpack", h.handleBoardPack)
			r.Post("/qb/import_json", h.handleImportJSON)
			r.Post("/qb/import_csv", h.handleImportCSV)
			r.Post("/excel/submit", h.handleSubmit)
			r.Post("/headcount", h.handleUpsertHeadcount)
			r.Delete("/headcount/{id}", h.handleDeleteHeadcount)
			r.Post("/headcount/bake_to_budget", h.handleBake)
			r.Post("/fx/rates", h.handleUpsertRates)
		})
	})

	return r
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handler) handleVersion(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (h *handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleLogin"
	var req loginRequest
	if !h.decode(w, r, &req, op) {
		return
	}
	token, p, err := h.dir.Login(req.Username, req.Role)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "Unknown role", op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"token": token,
		"user":  p.User,
		"role":  string(p.Role),
	})
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any, op string) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
	return false
}

// respondServiceError maps a service error onto a status code.
func (h *handler) respondServiceError(w http.ResponseWriter, err error, op string) {
	var verr *scenario.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, importer.ErrMissingColumn),
		errors.Is(err, auth.ErrUnknownRole):
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
	case scenario.IsNotFound(err):
		h.respondErrorWithOp(w, http.StatusNotFound, err.Error(), op)
	case errors.Is(err, context.DeadlineExceeded):
		h.respondErrorWithOp(w, http.StatusGatewayTimeout, "request timed out", op)
	default:
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
	}
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", msg),
		)
	} else {
		h.logger.Info("request rejected",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", msg),
		)
	}

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response",
			zap.String("op", "server.writeJSON"),
			zap.Error(err),
		)
	}
}

// Server runs the API until its context ends.
type Server struct {
	logger *zap.Logger
	srv    *http.Server
}

// New wraps handler in an http.Server listening on cfg.Address.
func New(logger *zap.Logger, cfg config.ServerConfig, handler http.Handler) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	addr := cfg.Address
	if addr == "" {
		addr = constants.DefaultServerAddress
	}
	return &Server{
		logger: logger,
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Run listens on the configured address and shuts down gracefully when ctx
// is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening",
			zap.String("op", "server.Serve"),
			zap.String("address", ln.Addr().String()),
		)
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server", zap.String("op", "server.Serve"))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
