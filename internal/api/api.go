// Package api exposes the lead engine's HTTP surface: triggering discovery,
// polling its progress, administrative reset, and lead review.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/spexxxzzz/redditleads-sub002/internal/core/domain"
	apperrors "github.com/spexxxzzz/redditleads-sub002/internal/core/errors"
	"github.com/spexxxzzz/redditleads-sub002/internal/discovery"
	db "github.com/spexxxzzz/redditleads-sub002/internal/storage"
)

const headerContentType = "Content-Type"

// Manager is the discovery control surface the API exposes.
type Manager interface {
	Start(ctx context.Context, projectID string) error
	Progress(ctx context.Context, projectID string) (discovery.Status, error)
	Reset(ctx context.Context, projectID string) error
}

var _ Manager = (*discovery.Manager)(nil)

// LeadStore is the lead persistence surface the API reads and updates.
type LeadStore interface {
	ListLeads(ctx context.Context, projectID, status string) ([]domain.Lead, error)
	UpdateLeadStatus(ctx context.Context, leadID, status string) error
}

var _ LeadStore = (*db.DB)(nil)

// Handler routes API requests.
type Handler struct {
	manager Manager
	leads   LeadStore
	logger  *zerolog.Logger
}

// NewHandler creates the API handler.
func NewHandler(manager Manager, leads LeadStore, logger *zerolog.Logger) *Handler {
	return &Handler{manager: manager, leads: leads, logger: logger}
}

// Routes returns the API mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/projects/{id}/discover", h.startDiscovery)
	mux.HandleFunc("GET /api/projects/{id}/discover/progress", h.discoveryProgress)
	mux.HandleFunc("POST /api/projects/{id}/discover/reset", h.resetDiscovery)
	mux.HandleFunc("GET /api/projects/{id}/leads", h.listLeads)
	mux.HandleFunc("PATCH /api/leads/{id}", h.updateLeadStatus)

	return mux
}

func (h *Handler) startDiscovery(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")

	if err := h.manager.Start(r.Context(), projectID); err != nil {
		h.writeError(w, err)

		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (h *Handler) discoveryProgress(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")

	status, err := h.manager.Progress(r.Context(), projectID)
	if err != nil {
		h.writeError(w, err)

		return
	}

	h.writeJSON(w, http.StatusOK, status)
}

func (h *Handler) resetDiscovery(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")

	if err := h.manager.Reset(r.Context(), projectID); err != nil {
		h.writeError(w, err)

		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) listLeads(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	status := r.URL.Query().Get("status")

	if status != "" && !validLeadStatus(status) {
		h.writeError(w, apperrors.ErrInvalidStatus)

		return
	}

	leads, err := h.leads.ListLeads(r.Context(), projectID, status)
	if err != nil {
		h.writeError(w, err)

		return
	}

	if leads == nil {
		leads = []domain.Lead{}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"leads": leads, "count": len(leads)})
}

func (h *Handler) updateLeadStatus(w http.ResponseWriter, r *http.Request) {
	leadID := r.PathValue("id")

	var body struct {
		Status string `json:"status"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, fmt.Errorf("%w: malformed body", apperrors.ErrInvalidInput))

		return
	}

	if !validLeadStatus(body.Status) {
		h.writeError(w, apperrors.ErrInvalidStatus)

		return
	}

	if err := h.leads.UpdateLeadStatus(r.Context(), leadID, body.Status); err != nil {
		h.writeError(w, err)

		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": body.Status})
}

func validLeadStatus(status string) bool {
	switch status {
	case domain.LeadStatusNew, domain.LeadStatusReplied, domain.LeadStatusSaved, domain.LeadStatusIgnored:
		return true
	default:
		return false
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set(headerContentType, "application/json; charset=utf-8")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Warn().Err(err).Msg("failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		code    int
		message string
	)

	switch {
	case errors.Is(err, apperrors.ErrAlreadyRunning):
		code, message = http.StatusConflict, "discovery already running"
	case errors.Is(err, apperrors.ErrProjectNotFound), errors.Is(err, apperrors.ErrLeadNotFound):
		code, message = http.StatusNotFound, err.Error()
	case errors.Is(err, apperrors.ErrNoKeywords),
		errors.Is(err, apperrors.ErrInvalidStatus),
		errors.Is(err, apperrors.ErrInvalidInput):
		code, message = http.StatusBadRequest, err.Error()
	default:
		code, message = http.StatusInternalServerError, "internal error"

		h.logger.Error().Err(err).Msg("request failed")
	}

	h.writeJSON(w, code, map[string]string{"error": message})
}

// Server wraps the API handler in an HTTP server with graceful shutdown.
type Server struct {
	handler *Handler
	port    int
	logger  *zerolog.Logger
}

// NewServer creates the API server.
func NewServer(handler *Handler, port int, logger *zerolog.Logger) *Server {
	return &Server{handler: handler, port: port, logger: logger}
}

// Start serves until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.handler.Routes(),
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Int("port", s.port).Msg("API server starting")

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}
