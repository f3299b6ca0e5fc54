package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gobwas/ws"
	"github.com/iwvelando/fpna/internal/fx"
	"github.com/iwvelando/fpna/internal/importer"
	"github.com/iwvelando/fpna/internal/roster"
	"github.com/iwvelando/fpna/internal/scenario"
	"github.com/iwvelando/fpna/internal/store"
	"go.uber.org/zap"
)

func (h *handler) handleListHeadcount(w http.ResponseWriter, r *http.Request) {
	emps, err := h.svc.Roster(r.Context())
	if err != nil {
		h.respondServiceError(w, err, "server.handleListHeadcount")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"rows": emps})
}

func (h *handler) handleUpsertHeadcount(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUpsertHeadcount"
	e := roster.DefaultEmployee()
	e.Currency = h.svc.Functional()
	if !h.decode(w, r, &e, op) {
		return
	}
	emps, err := h.svc.UpsertEmployee(r.Context(), principal(r.Context()), e)
	if err != nil {
		h.respondServiceError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "row": e, "rows": emps})
}

func (h *handler) handleDeleteHeadcount(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveEmployee(r.Context(), principal(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, err, "server.handleDeleteHeadcount")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handler) handleBake(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleBake"
	req := scenario.BakeRequest{FiscalYear: defaultFiscalYear, Scenario: "Base"}
	if !h.decode(w, r, &req, op) {
		return
	}
	res, err := h.svc.Bake(r.Context(), principal(r.Context()), req)
	if err != nil {
		h.respondServiceError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

type importRequest struct {
	Rows []importer.Record `json:"rows"`
}

func (h *handler) handleImportJSON(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleImportJSON"
	var req importRequest
	if !h.decode(w, r, &req, op) {
		return
	}
	n, err := h.svc.ImportRecords(r.Context(), principal(r.Context()), req.Rows)
	if err != nil {
		h.respondServiceError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "imported": n})
}

func (h *handler) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleImportCSV"
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing upload file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	n, err := h.svc.ImportCSV(r.Context(), principal(r.Context()), file)
	if err != nil {
		h.respondServiceError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "imported": n})
}

func (h *handler) handleListRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.svc.Rates(r.Context())
	if err != nil {
		h.respondServiceError(w, err, "server.handleListRates")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"functional": h.svc.Functional(), "rates": rates})
}

type ratesRequest struct {
	Rates []fx.Rate `json:"rates"`
}

func (h *handler) handleUpsertRates(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUpsertRates"
	var req ratesRequest
	if !h.decode(w, r, &req, op) {
		return
	}
	rates, err := h.svc.UpsertRates(r.Context(), principal(r.Context()), req.Rates)
	if err != nil {
		h.respondServiceError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "rates": rates})
}

func (h *handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.Messages(r.Context(), r.URL.Query().Get("thread_id"))
	if err != nil {
		h.respondServiceError(w, err, "server.handleListMessages")
		return
	}
	h.writeJSON(w, http.StatusOK, msgs)
}

type postMessageRequest struct {
	ThreadID string `json:"thread_id"`
	Text     string `json:"text"`
}

// handlePostMessage stores a message authored by the caller and pushes it to
// the thread's websocket subscribers.
func (h *handler) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePostMessage"
	req := postMessageRequest{ThreadID: r.URL.Query().Get("thread_id")}
	if !h.decode(w, r, &req, op) {
		return
	}
	p := principal(r.Context())
	m, err := h.svc.PostMessage(r.Context(), store.Message{
		ThreadID: req.ThreadID,
		UserID:   p.User,
		Role:     string(p.Role),
		Text:     req.Text,
	})
	if err != nil {
		h.respondServiceError(w, err, op)
		return
	}
	h.hub.Broadcast(m)
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": m})
}

func (h *handler) handleChatWS(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleChatWS"
	thread := strings.TrimSpace(r.URL.Query().Get("thread_id"))
	if thread == "" {
		h.respondErrorWithOp(w, http.StatusBadRequest, "thread_id cannot be empty", op)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		// UpgradeHTTP has already written the failure response.
		h.logger.Warn("websocket upgrade failed",
			zap.String("op", op),
			zap.Error(err),
		)
		return
	}

	p := principal(r.Context())
	h.logger.Info("chat subscriber joined",
		zap.String("op", op),
		zap.String("thread", thread),
		zap.String("user", p.User),
	)
	// The hijacked connection outlives the request.
	h.hub.Serve(context.WithoutCancel(r.Context()), conn, thread, p.User, string(p.Role), h.svc.PostMessage)
}
