package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/iwvelando/fpna/internal/scenario"
	"go.uber.org/zap"
)

// Defaults applied by the budget endpoints when a field is omitted.
const (
	defaultFiscalYear = 2026
	defaultGDPGrowth  = 0.02
	defaultYoY        = 0.08
)

type generatedResponse struct {
	OK       bool   `json:"ok"`
	Scenario string `json:"scenario"`
	Rows     int    `json:"rows"`
}

func (h *handler) handlePresetQSR(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePresetQSR"
	req := scenario.PresetRequest{FiscalYear: defaultFiscalYear, GDPGrowth: defaultGDPGrowth}
	if !h.decode(w, r, &req, op) {
		return
	}
	gen, err := h.svc.PresetQSR(r.Context(), principal(r.Context()), req)
	if err != nil {
		h.respondServiceError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, generatedResponse{OK: true, Scenario: gen.Scenario, Rows: gen.Rows})
}

func (h *handler) handleAutogen(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAutogen"
	req := scenario.AutogenRequest{FiscalYear: defaultFiscalYear, YoY: defaultYoY}
	if !h.decode(w, r, &req, op) {
		return
	}
	gen, err := h.svc.Autogen(r.Context(), principal(r.Context()), req)
	if err != nil {
		h.respondServiceError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, generatedResponse{OK: true, Scenario: gen.Scenario, Rows: gen.Rows})
}

func (h *handler) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	keys, err := h.svc.Scenarios(r.Context())
	if err != nil {
		h.respondServiceError(w, err, "server.handleListScenarios")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string][]string{"scenarios": keys})
}

func (h *handler) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	rows, err := h.svc.Scenario(r.Context(), key)
	if err != nil {
		h.respondServiceError(w, err, "server.handleGetScenario")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"scenario": key, "rows": rows})
}

func (h *handler) handleDeleteScenario(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteScenario(r.Context(), principal(r.Context()), chi.URLParam(r, "key")); err != nil {
		h.respondServiceError(w, err, "server.handleDeleteScenario")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handler) handleClone(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleClone"
	req := scenario.CloneRequest{Pct: scenario.DefaultClonePct}
	if !h.decode(w, r, &req, op) {
		return
	}
	gen, err := h.svc.Clone(r.Context(), principal(r.Context()), req)
	if err != nil {
		h.respondServiceError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, generatedResponse{OK: true, Scenario: gen.Scenario, Rows: gen.Rows})
}

func (h *handler) handleSensitivity(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSensitivity"
	req := scenario.SensitivityRequest{
		AccountPattern: scenario.DefaultSensitivityPattern,
		Pct:            scenario.DefaultSensitivityPct,
	}
	if !h.decode(w, r, &req, op) {
		return
	}
	n, err := h.svc.Sensitivity(r.Context(), principal(r.Context()), req)
	if err != nil {
		h.respondServiceError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "updated_rows": n})
}

type versionRequest struct {
	Scenario string `json:"scenario"`
	Name     string `json:"name"`
}

func (h *handler) handleSaveVersion(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSaveVersion"
	var req versionRequest
	if !h.decode(w, r, &req, op) {
		return
	}
	names, err := h.svc.SaveVersion(r.Context(), principal(r.Context()), req.Scenario, req.Name)
	if err != nil {
		h.respondServiceError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "versions": names})
}

func (h *handler) handleListVersions(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("scenario")
	names, err := h.svc.Versions(r.Context(), name)
	if err != nil {
		h.respondServiceError(w, err, "server.handleListVersions")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"scenario": name, "versions": names})
}

func (h *handler) handleRestoreVersion(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRestoreVersion"
	var req versionRequest
	if !h.decode(w, r, &req, op) {
		return
	}
	if err := h.svc.RestoreVersion(r.Context(), principal(r.Context()), req.Scenario, req.Name); err != nil {
		h.respondServiceError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handler) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRetrieve"
	req := scenario.RetrieveRequest{Year: 2025, Scenario: "Base"}
	if !h.decode(w, r, &req, op) {
		return
	}
	rows, err := h.svc.Retrieve(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, rows)
}

type submitResponse struct {
	OK bool `json:"ok"`
	scenario.SubmitResult
}

func (h *handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSubmit"
	req := scenario.SubmitRequest{Scenario: "2025:Base"}
	if !h.decode(w, r, &req, op) {
		return
	}
	res, err := h.svc.Submit(r.Context(), principal(r.Context()), req)
	if err != nil {
		h.respondServiceError(w, err, op)
		return
	}
	h.logger.Debug("budget rows submitted",
		zap.String("op", op),
		zap.String("scenario", req.Scenario),
		zap.Int("rows", len(req.Rows)),
	)
	h.writeJSON(w, http.StatusOK, submitResponse{OK: true, SubmitResult: res})
}

func (h *handler) handleExpandChildren(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	member := q.Get("member")
	children := []string{}
	if axis := q.Get("axis"); axis == "" || strings.EqualFold(axis, "Department") {
		children = ledger.Children(member)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"member": member, "children": children})
}
