package server

import (
	"net/http"
	"strconv"

	"github.com/iwvelando/fpna/internal/report"
	"github.com/iwvelando/fpna/internal/scenario"
	"github.com/iwvelando/fpna/pkg/constants"
	"github.com/iwvelando/fpna/pkg/validation"
	"go.uber.org/zap"
)

func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAnalyze"
	var req scenario.AnalyzeRequest
	if !h.decode(w, r, &req, op) {
		return
	}
	analysis, err := h.svc.Analyze(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, analysis)
}

type forecastResponse struct {
	Account  string          `json:"account"`
	Model    string          `json:"model"`
	Method   string          `json:"method"`
	Forecast []forecastPoint `json:"forecast"`
}

type forecastPoint struct {
	Month    string  `json:"month"`
	Forecast float64 `json:"forecast"`
}

func (h *handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleForecast"
	req := scenario.ForecastRequest{Year: 2024, Account: "Revenue:Food"}
	if !h.decode(w, r, &req, op) {
		return
	}
	res, err := h.svc.Forecast(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err, op)
		return
	}

	resp := forecastResponse{
		Account:  req.Account,
		Model:    string(res.Model),
		Method:   res.Method,
		Forecast: make([]forecastPoint, len(res.Points)),
	}
	for i, pt := range res.Points {
		resp.Forecast[i] = forecastPoint{Month: pt.Month, Forecast: pt.Value}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleGoalSeek(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleGoalSeek"
	var req scenario.SolveRequest
	if !h.decode(w, r, &req, op) {
		return
	}
	summary, err := h.svc.Solve(r.Context(), principal(r.Context()), req)
	if err != nil {
		h.respondServiceError(w, err, op)
		return
	}
	h.logger.Info("goal seek complete",
		zap.String("op", op),
		zap.String("scenario", summary.Scenario),
		zap.String("method", summary.Method),
		zap.Float64("abs_error", summary.AbsError),
		zap.Int("evaluations", summary.Evaluations),
	)
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "solution": summary})
}

type boardPackResponse struct {
	OK bool `json:"ok"`
	report.BoardPack
	Markdown string `json:"markdown"`
}

// handleBoardPack returns the pack as JSON, or as a Markdown or YAML
// document when the format query parameter asks for one.
func (h *handler) handleBoardPack(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleBoardPack"
	format, err := validation.ReportFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	var req scenario.AnalyzeRequest
	if !h.decode(w, r, &req, op) {
		return
	}
	pack, err := h.svc.BoardPack(r.Context(), principal(r.Context()), req)
	if err != nil {
		h.respondServiceError(w, err, op)
		return
	}

	switch format {
	case constants.ReportFormatJSON:
		h.writeJSON(w, http.StatusOK, boardPackResponse{OK: true, BoardPack: pack, Markdown: pack.Markdown()})
	case constants.ReportFormatMarkdown:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(pack.Markdown()))
	default:
		data, err := pack.YAML()
		if err != nil {
			h.respondErrorWithOp(w, http.StatusInternalServerError, "failed to encode board pack: "+err.Error(), op)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func (h *handler) handleKPIs(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleKPIs"
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "year must be an integer", op)
		return
	}
	summary, err := h.svc.KPIs(r.Context(), year)
	if err != nil {
		h.respondServiceError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *handler) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAuditLogs"
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.respondErrorWithOp(w, http.StatusBadRequest, "limit must be a non-negative integer", op)
			return
		}
		limit = n
	}
	events, err := h.svc.AuditLog(r.Context(), limit)
	if err != nil {
		h.respondServiceError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
