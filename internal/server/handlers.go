package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ppiankov/verbatim/internal/model"
	"github.com/ppiankov/verbatim/internal/pipeline"
	"github.com/ppiankov/verbatim/internal/store"
)

const (
	defaultListLimit = 10
	maxListLimit     = 50
	maxBodyBytes     = 1 << 20
)

type textRequest struct {
	Text *string `json:"text"`
}

func decodeText(r *http.Request) (string, error) {
	var req textRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return "", fmt.Errorf("request body must be JSON: %w", err)
	}
	if req.Text == nil {
		return "", errors.New("missing field: text")
	}
	return *req.Text, nil
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	text, err := decodeText(r)
	if err != nil {
		writeInvalidInput(w, err)
		return
	}

	sub, err := s.service.Submit(r.Context(), text)
	if err != nil {
		if statusFor(err) == http.StatusBadRequest {
			writeInvalidInput(w, err)
			return
		}
		s.logger.Error("create submission", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if _, err := s.service.Process(r.Context(), sub.ID); err != nil {
		s.logger.Warn("processing failed", zap.String("submission_id", sub.ID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"submission_id": sub.ID,
			"status":        model.StatusFailed,
			"error":         err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"submission_id": sub.ID,
		"status":        model.StatusCompleted,
		"message":       "Text processing completed successfully",
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	text, err := decodeText(r)
	if err != nil {
		writeInvalidInput(w, err)
		return
	}

	sub, err := s.service.Submit(r.Context(), text)
	if err != nil {
		if statusFor(err) == http.StatusBadRequest {
			writeInvalidInput(w, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"submission_id": sub.ID,
		"status":        sub.Status,
		"message":       "Submission created; run stages s1, f1, s2, f2 then finalize",
	})
}

func (s *Server) handleStage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	stage, err := pipeline.ParseStage(r.PathValue("stage"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.service.RunStage(r.Context(), id, stage)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusNotFound {
			writeError(w, code, notFoundMessage(id))
			return
		}
		writeJSON(w, code, map[string]any{
			"submission_id": id,
			"stage":         stage,
			"error":         err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sub, err := s.subs.GetSubmission(r.Context(), id)
	if err != nil {
		s.writeLookupError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewStatusView(sub))
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sub, err := s.subs.GetSubmission(r.Context(), id)
	if err != nil {
		s.writeLookupError(w, id, err)
		return
	}
	if sub.Status != model.StatusCompleted {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":          "Processing not completed",
			"current_status": sub.Status,
			"message":        "Results are only available for completed submissions",
		})
		return
	}

	res, err := s.service.CompileResults(r.Context(), id)
	if err != nil {
		s.writeLookupError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	res, err := s.service.CompileResults(r.Context(), id)
	if err != nil {
		s.writeLookupError(w, id, err)
		return
	}

	page, err := s.renderer.HTML(res)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultListLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid limit: %s", v))
			return
		}
		limit = min(n, maxListLimit)
	}

	var status model.Status
	if v := q.Get("status"); v != "" {
		parsed, err := model.ParseStatus(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid status filter: %s", v))
			return
		}
		status = parsed
	}

	subs, err := s.subs.ListSubmissions(r.Context(), store.ListOptions{Limit: limit, Status: status})
	if err != nil {
		s.logger.Error("list submissions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	items := make([]model.SubmissionListItem, 0, len(subs))
	for _, sub := range subs {
		items = append(items, model.NewSubmissionListItem(sub))
	}

	var statusFilter any
	if status != "" {
		statusFilter = status
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"submissions":    items,
		"total_returned": len(items),
		"filters_applied": map[string]any{
			"limit":  limit,
			"status": statusFilter,
		},
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "Text Processing API",
		"version":     s.config.Version,
		"description": "Summarizes text, extracts verbatim fragments and verifies them against the original",
		"endpoints": map[string]string{
			"process":     "POST /api/text/process",
			"submit":      "POST /api/text/submit",
			"stage":       "POST /api/text/{id}/stages/{stage}",
			"status":      "GET /api/text/status/{id}",
			"results":     "GET /api/text/results/{id}",
			"report":      "GET /api/text/results/{id}/report",
			"submissions": "GET /api/text/submissions",
			"info":        "GET /api/info",
		},
		"features": []string{
			"Primary summary generation (S1)",
			"Verbatim key fragment extraction (F1)",
			"Secondary summary from fragments (S2)",
			"Justification quotes per summary sentence (F2)",
			"Tiered fuzzy verification against the original text",
			"Progressive stage-by-stage processing",
		},
	})
}

func (s *Server) writeLookupError(w http.ResponseWriter, id string, err error) {
	code := statusFor(err)
	if code == http.StatusNotFound {
		writeError(w, code, notFoundMessage(id))
		return
	}
	s.logger.Error("lookup failed", zap.String("submission_id", id), zap.Error(err))
	writeError(w, code, err.Error())
}

func notFoundMessage(id string) string {
	return fmt.Sprintf("Submission with ID %s not found", id)
}
