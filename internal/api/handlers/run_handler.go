package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/contentloop/contentloop/internal/application/services"
	"github.com/contentloop/contentloop/internal/domain/entities"
)

// RunHandler handles the generation-run lifecycle endpoints.
type RunHandler struct {
	generation *services.GenerationService
}

// NewRunHandler creates a new run handler.
func NewRunHandler(generation *services.GenerationService) *RunHandler {
	return &RunHandler{generation: generation}
}

type createRunRequest struct {
	ClientID    string `json:"client_id"`
	ContentType string `json:"content_type"`
	RouteType   string `json:"route_type,omitempty"`
	Provider    string `json:"provider,omitempty"`
	PromptHash  string `json:"prompt_hash,omitempty"`
}

// CreateRun handles POST /api/runs
func (h *RunHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var payload createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	run := &entities.GenerationRun{
		ClientID:    payload.ClientID,
		ContentType: entities.ContentType(payload.ContentType),
		RouteType:   entities.RouteType(payload.RouteType),
		Provider:    payload.Provider,
		PromptHash:  payload.PromptHash,
	}
	if err := h.generation.RecordRun(r.Context(), run); err != nil {
		respondWithError(w, statusFromError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, run)
}

// GetRun handles GET /api/runs/{id}
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.generation.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithError(w, statusFromError(err), "run not found")
		return
	}
	respondWithJSON(w, http.StatusOK, run)
}

type completeRunRequest struct {
	Status        string   `json:"status"`
	ActualQuality *float64 `json:"actual_quality,omitempty"`
	ActualCostUsd *float64 `json:"actual_cost_usd,omitempty"`
	ActualTimeMs  *int64   `json:"actual_time_ms,omitempty"`
}

// CompleteRun handles POST /api/runs/{id}/complete
func (h *RunHandler) CompleteRun(w http.ResponseWriter, r *http.Request) {
	var payload completeRunRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	actuals := entities.RunActuals{
		Quality: payload.ActualQuality,
		CostUsd: payload.ActualCostUsd,
		TimeMs:  payload.ActualTimeMs,
	}
	if err := h.generation.CompleteRun(r.Context(), r.PathValue("id"), entities.RunStatus(payload.Status), actuals); err != nil {
		respondWithError(w, statusFromError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

type feedbackRequest struct {
	FeedbackType string   `json:"feedback_type,omitempty"`
	OverallScore *float64 `json:"overall_score,omitempty"`
	Issues       []string `json:"issues,omitempty"`
	Suggestions  []string `json:"suggestions,omitempty"`
	Approved     bool     `json:"approved"`
}

// SubmitFeedback handles POST /api/runs/{id}/feedback
func (h *RunHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var payload feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	feedback := &entities.QualityFeedback{
		RunID:        r.PathValue("id"),
		FeedbackType: entities.FeedbackType(payload.FeedbackType),
		OverallScore: payload.OverallScore,
		Issues:       payload.Issues,
		Suggestions:  payload.Suggestions,
		Approved:     payload.Approved,
	}
	if err := h.generation.SubmitFeedback(r.Context(), feedback); err != nil {
		respondWithError(w, statusFromError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{
		"status": "received",
		"id":     feedback.ID,
	})
}

// ListFeedback handles GET /api/runs/{id}/feedback
func (h *RunHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	entries, err := h.generation.RunFeedback(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithError(w, statusFromError(err), "failed to list feedback")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"feedback": entries,
		"count":    len(entries),
	})
}

// GetDecision handles GET /api/decisions/{id}
func (h *RunHandler) GetDecision(w http.ResponseWriter, r *http.Request) {
	record, err := h.generation.GetDecision(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithError(w, statusFromError(err), "decision not found")
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}

type outcomeRequest struct {
	ActualQuality *float64 `json:"actual_quality,omitempty"`
	ActualCostUsd *float64 `json:"actual_cost_usd,omitempty"`
	ActualTimeMs  *int64   `json:"actual_time_ms,omitempty"`
}

// UpdateOutcome handles POST /api/decisions/{id}/outcome
func (h *RunHandler) UpdateOutcome(w http.ResponseWriter, r *http.Request) {
	var payload outcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	actuals := entities.RunActuals{
		Quality: payload.ActualQuality,
		CostUsd: payload.ActualCostUsd,
		TimeMs:  payload.ActualTimeMs,
	}
	result, err := h.generation.UpdateDecisionOutcome(r.Context(), r.PathValue("id"), actuals)
	if err != nil {
		respondWithError(w, statusFromError(err), "failed to update outcome")
		return
	}
	if result == nil {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "unknown_decision_ignored"})
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// GetRecommendations handles GET /api/clients/{id}/recommendations
func (h *RunHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	signals, err := h.generation.LearningRecommendations(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		respondWithError(w, statusFromError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"recommendations": signals,
		"count":           len(signals),
	})
}
