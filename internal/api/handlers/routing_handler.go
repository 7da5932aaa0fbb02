package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/contentloop/contentloop/internal/application/services"
	"github.com/contentloop/contentloop/internal/domain/entities"
	"github.com/contentloop/contentloop/internal/infrastructure/observability"
	"github.com/contentloop/contentloop/pkg/errors"
)

// AdaptiveResolver resolves routes with learning applied.
type AdaptiveResolver interface {
	ResolveWithLearning(ctx context.Context, reqCtx entities.RoutingContext) (entities.RouteDecision, error)
}

// BatchPlanner plans routing for a group of requests under a budget.
type BatchPlanner interface {
	PlanBatch(contexts []entities.RoutingContext, budget *float64) (*entities.BatchPlan, error)
}

// RoutingHandler handles route resolution and batch planning.
type RoutingHandler struct {
	policy     *services.RoutePolicyService
	adaptive   AdaptiveResolver
	planner    BatchPlanner
	generation *services.GenerationService
}

// NewRoutingHandler creates a new routing handler.
func NewRoutingHandler(
	policy *services.RoutePolicyService,
	adaptive AdaptiveResolver,
	planner BatchPlanner,
	generation *services.GenerationService,
) *RoutingHandler {
	return &RoutingHandler{
		policy:     policy,
		adaptive:   adaptive,
		planner:    planner,
		generation: generation,
	}
}

type routingContextRequest struct {
	ClientID             string   `json:"client_id"`
	ClientTier           string   `json:"client_tier"`
	ContentType          string   `json:"content_type"`
	ContentPriority      string   `json:"content_priority"`
	Budget               string   `json:"budget,omitempty"`
	Deadline             *string  `json:"deadline,omitempty"`
	PreviousQualityScore *float64 `json:"previous_quality_score,omitempty"`
	IsFirstContent       bool     `json:"is_first_content,omitempty"`
	BatchSize            int      `json:"batch_size,omitempty"`
}

type routeRequest struct {
	routingContextRequest
	// RunID, when present, persists the decision against that run.
	RunID string `json:"run_id,omitempty"`
}

type batchPlanRequest struct {
	Items     []routingContextRequest `json:"items"`
	BudgetUsd *float64                `json:"budget_usd,omitempty"`
}

type routeResponse struct {
	Decision entities.RouteDecision `json:"decision"`
	// Degraded is set when learning data was unavailable and the decision
	// fell back to static policy.
	Degraded   bool   `json:"degraded,omitempty"`
	DecisionID string `json:"decision_id,omitempty"`
}

// ResolveRoute handles POST /api/route
func (h *RoutingHandler) ResolveRoute(w http.ResponseWriter, r *http.Request) {
	var payload routeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	reqCtx, err := payload.toRoutingContext()
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	decision := h.policy.Resolve(reqCtx)
	h.respondWithDecision(w, r, payload.RunID, reqCtx, decision, false)
}

// ResolveAdaptiveRoute handles POST /api/route/adaptive. When the signal
// store is unreachable the static decision is returned with degraded set.
func (h *RoutingHandler) ResolveAdaptiveRoute(w http.ResponseWriter, r *http.Request) {
	var payload routeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	reqCtx, err := payload.toRoutingContext()
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	degraded := false
	decision, err := h.adaptive.ResolveWithLearning(r.Context(), reqCtx)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).
			Str("client_id", reqCtx.ClientID).
			Msg("learning store unavailable, serving static decision")
		degraded = true
	}

	h.respondWithDecision(w, r, payload.RunID, reqCtx, decision, degraded)
}

// PlanBatch handles POST /api/batch/plan
func (h *RoutingHandler) PlanBatch(w http.ResponseWriter, r *http.Request) {
	var payload batchPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	contexts := make([]entities.RoutingContext, 0, len(payload.Items))
	for _, item := range payload.Items {
		reqCtx, err := item.toRoutingContext()
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		contexts = append(contexts, reqCtx)
	}

	plan, err := h.planner.PlanBatch(contexts, payload.BudgetUsd)
	if err != nil {
		if errors.IsValidation(err) {
			respondWithError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, "failed to plan batch")
		return
	}

	respondWithJSON(w, http.StatusOK, plan)
}

func (h *RoutingHandler) respondWithDecision(w http.ResponseWriter, r *http.Request, runID string, reqCtx entities.RoutingContext, decision entities.RouteDecision, degraded bool) {
	resp := routeResponse{Decision: decision, Degraded: degraded}

	if runID != "" {
		record, err := h.generation.RecordDecision(r.Context(), runID, reqCtx, decision)
		if err != nil {
			respondWithError(w, statusFromError(err), "failed to record decision")
			return
		}
		resp.DecisionID = record.ID
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (p routingContextRequest) toRoutingContext() (entities.RoutingContext, error) {
	reqCtx := entities.RoutingContext{
		ClientID:             strings.TrimSpace(p.ClientID),
		ClientTier:           entities.ClientTier(p.ClientTier),
		ContentType:          entities.ContentType(p.ContentType),
		ContentPriority:      entities.ContentPriority(p.ContentPriority),
		Budget:               entities.BudgetTier(p.Budget),
		PreviousQualityScore: p.PreviousQualityScore,
		IsFirstContent:       p.IsFirstContent,
		BatchSize:            p.BatchSize,
	}

	if reqCtx.ClientID == "" {
		return reqCtx, errors.NewValidationError("client_id is required")
	}
	if reqCtx.ClientTier == "" {
		return reqCtx, errors.NewValidationError("client_tier is required")
	}
	if reqCtx.ContentType == "" {
		return reqCtx, errors.NewValidationError("content_type is required")
	}

	if p.Deadline != nil && *p.Deadline != "" {
		deadline, err := time.Parse(time.RFC3339, *p.Deadline)
		if err != nil {
			return reqCtx, errors.NewValidationError("deadline must be RFC3339")
		}
		reqCtx.Deadline = &deadline
	}

	return reqCtx, nil
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

func statusFromError(err error) int {
	switch {
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
