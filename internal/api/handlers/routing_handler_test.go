package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/contentloop/contentloop/internal/api/handlers"
	"github.com/contentloop/contentloop/internal/application/services"
	"github.com/contentloop/contentloop/internal/domain/entities"
)

type stubAdaptiveResolver struct {
	decision entities.RouteDecision
	err      error
}

func (s *stubAdaptiveResolver) ResolveWithLearning(ctx context.Context, reqCtx entities.RoutingContext) (entities.RouteDecision, error) {
	return s.decision, s.err
}

func newRoutingHandler(adaptive handlers.AdaptiveResolver) *handlers.RoutingHandler {
	policy := services.NewRoutePolicyService(services.DefaultPolicyTable())
	planner := services.NewBatchPlannerService(policy)
	return handlers.NewRoutingHandler(policy, adaptive, planner, nil)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestRoutingHandler_ResolveRoute(t *testing.T) {
	t.Run("resolves a valid request", func(t *testing.T) {
		handler := newRoutingHandler(nil)

		rec := postJSON(t, handler.ResolveRoute, "/api/route", map[string]interface{}{
			"client_id":        "client-1",
			"client_tier":      "enterprise",
			"content_type":     "video",
			"content_priority": "critical",
		})

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Decision entities.RouteDecision `json:"decision"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, entities.RouteQualityMax, resp.Decision.Route)
	})

	t.Run("rejects a request without client_id", func(t *testing.T) {
		handler := newRoutingHandler(nil)

		rec := postJSON(t, handler.ResolveRoute, "/api/route", map[string]interface{}{
			"client_tier":  "starter",
			"content_type": "blog",
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects a malformed deadline", func(t *testing.T) {
		handler := newRoutingHandler(nil)

		rec := postJSON(t, handler.ResolveRoute, "/api/route", map[string]interface{}{
			"client_id":    "client-1",
			"client_tier":  "starter",
			"content_type": "blog",
			"deadline":     "tomorrow",
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRoutingHandler_ResolveAdaptiveRoute(t *testing.T) {
	t.Run("returns the adaptive decision", func(t *testing.T) {
		adaptive := &stubAdaptiveResolver{
			decision: entities.RouteDecision{Route: entities.RouteBalanced, Reason: "adjusted"},
		}
		handler := newRoutingHandler(adaptive)

		rec := postJSON(t, handler.ResolveAdaptiveRoute, "/api/route/adaptive", map[string]interface{}{
			"client_id":    "client-1",
			"client_tier":  "enterprise",
			"content_type": "blog",
		})

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Decision entities.RouteDecision `json:"decision"`
			Degraded bool                   `json:"degraded"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, entities.RouteBalanced, resp.Decision.Route)
		assert.False(t, resp.Degraded)
	})

	t.Run("serves the static decision when learning is unavailable", func(t *testing.T) {
		adaptive := &stubAdaptiveResolver{
			decision: entities.RouteDecision{Route: entities.RouteQualityMax, Reason: "default route for enterprise tier"},
			err:      assert.AnError,
		}
		handler := newRoutingHandler(adaptive)

		rec := postJSON(t, handler.ResolveAdaptiveRoute, "/api/route/adaptive", map[string]interface{}{
			"client_id":    "client-1",
			"client_tier":  "enterprise",
			"content_type": "blog",
		})

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Decision entities.RouteDecision `json:"decision"`
			Degraded bool                   `json:"degraded"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, entities.RouteQualityMax, resp.Decision.Route)
		assert.True(t, resp.Degraded)
	})
}

func TestRoutingHandler_PlanBatch(t *testing.T) {
	t.Run("plans a batch within budget", func(t *testing.T) {
		handler := newRoutingHandler(nil)

		rec := postJSON(t, handler.PlanBatch, "/api/batch/plan", map[string]interface{}{
			"items": []map[string]interface{}{
				{"client_id": "c1", "client_tier": "enterprise", "content_type": "video"},
				{"client_id": "c1", "client_tier": "standard", "content_type": "blog"},
			},
			"budget_usd": 10.0,
		})

		assert.Equal(t, http.StatusOK, rec.Code)

		var plan entities.BatchPlan
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
		assert.LessOrEqual(t, plan.TotalCostUsd, 10.0)
	})

	t.Run("returns the over-budget plan when downgrades cannot cover it", func(t *testing.T) {
		handler := newRoutingHandler(nil)

		rec := postJSON(t, handler.PlanBatch, "/api/batch/plan", map[string]interface{}{
			"items": []map[string]interface{}{
				{"client_id": "c1", "client_tier": "enterprise", "content_type": "video"},
			},
			"budget_usd": 0.10,
		})

		assert.Equal(t, http.StatusOK, rec.Code)

		var plan entities.BatchPlan
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
		assert.Len(t, plan.Batches, 1)
		assert.Equal(t, entities.RouteEfficiencyMax, plan.Batches[0].Route)
		assert.Greater(t, plan.TotalCostUsd, 0.10)
	})

	t.Run("rejects an empty batch", func(t *testing.T) {
		handler := newRoutingHandler(nil)

		rec := postJSON(t, handler.PlanBatch, "/api/batch/plan", map[string]interface{}{
			"items": []map[string]interface{}{},
		})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}
