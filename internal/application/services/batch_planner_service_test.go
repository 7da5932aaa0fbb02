package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/contentloop/contentloop/internal/application/services"
	"github.com/contentloop/contentloop/internal/domain/entities"
	"github.com/contentloop/contentloop/pkg/errors"
)

func newBatchPlanner() *services.BatchPlannerService {
	return services.NewBatchPlannerService(newPolicyService())
}

func TestBatchPlannerService_PlanBatch(t *testing.T) {
	t.Run("empty batch is rejected", func(t *testing.T) {
		planner := newBatchPlanner()

		plan, err := planner.PlanBatch(nil, nil)

		assert.Nil(t, plan)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("without a budget items keep their static routes", func(t *testing.T) {
		planner := newBatchPlanner()

		contexts := []entities.RoutingContext{
			{ClientID: "c1", ClientTier: entities.TierEnterprise, ContentType: entities.ContentVideo},
			{ClientID: "c1", ClientTier: entities.TierStarter, ContentType: entities.ContentBlog},
		}

		plan, err := planner.PlanBatch(contexts, nil)

		assert.NoError(t, err)
		assert.Len(t, plan.Batches, 2)
		// quality_max video 15.00 plus efficiency_max blog 0.50
		assert.Equal(t, 15.50, plan.TotalCostUsd)
	})

	t.Run("tight budget downgrades quality_max items first", func(t *testing.T) {
		planner := newBatchPlanner()

		contexts := []entities.RoutingContext{
			{ClientID: "c1", ClientTier: entities.TierEnterprise, ContentType: entities.ContentVideo},
			{ClientID: "c1", ClientTier: entities.TierStandard, ContentType: entities.ContentBlog},
		}

		// Static total is 15.00 + 1.20; budget forces the video down to
		// balanced (8.00).
		budget := 10.0
		plan, err := planner.PlanBatch(contexts, &budget)

		assert.NoError(t, err)
		assert.Equal(t, 9.20, plan.TotalCostUsd)
		assert.Len(t, plan.Batches, 1)
		assert.Equal(t, entities.RouteBalanced, plan.Batches[0].Route)
		assert.ElementsMatch(t, []int{0, 1}, plan.Batches[0].Indices)
	})

	t.Run("critical items are never downgraded", func(t *testing.T) {
		planner := newBatchPlanner()

		contexts := []entities.RoutingContext{
			{ClientID: "c1", ClientTier: entities.TierEnterprise, ContentType: entities.ContentVideo, ContentPriority: entities.PriorityCritical},
			{ClientID: "c1", ClientTier: entities.TierEnterprise, ContentType: entities.ContentBlog},
		}

		// Only the blog item may move: quality_max blog 2.50 down to
		// balanced 1.20, leaving the critical video at 15.00.
		budget := 16.50
		plan, err := planner.PlanBatch(contexts, &budget)

		assert.NoError(t, err)
		assert.Equal(t, 16.20, plan.TotalCostUsd)
		for _, batch := range plan.Batches {
			for _, idx := range batch.Indices {
				if idx == 0 {
					assert.Equal(t, entities.RouteQualityMax, batch.Route)
				}
			}
		}
	})

	t.Run("over-budget plan is still emitted at the cheapest routing", func(t *testing.T) {
		planner := newBatchPlanner()

		contexts := []entities.RoutingContext{
			{ClientID: "c1", ClientTier: entities.TierEnterprise, ContentType: entities.ContentVideo},
		}

		// Even efficiency_max video (3.50) exceeds the budget; the plan is
		// emitted anyway so the caller can see the shortfall.
		budget := 1.0
		plan, err := planner.PlanBatch(contexts, &budget)

		assert.NoError(t, err)
		assert.Len(t, plan.Batches, 1)
		assert.Equal(t, entities.RouteEfficiencyMax, plan.Batches[0].Route)
		assert.Equal(t, 3.50, plan.TotalCostUsd)
		assert.Greater(t, plan.TotalCostUsd, budget)
	})

	t.Run("plan time covers the slowest item plus batch switch overhead", func(t *testing.T) {
		planner := newBatchPlanner()

		contexts := []entities.RoutingContext{
			{ClientID: "c1", ClientTier: entities.TierEnterprise, ContentType: entities.ContentVideo},
			{ClientID: "c1", ClientTier: entities.TierStarter, ContentType: entities.ContentSocial},
		}

		plan, err := planner.PlanBatch(contexts, nil)

		assert.NoError(t, err)
		// 45 minutes for the quality_max video, 5 more for the second batch.
		assert.Equal(t, 50.0, plan.TotalTimeMinutes)
	})
}
