package services

import (
	"github.com/contentloop/contentloop/internal/domain/entities"
	"github.com/contentloop/contentloop/pkg/errors"
)

// batchSwitchOverheadMinutes is the coordination cost added for each
// additional route batch in a plan.
const batchSwitchOverheadMinutes = 5.0

// BatchPlannerService plans routing for a group of content requests under an
// optional shared budget. Pure, no I/O.
type BatchPlannerService struct {
	policy *RoutePolicyService
}

// NewBatchPlannerService creates a new batch planner.
func NewBatchPlannerService(policy *RoutePolicyService) *BatchPlannerService {
	return &BatchPlannerService{policy: policy}
}

// PlanBatch resolves each item statically, then downgrades items one at a
// time while the plan exceeds the budget: quality_max items first, then
// balanced items. Each downgrade recovers that item's own cost difference
// between its current and downgraded route for its content type. Items whose
// priority is critical are never downgraded. A plan that still exceeds the
// budget after every eligible downgrade is emitted anyway at the cheapest
// routing reached; callers compare TotalCostUsd against their budget.
func (s *BatchPlannerService) PlanBatch(contexts []entities.RoutingContext, budget *float64) (*entities.BatchPlan, error) {
	if len(contexts) == 0 {
		return nil, errors.NewValidationError("batch must contain at least one item")
	}

	routes := make([]entities.RouteType, len(contexts))
	costs := make([]float64, len(contexts))
	total := 0.0
	for i, reqCtx := range contexts {
		decision := s.policy.Resolve(reqCtx)
		routes[i] = decision.Route
		costs[i] = s.policy.Table().MetricsFor(decision.Route, reqCtx.ContentType).CostUsd
		total += costs[i]
	}

	if budget != nil && total > *budget {
		total = s.downgradeToBudget(contexts, routes, costs, total, *budget, entities.RouteQualityMax, entities.RouteBalanced)
		if total > *budget {
			total = s.downgradeToBudget(contexts, routes, costs, total, *budget, entities.RouteBalanced, entities.RouteEfficiencyMax)
		}
	}

	return s.assemble(contexts, routes, costs, total), nil
}

// downgradeToBudget moves items from one route to the next cheaper one until
// the running total fits the budget or no candidates remain. Returns the new
// total.
func (s *BatchPlannerService) downgradeToBudget(
	contexts []entities.RoutingContext,
	routes []entities.RouteType,
	costs []float64,
	total, budget float64,
	from, to entities.RouteType,
) float64 {
	for i := range contexts {
		if total <= budget {
			break
		}
		if routes[i] != from || contexts[i].ContentPriority == entities.PriorityCritical {
			continue
		}
		downgraded := s.policy.Table().MetricsFor(to, contexts[i].ContentType).CostUsd
		total -= costs[i] - downgraded
		routes[i] = to
		costs[i] = downgraded
	}
	return total
}

// assemble groups items by final route, preserving item order within each
// batch. Plan time assumes batches run sequentially with a fixed switch
// overhead between them, and each batch takes as long as its slowest item.
func (s *BatchPlannerService) assemble(contexts []entities.RoutingContext, routes []entities.RouteType, costs []float64, total float64) *entities.BatchPlan {
	grouped := make(map[entities.RouteType]*entities.RouteBatch)
	var order []entities.RouteType
	totalTime := 0.0

	for i := range contexts {
		batch, ok := grouped[routes[i]]
		if !ok {
			batch = &entities.RouteBatch{Route: routes[i]}
			grouped[routes[i]] = batch
			order = append(order, routes[i])
		}
		batch.Indices = append(batch.Indices, i)
		batch.TotalCost += costs[i]

		itemTime := s.policy.Table().MetricsFor(routes[i], contexts[i].ContentType).TimeMinutes
		if itemTime > totalTime {
			totalTime = itemTime
		}
	}

	plan := &entities.BatchPlan{
		TotalCostUsd:     total,
		TotalTimeMinutes: totalTime + batchSwitchOverheadMinutes*float64(len(order)-1),
	}
	for _, route := range order {
		plan.Batches = append(plan.Batches, *grouped[route])
	}
	return plan
}
