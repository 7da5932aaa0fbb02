package entities

// RouteBatch groups batch items that resolved to the same route.
type RouteBatch struct {
	Route     RouteType `json:"route"`
	Indices   []int     `json:"indices"`
	TotalCost float64   `json:"total_cost"`
}

// BatchPlan is the planner's output for a set of requests under a budget.
type BatchPlan struct {
	Batches          []RouteBatch `json:"batches"`
	TotalCostUsd     float64      `json:"total_cost_usd"`
	TotalTimeMinutes float64      `json:"total_time_minutes"`
}
