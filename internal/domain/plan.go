package domain

import (
	"fmt"
	"strings"
)

// Plan is a totally-ordered billing tier. Ordering backs the upgrade and
// downgrade comparisons in the subscription engine.
type Plan int

const (
	PlanFree Plan = iota
	PlanTier1
	PlanTier2
	PlanTier3
)

// budgets and monthly costs are fixed, non-configurable at runtime.
var planBudgets = map[Plan]int64{
	PlanFree:  1_000_000,
	PlanTier1: 5_000_000,
	PlanTier2: 30_000_000,
	PlanTier3: 150_000_000,
}

var planCostCents = map[Plan]int64{
	PlanFree:  0,
	PlanTier1: 4_000,
	PlanTier2: 20_000,
	PlanTier3: 85_000,
}

var planNames = map[Plan]string{
	PlanFree:  "free",
	PlanTier1: "tier1",
	PlanTier2: "tier2",
	PlanTier3: "tier3",
}

// Budget returns the monthly call quota for the plan.
func (p Plan) Budget() int64 {
	return planBudgets[p]
}

// CostCents returns the monthly cost of the plan in USD cents.
func (p Plan) CostCents() int64 {
	return planCostCents[p]
}

// String returns the lowercase wire representation of the plan.
func (p Plan) String() string {
	if name, ok := planNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParsePlan parses the lowercase wire representation of a plan, case-insensitive.
func ParsePlan(s string) (Plan, error) {
	switch strings.ToLower(s) {
	case "free":
		return PlanFree, nil
	case "tier1":
		return PlanTier1, nil
	case "tier2":
		return PlanTier2, nil
	case "tier3":
		return PlanTier3, nil
	default:
		return 0, fmt.Errorf("unknown plan %q", s)
	}
}
