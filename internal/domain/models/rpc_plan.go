package models

import (
	"time"

	"github.com/shamank/rpc-gateway/internal/domain"
)

// RpcPlan is the billing state for a customer, 1:1 with Customer by email.
type RpcPlan struct {
	Email       string
	Plan        domain.Plan
	Calls       int64
	Created     time.Time
	Expires     time.Time
	DowngradeTo *domain.Plan
}

// IsExpired reports whether the cycle has lapsed as of now.
func (p *RpcPlan) IsExpired(now time.Time) bool {
	return !now.Before(p.Expires)
}

// OverBudget reports whether calls strictly exceed the plan's budget. Equal
// to budget is still allowed; only strictly over denies the call.
func (p *RpcPlan) OverBudget() bool {
	return p.Calls > p.Plan.Budget()
}
