package scoring

import (
	"time"

	"github.com/hadimercer/meridian/internal/domain"
)

// budgetScore compares actual spend against the planned spend to date.
// Untracked budgets (informal exposure, nil or zero plan) score 100
// regardless of spend.
func budgetScore(ws domain.Workstream, entries []domain.SpendEntry, p Params, today time.Time) float64 {
	if p.BudgetWaived || ws.PlannedBudget == nil || *ws.PlannedBudget == 0 {
		return 100
	}
	var actual float64
	for _, e := range entries {
		actual += e.Amount
	}
	plannedToDate := *ws.PlannedBudget * elapsedPct(ws.StartDate, ws.EndDate, today) / 100
	bv := (plannedToDate - actual) / *ws.PlannedBudget * 100
	return clamp(bandScore(bv, p.Budget), 0, 100)
}
