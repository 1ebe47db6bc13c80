package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hadimercer/meridian/internal/domain"
)

func TestResolveDefaults(t *testing.T) {
	p := DefaultBaselines().Resolve(domain.WizardConfig{})

	assert.Equal(t, Cutoffs{GreenMin: -10, AmberMin: -25}, p.Schedule)
	assert.Equal(t, Cutoffs{GreenMin: -5, AmberMin: -15}, p.Budget)
	assert.Equal(t, 3, p.BlockerRecentDays)
	assert.Equal(t, 7, p.BlockerAgingDays)
	assert.Equal(t, Weights{Schedule: 0.40, Budget: 0.35, Blocker: 0.25}, p.Weights)
	assert.Equal(t, 8, p.StalenessDays)
	assert.False(t, p.BudgetWaived)
	assert.False(t, p.BlockerExternalPenalty)
	assert.False(t, p.OverduePenalty)
}

func TestResolveDeadlineNature(t *testing.T) {
	b := DefaultBaselines()

	p := b.Resolve(domain.WizardConfig{DeadlineNature: domain.DeadlineHardContractual})
	assert.Equal(t, Cutoffs{GreenMin: -5, AmberMin: -15}, p.Schedule)

	p = b.Resolve(domain.WizardConfig{DeadlineNature: domain.DeadlineOngoing})
	assert.Equal(t, Cutoffs{GreenMin: -20, AmberMin: -40}, p.Schedule)
	// 0.10/0.35/0.25 renormalized
	assert.InDelta(t, 0.10/0.70, p.Weights.Schedule, 1e-9)
	assert.InDelta(t, 0.35/0.70, p.Weights.Budget, 1e-9)
	assert.InDelta(t, 0.25/0.70, p.Weights.Blocker, 1e-9)
}

func TestResolveBudgetExposure(t *testing.T) {
	b := DefaultBaselines()

	p := b.Resolve(domain.WizardConfig{BudgetExposure: domain.BudgetClientBillable})
	assert.Equal(t, Cutoffs{GreenMin: -3, AmberMin: -10}, p.Budget)
	assert.InDelta(t, 0.45/1.10, p.Weights.Budget, 1e-9)

	p = b.Resolve(domain.WizardConfig{BudgetExposure: domain.BudgetInformalNone})
	assert.True(t, p.BudgetWaived)
	assert.InDelta(t, 0.05/0.70, p.Weights.Budget, 1e-9)
}

func TestResolveDependencyLevel(t *testing.T) {
	p := DefaultBaselines().Resolve(domain.WizardConfig{DependencyLevel: domain.DependencyBlockedExternal})

	// integer halving: 3 -> 1, 7 -> 3
	assert.Equal(t, 1, p.BlockerRecentDays)
	assert.Equal(t, 3, p.BlockerAgingDays)
	assert.True(t, p.BlockerExternalPenalty)
}

func TestResolvePhase(t *testing.T) {
	b := DefaultBaselines()

	p := b.Resolve(domain.WizardConfig{Phase: domain.PhaseReviewClosing})
	assert.Equal(t, -10.0, p.Schedule.GreenMin)
	assert.True(t, p.OverduePenalty)

	p = b.Resolve(domain.WizardConfig{Phase: domain.PhaseDiscovery})
	assert.Equal(t, -20.0, p.Budget.AmberMin)
}

func TestResolvePhaseOverridesDeadline(t *testing.T) {
	// review_closing replaces whatever step 1 set, it does not add
	p := DefaultBaselines().Resolve(domain.WizardConfig{
		DeadlineNature: domain.DeadlineOngoing,
		Phase:          domain.PhaseReviewClosing,
	})
	assert.Equal(t, -10.0, p.Schedule.GreenMin)
	assert.Equal(t, -40.0, p.Schedule.AmberMin)
}

func TestResolveRiskLevel(t *testing.T) {
	b := DefaultBaselines()

	p := b.Resolve(domain.WizardConfig{RiskLevel: domain.RiskHigh})
	assert.Equal(t, Cutoffs{GreenMin: -5, AmberMin: -20}, p.Schedule)
	assert.Equal(t, Cutoffs{GreenMin: 0, AmberMin: -10}, p.Budget)
	assert.Equal(t, 8, p.StalenessDays)

	p = b.Resolve(domain.WizardConfig{RiskLevel: domain.RiskCritical})
	assert.Equal(t, Cutoffs{GreenMin: 0, AmberMin: -15}, p.Schedule)
	assert.Equal(t, Cutoffs{GreenMin: 5, AmberMin: -5}, p.Budget)
	assert.Equal(t, 4, p.StalenessDays)
}

func TestResolveRiskAppliesAfterPhase(t *testing.T) {
	// risk shifts are additive on top of the phase override
	p := DefaultBaselines().Resolve(domain.WizardConfig{
		Phase:     domain.PhaseReviewClosing,
		RiskLevel: domain.RiskHigh,
	})
	assert.Equal(t, -5.0, p.Schedule.GreenMin)
}

func TestResolveStalenessWindows(t *testing.T) {
	b := DefaultBaselines()

	cases := map[domain.UpdateFrequency]int{
		domain.UpdateDaily:    2,
		domain.UpdateWeekly:   8,
		domain.UpdateBiweekly: 16,
		domain.UpdateMonthly:  35,
		"":                    8,
	}
	for freq, want := range cases {
		p := b.Resolve(domain.WizardConfig{UpdateFrequency: freq})
		assert.Equal(t, want, p.StalenessDays, "freq %q", freq)
	}

	// critical risk halves whatever window the frequency picked
	p := b.Resolve(domain.WizardConfig{
		UpdateFrequency: domain.UpdateMonthly,
		RiskLevel:       domain.RiskCritical,
	})
	assert.Equal(t, 17, p.StalenessDays)
}

func TestResolveWeightsAlwaysSumToOne(t *testing.T) {
	b := DefaultBaselines()
	deadlines := []domain.DeadlineNature{"", domain.DeadlineHardContractual, domain.DeadlineSelfImposed, domain.DeadlineOngoing}
	budgets := []domain.BudgetExposure{"", domain.BudgetApprovedInternal, domain.BudgetClientBillable, domain.BudgetInformalNone}

	for _, dn := range deadlines {
		for _, be := range budgets {
			p := b.Resolve(domain.WizardConfig{DeadlineNature: dn, BudgetExposure: be})
			sum := p.Weights.Schedule + p.Weights.Budget + p.Weights.Blocker
			assert.InDelta(t, 1.0, sum, 1e-9, "deadline %q budget %q", dn, be)
		}
	}
}
