package scoring

import "github.com/hadimercer/meridian/internal/domain"

// Resolve applies the wizard answers to the baselines and returns the
// resolved parameter set for one calculation. Unset answers leave the
// baseline untouched.
//
// Step order is load-bearing. Steps 1 and 4 OVERRIDE cutoff values (step 4's
// schedule green cutoff replaces whatever step 1 set, it does not add);
// step 5 is ADDITIVE on top of whatever the earlier steps produced. Weight
// renormalization always runs last.
func (b Baselines) Resolve(w domain.WizardConfig) Params {
	p := Params{
		Schedule:          b.Schedule,
		Budget:            b.Budget,
		BlockerRecentDays: b.BlockerRecentDays,
		BlockerAgingDays:  b.BlockerAgingDays,
		Weights:           b.Weights,
		StalenessDays:     b.stalenessFor(w.UpdateFrequency),
	}

	// Step 1: deadline nature (q2).
	switch w.DeadlineNature {
	case domain.DeadlineHardContractual:
		p.Schedule = Cutoffs{GreenMin: -5, AmberMin: -15}
	case domain.DeadlineOngoing:
		p.Schedule = Cutoffs{GreenMin: -20, AmberMin: -40}
		p.Weights.Schedule = 0.10
	}

	// Step 2: budget exposure (q4).
	switch w.BudgetExposure {
	case domain.BudgetClientBillable:
		p.Weights.Budget = 0.45
		p.Budget = Cutoffs{GreenMin: -3, AmberMin: -10}
	case domain.BudgetInformalNone:
		p.Weights.Budget = 0.05
		p.BudgetWaived = true
	}

	// Step 3: dependency level (q5). Day cutoffs halve with integer
	// truncation (3→1, 7→3).
	if w.DependencyLevel == domain.DependencyBlockedExternal {
		p.BlockerRecentDays /= 2
		p.BlockerAgingDays /= 2
		p.BlockerExternalPenalty = true
	}

	// Step 4: project phase (q7). review_closing hard-overrides the
	// schedule green cutoff regardless of step 1.
	switch w.Phase {
	case domain.PhaseReviewClosing:
		p.Schedule.GreenMin = -10
		p.OverduePenalty = true
	case domain.PhaseDiscovery:
		p.Budget.AmberMin = -20
	}

	// Step 5: risk level (q6), applied last as a global compression of all
	// four schedule/budget cutoffs.
	switch w.RiskLevel {
	case domain.RiskHigh:
		p.Schedule.GreenMin += 5
		p.Schedule.AmberMin += 5
		p.Budget.GreenMin += 5
		p.Budget.AmberMin += 5
	case domain.RiskCritical:
		p.Schedule.GreenMin += 10
		p.Schedule.AmberMin += 10
		p.Budget.GreenMin += 10
		p.Budget.AmberMin += 10
		p.StalenessDays /= 2
	}

	// Step 6: renormalize weights to sum exactly 1.0.
	if sum := p.Weights.Schedule + p.Weights.Budget + p.Weights.Blocker; sum > 0 {
		p.Weights.Schedule /= sum
		p.Weights.Budget /= sum
		p.Weights.Blocker /= sum
	}
	return p
}
