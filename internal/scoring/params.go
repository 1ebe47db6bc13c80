// Package scoring implements the RAG (red/amber/green) health evaluation for
// workstreams: three dimension sub-scores (schedule, budget, blocker), a
// weighted composite, a tri-state status, and a staleness flag. All scoring
// is deterministic over a snapshot of tracking facts plus the workstream's
// nine-answer wizard profile.
package scoring

import (
	"math"

	"github.com/hadimercer/meridian/internal/domain"
)

// Cutoffs are the green/amber variance thresholds for one dimension.
// GreenMin > AmberMin always; variance at or above GreenMin scores 100.
type Cutoffs struct {
	GreenMin float64 `json:"green_min"`
	AmberMin float64 `json:"amber_min"`
}

type Weights struct {
	Schedule float64 `json:"schedule"`
	Budget   float64 `json:"budget"`
	Blocker  float64 `json:"blocker"`
}

// Baselines carry the default thresholds, weights, and windows before any
// wizard modifier is applied. Construct a fresh value per call via
// DefaultBaselines; never mutate a shared instance — Resolve copies.
type Baselines struct {
	Schedule          Cutoffs
	Budget            Cutoffs
	BlockerRecentDays int
	BlockerAgingDays  int
	Weights           Weights

	// Staleness windows in days, keyed by the update-frequency answer.
	// DefaultStalenessDays applies when the answer is unset.
	StalenessDaily       int
	StalenessWeekly      int
	StalenessBiweekly    int
	StalenessMonthly     int
	DefaultStalenessDays int
}

// DefaultBaselines returns the stock threshold tables. All tuning lives
// here (or in the config file overrides) so adjustments never require
// touching scoring logic.
func DefaultBaselines() Baselines {
	return Baselines{
		Schedule:          Cutoffs{GreenMin: -10.0, AmberMin: -25.0},
		Budget:            Cutoffs{GreenMin: -5.0, AmberMin: -15.0},
		BlockerRecentDays: 3,
		BlockerAgingDays:  7,
		Weights:           Weights{Schedule: 0.40, Budget: 0.35, Blocker: 0.25},

		StalenessDaily:       2,
		StalenessWeekly:      8,
		StalenessBiweekly:    16,
		StalenessMonthly:     35,
		DefaultStalenessDays: 8,
	}
}

func (b Baselines) stalenessFor(freq domain.UpdateFrequency) int {
	switch freq {
	case domain.UpdateDaily:
		return b.StalenessDaily
	case domain.UpdateWeekly:
		return b.StalenessWeekly
	case domain.UpdateBiweekly:
		return b.StalenessBiweekly
	case domain.UpdateMonthly:
		return b.StalenessMonthly
	}
	return b.DefaultStalenessDays
}

// Composite thresholds are fixed and not wizard-modifiable.
const (
	compositeGreenMin = 70.0
	compositeAmberMin = 40.0
)

// Fixed blocker score table.
const (
	blockerScoreNone     = 100.0
	blockerScoreRecent   = 80.0
	blockerScoreAging    = 55.0
	blockerScoreOld      = 25.0
	blockerScoreMultiple = 40.0
	blockerExternalPen   = 10.0
)

// Params is the resolved parameter set for one calculation: baselines with
// all applicable wizard modifiers applied and weights renormalized.
type Params struct {
	Schedule          Cutoffs
	Budget            Cutoffs
	BlockerRecentDays int
	BlockerAgingDays  int
	Weights           Weights
	StalenessDays     int

	// Behavioral flags resolved from the wizard, consumed at scoring time.
	BudgetWaived           bool // q4 = informal_none: budget dimension short-circuits to 100
	BlockerExternalPenalty bool // q5 = blocked_external: flat -10 on the blocker sub-score
	OverduePenalty         bool // q7 = review_closing: -10 per overdue incomplete milestone
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// bandScore maps a signed variance onto [0,100] through two linear bands:
// at or above GreenMin → 100; [AmberMin, GreenMin) → [70,99];
// below AmberMin → clamp to -100 and map [-100, AmberMin) → [1,69].
func bandScore(v float64, c Cutoffs) float64 {
	if v >= c.GreenMin {
		return 100
	}
	if c.GreenMin <= c.AmberMin {
		// Degenerate cutoffs cannot arise from the shipped modifier table,
		// but config overrides are validated loosely enough to allow them.
		return 1
	}
	if v >= c.AmberMin {
		return 70 + (v-c.AmberMin)/(c.GreenMin-c.AmberMin)*29
	}
	if c.AmberMin <= -100 {
		return 1
	}
	v = clamp(v, -100, c.AmberMin)
	return 1 + (v+100)/(c.AmberMin+100)*68
}
