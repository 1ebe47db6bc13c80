package scoring

import "github.com/hadimercer/meridian/internal/domain"

// composite combines the three sub-scores with renormalized weights and
// derives the tri-state status from the fixed 70/40 thresholds.
func composite(schedule, budget, blocker float64, w Weights) (float64, domain.RagStatus) {
	score := schedule*w.Schedule + budget*w.Budget + blocker*w.Blocker
	score = clamp(score, 0, 100)
	switch {
	case score >= compositeGreenMin:
		return score, domain.RagGreen
	case score >= compositeAmberMin:
		return score, domain.RagAmber
	default:
		return score, domain.RagRed
	}
}
