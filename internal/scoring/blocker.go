package scoring

import (
	"time"

	"github.com/hadimercer/meridian/internal/domain"
)

// blockerScore scores open-blocker pressure from count and age. Two or more
// open blockers cap the score at 40 regardless of age. An external-party
// dependency takes a flat 10 off the raw score, floored at zero.
func blockerScore(blockers []domain.Blocker, p Params, today time.Time) float64 {
	var open []domain.Blocker
	for _, b := range blockers {
		if b.Status == domain.BlockerOpen {
			open = append(open, b)
		}
	}

	var score float64
	switch {
	case len(open) == 0:
		score = blockerScoreNone
	case len(open) >= 2:
		score = blockerScoreMultiple
	default:
		ageDays := int(today.Sub(open[0].DateRaised) / (24 * time.Hour))
		switch {
		case ageDays < p.BlockerRecentDays:
			score = blockerScoreRecent
		case ageDays <= p.BlockerAgingDays:
			score = blockerScoreAging
		default:
			score = blockerScoreOld
		}
	}

	if p.BlockerExternalPenalty {
		score -= blockerExternalPen
	}
	return clamp(score, 0, 100)
}
