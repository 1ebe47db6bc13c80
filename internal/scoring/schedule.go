package scoring

import (
	"time"

	"github.com/hadimercer/meridian/internal/domain"
)

// elapsedPct returns how far through the project span today falls, as a
// percentage clamped to [0,100]. A zero or negative span counts as fully
// elapsed.
func elapsedPct(start, end, today time.Time) float64 {
	span := end.Sub(start)
	if span <= 0 {
		return 100
	}
	pct := float64(today.Sub(start)) / float64(span) * 100
	return clamp(pct, 0, 100)
}

// scheduleScore compares milestone completion against time elapsed. With no
// milestones there is nothing to assess, so the dimension scores 100.
func scheduleScore(ws domain.Workstream, milestones []domain.Milestone, p Params, today time.Time) float64 {
	if len(milestones) == 0 {
		return 100
	}
	complete := 0
	for _, m := range milestones {
		if m.Status == domain.MilestoneComplete {
			complete++
		}
	}
	completionPct := float64(complete) / float64(len(milestones)) * 100
	sv := completionPct - elapsedPct(ws.StartDate, ws.EndDate, today)
	score := bandScore(sv, p.Schedule)

	if p.OverduePenalty {
		for _, m := range milestones {
			if m.Status != domain.MilestoneComplete && m.DueDate.Before(today) {
				score -= 10
			}
		}
	}
	return clamp(score, 0, 100)
}
