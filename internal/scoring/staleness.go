package scoring

import (
	"time"

	"github.com/hadimercer/meridian/internal/domain"
)

// isStale reports whether no tracking fact has been touched within the
// staleness window. With no facts at all there is nothing to measure, so
// the workstream is not considered stale.
func isStale(milestones []domain.Milestone, spend []domain.SpendEntry, blockers []domain.Blocker, stalenessDays int, now time.Time) bool {
	var latest time.Time
	for _, m := range milestones {
		if m.UpdatedAt.After(latest) {
			latest = m.UpdatedAt
		}
	}
	for _, s := range spend {
		if s.CreatedAt.After(latest) {
			latest = s.CreatedAt
		}
	}
	for _, b := range blockers {
		if b.UpdatedAt.After(latest) {
			latest = b.UpdatedAt
		}
	}
	if latest.IsZero() {
		return false
	}
	return now.Sub(latest) > time.Duration(stalenessDays)*24*time.Hour
}
