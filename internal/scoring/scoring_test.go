package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hadimercer/meridian/internal/domain"
)

var (
	testToday = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	testNow   = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
)

func fixedParams() Params {
	return DefaultBaselines().Resolve(domain.WizardConfig{})
}

func ws(start, end time.Time) domain.Workstream {
	return domain.Workstream{ID: "ws-1", StartDate: start, EndDate: end}
}

func milestone(status domain.MilestoneStatus, due time.Time) domain.Milestone {
	return domain.Milestone{WorkstreamID: "ws-1", Status: status, DueDate: due}
}

func TestBandScore(t *testing.T) {
	c := Cutoffs{GreenMin: -10, AmberMin: -25}

	assert.Equal(t, 100.0, bandScore(0, c))
	assert.Equal(t, 100.0, bandScore(-10, c))
	assert.Equal(t, 70.0, bandScore(-25, c))
	// midpoint of the amber band
	assert.InDelta(t, 70+29.0/2, bandScore(-17.5, c), 1e-9)
	// deep red: -50 maps through the [-100, -25) band
	assert.InDelta(t, 1+50.0/75*68, bandScore(-50, c), 1e-9)
	// variance below -100 clamps, never goes under 1
	assert.InDelta(t, 1.0, bandScore(-500, c), 1e-9)
}

func TestBandScoreDegenerateCutoffs(t *testing.T) {
	assert.Equal(t, 1.0, bandScore(-5, Cutoffs{GreenMin: -10, AmberMin: -10}))
	assert.Equal(t, 1.0, bandScore(-150, Cutoffs{GreenMin: -10, AmberMin: -120}))
}

func TestElapsedPct(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC)

	assert.InDelta(t, 70.0, elapsedPct(start, end, testToday), 1e-9)
	assert.Equal(t, 0.0, elapsedPct(testToday, end, start))
	assert.Equal(t, 100.0, elapsedPct(start, end, end.AddDate(0, 1, 0)))
	// zero and inverted spans count as fully elapsed
	assert.Equal(t, 100.0, elapsedPct(start, start, testToday))
	assert.Equal(t, 100.0, elapsedPct(end, start, testToday))
}

func TestScheduleScoreNoMilestones(t *testing.T) {
	w := ws(testToday.AddDate(0, -1, 0), testToday.AddDate(0, 1, 0))
	assert.Equal(t, 100.0, scheduleScore(w, nil, fixedParams(), testToday))
}

func TestScheduleScoreOnTrack(t *testing.T) {
	// halfway through the span with half the milestones complete: SV = 0.
	w := ws(testToday.AddDate(0, 0, -10), testToday.AddDate(0, 0, 10))
	ms := []domain.Milestone{
		milestone(domain.MilestoneComplete, testToday.AddDate(0, 0, -5)),
		milestone(domain.MilestoneInProgress, testToday.AddDate(0, 0, 5)),
	}
	assert.Equal(t, 100.0, scheduleScore(w, ms, fixedParams(), testToday))
}

func TestScheduleScoreBehind(t *testing.T) {
	// fully elapsed, half complete: SV = -50 -> 1 + 50/75*68.
	w := ws(testToday.AddDate(0, 0, -20), testToday)
	ms := []domain.Milestone{
		milestone(domain.MilestoneComplete, testToday.AddDate(0, 0, -15)),
		milestone(domain.MilestoneNotStarted, testToday.AddDate(0, 0, -5)),
	}
	assert.InDelta(t, 46.333333, scheduleScore(w, ms, fixedParams(), testToday), 1e-4)
}

func TestScheduleScoreOverduePenalty(t *testing.T) {
	w := ws(testToday.AddDate(0, 0, -10), testToday.AddDate(0, 0, 10))
	ms := []domain.Milestone{
		milestone(domain.MilestoneComplete, testToday.AddDate(0, 0, -8)),
		milestone(domain.MilestoneInProgress, testToday.AddDate(0, 0, -3)),
	}
	p := fixedParams()
	base := scheduleScore(w, ms, p, testToday)

	p.OverduePenalty = true
	assert.InDelta(t, base-10, scheduleScore(w, ms, p, testToday), 1e-9)

	// a due date of exactly today is not overdue
	ms[1].DueDate = testToday
	assert.InDelta(t, base, scheduleScore(w, ms, p, testToday), 1e-9)
}

func TestBudgetScoreUntracked(t *testing.T) {
	w := ws(testToday.AddDate(0, 0, -10), testToday.AddDate(0, 0, 10))
	entries := []domain.SpendEntry{{Amount: 99999}}

	assert.Equal(t, 100.0, budgetScore(w, entries, fixedParams(), testToday))

	zero := 0.0
	w.PlannedBudget = &zero
	assert.Equal(t, 100.0, budgetScore(w, entries, fixedParams(), testToday))

	budget := 1000.0
	w.PlannedBudget = &budget
	p := fixedParams()
	p.BudgetWaived = true
	assert.Equal(t, 100.0, budgetScore(w, entries, p, testToday))
}

func TestBudgetScoreOnTrack(t *testing.T) {
	budget := 1000.0
	w := ws(testToday.AddDate(0, 0, -10), testToday.AddDate(0, 0, 10))
	w.PlannedBudget = &budget
	// halfway through, 400 of 500 planned-to-date spent: BV = +10
	entries := []domain.SpendEntry{{Amount: 250}, {Amount: 150}}
	assert.Equal(t, 100.0, budgetScore(w, entries, fixedParams(), testToday))
}

func TestBudgetScoreOverspend(t *testing.T) {
	budget := 1000.0
	w := ws(testToday.AddDate(0, 0, -10), testToday.AddDate(0, 0, 10))
	w.PlannedBudget = &budget
	// halfway through, 600 spent against 500 planned: BV = -10
	entries := []domain.SpendEntry{{Amount: 600}}
	// -10 sits mid amber band for cutoffs -5/-15
	assert.InDelta(t, 70+29.0/2, budgetScore(w, entries, fixedParams(), testToday), 1e-9)
}

func blocker(status domain.BlockerStatus, raised time.Time) domain.Blocker {
	return domain.Blocker{WorkstreamID: "ws-1", Status: status, DateRaised: raised}
}

func TestBlockerScore(t *testing.T) {
	p := fixedParams()

	assert.Equal(t, 100.0, blockerScore(nil, p, testToday))
	resolved := []domain.Blocker{blocker(domain.BlockerResolved, testToday.AddDate(0, 0, -30))}
	assert.Equal(t, 100.0, blockerScore(resolved, p, testToday))

	recent := []domain.Blocker{blocker(domain.BlockerOpen, testToday.AddDate(0, 0, -2))}
	assert.Equal(t, 80.0, blockerScore(recent, p, testToday))

	aging := []domain.Blocker{blocker(domain.BlockerOpen, testToday.AddDate(0, 0, -5))}
	assert.Equal(t, 55.0, blockerScore(aging, p, testToday))

	// age exactly at the aging cutoff still scores 55
	edge := []domain.Blocker{blocker(domain.BlockerOpen, testToday.AddDate(0, 0, -7))}
	assert.Equal(t, 55.0, blockerScore(edge, p, testToday))

	old := []domain.Blocker{blocker(domain.BlockerOpen, testToday.AddDate(0, 0, -10))}
	assert.Equal(t, 25.0, blockerScore(old, p, testToday))

	multiple := []domain.Blocker{
		blocker(domain.BlockerOpen, testToday.AddDate(0, 0, -1)),
		blocker(domain.BlockerOpen, testToday.AddDate(0, 0, -2)),
	}
	assert.Equal(t, 40.0, blockerScore(multiple, p, testToday))
}

func TestBlockerScoreExternalPenalty(t *testing.T) {
	p := fixedParams()
	p.BlockerExternalPenalty = true

	// even a clean slate takes the penalty
	assert.Equal(t, 90.0, blockerScore(nil, p, testToday))

	old := []domain.Blocker{blocker(domain.BlockerOpen, testToday.AddDate(0, 0, -20))}
	assert.Equal(t, 15.0, blockerScore(old, p, testToday))
}

func TestIsStale(t *testing.T) {
	days := 8

	assert.False(t, isStale(nil, nil, nil, days, testNow))

	fresh := []domain.Milestone{{UpdatedAt: testNow.AddDate(0, 0, -3)}}
	assert.False(t, isStale(fresh, nil, nil, days, testNow))

	stale := []domain.Milestone{{UpdatedAt: testNow.AddDate(0, 0, -9)}}
	assert.True(t, isStale(stale, nil, nil, days, testNow))

	// a newer spend entry rescues an otherwise stale workstream
	spend := []domain.SpendEntry{{CreatedAt: testNow.AddDate(0, 0, -1)}}
	assert.False(t, isStale(stale, spend, nil, days, testNow))

	blockers := []domain.Blocker{{UpdatedAt: testNow.AddDate(0, 0, -2)}}
	assert.False(t, isStale(stale, nil, blockers, days, testNow))
}

func TestComposite(t *testing.T) {
	w := DefaultBaselines().Weights

	score, status := composite(100, 100, 100, w)
	assert.Equal(t, 100.0, score)
	assert.Equal(t, domain.RagGreen, status)

	score, status = composite(50, 80, 60, w)
	assert.InDelta(t, 50*0.40+80*0.35+60*0.25, score, 1e-9)
	assert.Equal(t, domain.RagAmber, status)

	score, status = composite(85, 60, 90, w)
	assert.InDelta(t, 77.5, score, 1e-9)
	assert.Equal(t, domain.RagGreen, status)

	_, status = composite(20, 30, 25, w)
	assert.Equal(t, domain.RagRed, status)

	// boundary values land on the higher status
	score, status = composite(70, 70, 70, w)
	assert.Equal(t, 70.0, score)
	assert.Equal(t, domain.RagGreen, status)

	score, status = composite(40, 40, 40, w)
	assert.Equal(t, 40.0, score)
	assert.Equal(t, domain.RagAmber, status)
}
