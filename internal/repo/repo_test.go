package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hadimercer/meridian/internal/db"
	"github.com/hadimercer/meridian/internal/domain"
	"github.com/hadimercer/meridian/internal/events"
	"github.com/hadimercer/meridian/internal/migrate"
	"github.com/hadimercer/meridian/internal/repo"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) repo.Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	return repo.Repo{DB: conn}
}

func seedWorkstream(t *testing.T, r repo.Repo, id, owner string) domain.Workstream {
	t.Helper()
	budget := 1000.0
	w := domain.Workstream{
		ID:            id,
		Name:          "ws " + id,
		StartDate:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		PlannedBudget: &budget,
		OwnerID:       owner,
		Phase:         domain.PhaseInFlight,
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}
	require.NoError(t, r.InsertWorkstream(context.Background(), r.DB, w))
	return w
}

func TestWorkstreamRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	w := seedWorkstream(t, r, "ws-1", "owner-a")

	got, err := r.GetWorkstream(ctx, "ws-1")
	require.NoError(t, err)
	require.Equal(t, w.Name, got.Name)
	require.Equal(t, w.StartDate, got.StartDate)
	require.Equal(t, w.EndDate, got.EndDate)
	require.NotNil(t, got.PlannedBudget)
	require.Equal(t, 1000.0, *got.PlannedBudget)
	require.Equal(t, domain.PhaseInFlight, got.Phase)

	_, err = r.GetWorkstream(ctx, "ghost")
	require.True(t, errors.Is(err, repo.ErrNotFound))
}

func TestUpdateWorkstreamDynamicFields(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	seedWorkstream(t, r, "ws-1", "owner-a")

	name := "renamed"
	require.NoError(t, r.UpdateWorkstream(ctx, r.DB, "ws-1", repo.WorkstreamUpdate{Name: &name}, testNow.Add(time.Hour)))

	got, err := r.GetWorkstream(ctx, "ws-1")
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Name)
	require.NotNil(t, got.PlannedBudget)

	require.NoError(t, r.UpdateWorkstream(ctx, r.DB, "ws-1", repo.WorkstreamUpdate{ClearBudget: true}, testNow.Add(2*time.Hour)))
	got, err = r.GetWorkstream(ctx, "ws-1")
	require.NoError(t, err)
	require.Nil(t, got.PlannedBudget)

	// no fields set is a no-op, not an error
	require.NoError(t, r.UpdateWorkstream(ctx, r.DB, "ws-1", repo.WorkstreamUpdate{}, testNow))

	name = "nope"
	err = r.UpdateWorkstream(ctx, r.DB, "ghost", repo.WorkstreamUpdate{Name: &name}, testNow)
	require.True(t, errors.Is(err, repo.ErrNotFound))
}

func TestListWorkstreamsFilters(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	seedWorkstream(t, r, "ws-1", "owner-a")
	seedWorkstream(t, r, "ws-2", "owner-b")
	seedWorkstream(t, r, "ws-3", "owner-a")

	archived := true
	require.NoError(t, r.UpdateWorkstream(ctx, r.DB, "ws-3", repo.WorkstreamUpdate{IsArchived: &archived}, testNow))

	items, err := r.ListWorkstreams(ctx, repo.WorkstreamFilters{})
	require.NoError(t, err)
	require.Len(t, items, 2)

	items, err = r.ListWorkstreams(ctx, repo.WorkstreamFilters{OwnerID: "owner-a"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "ws-1", items[0].ID)

	items, err = r.ListWorkstreams(ctx, repo.WorkstreamFilters{IncludeArchived: true})
	require.NoError(t, err)
	require.Len(t, items, 3)
}

func TestWizardConfigUpsertReplaces(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	seedWorkstream(t, r, "ws-1", "owner-a")

	wiz := domain.WizardConfig{
		WorkstreamID:   "ws-1",
		DeadlineNature: domain.DeadlineHardContractual,
		RiskLevel:      domain.RiskMedium,
		ConfiguredBy:   "tester",
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
	}
	require.NoError(t, r.UpsertWizardConfig(ctx, r.DB, wiz))

	wiz.RiskLevel = domain.RiskCritical
	wiz.UpdatedAt = testNow.Add(time.Hour)
	require.NoError(t, r.UpsertWizardConfig(ctx, r.DB, wiz))

	got, err := r.GetWizardConfig(ctx, "ws-1")
	require.NoError(t, err)
	require.Equal(t, domain.RiskCritical, got.RiskLevel)
	require.Equal(t, domain.DeadlineHardContractual, got.DeadlineNature)
	require.Equal(t, "tester", got.ConfiguredBy)

	var count int
	require.NoError(t, r.DB.QueryRow(`SELECT COUNT(*) FROM wizard_configs WHERE workstream_id='ws-1'`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestWizardConfigRejectsUnknownAnswer(t *testing.T) {
	r := newTestRepo(t)
	seedWorkstream(t, r, "ws-1", "owner-a")

	wiz := domain.WizardConfig{
		WorkstreamID: "ws-1",
		RiskLevel:    domain.RiskLevel("apocalyptic"),
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}
	err := r.UpsertWizardConfig(context.Background(), r.DB, wiz)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown answer")
}

func TestRagScoreUpsertIdempotent(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	seedWorkstream(t, r, "ws-1", "owner-a")

	s := domain.RagScore{
		WorkstreamID:   "ws-1",
		ScheduleScore:  80,
		BudgetScore:    90,
		BlockerScore:   100,
		CompositeScore: 88.5,
		RagStatus:      domain.RagGreen,
		CalculatedAt:   testNow,
	}
	require.NoError(t, r.UpsertRagScore(ctx, s))

	s.ScheduleScore = 30
	s.CompositeScore = 55
	s.RagStatus = domain.RagAmber
	s.IsStale = true
	s.CalculatedAt = testNow.Add(time.Hour)
	require.NoError(t, r.UpsertRagScore(ctx, s))

	got, err := r.GetRagScore(ctx, "ws-1")
	require.NoError(t, err)
	require.Equal(t, s, got)

	var count int
	require.NoError(t, r.DB.QueryRow(`SELECT COUNT(*) FROM rag_scores WHERE workstream_id='ws-1'`).Scan(&count))
	require.Equal(t, 1, count)

	_, err = r.GetRagScore(ctx, "ghost")
	require.True(t, errors.Is(err, repo.ErrNotFound))
}

func TestListPortfolioWorstFirst(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	seedWorkstream(t, r, "ws-green", "owner-a")
	seedWorkstream(t, r, "ws-red", "owner-a")
	seedWorkstream(t, r, "ws-amber", "owner-a")
	seedWorkstream(t, r, "ws-unscored", "owner-a")

	for id, status := range map[string]domain.RagStatus{
		"ws-green": domain.RagGreen,
		"ws-red":   domain.RagRed,
		"ws-amber": domain.RagAmber,
	} {
		require.NoError(t, r.UpsertRagScore(ctx, domain.RagScore{
			WorkstreamID: id, RagStatus: status, CalculatedAt: testNow,
		}))
	}

	rows, err := r.ListPortfolio(ctx, "")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, "ws-red", rows[0].Workstream.ID)
	require.Equal(t, "ws-amber", rows[1].Workstream.ID)

	// green and unscored share the last bucket
	tail := []string{rows[2].Workstream.ID, rows[3].Workstream.ID}
	require.ElementsMatch(t, []string{"ws-green", "ws-unscored"}, tail)
	for _, row := range rows {
		if row.Workstream.ID == "ws-unscored" {
			require.Nil(t, row.Score)
		} else {
			require.NotNil(t, row.Score)
		}
	}
}

func TestGetScoringFactsMissingRows(t *testing.T) {
	r := newTestRepo(t)
	facts, err := r.GetScoringFacts(context.Background(), "ghost")
	require.NoError(t, err)
	require.Nil(t, facts.Workstream)
	require.Nil(t, facts.Wizard)
	require.Empty(t, facts.Milestones)
	require.Empty(t, facts.Spend)
	require.Empty(t, facts.Blockers)
}

func TestGetScoringFactsSnapshot(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	seedWorkstream(t, r, "ws-1", "owner-a")

	m := domain.Milestone{
		ID: "m-1", WorkstreamID: "ws-1", Title: "draft", Status: domain.MilestoneInProgress,
		DueDate: time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC), CreatedAt: testNow, UpdatedAt: testNow,
	}
	require.NoError(t, r.InsertMilestone(ctx, r.DB, m))
	require.NoError(t, r.InsertSpendEntry(ctx, r.DB, domain.SpendEntry{
		ID: "s-1", WorkstreamID: "ws-1", Amount: 250, CreatedAt: testNow,
	}))
	require.NoError(t, r.InsertBlocker(ctx, r.DB, domain.Blocker{
		ID: "b-1", WorkstreamID: "ws-1", Title: "waiting on vendor", Status: domain.BlockerOpen,
		DateRaised: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), CreatedAt: testNow, UpdatedAt: testNow,
	}))

	facts, err := r.GetScoringFacts(ctx, "ws-1")
	require.NoError(t, err)
	require.NotNil(t, facts.Workstream)
	require.Nil(t, facts.Wizard)
	require.Len(t, facts.Milestones, 1)
	require.Len(t, facts.Spend, 1)
	require.Len(t, facts.Blockers, 1)
	require.Equal(t, "draft", facts.Milestones[0].Title)
	require.Equal(t, 250.0, facts.Spend[0].Amount)
	require.Equal(t, domain.BlockerOpen, facts.Blockers[0].Status)
}

func TestMilestoneUpdateAndDelete(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	seedWorkstream(t, r, "ws-1", "owner-a")
	require.NoError(t, r.InsertMilestone(ctx, r.DB, domain.Milestone{
		ID: "m-1", WorkstreamID: "ws-1", Title: "draft", Status: domain.MilestoneNotStarted,
		DueDate: time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC), CreatedAt: testNow, UpdatedAt: testNow,
	}))

	complete := domain.MilestoneComplete
	require.NoError(t, r.UpdateMilestone(ctx, r.DB, "m-1", repo.MilestoneUpdate{Status: &complete}, testNow.Add(time.Hour)))

	got, err := r.GetMilestone(ctx, "m-1")
	require.NoError(t, err)
	require.Equal(t, domain.MilestoneComplete, got.Status)

	require.NoError(t, r.DeleteMilestone(ctx, r.DB, "m-1"))
	_, err = r.GetMilestone(ctx, "m-1")
	require.True(t, errors.Is(err, repo.ErrNotFound))
	err = r.DeleteMilestone(ctx, r.DB, "m-1")
	require.True(t, errors.Is(err, repo.ErrNotFound))
}

func TestBlockerStatusTransitions(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	seedWorkstream(t, r, "ws-1", "owner-a")
	require.NoError(t, r.InsertBlocker(ctx, r.DB, domain.Blocker{
		ID: "b-1", WorkstreamID: "ws-1", Title: "waiting", Status: domain.BlockerOpen,
		DateRaised: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), CreatedAt: testNow, UpdatedAt: testNow,
	}))

	require.NoError(t, r.SetBlockerStatus(ctx, r.DB, "b-1", domain.BlockerResolved, testNow.Add(time.Hour)))
	got, err := r.GetBlocker(ctx, "b-1")
	require.NoError(t, err)
	require.Equal(t, domain.BlockerResolved, got.Status)

	err = r.SetBlockerStatus(ctx, r.DB, "ghost", domain.BlockerResolved, testNow)
	require.True(t, errors.Is(err, repo.ErrNotFound))
}

func TestEventLogReads(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	seedWorkstream(t, r, "ws-1", "owner-a")
	seedWorkstream(t, r, "ws-2", "owner-a")

	w := events.Writer{DB: r.DB, Now: func() time.Time { return testNow }}
	emit := func(evtType, wsID string) {
		tx, err := r.DB.BeginTx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, w.Append(ctx, tx, evtType, wsID, "workstream", wsID, "tester", events.EventPayload{"k": "v"}))
		require.NoError(t, tx.Commit())
	}
	emit("workstream.created", "ws-1")
	emit("milestone.added", "ws-1")
	emit("workstream.created", "ws-2")

	all, err := r.LatestEvents(ctx, 10, "", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	// newest first
	require.Equal(t, "ws-2", all[0].WorkstreamID)

	filtered, err := r.LatestEvents(ctx, 10, "ws-1", "milestone.added")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	require.Equal(t, "milestone.added", filtered[0].Type)

	head, err := r.LatestEventID(ctx)
	require.NoError(t, err)
	require.Equal(t, all[0].ID, head)

	after, err := r.EventsAfter(ctx, 10, all[2].ID)
	require.NoError(t, err)
	require.Len(t, after, 2)
	require.Less(t, after[0].ID, after[1].ID)
}
