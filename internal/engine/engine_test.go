package engine_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hadimercer/meridian/internal/db"
	"github.com/hadimercer/meridian/internal/domain"
	"github.com/hadimercer/meridian/internal/engine"
	"github.com/hadimercer/meridian/internal/migrate"
	"github.com/hadimercer/meridian/internal/repo"
	"github.com/hadimercer/meridian/internal/scoring"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

var testClock = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	zap.ReplaceGlobals(zap.NewNop())
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, scoring.DefaultBaselines())
	eng.Now = func() time.Time { return testClock }
	eng.Events.Now = eng.Now
	eng.Scorer.Now = eng.Now
	eng.Scorer.Today = func() time.Time { return testClock.Truncate(24 * time.Hour) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func createWorkstream(t *testing.T, env testEnv) domain.Workstream {
	t.Helper()
	budget := 1000.0
	ws, err := env.Engine.CreateWorkstream(env.Ctx, engine.WorkstreamCreateOptions{
		Name:          "Platform migration",
		StartDate:     testClock.AddDate(0, 0, -10),
		EndDate:       testClock.AddDate(0, 0, 10),
		PlannedBudget: &budget,
		OwnerID:       "owner-1",
		ActorID:       "tester",
	})
	if err != nil {
		t.Fatalf("create workstream: %v", err)
	}
	return ws
}

func TestCreateWorkstreamValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Engine.CreateWorkstream(env.Ctx, engine.WorkstreamCreateOptions{
		StartDate: testClock, EndDate: testClock.AddDate(0, 1, 0), ActorID: "tester",
	})
	if err == nil {
		t.Fatalf("expected name required error")
	}
	_, err = env.Engine.CreateWorkstream(env.Ctx, engine.WorkstreamCreateOptions{
		Name: "x", StartDate: testClock, EndDate: testClock.AddDate(0, -1, 0), ActorID: "tester",
	})
	if err == nil {
		t.Fatalf("expected end-after-start error")
	}
	bad := -5.0
	_, err = env.Engine.CreateWorkstream(env.Ctx, engine.WorkstreamCreateOptions{
		Name: "x", StartDate: testClock, EndDate: testClock.AddDate(0, 1, 0), PlannedBudget: &bad, ActorID: "tester",
	})
	if err == nil {
		t.Fatalf("expected negative budget error")
	}
}

func TestCreateWorkstreamScoresImmediately(t *testing.T) {
	env := newTestEnv(t)
	ws := createWorkstream(t, env)

	score, err := env.Engine.Repo.GetRagScore(env.Ctx, ws.ID)
	if err != nil {
		t.Fatalf("expected score row after create: %v", err)
	}
	if score.RagStatus != domain.RagGreen {
		t.Fatalf("fresh workstream should be green, got %+v", score)
	}
}

func TestCreateWorkstreamWithWizard(t *testing.T) {
	env := newTestEnv(t)
	ws, err := env.Engine.CreateWorkstream(env.Ctx, engine.WorkstreamCreateOptions{
		Name:      "Audit readiness",
		StartDate: testClock.AddDate(0, 0, -5),
		EndDate:   testClock.AddDate(0, 1, 0),
		OwnerID:   "owner-1",
		ActorID:   "tester",
		Wizard: &domain.WizardConfig{
			DependencyLevel: domain.DependencyBlockedExternal,
			Phase:           domain.PhaseDiscovery,
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ws.Phase != domain.PhaseDiscovery {
		t.Fatalf("expected phase from wizard, got %q", ws.Phase)
	}

	score, err := env.Engine.Repo.GetRagScore(env.Ctx, ws.ID)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	// blocked_external docks the blocker dimension even with no blockers
	if score.BlockerScore != 90 {
		t.Fatalf("expected external penalty in score, got %v", score.BlockerScore)
	}
}

func TestWizardRejectsUnknownAnswer(t *testing.T) {
	env := newTestEnv(t)
	ws := createWorkstream(t, env)

	_, err := env.Engine.ConfigureWizard(env.Ctx, ws.ID, domain.WizardConfig{RiskLevel: "apocalyptic"}, "tester")
	if err == nil {
		t.Fatalf("expected enum validation error")
	}
}

func TestConfigureWizardRescoresAndSyncsPhase(t *testing.T) {
	env := newTestEnv(t)
	ws := createWorkstream(t, env)
	if _, err := env.Engine.AddSpend(env.Ctx, engine.SpendCreateOptions{
		WorkstreamID: ws.ID, Amount: 5000, ActorID: "tester",
	}); err != nil {
		t.Fatalf("spend: %v", err)
	}

	before, _ := env.Engine.Repo.GetRagScore(env.Ctx, ws.ID)
	if before.BudgetScore == 100 {
		t.Fatalf("overspend should have hurt the budget score")
	}

	wiz, err := env.Engine.ConfigureWizard(env.Ctx, ws.ID, domain.WizardConfig{
		BudgetExposure: domain.BudgetInformalNone,
		Phase:          domain.PhaseInFlight,
	}, "tester")
	if err != nil {
		t.Fatalf("configure wizard: %v", err)
	}
	if wiz.ConfiguredBy != "tester" {
		t.Fatalf("expected actor recorded, got %q", wiz.ConfiguredBy)
	}

	after, _ := env.Engine.Repo.GetRagScore(env.Ctx, ws.ID)
	if after.BudgetScore != 100 {
		t.Fatalf("waived budget should score 100, got %v", after.BudgetScore)
	}
	got, _ := env.Engine.Repo.GetWorkstream(env.Ctx, ws.ID)
	if got.Phase != domain.PhaseInFlight {
		t.Fatalf("expected workstream phase synced, got %q", got.Phase)
	}
}

func TestMilestoneLifecycleRescores(t *testing.T) {
	env := newTestEnv(t)
	ws := createWorkstream(t, env)

	m, err := env.Engine.AddMilestone(env.Ctx, engine.MilestoneCreateOptions{
		WorkstreamID: ws.ID,
		Title:        "Design sign-off",
		DueDate:      testClock.AddDate(0, 0, 5),
		ActorID:      "tester",
	})
	if err != nil {
		t.Fatalf("add milestone: %v", err)
	}
	if m.Status != domain.MilestoneNotStarted {
		t.Fatalf("expected default status, got %q", m.Status)
	}

	// halfway elapsed with zero complete: schedule drops out of green
	score, _ := env.Engine.Repo.GetRagScore(env.Ctx, ws.ID)
	if score.ScheduleScore == 100 {
		t.Fatalf("expected schedule pressure, got %+v", score)
	}

	done := domain.MilestoneComplete
	if _, err := env.Engine.UpdateMilestone(env.Ctx, m.ID, repo.MilestoneUpdate{Status: &done}, "tester"); err != nil {
		t.Fatalf("update milestone: %v", err)
	}
	score, _ = env.Engine.Repo.GetRagScore(env.Ctx, ws.ID)
	if score.ScheduleScore != 100 {
		t.Fatalf("expected schedule recovery, got %+v", score)
	}

	if err := env.Engine.DeleteMilestone(env.Ctx, m.ID, "tester"); err != nil {
		t.Fatalf("delete milestone: %v", err)
	}
	if _, err := env.Engine.Repo.GetMilestone(env.Ctx, m.ID); err != repo.ErrNotFound {
		t.Fatalf("expected milestone gone, got %v", err)
	}

	bad := domain.MilestoneStatus("paused")
	if _, err := env.Engine.AddMilestone(env.Ctx, engine.MilestoneCreateOptions{
		WorkstreamID: ws.ID, Title: "x", DueDate: testClock, Status: bad, ActorID: "tester",
	}); err == nil {
		t.Fatalf("expected unknown status error")
	}
}

func TestBlockerLifecycleRescores(t *testing.T) {
	env := newTestEnv(t)
	ws := createWorkstream(t, env)

	b, err := env.Engine.LogBlocker(env.Ctx, engine.BlockerCreateOptions{
		WorkstreamID: ws.ID,
		Title:        "Waiting on vendor",
		DateRaised:   testClock.AddDate(0, 0, -5),
		ActorID:      "tester",
	})
	if err != nil {
		t.Fatalf("log blocker: %v", err)
	}
	score, _ := env.Engine.Repo.GetRagScore(env.Ctx, ws.ID)
	if score.BlockerScore != 55 {
		t.Fatalf("expected aging blocker score, got %v", score.BlockerScore)
	}

	resolved, err := env.Engine.ResolveBlocker(env.Ctx, b.ID, "tester")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != domain.BlockerResolved {
		t.Fatalf("expected resolved, got %q", resolved.Status)
	}
	score, _ = env.Engine.Repo.GetRagScore(env.Ctx, ws.ID)
	if score.BlockerScore != 100 {
		t.Fatalf("expected recovery after resolve, got %v", score.BlockerScore)
	}

	// resolving again is a no-op, not an error
	if _, err := env.Engine.ResolveBlocker(env.Ctx, b.ID, "tester"); err != nil {
		t.Fatalf("re-resolve: %v", err)
	}
}

func TestAddSpendRejectsNegative(t *testing.T) {
	env := newTestEnv(t)
	ws := createWorkstream(t, env)
	if _, err := env.Engine.AddSpend(env.Ctx, engine.SpendCreateOptions{
		WorkstreamID: ws.ID, Amount: -1, ActorID: "tester",
	}); err == nil {
		t.Fatalf("expected negative amount error")
	}
}

func TestFactsRequireExistingWorkstream(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.AddMilestone(env.Ctx, engine.MilestoneCreateOptions{
		WorkstreamID: "ghost", Title: "x", DueDate: testClock, ActorID: "tester",
	})
	if err != repo.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = env.Engine.AddSpend(env.Ctx, engine.SpendCreateOptions{WorkstreamID: "ghost", Amount: 1, ActorID: "tester"})
	if err != repo.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = env.Engine.LogBlocker(env.Ctx, engine.BlockerCreateOptions{WorkstreamID: "ghost", Title: "x", ActorID: "tester"})
	if err != repo.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestArchiveHidesFromListings(t *testing.T) {
	env := newTestEnv(t)
	ws := createWorkstream(t, env)

	if err := env.Engine.ArchiveWorkstream(env.Ctx, ws.ID, "tester"); err != nil {
		t.Fatalf("archive: %v", err)
	}
	listed, err := env.Engine.Repo.ListWorkstreams(env.Ctx, repo.WorkstreamFilters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected archived workstream hidden, got %d", len(listed))
	}
	listed, err = env.Engine.Repo.ListWorkstreams(env.Ctx, repo.WorkstreamFilters{IncludeArchived: true})
	if err != nil || len(listed) != 1 {
		t.Fatalf("expected archived workstream listed with flag, got %d (%v)", len(listed), err)
	}
}

func TestEventAppendOnStateChanges(t *testing.T) {
	env := newTestEnv(t)
	ws := createWorkstream(t, env)
	m, _ := env.Engine.AddMilestone(env.Ctx, engine.MilestoneCreateOptions{
		WorkstreamID: ws.ID, Title: "m", DueDate: testClock.AddDate(0, 0, 1), ActorID: "tester",
	})
	done := domain.MilestoneComplete
	_, _ = env.Engine.UpdateMilestone(env.Ctx, m.ID, repo.MilestoneUpdate{Status: &done}, "tester")

	events, err := env.Engine.Repo.LatestEvents(env.Ctx, 50, ws.ID, "")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	types := map[string]bool{}
	for _, ev := range events {
		types[ev.Type] = true
		if ev.ActorID != "tester" {
			t.Fatalf("expected actor on event, got %+v", ev)
		}
	}
	for _, want := range []string{"workstream.created", "milestone.added", "milestone.updated"} {
		if !types[want] {
			t.Fatalf("missing event %s in %v", want, types)
		}
	}
}
