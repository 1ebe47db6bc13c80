package scoring

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hadimercer/meridian/internal/domain"
	"github.com/hadimercer/meridian/internal/repo"
)

// Engine runs RAG calculations and persists the result. Now and Today are
// injectable clocks: Now stamps calculated_at, Today anchors the date math
// (normally midnight UTC of the current day).
type Engine struct {
	Repo      repo.Repo
	Baselines Baselines
	Now       func() time.Time
	Today     func() time.Time
}

func New(db *sql.DB, b Baselines) *Engine {
	return &Engine{
		Repo:      repo.Repo{DB: db},
		Baselines: b,
		Now:       func() time.Time { return time.Now().UTC() },
		Today: func() time.Time {
			y, m, d := time.Now().UTC().Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		},
	}
}

// CalculateRAG evaluates one workstream and upserts its score row. It never
// returns an error: on any failure it falls back to the last persisted score,
// and failing that to a red, stale sentinel, so a dashboard render always has
// something to show.
func (e *Engine) CalculateRAG(ctx context.Context, workstreamID string) domain.RagScore {
	score, err := e.calculate(ctx, workstreamID)
	if err == nil {
		return score
	}
	zap.L().Error("rag calculation failed",
		zap.String("workstream_id", workstreamID),
		zap.Error(err))

	if prev, gerr := e.Repo.GetRagScore(ctx, workstreamID); gerr == nil {
		return prev
	} else if gerr != repo.ErrNotFound {
		zap.L().Error("rag fallback read failed",
			zap.String("workstream_id", workstreamID),
			zap.Error(gerr))
	}

	return domain.RagScore{
		WorkstreamID: workstreamID,
		RagStatus:    domain.RagRed,
		IsStale:      true,
		CalculatedAt: e.Now(),
	}
}

func (e *Engine) calculate(ctx context.Context, workstreamID string) (domain.RagScore, error) {
	facts, err := e.Repo.GetScoringFacts(ctx, workstreamID)
	if err != nil {
		return domain.RagScore{}, eris.Wrap(err, "scoring: load facts")
	}

	var ws domain.Workstream
	if facts.Workstream != nil {
		ws = *facts.Workstream
	}
	var wiz domain.WizardConfig
	if facts.Wizard != nil {
		wiz = *facts.Wizard
	}

	p := e.Baselines.Resolve(wiz)
	today := e.Today()

	score := domain.RagScore{
		WorkstreamID:  workstreamID,
		ScheduleScore: round2(scheduleScore(ws, facts.Milestones, p, today)),
		BudgetScore:   round2(budgetScore(ws, facts.Spend, p, today)),
		BlockerScore:  round2(blockerScore(facts.Blockers, p, today)),
		IsStale:       isStale(facts.Milestones, facts.Spend, facts.Blockers, p.StalenessDays, e.Now()),
		CalculatedAt:  e.Now(),
	}
	comp, status := composite(score.ScheduleScore, score.BudgetScore, score.BlockerScore, p.Weights)
	score.CompositeScore = round2(comp)
	score.RagStatus = status

	if err := e.Repo.UpsertRagScore(ctx, score); err != nil {
		return domain.RagScore{}, eris.Wrap(err, "scoring: persist score")
	}
	return score, nil
}
