package repo

import (
	"context"
	"database/sql"

	"github.com/hadimercer/meridian/internal/domain"
)

// UpsertRagScore replaces the single score row for a workstream. The write
// is an idempotent full replace; last writer wins.
func (r Repo) UpsertRagScore(ctx context.Context, s domain.RagScore) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO rag_scores(workstream_id,schedule_score,budget_score,blocker_score,composite_score,rag_status,is_stale,calculated_at)
VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT(workstream_id) DO UPDATE SET
    schedule_score=excluded.schedule_score,
    budget_score=excluded.budget_score,
    blocker_score=excluded.blocker_score,
    composite_score=excluded.composite_score,
    rag_status=excluded.rag_status,
    is_stale=excluded.is_stale,
    calculated_at=excluded.calculated_at`,
		s.WorkstreamID, s.ScheduleScore, s.BudgetScore, s.BlockerScore, s.CompositeScore,
		string(s.RagStatus), s.IsStale, fmtTime(s.CalculatedAt))
	return err
}

func (r Repo) GetRagScore(ctx context.Context, workstreamID string) (domain.RagScore, error) {
	var s domain.RagScore
	var status, calculatedAt string
	err := r.DB.QueryRowContext(ctx, `SELECT workstream_id,schedule_score,budget_score,blocker_score,composite_score,rag_status,is_stale,calculated_at
FROM rag_scores WHERE workstream_id=?`, workstreamID).
		Scan(&s.WorkstreamID, &s.ScheduleScore, &s.BudgetScore, &s.BlockerScore, &s.CompositeScore, &status, &s.IsStale, &calculatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	s.RagStatus = domain.RagStatus(status)
	s.CalculatedAt = parseTime(calculatedAt)
	return s, nil
}

// PortfolioRow is one workstream joined with its score, as the dashboard
// reads it. Score is nil for workstreams never scored.
type PortfolioRow struct {
	Workstream domain.Workstream `json:"workstream"`
	Score      *domain.RagScore  `json:"score,omitempty"`
}

// ListPortfolio returns active workstreams with their scores, worst status
// first (red, amber, green, unscored last within status by recency).
func (r Repo) ListPortfolio(ctx context.Context, ownerID string) ([]PortfolioRow, error) {
	clauses := "w.is_archived=0"
	var args []any
	if ownerID != "" {
		clauses += " AND w.owner_id=?"
		args = append(args, ownerID)
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT w.id,w.name,COALESCE(w.description,'') AS description,w.start_date,w.end_date,w.planned_budget,w.owner_id,COALESCE(w.phase,'') AS phase,w.is_archived,w.created_at,w.updated_at,
    r.workstream_id,r.schedule_score,r.budget_score,r.blocker_score,r.composite_score,r.rag_status,r.is_stale,r.calculated_at
FROM workstreams w
LEFT JOIN rag_scores r ON r.workstream_id = w.id
WHERE `+clauses+`
ORDER BY CASE r.rag_status WHEN 'red' THEN 0 WHEN 'amber' THEN 1 ELSE 2 END, w.updated_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []PortfolioRow
	for rows.Next() {
		var row PortfolioRow
		var start, end, phase, createdAt, updatedAt string
		var budget sql.NullFloat64
		var scoreID, ragStatus, calculatedAt sql.NullString
		var schedule, budgetScore, blocker, composite sql.NullFloat64
		var stale sql.NullBool
		if err := rows.Scan(&row.Workstream.ID, &row.Workstream.Name, &row.Workstream.Description, &start, &end, &budget,
			&row.Workstream.OwnerID, &phase, &row.Workstream.IsArchived, &createdAt, &updatedAt,
			&scoreID, &schedule, &budgetScore, &blocker, &composite, &ragStatus, &stale, &calculatedAt); err != nil {
			return nil, err
		}
		row.Workstream.StartDate = parseDate(start)
		row.Workstream.EndDate = parseDate(end)
		if budget.Valid {
			b := budget.Float64
			row.Workstream.PlannedBudget = &b
		}
		row.Workstream.Phase = domain.Phase(phase)
		row.Workstream.CreatedAt = parseTime(createdAt)
		row.Workstream.UpdatedAt = parseTime(updatedAt)
		if scoreID.Valid {
			row.Score = &domain.RagScore{
				WorkstreamID:   scoreID.String,
				ScheduleScore:  schedule.Float64,
				BudgetScore:    budgetScore.Float64,
				BlockerScore:   blocker.Float64,
				CompositeScore: composite.Float64,
				RagStatus:      domain.RagStatus(ragStatus.String),
				IsStale:        stale.Bool,
				CalculatedAt:   parseTime(calculatedAt.String),
			}
		}
		res = append(res, row)
	}
	return res, rows.Err()
}

// Event log reads, used by the CLI tail and the webhook dispatcher.

func (r Repo) LatestEvents(ctx context.Context, limit int, workstreamID, evtType string) ([]domain.Event, error) {
	clauses := "1=1"
	var args []any
	if workstreamID != "" {
		clauses += " AND workstream_id=?"
		args = append(args, workstreamID)
	}
	if evtType != "" {
		clauses += " AND type=?"
		args = append(args, evtType)
	}
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,type,COALESCE(workstream_id,'') AS workstream_id,entity_kind,COALESCE(entity_id,'') AS entity_id,actor_id,payload_json
FROM events WHERE `+clauses+` ORDER BY id DESC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,type,COALESCE(workstream_id,'') AS workstream_id,entity_kind,COALESCE(entity_id,'') AS entity_id,actor_id,payload_json
FROM events WHERE id>? ORDER BY id ASC LIMIT ?`, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// LatestEventID returns the most recent event ID.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.Type, &e.WorkstreamID, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		e.TS = parseTime(ts)
		res = append(res, e)
	}
	return res, rows.Err()
}
