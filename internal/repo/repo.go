package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hadimercer/meridian/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// Querier is satisfied by both *sql.DB and *sql.Tx so the scoring engine can
// run all of its reads against one transaction snapshot.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const (
	dateLayout = "2006-01-02"
)

func fmtDate(t time.Time) string { return t.UTC().Format(dateLayout) }
func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	// Tolerate full timestamps in date columns from older rows.
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t.UTC().Truncate(24 * time.Hour)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

const workstreamCols = `id,name,COALESCE(description,'') AS description,start_date,end_date,planned_budget,owner_id,COALESCE(phase,'') AS phase,is_archived,created_at,updated_at`

func scanWorkstream(scan func(dest ...any) error) (domain.Workstream, error) {
	var w domain.Workstream
	var start, end, phase, createdAt, updatedAt string
	var budget sql.NullFloat64
	err := scan(&w.ID, &w.Name, &w.Description, &start, &end, &budget, &w.OwnerID, &phase, &w.IsArchived, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return w, ErrNotFound
	}
	if err != nil {
		return w, err
	}
	w.StartDate = parseDate(start)
	w.EndDate = parseDate(end)
	if budget.Valid {
		b := budget.Float64
		w.PlannedBudget = &b
	}
	w.Phase = domain.Phase(phase)
	w.CreatedAt = parseTime(createdAt)
	w.UpdatedAt = parseTime(updatedAt)
	return w, nil
}

func (r Repo) InsertWorkstream(ctx context.Context, q Querier, w domain.Workstream) error {
	_, err := q.ExecContext(ctx, `INSERT INTO workstreams(id,name,description,start_date,end_date,planned_budget,owner_id,phase,is_archived,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		w.ID, w.Name, nullable(w.Description), fmtDate(w.StartDate), fmtDate(w.EndDate), nullableFloatPtr(w.PlannedBudget),
		w.OwnerID, nullable(string(w.Phase)), w.IsArchived, fmtTime(w.CreatedAt), fmtTime(w.UpdatedAt))
	return err
}

func (r Repo) GetWorkstream(ctx context.Context, id string) (domain.Workstream, error) {
	return r.getWorkstream(ctx, r.DB, id)
}

func (r Repo) getWorkstream(ctx context.Context, q Querier, id string) (domain.Workstream, error) {
	row := q.QueryRowContext(ctx, `SELECT `+workstreamCols+` FROM workstreams WHERE id=?`, id)
	return scanWorkstream(row.Scan)
}

type WorkstreamFilters struct {
	OwnerID         string
	Phase           string
	IncludeArchived bool
}

func (r Repo) ListWorkstreams(ctx context.Context, f WorkstreamFilters) ([]domain.Workstream, error) {
	clauses := []string{"1=1"}
	var args []any
	if !f.IncludeArchived {
		clauses = append(clauses, "is_archived=0")
	}
	if f.OwnerID != "" {
		clauses = append(clauses, "owner_id=?")
		args = append(args, f.OwnerID)
	}
	if f.Phase != "" {
		clauses = append(clauses, "phase=?")
		args = append(args, f.Phase)
	}
	query := `SELECT ` + workstreamCols + ` FROM workstreams WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY updated_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Workstream
	for rows.Next() {
		w, err := scanWorkstream(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, w)
	}
	return res, rows.Err()
}

type WorkstreamUpdate struct {
	Name          *string
	Description   *string
	StartDate     *time.Time
	EndDate       *time.Time
	PlannedBudget *float64
	ClearBudget   bool
	Phase         *domain.Phase
	IsArchived    *bool
}

func (r Repo) UpdateWorkstream(ctx context.Context, q Querier, id string, u WorkstreamUpdate, now time.Time) error {
	var (
		fields []string
		args   []any
	)
	if u.Name != nil {
		fields = append(fields, "name=?")
		args = append(args, *u.Name)
	}
	if u.Description != nil {
		fields = append(fields, "description=?")
		args = append(args, nullable(*u.Description))
	}
	if u.StartDate != nil {
		fields = append(fields, "start_date=?")
		args = append(args, fmtDate(*u.StartDate))
	}
	if u.EndDate != nil {
		fields = append(fields, "end_date=?")
		args = append(args, fmtDate(*u.EndDate))
	}
	if u.ClearBudget {
		fields = append(fields, "planned_budget=NULL")
	} else if u.PlannedBudget != nil {
		fields = append(fields, "planned_budget=?")
		args = append(args, *u.PlannedBudget)
	}
	if u.Phase != nil {
		fields = append(fields, "phase=?")
		args = append(args, nullable(string(*u.Phase)))
	}
	if u.IsArchived != nil {
		fields = append(fields, "is_archived=?")
		args = append(args, *u.IsArchived)
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, fmtTime(now), id)
	res, err := q.ExecContext(ctx, fmt.Sprintf(`UPDATE workstreams SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpsertWizardConfig(ctx context.Context, q Querier, w domain.WizardConfig) error {
	if err := w.Validate(); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `INSERT INTO wizard_configs(workstream_id,q1_work_type,q2_deadline_nature,q3_deliverable_type,q4_budget_exposure,q5_dependency_level,q6_risk_level,q7_phase,q8_update_frequency,q9_audience,configured_by,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(workstream_id) DO UPDATE SET
    q1_work_type=excluded.q1_work_type,
    q2_deadline_nature=excluded.q2_deadline_nature,
    q3_deliverable_type=excluded.q3_deliverable_type,
    q4_budget_exposure=excluded.q4_budget_exposure,
    q5_dependency_level=excluded.q5_dependency_level,
    q6_risk_level=excluded.q6_risk_level,
    q7_phase=excluded.q7_phase,
    q8_update_frequency=excluded.q8_update_frequency,
    q9_audience=excluded.q9_audience,
    configured_by=excluded.configured_by,
    updated_at=excluded.updated_at`,
		w.WorkstreamID,
		nullable(string(w.WorkType)), nullable(string(w.DeadlineNature)), nullable(string(w.DeliverableType)),
		nullable(string(w.BudgetExposure)), nullable(string(w.DependencyLevel)), nullable(string(w.RiskLevel)),
		nullable(string(w.Phase)), nullable(string(w.UpdateFrequency)), nullable(string(w.Audience)),
		nullable(w.ConfiguredBy), fmtTime(w.CreatedAt), fmtTime(w.UpdatedAt))
	return err
}

func (r Repo) GetWizardConfig(ctx context.Context, workstreamID string) (domain.WizardConfig, error) {
	return r.getWizardConfig(ctx, r.DB, workstreamID)
}

func (r Repo) getWizardConfig(ctx context.Context, q Querier, workstreamID string) (domain.WizardConfig, error) {
	var w domain.WizardConfig
	var q1, q2, q3, q4, q5, q6, q7, q8, q9, by sql.NullString
	var createdAt, updatedAt string
	err := q.QueryRowContext(ctx, `SELECT workstream_id,q1_work_type,q2_deadline_nature,q3_deliverable_type,q4_budget_exposure,q5_dependency_level,q6_risk_level,q7_phase,q8_update_frequency,q9_audience,configured_by,created_at,updated_at
FROM wizard_configs WHERE workstream_id=?`, workstreamID).
		Scan(&w.WorkstreamID, &q1, &q2, &q3, &q4, &q5, &q6, &q7, &q8, &q9, &by, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return w, ErrNotFound
	}
	if err != nil {
		return w, err
	}
	w.WorkType = domain.WorkType(q1.String)
	w.DeadlineNature = domain.DeadlineNature(q2.String)
	w.DeliverableType = domain.DeliverableType(q3.String)
	w.BudgetExposure = domain.BudgetExposure(q4.String)
	w.DependencyLevel = domain.DependencyLevel(q5.String)
	w.RiskLevel = domain.RiskLevel(q6.String)
	w.Phase = domain.Phase(q7.String)
	w.UpdateFrequency = domain.UpdateFrequency(q8.String)
	w.Audience = domain.Audience(q9.String)
	w.ConfiguredBy = by.String
	w.CreatedAt = parseTime(createdAt)
	w.UpdatedAt = parseTime(updatedAt)
	return w, nil
}
