package repo

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hadimercer/meridian/internal/domain"
)

// Milestones

func (r Repo) InsertMilestone(ctx context.Context, q Querier, m domain.Milestone) error {
	_, err := q.ExecContext(ctx, `INSERT INTO milestones(id,workstream_id,title,status,due_date,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		m.ID, m.WorkstreamID, m.Title, string(m.Status), fmtDate(m.DueDate), fmtTime(m.CreatedAt), fmtTime(m.UpdatedAt))
	return err
}

type MilestoneUpdate struct {
	Title   *string
	Status  *domain.MilestoneStatus
	DueDate *time.Time
}

func (r Repo) UpdateMilestone(ctx context.Context, q Querier, id string, u MilestoneUpdate, now time.Time) error {
	var fields []string
	var args []any
	if u.Title != nil {
		fields = append(fields, "title=?")
		args = append(args, *u.Title)
	}
	if u.Status != nil {
		fields = append(fields, "status=?")
		args = append(args, string(*u.Status))
	}
	if u.DueDate != nil {
		fields = append(fields, "due_date=?")
		args = append(args, fmtDate(*u.DueDate))
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, fmtTime(now), id)
	res, err := q.ExecContext(ctx, `UPDATE milestones SET `+strings.Join(fields, ",")+` WHERE id=?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteMilestone(ctx context.Context, q Querier, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM milestones WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetMilestone(ctx context.Context, id string) (domain.Milestone, error) {
	var m domain.Milestone
	var status, due, createdAt, updatedAt string
	err := r.DB.QueryRowContext(ctx, `SELECT id,workstream_id,title,status,due_date,created_at,updated_at FROM milestones WHERE id=?`, id).
		Scan(&m.ID, &m.WorkstreamID, &m.Title, &status, &due, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if err != nil {
		return m, err
	}
	m.Status = domain.MilestoneStatus(status)
	m.DueDate = parseDate(due)
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	return m, nil
}

func (r Repo) ListMilestones(ctx context.Context, workstreamID string) ([]domain.Milestone, error) {
	return listMilestones(ctx, r.DB, workstreamID)
}

func listMilestones(ctx context.Context, q Querier, workstreamID string) ([]domain.Milestone, error) {
	rows, err := q.QueryContext(ctx, `SELECT id,workstream_id,title,status,due_date,created_at,updated_at FROM milestones WHERE workstream_id=? ORDER BY due_date ASC, id ASC`, workstreamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Milestone
	for rows.Next() {
		var m domain.Milestone
		var status, due, createdAt, updatedAt string
		if err := rows.Scan(&m.ID, &m.WorkstreamID, &m.Title, &status, &due, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		m.Status = domain.MilestoneStatus(status)
		m.DueDate = parseDate(due)
		m.CreatedAt = parseTime(createdAt)
		m.UpdatedAt = parseTime(updatedAt)
		res = append(res, m)
	}
	return res, rows.Err()
}

// Spend entries

func (r Repo) InsertSpendEntry(ctx context.Context, q Querier, s domain.SpendEntry) error {
	_, err := q.ExecContext(ctx, `INSERT INTO spend_entries(id,workstream_id,amount,note,created_at) VALUES (?,?,?,?,?)`,
		s.ID, s.WorkstreamID, s.Amount, nullable(s.Note), fmtTime(s.CreatedAt))
	return err
}

func (r Repo) ListSpendEntries(ctx context.Context, workstreamID string) ([]domain.SpendEntry, error) {
	return listSpendEntries(ctx, r.DB, workstreamID)
}

func listSpendEntries(ctx context.Context, q Querier, workstreamID string) ([]domain.SpendEntry, error) {
	rows, err := q.QueryContext(ctx, `SELECT id,workstream_id,amount,COALESCE(note,'') AS note,created_at FROM spend_entries WHERE workstream_id=? ORDER BY created_at ASC, id ASC`, workstreamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.SpendEntry
	for rows.Next() {
		var s domain.SpendEntry
		var createdAt string
		if err := rows.Scan(&s.ID, &s.WorkstreamID, &s.Amount, &s.Note, &createdAt); err != nil {
			return nil, err
		}
		s.CreatedAt = parseTime(createdAt)
		res = append(res, s)
	}
	return res, rows.Err()
}

// Blockers

func (r Repo) InsertBlocker(ctx context.Context, q Querier, b domain.Blocker) error {
	_, err := q.ExecContext(ctx, `INSERT INTO blockers(id,workstream_id,title,status,date_raised,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		b.ID, b.WorkstreamID, b.Title, string(b.Status), fmtDate(b.DateRaised), fmtTime(b.CreatedAt), fmtTime(b.UpdatedAt))
	return err
}

func (r Repo) SetBlockerStatus(ctx context.Context, q Querier, id string, status domain.BlockerStatus, now time.Time) error {
	res, err := q.ExecContext(ctx, `UPDATE blockers SET status=?, updated_at=? WHERE id=?`, string(status), fmtTime(now), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetBlocker(ctx context.Context, id string) (domain.Blocker, error) {
	var b domain.Blocker
	var status, raised, createdAt, updatedAt string
	err := r.DB.QueryRowContext(ctx, `SELECT id,workstream_id,title,status,date_raised,created_at,updated_at FROM blockers WHERE id=?`, id).
		Scan(&b.ID, &b.WorkstreamID, &b.Title, &status, &raised, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return b, ErrNotFound
	}
	if err != nil {
		return b, err
	}
	b.Status = domain.BlockerStatus(status)
	b.DateRaised = parseDate(raised)
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return b, nil
}

func (r Repo) ListBlockers(ctx context.Context, workstreamID string) ([]domain.Blocker, error) {
	return listBlockers(ctx, r.DB, workstreamID)
}

func listBlockers(ctx context.Context, q Querier, workstreamID string) ([]domain.Blocker, error) {
	rows, err := q.QueryContext(ctx, `SELECT id,workstream_id,title,status,date_raised,created_at,updated_at FROM blockers WHERE workstream_id=? ORDER BY date_raised ASC, id ASC`, workstreamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Blocker
	for rows.Next() {
		var b domain.Blocker
		var status, raised, createdAt, updatedAt string
		if err := rows.Scan(&b.ID, &b.WorkstreamID, &b.Title, &status, &raised, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		b.Status = domain.BlockerStatus(status)
		b.DateRaised = parseDate(raised)
		b.CreatedAt = parseTime(createdAt)
		b.UpdatedAt = parseTime(updatedAt)
		res = append(res, b)
	}
	return res, rows.Err()
}

// ScoringFacts bundles every input the scoring engine reads for one
// workstream. Workstream and Wizard are nil when their rows are missing;
// the engine treats that as "unset", not as failure.
type ScoringFacts struct {
	Workstream *domain.Workstream
	Wizard     *domain.WizardConfig
	Milestones []domain.Milestone
	Spend      []domain.SpendEntry
	Blockers   []domain.Blocker
}

// GetScoringFacts fetches all scoring inputs inside one read transaction so
// a calculation sees a consistent snapshot.
func (r Repo) GetScoringFacts(ctx context.Context, workstreamID string) (ScoringFacts, error) {
	var facts ScoringFacts
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return facts, err
	}
	defer tx.Rollback()

	ws, err := r.getWorkstream(ctx, tx, workstreamID)
	switch {
	case err == nil:
		facts.Workstream = &ws
	case err != ErrNotFound:
		return facts, err
	}

	wiz, err := r.getWizardConfig(ctx, tx, workstreamID)
	switch {
	case err == nil:
		facts.Wizard = &wiz
	case err != ErrNotFound:
		return facts, err
	}

	if facts.Milestones, err = listMilestones(ctx, tx, workstreamID); err != nil {
		return facts, err
	}
	if facts.Spend, err = listSpendEntries(ctx, tx, workstreamID); err != nil {
		return facts, err
	}
	if facts.Blockers, err = listBlockers(ctx, tx, workstreamID); err != nil {
		return facts, err
	}
	return facts, tx.Commit()
}
