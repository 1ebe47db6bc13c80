// Package engine implements the mutation layer: every state change runs in
// one transaction with its audit event, then triggers a synchronous RAG
// recalculation for the touched workstream.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/hadimercer/meridian/internal/domain"
	"github.com/hadimercer/meridian/internal/events"
	"github.com/hadimercer/meridian/internal/repo"
	"github.com/hadimercer/meridian/internal/scoring"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Scorer *scoring.Engine
	Now    func() time.Time
}

func New(db *sql.DB, baselines scoring.Baselines) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Scorer: scoring.New(db, baselines),
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

// rescore runs after every committed mutation. CalculateRAG owns its own
// failure handling, so mutations never fail on a scoring problem.
func (e Engine) rescore(ctx context.Context, workstreamID string) domain.RagScore {
	return e.Scorer.CalculateRAG(ctx, workstreamID)
}

// WorkstreamCreateOptions are parameters for creating a workstream. Wizard
// is optional; when set it is stored in the same transaction.
type WorkstreamCreateOptions struct {
	ID            string
	Name          string
	Description   string
	StartDate     time.Time
	EndDate       time.Time
	PlannedBudget *float64
	OwnerID       string
	Wizard        *domain.WizardConfig
	ActorID       string
}

func (e Engine) CreateWorkstream(ctx context.Context, opts WorkstreamCreateOptions) (domain.Workstream, error) {
	if opts.Name == "" {
		return domain.Workstream{}, errors.New("name is required")
	}
	if opts.StartDate.IsZero() || opts.EndDate.IsZero() {
		return domain.Workstream{}, errors.New("start and end dates are required")
	}
	if !opts.EndDate.After(opts.StartDate) {
		return domain.Workstream{}, errors.New("end date must be after start date")
	}
	if opts.PlannedBudget != nil && *opts.PlannedBudget < 0 {
		return domain.Workstream{}, errors.New("planned budget must not be negative")
	}

	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.now()
	w := domain.Workstream{
		ID:            id,
		Name:          opts.Name,
		Description:   opts.Description,
		StartDate:     opts.StartDate,
		EndDate:       opts.EndDate,
		PlannedBudget: opts.PlannedBudget,
		OwnerID:       opts.OwnerID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if opts.Wizard != nil {
		w.Phase = opts.Wizard.Phase
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Workstream{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertWorkstream(ctx, tx, w); err != nil {
		return domain.Workstream{}, eris.Wrap(err, "engine: insert workstream")
	}
	if opts.Wizard != nil {
		wiz := *opts.Wizard
		wiz.WorkstreamID = w.ID
		wiz.ConfiguredBy = opts.ActorID
		wiz.CreatedAt = now
		wiz.UpdatedAt = now
		if err := e.Repo.UpsertWizardConfig(ctx, tx, wiz); err != nil {
			return domain.Workstream{}, eris.Wrap(err, "engine: store wizard config")
		}
	}
	if err := e.Events.Append(ctx, tx, "workstream.created", w.ID, "workstream", w.ID, opts.ActorID, events.EventPayload{"name": w.Name}); err != nil {
		return domain.Workstream{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Workstream{}, err
	}
	e.rescore(ctx, w.ID)
	return w, nil
}

func (e Engine) UpdateWorkstream(ctx context.Context, id string, u repo.WorkstreamUpdate, actorID string) (domain.Workstream, error) {
	if u.EndDate != nil && u.StartDate != nil && !u.EndDate.After(*u.StartDate) {
		return domain.Workstream{}, errors.New("end date must be after start date")
	}
	if u.PlannedBudget != nil && *u.PlannedBudget < 0 {
		return domain.Workstream{}, errors.New("planned budget must not be negative")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Workstream{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateWorkstream(ctx, tx, id, u, e.now()); err != nil {
		return domain.Workstream{}, err
	}
	if err := e.Events.Append(ctx, tx, "workstream.updated", id, "workstream", id, actorID, events.EventPayload{}); err != nil {
		return domain.Workstream{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Workstream{}, err
	}
	e.rescore(ctx, id)
	return e.Repo.GetWorkstream(ctx, id)
}

// ArchiveWorkstream hides a workstream from default listings. Its facts and
// last score stay in place; archived workstreams are not rescored.
func (e Engine) ArchiveWorkstream(ctx context.Context, id, actorID string) error {
	archived := true
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateWorkstream(ctx, tx, id, repo.WorkstreamUpdate{IsArchived: &archived}, e.now()); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "workstream.archived", id, "workstream", id, actorID, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}

// ConfigureWizard replaces the full nine-answer profile and rescores.
func (e Engine) ConfigureWizard(ctx context.Context, workstreamID string, wiz domain.WizardConfig, actorID string) (domain.WizardConfig, error) {
	if _, err := e.Repo.GetWorkstream(ctx, workstreamID); err != nil {
		return domain.WizardConfig{}, err
	}
	now := e.now()
	wiz.WorkstreamID = workstreamID
	wiz.ConfiguredBy = actorID
	wiz.CreatedAt = now
	wiz.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WizardConfig{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpsertWizardConfig(ctx, tx, wiz); err != nil {
		return domain.WizardConfig{}, err
	}
	if wiz.Phase != "" {
		phase := wiz.Phase
		if err := e.Repo.UpdateWorkstream(ctx, tx, workstreamID, repo.WorkstreamUpdate{Phase: &phase}, now); err != nil {
			return domain.WizardConfig{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, "wizard.configured", workstreamID, "wizard_config", workstreamID, actorID, events.EventPayload{}); err != nil {
		return domain.WizardConfig{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WizardConfig{}, err
	}
	e.rescore(ctx, workstreamID)
	return e.Repo.GetWizardConfig(ctx, workstreamID)
}

// MilestoneCreateOptions are parameters for adding a milestone.
type MilestoneCreateOptions struct {
	ID           string
	WorkstreamID string
	Title        string
	Status       domain.MilestoneStatus
	DueDate      time.Time
	ActorID      string
}

func (e Engine) AddMilestone(ctx context.Context, opts MilestoneCreateOptions) (domain.Milestone, error) {
	if opts.Title == "" {
		return domain.Milestone{}, errors.New("title is required")
	}
	if opts.DueDate.IsZero() {
		return domain.Milestone{}, errors.New("due date is required")
	}
	if opts.Status == "" {
		opts.Status = domain.MilestoneNotStarted
	}
	if !opts.Status.Known() {
		return domain.Milestone{}, errors.New("unknown milestone status")
	}
	if _, err := e.Repo.GetWorkstream(ctx, opts.WorkstreamID); err != nil {
		return domain.Milestone{}, err
	}

	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.now()
	m := domain.Milestone{
		ID:           id,
		WorkstreamID: opts.WorkstreamID,
		Title:        opts.Title,
		Status:       opts.Status,
		DueDate:      opts.DueDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Milestone{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertMilestone(ctx, tx, m); err != nil {
		return domain.Milestone{}, eris.Wrap(err, "engine: insert milestone")
	}
	if err := e.Events.Append(ctx, tx, "milestone.added", m.WorkstreamID, "milestone", m.ID, opts.ActorID, events.EventPayload{"title": m.Title, "status": string(m.Status)}); err != nil {
		return domain.Milestone{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Milestone{}, err
	}
	e.rescore(ctx, m.WorkstreamID)
	return m, nil
}

func (e Engine) UpdateMilestone(ctx context.Context, id string, u repo.MilestoneUpdate, actorID string) (domain.Milestone, error) {
	if u.Status != nil && !u.Status.Known() {
		return domain.Milestone{}, errors.New("unknown milestone status")
	}
	m, err := e.Repo.GetMilestone(ctx, id)
	if err != nil {
		return domain.Milestone{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Milestone{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateMilestone(ctx, tx, id, u, e.now()); err != nil {
		return domain.Milestone{}, err
	}
	payload := events.EventPayload{}
	if u.Status != nil {
		payload["from_status"] = string(m.Status)
		payload["to_status"] = string(*u.Status)
	}
	if err := e.Events.Append(ctx, tx, "milestone.updated", m.WorkstreamID, "milestone", id, actorID, payload); err != nil {
		return domain.Milestone{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Milestone{}, err
	}
	e.rescore(ctx, m.WorkstreamID)
	return e.Repo.GetMilestone(ctx, id)
}

func (e Engine) DeleteMilestone(ctx context.Context, id, actorID string) error {
	m, err := e.Repo.GetMilestone(ctx, id)
	if err != nil {
		return err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteMilestone(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "milestone.deleted", m.WorkstreamID, "milestone", id, actorID, events.EventPayload{"title": m.Title}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.rescore(ctx, m.WorkstreamID)
	return nil
}

// SpendCreateOptions are parameters for recording spend.
type SpendCreateOptions struct {
	ID           string
	WorkstreamID string
	Amount       float64
	Note         string
	ActorID      string
}

func (e Engine) AddSpend(ctx context.Context, opts SpendCreateOptions) (domain.SpendEntry, error) {
	if opts.Amount < 0 {
		return domain.SpendEntry{}, errors.New("amount must not be negative")
	}
	if _, err := e.Repo.GetWorkstream(ctx, opts.WorkstreamID); err != nil {
		return domain.SpendEntry{}, err
	}

	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	s := domain.SpendEntry{
		ID:           id,
		WorkstreamID: opts.WorkstreamID,
		Amount:       opts.Amount,
		Note:         opts.Note,
		CreatedAt:    e.now(),
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.SpendEntry{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertSpendEntry(ctx, tx, s); err != nil {
		return domain.SpendEntry{}, eris.Wrap(err, "engine: insert spend entry")
	}
	if err := e.Events.Append(ctx, tx, "spend.recorded", s.WorkstreamID, "spend_entry", s.ID, opts.ActorID, events.EventPayload{"amount": s.Amount}); err != nil {
		return domain.SpendEntry{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.SpendEntry{}, err
	}
	e.rescore(ctx, s.WorkstreamID)
	return s, nil
}

// BlockerCreateOptions are parameters for logging a blocker. DateRaised
// defaults to today when zero.
type BlockerCreateOptions struct {
	ID           string
	WorkstreamID string
	Title        string
	DateRaised   time.Time
	ActorID      string
}

func (e Engine) LogBlocker(ctx context.Context, opts BlockerCreateOptions) (domain.Blocker, error) {
	if opts.Title == "" {
		return domain.Blocker{}, errors.New("title is required")
	}
	if _, err := e.Repo.GetWorkstream(ctx, opts.WorkstreamID); err != nil {
		return domain.Blocker{}, err
	}

	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.now()
	raised := opts.DateRaised
	if raised.IsZero() {
		raised = now.Truncate(24 * time.Hour)
	}
	b := domain.Blocker{
		ID:           id,
		WorkstreamID: opts.WorkstreamID,
		Title:        opts.Title,
		Status:       domain.BlockerOpen,
		DateRaised:   raised,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Blocker{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertBlocker(ctx, tx, b); err != nil {
		return domain.Blocker{}, eris.Wrap(err, "engine: insert blocker")
	}
	if err := e.Events.Append(ctx, tx, "blocker.logged", b.WorkstreamID, "blocker", b.ID, opts.ActorID, events.EventPayload{"title": b.Title}); err != nil {
		return domain.Blocker{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Blocker{}, err
	}
	e.rescore(ctx, b.WorkstreamID)
	return b, nil
}

func (e Engine) ResolveBlocker(ctx context.Context, id, actorID string) (domain.Blocker, error) {
	b, err := e.Repo.GetBlocker(ctx, id)
	if err != nil {
		return domain.Blocker{}, err
	}
	if b.Status == domain.BlockerResolved {
		return b, nil
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Blocker{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.SetBlockerStatus(ctx, tx, id, domain.BlockerResolved, e.now()); err != nil {
		return domain.Blocker{}, err
	}
	if err := e.Events.Append(ctx, tx, "blocker.resolved", b.WorkstreamID, "blocker", id, actorID, events.EventPayload{"title": b.Title}); err != nil {
		return domain.Blocker{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Blocker{}, err
	}
	e.rescore(ctx, b.WorkstreamID)
	return e.Repo.GetBlocker(ctx, id)
}

// Rescore recalculates on demand, e.g. after the date has rolled over with
// no fact changes.
func (e Engine) Rescore(ctx context.Context, workstreamID string) domain.RagScore {
	return e.rescore(ctx, workstreamID)
}
