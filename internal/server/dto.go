package server

import (
	"time"

	"github.com/hadimercer/meridian/internal/domain"
	"github.com/hadimercer/meridian/internal/repo"
)

const dateLayout = "2006-01-02"

// Request payloads

type WizardRequest struct {
	WorkType        string `json:"q1_work_type,omitempty" enum:"delivery,analysis,process_improvement,reporting,strategy,other"`
	DeadlineNature  string `json:"q2_deadline_nature,omitempty" enum:"hard_contractual,business_driven,self_imposed,ongoing"`
	DeliverableType string `json:"q3_deliverable_type,omitempty" enum:"document_report,decision_approval,built_solution,process_change,recommendation"`
	BudgetExposure  string `json:"q4_budget_exposure,omitempty" enum:"client_billable,approved_internal,informal_none"`
	DependencyLevel string `json:"q5_dependency_level,omitempty" enum:"self_contained,depends_1_2,depends_multiple,blocked_external"`
	RiskLevel       string `json:"q6_risk_level,omitempty" enum:"low,medium,high,critical"`
	Phase           string `json:"q7_phase,omitempty" enum:"discovery,planning,in_flight,review_closing"`
	UpdateFrequency string `json:"q8_update_frequency,omitempty" enum:"daily,weekly,biweekly,monthly"`
	Audience        string `json:"q9_audience,omitempty" enum:"just_me,my_team,senior_leadership,external_client"`
}

func (r WizardRequest) toDomain() domain.WizardConfig {
	return domain.WizardConfig{
		WorkType:        domain.WorkType(r.WorkType),
		DeadlineNature:  domain.DeadlineNature(r.DeadlineNature),
		DeliverableType: domain.DeliverableType(r.DeliverableType),
		BudgetExposure:  domain.BudgetExposure(r.BudgetExposure),
		DependencyLevel: domain.DependencyLevel(r.DependencyLevel),
		RiskLevel:       domain.RiskLevel(r.RiskLevel),
		Phase:           domain.Phase(r.Phase),
		UpdateFrequency: domain.UpdateFrequency(r.UpdateFrequency),
		Audience:        domain.Audience(r.Audience),
	}
}

type CreateWorkstreamRequest struct {
	ID            *string        `json:"id,omitempty"`
	Name          string         `json:"name"`
	Description   *string        `json:"description,omitempty"`
	StartDate     string         `json:"start_date" format:"date"`
	EndDate       string         `json:"end_date" format:"date"`
	PlannedBudget *float64       `json:"planned_budget,omitempty"`
	OwnerID       *string        `json:"owner_id,omitempty"`
	Wizard        *WizardRequest `json:"wizard,omitempty"`
}

type UpdateWorkstreamRequest struct {
	Name          *string  `json:"name,omitempty"`
	Description   *string  `json:"description,omitempty"`
	StartDate     *string  `json:"start_date,omitempty" format:"date"`
	EndDate       *string  `json:"end_date,omitempty" format:"date"`
	PlannedBudget *float64 `json:"planned_budget,omitempty"`
	ClearBudget   bool     `json:"clear_budget,omitempty"`
	Phase         *string  `json:"phase,omitempty" enum:"discovery,planning,in_flight,review_closing"`
}

type CreateMilestoneRequest struct {
	ID      *string `json:"id,omitempty"`
	Title   string  `json:"title"`
	Status  string  `json:"status,omitempty" enum:"not_started,in_progress,complete"`
	DueDate string  `json:"due_date" format:"date"`
}

type UpdateMilestoneRequest struct {
	Title   *string `json:"title,omitempty"`
	Status  *string `json:"status,omitempty" enum:"not_started,in_progress,complete"`
	DueDate *string `json:"due_date,omitempty" format:"date"`
}

type CreateSpendRequest struct {
	ID     *string `json:"id,omitempty"`
	Amount float64 `json:"amount" minimum:"0"`
	Note   *string `json:"note,omitempty"`
}

type CreateBlockerRequest struct {
	ID         *string `json:"id,omitempty"`
	Title      string  `json:"title"`
	DateRaised *string `json:"date_raised,omitempty" format:"date"`
}

// Response payloads

type WorkstreamResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	StartDate     string   `json:"start_date" format:"date"`
	EndDate       string   `json:"end_date" format:"date"`
	PlannedBudget *float64 `json:"planned_budget,omitempty"`
	OwnerID       string   `json:"owner_id,omitempty"`
	Phase         string   `json:"phase,omitempty"`
	IsArchived    bool     `json:"is_archived"`
	CreatedAt     string   `json:"created_at" format:"date-time"`
	UpdatedAt     string   `json:"updated_at" format:"date-time"`
}

type WizardResponse struct {
	WorkstreamID    string `json:"workstream_id"`
	WorkType        string `json:"q1_work_type,omitempty"`
	DeadlineNature  string `json:"q2_deadline_nature,omitempty"`
	DeliverableType string `json:"q3_deliverable_type,omitempty"`
	BudgetExposure  string `json:"q4_budget_exposure,omitempty"`
	DependencyLevel string `json:"q5_dependency_level,omitempty"`
	RiskLevel       string `json:"q6_risk_level,omitempty"`
	Phase           string `json:"q7_phase,omitempty"`
	UpdateFrequency string `json:"q8_update_frequency,omitempty"`
	Audience        string `json:"q9_audience,omitempty"`
	ConfiguredBy    string `json:"configured_by,omitempty"`
	UpdatedAt       string `json:"updated_at" format:"date-time"`
}

type MilestoneResponse struct {
	ID           string `json:"id"`
	WorkstreamID string `json:"workstream_id"`
	Title        string `json:"title"`
	Status       string `json:"status" enum:"not_started,in_progress,complete"`
	DueDate      string `json:"due_date" format:"date"`
	CreatedAt    string `json:"created_at" format:"date-time"`
	UpdatedAt    string `json:"updated_at" format:"date-time"`
}

type SpendResponse struct {
	ID           string  `json:"id"`
	WorkstreamID string  `json:"workstream_id"`
	Amount       float64 `json:"amount"`
	Note         string  `json:"note,omitempty"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
}

type BlockerResponse struct {
	ID           string `json:"id"`
	WorkstreamID string `json:"workstream_id"`
	Title        string `json:"title"`
	Status       string `json:"status" enum:"open,resolved"`
	DateRaised   string `json:"date_raised" format:"date"`
	CreatedAt    string `json:"created_at" format:"date-time"`
	UpdatedAt    string `json:"updated_at" format:"date-time"`
}

type ScoreResponse struct {
	WorkstreamID   string  `json:"workstream_id"`
	ScheduleScore  float64 `json:"schedule_score"`
	BudgetScore    float64 `json:"budget_score"`
	BlockerScore   float64 `json:"blocker_score"`
	CompositeScore float64 `json:"composite_score"`
	RagStatus      string  `json:"rag_status" enum:"green,amber,red"`
	IsStale        bool    `json:"is_stale"`
	CalculatedAt   string  `json:"calculated_at,omitempty" format:"date-time"`
}

// PortfolioItemResponse pairs a workstream with its score. Workstreams that
// have never been scored render as green and not stale.
type PortfolioItemResponse struct {
	Workstream WorkstreamResponse `json:"workstream"`
	Score      ScoreResponse      `json:"score"`
}

type EventResponse struct {
	ID           int64          `json:"id"`
	TS           string         `json:"ts" format:"date-time"`
	Type         string         `json:"type"`
	WorkstreamID string         `json:"workstream_id,omitempty"`
	EntityKind   string         `json:"entity_kind"`
	EntityID     string         `json:"entity_id,omitempty"`
	ActorID      string         `json:"actor_id"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// Converters

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func workstreamResponse(w domain.Workstream) WorkstreamResponse {
	return WorkstreamResponse{
		ID:            w.ID,
		Name:          w.Name,
		Description:   w.Description,
		StartDate:     fmtDate(w.StartDate),
		EndDate:       fmtDate(w.EndDate),
		PlannedBudget: w.PlannedBudget,
		OwnerID:       w.OwnerID,
		Phase:         string(w.Phase),
		IsArchived:    w.IsArchived,
		CreatedAt:     fmtTime(w.CreatedAt),
		UpdatedAt:     fmtTime(w.UpdatedAt),
	}
}

func wizardResponse(w domain.WizardConfig) WizardResponse {
	return WizardResponse{
		WorkstreamID:    w.WorkstreamID,
		WorkType:        string(w.WorkType),
		DeadlineNature:  string(w.DeadlineNature),
		DeliverableType: string(w.DeliverableType),
		BudgetExposure:  string(w.BudgetExposure),
		DependencyLevel: string(w.DependencyLevel),
		RiskLevel:       string(w.RiskLevel),
		Phase:           string(w.Phase),
		UpdateFrequency: string(w.UpdateFrequency),
		Audience:        string(w.Audience),
		ConfiguredBy:    w.ConfiguredBy,
		UpdatedAt:       fmtTime(w.UpdatedAt),
	}
}

func milestoneResponse(m domain.Milestone) MilestoneResponse {
	return MilestoneResponse{
		ID:           m.ID,
		WorkstreamID: m.WorkstreamID,
		Title:        m.Title,
		Status:       string(m.Status),
		DueDate:      fmtDate(m.DueDate),
		CreatedAt:    fmtTime(m.CreatedAt),
		UpdatedAt:    fmtTime(m.UpdatedAt),
	}
}

func spendResponse(s domain.SpendEntry) SpendResponse {
	return SpendResponse{
		ID:           s.ID,
		WorkstreamID: s.WorkstreamID,
		Amount:       s.Amount,
		Note:         s.Note,
		CreatedAt:    fmtTime(s.CreatedAt),
	}
}

func blockerResponse(b domain.Blocker) BlockerResponse {
	return BlockerResponse{
		ID:           b.ID,
		WorkstreamID: b.WorkstreamID,
		Title:        b.Title,
		Status:       string(b.Status),
		DateRaised:   fmtDate(b.DateRaised),
		CreatedAt:    fmtTime(b.CreatedAt),
		UpdatedAt:    fmtTime(b.UpdatedAt),
	}
}

func scoreResponse(s domain.RagScore) ScoreResponse {
	return ScoreResponse{
		WorkstreamID:   s.WorkstreamID,
		ScheduleScore:  s.ScheduleScore,
		BudgetScore:    s.BudgetScore,
		BlockerScore:   s.BlockerScore,
		CompositeScore: s.CompositeScore,
		RagStatus:      string(s.RagStatus),
		IsStale:        s.IsStale,
		CalculatedAt:   fmtTime(s.CalculatedAt),
	}
}

func portfolioItemResponse(row repo.PortfolioRow) PortfolioItemResponse {
	item := PortfolioItemResponse{Workstream: workstreamResponse(row.Workstream)}
	if row.Score != nil {
		item.Score = scoreResponse(*row.Score)
	} else {
		// never-scored workstreams present as healthy, not broken
		item.Score = ScoreResponse{
			WorkstreamID: row.Workstream.ID,
			RagStatus:    string(domain.RagGreen),
		}
	}
	return item
}

func eventResponse(ev domain.Event, payload map[string]any) EventResponse {
	return EventResponse{
		ID:           ev.ID,
		TS:           fmtTime(ev.TS),
		Type:         ev.Type,
		WorkstreamID: ev.WorkstreamID,
		EntityKind:   ev.EntityKind,
		EntityID:     ev.EntityID,
		ActorID:      ev.ActorID,
		Payload:      payload,
	}
}
