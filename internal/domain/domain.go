package domain

import "time"

// Workstream is a tracked unit of work. Dates are date-only (midnight UTC).
// A nil or zero PlannedBudget means the budget is not tracked.
type Workstream struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	PlannedBudget *float64  `json:"planned_budget,omitempty"`
	OwnerID       string    `json:"owner_id"`
	Phase         Phase     `json:"phase,omitempty"`
	IsArchived    bool      `json:"is_archived"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type MilestoneStatus string

const (
	MilestoneNotStarted MilestoneStatus = "not_started"
	MilestoneInProgress MilestoneStatus = "in_progress"
	MilestoneComplete   MilestoneStatus = "complete"
)

func (s MilestoneStatus) Known() bool {
	switch s {
	case MilestoneNotStarted, MilestoneInProgress, MilestoneComplete:
		return true
	}
	return false
}

type Milestone struct {
	ID           string          `json:"id"`
	WorkstreamID string          `json:"workstream_id"`
	Title        string          `json:"title"`
	Status       MilestoneStatus `json:"status"`
	DueDate      time.Time       `json:"due_date"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// SpendEntry is an append-mostly ledger row; scoring only sums amounts.
type SpendEntry struct {
	ID           string    `json:"id"`
	WorkstreamID string    `json:"workstream_id"`
	Amount       float64   `json:"amount"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type BlockerStatus string

const (
	BlockerOpen     BlockerStatus = "open"
	BlockerResolved BlockerStatus = "resolved"
)

type Blocker struct {
	ID           string        `json:"id"`
	WorkstreamID string        `json:"workstream_id"`
	Title        string        `json:"title"`
	Status       BlockerStatus `json:"status"`
	DateRaised   time.Time     `json:"date_raised"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type RagStatus string

const (
	RagGreen RagStatus = "green"
	RagAmber RagStatus = "amber"
	RagRed   RagStatus = "red"
)

// RagScore is the scoring engine's sole persisted output: one row per
// workstream, overwritten in place on every recalculation. All four scores
// are clamped to [0,100] and rounded to two decimals. RagStatus is derived
// from CompositeScore alone and never set independently.
type RagScore struct {
	WorkstreamID   string    `json:"workstream_id"`
	ScheduleScore  float64   `json:"schedule_score"`
	BudgetScore    float64   `json:"budget_score"`
	BlockerScore   float64   `json:"blocker_score"`
	CompositeScore float64   `json:"composite_score"`
	RagStatus      RagStatus `json:"rag_status" enum:"green,amber,red"`
	IsStale        bool      `json:"is_stale"`
	CalculatedAt   time.Time `json:"calculated_at"`
}

type Event struct {
	ID           int64     `json:"id"`
	TS           time.Time `json:"ts"`
	Type         string    `json:"type"`
	WorkstreamID string    `json:"workstream_id,omitempty"`
	EntityKind   string    `json:"entity_kind"`
	EntityID     string    `json:"entity_id,omitempty"`
	ActorID      string    `json:"actor_id"`
	Payload      string    `json:"payload_json"`
}
