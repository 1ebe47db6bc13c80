package domain

import (
	"fmt"
	"time"
)

// The scoring wizard is a fixed nine-question profile captured once per
// workstream. Each answer is a closed enumeration; the empty string is the
// explicit "unset" value and means no modifier applies for that question.

type WorkType string

const (
	WorkDelivery           WorkType = "delivery"
	WorkAnalysis           WorkType = "analysis"
	WorkProcessImprovement WorkType = "process_improvement"
	WorkReporting          WorkType = "reporting"
	WorkStrategy           WorkType = "strategy"
	WorkOther              WorkType = "other"
)

type DeadlineNature string

const (
	DeadlineHardContractual DeadlineNature = "hard_contractual"
	DeadlineBusinessDriven  DeadlineNature = "business_driven"
	DeadlineSelfImposed     DeadlineNature = "self_imposed"
	DeadlineOngoing         DeadlineNature = "ongoing"
)

type DeliverableType string

const (
	DeliverableDocumentReport   DeliverableType = "document_report"
	DeliverableDecisionApproval DeliverableType = "decision_approval"
	DeliverableBuiltSolution    DeliverableType = "built_solution"
	DeliverableProcessChange    DeliverableType = "process_change"
	DeliverableRecommendation   DeliverableType = "recommendation"
)

type BudgetExposure string

const (
	BudgetClientBillable   BudgetExposure = "client_billable"
	BudgetApprovedInternal BudgetExposure = "approved_internal"
	BudgetInformalNone     BudgetExposure = "informal_none"
)

type DependencyLevel string

const (
	DependencySelfContained   DependencyLevel = "self_contained"
	DependencyOneTwo          DependencyLevel = "depends_1_2"
	DependencyMultiple        DependencyLevel = "depends_multiple"
	DependencyBlockedExternal DependencyLevel = "blocked_external"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

type Phase string

const (
	PhaseDiscovery     Phase = "discovery"
	PhasePlanning      Phase = "planning"
	PhaseInFlight      Phase = "in_flight"
	PhaseReviewClosing Phase = "review_closing"
)

type UpdateFrequency string

const (
	UpdateDaily    UpdateFrequency = "daily"
	UpdateWeekly   UpdateFrequency = "weekly"
	UpdateBiweekly UpdateFrequency = "biweekly"
	UpdateMonthly  UpdateFrequency = "monthly"
)

type Audience string

const (
	AudienceJustMe           Audience = "just_me"
	AudienceMyTeam           Audience = "my_team"
	AudienceSeniorLeadership Audience = "senior_leadership"
	AudienceExternalClient   Audience = "external_client"
)

// WizardConfig holds one workstream's wizard answers. A zero-valued config
// (all answers unset) is valid and resolves to the baseline parameters.
type WizardConfig struct {
	WorkstreamID    string          `json:"workstream_id"`
	WorkType        WorkType        `json:"q1_work_type,omitempty" enum:"delivery,analysis,process_improvement,reporting,strategy,other"`
	DeadlineNature  DeadlineNature  `json:"q2_deadline_nature,omitempty" enum:"hard_contractual,business_driven,self_imposed,ongoing"`
	DeliverableType DeliverableType `json:"q3_deliverable_type,omitempty" enum:"document_report,decision_approval,built_solution,process_change,recommendation"`
	BudgetExposure  BudgetExposure  `json:"q4_budget_exposure,omitempty" enum:"client_billable,approved_internal,informal_none"`
	DependencyLevel DependencyLevel `json:"q5_dependency_level,omitempty" enum:"self_contained,depends_1_2,depends_multiple,blocked_external"`
	RiskLevel       RiskLevel       `json:"q6_risk_level,omitempty" enum:"low,medium,high,critical"`
	Phase           Phase           `json:"q7_phase,omitempty" enum:"discovery,planning,in_flight,review_closing"`
	UpdateFrequency UpdateFrequency `json:"q8_update_frequency,omitempty" enum:"daily,weekly,biweekly,monthly"`
	Audience        Audience        `json:"q9_audience,omitempty" enum:"just_me,my_team,senior_leadership,external_client"`
	ConfiguredBy    string          `json:"configured_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Validate rejects answers outside each question's closed enumeration.
// Unset answers pass; they mean "use the baseline".
func (w WizardConfig) Validate() error {
	checks := []struct {
		field string
		ok    bool
	}{
		{"q1_work_type", oneOf(w.WorkType, "", WorkDelivery, WorkAnalysis, WorkProcessImprovement, WorkReporting, WorkStrategy, WorkOther)},
		{"q2_deadline_nature", oneOf(w.DeadlineNature, "", DeadlineHardContractual, DeadlineBusinessDriven, DeadlineSelfImposed, DeadlineOngoing)},
		{"q3_deliverable_type", oneOf(w.DeliverableType, "", DeliverableDocumentReport, DeliverableDecisionApproval, DeliverableBuiltSolution, DeliverableProcessChange, DeliverableRecommendation)},
		{"q4_budget_exposure", oneOf(w.BudgetExposure, "", BudgetClientBillable, BudgetApprovedInternal, BudgetInformalNone)},
		{"q5_dependency_level", oneOf(w.DependencyLevel, "", DependencySelfContained, DependencyOneTwo, DependencyMultiple, DependencyBlockedExternal)},
		{"q6_risk_level", oneOf(w.RiskLevel, "", RiskLow, RiskMedium, RiskHigh, RiskCritical)},
		{"q7_phase", oneOf(w.Phase, "", PhaseDiscovery, PhasePlanning, PhaseInFlight, PhaseReviewClosing)},
		{"q8_update_frequency", oneOf(w.UpdateFrequency, "", UpdateDaily, UpdateWeekly, UpdateBiweekly, UpdateMonthly)},
		{"q9_audience", oneOf(w.Audience, "", AudienceJustMe, AudienceMyTeam, AudienceSeniorLeadership, AudienceExternalClient)},
	}
	for _, c := range checks {
		if !c.ok {
			return fmt.Errorf("wizard: unknown answer for %s", c.field)
		}
	}
	return nil
}

func oneOf[T ~string](v T, allowed ...T) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
