package meridiansdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Meridian HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	ActorID     string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Workstream represents the API workstream model (partial).
type Workstream struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	StartDate     string   `json:"start_date"`
	EndDate       string   `json:"end_date"`
	PlannedBudget *float64 `json:"planned_budget,omitempty"`
	OwnerID       string   `json:"owner_id,omitempty"`
	Phase         string   `json:"phase,omitempty"`
	IsArchived    bool     `json:"is_archived"`
}

// Milestone represents a deliverable checkpoint.
type Milestone struct {
	ID           string `json:"id"`
	WorkstreamID string `json:"workstream_id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	DueDate      string `json:"due_date"`
}

// SpendEntry represents a recorded cost.
type SpendEntry struct {
	ID           string  `json:"id"`
	WorkstreamID string  `json:"workstream_id"`
	Amount       float64 `json:"amount"`
	Note         string  `json:"note,omitempty"`
}

// Blocker represents an impediment.
type Blocker struct {
	ID           string `json:"id"`
	WorkstreamID string `json:"workstream_id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	DateRaised   string `json:"date_raised"`
}

// Score represents the computed RAG result for a workstream.
type Score struct {
	WorkstreamID   string  `json:"workstream_id"`
	ScheduleScore  float64 `json:"schedule_score"`
	BudgetScore    float64 `json:"budget_score"`
	BlockerScore   float64 `json:"blocker_score"`
	CompositeScore float64 `json:"composite_score"`
	RagStatus      string  `json:"rag_status"`
	IsStale        bool    `json:"is_stale"`
	CalculatedAt   string  `json:"calculated_at,omitempty"`
}

// PortfolioItem pairs a workstream with its latest score.
type PortfolioItem struct {
	Workstream Workstream `json:"workstream"`
	Score      Score      `json:"score"`
}

// Event represents a log entry.
type Event struct {
	ID           int64          `json:"id"`
	TS           string         `json:"ts"`
	Type         string         `json:"type"`
	WorkstreamID string         `json:"workstream_id,omitempty"`
	EntityKind   string         `json:"entity_kind"`
	EntityID     string         `json:"entity_id,omitempty"`
	ActorID      string         `json:"actor_id"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// WizardAnswers holds the nine-question profile keyed by the API field
// names (q1_work_type .. q9_audience).
type WizardAnswers map[string]string

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateWorkstream creates a workstream. Dates use YYYY-MM-DD.
func (c *Client) CreateWorkstream(ctx context.Context, name, startDate, endDate string) (Workstream, error) {
	body := map[string]any{
		"name":       name,
		"start_date": startDate,
		"end_date":   endDate,
	}
	var resp Workstream
	err := c.do(ctx, http.MethodPost, c.path("workstreams"), body, &resp)
	return resp, err
}

// GetWorkstream fetches a workstream by id.
func (c *Client) GetWorkstream(ctx context.Context, id string) (Workstream, error) {
	var resp Workstream
	err := c.do(ctx, http.MethodGet, c.path("workstreams/"+url.PathEscape(id)), nil, &resp)
	return resp, err
}

// ListWorkstreams returns active workstreams.
func (c *Client) ListWorkstreams(ctx context.Context) ([]Workstream, error) {
	var resp []Workstream
	err := c.do(ctx, http.MethodGet, c.path("workstreams"), nil, &resp)
	return resp, err
}

// ArchiveWorkstream hides a workstream from default listings.
func (c *Client) ArchiveWorkstream(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, c.path("workstreams/"+url.PathEscape(id)+"/archive"), nil, nil)
}

// ConfigureWizard replaces the workstream's nine-answer profile.
func (c *Client) ConfigureWizard(ctx context.Context, workstreamID string, answers WizardAnswers) error {
	endpoint := c.path("workstreams/" + url.PathEscape(workstreamID) + "/wizard")
	return c.do(ctx, http.MethodPut, endpoint, answers, nil)
}

// AddMilestone adds a milestone. DueDate uses YYYY-MM-DD.
func (c *Client) AddMilestone(ctx context.Context, workstreamID, title, dueDate string) (Milestone, error) {
	body := map[string]any{
		"title":    title,
		"due_date": dueDate,
	}
	var resp Milestone
	endpoint := c.path("workstreams/" + url.PathEscape(workstreamID) + "/milestones")
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// SetMilestoneStatus moves a milestone to a new status.
func (c *Client) SetMilestoneStatus(ctx context.Context, milestoneID, status string) (Milestone, error) {
	body := map[string]any{"status": status}
	var resp Milestone
	endpoint := c.path("milestones/" + url.PathEscape(milestoneID))
	err := c.do(ctx, http.MethodPatch, endpoint, body, &resp)
	return resp, err
}

// RecordSpend records a spend entry.
func (c *Client) RecordSpend(ctx context.Context, workstreamID string, amount float64, note string) (SpendEntry, error) {
	body := map[string]any{"amount": amount}
	if note != "" {
		body["note"] = note
	}
	var resp SpendEntry
	endpoint := c.path("workstreams/" + url.PathEscape(workstreamID) + "/spend")
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// LogBlocker logs an open blocker. dateRaised may be empty for today.
func (c *Client) LogBlocker(ctx context.Context, workstreamID, title, dateRaised string) (Blocker, error) {
	body := map[string]any{"title": title}
	if dateRaised != "" {
		body["date_raised"] = dateRaised
	}
	var resp Blocker
	endpoint := c.path("workstreams/" + url.PathEscape(workstreamID) + "/blockers")
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// ResolveBlocker marks a blocker resolved.
func (c *Client) ResolveBlocker(ctx context.Context, blockerID string) (Blocker, error) {
	var resp Blocker
	endpoint := c.path("blockers/" + url.PathEscape(blockerID) + "/resolve")
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// Score returns the latest stored score for a workstream.
func (c *Client) Score(ctx context.Context, workstreamID string) (Score, error) {
	var resp Score
	endpoint := c.path("workstreams/" + url.PathEscape(workstreamID) + "/score")
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Recalculate forces a fresh score calculation.
func (c *Client) Recalculate(ctx context.Context, workstreamID string) (Score, error) {
	var resp Score
	endpoint := c.path("workstreams/" + url.PathEscape(workstreamID) + "/score/recalculate")
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// Portfolio returns all active workstreams with their scores, reds first.
func (c *Client) Portfolio(ctx context.Context) ([]PortfolioItem, error) {
	var resp []PortfolioItem
	err := c.do(ctx, http.MethodGet, c.path("portfolio"), nil, &resp)
	return resp, err
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := c.path("events")
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.ActorID != "":
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) path(p string) string {
	return "v1/" + strings.TrimLeft(p, "/")
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
