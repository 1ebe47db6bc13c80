// Package server exposes the Meridian HTTP API: workstream CRUD, fact
// tracking, wizard configuration, RAG scores, and the event log.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/hadimercer/meridian/internal/domain"
	"github.com/hadimercer/meridian/internal/engine"
	"github.com/hadimercer/meridian/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"workstream not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Meridian API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Meridian API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerWorkstreams(group, cfg.Engine)
	registerWizard(group, cfg.Engine)
	registerMilestones(group, cfg.Engine)
	registerSpend(group, cfg.Engine)
	registerBlockers(group, cfg.Engine)
	registerScores(group, cfg.Engine)
	registerPortfolio(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", "not found", nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "unknown answer"):
		return newAPIError(http.StatusBadRequest, "invalid_wizard_answer", msg, nil)
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "must") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func parseDateParam(field, value string) (time.Time, huma.StatusError) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, newAPIError(http.StatusBadRequest, "bad_request",
			fmt.Sprintf("%s must be a YYYY-MM-DD date", field), map[string]any{"field": field})
	}
	return t, nil
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Meridian API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerWorkstreams(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-workstream",
		Method:        http.MethodPost,
		Path:          "/workstreams",
		Summary:       "Create workstream",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateWorkstreamRequest `json:"body"`
	}) (*struct {
		Body WorkstreamResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		start, perr := parseDateParam("start_date", input.Body.StartDate)
		if perr != nil {
			return nil, perr
		}
		end, perr := parseDateParam("end_date", input.Body.EndDate)
		if perr != nil {
			return nil, perr
		}
		opts := engine.WorkstreamCreateOptions{
			Name:          input.Body.Name,
			StartDate:     start,
			EndDate:       end,
			PlannedBudget: input.Body.PlannedBudget,
			OwnerID:       actorID,
			ActorID:       actorID,
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		if input.Body.Description != nil {
			opts.Description = *input.Body.Description
		}
		if input.Body.OwnerID != nil {
			opts.OwnerID = *input.Body.OwnerID
		}
		if input.Body.Wizard != nil {
			wiz := input.Body.Wizard.toDomain()
			opts.Wizard = &wiz
		}
		w, err := e.CreateWorkstream(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkstreamResponse `json:"body"`
		}{Body: workstreamResponse(w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-workstreams",
		Method:      http.MethodGet,
		Path:        "/workstreams",
		Summary:     "List workstreams",
	}, func(ctx context.Context, input *struct {
		OwnerID         string `query:"owner_id"`
		Phase           string `query:"phase"`
		IncludeArchived bool   `query:"include_archived"`
	}) (*struct {
		Body []WorkstreamResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListWorkstreams(ctx, repo.WorkstreamFilters{
			OwnerID:         input.OwnerID,
			Phase:           input.Phase,
			IncludeArchived: input.IncludeArchived,
		})
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]WorkstreamResponse, 0, len(items))
		for _, w := range items {
			res = append(res, workstreamResponse(w))
		}
		return &struct {
			Body []WorkstreamResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-workstream",
		Method:      http.MethodGet,
		Path:        "/workstreams/{workstream_id}",
		Summary:     "Get workstream",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkstreamID string `path:"workstream_id"`
	}) (*struct {
		Body WorkstreamResponse `json:"body"`
	}, error) {
		w, err := e.Repo.GetWorkstream(ctx, input.WorkstreamID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkstreamResponse `json:"body"`
		}{Body: workstreamResponse(w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-workstream",
		Method:      http.MethodPatch,
		Path:        "/workstreams/{workstream_id}",
		Summary:     "Update workstream",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkstreamID string                  `path:"workstream_id"`
		Body         UpdateWorkstreamRequest `json:"body"`
	}) (*struct {
		Body WorkstreamResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u := repo.WorkstreamUpdate{
			Name:          input.Body.Name,
			Description:   input.Body.Description,
			PlannedBudget: input.Body.PlannedBudget,
			ClearBudget:   input.Body.ClearBudget,
		}
		if input.Body.StartDate != nil {
			t, perr := parseDateParam("start_date", *input.Body.StartDate)
			if perr != nil {
				return nil, perr
			}
			u.StartDate = &t
		}
		if input.Body.EndDate != nil {
			t, perr := parseDateParam("end_date", *input.Body.EndDate)
			if perr != nil {
				return nil, perr
			}
			u.EndDate = &t
		}
		if input.Body.Phase != nil {
			phase := domain.Phase(*input.Body.Phase)
			u.Phase = &phase
		}
		w, err := e.UpdateWorkstream(ctx, input.WorkstreamID, u, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkstreamResponse `json:"body"`
		}{Body: workstreamResponse(w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-workstream",
		Method:      http.MethodPost,
		Path:        "/workstreams/{workstream_id}/archive",
		Summary:     "Archive workstream",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkstreamID string `path:"workstream_id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.ArchiveWorkstream(ctx, input.WorkstreamID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerWizard(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "configure-wizard",
		Method:      http.MethodPut,
		Path:        "/workstreams/{workstream_id}/wizard",
		Summary:     "Configure scoring wizard",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkstreamID string        `path:"workstream_id"`
		Body         WizardRequest `json:"body"`
	}) (*struct {
		Body WizardResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		wiz, err := e.ConfigureWizard(ctx, input.WorkstreamID, input.Body.toDomain(), actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WizardResponse `json:"body"`
		}{Body: wizardResponse(wiz)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-wizard",
		Method:      http.MethodGet,
		Path:        "/workstreams/{workstream_id}/wizard",
		Summary:     "Get scoring wizard config",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkstreamID string `path:"workstream_id"`
	}) (*struct {
		Body WizardResponse `json:"body"`
	}, error) {
		wiz, err := e.Repo.GetWizardConfig(ctx, input.WorkstreamID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WizardResponse `json:"body"`
		}{Body: wizardResponse(wiz)}, nil
	})
}

func registerMilestones(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-milestone",
		Method:        http.MethodPost,
		Path:          "/workstreams/{workstream_id}/milestones",
		Summary:       "Add milestone",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkstreamID string                 `path:"workstream_id"`
		Body         CreateMilestoneRequest `json:"body"`
	}) (*struct {
		Body MilestoneResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		due, perr := parseDateParam("due_date", input.Body.DueDate)
		if perr != nil {
			return nil, perr
		}
		opts := engine.MilestoneCreateOptions{
			WorkstreamID: input.WorkstreamID,
			Title:        input.Body.Title,
			Status:       domain.MilestoneStatus(input.Body.Status),
			DueDate:      due,
			ActorID:      actorID,
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		m, err := e.AddMilestone(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MilestoneResponse `json:"body"`
		}{Body: milestoneResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-milestones",
		Method:      http.MethodGet,
		Path:        "/workstreams/{workstream_id}/milestones",
		Summary:     "List milestones",
	}, func(ctx context.Context, input *struct {
		WorkstreamID string `path:"workstream_id"`
	}) (*struct {
		Body []MilestoneResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListMilestones(ctx, input.WorkstreamID)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]MilestoneResponse, 0, len(items))
		for _, m := range items {
			res = append(res, milestoneResponse(m))
		}
		return &struct {
			Body []MilestoneResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-milestone",
		Method:      http.MethodPatch,
		Path:        "/milestones/{milestone_id}",
		Summary:     "Update milestone",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MilestoneID string                 `path:"milestone_id"`
		Body        UpdateMilestoneRequest `json:"body"`
	}) (*struct {
		Body MilestoneResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u := repo.MilestoneUpdate{Title: input.Body.Title}
		if input.Body.Status != nil {
			status := domain.MilestoneStatus(*input.Body.Status)
			u.Status = &status
		}
		if input.Body.DueDate != nil {
			t, perr := parseDateParam("due_date", *input.Body.DueDate)
			if perr != nil {
				return nil, perr
			}
			u.DueDate = &t
		}
		m, err := e.UpdateMilestone(ctx, input.MilestoneID, u, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MilestoneResponse `json:"body"`
		}{Body: milestoneResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-milestone",
		Method:      http.MethodDelete,
		Path:        "/milestones/{milestone_id}",
		Summary:     "Delete milestone",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MilestoneID string `path:"milestone_id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteMilestone(ctx, input.MilestoneID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerSpend(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "record-spend",
		Method:        http.MethodPost,
		Path:          "/workstreams/{workstream_id}/spend",
		Summary:       "Record spend",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkstreamID string             `path:"workstream_id"`
		Body         CreateSpendRequest `json:"body"`
	}) (*struct {
		Body SpendResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.SpendCreateOptions{
			WorkstreamID: input.WorkstreamID,
			Amount:       input.Body.Amount,
			ActorID:      actorID,
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		if input.Body.Note != nil {
			opts.Note = *input.Body.Note
		}
		s, err := e.AddSpend(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SpendResponse `json:"body"`
		}{Body: spendResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-spend",
		Method:      http.MethodGet,
		Path:        "/workstreams/{workstream_id}/spend",
		Summary:     "List spend entries",
	}, func(ctx context.Context, input *struct {
		WorkstreamID string `path:"workstream_id"`
	}) (*struct {
		Body []SpendResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListSpendEntries(ctx, input.WorkstreamID)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]SpendResponse, 0, len(items))
		for _, s := range items {
			res = append(res, spendResponse(s))
		}
		return &struct {
			Body []SpendResponse `json:"body"`
		}{Body: res}, nil
	})
}

func registerBlockers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "log-blocker",
		Method:        http.MethodPost,
		Path:          "/workstreams/{workstream_id}/blockers",
		Summary:       "Log blocker",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkstreamID string               `path:"workstream_id"`
		Body         CreateBlockerRequest `json:"body"`
	}) (*struct {
		Body BlockerResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.BlockerCreateOptions{
			WorkstreamID: input.WorkstreamID,
			Title:        input.Body.Title,
			ActorID:      actorID,
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		if input.Body.DateRaised != nil {
			t, perr := parseDateParam("date_raised", *input.Body.DateRaised)
			if perr != nil {
				return nil, perr
			}
			opts.DateRaised = t
		}
		b, err := e.LogBlocker(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body BlockerResponse `json:"body"`
		}{Body: blockerResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-blockers",
		Method:      http.MethodGet,
		Path:        "/workstreams/{workstream_id}/blockers",
		Summary:     "List blockers",
	}, func(ctx context.Context, input *struct {
		WorkstreamID string `path:"workstream_id"`
	}) (*struct {
		Body []BlockerResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListBlockers(ctx, input.WorkstreamID)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]BlockerResponse, 0, len(items))
		for _, b := range items {
			res = append(res, blockerResponse(b))
		}
		return &struct {
			Body []BlockerResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-blocker",
		Method:      http.MethodPost,
		Path:        "/blockers/{blocker_id}/resolve",
		Summary:     "Resolve blocker",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		BlockerID string `path:"blocker_id"`
	}) (*struct {
		Body BlockerResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b, err := e.ResolveBlocker(ctx, input.BlockerID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body BlockerResponse `json:"body"`
		}{Body: blockerResponse(b)}, nil
	})
}

func registerScores(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-score",
		Method:      http.MethodGet,
		Path:        "/workstreams/{workstream_id}/score",
		Summary:     "Get RAG score",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkstreamID string `path:"workstream_id"`
	}) (*struct {
		Body ScoreResponse `json:"body"`
	}, error) {
		s, err := e.Repo.GetRagScore(ctx, input.WorkstreamID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ScoreResponse `json:"body"`
		}{Body: scoreResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "recalculate-score",
		Method:      http.MethodPost,
		Path:        "/workstreams/{workstream_id}/score/recalculate",
		Summary:     "Recalculate RAG score",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkstreamID string `path:"workstream_id"`
	}) (*struct {
		Body ScoreResponse `json:"body"`
	}, error) {
		if _, err := e.Repo.GetWorkstream(ctx, input.WorkstreamID); err != nil {
			return nil, handleError(err)
		}
		s := e.Rescore(ctx, input.WorkstreamID)
		return &struct {
			Body ScoreResponse `json:"body"`
		}{Body: scoreResponse(s)}, nil
	})
}

func registerPortfolio(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "portfolio",
		Method:      http.MethodGet,
		Path:        "/portfolio",
		Summary:     "Portfolio dashboard, worst status first",
	}, func(ctx context.Context, input *struct {
		OwnerID string `query:"owner_id"`
	}) (*struct {
		Body []PortfolioItemResponse `json:"body"`
	}, error) {
		rows, err := e.Repo.ListPortfolio(ctx, input.OwnerID)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]PortfolioItemResponse, 0, len(rows))
		for _, row := range rows {
			res = append(res, portfolioItemResponse(row))
		}
		return &struct {
			Body []PortfolioItemResponse `json:"body"`
		}{Body: res}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List audit events, newest first",
	}, func(ctx context.Context, input *struct {
		Limit        int    `query:"limit" default:"50" minimum:"1" maximum:"500"`
		WorkstreamID string `query:"workstream_id"`
		Type         string `query:"type"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		limit := input.Limit
		if limit <= 0 {
			limit = 50
		}
		items, err := e.Repo.LatestEvents(ctx, limit, input.WorkstreamID, input.Type)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]EventResponse, 0, len(items))
		for _, ev := range items {
			var payload map[string]any
			_ = json.Unmarshal([]byte(ev.Payload), &payload)
			res = append(res, eventResponse(ev, payload))
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: res}, nil
	})
}
