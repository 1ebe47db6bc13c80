package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hadimercer/meridian/internal/app"
	"github.com/hadimercer/meridian/internal/config"
	"github.com/hadimercer/meridian/internal/db"
	"github.com/hadimercer/meridian/internal/domain"
	"github.com/hadimercer/meridian/internal/engine"
	"github.com/hadimercer/meridian/internal/migrate"
	"github.com/hadimercer/meridian/internal/repo"
	"github.com/hadimercer/meridian/internal/server"
)

const dateLayout = "2006-01-02"

var rootCmd = &cobra.Command{
	Use:   "meridian",
	Short: "Meridian CLI",
	Long: `Meridian tracks workstreams and scores them Red/Amber/Green.
Core concepts:
- Workspace: your .meridian directory holding the database; meridian.yml beside it holds optional overrides.
- Workstream: a unit of work with a start date, end date, and optionally a planned budget and owner.
- Wizard: nine setup questions that tune how strictly the workstream is judged.
- Facts: milestones (not_started -> in_progress -> complete), spend entries, and blockers (open -> resolved).
- Score: schedule, budget, and blocker sub-scores roll into a weighted composite and a green/amber/red status.
- Staleness: a workstream with no recent fact updates gets flagged stale regardless of its color.
- Portfolio: all active workstreams with their scores, reds first.
- Event log: diary of changes, view with 'meridian log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("MERIDIAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("workstream", "", "workstream id (overrides the workspace default)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("workstream", rootCmd.PersistentFlags().Lookup("workstream"))
}

func registerCommands() {
	rootCmd.AddCommand(workstreamCmd())
	rootCmd.AddCommand(wizardCmd())
	rootCmd.AddCommand(milestoneCmd())
	rootCmd.AddCommand(spendCmd())
	rootCmd.AddCommand(blockerCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(portfolioCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func workstreamCmd() *cobra.Command {
	ws := &cobra.Command{Use: "workstream", Short: "Manage workstreams"}
	ws.AddCommand(workstreamCreateCmd())
	ws.AddCommand(workstreamListCmd())
	ws.AddCommand(workstreamShowCmd())
	ws.AddCommand(workstreamUpdateCmd())
	ws.AddCommand(workstreamArchiveCmd())
	ws.AddCommand(workstreamUseCmd())
	return ws
}

func workstreamCreateCmd() *cobra.Command {
	var id, name, desc, start, end, owner string
	var budget float64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workstream",
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, err := parseDate(start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			endDate, err := parseDate(end)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			opts := engine.WorkstreamCreateOptions{
				ID:          id,
				Name:        name,
				Description: desc,
				StartDate:   startDate,
				EndDate:     endDate,
				OwnerID:     owner,
				ActorID:     viper.GetString("actor-id"),
			}
			if cmd.Flags().Changed("budget") {
				opts.PlannedBudget = &budget
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w, err := e.CreateWorkstream(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "workstream id (optional, UUID if omitted)")
	cmd.Flags().StringVar(&name, "name", "", "name")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&budget, "budget", 0, "planned budget")
	cmd.Flags().StringVar(&owner, "owner", "", "owner id")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func workstreamListCmd() *cobra.Command {
	var f repo.WorkstreamFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workstreams",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListWorkstreams(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Phase", "Start", "End", "Owner"})
				for _, w := range items {
					tw.AppendRow(table.Row{w.ID, w.Name, w.Phase, fmtDate(w.StartDate), fmtDate(w.EndDate), w.OwnerID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.OwnerID, "owner", "", "owner filter")
	cmd.Flags().StringVar(&f.Phase, "phase", "", "phase filter")
	cmd.Flags().BoolVar(&f.IncludeArchived, "all", false, "include archived workstreams")
	return cmd
}

func workstreamShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a workstream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				id, err := resolveTarget(ctx, e)
				if err != nil {
					return err
				}
				w, err := e.Repo.GetWorkstream(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
	return cmd
}

func workstreamUpdateCmd() *cobra.Command {
	var name, desc, start, end, phase string
	var budget float64
	var clearBudget bool
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a workstream",
		RunE: func(cmd *cobra.Command, args []string) error {
			var u repo.WorkstreamUpdate
			if cmd.Flags().Changed("name") {
				u.Name = &name
			}
			if cmd.Flags().Changed("description") {
				u.Description = &desc
			}
			if cmd.Flags().Changed("start") {
				d, err := parseDate(start)
				if err != nil {
					return fmt.Errorf("--start: %w", err)
				}
				u.StartDate = &d
			}
			if cmd.Flags().Changed("end") {
				d, err := parseDate(end)
				if err != nil {
					return fmt.Errorf("--end: %w", err)
				}
				u.EndDate = &d
			}
			if clearBudget {
				u.ClearBudget = true
			} else if cmd.Flags().Changed("budget") {
				u.PlannedBudget = &budget
			}
			if cmd.Flags().Changed("phase") {
				p := domain.Phase(phase)
				u.Phase = &p
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				id, err := resolveTarget(ctx, e)
				if err != nil {
					return err
				}
				w, err := e.UpdateWorkstream(ctx, id, u, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&budget, "budget", 0, "planned budget")
	cmd.Flags().BoolVar(&clearBudget, "clear-budget", false, "remove the planned budget")
	cmd.Flags().StringVar(&phase, "phase", "", "phase (discovery, planning, in_flight, review_closing)")
	return cmd
}

func workstreamArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive a workstream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				id, err := resolveTarget(ctx, e)
				if err != nil {
					return err
				}
				return e.ArchiveWorkstream(ctx, id, viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func workstreamUseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use <id>",
		Short: "Set current workstream for this workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workstreamID := strings.TrimSpace(args[0])
			if workstreamID == "" {
				return fmt.Errorf("workstream id is required")
			}
			workspace := viper.GetString("workspace")
			if err := setEnvValue(filepath.Join(workspace, ".env"), "MERIDIAN_DEFAULT_WORKSTREAM", workstreamID); err != nil {
				return err
			}
			fmt.Printf("Set MERIDIAN_DEFAULT_WORKSTREAM=%s in %s/.env\n", workstreamID, workspace)
			return nil
		},
	}
	return cmd
}

func wizardCmd() *cobra.Command {
	wiz := &cobra.Command{
		Use:   "wizard",
		Short: "Manage the setup wizard",
		Long:  "The wizard is nine questions about the nature of the work. Answers tune thresholds, weights, and staleness windows for the workstream's score.",
	}
	wiz.AddCommand(wizardSetCmd())
	wiz.AddCommand(wizardShowCmd())
	return wiz
}

func wizardSetCmd() *cobra.Command {
	var workType, deadline, deliverable, budgetExposure, dependency, risk, phase, frequency, audience string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the nine wizard answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			wiz := domain.WizardConfig{
				WorkType:        domain.WorkType(workType),
				DeadlineNature:  domain.DeadlineNature(deadline),
				DeliverableType: domain.DeliverableType(deliverable),
				BudgetExposure:  domain.BudgetExposure(budgetExposure),
				DependencyLevel: domain.DependencyLevel(dependency),
				RiskLevel:       domain.RiskLevel(risk),
				Phase:           domain.Phase(phase),
				UpdateFrequency: domain.UpdateFrequency(frequency),
				Audience:        domain.Audience(audience),
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				id, err := resolveTarget(ctx, e)
				if err != nil {
					return err
				}
				out, err := e.ConfigureWizard(ctx, id, wiz, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(out)
			})
		},
	}
	cmd.Flags().StringVar(&workType, "work-type", "", "delivery, analysis, process_improvement, reporting, strategy, other")
	cmd.Flags().StringVar(&deadline, "deadline", "", "hard_contractual, business_driven, self_imposed, ongoing")
	cmd.Flags().StringVar(&deliverable, "deliverable", "", "document_report, decision_approval, built_solution, process_change, recommendation")
	cmd.Flags().StringVar(&budgetExposure, "budget-exposure", "", "client_billable, approved_internal, informal_none")
	cmd.Flags().StringVar(&dependency, "dependency", "", "self_contained, depends_1_2, depends_multiple, blocked_external")
	cmd.Flags().StringVar(&risk, "risk", "", "low, medium, high, critical")
	cmd.Flags().StringVar(&phase, "phase", "", "discovery, planning, in_flight, review_closing")
	cmd.Flags().StringVar(&frequency, "update-frequency", "", "daily, weekly, biweekly, monthly")
	cmd.Flags().StringVar(&audience, "audience", "", "just_me, my_team, senior_leadership, external_client")
	return cmd
}

func wizardShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored wizard answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				id, err := resolveTarget(ctx, e)
				if err != nil {
					return err
				}
				wiz, err := e.Repo.GetWizardConfig(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(wiz)
			})
		},
	}
	return cmd
}

func milestoneCmd() *cobra.Command {
	ms := &cobra.Command{Use: "milestone", Short: "Manage milestones"}
	ms.AddCommand(milestoneAddCmd())
	ms.AddCommand(milestoneListCmd())
	ms.AddCommand(milestoneUpdateCmd())
	ms.AddCommand(milestoneDeleteCmd())
	return ms
}

func milestoneAddCmd() *cobra.Command {
	var id, title, due, status string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a milestone",
		RunE: func(cmd *cobra.Command, args []string) error {
			dueDate, err := parseDate(due)
			if err != nil {
				return fmt.Errorf("--due: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				wsID, err := resolveTarget(ctx, e)
				if err != nil {
					return err
				}
				m, err := e.AddMilestone(ctx, engine.MilestoneCreateOptions{
					ID:           id,
					WorkstreamID: wsID,
					Title:        title,
					Status:       domain.MilestoneStatus(status),
					DueDate:      dueDate,
					ActorID:      viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "milestone id (optional)")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&status, "status", "", "not_started, in_progress, complete")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func milestoneListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List milestones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				wsID, err := resolveTarget(ctx, e)
				if err != nil {
					return err
				}
				items, err := e.Repo.ListMilestones(ctx, wsID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Due"})
				for _, m := range items {
					tw.AppendRow(table.Row{m.ID, m.Title, m.Status, fmtDate(m.DueDate)})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func milestoneUpdateCmd() *cobra.Command {
	var title, due, status string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a milestone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u repo.MilestoneUpdate
			if cmd.Flags().Changed("title") {
				u.Title = &title
			}
			if cmd.Flags().Changed("status") {
				s := domain.MilestoneStatus(status)
				u.Status = &s
			}
			if cmd.Flags().Changed("due") {
				d, err := parseDate(due)
				if err != nil {
					return fmt.Errorf("--due: %w", err)
				}
				u.DueDate = &d
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.UpdateMilestone(ctx, args[0], u, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&status, "status", "", "not_started, in_progress, complete")
	return cmd
}

func milestoneDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a milestone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteMilestone(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func spendCmd() *cobra.Command {
	sp := &cobra.Command{Use: "spend", Short: "Manage spend entries"}
	sp.AddCommand(spendAddCmd())
	sp.AddCommand(spendListCmd())
	return sp
}

func spendAddCmd() *cobra.Command {
	var id, note string
	var amount float64
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a spend entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				wsID, err := resolveTarget(ctx, e)
				if err != nil {
					return err
				}
				s, err := e.AddSpend(ctx, engine.SpendCreateOptions{
					ID:           id,
					WorkstreamID: wsID,
					Amount:       amount,
					Note:         note,
					ActorID:      viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "entry id (optional)")
	cmd.Flags().Float64Var(&amount, "amount", 0, "amount spent")
	cmd.Flags().StringVar(&note, "note", "", "note")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func spendListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List spend entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				wsID, err := resolveTarget(ctx, e)
				if err != nil {
					return err
				}
				items, err := e.Repo.ListSpendEntries(ctx, wsID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func blockerCmd() *cobra.Command {
	bl := &cobra.Command{Use: "blocker", Short: "Manage blockers"}
	bl.AddCommand(blockerLogCmd())
	bl.AddCommand(blockerListCmd())
	bl.AddCommand(blockerResolveCmd())
	return bl
}

func blockerLogCmd() *cobra.Command {
	var id, title, raised string
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Log a blocker",
		RunE: func(cmd *cobra.Command, args []string) error {
			var raisedDate time.Time
			if raised != "" {
				d, err := parseDate(raised)
				if err != nil {
					return fmt.Errorf("--raised: %w", err)
				}
				raisedDate = d
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				wsID, err := resolveTarget(ctx, e)
				if err != nil {
					return err
				}
				b, err := e.LogBlocker(ctx, engine.BlockerCreateOptions{
					ID:           id,
					WorkstreamID: wsID,
					Title:        title,
					DateRaised:   raisedDate,
					ActorID:      viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(b)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "blocker id (optional)")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&raised, "raised", "", "date raised (YYYY-MM-DD, default today)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func blockerListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List blockers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				wsID, err := resolveTarget(ctx, e)
				if err != nil {
					return err
				}
				items, err := e.Repo.ListBlockers(ctx, wsID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Raised"})
				for _, b := range items {
					tw.AppendRow(table.Row{b.ID, b.Title, b.Status, fmtDate(b.DateRaised)})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func blockerResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Resolve a blocker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				b, err := e.ResolveBlocker(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(b)
			})
		},
	}
	return cmd
}

func scoreCmd() *cobra.Command {
	sc := &cobra.Command{Use: "score", Short: "View and recalculate scores"}
	sc.AddCommand(scoreShowCmd())
	sc.AddCommand(scoreRecalcCmd())
	return sc
}

func scoreShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored score",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				id, err := resolveTarget(ctx, e)
				if err != nil {
					return err
				}
				s, err := e.Repo.GetRagScore(ctx, id)
				if errors.Is(err, repo.ErrNotFound) {
					s = e.Rescore(ctx, id)
				} else if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	return cmd
}

func scoreRecalcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "Recalculate the score now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				id, err := resolveTarget(ctx, e)
				if err != nil {
					return err
				}
				return printJSONOrTable(e.Rescore(ctx, id))
			})
		},
	}
	return cmd
}

func portfolioCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Show all active workstreams with scores, reds first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				rows, err := r.ListPortfolio(ctx, owner)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rows)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Status", "Composite", "Schedule", "Budget", "Blocker", "Stale"})
				for _, row := range rows {
					if row.Score == nil {
						tw.AppendRow(table.Row{row.Workstream.ID, row.Workstream.Name, "green", "-", "-", "-", "-", false})
						continue
					}
					s := row.Score
					tw.AppendRow(table.Row{
						row.Workstream.ID, row.Workstream.Name, s.RagStatus,
						fmt.Sprintf("%.1f", s.CompositeScore),
						fmt.Sprintf("%.1f", s.ScheduleScore),
						fmt.Sprintf("%.1f", s.BudgetScore),
						fmt.Sprintf("%.1f", s.BlockerScore),
						s.IsStale,
					})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner filter")
	return cmd
}

func logCmd() *cobra.Command {
	lg := &cobra.Command{Use: "log", Short: "Event log"}
	lg.AddCommand(logTailCmd())
	return lg
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n, viper.GetString("workstream"), evtType)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			logger, err := cfg.InitLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			e := engine.New(conn, cfg.Baselines())

			authCfg := server.AuthConfig{
				JWTSecret:              cfg.Server.JWTSecret,
				AllowLegacyActorHeader: cfg.Server.AllowLegacyActorHeader,
			}
			if authCfg.JWTSecret == "" {
				authCfg.JWTSecret = os.Getenv("MERIDIAN_JWT_SECRET")
			}
			if authCfg.JWTSecret == "" && !authCfg.AllowLegacyActorHeader {
				return fmt.Errorf("MERIDIAN_JWT_SECRET is required for bearer auth")
			}
			if !cmd.Flags().Changed("addr") && cfg.Server.Addr != "" {
				addr = cfg.Server.Addr
			}
			if !cmd.Flags().Changed("base-path") && cfg.Server.BasePath != "" {
				basePath = cfg.Server.BasePath
			}

			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			server.StartWebhookDispatcher(e, cfg.Webhooks)

			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Meridian API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, engine.New(conn, cfg.Baselines()))
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func resolveTarget(ctx context.Context, e engine.Engine) (string, error) {
	return app.ResolveWorkstream(ctx, viper.GetString("workstream"), e.Repo)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q", s)
	}
	return d, nil
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func setEnvValue(path, key, value string) error {
	var lines []string
	seen := false
	f, err := os.Open(path)
	if err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, key+"=") {
				lines = append(lines, fmt.Sprintf("%s=%s", key, value))
				seen = true
			} else {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return err
		}
		f.Close()
	} else if !os.IsNotExist(err) {
		return err
	}
	if !seen {
		lines = append(lines, fmt.Sprintf("%s=%s", key, value))
	}
	content := strings.Join(lines, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
