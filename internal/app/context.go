// Package app holds helpers shared by the CLI entry points.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hadimercer/meridian/internal/repo"
)

// ResolveWorkstream picks the target workstream for commands that need one.
// It prefers the explicit override, then MERIDIAN_DEFAULT_WORKSTREAM, then a
// database that holds exactly one active workstream.
func ResolveWorkstream(ctx context.Context, override string, r repo.Repo) (string, error) {
	id := strings.TrimSpace(override)
	if id == "" {
		id = strings.TrimSpace(os.Getenv("MERIDIAN_DEFAULT_WORKSTREAM"))
	}
	if id != "" {
		if _, err := r.GetWorkstream(ctx, id); err != nil {
			return "", err
		}
		return id, nil
	}
	items, err := r.ListWorkstreams(ctx, repo.WorkstreamFilters{})
	if err != nil {
		return "", err
	}
	if len(items) == 1 {
		return items[0].ID, nil
	}
	return "", fmt.Errorf("workstream not specified; use --workstream or set MERIDIAN_DEFAULT_WORKSTREAM (meridian workstream use <id>)")
}
