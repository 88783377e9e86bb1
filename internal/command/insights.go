package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nidhogg/boutique-stylist/internal/ingest"
	"github.com/nidhogg/boutique-stylist/internal/journal"
)

// TopLister reports the most recommended products.
type TopLister interface {
	Top(ctx context.Context, limit int) ([]journal.ProductStat, error)
}

// RunLister reports recent ingestion runs.
type RunLister interface {
	ListIngestRuns(ctx context.Context, limit int) ([]ingest.Report, error)
}

// RegisterInsightCommands registers /top and /runs for whichever backends
// are available. Nil arguments skip the command.
func RegisterInsightCommands(reg *Registry, top TopLister, runs RunLister) {
	if top != nil {
		reg.Register(topCommand(top))
	}
	if runs != nil {
		reg.Register(runsCommand(runs))
	}
}

func topCommand(top TopLister) *Command {
	return &Command{
		Name:        "top",
		Description: "Show the most recommended products",
		Usage:       "/top [limit]",
		Handler: func(ctx context.Context, args string, _ *Origin) (*Reply, error) {
			limit := 5
			if s := strings.TrimSpace(args); s != "" {
				n, err := strconv.Atoi(s)
				if err != nil || n <= 0 {
					return &Reply{Content: "Usage: /top [limit]"}, nil
				}
				limit = n
			}
			stats, err := top.Top(ctx, limit)
			if err != nil {
				return nil, err
			}
			if len(stats) == 0 {
				return &Reply{Content: "No recommendations recorded yet."}, nil
			}
			var b strings.Builder
			b.WriteString("Most recommended products:\n")
			for i, s := range stats {
				fmt.Fprintf(&b, "%d. %s (served %d times, avg score %.2f)\n", i+1, s.Name, s.Served, s.AvgScore)
			}
			return &Reply{Content: b.String(), Data: stats}, nil
		},
	}
}

func runsCommand(runs RunLister) *Command {
	return &Command{
		Name:        "runs",
		Description: "Show recent catalog ingestion runs",
		Usage:       "/runs",
		Handler: func(ctx context.Context, _ string, _ *Origin) (*Reply, error) {
			reports, err := runs.ListIngestRuns(ctx, 5)
			if err != nil {
				return nil, err
			}
			if len(reports) == 0 {
				return &Reply{Content: "No ingestion runs recorded."}, nil
			}
			var b strings.Builder
			b.WriteString("Recent ingestion runs:\n")
			for _, r := range reports {
				state := "ok"
				if r.Error != "" {
					state = "failed: " + r.Error
				}
				fmt.Fprintf(&b, "  %s [%s] %d/%d upserted, %d skipped, %s\n",
					r.StartedAt.Format("2006-01-02 15:04"), r.Provider,
					r.Upserted(), r.Products, len(r.Skipped), state)
			}
			return &Reply{Content: b.String(), Data: reports}, nil
		},
	}
}
