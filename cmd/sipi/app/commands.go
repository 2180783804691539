package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PepeluiMoreno/sipi-api/internal/scopes"
	"github.com/PepeluiMoreno/sipi-api/pkg/errors"
	"github.com/PepeluiMoreno/sipi-api/pkg/geo"
	"github.com/PepeluiMoreno/sipi-api/pkg/match"
	"github.com/PepeluiMoreno/sipi-api/pkg/sync"
)

// NewSyncCommand creates the sync command.
func (a *App) NewSyncCommand() *cobra.Command {
	var (
		place     string
		bboxSpec  string
		scopeName string
		dryRun    bool
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the registry against OpenStreetMap",
		Long: `Sync fetches religious heritage elements from the Overpass API and applies
them to the registry: unknown elements create new properties, elements with a
newer upstream revision update existing ones, everything else is skipped.

Without a target flag the whole of Spain is synchronized.`,
		Example: `  sipi sync                                 # whole-country pass
  sipi sync --place "Sevilla"               # resolve place via Nominatim
  sipi sync --scope cadiz                   # named scope from the scopes file
  sipi sync --bbox 36.0,-6.44,36.87,-5.15   # explicit south,west,north,east
  sipi sync --dry-run                       # decide without persisting`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := a.buildTarget(place, bboxSpec, scopeName)
			if err != nil {
				return err
			}

			repo, err := a.Repository()
			if err != nil {
				return err
			}

			opts := []sync.Option{
				sync.WithPlaceResolver(a.Nominatim()),
				sync.WithLogger(a.logger),
				sync.WithDryRun(dryRun),
			}
			if batchSize > 0 {
				opts = append(opts, sync.WithBatchSize(batchSize))
			} else if a.config.BatchSize > 0 {
				opts = append(opts, sync.WithBatchSize(a.config.BatchSize))
			}

			engine := sync.New(repo, a.Overpass(), opts...)
			stats, err := engine.Run(cmd.Context(), target)
			if err != nil {
				return err
			}

			if !a.config.Quiet {
				fmt.Fprintln(cmd.OutOrStdout(), stats.String())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&place, "place", "", "place name to resolve to a bounding box")
	cmd.Flags().StringVar(&bboxSpec, "bbox", "", "explicit bounding box: south,west,north,east")
	cmd.Flags().StringVar(&scopeName, "scope", "", "named scope from the scopes file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "decide without persisting")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "creates/updates per commit (default 50)")

	return cmd
}

// buildTarget maps the mutually exclusive target flags onto a sync target.
func (a *App) buildTarget(place, bboxSpec, scopeName string) (sync.Target, error) {
	set := 0
	for _, s := range []string{place, bboxSpec, scopeName} {
		if s != "" {
			set++
		}
	}
	if set > 1 {
		return sync.Target{}, errors.NewValidationError("target", "", "--place, --bbox and --scope are mutually exclusive")
	}

	switch {
	case place != "":
		return sync.Target{Place: place}, nil
	case bboxSpec != "":
		box, err := parseBBox(bboxSpec)
		if err != nil {
			return sync.Target{}, err
		}
		return sync.Target{BBox: &box}, nil
	case scopeName != "":
		box, err := a.lookupScope(scopeName)
		if err != nil {
			return sync.Target{}, err
		}
		return sync.Target{BBox: &box}, nil
	default:
		return sync.Target{}, nil
	}
}

func (a *App) lookupScope(name string) (geo.BBox, error) {
	if a.config.ScopesFile == "" {
		return geo.BBox{}, errors.NewConfigError("scopes", "no scopes file configured (set SIPI_SCOPES_FILE)", nil)
	}
	set, err := scopes.Load(a.config.ScopesFile)
	if err != nil {
		return geo.BBox{}, err
	}
	box, ok := set.Lookup(name)
	if !ok {
		return geo.BBox{}, errors.NewValidationError("scope", name, "not defined in the scopes file")
	}
	return box, nil
}

// parseBBox parses a "south,west,north,east" flag value.
func parseBBox(spec string) (geo.BBox, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 4 {
		return geo.BBox{}, errors.NewValidationError("bbox", spec, "expected south,west,north,east")
	}

	vals := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return geo.BBox{}, errors.NewValidationError("bbox", spec, "not a number: "+part)
		}
		vals[i] = v
	}

	box := geo.BBox{South: vals[0], West: vals[1], North: vals[2], East: vals[3]}
	if box.South >= box.North || box.West >= box.East {
		return geo.BBox{}, errors.NewValidationError("bbox", spec, "inverted bounding box")
	}
	return box, nil
}

// NewMatchCommand creates the match command.
func (a *App) NewMatchCommand() *cobra.Command {
	var (
		limit    int
		minScore float64
	)

	cmd := &cobra.Command{
		Use:   "match AD_ID",
		Short: "Rank registry properties against an unlinked ad",
		Long: `Match scores every registered property against the given unlinked ad,
blending name similarity with geographic proximity, and prints the best
candidates. An unknown ad id prints nothing.`,
		Example: `  sipi match ad-42
  sipi match ad-42 --limit 10 --min-score 0.3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.Repository()
			if err != nil {
				return err
			}

			query := match.Query{Limit: limit}
			if cmd.Flags().Changed("min-score") {
				query.MinScore = &minScore
			}

			matcher := match.New(repo, match.WithLogger(a.logger))
			candidates, err := matcher.Candidates(cmd.Context(), args[0], query)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(candidates) == 0 {
				fmt.Fprintln(out, "no candidates")
				return nil
			}
			for i, c := range candidates {
				fmt.Fprintf(out, "%2d. %.3f  %s  %s\n", i+1, c.Score, c.Property.ID, c.Property.Name)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum candidates to return (default 5)")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "text-similarity floor, 0 disables it (default 0.2)")

	return cmd
}

// NewScopesCommand creates the scopes command.
func (a *App) NewScopesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scopes",
		Short: "List the named scopes from the scopes file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.config.ScopesFile == "" {
				return errors.NewConfigError("scopes", "no scopes file configured (set SIPI_SCOPES_FILE)", nil)
			}
			set, err := scopes.Load(a.config.ScopesFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range set.Names() {
				box, _ := set.Lookup(name)
				fmt.Fprintf(out, "%-20s %.4f,%.4f,%.4f,%.4f\n", name, box.South, box.West, box.North, box.East)
			}
			return nil
		},
	}
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sipi %s\n", a.version)
			fmt.Fprintf(out, "  commit: %s\n", a.commit)
			fmt.Fprintf(out, "  built:  %s\n", a.date)
		},
	}
}
