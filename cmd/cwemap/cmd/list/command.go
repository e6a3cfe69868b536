// Package list implements the list command.
package list

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/cwemap/internal/cmd/application"
	"github.com/agentstation/cwemap/internal/cmd/output"
	"github.com/agentstation/cwemap/internal/cmd/table"
	"github.com/agentstation/cwemap/pkg/catalog"
	"github.com/agentstation/cwemap/pkg/errors"
)

// Flags holds the list command flags.
type Flags struct {
	Status        []string
	ExcludeStatus []string
	Limit         int
}

// NewCommand creates the list command.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}
	cmd := &cobra.Command{
		Use:     "list <group> [id...]",
		GroupID: "core",
		Short:   "List catalog entries of one group",
		Long: `List shows the views, categories, weaknesses or external references of
the installed catalog in id order. With ids only those entries are shown.`,
		Example: `  cwemap list views
  cwemap list weaknesses --exclude-status Deprecated,Obsolete
  cwemap list weakness 79 89 20
  cwemap list categories --status stable -o json`,
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: []string{"view", "category", "weakness", "reference"},
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := catalog.ParseGroup(args[0])
			if err != nil {
				return err
			}
			filter, err := newFilter(flags)
			if err != nil {
				return err
			}

			s, err := app.Store()
			if err != nil {
				return err
			}

			log := app.Logger()
			var entities []*catalog.Entity
			for e, err := range s.All(g, args[1:]...) {
				if err != nil {
					if errors.IsNotFound(err) {
						log.Warn().Err(err).Msg("Skipping entry")
						continue
					}
					return err
				}
				if !filter.keep(e) {
					continue
				}
				entities = append(entities, e)
				if flags.Limit > 0 && len(entities) >= flags.Limit {
					break
				}
			}

			format := output.DetectFormat(app.OutputFormat())
			data := table.EntitiesToTableData(entities, format == output.FormatWide)
			return output.Render(cmd.OutOrStdout(), format, data, entities)
		},
	}

	cmd.Flags().StringSliceVar(&flags.Status, "status", nil, "only entries with these statuses")
	cmd.Flags().StringSliceVar(&flags.ExcludeStatus, "exclude-status", nil, "skip entries with these statuses, e.g. Deprecated,Obsolete")
	cmd.Flags().IntVarP(&flags.Limit, "limit", "l", 0, "maximum number of entries (0 means all)")

	return cmd
}

// filter selects entities by status.
type filter struct {
	include map[catalog.Status]bool
	exclude map[catalog.Status]bool
}

func newFilter(flags *Flags) (*filter, error) {
	include, err := parseStatuses(flags.Status)
	if err != nil {
		return nil, err
	}
	exclude, err := parseStatuses(flags.ExcludeStatus)
	if err != nil {
		return nil, err
	}
	return &filter{include: include, exclude: exclude}, nil
}

func (f *filter) keep(e *catalog.Entity) bool {
	if len(f.include) > 0 && !f.include[e.Status] {
		return false
	}
	return !f.exclude[e.Status]
}

func parseStatuses(values []string) (map[catalog.Status]bool, error) {
	set := make(map[catalog.Status]bool, len(values))
	for _, v := range values {
		st, ok := catalog.ParseStatus(v)
		if !ok {
			return nil, errors.NewValidationError("status", v, "unknown status")
		}
		set[st] = true
	}
	return set, nil
}
