// Package get implements the get command.
package get

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/cwemap/internal/cmd/application"
	"github.com/agentstation/cwemap/internal/cmd/output"
	"github.com/agentstation/cwemap/internal/cmd/table"
	"github.com/agentstation/cwemap/pkg/catalog"
	"github.com/agentstation/cwemap/pkg/store"
)

// NewCommand creates the get command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		group   string
		payload bool
	)
	cmd := &cobra.Command{
		Use:     "get <id>",
		GroupID: "core",
		Short:   "Show one catalog entry",
		Long: `Get shows a view, category, weakness or external reference.

Without --group, numeric ids are looked up across views, categories and
weaknesses, which share one id space, and REF- ids among the references.`,
		Example: `  cwemap get 79                    # CWE-79 wherever it lives
  cwemap get CWE-1000 -g view      # A specific group
  cwemap get REF-44                # An external reference
  cwemap get 79 --payload          # The raw catalog record`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Store()
			if err != nil {
				return err
			}

			e, err := find(s, group, args[0])
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			if payload {
				if format.IsTable() {
					format = output.FormatJSON
				}
				return output.NewFormatter(format).Format(cmd.OutOrStdout(), e.Payload)
			}
			return output.Render(cmd.OutOrStdout(), format, table.EntityToTableData(e), e)
		},
	}

	cmd.Flags().StringVarP(&group, "group", "g", "", "group of the id: view, category, weakness, reference")
	cmd.Flags().BoolVar(&payload, "payload", false, "print the raw catalog record")

	return cmd
}

func find(s *store.Store, group, id string) (*catalog.Entity, error) {
	if group == "" {
		return s.Resolve(id)
	}
	g, err := catalog.ParseGroup(group)
	if err != nil {
		return nil, err
	}
	return s.Get(g, id)
}
