// Package related implements the related command.
package related

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/cwemap/internal/cmd/application"
	"github.com/agentstation/cwemap/internal/cmd/output"
	"github.com/agentstation/cwemap/internal/cmd/table"
	"github.com/agentstation/cwemap/pkg/catalog"
)

// Relationship is the JSON form of the command output.
type Relationship struct {
	ID        string            `json:"id"`
	Direction catalog.Direction `json:"direction"`
	Group     catalog.Group     `json:"group"`
	IDs       []string          `json:"ids"`
}

// NewCommand creates the related command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "related <id> <has_member|member_of> <group>",
		GroupID: "core",
		Short:   "Follow membership links of an entry",
		Long: `Related lists the members or parents of a view, category or weakness
within one target group.`,
		Example: `  cwemap related 1000 has_member category   # Categories in view 1000
  cwemap related 79 member_of category      # Categories holding CWE-79
  cwemap related 79 parents view            # Views holding CWE-79`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := catalog.ParseDirection(args[1])
			if err != nil {
				return err
			}
			target, err := catalog.ParseGroup(args[2])
			if err != nil {
				return err
			}

			s, err := app.Store()
			if err != nil {
				return err
			}
			ids, err := s.Relationship(args[0], dir, target)
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			if !format.IsTable() {
				owner := args[0]
				if e, err := s.Resolve(owner); err == nil {
					owner = e.ID
				}
				return output.NewFormatter(format).Format(cmd.OutOrStdout(), Relationship{
					ID:        owner,
					Direction: dir,
					Group:     target,
					IDs:       ids,
				})
			}

			var entities []*catalog.Entity
			for e, err := range s.All(target, ids...) {
				if err != nil {
					app.Logger().Warn().Err(err).Msg("Skipping related entry")
					continue
				}
				entities = append(entities, e)
			}
			return output.NewFormatter(format).Format(cmd.OutOrStdout(),
				table.EntitiesToTableData(entities, format == output.FormatWide))
		},
	}

	return cmd
}
