// Package status implements the status command.
package status

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/cwemap/internal/cmd/application"
	"github.com/agentstation/cwemap/internal/cmd/output"
	"github.com/agentstation/cwemap/internal/cmd/table"
	"github.com/agentstation/cwemap/pkg/catalog"
	"github.com/agentstation/cwemap/pkg/errors"
)

// Status describes the installed store.
type Status struct {
	DataDir         string                `json:"data_dir"`
	Installed       bool                  `json:"installed"`
	Version         string                `json:"version,omitempty"`
	BuildID         string                `json:"build_id,omitempty"`
	BuiltAt         string                `json:"built_at,omitempty"`
	Counts          map[catalog.Group]int `json:"counts,omitempty"`
	Published       string                `json:"published,omitempty"`
	UpdateAvailable *bool                 `json:"update_available,omitempty"`
}

// NewCommand creates the status command.
func NewCommand(app application.Application) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:     "status",
		GroupID: "management",
		Short:   "Show the installed catalog",
		Example: `  cwemap status           # Installed version and entity counts
  cwemap status --remote  # Also compare with the published version`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := collect(cmd, app, remote)
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			if !format.IsTable() {
				return output.NewFormatter(format).Format(cmd.OutOrStdout(), st)
			}
			if err := output.NewFormatter(format).Format(cmd.OutOrStdout(), propertyTable(st)); err != nil {
				return err
			}
			if st.Installed {
				return output.NewFormatter(format).Format(cmd.OutOrStdout(), table.CountsToTableData(st.Counts))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "compare with the published catalog version")

	return cmd
}

func collect(cmd *cobra.Command, app application.Application, remote bool) (*Status, error) {
	client, err := app.Client()
	if err != nil {
		return nil, err
	}

	st := &Status{DataDir: client.DataDir()}
	s, err := client.Store()
	switch {
	case errors.IsNotInstalled(err):
	case err != nil:
		return nil, err
	default:
		st.Installed = true
		st.Version = s.Version()
		st.BuildID = s.Index().BuildID
		if built := s.BuiltAt(); !built.IsZero() {
			st.BuiltAt = built.Format("2006-01-02 15:04:05 MST")
		}
		st.Counts = make(map[catalog.Group]int, len(catalog.Groups()))
		for _, g := range catalog.Groups() {
			st.Counts[g] = s.Len(g)
		}
	}

	if remote {
		provider := app.VersionProvider()
		if provider == nil {
			return st, nil
		}
		published, err := provider.RemoteVersion(cmd.Context())
		if err != nil {
			return nil, err
		}
		st.Published = published
		available := client.NeedsUpdate(published)
		st.UpdateAvailable = &available
	}
	return st, nil
}

func propertyTable(st *Status) table.Data {
	rows := [][]string{
		{"Data Dir", st.DataDir},
		{"Installed", fmt.Sprint(st.Installed)},
	}
	if st.Installed {
		rows = append(rows,
			[]string{"Version", st.Version},
			[]string{"Build ID", st.BuildID},
			[]string{"Built At", st.BuiltAt},
		)
	}
	if st.Published != "" {
		rows = append(rows, []string{"Published", st.Published})
	}
	if st.UpdateAvailable != nil {
		rows = append(rows, []string{"Update Available", fmt.Sprint(*st.UpdateAvailable)})
	}
	return table.Data{Headers: []string{"Property", "Value"}, Rows: rows}
}
