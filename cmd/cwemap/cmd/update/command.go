// Package update implements the update command.
package update

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/cwemap"
	"github.com/agentstation/cwemap/internal/cmd/application"
	"github.com/agentstation/cwemap/internal/cmd/output"
	"github.com/agentstation/cwemap/internal/cmd/table"
	"github.com/agentstation/cwemap/internal/sources/mitre"
	"github.com/agentstation/cwemap/pkg/errors"
)

// Flags holds the update command flags.
type Flags struct {
	Force  bool
	File   string
	Check  bool
	Issues bool
}

// Check reports the installed and published versions.
type Check struct {
	DataDir         string `json:"data_dir"`
	Installed       string `json:"installed,omitempty"`
	Published       string `json:"published"`
	UpdateAvailable bool   `json:"update_available"`
}

// NewCommand creates the update command.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}
	cmd := &cobra.Command{
		Use:     "update",
		GroupID: "management",
		Short:   "Download and index the latest catalog",
		Long: `Update downloads the published CWE catalog and rebuilds the local store.

The store is only rebuilt when the published version differs from the
installed one, unless --force is given. The new store is built next to the
installed one and swapped in at the end, so a failed update leaves the
installed catalog untouched.`,
		Example: `  cwemap update                       # Install or refresh the catalog
  cwemap update --check               # Only compare versions
  cwemap update --force               # Rebuild even when current
  cwemap update --file cwec_v4.16.xml # Install from a local document`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.Force, "force", "f", false, "rebuild even when the installed version is current")
	cmd.Flags().StringVar(&flags.File, "file", "", "install from a local zip, XML or JSON document instead of downloading")
	cmd.Flags().BoolVar(&flags.Check, "check", false, "only report whether an update is available")
	cmd.Flags().BoolVar(&flags.Issues, "issues", false, "list skipped records, dangling edges and unknown statuses")
	cmd.MarkFlagsMutuallyExclusive("check", "file")

	return cmd
}

func run(cmd *cobra.Command, app application.Application, flags *Flags) error {
	ctx := cmd.Context()
	format := output.DetectFormat(app.OutputFormat())

	var opts []cwemap.Option
	if flags.File != "" {
		opts = append(opts, cwemap.WithSource(mitre.NewFileSource(flags.File)))
	}
	client, err := app.Client(opts...)
	if err != nil {
		return err
	}

	if flags.Check {
		check, err := checkVersion(cmd, app, client)
		if err != nil {
			return err
		}
		return output.Render(cmd.OutOrStdout(), format, table.Data{
			Headers: []string{"Property", "Value"},
			Rows: [][]string{
				{"Data Dir", check.DataDir},
				{"Installed", orNone(check.Installed)},
				{"Published", check.Published},
				{"Update Available", fmt.Sprint(check.UpdateAvailable)},
			},
		}, check)
	}

	var result *cwemap.Result
	if flags.Force || flags.File != "" {
		result, err = client.Update(ctx)
	} else {
		result, err = client.EnsureFresh(ctx, app.VersionProvider())
	}
	if err != nil {
		return err
	}
	if err := app.WriteMetrics(); err != nil {
		app.Logger().Warn().Err(err).Msg("Failed to write metrics")
	}

	if result == nil {
		local, _ := client.LocalVersion()
		app.Logger().Info().Str("version", local).Msg("Catalog is up to date")
		if !format.IsTable() {
			return output.NewFormatter(format).Format(cmd.OutOrStdout(), map[string]any{
				"updated": false,
				"version": local,
			})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Catalog %s is up to date\n", orNone(local))
		return nil
	}

	if !format.IsTable() {
		return output.NewFormatter(format).Format(cmd.OutOrStdout(), result)
	}
	return printResult(cmd.OutOrStdout(), format, result, flags.Issues)
}

func checkVersion(cmd *cobra.Command, app application.Application, client application.Client) (*Check, error) {
	provider := app.VersionProvider()
	if provider == nil {
		return nil, errors.NewConfigError("update", "no version provider configured", nil)
	}
	remote, err := provider.RemoteVersion(cmd.Context())
	if err != nil {
		return nil, err
	}
	local, _ := client.LocalVersion()
	return &Check{
		DataDir:         client.DataDir(),
		Installed:       local,
		Published:       remote,
		UpdateAvailable: client.NeedsUpdate(remote),
	}, nil
}

func printResult(w io.Writer, format output.Format, result *cwemap.Result, issues bool) error {
	report := result.Report
	fmt.Fprintf(w, "Installed CWE catalog %s from %s\n", report.Version, result.Source)
	fmt.Fprintf(w, "%d entities, %d edges in %s\n\n", report.Total(), report.Edges, result.Duration.Round(time.Millisecond))

	if format == output.FormatWide {
		result.Changes.Print(w)
	} else {
		fmt.Fprintln(w, result.Changes.String())
	}
	if result.Changes.HasChanges() && format != output.FormatWide {
		if err := output.NewFormatter(format).Format(w, table.ChangesToTableData(result.Changes)); err != nil {
			return err
		}
	}

	if !report.HasIssues() {
		return nil
	}
	fmt.Fprintf(w, "\n%d skipped, %d dangling, %d unknown statuses\n",
		len(report.Skipped), len(report.Dangling), len(report.UnknownStatuses))
	if !issues {
		return nil
	}
	return output.NewFormatter(format).Format(w, table.ReportToTableData(report))
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
