// Package remove implements the delete command.
package remove

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/cwemap/internal/cmd/application"
)

// NewCommand creates the delete command.
func NewCommand(app application.Application) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete",
		Aliases: []string{"rm"},
		GroupID: "management",
		Short:   "Remove the local catalog",
		Long: `Delete removes the indexed records, the index document, the cached raw
catalog and any leftovers of interrupted updates. Other files in the data
directory are kept.`,
		Example: `  cwemap delete        # Asks for confirmation
  cwemap delete --yes  # No questions asked`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}

			if !yes {
				confirmed, err := confirm(cmd, client.DataDir())
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}

			if err := client.Delete(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted catalog in %s\n", client.DataDir())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

// confirm asks on the command's input whether to go on.
func confirm(cmd *cobra.Command, dir string) (bool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "Delete the catalog in %s? [y/N] ", dir)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		// EOF without an answer counts as no
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
