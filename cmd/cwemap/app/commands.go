package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/cwemap/cmd/cwemap/cmd/get"
	"github.com/agentstation/cwemap/cmd/cwemap/cmd/list"
	"github.com/agentstation/cwemap/cmd/cwemap/cmd/related"
	"github.com/agentstation/cwemap/cmd/cwemap/cmd/remove"
	"github.com/agentstation/cwemap/cmd/cwemap/cmd/status"
	"github.com/agentstation/cwemap/cmd/cwemap/cmd/update"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(get.NewCommand(a))
	rootCmd.AddCommand(list.NewCommand(a))
	rootCmd.AddCommand(related.NewCommand(a))

	// Management commands
	rootCmd.AddCommand(update.NewCommand(a))
	rootCmd.AddCommand(status.NewCommand(a))
	rootCmd.AddCommand(remove.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(a.newVersionCommand())
}

// newVersionCommand creates the version command.
func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("cwemap %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
