package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/infusio/infusio/internal/interfaces/cli/migrate"
	"github.com/infusio/infusio/internal/interfaces/cli/server"
	"github.com/infusio/infusio/internal/interfaces/cli/token"
	"github.com/infusio/infusio/internal/shared/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "infusio",
		Short:   "Infusio - infusion dashboard support service",
		Long:    `Infusio serves the support ticket API of the infusion dashboard, relays tickets to the support team by email and threads their replies back into each ticket.`,
		Version: version.Current(),
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		token.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
