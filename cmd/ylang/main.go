package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Ib-dI/ylang-creations/cmd/maintenance"
	"github.com/Ib-dI/ylang-creations/cmd/migrate"
	"github.com/Ib-dI/ylang-creations/cmd/serve"
)

var rootCmd = &cobra.Command{
	Use:   "ylang",
	Short: "Ylang Créations storefront and back office",
	Long: `ylang runs the Ylang Créations shop API and its operational tasks:
database migrations and store maintenance.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(serve.NewServeCommand())
	rootCmd.AddCommand(migrate.NewMigrateCommand())
	rootCmd.AddCommand(maintenance.NewMaintenanceCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
