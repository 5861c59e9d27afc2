// Package maintenance implements one-off operational commands.
package maintenance

import (
	"context"
	"fmt"
	"os"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/Ib-dI/ylang-creations/cmd/internal/app"
	"github.com/Ib-dI/ylang-creations/store"
)

const daysFlag = "days"

var settingsFlags = map[string]cobraflags.Flag{
	app.ConfigFlag: app.NewConfigFlag(),
}

var pruneFlags = map[string]cobraflags.Flag{
	app.ConfigFlag: app.NewConfigFlag(),
	daysFlag: &cobraflags.IntFlag{
		Name:  daysFlag,
		Value: 30,
		Usage: "Delete cart, wishlist and configurator states untouched for this many days",
	},
}

// NewMaintenanceCommand returns the maintenance command.
func NewMaintenanceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Run store maintenance tasks",
	}

	settings := &cobra.Command{
		Use:   "reset-settings",
		Short: "Restore the store settings to their defaults",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), settingsFlags, resetSettings)
		},
	}
	cobraflags.RegisterMap(settings, settingsFlags)

	prune := &cobra.Command{
		Use:   "prune-states",
		Short: "Delete stale visitor states",
		Long: `Delete cart, wishlist and configurator documents that have not been
updated for --days days. Visitors whose state is pruned start over with
an empty cart.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), pruneFlags, pruneStates)
		},
	}
	cobraflags.RegisterMap(prune, pruneFlags)

	cmd.AddCommand(settings, prune)
	return cmd
}

func withStore(ctx context.Context, flags map[string]cobraflags.Flag, fn func(context.Context, *store.Store) error) error {
	cfg, err := app.LoadConfig(flags[app.ConfigFlag].GetString())
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg.Log, os.Stderr)

	db, err := app.OpenDB(cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close database", "error", err)
		}
	}()
	return fn(ctx, store.New(db))
}

func resetSettings(ctx context.Context, st *store.Store) error {
	settings, err := st.Settings.Reset(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Settings restored to defaults for %q\n", settings.Store.Name)
	return nil
}

func pruneStates(ctx context.Context, st *store.Store) error {
	days := pruneFlags[daysFlag].GetInt()
	if days <= 0 {
		return fmt.Errorf("--%s must be positive", daysFlag)
	}
	n, err := st.States.Prune(ctx, days)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d stale states\n", n)
	return nil
}
