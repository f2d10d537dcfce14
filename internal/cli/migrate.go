package cli

import (
	"fmt"

	"github.com/phrazzld/scry-srs/internal/app"
	"github.com/phrazzld/scry-srs/internal/platform/logger"
	"github.com/phrazzld/scry-srs/internal/platform/migrations"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down|status|version]",
	Short: "Manage the database schema",
	Long: `Migrate runs the embedded schema migrations for the configured
driver. "up" applies everything pending, "down" rolls back the latest
migration, "status" and "version" report without changing anything.
The command defaults to "up".`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{migrations.CommandUp, migrations.CommandDown, migrations.CommandStatus, migrations.CommandVersion},
	RunE:      runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	command := migrations.CommandUp
	if len(args) == 1 {
		command = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// the command runs migrations itself, down included
	cfg.Database.AutoMigrate = false

	log, err := logger.SetupWithWriter(cfg.Server, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := logger.WithLogger(cmd.Context(), log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := app.Migrate(ctx, a.DB, cfg.Database.Driver, command); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: ok\n", command)
	return nil
}
