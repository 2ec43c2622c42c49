package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dscnitrourkela/project-zucchini/internal/storage/postgres"
)

type migrateOptions struct {
	databaseURL string
	path        string
}

// url prefers the flag, then DATABASE_URL. Migrations skip config.Load so
// they run without gateway or Firebase credentials.
func (o *migrateOptions) url() (string, error) {
	if o.databaseURL != "" {
		return o.databaseURL, nil
	}
	if env := os.Getenv("DATABASE_URL"); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("DATABASE_URL is required (or pass --database-url)")
}

func newMigrateCommand(_ *globalOptions) *cobra.Command {
	opts := &migrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply or roll back schema migrations.

Migrations are embedded in the binary; --path reads them from a directory instead.

Examples:
  server migrate up
  server migrate down 1
  server migrate version
  server migrate force 3`,
	}
	cmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "database URL (default: $DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.path, "path", "", "migrations directory (default: embedded)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := opts.url()
			if err != nil {
				return err
			}
			if err := postgres.MigrateUp(url, opts.path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default: 1 step)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := parseSteps(args)
			if err != nil {
				return err
			}
			url, err := opts.url()
			if err != nil {
				return err
			}
			if err := postgres.MigrateDown(url, opts.path, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := opts.url()
			if err != nil {
				return err
			}
			version, dirty, err := postgres.MigrationVersion(url, opts.path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version: %d (dirty: %t)\n", version, dirty)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Mark a version as applied and clear the dirty flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			url, err := opts.url()
			if err != nil {
				return err
			}
			if err := postgres.MigrateForce(url, opts.path, version); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "forced version %d\n", version)
			return nil
		},
	})

	return cmd
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	steps, err := strconv.Atoi(args[0])
	if err != nil || steps <= 0 {
		return 0, fmt.Errorf("steps must be a positive integer, got %q", args[0])
	}
	return steps, nil
}
