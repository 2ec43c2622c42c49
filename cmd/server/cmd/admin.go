package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dscnitrourkela/project-zucchini/internal/audit"
	"github.com/dscnitrourkela/project-zucchini/internal/config"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/admins"
	"github.com/dscnitrourkela/project-zucchini/internal/storage/postgres"
)

// cliApprover is recorded in the audit log for approvals made here.
const cliApprover = "cli"

func newAdminCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
		Long: `Approve pending admins and list existing ones.

The first admin has nobody to approve them over the API, so approve them here.

Examples:
  server admin list
  server admin approve organiser@nitrutsav.in`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "approve <email>",
		Short: "Verify a pending admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdminService(cmd.Context(), global, func(ctx context.Context, svc *admins.Service) error {
				admin, err := svc.Approve(ctx, cliApprover, args[0], "")
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "approved %s (id %d)\n", admin.Email, admin.ID)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List admins and their approval state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdminService(cmd.Context(), global, func(ctx context.Context, svc *admins.Service) error {
				list, err := svc.List(ctx)
				if err != nil {
					return err
				}
				return printAdmins(cmd, list)
			})
		},
	})

	return cmd
}

func withAdminService(ctx context.Context, global *globalOptions, fn func(context.Context, *admins.Service) error) error {
	cfg, err := global.loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger := config.NewLogger(cfg.Logging)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pool, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	svc := admins.NewService(postgres.NewAdminRepository(pool), audit.NewLogger(logger), logger)
	return fn(ctx, svc)
}

func printAdmins(cmd *cobra.Command, list []admins.Admin) error {
	if len(list) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no admins")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tVERIFIED\tCREATED")
	for _, a := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\n", a.ID, a.Email, a.Name, a.IsVerified, a.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
