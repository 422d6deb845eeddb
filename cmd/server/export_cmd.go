package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/event-approval/internal/application/service"
	"github.com/garyjia/event-approval/internal/domain/entity"
	"github.com/garyjia/event-approval/internal/domain/workflow"
)

func newExportAuditCmd(a *app) *cobra.Command {
	var (
		out       string
		from      string
		to        string
		action    string
		requestID string
		actorID   string
	)

	cmd := &cobra.Command{
		Use:   "export-audit",
		Short: "Export the audit log to an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := entity.AuditFilter{
				ResourceID: requestID,
				ActorID:    actorID,
				Action:     entity.AuditAction(action),
			}
			var err error
			if filter.From, err = service.ParseDate(from); err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			if filter.To, err = service.ParseDate(to); err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}

			c, err := a.container(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer c.Close()

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			defer f.Close()

			// The CLI runs with operator access.
			operator := workflow.NewActor("cli", workflow.RoleSuperAdmin)
			rows, err := c.Services().Audit.ExportXLSX(cmd.Context(), operator, filter, f)
			if err != nil {
				_ = os.Remove(out)
				return err
			}

			a.logger.Info("Audit log exported", zap.String("path", out), zap.Int("rows", rows))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d row(s) to %s\n", rows, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "audit-log.xlsx", "output file")
	cmd.Flags().StringVar(&from, "from", "", "earliest entry, RFC3339 or YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "latest entry, RFC3339 or YYYY-MM-DD")
	cmd.Flags().StringVar(&action, "action", "", "only entries with this action")
	cmd.Flags().StringVar(&requestID, "request", "", "only entries for this request id")
	cmd.Flags().StringVar(&actorID, "actor", "", "only entries by this actor id")
	return cmd
}
