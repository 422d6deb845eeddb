package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/garyjia/event-approval/internal/domain/entity"
	"github.com/garyjia/event-approval/internal/domain/workflow"
	"github.com/garyjia/event-approval/pkg/utils"
)

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the user directory",
	}
	cmd.AddCommand(newUserAddCmd(a))
	return cmd
}

func newUserAddCmd(a *app) *cobra.Command {
	var (
		email      string
		name       string
		role       string
		department string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a user who can act on requests and receive notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedRole, err := workflow.ParseRole(role)
			if err != nil {
				return fmt.Errorf("invalid --role: %w", err)
			}
			email = strings.TrimSpace(email)
			if err := utils.ValidateEmail(email); err != nil {
				return fmt.Errorf("invalid --email: %w", err)
			}
			if parsedRole == workflow.RoleLead && department == "" {
				return fmt.Errorf("--department is required for leads")
			}

			c, err := a.container(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer c.Close()

			user := &entity.User{
				ID:           uuid.NewString(),
				Email:        email,
				DisplayName:  utils.SanitizeString(name),
				Role:         parsedRole,
				DepartmentID: department,
				Active:       true,
				CreatedAt:    time.Now().UTC(),
			}
			if err := c.Repositories().Users.Create(cmd.Context(), user); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", user.ID, user.Email, user.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", "", "member, lead, admin or superadmin (required)")
	cmd.Flags().StringVar(&department, "department", "", "department id")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}
