package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyjia/event-approval/internal/domain/workflow"
	httpserver "github.com/garyjia/event-approval/internal/interfaces/http"
)

func newTokenCmd(a *app) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a directory user",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.container(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer c.Close()

			user, err := c.Repositories().Users.GetByID(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("failed to look up user %s: %w", userID, err)
			}
			if !user.Active {
				return fmt.Errorf("user %s is inactive: %w", userID, workflow.ErrPermissionDenied)
			}

			authority := httpserver.NewTokenAuthority(a.cfg.Auth.JWTSecret, a.cfg.Auth.Issuer, a.cfg.Auth.TokenTTL)
			token, err := authority.Issue(user.Actor())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
