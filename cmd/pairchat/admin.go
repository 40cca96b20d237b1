package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/pairchat/internal/app"
	"github.com/vovakirdan/pairchat/internal/auth"
)

const adminPasswordEnv = "PAIRCHAT_ADMIN_PASSWORD"

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUserCreateCmd(opts))
	return cmd
}

func newUserCreateCmd(opts *rootOptions) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv(adminPasswordEnv)
			}
			if password == "" {
				return fmt.Errorf("password is required (--password or %s)", adminPasswordEnv)
			}

			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			st, err := app.OpenStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			svc := auth.NewService(st, app.JWTConfig(cfg))
			user, err := svc.CreateAdmin(cmd.Context(), username, email, password)
			if errors.Is(err, auth.ErrUserExists) {
				return fmt.Errorf("user %q or email %q is already taken", username, email)
			}
			if err != nil {
				return err
			}

			logger.Info().Str("user", user.Username).Str("id", user.ID.Hex()).Msg("admin created")
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (or "+adminPasswordEnv+")")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token",
		Long: "Mint a bearer token. With --password the account is looked up in the store and\n" +
			"its password checked; without it an unverified development token is signed.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			var token string
			if password != "" {
				st, err := app.OpenStore(cmd.Context(), cfg, logger)
				if err != nil {
					return err
				}
				defer st.Close()

				token, err = auth.NewService(st, app.JWTConfig(cfg)).Authenticate(cmd.Context(), username, password)
				if err != nil {
					return fmt.Errorf("authenticate %q: %w", username, err)
				}
			} else {
				token, err = auth.GenerateToken(app.JWTConfig(cfg), username, email)
				if err != nil {
					return err
				}
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "username claim")
	cmd.Flags().StringVar(&email, "email", "", "email claim (development tokens only)")
	cmd.Flags().StringVar(&password, "password", "", "account password; verifies the account before signing")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
