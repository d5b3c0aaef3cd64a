package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	apiclient "github.com/Luis-avalos1/TaskFlow/pkg/api/client"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(email) == "" {
				return errors.New("--email is required")
			}
			secret, err := readSecret(password)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			if err := a.auth.Login(ctx, email, secret); err != nil {
				return err
			}
			user := a.auth.State().User
			fmt.Fprintf(a.out, "logged in as %s (%s)\n", user.Username, user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (supply to avoid prompt)")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var input apiclient.RegisterInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for flag, value := range map[string]string{"email": input.Email, "username": input.Username, "first-name": input.FirstName, "last-name": input.LastName} {
				if strings.TrimSpace(value) == "" {
					return fmt.Errorf("--%s is required", flag)
				}
			}
			secret, err := readSecret(input.Password)
			if err != nil {
				return err
			}
			input.Password = secret
			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			if err := a.auth.Register(ctx, input); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "account created: %s\n", a.auth.State().User.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&input.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&input.Username, "username", "", "Username")
	cmd.Flags().StringVar(&input.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&input.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&input.Password, "password", "", "Password (supply to avoid prompt)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget it locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			if err := a.auth.Logout(ctx); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: server logout failed: %v\n", err)
			}
			fmt.Fprintln(a.out, "logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			if err := a.withRefresh(ctx, func() error { return a.auth.Profile(ctx) }); err != nil {
				return err
			}
			user := a.auth.State().User
			fmt.Fprintf(a.out, "%s\t%s\t%s %s\t%s\n", user.ID, user.Username, user.FirstName, user.LastName, user.Role)
			return nil
		},
	}
}

func readSecret(provided string) (string, error) {
	if provided != "" {
		return provided, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("--password is required when stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprint(os.Stderr, "\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}
