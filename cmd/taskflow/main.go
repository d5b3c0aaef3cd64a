package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	apiclient "github.com/Luis-avalos1/TaskFlow/pkg/api/client"
	"github.com/Luis-avalos1/TaskFlow/pkg/config"
	"github.com/Luis-avalos1/TaskFlow/pkg/store"
)

var buildVersion = "dev"

// app bundles the stores every command renders from.
type app struct {
	cfg      config.ClientConfig
	out      io.Writer
	auth     *store.AuthStore
	projects *store.ProjectStore
	tasks    *store.TaskStore
	members  *apiclient.Client
}

func newApp(cfg config.ClientConfig, out io.Writer) (*app, error) {
	cli, err := apiclient.New(cfg.APIURL, apiclient.WithTimeout(cfg.Timeout))
	if err != nil {
		return nil, err
	}
	auth := store.NewAuthStore(cli, store.NewFileSession(cfg.SessionFile, cfg.SessionSecret))
	if err := auth.Restore(); err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return &app{
		cfg:      cfg,
		out:      out,
		auth:     auth,
		projects: store.NewProjectStore(cli, auth),
		tasks:    store.NewTaskStore(cli, auth),
		members:  cli,
	}, nil
}

// requireSession fails fast when no one is signed in.
func (a *app) requireSession() error {
	if !a.auth.State().Authenticated() {
		return errors.New("please login first using 'taskflow login'")
	}
	return nil
}

// withRefresh runs fn and, when the access token was rejected, rotates the
// tokens once and retries.
func (a *app) withRefresh(ctx context.Context, fn func() error) error {
	err := fn()
	if apiclient.StatusOf(err) != http.StatusUnauthorized || a.auth.State().Tokens.RefreshToken == "" {
		return err
	}
	if rerr := a.auth.Refresh(ctx); rerr != nil {
		return fmt.Errorf("session expired, please login again: %w", rerr)
	}
	return fn()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "taskflow",
		Short:         "Manage TaskFlow projects and tasks from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       strings.TrimSpace(buildVersion),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if api, _ := cmd.Flags().GetString("api"); strings.TrimSpace(api) != "" && api != a.cfg.APIURL {
				cfg := a.cfg
				cfg.APIURL = api
				next, err := newApp(cfg, a.out)
				if err != nil {
					return err
				}
				*a = *next
			}
			return nil
		},
	}
	root.PersistentFlags().String("api", "", "API base URL (default $TASKFLOW_API_URL)")
	root.SetOut(a.out)

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newProjectsCmd(a),
		newTasksCmd(a),
		newBoardCmd(a),
	)
	return root
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	a, err := newApp(config.LoadClientConfig(), os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := newRootCmd(a).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", describe(err))
		os.Exit(1)
	}
}

// describe prefers the server's message and lists field errors.
func describe(err error) string {
	var apiErr apiclient.APIError
	if !errors.As(err, &apiErr) || apiErr.Message == "" {
		return err.Error()
	}
	if len(apiErr.Fields) == 0 {
		return apiErr.Message
	}
	var b strings.Builder
	b.WriteString(apiErr.Message)
	for _, field := range sortedKeys(apiErr.Fields) {
		fmt.Fprintf(&b, "\n  %s: %s", field, apiErr.Fields[field])
	}
	return b.String()
}
