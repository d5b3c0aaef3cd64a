package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	apiclient "github.com/Luis-avalos1/TaskFlow/pkg/api/client"
)

func newProjectsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "List and manage projects",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if root := cmd.Root(); root.PersistentPreRunE != nil {
				if err := root.PersistentPreRunE(cmd, args); err != nil {
					return err
				}
			}
			return a.requireSession()
		},
	}
	cmd.AddCommand(
		newProjectsListCmd(a),
		newProjectsCreateCmd(a),
		newProjectsShowCmd(a),
		newProjectsUpdateCmd(a),
		newProjectsDeleteCmd(a),
		newProjectsMembersCmd(a),
		newProjectsAddMemberCmd(a),
		newProjectsRemoveMemberCmd(a),
	)
	return cmd
}

func newProjectsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects you own or belong to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			if err := a.withRefresh(ctx, func() error { return a.projects.Fetch(ctx) }); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tOWNER\tUPDATED")
			for _, p := range a.projects.State().Projects {
				owner := strings.TrimSpace(p.OwnerFirstName + " " + p.OwnerLastName)
				if owner == "" {
					owner = p.OwnerID
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Status, owner, p.UpdatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

func newProjectsCreateCmd(a *app) *cobra.Command {
	var input apiclient.CreateProjectInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project owned by you",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(input.Name) == "" {
				return errors.New("--name is required")
			}
			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			var created domain.Project
			err := a.withRefresh(ctx, func() error {
				var err error
				created, err = a.projects.Create(ctx, input)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "project created: %s (%s)\n", created.ID, created.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&input.Name, "name", "", "Project name")
	cmd.Flags().StringVar(&input.Description, "description", "", "Project description")
	cmd.Flags().StringVar(&input.Status, "status", "", "planning|active|on_hold|completed|cancelled")
	return cmd
}

func newProjectsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <projectId>",
		Short: "Show one project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			var p domain.Project
			err := a.withRefresh(ctx, func() error {
				var err error
				p, err = a.projects.Get(ctx, args[0])
				return err
			})
			if err != nil {
				return err
			}
			renderProject(a.out, p)
			return nil
		},
	}
}

func newProjectsUpdateCmd(a *app) *cobra.Command {
	var name, description, status string
	cmd := &cobra.Command{
		Use:   "update <projectId>",
		Short: "Change a project's name, description or status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch domain.ProjectPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("status") {
				st := domain.ProjectStatus(status)
				patch.Status = &st
			}
			if patch.Empty() {
				return errors.New("nothing to update: pass --name, --description or --status")
			}
			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			var p domain.Project
			err := a.withRefresh(ctx, func() error {
				var err error
				p, err = a.projects.Update(ctx, args[0], patch)
				return err
			})
			if err != nil {
				return err
			}
			renderProject(a.out, p)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&status, "status", "", "New status")
	return cmd
}

func newProjectsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <projectId>",
		Short: "Delete a project and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			if err := a.withRefresh(ctx, func() error { return a.projects.Delete(ctx, args[0]) }); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "project deleted")
			return nil
		},
	}
}

func newProjectsMembersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "members <projectId>",
		Short: "List project members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			var members []domain.ProjectMember
			err := a.withRefresh(ctx, func() error {
				var err error
				members, err = a.members.ListMembers(ctx, a.auth.AccessToken(), args[0])
				return err
			})
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "USER\tUSERNAME\tNAME\tROLE\tJOINED")
			for _, m := range members {
				fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%s\n", m.UserID, m.Username, m.FirstName, m.LastName, m.Role, m.JoinedAt.Format(time.DateOnly))
			}
			return tw.Flush()
		},
	}
}

func newProjectsAddMemberCmd(a *app) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "add-member <projectId> <userId>",
		Short: "Add a user to a project you own",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			var m domain.ProjectMember
			err := a.withRefresh(ctx, func() error {
				var err error
				m, err = a.members.AddMember(ctx, a.auth.AccessToken(), args[0], args[1], domain.MemberRole(role))
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "member added: %s as %s\n", m.UserID, m.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "member|manager")
	return cmd
}

func newProjectsRemoveMemberCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-member <projectId> <userId>",
		Short: "Remove a user from a project you own",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			err := a.withRefresh(ctx, func() error {
				return a.members.RemoveMember(ctx, a.auth.AccessToken(), args[0], args[1])
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, "member removed")
			return nil
		},
	}
}
