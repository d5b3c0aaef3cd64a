package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	apiclient "github.com/Luis-avalos1/TaskFlow/pkg/api/client"
)

func newTasksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "List and manage tasks",
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
		newTasksListCmd(a),
		newTasksCreateCmd(a),
		newTasksShowCmd(a),
		newTasksDeleteCmd(a),
		taskMutation(a, "move <taskId> <status>", "Move a task to another column", 2, func(ctx context.Context, args []string) (domain.Task, error) {
			status, ok := domain.ParseTaskStatus(args[1])
			if !ok {
				return domain.Task{}, fmt.Errorf("unknown status %q", args[1])
			}
			return a.tasks.MoveToStatus(ctx, args[0], status)
		}),
		taskMutation(a, "assign <taskId> <userId>", "Assign a task to a project participant", 2, func(ctx context.Context, args []string) (domain.Task, error) {
			return a.tasks.Assign(ctx, args[0], args[1])
		}),
		taskMutation(a, "unassign <taskId>", "Clear a task's assignee", 1, func(ctx context.Context, args []string) (domain.Task, error) {
			return a.tasks.Unassign(ctx, args[0])
		}),
		taskMutation(a, "priority <taskId> <priority>", "Change a task's priority", 2, func(ctx context.Context, args []string) (domain.Task, error) {
			priority, ok := domain.ParseTaskPriority(args[1])
			if !ok {
				return domain.Task{}, fmt.Errorf("unknown priority %q", args[1])
			}
			return a.tasks.SetPriority(ctx, args[0], priority)
		}),
		taskMutation(a, "tag <taskId> <tag>...", "Add tags to a task", -2, func(ctx context.Context, args []string) (domain.Task, error) {
			return a.tasks.AddTags(ctx, args[0], args[1:])
		}),
		taskMutation(a, "untag <taskId> <tag>...", "Remove tags from a task", -2, func(ctx context.Context, args []string) (domain.Task, error) {
			return a.tasks.RemoveTags(ctx, args[0], args[1:])
		}),
	)
	return cmd
}

// taskMutation builds a command that changes one task and prints the result.
// A negative nargs means at least -nargs arguments.
func taskMutation(a *app, use, short string, nargs int, run func(ctx context.Context, args []string) (domain.Task, error)) *cobra.Command {
	args := cobra.ExactArgs(nargs)
	if nargs < 0 {
		args = cobra.MinimumNArgs(-nargs)
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, argv []string) error {
			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			var t domain.Task
			err := a.withRefresh(ctx, func() error {
				var err error
				t, err = run(ctx, argv)
				return err
			})
			if err != nil {
				return err
			}
			renderTask(a.out, t)
			return nil
		},
	}
}

func newTasksListCmd(a *app) *cobra.Command {
	var projectID, status, priority, assignee string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks across your projects, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := domain.TaskFilter{
				ProjectID:  projectID,
				Status:     domain.TaskStatus(status),
				Priority:   domain.TaskPriority(priority),
				AssigneeID: assignee,
			}
			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			if err := a.withRefresh(ctx, func() error { return a.tasks.Fetch(ctx, filter) }); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPRIORITY\tPROJECT\tASSIGNEE\tDUE")
			for _, t := range a.tasks.State().Tasks {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Status, t.Priority, orDash(t.ProjectName), assigneeLabel(t), dueLabel(t.DueDate))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Only tasks of this project")
	cmd.Flags().StringVar(&status, "status", "", "todo|in_progress|in_review|done")
	cmd.Flags().StringVar(&priority, "priority", "", "low|medium|high|urgent")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Only tasks assigned to this user")
	return cmd
}

func newTasksCreateCmd(a *app) *cobra.Command {
	var (
		input    apiclient.CreateTaskInput
		assignee string
		due      string
		estimate int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task in a project you own or belong to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.ProjectID) == "" {
				return errors.New("--title and --project are required")
			}
			if assignee != "" {
				input.AssigneeID = &assignee
			}
			if due != "" {
				parsed, err := time.Parse(time.DateOnly, due)
				if err != nil {
					return fmt.Errorf("--due must be YYYY-MM-DD: %w", err)
				}
				input.DueDate = &parsed
			}
			if cmd.Flags().Changed("estimate") {
				input.EstimatedHours = &estimate
			}
			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			var t domain.Task
			err := a.withRefresh(ctx, func() error {
				var err error
				t, err = a.tasks.Create(ctx, input)
				return err
			})
			if err != nil {
				return err
			}
			renderTask(a.out, t)
			return nil
		},
	}
	cmd.Flags().StringVar(&input.Title, "title", "", "Task title")
	cmd.Flags().StringVar(&input.ProjectID, "project", "", "Project id")
	cmd.Flags().StringVar(&input.Description, "description", "", "Task description")
	cmd.Flags().StringVar(&input.Status, "status", "", "Initial status (default todo)")
	cmd.Flags().StringVar(&input.Priority, "priority", "", "Priority (default medium)")
	cmd.Flags().StringSliceVar(&input.Tags, "tag", nil, "Tag, repeatable")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Assignee user id")
	cmd.Flags().StringVar(&due, "due", "", "Due date YYYY-MM-DD")
	cmd.Flags().IntVar(&estimate, "estimate", 0, "Estimated hours")
	return cmd
}

func newTasksShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <taskId>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			if err := a.withRefresh(ctx, func() error {
				_, err := a.tasks.Get(ctx, args[0])
				return err
			}); err != nil {
				return err
			}
			renderTask(a.out, *a.tasks.State().Selected)
			return nil
		},
	}
}

func newTasksDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <taskId>",
		Short: "Delete a task (project owner or reporter)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			if err := a.withRefresh(ctx, func() error { return a.tasks.Delete(ctx, args[0]) }); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "task deleted")
			return nil
		},
	}
}

func newBoardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "board <projectId>",
		Short: "Show a project's tasks as a Kanban board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			var p domain.Project
			err := a.withRefresh(ctx, func() error {
				var err error
				if p, err = a.projects.Get(ctx, args[0]); err != nil {
					return err
				}
				return a.tasks.Fetch(ctx, domain.TaskFilter{ProjectID: p.ID})
			})
			if err != nil {
				return err
			}
			renderBoard(a.out, p, a.tasks.State(), boardWidth())
			return nil
		},
	}
}
