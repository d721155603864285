package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"duty-planner/internal/model"
	"duty-planner/internal/store"
)

const shortIDLen = 8

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

// resolve finds the single item whose id starts with ref.
func resolve[T any](items []T, id func(T) string, ref string) (T, error) {
	var zero T
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return zero, fmt.Errorf("empty id")
	}
	var found []T
	for _, item := range items {
		full := id(item)
		if full == ref {
			return item, nil
		}
		if strings.HasPrefix(full, ref) {
			found = append(found, item)
		}
	}
	switch len(found) {
	case 0:
		return zero, fmt.Errorf("%q: %w", ref, store.ErrNotFound)
	case 1:
		return found[0], nil
	}
	return zero, fmt.Errorf("id %q is ambiguous, %d items match", ref, len(found))
}

func resolveTask(st *store.Store, ref string) (store.TaskItem, error) {
	return resolve(st.Tasks(), func(i store.TaskItem) string { return i.Ref.ID() }, ref)
}

func resolveRecurring(st *store.Store, ref string) (store.RecurringItem, error) {
	return resolve(st.Recurring(), func(i store.RecurringItem) string { return i.Ref.ID() }, ref)
}

// taskCmd builds a command that acts on one task picked by id prefix.
func taskCmd(c *cli, use, short string, fn func(ctx context.Context, st *store.Store, item store.TaskItem) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				_, st, err := a.session(ctx)
				if err != nil {
					return err
				}
				item, err := resolveTask(st, args[0])
				if err != nil {
					return err
				}
				msg, err := fn(ctx, st, item)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}
}

func recurringItemCmd(c *cli, use, short string, args cobra.PositionalArgs, fn func(ctx context.Context, st *store.Store, item store.RecurringItem, rest []string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				_, st, err := a.session(ctx)
				if err != nil {
					return err
				}
				item, err := resolveRecurring(st, args[0])
				if err != nil {
					return err
				}
				msg, err := fn(ctx, st, item, args[1:])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}
}

func todayCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's tasks and open recurring duties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				_, st, err := a.session(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				today := st.Today()
				fmt.Fprintf(out, "Today, %s\n", today.Day)
				if today.Len() == 0 {
					fmt.Fprintln(out, "  nothing left")
				}
				for _, item := range today.Tasks {
					fmt.Fprintln(out, taskLine(item, ""))
				}
				for _, item := range today.Recurring {
					fmt.Fprintf(out, "  [~] %s  %s\n", shortID(item.Ref.ID()), item.Task.Title)
				}
				if n := st.OverdueCount(); n > 0 {
					fmt.Fprintf(out, "%d overdue, see `dutyplanner overdue`\n", n)
				}
				return nil
			})
		},
	}
}

func overdueCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "Show waiting tasks from earlier days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				_, st, err := a.session(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				items := st.Overdue()
				if len(items) == 0 {
					fmt.Fprintln(out, "Nothing overdue")
					return nil
				}
				for _, item := range items {
					fmt.Fprintln(out, taskLine(item, st.Zone().DayOf(item.Task.CreatedAt).String()))
				}
				return nil
			})
		},
	}
}

func upcomingCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "upcoming",
		Short: "Show every task grouped by date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				_, st, err := a.session(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				agenda := st.Upcoming()
				if len(agenda) == 0 {
					fmt.Fprintln(out, "No tasks")
					return nil
				}
				for _, day := range agenda {
					fmt.Fprintln(out, day.Day)
					for _, item := range day.Tasks {
						fmt.Fprintln(out, taskLine(item, ""))
					}
				}
				return nil
			})
		},
	}
}

func taskLine(item store.TaskItem, day string) string {
	box := "[ ]"
	switch {
	case item.Task.Status == model.StatusCompleted:
		box = "[x]"
	case item.Task.IsArchived:
		box = "[a]"
	}
	line := fmt.Sprintf("  %s %s  %s", box, shortID(item.Ref.ID()), item.Task.Title)
	if day != "" {
		line += "  (" + day + ")"
	}
	return line
}

func addCmd(c *cli) *cobra.Command {
	var date, description string
	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a task, dated today unless --date is given",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				_, st, err := a.session(ctx)
				if err != nil {
					return err
				}
				in := store.NewTask{Title: strings.Join(args, " "), Description: description}
				if date != "" {
					day, err := st.Zone().ParseDay(date)
					if err != nil {
						return err
					}
					in.CreatedAt = day.Noon()
				}
				task, err := st.Add(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s %q for %s\n", shortID(task.ID), task.Title, st.Zone().DayOf(task.CreatedAt))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "Day of the task (YYYY-MM-DD)")
	cmd.Flags().StringVar(&description, "description", "", "Longer description")
	return cmd
}

func doneCmd(c *cli) *cobra.Command {
	return taskCmd(c, "done", "Mark a task completed", func(ctx context.Context, st *store.Store, item store.TaskItem) (string, error) {
		if err := st.UpdateStatus(ctx, item.Ref.ID(), model.StatusCompleted); err != nil {
			return "", err
		}
		return fmt.Sprintf("Completed %q", item.Task.Title), nil
	})
}

func undoCmd(c *cli) *cobra.Command {
	return taskCmd(c, "undo", "Mark a task waiting again", func(ctx context.Context, st *store.Store, item store.TaskItem) (string, error) {
		if err := st.UpdateStatus(ctx, item.Ref.ID(), model.StatusWaiting); err != nil {
			return "", err
		}
		return fmt.Sprintf("Reopened %q", item.Task.Title), nil
	})
}

func rmCmd(c *cli) *cobra.Command {
	return taskCmd(c, "rm", "Delete a task", func(ctx context.Context, st *store.Store, item store.TaskItem) (string, error) {
		if err := st.Delete(ctx, item.Ref.ID()); err != nil {
			return "", err
		}
		return fmt.Sprintf("Deleted %q", item.Task.Title), nil
	})
}

func archiveCmd(c *cli) *cobra.Command {
	return taskCmd(c, "archive", "Archive a task", func(ctx context.Context, st *store.Store, item store.TaskItem) (string, error) {
		if err := st.Archive(ctx, item.Ref.ID()); err != nil {
			return "", err
		}
		return fmt.Sprintf("Archived %q", item.Task.Title), nil
	})
}

func totodayCmd(c *cli) *cobra.Command {
	return taskCmd(c, "totoday", "Move a task to today", func(ctx context.Context, st *store.Store, item store.TaskItem) (string, error) {
		if err := st.MoveToToday(ctx, item.Ref.ID()); err != nil {
			return "", err
		}
		return fmt.Sprintf("Moved %q to today", item.Task.Title), nil
	})
}

func recurringCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "List and manage recurring duties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				_, st, err := a.session(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				items := st.Recurring()
				if len(items) == 0 {
					fmt.Fprintln(out, "No recurring duties")
					return nil
				}
				today := st.Zone().Today(st.Clock().Now())
				for _, item := range items {
					box := "[ ]"
					if store.DoneOn(item.Task, today) {
						box = "[x]"
					}
					fmt.Fprintf(out, "  %s %s  %s\n", box, shortID(item.Ref.ID()), item.Task.Title)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <title...>",
		Short: "Add a recurring duty",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				_, st, err := a.session(ctx)
				if err != nil {
					return err
				}
				task, err := st.AddRecurring(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added recurring %s %q\n", shortID(task.ID), task.Title)
				return nil
			})
		},
	})

	var undo bool
	done := recurringItemCmd(c, "done <id>", "Mark a recurring duty done for today", cobra.ExactArgs(1),
		func(ctx context.Context, st *store.Store, item store.RecurringItem, _ []string) (string, error) {
			if err := st.CompleteRecurring(ctx, item.Ref.ID(), !undo); err != nil {
				return "", err
			}
			if undo {
				return fmt.Sprintf("Reopened %q for today", item.Task.Title), nil
			}
			return fmt.Sprintf("Done %q for today", item.Task.Title), nil
		})
	done.Flags().BoolVar(&undo, "undo", false, "Take today's completion back")
	cmd.AddCommand(done)

	cmd.AddCommand(recurringItemCmd(c, "rm <id>", "Delete a recurring duty", cobra.ExactArgs(1),
		func(ctx context.Context, st *store.Store, item store.RecurringItem, _ []string) (string, error) {
			if err := st.DeleteRecurring(ctx, item.Ref.ID()); err != nil {
				return "", err
			}
			return fmt.Sprintf("Deleted recurring %q", item.Task.Title), nil
		}))

	cmd.AddCommand(recurringItemCmd(c, "rename <id> <title...>", "Rename a recurring duty", cobra.MinimumNArgs(2),
		func(ctx context.Context, st *store.Store, item store.RecurringItem, rest []string) (string, error) {
			title := strings.Join(rest, " ")
			if err := st.UpdateRecurring(ctx, item.Ref.ID(), title); err != nil {
				return "", err
			}
			return fmt.Sprintf("Renamed %q to %q", item.Task.Title, title), nil
		}))
	return cmd
}

func convertCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert between tasks and recurring duties",
	}
	cmd.AddCommand(taskCmd(c, "to-recurring", "Turn a task into a recurring duty", func(ctx context.Context, st *store.Store, item store.TaskItem) (string, error) {
		saved, err := st.ConvertTaskToRecurring(ctx, item.Ref.ID())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%q is now recurring (%s)", saved.Title, shortID(saved.ID)), nil
	}))
	cmd.AddCommand(recurringItemCmd(c, "to-task <id>", "Turn a recurring duty into a task for today", cobra.ExactArgs(1),
		func(ctx context.Context, st *store.Store, item store.RecurringItem, _ []string) (string, error) {
			saved, err := st.ConvertRecurringToTask(ctx, item.Ref.ID())
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%q is now a task (%s)", saved.Title, shortID(saved.ID)), nil
		}))
	return cmd
}

func statsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				_, st, err := a.session(ctx)
				if err != nil {
					return err
				}
				s := st.Stats()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Total:     %d\n", s.Total)
				fmt.Fprintf(out, "Waiting:   %d\n", s.Waiting)
				fmt.Fprintf(out, "Completed: %d\n", s.Completed)
				fmt.Fprintf(out, "Past due:  %d\n", s.PastDue)
				fmt.Fprintf(out, "Archived:  %d\n", s.Archived)
				fmt.Fprintf(out, "Overdue:   %d\n", st.OverdueCount())
				fmt.Fprintf(out, "Recurring: %d\n", len(st.Recurring()))
				return nil
			})
		},
	}
}
