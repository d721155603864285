package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"duty-planner/internal/bot"
	"duty-planner/internal/service"
)

func registerCmd(c *cli) *cobra.Command {
	var name, email, password string
	var admin bool
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a profile and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				if admin {
					exists, err := a.users.AdminExists(ctx)
					if err != nil {
						return err
					}
					if exists {
						return service.ErrAdminExists
					}
				}
				registered, err := a.auth.SignUp(ctx, name, email, password)
				if err != nil {
					return err
				}
				if admin {
					if err := a.users.Bootstrap(ctx, registered); err != nil {
						return err
					}
				}
				profile, err := a.auth.SignIn(ctx, email, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s!\n", profile.DisplayName())
				if profile.IsAdmin {
					fmt.Fprintln(cmd.OutOrStdout(), "You are the administrator.")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&admin, "admin", false, "Make this profile the first administrator (only while none exists)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func loginCmd(c *cli) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				profile, err := a.auth.SignIn(ctx, email, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", profile.DisplayName())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the cached profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				if err := a.auth.SignOut(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func whoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				profile, err := a.profile(ctx)
				if err != nil {
					return err
				}
				unseen, err := a.notifications.UnseenCount(ctx, profile.ID)
				if err != nil {
					return err
				}
				theme, err := a.prefs.Theme(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Name:    %s\n", profile.DisplayName())
				fmt.Fprintf(out, "Email:   %s\n", profile.Email)
				fmt.Fprintf(out, "Admin:   %t\n", profile.IsAdmin)
				fmt.Fprintf(out, "Unseen:  %d\n", unseen)
				fmt.Fprintf(out, "Theme:   %s\n", theme)
				return nil
			})
		},
	}
}

func passwdCmd(c *cli) *cobra.Command {
	var email, current, next string
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change a profile's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				if err := a.auth.ResetPassword(ctx, email, current, next); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Password changed")
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Email address")
	cmd.Flags().StringVar(&current, "current", "", "Current password")
	cmd.Flags().StringVar(&next, "new", "", "New password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("current")
	_ = cmd.MarkFlagRequired("new")
	return cmd
}

func themeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark|system]",
		Short:     "Show or change the display theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"light", "dark", "system"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				if len(args) == 1 {
					theme, err := service.ParseTheme(args[0])
					if err != nil {
						return err
					}
					if err := a.prefs.SetTheme(ctx, theme); err != nil {
						return err
					}
				}
				theme, err := a.prefs.Theme(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Theme: %s\n", theme)
				return nil
			})
		},
	}
}

func deviceCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Manage push notification devices",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "register <token>",
		Short: "Register an Expo push token for the signed-in profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				profile, err := a.profile(ctx)
				if err != nil {
					return err
				}
				if err := a.notifications.RegisterDevice(ctx, *profile, args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Device registered")
				return nil
			})
		},
	})
	return cmd
}

func inboxCmd(c *cli) *cobra.Command {
	var clearAll bool
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Show notifications and mark them seen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				profile, err := a.profile(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if clearAll {
					if err := a.notifications.ClearInbox(ctx, profile.ID); err != nil {
						return err
					}
					fmt.Fprintln(out, "Inbox cleared")
					return nil
				}
				items, err := a.notifications.Inbox(ctx, profile.ID)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(out, "No notifications")
					return nil
				}
				for _, item := range items {
					marker := "*"
					if item.Seen {
						marker = " "
					}
					fmt.Fprintf(out, "%s %s  %s\n", marker, item.CreatedAt.In(a.cfg.Zone().Location()).Format("2006-01-02 15:04"), item.Title)
					if item.Message != "" {
						fmt.Fprintf(out, "    %s\n", item.Message)
					}
					if !item.Seen {
						if err := a.notifications.MarkSeen(ctx, profile.ID, item.ID); err != nil {
							return err
						}
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Remove every notification from the inbox")
	return cmd
}

func broadcastCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "broadcast <title> [message...]",
		Short: "Send a notification to every profile (administrators only)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				profile, err := a.profile(ctx)
				if err != nil {
					return err
				}
				if c.cfg.TelegramToken != "" {
					telegramBot, err := bot.New(c.cfg.TelegramToken, a.profiles, a.tasks, a.reminders, a.notifications)
					if err != nil {
						return err
					}
					a.notifications.AddDeliverer(telegramBot)
				}
				n, err := a.notifications.Broadcast(ctx, *profile, args[0], strings.Join(args[1:], " "))
				if errors.Is(err, service.ErrForbidden) {
					return fmt.Errorf("only administrators can broadcast: %w", err)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Broadcast %s sent\n", shortID(n.ID))
				return nil
			})
		},
	}
}
