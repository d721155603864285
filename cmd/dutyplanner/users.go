package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"duty-planner/internal/model"
	"duty-planner/internal/service"
)

// adminCmd runs fn for a signed-in administrator.
func adminCmd(c *cli, cmd *cobra.Command, fn func(ctx context.Context, a *app, admin model.Profile) error) error {
	return c.run(cmd, func(ctx context.Context, a *app) error {
		profile, err := a.profile(ctx)
		if err != nil {
			return err
		}
		if !profile.IsAdmin {
			return fmt.Errorf("only administrators can manage users: %w", service.ErrForbidden)
		}
		return fn(ctx, a, *profile)
	})
}

// resolveProfile finds a profile by email or id prefix.
func resolveProfile(profiles []model.Profile, ref string) (model.Profile, error) {
	if strings.Contains(ref, "@") {
		email := strings.ToLower(strings.TrimSpace(ref))
		for _, p := range profiles {
			if p.Email == email {
				return p, nil
			}
		}
	}
	return resolve(profiles, func(p model.Profile) string { return p.ID }, ref)
}

func usersCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage profiles (administrators only)",
	}
	cmd.AddCommand(usersListCmd(c), usersAddCmd(c), usersRmCmd(c))
	cmd.AddCommand(usersFlagCmd(c, "promote", "Make a profile an administrator", true))
	cmd.AddCommand(usersFlagCmd(c, "demote", "Revoke a profile's administrator rights", false))
	return cmd
}

func usersListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return adminCmd(c, cmd, func(ctx context.Context, a *app, admin model.Profile) error {
				profiles, err := a.users.List(ctx, admin)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, p := range profiles {
					role := "user"
					if p.IsAdmin {
						role = "admin"
					}
					via := p.Email
					if via == "" && p.TelegramID != nil {
						via = fmt.Sprintf("telegram:%d", *p.TelegramID)
					}
					fmt.Fprintf(out, "%s  %-5s  %s  %s\n", shortID(p.ID), role, p.DisplayName(), via)
				}
				return nil
			})
		},
	}
}

func usersAddCmd(c *cli) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a profile with a password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return adminCmd(c, cmd, func(ctx context.Context, a *app, admin model.Profile) error {
				p, err := a.users.Add(ctx, admin, name, email, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s\n", shortID(p.ID), p.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func usersRmCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <email|id>",
		Short: "Delete a profile and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return adminCmd(c, cmd, func(ctx context.Context, a *app, admin model.Profile) error {
				target, err := lookupProfile(ctx, a, admin, args[0])
				if err != nil {
					return err
				}
				if err := a.users.Remove(ctx, admin, target.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", target.DisplayName())
				return nil
			})
		},
	}
}

func usersFlagCmd(c *cli, use, short string, admin bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <email|id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return adminCmd(c, cmd, func(ctx context.Context, a *app, caller model.Profile) error {
				target, err := lookupProfile(ctx, a, caller, args[0])
				if err != nil {
					return err
				}
				if err := a.users.SetAdmin(ctx, caller, target.ID, admin); err != nil {
					return fmt.Errorf("%s %s: %w", use, target.DisplayName(), err)
				}
				role := "a regular user"
				if admin {
					role = "an administrator"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", target.DisplayName(), role)
				return nil
			})
		},
	}
}

func lookupProfile(ctx context.Context, a *app, caller model.Profile, ref string) (model.Profile, error) {
	profiles, err := a.users.List(ctx, caller)
	if err != nil {
		return model.Profile{}, err
	}
	return resolveProfile(profiles, ref)
}
