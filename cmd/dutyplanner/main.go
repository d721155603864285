package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"duty-planner/internal/config"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli carries the configuration loaded before any subcommand runs.
type cli struct {
	cfg config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	rootCmd := &cobra.Command{
		Use:           "dutyplanner",
		Short:         "Daily duty planner: tasks, recurring duties and reminders",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			c.cfg = cfg
			log.SetLevel(cfg.Level())
			return nil
		},
	}

	rootCmd.AddCommand(serveCmd(c))

	rootCmd.AddCommand(registerCmd(c))
	rootCmd.AddCommand(loginCmd(c))
	rootCmd.AddCommand(logoutCmd(c))
	rootCmd.AddCommand(whoamiCmd(c))
	rootCmd.AddCommand(passwdCmd(c))
	rootCmd.AddCommand(themeCmd(c))
	rootCmd.AddCommand(deviceCmd(c))
	rootCmd.AddCommand(inboxCmd(c))
	rootCmd.AddCommand(broadcastCmd(c))
	rootCmd.AddCommand(usersCmd(c))

	rootCmd.AddCommand(todayCmd(c))
	rootCmd.AddCommand(overdueCmd(c))
	rootCmd.AddCommand(upcomingCmd(c))
	rootCmd.AddCommand(addCmd(c))
	rootCmd.AddCommand(doneCmd(c))
	rootCmd.AddCommand(undoCmd(c))
	rootCmd.AddCommand(rmCmd(c))
	rootCmd.AddCommand(archiveCmd(c))
	rootCmd.AddCommand(totodayCmd(c))
	rootCmd.AddCommand(recurringCmd(c))
	rootCmd.AddCommand(convertCmd(c))
	rootCmd.AddCommand(statsCmd(c))

	return rootCmd
}

// run opens the application for one command and closes it afterwards.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
