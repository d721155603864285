package main

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"duty-planner/internal/bot"
	"duty-planner/internal/service"
)

func serveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot with periodic reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.RequireTelegram(); err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				return serve(ctx, a)
			})
		},
	}
}

func serve(ctx context.Context, a *app) error {
	telegramBot, err := bot.New(a.cfg.TelegramToken, a.profiles, a.tasks, a.reminders, a.notifications)
	if err != nil {
		return err
	}
	a.notifications.AddDeliverer(telegramBot)

	scheduler := service.NewSchedulerService(a.cfg.Zone())
	if _, err := scheduler.Rollover(a.tasks); err != nil {
		return err
	}
	if _, err := scheduler.Reports(a.cfg.ReportInterval, telegramBot.SendDailyReports); err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		scheduler.Stop(stopCtx)
	}()

	log.WithFields(log.Fields{
		"zone":   a.cfg.Zone().Location().String(),
		"report": a.cfg.ReportInterval,
	}).Info("duty planner bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
