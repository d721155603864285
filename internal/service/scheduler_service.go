package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"duty-planner/internal/calendar"
)

const jobTimeout = time.Minute

// Job is one scheduled run. The context expires after jobTimeout.
type Job func(ctx context.Context) error

// SchedulerService runs the planner's periodic jobs on the planner's wall clock.
type SchedulerService struct {
	cron    *cron.Cron
	timeout time.Duration
}

func NewSchedulerService(zone calendar.Zone) *SchedulerService {
	cronLog := cron.PrintfLogger(log.StandardLogger())
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(zone.Location()),
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		timeout: jobTimeout,
	}
}

// DailyAt runs job every day at clock, given as HH:MM.
func (s *SchedulerService) DailyAt(clock, name string, job Job) (cron.EntryID, error) {
	spec, err := dailySpec(clock)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, s.wrap(name, job))
}

// Every runs job once per interval, rounded down to whole seconds.
func (s *SchedulerService) Every(interval time.Duration, name string, job Job) (cron.EntryID, error) {
	if interval < time.Second {
		return 0, fmt.Errorf("schedule %s: interval %s is below one second", name, interval)
	}
	return s.cron.Schedule(cron.Every(interval.Truncate(time.Second)), cron.FuncJob(s.wrap(name, job))), nil
}

// Rollover reloads every open store at midnight so the day-relative views
// move to the new date.
func (s *SchedulerService) Rollover(tasks *TaskService) (cron.EntryID, error) {
	return s.DailyAt("00:00", "rollover", func(ctx context.Context) error {
		n := tasks.ReloadAll(ctx)
		log.WithField("stores", n).Info("day rollover")
		return nil
	})
}

// Reports sends the daily summaries every interval.
func (s *SchedulerService) Reports(interval time.Duration, send Job) (cron.EntryID, error) {
	return s.Every(interval, "reports", send)
}

func (s *SchedulerService) Len() int {
	return len(s.cron.Entries())
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop stops new runs and waits for running jobs until ctx is done.
func (s *SchedulerService) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		log.Warn("scheduler stopped with jobs still running")
	}
}

func (s *SchedulerService) wrap(name string, job Job) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		started := time.Now()
		err := job(ctx)
		entry := log.WithFields(log.Fields{"job": name, "took": time.Since(started)})
		switch {
		case err == nil:
			entry.Debug("job done")
		case errors.Is(err, context.Canceled):
		default:
			entry.WithError(err).Warn("job failed")
		}
	}
}

// dailySpec turns HH:MM into a six-field cron expression.
func dailySpec(clock string) (string, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", clock)
	}
	return fmt.Sprintf("0 %d %d * * *", t.Minute(), t.Hour()), nil
}
