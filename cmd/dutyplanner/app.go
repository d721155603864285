package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"duty-planner/internal/calendar"
	"duty-planner/internal/config"
	"duty-planner/internal/model"
	"duty-planner/internal/push"
	"duty-planner/internal/repository"
	"duty-planner/internal/service"
	"duty-planner/internal/store"
)

// app wires repositories and services for one process.
type app struct {
	cfg    config.Config
	db     *gorm.DB
	device *gorm.DB
	redis  *redis.Client

	profiles      *repository.ProfileRepository
	auth          *service.AuthService
	prefs         *service.PreferenceService
	tasks         *service.TaskService
	reminders     *service.ReminderService
	notifications *service.NotificationService
	users         *service.UserService
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	device, err := repository.NewDeviceDB(cfg.DeviceDB)
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("device db: %w", err)
	}

	a := &app{cfg: cfg, db: db, device: device}
	zone := cfg.Zone()

	var remote store.Remote = repository.NewRemote(db, zone)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.WithError(err).WithField("addr", cfg.RedisAddr).Warn("redis unavailable, caching disabled")
			_ = client.Close()
		} else {
			a.redis = client
			remote = repository.NewCache(remote, client, cfg.CacheTTL)
		}
	}

	a.profiles = repository.NewProfileRepository(db)
	prefRepo := repository.NewPreferenceRepository(device)
	secret := cfg.SessionSecret
	if secret == "" {
		if secret, err = service.DeviceSecret(ctx, prefRepo); err != nil {
			a.Close()
			return nil, err
		}
	}
	a.auth = service.NewAuthService(a.profiles, prefRepo, secret, cfg.SessionTTL)
	a.prefs = service.NewPreferenceService(prefRepo)
	a.tasks = service.NewTaskService(remote, zone, calendar.SystemClock{}, cfg.CompleteDelay)
	a.reminders = service.NewReminderService(a.tasks)
	a.users = service.NewUserService(a.profiles, a.auth, a.tasks)
	a.notifications = service.NewNotificationService(
		a.profiles,
		repository.NewNotificationRepository(db),
		push.NewExpoClient(cfg.PushURL, nil),
	)
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	closeDB(a.device)
	closeDB(a.db)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

var errLoginFirst = fmt.Errorf("%w: run `dutyplanner login` first", service.ErrSignedOut)

// profile restores the signed-in profile from device storage.
func (a *app) profile(ctx context.Context) (*model.Profile, error) {
	profile, err := a.auth.Restore(ctx)
	if errors.Is(err, service.ErrSignedOut) {
		return nil, errLoginFirst
	}
	return profile, err
}

// session restores the signed-in profile and loads its store.
func (a *app) session(ctx context.Context) (*model.Profile, *store.Store, error) {
	profile, err := a.profile(ctx)
	if err != nil {
		return nil, nil, err
	}
	st, err := a.tasks.Open(ctx, *profile)
	if err != nil {
		return nil, nil, err
	}
	return profile, st, nil
}
