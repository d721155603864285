package service

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"duty-planner/internal/calendar"
	"duty-planner/internal/model"
	"duty-planner/internal/store"
)

// TaskService keeps one store and completer per profile so every front end
// shares the same local state for a user.
type TaskService struct {
	remote store.Remote
	zone   calendar.Zone
	clock  calendar.Clock
	delay  time.Duration

	mu      sync.Mutex
	entries map[string]*taskEntry
}

type taskEntry struct {
	store     *store.Store
	completer *store.Completer
}

func NewTaskService(remote store.Remote, zone calendar.Zone, clock calendar.Clock, delay time.Duration) *TaskService {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	return &TaskService{
		remote:  remote,
		zone:    zone,
		clock:   clock,
		delay:   delay,
		entries: make(map[string]*taskEntry),
	}
}

func (s *TaskService) Zone() calendar.Zone { return s.zone }

func (s *TaskService) entry(profile model.Profile) *taskEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[profile.ID]
	if ok && e.store.Owner().IsAdmin == profile.IsAdmin {
		return e
	}
	st := store.New(s.remote, profile, s.zone, s.clock)
	e = &taskEntry{store: st, completer: store.NewCompleter(st, s.delay)}
	s.entries[profile.ID] = e
	return e
}

// Open returns the profile's store, loading it on first use.
func (s *TaskService) Open(ctx context.Context, profile model.Profile) (*store.Store, error) {
	st := s.entry(profile).store
	if !st.Loaded() {
		if err := st.Load(ctx); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (s *TaskService) Completer(profile model.Profile) *store.Completer {
	return s.entry(profile).completer
}

// ReloadAll refreshes every open store. A failing store keeps its old state.
func (s *TaskService) ReloadAll(ctx context.Context) int {
	s.mu.Lock()
	stores := make([]*store.Store, 0, len(s.entries))
	for _, e := range s.entries {
		stores = append(stores, e.store)
	}
	s.mu.Unlock()

	reloaded := 0
	for _, st := range stores {
		if err := st.Load(ctx); err != nil {
			log.WithError(err).WithField("profile", st.Owner().ID).Warn("reload store")
			continue
		}
		reloaded++
	}
	return reloaded
}

// Forget drops the profile's store, e.g. on sign-out.
func (s *TaskService) Forget(profileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, profileID)
}

// Purge deletes every task and recurring task owned by owner through the
// remote, so cached lists are evicted too, then drops the owner's store.
func (s *TaskService) Purge(ctx context.Context, owner string) (int, error) {
	tasks, err := s.remote.ListTasks(ctx, owner)
	if err != nil {
		return 0, err
	}
	recurring, err := s.remote.ListRecurring(ctx, owner)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, t := range tasks {
		if err := s.remote.DeleteTask(ctx, owner, t.ID); err != nil {
			return removed, err
		}
		removed++
	}
	for _, r := range recurring {
		if err := s.remote.DeleteRecurring(ctx, owner, r.ID); err != nil {
			return removed, err
		}
		removed++
	}
	s.Forget(owner)
	log.WithFields(log.Fields{"profile": owner, "removed": removed}).Info("purged tasks")
	return removed, nil
}
