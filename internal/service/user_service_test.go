package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"duty-planner/internal/calendar"
	"duty-planner/internal/repository"
	"duty-planner/internal/store"
)

func newTestUsers(t *testing.T) (*UserService, *AuthService, *TaskService) {
	t.Helper()
	db, device := newTestDBs(t)
	profiles := repository.NewProfileRepository(db)
	auth := NewAuthService(profiles, repository.NewPreferenceRepository(device), "test-secret", time.Hour)
	tasks := NewTaskService(repository.NewRemote(db, testZone), testZone, calendar.NewManualClock(testNow), time.Second)
	return NewUserService(profiles, auth, tasks), auth, tasks
}

func TestBootstrapFirstAdminOnlyOnce(t *testing.T) {
	ctx := context.Background()
	users, auth, _ := newTestUsers(t)
	ann, err := auth.SignUp(ctx, "Ann", "ann@example.com", "secret1")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	bob, err := auth.SignUp(ctx, "Bob", "bob@example.com", "secret1")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	if err := users.Bootstrap(ctx, ann); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if !ann.IsAdmin {
		t.Fatalf("profile not flagged admin")
	}
	if err := users.Bootstrap(ctx, bob); !errors.Is(err, ErrAdminExists) {
		t.Fatalf("second bootstrap err = %v", err)
	}
}

func TestUserManagementRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	users, auth, _ := newTestUsers(t)
	bob, err := auth.SignUp(ctx, "Bob", "bob@example.com", "secret1")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	if _, err := users.List(ctx, *bob); !errors.Is(err, ErrForbidden) {
		t.Fatalf("list err = %v", err)
	}
	if _, err := users.Add(ctx, *bob, "Eve", "eve@example.com", "secret1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("add err = %v", err)
	}
	if err := users.SetAdmin(ctx, *bob, bob.ID, true); !errors.Is(err, ErrForbidden) {
		t.Fatalf("self promote err = %v", err)
	}
	if err := users.Remove(ctx, *bob, "anyone"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("remove err = %v", err)
	}
}

func TestAdminPromotesAndRemovesProfiles(t *testing.T) {
	ctx := context.Background()
	users, auth, tasks := newTestUsers(t)
	ann, _ := auth.SignUp(ctx, "Ann", "ann@example.com", "secret1")
	if err := users.Bootstrap(ctx, ann); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	bob, err := users.Add(ctx, *ann, "Bob", "bob@example.com", "secret1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	st, err := tasks.Open(ctx, *bob)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := st.Add(ctx, store.NewTask{Title: "bob's task"}); err != nil {
		t.Fatalf("add task: %v", err)
	}
	if _, err := st.AddRecurring(ctx, "bob's duty"); err != nil {
		t.Fatalf("add recurring: %v", err)
	}

	adminStore, err := tasks.Open(ctx, *ann)
	if err != nil {
		t.Fatalf("open admin: %v", err)
	}
	if len(adminStore.Tasks()) != 1 {
		t.Fatalf("admin sees %d tasks, want 1", len(adminStore.Tasks()))
	}

	list, err := users.List(ctx, *ann)
	if err != nil || len(list) != 2 {
		t.Fatalf("list = %d profiles, %v", len(list), err)
	}

	if err := users.SetAdmin(ctx, *ann, ann.ID, false); !errors.Is(err, ErrSelf) {
		t.Fatalf("self demote err = %v", err)
	}
	if err := users.SetAdmin(ctx, *ann, bob.ID, true); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if err := users.SetAdmin(ctx, *ann, bob.ID, false); err != nil {
		t.Fatalf("demote: %v", err)
	}

	if err := users.Remove(ctx, *ann, ann.ID); !errors.Is(err, ErrSelf) {
		t.Fatalf("self remove err = %v", err)
	}
	if err := users.Remove(ctx, *ann, bob.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := auth.SignIn(ctx, "bob@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("removed profile signed in: %v", err)
	}
	if err := users.Remove(ctx, *ann, bob.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("second remove err = %v", err)
	}

	if err := adminStore.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(adminStore.Tasks()) != 0 {
		t.Fatalf("tasks of removed profile survived: %+v", adminStore.Tasks())
	}
	fresh, err := tasks.Open(ctx, *bob)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(fresh.Recurring()) != 0 {
		t.Fatalf("recurring tasks of removed profile survived")
	}
}
