package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"duty-planner/internal/model"
	"duty-planner/internal/repository"
)

// UserService is the administrators' profile management.
type UserService struct {
	profiles *repository.ProfileRepository
	auth     *AuthService
	tasks    *TaskService
}

func NewUserService(profiles *repository.ProfileRepository, auth *AuthService, tasks *TaskService) *UserService {
	return &UserService{profiles: profiles, auth: auth, tasks: tasks}
}

func (s *UserService) AdminExists(ctx context.Context) (bool, error) {
	n, err := s.profiles.CountAdmins(ctx)
	return n > 0, err
}

// Bootstrap makes profile the first administrator. It fails once any
// administrator exists.
func (s *UserService) Bootstrap(ctx context.Context, profile *model.Profile) error {
	exists, err := s.AdminExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return ErrAdminExists
	}
	if err := s.profiles.SetAdmin(ctx, profile.ID, true); err != nil {
		return err
	}
	profile.IsAdmin = true
	log.WithField("profile", profile.ID).Info("first administrator")
	return nil
}

func (s *UserService) List(ctx context.Context, caller model.Profile) ([]model.Profile, error) {
	if !caller.IsAdmin {
		return nil, ErrForbidden
	}
	return s.profiles.ListAll(ctx)
}

// Add registers a profile with a password on the caller's behalf. The
// caller's own session is left alone.
func (s *UserService) Add(ctx context.Context, caller model.Profile, name, email, password string) (*model.Profile, error) {
	if !caller.IsAdmin {
		return nil, ErrForbidden
	}
	return s.auth.SignUp(ctx, name, email, password)
}

// SetAdmin grants or revokes the administrator flag of another profile.
func (s *UserService) SetAdmin(ctx context.Context, caller model.Profile, id string, admin bool) error {
	if !caller.IsAdmin {
		return ErrForbidden
	}
	if id == caller.ID {
		return ErrSelf
	}
	if err := s.profiles.SetAdmin(ctx, id, admin); err != nil {
		return err
	}
	s.tasks.Forget(id)
	log.WithFields(log.Fields{"profile": id, "admin": admin, "by": caller.ID}).Info("admin flag changed")
	return nil
}

// Remove deletes another profile together with its tasks.
func (s *UserService) Remove(ctx context.Context, caller model.Profile, id string) error {
	if !caller.IsAdmin {
		return ErrForbidden
	}
	if id == caller.ID {
		return ErrSelf
	}
	if _, err := s.profiles.FindByID(ctx, id); err != nil {
		return fmt.Errorf("find profile %s: %w", id, err)
	}
	if _, err := s.tasks.Purge(ctx, id); err != nil {
		return fmt.Errorf("remove tasks of %s: %w", id, err)
	}
	if err := s.profiles.Delete(ctx, id); err != nil {
		return err
	}
	log.WithFields(log.Fields{"profile": id, "by": caller.ID}).Info("profile removed")
	return nil
}
