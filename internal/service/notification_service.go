package service

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"duty-planner/internal/model"
	"duty-planner/internal/push"
	"duty-planner/internal/repository"
)

// Deliverer pushes a notification to one profile over some channel.
type Deliverer interface {
	Deliver(ctx context.Context, profile model.Profile, n model.Notification) error
}

type NotificationService struct {
	profiles      *repository.ProfileRepository
	notifications *repository.NotificationRepository
	deliverers    []Deliverer
}

func NewNotificationService(profiles *repository.ProfileRepository, notifications *repository.NotificationRepository, deliverers ...Deliverer) *NotificationService {
	return &NotificationService{profiles: profiles, notifications: notifications, deliverers: deliverers}
}

// AddDeliverer registers another channel. Not safe to call during Broadcast.
func (s *NotificationService) AddDeliverer(d Deliverer) {
	s.deliverers = append(s.deliverers, d)
}

// Broadcast sends a system notification to every profile. Only administrators
// may broadcast. Delivery failures are logged and do not fail the call.
func (s *NotificationService) Broadcast(ctx context.Context, sender model.Profile, title, message string) (*model.Notification, error) {
	if !sender.IsAdmin {
		return nil, ErrForbidden
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("broadcast title is required")
	}

	n := &model.Notification{Title: title, Message: strings.TrimSpace(message), Type: model.NotificationSystem}
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	recipients, err := s.profiles.AppendUnseen(ctx, n.ID)
	if err != nil {
		return nil, err
	}

	failed := 0
	for _, profile := range recipients {
		for _, d := range s.deliverers {
			if err := d.Deliver(ctx, profile, *n); err != nil {
				failed++
				log.WithError(err).WithFields(log.Fields{
					"profile":      profile.ID,
					"notification": n.ID,
				}).Warn("deliver notification")
			}
		}
	}
	log.WithFields(log.Fields{
		"notification": n.ID,
		"recipients":   len(recipients),
		"failed":       failed,
	}).Info("broadcast sent")
	return n, nil
}

// Inbox lists the profile's notifications, newest first, with seen flags.
func (s *NotificationService) Inbox(ctx context.Context, profileID string) ([]model.InboxItem, error) {
	profile, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	seen := make(map[string]bool, len(profile.Seen))
	for _, id := range profile.Seen {
		seen[id] = true
	}
	ids := append(append([]string{}, profile.Unseen...), profile.Seen...)
	items, err := s.notifications.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	inbox := make([]model.InboxItem, 0, len(items))
	for _, n := range items {
		inbox = append(inbox, model.InboxItem{Notification: n, Seen: seen[n.ID]})
	}
	return inbox, nil
}

func (s *NotificationService) UnseenCount(ctx context.Context, profileID string) (int, error) {
	profile, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		return 0, fmt.Errorf("find profile: %w", err)
	}
	return len(profile.Unseen), nil
}

func (s *NotificationService) MarkSeen(ctx context.Context, profileID, notificationID string) error {
	_, err := s.profiles.MarkSeen(ctx, profileID, notificationID)
	return err
}

func (s *NotificationService) ClearInbox(ctx context.Context, profileID string) error {
	return s.profiles.ClearInbox(ctx, profileID)
}

// RegisterDevice stores the profile's push token. Registering the same token
// again is a no-op.
func (s *NotificationService) RegisterDevice(ctx context.Context, profile model.Profile, token string) error {
	token = strings.TrimSpace(token)
	if !push.ValidToken(token) {
		return fmt.Errorf("invalid push token %q", token)
	}
	if profile.PushToken == token {
		return nil
	}
	return s.profiles.SetPushToken(ctx, profile.ID, token)
}
