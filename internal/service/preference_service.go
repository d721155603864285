package service

import (
	"context"
	"fmt"
	"strings"

	"duty-planner/internal/repository"
)

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

const themeKey = "themePreference"

func ParseTheme(raw string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(raw))); t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, nil
	}
	return "", fmt.Errorf("unknown theme %q (want light, dark or system)", raw)
}

// PreferenceService stores display preferences on the device.
type PreferenceService struct {
	device *repository.PreferenceRepository
}

func NewPreferenceService(device *repository.PreferenceRepository) *PreferenceService {
	return &PreferenceService{device: device}
}

// Theme returns the stored theme, falling back to system for missing or unknown values.
func (s *PreferenceService) Theme(ctx context.Context) (Theme, error) {
	raw, ok, err := s.device.Get(ctx, themeKey)
	if err != nil {
		return ThemeSystem, err
	}
	if !ok {
		return ThemeSystem, nil
	}
	theme, err := ParseTheme(raw)
	if err != nil {
		return ThemeSystem, nil
	}
	return theme, nil
}

func (s *PreferenceService) SetTheme(ctx context.Context, theme Theme) error {
	if _, err := ParseTheme(string(theme)); err != nil {
		return err
	}
	return s.device.Set(ctx, themeKey, string(theme))
}

// IsDark resolves the stored theme against the system setting.
func (s *PreferenceService) IsDark(ctx context.Context, systemDark bool) (bool, error) {
	theme, err := s.Theme(ctx)
	if err != nil {
		return systemDark, err
	}
	switch theme {
	case ThemeDark:
		return true, nil
	case ThemeLight:
		return false, nil
	}
	return systemDark, nil
}
