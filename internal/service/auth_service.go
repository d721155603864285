package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"duty-planner/internal/model"
	"duty-planner/internal/repository"
)

// Device storage keys for the signed-in session.
const (
	sessionKey = "session"
	profileKey = "user"
	secretKey  = "sessionSecret"
)

const minPasswordLen = 6

// AuthService signs profiles in and out and keeps the session in device storage.
type AuthService struct {
	profiles *repository.ProfileRepository
	device   *repository.PreferenceRepository
	secret   []byte
	ttl      time.Duration
	parser   *jwt.Parser
}

func NewAuthService(profiles *repository.ProfileRepository, device *repository.PreferenceRepository, secret string, ttl time.Duration) *AuthService {
	if secret == "" {
		panic("service.NewAuthService: empty session secret")
	}
	return &AuthService{
		profiles: profiles,
		device:   device,
		secret:   []byte(secret),
		ttl:      ttl,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// DeviceSecret returns the session signing key kept on this device,
// generating and storing a random one on first use.
func DeviceSecret(ctx context.Context, device *repository.PreferenceRepository) (string, error) {
	secret, ok, err := device.Get(ctx, secretKey)
	if err != nil {
		return "", err
	}
	if ok && secret != "" {
		return secret, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	secret = hex.EncodeToString(buf)
	if err := device.Set(ctx, secretKey, secret); err != nil {
		return "", err
	}
	log.Info("generated session secret for this device")
	return secret, nil
}

func (s *AuthService) SignUp(ctx context.Context, name, email, password string) (*model.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	if _, err := s.profiles.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find profile: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	profile := &model.Profile{Name: strings.TrimSpace(name), Email: email, PasswordHash: string(hash)}
	if err := s.profiles.Create(ctx, profile); errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrEmailTaken
	} else if err != nil {
		return nil, err
	}
	log.WithField("profile", profile.ID).Info("profile registered")
	return profile, nil
}

// SignIn checks the credentials and stores a fresh session on the device.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*model.Profile, error) {
	profile, err := s.verify(ctx, email, password)
	if err != nil {
		return nil, err
	}
	token, err := s.issue(profile.ID)
	if err != nil {
		return nil, err
	}
	if err := s.device.Set(ctx, sessionKey, token); err != nil {
		return nil, err
	}
	if err := s.cacheProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Restore returns the profile of the stored session. A missing, invalid or
// expired session clears the device cache and yields ErrSignedOut. When the
// profile table is unreachable the cached profile is used.
func (s *AuthService) Restore(ctx context.Context) (*model.Profile, error) {
	token, ok, err := s.device.Get(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		_ = s.device.Delete(ctx, profileKey)
		return nil, ErrSignedOut
	}
	subject, err := s.parse(token)
	if err != nil {
		log.WithError(err).Debug("discarding session")
		_ = s.SignOut(ctx)
		return nil, ErrSignedOut
	}

	profile, err := s.profiles.FindByID(ctx, subject)
	switch {
	case err == nil:
		if err := s.cacheProfile(ctx, profile); err != nil {
			log.WithError(err).Warn("cache profile")
		}
		return profile, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		_ = s.SignOut(ctx)
		return nil, ErrSignedOut
	}

	cached, cerr := s.cachedProfile(ctx)
	if cerr != nil || cached == nil || cached.ID != subject {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	log.WithError(err).Warn("using cached profile")
	return cached, nil
}

func (s *AuthService) SignOut(ctx context.Context) error {
	return s.device.Delete(ctx, sessionKey, profileKey)
}

func (s *AuthService) ResetPassword(ctx context.Context, email, current, next string) error {
	if len(next) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	profile, err := s.verify(ctx, email, current)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.profiles.SetPasswordHash(ctx, profile.ID, string(hash))
}

func (s *AuthService) verify(ctx context.Context, email, password string) (*model.Profile, error) {
	profile, err := s.profiles.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	if profile.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return profile, nil
}

func (s *AuthService) issue(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

func (s *AuthService) parse(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := s.parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("session without subject")
	}
	return claims.Subject, nil
}

func (s *AuthService) cacheProfile(ctx context.Context, profile *model.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return s.device.Set(ctx, profileKey, string(data))
}

func (s *AuthService) cachedProfile(ctx context.Context) (*model.Profile, error) {
	raw, ok, err := s.device.Get(ctx, profileKey)
	if err != nil || !ok {
		return nil, err
	}
	var profile model.Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, fmt.Errorf("decode cached profile: %w", err)
	}
	profile.Normalize()
	return &profile, nil
}
