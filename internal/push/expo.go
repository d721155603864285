// Package push delivers notifications through the Expo push relay.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	log "github.com/sirupsen/logrus"

	"duty-planner/internal/model"
)

const DefaultURL = "https://exp.host/--/api/v2/push/send"

var tokenPattern = regexp.MustCompile(`^Expo(nent)?PushToken\[[^\[\]]+\]$`)

// ValidToken reports whether token looks like an Expo device token.
func ValidToken(token string) bool {
	return tokenPattern.MatchString(token)
}

// Message is the relay request body.
type Message struct {
	To    string         `json:"to"`
	Sound string         `json:"sound"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data"`
}

type ExpoClient struct {
	url  string
	http *http.Client
}

func NewExpoClient(url string, client *http.Client) *ExpoClient {
	if url == "" {
		url = DefaultURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ExpoClient{url: url, http: client}
}

// Send posts one message to the relay. Any non-2xx answer is an error.
func (c *ExpoClient) Send(ctx context.Context, token, title, body string) error {
	if !ValidToken(token) {
		return fmt.Errorf("invalid push token %q", token)
	}
	payload, err := json.Marshal(Message{
		To:    token,
		Sound: "default",
		Title: title,
		Body:  body,
		Data:  map[string]any{},
	})
	if err != nil {
		return fmt.Errorf("encode push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push relay answered %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

// Deliver sends n to the profile's device. Profiles without a token are skipped.
func (c *ExpoClient) Deliver(ctx context.Context, profile model.Profile, n model.Notification) error {
	if profile.PushToken == "" {
		return nil
	}
	if err := c.Send(ctx, profile.PushToken, n.Title, n.Message); err != nil {
		return err
	}
	log.WithFields(log.Fields{"profile": profile.ID, "notification": n.ID}).Debug("push delivered")
	return nil
}
