package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"duty-planner/internal/model"
)

func TestValidToken(t *testing.T) {
	cases := map[string]bool{
		"ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]": true,
		"ExpoPushToken[abc-123]":                    true,
		"ExponentPushToken[]":                       false,
		"ExponentPushToken[abc":                     false,
		"fcm:abc":                                   false,
		"":                                          false,
	}
	for token, want := range cases {
		if got := ValidToken(token); got != want {
			t.Errorf("ValidToken(%q) = %v, want %v", token, got, want)
		}
	}
}

func TestSendPostsRelayMessage(t *testing.T) {
	var got Message
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method %s", r.Method)
		}
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"status":"ok"}}`))
	}))
	defer srv.Close()

	client := NewExpoClient(srv.URL, srv.Client())
	if err := client.Send(context.Background(), "ExponentPushToken[abc]", "Hello", "World"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if contentType != "application/json" {
		t.Fatalf("content type %q", contentType)
	}
	if got.To != "ExponentPushToken[abc]" || got.Sound != "default" || got.Title != "Hello" || got.Body != "World" {
		t.Fatalf("unexpected message %+v", got)
	}
	if got.Data == nil {
		t.Fatalf("data must be an empty object")
	}
}

func TestSendRejectsRelayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewExpoClient(srv.URL, srv.Client())
	if err := client.Send(context.Background(), "ExpoPushToken[abc]", "t", "b"); err == nil {
		t.Fatalf("expected error for 400")
	}
	if err := client.Send(context.Background(), "garbage", "t", "b"); err == nil {
		t.Fatalf("expected error for invalid token")
	}
}

func TestDeliverSkipsProfilesWithoutToken(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	client := NewExpoClient(srv.URL, srv.Client())
	n := model.Notification{ID: "n1", Title: "t", Message: "m"}
	if err := client.Deliver(context.Background(), model.Profile{ID: "p1"}, n); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if err := client.Deliver(context.Background(), model.Profile{ID: "p2", PushToken: "ExpoPushToken[x]"}, n); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if calls != 1 {
		t.Fatalf("relay called %d times, want 1", calls)
	}
}
