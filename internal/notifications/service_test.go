package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"squeeze/internal/config"
	"squeeze/internal/notifications"
)

func testConfig(topic string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	cfg.Notifications.Completion = true
	cfg.Notifications.Errors = true
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := notifications.NewService(testConfig(""))
	if err := svc.NotifyJobCompleted(context.Background(), "job-1", 9.5); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func captureServer(t *testing.T, sink *[]captured) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*sink = append(*sink, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
}

func TestNotifyJobCompleted(t *testing.T) {
	var got []captured
	server := captureServer(t, &got)
	defer server.Close()

	svc := notifications.NewService(testConfig(server.URL))
	if err := svc.NotifyJobCompleted(context.Background(), "job-1", 9.5); err != nil {
		t.Fatalf("NotifyJobCompleted: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("server saw %d requests, want 1", len(got))
	}
	if got[0].title != "Squeeze - Job Complete" {
		t.Errorf("Title = %q", got[0].title)
	}
	if !strings.Contains(got[0].body, "job-1") || !strings.Contains(got[0].body, "9.5 MB") {
		t.Errorf("body = %q", got[0].body)
	}
	if got[0].tags != "squeeze,job,completed" {
		t.Errorf("Tags = %q", got[0].tags)
	}
}

func TestNotifyJobFailedIsHighPriority(t *testing.T) {
	var got []captured
	server := captureServer(t, &got)
	defer server.Close()

	svc := notifications.NewService(testConfig(server.URL))
	if err := svc.NotifyJobFailed(context.Background(), "job-1", "encoder exited with code 1"); err != nil {
		t.Fatalf("NotifyJobFailed: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("server saw %d requests, want 1", len(got))
	}
	if got[0].priority != "high" {
		t.Errorf("Priority = %q, want high", got[0].priority)
	}
	if !strings.Contains(got[0].body, "encoder exited with code 1") {
		t.Errorf("body = %q", got[0].body)
	}
}

func TestCompletionNotificationsRespectToggle(t *testing.T) {
	var got []captured
	server := captureServer(t, &got)
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Notifications.Completion = false
	svc := notifications.NewService(cfg)

	if err := svc.NotifyJobCompleted(context.Background(), "job-1", 9.5); err != nil {
		t.Fatalf("NotifyJobCompleted: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("server saw %d requests with completions disabled", len(got))
	}
}

func TestNotifyErrorSkipsNil(t *testing.T) {
	var got []captured
	server := captureServer(t, &got)
	defer server.Close()

	svc := notifications.NewService(testConfig(server.URL))
	if err := svc.NotifyError(context.Background(), nil, "sweep"); err != nil {
		t.Fatalf("NotifyError(nil): %v", err)
	}
	if len(got) != 0 {
		t.Errorf("server saw %d requests for a nil error", len(got))
	}
}

func TestSendSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic rejected", http.StatusForbidden)
	}))
	defer server.Close()

	svc := notifications.NewService(testConfig(server.URL))
	err := svc.NotifyError(context.Background(), errors.New("boom"), "worker")
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("err = %v, want 403 surfaced", err)
	}
}
