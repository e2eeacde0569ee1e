// Package notifications pushes job lifecycle events to ntfy when a topic is
// configured. A missing topic yields a noop implementation so callers never
// branch.
package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"squeeze/internal/config"
)

const userAgent = "Squeeze/0.1.0"

// Service is the notification surface the coordinator talks to.
type Service interface {
	NotifyJobCompleted(ctx context.Context, jobID string, outputSizeMB float64) error
	NotifyJobFailed(ctx context.Context, jobID, reason string) error
	NotifyQueueStalled(ctx context.Context, staleJobs int) error
	NotifyError(ctx context.Context, err error, where string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a service backed by ntfy when configured; otherwise a
// noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:        topic,
		client:          &http.Client{Timeout: timeout},
		sendCompletions: cfg.Notifications.Completion,
		sendErrors:      cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint        string
	client          *http.Client
	sendCompletions bool
	sendErrors      bool
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, jobID string, outputSizeMB float64) error {
	if !n.sendCompletions {
		return nil
	}
	data := payload{
		title:   "Squeeze - Job Complete",
		message: fmt.Sprintf("Compression finished: %s (%.1f MB)", jobID, outputSizeMB),
		tags:    []string{"squeeze", "job", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, jobID, reason string) error {
	if !n.sendErrors {
		return nil
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown error"
	}
	data := payload{
		title:    "Squeeze - Job Failed",
		message:  fmt.Sprintf("Compression failed: %s\n%s", jobID, reason),
		tags:     []string{"squeeze", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueStalled(ctx context.Context, staleJobs int) error {
	if !n.sendErrors {
		return nil
	}
	data := payload{
		title:    "Squeeze - Stale Jobs Swept",
		message:  fmt.Sprintf("Force-cleaned %d stale job(s) from the queue", staleJobs),
		tags:     []string{"squeeze", "queue", "sweep"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, where string) error {
	if !n.sendErrors || err == nil {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if where = strings.TrimSpace(where); where != "" {
		builder.WriteString(" in ")
		builder.WriteString(where)
	}
	builder.WriteString(": ")
	builder.WriteString(err.Error())
	data := payload{
		title:    "Squeeze - Error",
		message:  builder.String(),
		tags:     []string{"squeeze", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Squeeze - Test",
		message:  "Notification system test",
		tags:     []string{"squeeze", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, string, float64) error { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string) error     { return nil }
func (noopService) NotifyQueueStalled(context.Context, int) error             { return nil }
func (noopService) NotifyError(context.Context, error, string) error          { return nil }
func (noopService) TestNotification(context.Context) error                    { return nil }
