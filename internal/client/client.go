// Package client provides typed HTTP access to a running squeeze daemon.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"squeeze/internal/jobs"
	"squeeze/internal/plan"
	"squeeze/internal/services"
)

// Client speaks to the daemon's HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New builds a client for the daemon bound at addr ("host:port" or a
// full URL). An empty token disables the Authorization header.
func New(addr, token string) *Client {
	base := strings.TrimSpace(addr)
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit uploads the file at path together with the compression request
// and returns the accepted job.
func (c *Client) Submit(ctx context.Context, path string, req plan.CompressionRequest) (*SubmitResponse, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		err := writeSubmitForm(writer, file, filepath.Base(path), req)
		if cerr := writer.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	var resp SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs", pr, writer.FormDataContentType(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func writeSubmitForm(writer *multipart.Writer, file io.Reader, filename string, req plan.CompressionRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if err := writer.WriteField("request", string(payload)); err != nil {
		return err
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file)
	return err
}

// ListJobs returns all jobs currently tracked by the daemon.
func (c *Client) ListJobs(ctx context.Context) ([]jobs.Snapshot, error) {
	var resp jobListResponse
	if err := c.do(ctx, http.MethodGet, "/api/jobs", nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// GetJob fetches a single job by id.
func (c *Client) GetJob(ctx context.Context, jobID string) (*jobs.Snapshot, error) {
	var resp jobResponse
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+jobID, nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// Cancel aborts a queued or processing job.
func (c *Client) Cancel(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodPost, "/api/jobs/"+jobID+"/cancel", nil, "", nil)
}

// Retry requeues a failed or cancelled job.
func (c *Client) Retry(ctx context.Context, jobID string) (*jobs.Snapshot, error) {
	var resp jobResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs/"+jobID+"/retry", nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// Remove cancels the job if needed and deletes it with its files.
func (c *Client) Remove(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodDelete, "/api/jobs/"+jobID, nil, "", nil)
}

// Position returns the job's 1-based place in the queue, or 0 when the job
// is not waiting.
func (c *Client) Position(ctx context.Context, jobID string) (int, error) {
	var resp positionResponse
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+jobID+"/position", nil, "", &resp); err != nil {
		return 0, err
	}
	return resp.Position, nil
}

// Status retrieves daemon runtime information.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var resp DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History lists archived jobs, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	path := "/api/history"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var resp historyResponse
	if err := c.do(ctx, http.MethodGet, path, nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// Health reports whether the daemon answers its health probe.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, "", nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(bytes.NewReader(data)).Decode(out)
}

// statusError translates HTTP statuses back into the service error
// taxonomy so callers can branch on IsNotFound/IsCapacity.
func statusError(status int, body []byte) error {
	message := strings.TrimSpace(string(body))
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		message = payload.Error
	}

	var marker error
	switch status {
	case http.StatusNotFound:
		marker = services.ErrNotFound
	case http.StatusTooManyRequests:
		marker = services.ErrCapacity
	case http.StatusBadRequest:
		marker = services.ErrValidation
	default:
		return fmt.Errorf("daemon responded %d: %s", status, message)
	}
	return services.Wrap(marker, "client", "request", message, nil)
}
