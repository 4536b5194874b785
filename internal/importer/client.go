// Package importer is the HTTP client for the shot import service. The
// import service owns parsing and persisting shot data; this client only
// submits sessions and reports what came back.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Redeemedduck/GolfDataApp-sub000/internal/config"
	"github.com/Redeemedduck/GolfDataApp-sub000/internal/models"
	"github.com/Redeemedduck/GolfDataApp-sub000/internal/runner"
)

const importPath = "/api/v1/import"

// Client submits sessions to the import service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates an import service client.
func NewClient(cfg *config.ImporterConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// NewClientWithHTTP wraps a caller-supplied HTTP client. Used by tests.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, client: httpClient}
}

type importRequest struct {
	SessionID   string     `json:"sessionId"`
	AccessKey   string     `json:"accessKey"`
	SessionDate *time.Time `json:"sessionDate,omitempty"`
}

type importResponse struct {
	ShotsImported int      `json:"shotsImported"`
	ClubTags      []string `json:"clubTags,omitempty"`
	SourceHint    string   `json:"sourceHint,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// Import submits one session. Transport failures and server-side errors are
// retryable; a response saying the session itself is bad is not.
func (c *Client) Import(ctx context.Context, session *models.DiscoveredSession) (*runner.ImportResult, error) {
	body, err := json.Marshal(importRequest{
		SessionID:   session.SessionID,
		AccessKey:   session.AccessKey,
		SessionDate: session.SessionDate,
	})
	if err != nil {
		return nil, runner.Fatal(fmt.Errorf("encode import request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+importPath, bytes.NewReader(body))
	if err != nil {
		return nil, runner.Fatal(fmt.Errorf("build import request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, runner.Retryable(fmt.Errorf("import request failed: %w", err))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, runner.Retryable(fmt.Errorf("read import response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var decoded importResponse
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, runner.Retryable(fmt.Errorf("decode import response: %w", err))
		}
		return &runner.ImportResult{
			ShotsImported: decoded.ShotsImported,
			ClubTags:      decoded.ClubTags,
			SourceHint:    decoded.SourceHint,
		}, nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, runner.Retryable(fmt.Errorf("import service returned %d: %s", resp.StatusCode, errorDetail(payload)))

	default:
		// Remaining 4xx: the session is rejected and retrying will not help.
		return nil, runner.Fatal(fmt.Errorf("import rejected with %d: %s", resp.StatusCode, errorDetail(payload)))
	}
}

func errorDetail(payload []byte) string {
	var decoded importResponse
	if err := json.Unmarshal(payload, &decoded); err == nil && decoded.Error != "" {
		return decoded.Error
	}
	detail := string(payload)
	if len(detail) > 200 {
		detail = detail[:200]
	}
	return detail
}
