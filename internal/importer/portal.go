package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Redeemedduck/GolfDataApp-sub000/internal/config"
	"github.com/Redeemedduck/GolfDataApp-sub000/internal/models"
)

const sessionsPath = "/api/v1/sessions"

// PortalSource pages through the portal's session listing, exposed by the
// import service as a proxy endpoint.
type PortalSource struct {
	baseURL string
	client  *http.Client
}

// NewPortalSource creates a portal listing source.
func NewPortalSource(cfg *config.ImporterConfig) *PortalSource {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &PortalSource{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// NewPortalSourceWithHTTP wraps a caller-supplied HTTP client. Used by tests.
func NewPortalSourceWithHTTP(baseURL string, httpClient *http.Client) *PortalSource {
	return &PortalSource{baseURL: baseURL, client: httpClient}
}

type listedSession struct {
	SessionID   string     `json:"sessionId"`
	AccessKey   string     `json:"accessKey"`
	Name        string     `json:"name"`
	SessionDate *time.Time `json:"sessionDate,omitempty"`
	ClubTags    []string   `json:"clubTags,omitempty"`
	ShotCount   int        `json:"shotCount,omitempty"`
}

type listResponse struct {
	Sessions []listedSession `json:"sessions"`
	HasMore  bool            `json:"hasMore"`
}

// ListSessions fetches one page of the portal listing.
func (p *PortalSource) ListSessions(ctx context.Context, page int) ([]*models.DiscoveredSession, bool, error) {
	url := fmt.Sprintf("%s%s?page=%d", p.baseURL, sessionsPath, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build listing request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("listing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, fmt.Errorf("listing returned %d: %s", resp.StatusCode, body)
	}

	var decoded listResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, false, fmt.Errorf("decode listing response: %w", err)
	}

	sessions := make([]*models.DiscoveredSession, 0, len(decoded.Sessions))
	for _, listed := range decoded.Sessions {
		sessions = append(sessions, &models.DiscoveredSession{
			SessionID:   listed.SessionID,
			AccessKey:   listed.AccessKey,
			SourceName:  listed.Name,
			SessionDate: listed.SessionDate,
			DateSource:  models.DateSourcePortal,
			ClubTags:    listed.ClubTags,
		})
	}
	return sessions, decoded.HasMore, nil
}
