package runner

import (
	"context"
	"fmt"

	"github.com/Redeemedduck/GolfDataApp-sub000/internal/models"
)

// SessionSource lists sessions known at the external portal, one page at a
// time. Implementations own pagination; the runner only asks for the next
// page until the source reports it is done.
type SessionSource interface {
	ListSessions(ctx context.Context, page int) (sessions []*models.DiscoveredSession, more bool, err error)
}

// DiscoveryResult summarizes one discovery pass.
type DiscoveryResult struct {
	Pages int `json:"pages"`
	Seen  int `json:"seen"`
	New   int `json:"new"`
}

// Discover walks the portal listing under the rate limiter and records every
// session it sees. Re-discovery of a known session refreshes its descriptive
// metadata and nothing else, so repeated passes are safe.
func (r *Runner) Discover(ctx context.Context, source SessionSource) (*DiscoveryResult, error) {
	result := &DiscoveryResult{}
	log := r.log.WithField("op", "discover")

	for page := 1; ; page++ {
		if r.limiter != nil {
			if _, err := r.limiter.Acquire(ctx, "discover"); err != nil {
				return result, err
			}
		}

		sessions, more, err := source.ListSessions(ctx, page)
		if err != nil {
			if r.limiter != nil {
				r.limiter.ReportError()
			}
			return result, fmt.Errorf("list sessions page %d: %w", page, err)
		}
		if r.limiter != nil {
			r.limiter.ReportSuccess()
		}

		result.Pages++
		for _, s := range sessions {
			result.Seen++
			isNew, err := r.sessions.SaveDiscovered(ctx, s)
			if err != nil {
				return result, fmt.Errorf("save session %s: %w", s.SessionID, err)
			}
			if isNew {
				result.New++
			}
		}

		if !more {
			break
		}
	}

	log.WithFields(map[string]interface{}{
		"pages": result.Pages,
		"seen":  result.Seen,
		"new":   result.New,
	}).Info("discovery pass finished")

	return result, nil
}
