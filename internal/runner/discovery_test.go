package runner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Redeemedduck/GolfDataApp-sub000/internal/models"
)

type fakeSource struct {
	pages [][]*models.DiscoveredSession
	fail  map[int]error
	calls int
}

func (f *fakeSource) ListSessions(ctx context.Context, page int) ([]*models.DiscoveredSession, bool, error) {
	f.calls++
	if err := f.fail[page]; err != nil {
		return nil, false, err
	}
	if page > len(f.pages) {
		return nil, false, nil
	}
	return f.pages[page-1], page < len(f.pages), nil
}

func portalSession(id string) *models.DiscoveredSession {
	date := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	return &models.DiscoveredSession{
		SessionID:   id,
		AccessKey:   "key-" + id,
		SourceName:  "Range Session",
		SessionDate: &date,
		DateSource:  models.DateSourcePortal,
	}
}

func TestDiscoverWalksAllPages(t *testing.T) {
	sessions := newFakeSessionStore()
	runner := newTestRunner(t, sessions, newFakeRunStore(), newScriptedImporter())

	source := &fakeSource{pages: [][]*models.DiscoveredSession{
		{portalSession("a"), portalSession("b")},
		{portalSession("c")},
	}}

	result, err := runner.Discover(context.Background(), source)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, 3, result.Seen)
	assert.Equal(t, 3, result.New)
	assert.Equal(t, models.StatusPending, sessions.get("c").ImportStatus)
}

func TestDiscoverCountsOnlyNewSessions(t *testing.T) {
	sessions := newFakeSessionStore()
	sessions.add("a", nil)
	runner := newTestRunner(t, sessions, newFakeRunStore(), newScriptedImporter())

	source := &fakeSource{pages: [][]*models.DiscoveredSession{
		{portalSession("a"), portalSession("b")},
	}}

	result, err := runner.Discover(context.Background(), source)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Seen)
	assert.Equal(t, 1, result.New)
}

func TestDiscoverStopsOnSourceError(t *testing.T) {
	runner := newTestRunner(t, newFakeSessionStore(), newFakeRunStore(), newScriptedImporter())

	var pages [][]*models.DiscoveredSession
	for i := 0; i < 3; i++ {
		pages = append(pages, []*models.DiscoveredSession{portalSession(fmt.Sprintf("p%d", i))})
	}
	source := &fakeSource{
		pages: pages,
		fail:  map[int]error{2: errors.New("portal returned 503")},
	}

	result, err := runner.Discover(context.Background(), source)
	require.Error(t, err)
	assert.Equal(t, 1, result.Pages)
	assert.Equal(t, 1, result.Seen)
	assert.Equal(t, 2, source.calls)
}
