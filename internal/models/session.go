package models

import "time"

// ImportStatus tracks a discovered session through the ingestion pipeline.
type ImportStatus string

const (
	StatusPending     ImportStatus = "pending"
	StatusImporting   ImportStatus = "importing"
	StatusImported    ImportStatus = "imported"
	StatusSkipped     ImportStatus = "skipped"
	StatusFailed      ImportStatus = "failed"
	StatusNeedsReview ImportStatus = "needs_review"
)

// DateSource records where a session's date came from.
type DateSource string

const (
	DateSourcePortal DateSource = "portal"
	DateSourceDetail DateSource = "detail_page"
	DateSourceManual DateSource = "manual"
)

// DiscoveredSession represents one session known at the external portal,
// before or after import. SessionID is the portal's stable key and the
// primary key here; rows are created at discovery and mutated only by the
// pipeline's status writers.
type DiscoveredSession struct {
	SessionID     string       `json:"sessionId" db:"session_id"`
	AccessKey     string       `json:"accessKey" db:"access_key"`
	SourceName    string       `json:"sourceName" db:"source_name"`
	SessionDate   *time.Time   `json:"sessionDate,omitempty" db:"session_date"`
	DateSource    DateSource   `json:"dateSource" db:"date_source"`
	ClubTags      []string     `json:"clubTags" db:"club_tags"`
	ImportStatus  ImportStatus `json:"importStatus" db:"import_status"`
	AttemptCount  int          `json:"attemptCount" db:"attempt_count"`
	LastAttemptAt *time.Time   `json:"lastAttemptAt,omitempty" db:"last_attempt_at"`
	Priority      int          `json:"priority" db:"priority"`
	ErrorMessage  *string      `json:"errorMessage,omitempty" db:"error_message"`

	// Populated by the pipeline after a successful import.
	DisplayName *string `json:"displayName,omitempty" db:"display_name"`
	SessionType *string `json:"sessionType,omitempty" db:"session_type"`
	TagsJSON    *string `json:"tagsJson,omitempty" db:"tags_json"`
	ShotCount   int     `json:"shotCount" db:"shot_count"`

	DiscoveredAt time.Time `json:"discoveredAt" db:"discovered_at"`
}

// ImportedMetadata is the classification output written alongside the
// imported status transition.
type ImportedMetadata struct {
	DisplayName string
	SessionType string
	TagsJSON    string
	ShotCount   int
}

// DiscoveryStats aggregates the store for operator dashboards.
type DiscoveryStats struct {
	ByStatus      map[ImportStatus]int `json:"byStatus"`
	Total         int                  `json:"total"`
	DiscoveredL7D int                  `json:"discoveredLast7Days"`
	OldestDate    *time.Time           `json:"oldestDate,omitempty"`
	NewestDate    *time.Time           `json:"newestDate,omitempty"`
}
