package domain

import "time"

// SkippedRow describes a source row the parser could not decode.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ParseReport summarizes one ingestion. A malformed row is skipped and
// recorded here instead of failing the upload.
type ParseReport struct {
	Loaded    bool         `json:"loaded"`
	DatasetID string       `json:"dataset_id,omitempty"`
	Source    string       `json:"source,omitempty"`
	Format    string       `json:"format,omitempty"`
	Rows      int          `json:"rows"`
	Columns   []string     `json:"columns,omitempty"`
	Skipped   []SkippedRow `json:"skipped,omitempty"`
	Duration  string       `json:"duration,omitempty"`
}

// SessionInfo describes a dashboard session.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
	DatasetID string    `json:"dataset_id,omitempty"`
	Records   int       `json:"records"`
}

// ExportFile is a rendered export ready to be served or written.
type ExportFile struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	ETag        string `json:"etag"`
	Rows        int    `json:"rows"`
	Body        []byte `json:"-"`
}
