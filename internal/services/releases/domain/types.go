// Package domain defines the types and interfaces for the releases pipeline
package domain

import (
	"strings"
	"time"

	"ottscout/internal/adapters/ingest/ottdetails"
	"ottscout/internal/adapters/ingest/streaming"
	"ottscout/internal/core/catalog"

	"github.com/google/uuid"
)

// Kind tags which upstream shape a RawRecord carries
type Kind uint8

// Record kinds
const (
	KindOTT Kind = iota + 1
	KindStreaming
)

// String implements fmt.Stringer
func (k Kind) String() string {
	switch k {
	case KindOTT:
		return "ott"
	case KindStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// RawRecord is one upstream title before normalization
// Exactly one of OTT and Show is set, matching Kind; only the normalizer looks inside
type RawRecord struct {
	Kind Kind
	OTT  *ottdetails.Title
	Show *streaming.Show
}

// FromOTT wraps an offset upstream title
func FromOTT(t ottdetails.Title) RawRecord { return RawRecord{Kind: KindOTT, OTT: &t} }

// FromShow wraps a cursor upstream show
func FromShow(s streaming.Show) RawRecord { return RawRecord{Kind: KindStreaming, Show: &s} }

// CanonicalRow is a normalized, platform and region specific release
type CanonicalRow struct {
	Title     string              `json:"title"`
	Year      string              `json:"year"`
	Type      catalog.ContentType `json:"type"`
	Languages []string            `json:"languages"`
	Platform  catalog.Platform    `json:"platform"`
	Region    catalog.Region      `json:"region"`
	DateAdded time.Time           `json:"date_added"`
	TitleID   string              `json:"title_id,omitempty"`
	Rating    *float64            `json:"rating,omitempty"`
}

// Key identifies a row for deduplication
// Rows without a title id fall back to the case-folded title and year
func (r CanonicalRow) Key() string {
	id := r.TitleID
	if id == "" {
		id = "~" + strings.ToLower(strings.TrimSpace(r.Title)) + "|" + r.Year
	}
	return id + "\x00" + string(r.Platform) + "\x00" + string(r.Region)
}

// HasLanguage reports whether the row lists lang, case-insensitively
func (r CanonicalRow) HasLanguage(lang string) bool {
	for _, l := range r.Languages {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

// Query selects what a Source fetches for one region
type Query struct {
	Region   catalog.Region
	Catalogs []string
	Since    time.Time
}

// RunStats summarises one pipeline run
type RunStats struct {
	Source         string         `json:"source"`
	RawByRegion    map[string]int `json:"raw_by_region"`
	SkippedRegions []string       `json:"skipped_regions,omitempty"`
	Admitted       int            `json:"admitted"`
	Duplicates     int            `json:"duplicates"`
	UniqueIDs      int            `json:"unique_ids"`
	Rated          int            `json:"rated"`
	EnrichPartial  bool           `json:"enrich_partial"`
	EnrichSkipped  bool           `json:"enrich_skipped"`
}

// Report is the outcome of one run
type Report struct {
	RunID      uuid.UUID      `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Rows       []CanonicalRow `json:"rows"`
	Stats      RunStats       `json:"stats"`
}

// RunSummary is a persisted run without its rows
type RunSummary struct {
	RunID      uuid.UUID `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Source     string    `json:"source"`
	Rows       int       `json:"rows"`
	Stats      RunStats  `json:"stats"`
}

// RowFilter narrows persisted rows; empty fields match everything
type RowFilter struct {
	Region   string `json:"region" validate:"omitempty,len=2,alpha"`
	Platform string `json:"platform" validate:"omitempty,max=64"`
	Language string `json:"language" validate:"omitempty,max=64"`
}

// Match reports whether row passes f
func (f RowFilter) Match(row CanonicalRow) bool {
	if f.Region != "" && !strings.EqualFold(string(row.Region), f.Region) {
		return false
	}
	if f.Platform != "" && !strings.EqualFold(string(row.Platform), f.Platform) {
		return false
	}
	if f.Language != "" && !row.HasLanguage(f.Language) {
		return false
	}
	return true
}
