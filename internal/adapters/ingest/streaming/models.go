package streaming

import (
	"encoding/json"
	"strconv"
)

// ChangesPage is one page of the /changes feed
// The upstream has used both camelCase and snake_case for the paging fields
type ChangesPage struct {
	Changes []Change        `json:"changes"`
	Shows   map[string]Show `json:"shows"`

	HasMoreCamel    *bool  `json:"hasMore"`
	HasMoreSnake    *bool  `json:"has_more"`
	NextCursorCamel string `json:"nextCursor"`
	NextCursorSnake string `json:"next_cursor"`
}

// HasMore reports the continuation flag under either spelling
func (p ChangesPage) HasMore() bool {
	if p.HasMoreCamel != nil {
		return *p.HasMoreCamel
	}
	return p.HasMoreSnake != nil && *p.HasMoreSnake
}

// NextCursor returns the continuation token under either spelling
func (p ChangesPage) NextCursor() string {
	if p.NextCursorCamel != "" {
		return p.NextCursorCamel
	}
	return p.NextCursorSnake
}

// Change is one entry of the feed pointing at a show
type Change struct {
	ChangeType string  `json:"changeType"`
	ItemType   string  `json:"itemType"`
	ShowID     string  `json:"showId"`
	ShowType   string  `json:"showType"`
	Service    Service `json:"service"`
	Timestamp  int64   `json:"timestamp"`
}

// Show is a catalog title with its per-country streaming options
type Show struct {
	ID               string                       `json:"id"`
	IMDbID           string                       `json:"imdbId"`
	Title            string                       `json:"title"`
	ShowType         string                       `json:"showType"`
	ReleaseYear      int                          `json:"releaseYear"`
	FirstAirYear     int                          `json:"firstAirYear"`
	Genres           []Genre                      `json:"genres"`
	StreamingOptions map[string][]StreamingOption `json:"streamingOptions"`

	// AddedOn is the unix time of the change that surfaced the show, set by the client
	AddedOn int64 `json:"-"`
}

// Year returns the release or first air year as text, empty when unknown
func (s Show) Year() string {
	switch {
	case s.ReleaseYear > 0:
		return strconv.Itoa(s.ReleaseYear)
	case s.FirstAirYear > 0:
		return strconv.Itoa(s.FirstAirYear)
	default:
		return ""
	}
}

// Genre is a tagged genre
type Genre struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Service identifies a streaming service
type Service struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StreamingOption is one way to watch a show in a country
type StreamingOption struct {
	Service        Service `json:"service"`
	Type           string  `json:"type"`
	Audios         []Track `json:"audios"`
	Subtitles      []Sub   `json:"subtitles"`
	AvailableSince int64   `json:"availableSince"`
}

// Track is an audio track locale
type Track struct {
	Language string `json:"language"`
	Region   string `json:"region,omitempty"`
}

// Sub is a subtitle entry
type Sub struct {
	ClosedCaptions bool  `json:"closedCaptions"`
	Locale         Track `json:"locale"`
}

// UnmarshalJSON accepts shows whose genres arrive as plain strings
func (g *Genre) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		g.ID, g.Name = s, s
		return nil
	}
	type plain Genre
	return json.Unmarshal(b, (*plain)(g))
}
