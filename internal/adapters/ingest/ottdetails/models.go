package ottdetails

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Title is one record of the /getnew listing
type Title struct {
	IMDbID                string       `json:"imdbid"`
	Title                 string       `json:"title"`
	Released              FlexString   `json:"released"`
	Type                  string       `json:"type"`
	Language              StringList   `json:"language"`
	Genre                 StringList   `json:"genre"`
	Genres                StringList   `json:"genres"`
	StreamingAvailability Availability `json:"streamingAvailability"`
}

// Availability lists offers per country code as sent by the upstream
type Availability struct {
	Country map[string][]Offer `json:"country"`
}

// Offer is one service carrying the title in a country
type Offer struct {
	Platform string `json:"platform"`
	URL      string `json:"url,omitempty"`
}

// AllGenres merges the genre and genres fields
func (t Title) AllGenres() []string {
	if len(t.Genre) > 0 {
		return t.Genre
	}
	return t.Genres
}

// NewPage is the /getnew response body
type NewPage struct {
	Page    int     `json:"page"`
	Results []Title `json:"results"`
}

// Details is the subset of /getTitleDetails the pipeline reads
type Details struct {
	IMDbID     string     `json:"imdbid"`
	RatingLow  FlexString `json:"imdbrating"`
	RatingCaps FlexString `json:"imdbRating"`
}

// StringList decodes a JSON string (comma separated) or an array of strings
type StringList []string

// UnmarshalJSON implements json.Unmarshaler
func (s *StringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = nil
		return nil
	}
	if b[0] == '"' {
		var one string
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*s = splitList(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	out := make([]string, 0, len(many))
	for _, v := range many {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	*s = out
	return nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// FlexString decodes a JSON string or number into its textual form
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*f = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*f = FlexString(n.String())
	}
	return nil
}

// Float parses f, reporting false for blanks, "N/A" and garbage
func (f FlexString) Float() (float64, bool) {
	s := strings.TrimSpace(string(f))
	if s == "" || strings.EqualFold(s, "N/A") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
