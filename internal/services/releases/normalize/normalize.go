// Package normalize is the single boundary between upstream payloads and canonical rows
package normalize

import (
	"slices"
	"sort"
	"strings"
	"time"

	"ottscout/internal/adapters/ingest/ottdetails"
	"ottscout/internal/adapters/ingest/streaming"
	"ottscout/internal/core/catalog"
	dom "ottscout/internal/services/releases/domain"
)

// Normalizer turns raw records into rows for one run
type Normalizer struct {
	policy  catalog.Policy
	runDate time.Time
}

// New returns a Normalizer; runDate stands in for records without an upstream date
func New(policy catalog.Policy, runDate time.Time) *Normalizer {
	return &Normalizer{policy: policy, runDate: Day(runDate)}
}

// Normalize returns one row per target platform the record is available on in region
// Records that fail platform or language admission yield no rows
func (n *Normalizer) Normalize(raw dom.RawRecord, region catalog.Region) []dom.CanonicalRow {
	switch {
	case raw.Kind == dom.KindOTT && raw.OTT != nil:
		return n.fromOTT(*raw.OTT, region)
	case raw.Kind == dom.KindStreaming && raw.Show != nil:
		return n.fromShow(*raw.Show, region)
	default:
		return nil
	}
}

func (n *Normalizer) fromOTT(t ottdetails.Title, region catalog.Region) []dom.CanonicalRow {
	if !n.admitLanguages(t.Language) {
		return nil
	}
	var platforms []catalog.Platform
	for _, offer := range ResolveRegion(t.StreamingAvailability.Country, region) {
		if pl, ok := n.policy.Canonical(offer.Platform); ok && !slices.Contains(platforms, pl) {
			platforms = append(platforms, pl)
		}
	}
	if len(platforms) == 0 {
		return nil
	}

	base := dom.CanonicalRow{
		Title:     strings.TrimSpace(t.Title),
		Year:      yearOf(string(t.Released)),
		Type:      Classify(t.Type, t.AllGenres()),
		Languages: DisplayLanguages(t.Language),
		Region:    region,
		DateAdded: n.runDate,
		TitleID:   strings.TrimSpace(t.IMDbID),
	}
	return fanOut(base, platforms, nil)
}

func (n *Normalizer) fromShow(s streaming.Show, region catalog.Region) []dom.CanonicalRow {
	options := ResolveRegion(s.StreamingOptions, region)

	var (
		langs     []string
		platforms []catalog.Platform
		since     = map[catalog.Platform]int64{}
	)
	for _, o := range options {
		for _, a := range o.Audios {
			langs = append(langs, a.Language)
		}
		pl, ok := n.policy.Canonical(o.Service.Name)
		if !ok {
			pl, ok = n.policy.Canonical(o.Service.ID)
		}
		if !ok {
			continue
		}
		if !slices.Contains(platforms, pl) {
			platforms = append(platforms, pl)
		}
		if o.AvailableSince > 0 && (since[pl] == 0 || o.AvailableSince < since[pl]) {
			since[pl] = o.AvailableSince
		}
	}
	if len(platforms) == 0 || !n.admitLanguages(langs) {
		return nil
	}

	genres := make([]string, 0, len(s.Genres)*2)
	for _, g := range s.Genres {
		genres = append(genres, g.Name, g.ID)
	}

	base := dom.CanonicalRow{
		Title:     strings.TrimSpace(s.Title),
		Year:      s.Year(),
		Type:      Classify(s.ShowType, genres),
		Languages: DisplayLanguages(langs),
		Region:    region,
		DateAdded: n.runDate,
		TitleID:   strings.TrimSpace(s.IMDbID),
	}
	if s.AddedOn > 0 {
		base.DateAdded = Day(time.Unix(s.AddedOn, 0))
	}
	return fanOut(base, platforms, since)
}

func (n *Normalizer) admitLanguages(langs []string) bool {
	for _, l := range langs {
		if n.policy.IsIndianLanguage(l) {
			return true
		}
	}
	return false
}

func fanOut(base dom.CanonicalRow, platforms []catalog.Platform, since map[catalog.Platform]int64) []dom.CanonicalRow {
	out := make([]dom.CanonicalRow, 0, len(platforms))
	for _, pl := range platforms {
		row := base
		row.Platform = pl
		row.Languages = slices.Clone(base.Languages)
		if ts := since[pl]; ts > 0 {
			row.DateAdded = Day(time.Unix(ts, 0))
		}
		out = append(out, row)
	}
	return out
}

// ResolveRegion picks the availability entries for region
// It tries the exact key, then the lower-case key, then the lexicographically smallest key,
// so a title listed only under another country (or with an empty list) is still attributed to region
func ResolveRegion[T any](byCountry map[string][]T, region catalog.Region) []T {
	if len(byCountry) == 0 {
		return nil
	}
	if xs := byCountry[string(region)]; len(xs) > 0 {
		return xs
	}
	if xs := byCountry[strings.ToLower(string(region))]; len(xs) > 0 {
		return xs
	}
	keys := make([]string, 0, len(byCountry))
	for k := range byCountry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return byCountry[keys[0]]
}

// Classify maps an upstream type and genre list onto a content type
// A documentary genre wins over any series hint
func Classify(rawType string, genres []string) catalog.ContentType {
	for _, g := range genres {
		if strings.Contains(strings.ToLower(g), "documentary") {
			return catalog.Documentary
		}
	}
	t := strings.ToLower(strings.TrimSpace(rawType))
	if strings.Contains(t, "series") || strings.Contains(t, "tv") || t == "show" {
		return catalog.WebSeries
	}
	return catalog.Movie
}

// DisplayLanguages returns the distinct display names of langs, sorted
func DisplayLanguages(langs []string) []string {
	seen := make(map[string]struct{}, len(langs))
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		name := catalog.DisplayLanguage(l)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Day truncates t to its UTC calendar date
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// yearOf extracts a leading four digit year from "2023" or "2023-05-01"
func yearOf(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return s
	}
	for _, r := range s[:4] {
		if r < '0' || r > '9' {
			return s
		}
	}
	return s[:4]
}
