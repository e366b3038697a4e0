// Package catalog holds the canonical vocabulary of the pipeline: regions,
// platforms, content types and the admission and ordering policy built on them
package catalog

import (
	"slices"
	"strings"

	perr "ottscout/internal/platform/errors"
)

// Region is an upper-case ISO 3166 alpha-2 country code
type Region string

// ParseRegion trims and upper-cases s
func ParseRegion(s string) Region { return Region(strings.ToUpper(strings.TrimSpace(s))) }

// String implements fmt.Stringer
func (r Region) String() string { return string(r) }

// Platform is a canonical streaming service name
type Platform string

// Canonical platform names
const (
	Netflix    Platform = "Netflix"
	PrimeVideo Platform = "Prime Video"
	Hulu       Platform = "Hulu"
	Hotstar    Platform = "Hotstar"
	Zee5       Platform = "Zee5"
)

// ContentType is the user facing kind of a title
type ContentType string

// Content types
const (
	Movie       ContentType = "movie"
	WebSeries   ContentType = "web-series"
	Documentary ContentType = "documentary"
)

// Unranked is the rank of regions and platforms missing from the ordering tables
const Unranked = 99

// Policy is the immutable admission and ordering configuration handed to the pipeline
type Policy struct {
	// Targets are the canonical platforms a row may be attributed to
	Targets []Platform
	// Aliases maps lower-case upstream service names and ids onto canonical platforms
	Aliases map[string]Platform
	// IndianLanguages holds lower-case language names and ISO 639 codes
	IndianLanguages []string
	// RegionOrder and PlatformOrder give the presentation rank (index) of each value
	RegionOrder   []Region
	PlatformOrder []Platform

	langs map[string]struct{}
}

// Default returns the built in policy
func Default() Policy {
	p := Policy{
		Targets: []Platform{Netflix, PrimeVideo, Hulu, Hotstar, Zee5},
		Aliases: map[string]Platform{
			"netflix":            Netflix,
			"prime video":        PrimeVideo,
			"amazon prime video": PrimeVideo,
			"prime":              PrimeVideo,
			"hulu":               Hulu,
			"hotstar":            Hotstar,
			"disney+ hotstar":    Hotstar,
			"jiocinema":          Hotstar,
			"zee5":               Zee5,
			"zee 5":              Zee5,
		},
		IndianLanguages: []string{
			"hindi", "tamil", "telugu", "malayalam", "kannada", "bengali",
			"marathi", "gujarati", "punjabi", "odia", "assamese", "urdu",
			"sanskrit", "nepali", "sindhi", "konkani", "manipuri", "dogri",
			"santali", "maithili", "kashmiri", "bhojpuri",
			"hi", "ta", "te", "ml", "kn", "bn", "mr", "gu", "pa", "or", "as", "ur",
			"sa", "ne", "sd", "kok", "mni", "doi", "sat", "mai", "ks", "bho",
		},
		RegionOrder:   []Region{"US", "IN"},
		PlatformOrder: []Platform{Netflix, PrimeVideo, Hulu, Hotstar, Zee5},
	}
	return p.index()
}

// index builds the lookup set; Policy values are copied around so the set is rebuilt on every change
func (p Policy) index() Policy {
	p.langs = make(map[string]struct{}, len(p.IndianLanguages))
	for _, l := range p.IndianLanguages {
		if k := strings.ToLower(strings.TrimSpace(l)); k != "" {
			p.langs[k] = struct{}{}
		}
	}
	return p
}

// Validate reports configuration mistakes that would make every run empty
func (p Policy) Validate() error {
	if len(p.Targets) == 0 {
		return perr.InvalidArgf("catalog policy has no target platforms")
	}
	if len(p.IndianLanguages) == 0 {
		return perr.InvalidArgf("catalog policy has no languages")
	}
	for name, pl := range p.Aliases {
		if !slices.Contains(p.Targets, pl) {
			return perr.WithField(perr.InvalidArgf("alias %q points at %q which is not a target", name, pl), "aliases")
		}
	}
	return nil
}

// Canonical resolves an upstream service name or id onto a target platform
// Matching is case-insensitive and goes through the alias table first
func (p Policy) Canonical(name string) (Platform, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", false
	}
	if pl, ok := p.Aliases[key]; ok {
		return pl, slices.Contains(p.Targets, pl)
	}
	for _, t := range p.Targets {
		if strings.EqualFold(string(t), key) {
			return t, true
		}
	}
	return Platform(strings.TrimSpace(name)), false
}

// IsIndianLanguage reports whether s names or codes an Indian language
func (p Policy) IsIndianLanguage(s string) bool {
	if p.langs == nil {
		p = p.index()
	}
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return false
	}
	if _, ok := p.langs[key]; ok {
		return true
	}
	if base, ok := baseCode(key); ok {
		_, ok = p.langs[base]
		return ok
	}
	return false
}

// RegionRank returns the presentation rank of r, Unranked when unknown
func (p Policy) RegionRank(r Region) int {
	if i := slices.Index(p.RegionOrder, r); i >= 0 {
		return i
	}
	return Unranked
}

// PlatformRank returns the presentation rank of pl, Unranked when unknown
func (p Policy) PlatformRank(pl Platform) int {
	if i := slices.Index(p.PlatformOrder, pl); i >= 0 {
		return i
	}
	return Unranked
}
