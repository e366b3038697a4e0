package module

import (
	"strings"
	"time"

	"ottscout/internal/adapters/ingest/upstream"
	"ottscout/internal/core/catalog"
	"ottscout/internal/platform/config"
	perr "ottscout/internal/platform/errors"
	"ottscout/internal/platform/net/http/bind"
	"ottscout/internal/services/releases/paginate"
)

// Sources and rating providers the module can wire
const (
	SourceOTTDetails = "ottdetails"
	SourceStreaming  = "streaming"

	RatingsOMDb       = "omdb"
	RatingsOTTDetails = "ottdetails"
	RatingsNone       = "none"
)

// Options holds the releases pipeline settings
type Options struct {
	Source      string `validate:"oneof=ottdetails streaming"`
	CatalogKey  string `validate:"required"`
	CatalogHost string
	CatalogURL  string `validate:"omitempty,url"`

	RatingsProvider string `validate:"oneof=omdb ottdetails none"`
	RatingsKey      string
	RatingsURL      string `validate:"omitempty,url"`

	Regions  []string `validate:"min=1,dive,len=2,alpha"`
	Catalogs []string

	Lookback    time.Duration `validate:"gte=0"`
	RegionDelay time.Duration `validate:"gte=0"`
	PageDelay   time.Duration `validate:"gte=0"`
	DetailDelay time.Duration `validate:"gte=0"`
	MaxPages    int           `validate:"min=1,max=100"`

	PolicyFile string

	Timeout     time.Duration `validate:"gt=0"`
	MaxRetries  int           `validate:"min=1,max=20"`
	BackoffBase float64       `validate:"gt=1"`
	BackoffCap  time.Duration `validate:"gt=0"`

	SaveAttempts     int `validate:"min=1,max=10"`
	StatementTimeout time.Duration
}

// FromConfig reads OTTSCOUT_ settings
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("OTTSCOUT_")
	catalogKey, _ := c.MaySecret("CATALOG_API_KEY")
	ratingsKey, _ := c.MaySecret("RATINGS_API_KEY")
	return Options{
		Source:      strings.ToLower(c.MayString("SOURCE", SourceOTTDetails)),
		CatalogKey:  catalogKey,
		CatalogHost: c.MayString("CATALOG_HOST", ""),
		CatalogURL:  c.MayString("CATALOG_URL", ""),

		RatingsProvider: strings.ToLower(c.MayString("RATINGS_PROVIDER", RatingsOMDb)),
		RatingsKey:      ratingsKey,
		RatingsURL:      c.MayString("RATINGS_URL", ""),

		Regions:  c.MayCSV("REGIONS", []string{"US", "IN"}),
		Catalogs: c.MayCSV("CATALOGS", nil),

		Lookback:    c.MayDuration("LOOKBACK", 7*24*time.Hour),
		RegionDelay: c.MayDuration("REGION_DELAY", 500*time.Millisecond),
		PageDelay:   c.MayDuration("PAGE_DELAY", 500*time.Millisecond),
		DetailDelay: c.MayDuration("DETAIL_DELAY", 300*time.Millisecond),
		MaxPages:    c.MayInt("MAX_PAGES", paginate.DefaultMaxPages),

		PolicyFile: c.MayString("POLICY_FILE", ""),

		Timeout:     c.MayDuration("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:  c.MayInt("MAX_RETRIES", 5),
		BackoffBase: c.MayFloat64("BACKOFF_BASE", 2),
		BackoffCap:  c.MayDuration("BACKOFF_CAP", 60*time.Second),

		SaveAttempts:     c.MayInt("SAVE_ATTEMPTS", 3),
		StatementTimeout: c.MayDuration("PG_STATEMENT_TIMEOUT", 0),
	}
}

// Validate fails with MissingCredential when the catalog key is absent
// and with a Validation error naming the first bad field otherwise
func (o Options) Validate() error {
	if strings.TrimSpace(o.CatalogKey) == "" {
		return perr.MissingCredentialf("OTTSCOUT_CATALOG_API_KEY is not set")
	}
	return bind.Struct(o)
}

// Policy loads the catalog policy, the built in one when no file is set
func (o Options) Policy() (catalog.Policy, error) { return catalog.Load(o.PolicyFile) }

// regions parses the configured region codes
func (o Options) regions() []catalog.Region {
	out := make([]catalog.Region, 0, len(o.Regions))
	for _, r := range o.Regions {
		out = append(out, catalog.ParseRegion(r))
	}
	return out
}

// upstreamOptions is the retry policy shared by both upstream clients
func (o Options) upstreamOptions(name, baseURL string) upstream.Options {
	return upstream.Options{
		BaseURL:     baseURL,
		Name:        name,
		Timeout:     o.Timeout,
		MaxRetries:  o.MaxRetries,
		BackoffBase: o.BackoffBase,
		BackoffCap:  o.BackoffCap,
	}
}
