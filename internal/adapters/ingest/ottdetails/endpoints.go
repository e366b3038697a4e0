// Package ottdetails talks to the offset paged OTT Details catalog API
package ottdetails

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	perr "ottscout/internal/platform/errors"
)

// DefaultHost is the RapidAPI host of the OTT Details API
const DefaultHost = "ott-details.p.rapidapi.com"

// Requester is the slice of upstream.Client the endpoints need
type Requester interface {
	Request(ctx context.Context, method, path string, query url.Values, headers http.Header) ([]byte, error)
}

// Client wraps the two endpoints the pipeline uses
type Client struct {
	req    Requester
	header http.Header
}

// New returns a Client; apiKey and host are sent as RapidAPI headers on every call
func New(req Requester, apiKey, host string) *Client {
	if host == "" {
		host = DefaultHost
	}
	h := http.Header{}
	h.Set("X-RapidAPI-Key", apiKey)
	h.Set("X-RapidAPI-Host", host)
	return &Client{req: req, header: h}
}

// NewArrivals fetches one page of /getnew for region; pages start at 1
func (c *Client) NewArrivals(ctx context.Context, region string, page int) ([]Title, error) {
	q := url.Values{}
	q.Set("region", region)
	q.Set("page", strconv.Itoa(page))
	body, err := c.req.Request(ctx, http.MethodGet, "/getnew", q, c.header)
	if err != nil {
		return nil, err
	}
	var out NewPage
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "decode getnew page %d for %s", page, region)
	}
	return out.Results, nil
}

// TitleDetails fetches /getTitleDetails for an IMDb id
func (c *Client) TitleDetails(ctx context.Context, imdbID string) (Details, error) {
	q := url.Values{}
	q.Set("imdbid", imdbID)
	body, err := c.req.Request(ctx, http.MethodGet, "/getTitleDetails", q, c.header)
	if err != nil {
		return Details{}, err
	}
	var d Details
	if err := json.Unmarshal(body, &d); err != nil {
		return Details{}, perr.Wrapf(err, perr.ErrorCodeJSON, "decode title details for %s", imdbID)
	}
	return d, nil
}

// Rating returns the IMDb rating from /getTitleDetails
// A missing or "N/A" rating is (nil, nil); an unparsable one is an error
func (c *Client) Rating(ctx context.Context, imdbID string) (*float64, error) {
	d, err := c.TitleDetails(ctx, imdbID)
	if err != nil {
		return nil, err
	}
	return ParseRating(d)
}

// ParseRating reads the rating from either field casing
func ParseRating(d Details) (*float64, error) {
	for _, raw := range []FlexString{d.RatingLow, d.RatingCaps} {
		s := strings.TrimSpace(string(raw))
		if s == "" || strings.EqualFold(s, "N/A") {
			continue
		}
		v, ok := raw.Float()
		if !ok {
			return nil, perr.Newf(perr.ErrorCodeJSON, "unparsable rating %q", s)
		}
		return &v, nil
	}
	return nil, nil
}
