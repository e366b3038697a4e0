// Package streaming talks to the cursor paged Streaming Availability changes feed
package streaming

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	perr "ottscout/internal/platform/errors"
)

// DefaultHost is the RapidAPI host of the Streaming Availability API
const DefaultHost = "streaming-availability.p.rapidapi.com"

// Requester is the slice of upstream.Client the endpoints need
type Requester interface {
	Request(ctx context.Context, method, path string, query url.Values, headers http.Header) ([]byte, error)
}

// Client wraps the /changes endpoint
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

// ChangesQuery selects one page of new shows
type ChangesQuery struct {
	Country  string
	Catalogs []string
	Since    time.Time
	Cursor   string
}

// Page is a decoded /changes page with the referenced shows resolved
type Page struct {
	Shows      []Show
	HasMore    bool
	NextCursor string
}

// Changes fetches one page of the feed
// Shows are returned in change order, each once, with AddedOn taken from the change
func (c *Client) Changes(ctx context.Context, q ChangesQuery) (Page, error) {
	v := url.Values{}
	v.Set("country", strings.ToLower(q.Country))
	v.Set("change_type", "new")
	v.Set("item_type", "show")
	if len(q.Catalogs) > 0 {
		v.Set("catalogs", strings.Join(q.Catalogs, ","))
	}
	if !q.Since.IsZero() {
		v.Set("from", strconv.FormatInt(q.Since.Unix(), 10))
	}
	if q.Cursor != "" {
		v.Set("cursor", q.Cursor)
	}

	body, err := c.req.Request(ctx, http.MethodGet, "/changes", v, c.header)
	if err != nil {
		return Page{}, err
	}
	var raw ChangesPage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Page{}, perr.Wrapf(err, perr.ErrorCodeJSON, "decode changes page for %s", q.Country)
	}

	out := Page{HasMore: raw.HasMore(), NextCursor: raw.NextCursor()}
	seen := make(map[string]struct{}, len(raw.Changes))
	for _, ch := range raw.Changes {
		show, ok := raw.Shows[ch.ShowID]
		if !ok {
			continue
		}
		if _, dup := seen[ch.ShowID]; dup {
			continue
		}
		seen[ch.ShowID] = struct{}{}
		show.AddedOn = ch.Timestamp
		if show.ShowType == "" {
			show.ShowType = ch.ShowType
		}
		out.Shows = append(out.Shows, show)
	}
	return out, nil
}
