// Package ratings looks up title ratings from an OMDb compatible API
package ratings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	perr "ottscout/internal/platform/errors"
)

// DefaultBaseURL is the public OMDb endpoint
const DefaultBaseURL = "https://www.omdbapi.com"

// Requester is the slice of upstream.Client the lookup needs
type Requester interface {
	Request(ctx context.Context, method, path string, query url.Values, headers http.Header) ([]byte, error)
}

// Response is the subset of the OMDb title payload we read
type Response struct {
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	IMDbID     string `json:"imdbID"`
	IMDbRating string `json:"imdbRating"`
	Response   string `json:"Response"`
	Error      string `json:"Error"`
}

// OMDb resolves ratings by IMDb id; the api key travels as the apikey query param
type OMDb struct {
	req    Requester
	apiKey string
}

// NewOMDb returns an OMDb lookup
func NewOMDb(req Requester, apiKey string) *OMDb {
	return &OMDb{req: req, apiKey: apiKey}
}

// Rating returns the IMDb rating for titleID
// "N/A" is (nil, nil); Response "False" is a NotFound error
func (o *OMDb) Rating(ctx context.Context, titleID string) (*float64, error) {
	q := url.Values{}
	q.Set("i", titleID)
	if o.apiKey != "" {
		q.Set("apikey", o.apiKey)
	}
	body, err := o.req.Request(ctx, http.MethodGet, "/", q, nil)
	if err != nil {
		return nil, err
	}
	var r Response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "decode omdb payload for %s", titleID)
	}
	if strings.EqualFold(r.Response, "false") {
		return nil, perr.NotFoundf("omdb %s: %s", titleID, r.Error)
	}
	s := strings.TrimSpace(r.IMDbRating)
	if s == "" || strings.EqualFold(s, "N/A") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "unparsable rating %q for %s", s, titleID)
	}
	return &v, nil
}
