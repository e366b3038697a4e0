package streaming

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	perr "ottscout/internal/platform/errors"
)

type fakeReq struct {
	query url.Values
	body  string
}

func (f *fakeReq) Request(_ context.Context, _ string, _ string, q url.Values, _ http.Header) ([]byte, error) {
	f.query = q
	return []byte(f.body), nil
}

const samplePage = `{
  "changes": [
    {"changeType": "new", "itemType": "show", "showId": "s1", "showType": "movie", "service": {"id": "netflix"}, "timestamp": 1704412800},
    {"changeType": "new", "itemType": "show", "showId": "s1", "showType": "movie", "service": {"id": "prime"}, "timestamp": 1704412900},
    {"changeType": "new", "itemType": "show", "showId": "ghost", "timestamp": 1},
    {"changeType": "new", "itemType": "show", "showId": "s2", "showType": "series", "service": {"id": "hotstar"}, "timestamp": 1704326400}
  ],
  "shows": {
    "s1": {
      "id": "s1", "imdbId": "tt100", "title": "Leo", "showType": "movie", "releaseYear": 2023,
      "genres": [{"id": "action", "name": "Action"}],
      "streamingOptions": {"us": [{"service": {"id": "netflix", "name": "Netflix"}, "type": "subscription",
        "audios": [{"language": "tam"}, {"language": "hin"}], "availableSince": 1704412800}]}
    },
    "s2": {"id": "s2", "imdbId": "tt200", "title": "Kota", "firstAirYear": 2019, "genres": ["Documentary"]}
  },
  "hasMore": true,
  "nextCursor": "abc:123"
}`

func TestChanges_ResolvesShowsOncePerPage(t *testing.T) {
	f := &fakeReq{body: samplePage}
	c := New(f, "k", "")
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	page, err := c.Changes(context.Background(), ChangesQuery{Country: "US", Catalogs: []string{"netflix", "prime.subscription"}, Since: since, Cursor: "prev"})
	if err != nil {
		t.Fatalf("Changes: %v", err)
	}
	q := f.query
	if q.Get("country") != "us" || q.Get("catalogs") != "netflix,prime.subscription" || q.Get("from") != "1704067200" ||
		q.Get("cursor") != "prev" || q.Get("change_type") != "new" || q.Get("item_type") != "show" {
		t.Fatalf("query = %v", q)
	}
	if !page.HasMore || page.NextCursor != "abc:123" {
		t.Fatalf("paging = %v %q", page.HasMore, page.NextCursor)
	}
	if len(page.Shows) != 2 {
		t.Fatalf("shows = %d, want 2", len(page.Shows))
	}
	leo, kota := page.Shows[0], page.Shows[1]
	if leo.AddedOn != 1704412800 || leo.Year() != "2023" || len(leo.StreamingOptions["us"][0].Audios) != 2 {
		t.Fatalf("leo = %+v", leo)
	}
	if kota.ShowType != "series" || kota.Year() != "2019" || kota.Genres[0].Name != "Documentary" {
		t.Fatalf("kota = %+v", kota)
	}
}

func TestChanges_SnakeCasePaging(t *testing.T) {
	f := &fakeReq{body: `{"changes": [], "shows": {}, "has_more": false, "next_cursor": ""}`}
	page, err := New(f, "k", "").Changes(context.Background(), ChangesQuery{Country: "IN"})
	if err != nil {
		t.Fatal(err)
	}
	if page.HasMore || page.NextCursor != "" || len(page.Shows) != 0 {
		t.Fatalf("page = %+v", page)
	}
	if f.query.Has("from") || f.query.Has("cursor") || f.query.Has("catalogs") {
		t.Fatalf("optional params should be omitted: %v", f.query)
	}
}

func TestChanges_Malformed(t *testing.T) {
	_, err := New(&fakeReq{body: `{"changes": 3}`}, "k", "").Changes(context.Background(), ChangesQuery{Country: "IN"})
	if !perr.IsCode(err, perr.ErrorCodeJSON) {
		t.Fatalf("want JSON error, got %v", err)
	}
}
