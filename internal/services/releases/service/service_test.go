package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ottscout/internal/adapters/ingest/streaming"
	"ottscout/internal/adapters/ingest/upstream"
	"ottscout/internal/core/catalog"
	kit "ottscout/internal/platform/testkit"
	dom "ottscout/internal/services/releases/domain"
)

type fakeSource struct {
	byRegion map[catalog.Region][]dom.RawRecord
	errs     map[catalog.Region]error
	queries  []dom.Query
}

func (f *fakeSource) Name() string { return "fake" }
func (f *fakeSource) FetchAll(_ context.Context, q dom.Query) ([]dom.RawRecord, error) {
	f.queries = append(f.queries, q)
	if err := f.errs[q.Region]; err != nil {
		return nil, err
	}
	return f.byRegion[q.Region], nil
}

type fakeRatings struct {
	vals map[string]float64
	errs map[string]error
}

func (f fakeRatings) Rating(_ context.Context, id string) (*float64, error) {
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	if v, ok := f.vals[id]; ok {
		return &v, nil
	}
	return nil, nil
}

type fakeSink struct {
	saved []dom.Report
	err   error
}

func (f *fakeSink) Name() string { return "fake" }
func (f *fakeSink) Save(_ context.Context, rep dom.Report) error {
	f.saved = append(f.saved, rep)
	return f.err
}

func unix(m time.Month, d int) int64 { return time.Date(2024, m, d, 12, 0, 0, 0, time.UTC).Unix() }

func show(id, title, country, service string, added int64, audio ...string) dom.RawRecord {
	tracks := make([]streaming.Track, len(audio))
	for i, a := range audio {
		tracks[i] = streaming.Track{Language: a}
	}
	return dom.FromShow(streaming.Show{
		IMDbID:   id,
		Title:    title,
		ShowType: "movie",
		StreamingOptions: map[string][]streaming.StreamingOption{
			country: {{Service: streaming.Service{ID: service}, Audios: tracks, AvailableSince: added}},
		},
	})
}

var clock = func() time.Time { return time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC) }

func TestRun_EndToEndOrderingDedupeAndEnrichment(t *testing.T) {
	src := &fakeSource{byRegion: map[catalog.Region][]dom.RawRecord{
		"US": {
			show("tt2", "Zee Title", "us", "zee5", unix(1, 2), "hin"),
			show("tt1", "Netflix Title", "us", "netflix", unix(1, 5), "tam"),
			show("tt1", "Netflix Title", "us", "netflix", unix(1, 5), "tam"),
			show("tt9", "English Only", "us", "netflix", unix(1, 6), "eng"),
		},
		"IN": {
			show("tt3", "India Title", "in", "netflix", unix(1, 1), "tel"),
		},
	}}
	ratings := fakeRatings{
		vals: map[string]float64{"tt1": 7.0, "tt3": 6.5},
		errs: map[string]error{"tt2": errors.New("malformed payload")},
	}
	sink := &fakeSink{}
	var sl kit.Sleeps

	svc := New(src, ratings, catalog.Default(), []dom.SinkPort{sink}, Config{
		Regions:     []catalog.Region{"US", "IN"},
		Catalogs:    []string{"netflix"},
		Lookback:    7 * 24 * time.Hour,
		RegionDelay: 3 * time.Second,
		DetailDelay: time.Second,
		Sleep:       sl.Sleep,
		Now:         clock,
	})

	rep, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"Netflix Title", "Zee Title", "India Title"}
	if len(rep.Rows) != len(want) {
		t.Fatalf("rows = %+v", rep.Rows)
	}
	for i, w := range want {
		if rep.Rows[i].Title != w {
			t.Fatalf("pos %d = %s, want %s", i, rep.Rows[i].Title, w)
		}
	}
	if rep.Stats.Duplicates != 1 || rep.Stats.Admitted != 4 || rep.Stats.UniqueIDs != 3 {
		t.Fatalf("stats = %+v", rep.Stats)
	}
	if rep.Stats.Rated != 2 || rep.Rows[1].Rating != nil || *rep.Rows[0].Rating != 7.0 {
		t.Fatalf("ratings: stats=%+v rows=%+v", rep.Stats, rep.Rows)
	}
	if rep.Stats.RawByRegion["US"] != 4 || rep.Stats.RawByRegion["IN"] != 1 {
		t.Fatalf("raw by region = %v", rep.Stats.RawByRegion)
	}
	// one region gap plus two gaps between three lookups
	if got := sl.All(); len(got) != 3 || got[0] != 3*time.Second || got[1] != time.Second {
		t.Fatalf("sleeps = %v", got)
	}
	if q := src.queries[0]; !q.Since.Equal(clock().Add(-7*24*time.Hour)) || q.Catalogs[0] != "netflix" {
		t.Fatalf("query = %+v", q)
	}
	if len(sink.saved) != 1 || sink.saved[0].RunID != rep.RunID {
		t.Fatalf("sink saw %d reports", len(sink.saved))
	}
}

func TestRun_UpstreamErrorSkipsRegion(t *testing.T) {
	src := &fakeSource{
		byRegion: map[catalog.Region][]dom.RawRecord{"IN": {show("tt3", "India Title", "in", "netflix", unix(1, 1), "hin")}},
		errs:     map[catalog.Region]error{"US": &upstream.UpstreamError{Status: 403, Path: "/changes"}},
	}
	svc := New(src, nil, catalog.Default(), nil, Config{Sleep: func(time.Duration) {}, Now: clock})
	rep, err := svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Rows) != 1 || len(rep.Stats.SkippedRegions) != 1 || rep.Stats.SkippedRegions[0] != "US" {
		t.Fatalf("rows=%d stats=%+v", len(rep.Rows), rep.Stats)
	}
	if !rep.Stats.EnrichSkipped || rep.Rows[0].Rating != nil {
		t.Fatalf("enrichment must be skipped without a lookup: %+v", rep.Stats)
	}
}

func TestRun_EmptyRunStillReports(t *testing.T) {
	sink := &fakeSink{err: errors.New("db down")}
	svc := New(&fakeSource{}, nil, catalog.Default(), []dom.SinkPort{sink}, Config{Sleep: func(time.Duration) {}, Now: clock})
	rep, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("sink failure must not fail the run: %v", err)
	}
	if len(rep.Rows) != 0 || len(sink.saved) != 1 || rep.RunID.String() == "" {
		t.Fatalf("rep=%+v saved=%d", rep, len(sink.saved))
	}
}

func TestRun_RateLimitedEnrichmentIsPartial(t *testing.T) {
	src := &fakeSource{byRegion: map[catalog.Region][]dom.RawRecord{
		"US": {
			show("a", "A", "us", "netflix", unix(1, 1), "hin"),
			show("b", "B", "us", "netflix", unix(1, 2), "hin"),
		},
	}}
	ratings := fakeRatings{vals: map[string]float64{"a": 5, "b": 6}, errs: map[string]error{"b": &upstream.RateLimitExhaustedError{}}}
	svc := New(src, ratings, catalog.Default(), nil, Config{Regions: []catalog.Region{"US"}, Sleep: func(time.Duration) {}, Now: clock})
	rep, err := svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Stats.Rated != 1 || !rep.Stats.EnrichPartial {
		t.Fatalf("stats = %+v", rep.Stats)
	}
}

type cancellingSource struct {
	fakeSource
	cancel context.CancelFunc
}

func (c *cancellingSource) FetchAll(ctx context.Context, q dom.Query) ([]dom.RawRecord, error) {
	recs, _ := c.fakeSource.FetchAll(ctx, q)
	c.cancel()
	return recs, ctx.Err()
}

func TestRun_CancelledReturnsPartialWithoutPersisting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &cancellingSource{cancel: cancel, fakeSource: fakeSource{byRegion: map[catalog.Region][]dom.RawRecord{
		"US": {show("a", "A", "us", "netflix", unix(1, 1), "hin")},
	}}}
	sink := &fakeSink{}
	svc := New(src, fakeRatings{}, catalog.Default(), []dom.SinkPort{sink}, Config{Sleep: func(time.Duration) {}, Now: clock})
	rep, err := svc.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if len(rep.Rows) != 1 || len(src.queries) != 1 || len(sink.saved) != 0 {
		t.Fatalf("rows=%d queries=%d saved=%d", len(rep.Rows), len(src.queries), len(sink.saved))
	}
}
