package enrich

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"ottscout/internal/adapters/ingest/upstream"
	kit "ottscout/internal/platform/testkit"
	dom "ottscout/internal/services/releases/domain"
)

type fakeLookup struct {
	calls   []string
	ratings map[string]float64
	errs    map[string]error
}

func (f *fakeLookup) Rating(_ context.Context, id string) (*float64, error) {
	f.calls = append(f.calls, id)
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	if v, ok := f.ratings[id]; ok {
		return &v, nil
	}
	return nil, nil
}

func TestIDs_DistinctSortedNonEmpty(t *testing.T) {
	rows := []dom.CanonicalRow{{TitleID: "tt3"}, {TitleID: ""}, {TitleID: "tt1"}, {TitleID: "tt3"}}
	if got := IDs(rows); !reflect.DeepEqual(got, []string{"tt1", "tt3"}) {
		t.Fatalf("IDs = %v", got)
	}
}

func TestEnrich_OneFailureOfThree(t *testing.T) {
	f := &fakeLookup{
		ratings: map[string]float64{"tt1": 7.1, "tt3": 8.4},
		errs:    map[string]error{"tt2": errors.New("connection reset")},
	}
	var sl kit.Sleeps
	c := New(f, Config{DetailDelay: 500 * time.Millisecond, Sleep: sl.Sleep})

	got := c.Enrich(context.Background(), []string{"tt1", "tt2", "tt3"})
	if len(got) != 2 || *got["tt1"] != 7.1 || *got["tt3"] != 8.4 {
		t.Fatalf("ratings = %v", got)
	}
	if _, ok := got["tt2"]; ok {
		t.Fatalf("failed id must stay unrated")
	}
	if sl.Count() != 2 {
		t.Fatalf("sleeps = %v, want 2 (between calls only)", sl.All())
	}
	if c.Partial() {
		t.Fatalf("a single failure is not partial")
	}
}

func TestEnrich_CachesAcrossCalls(t *testing.T) {
	f := &fakeLookup{ratings: map[string]float64{"tt1": 6}, errs: map[string]error{"tt2": errors.New("boom")}}
	c := New(f, Config{Sleep: func(time.Duration) {}})
	c.Enrich(context.Background(), []string{"tt1", "tt2"})
	got := c.Enrich(context.Background(), []string{"tt1", "tt2", ""})
	if len(f.calls) != 2 {
		t.Fatalf("calls = %v, want one per id", f.calls)
	}
	if len(got) != 1 || *got["tt1"] != 6 {
		t.Fatalf("cached ratings = %v", got)
	}
}

func TestEnrich_RateLimitStops(t *testing.T) {
	f := &fakeLookup{
		ratings: map[string]float64{"a": 5, "c": 9},
		errs:    map[string]error{"b": &upstream.RateLimitExhaustedError{Path: "/", Attempts: 5}},
	}
	c := New(f, Config{Sleep: func(time.Duration) {}})
	got := c.Enrich(context.Background(), []string{"a", "b", "c"})
	if len(got) != 1 || got["a"] == nil {
		t.Fatalf("ratings = %v", got)
	}
	if !reflect.DeepEqual(f.calls, []string{"a", "b"}) || !c.Partial() {
		t.Fatalf("calls=%v partial=%v", f.calls, c.Partial())
	}
}

func TestEnrich_NilLookupSkips(t *testing.T) {
	c := New(nil, Config{Sleep: func(time.Duration) { t.Fatal("unexpected sleep") }})
	if c.Enabled() {
		t.Fatalf("nil lookup reports enabled")
	}
	if got := c.Enrich(context.Background(), []string{"tt1"}); len(got) != 0 {
		t.Fatalf("got %v", got)
	}
}

func TestEnrich_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeLookup{}
	c := New(f, Config{Sleep: func(time.Duration) {}})
	c.Enrich(ctx, []string{"tt1"})
	if len(f.calls) != 0 || !c.Partial() {
		t.Fatalf("calls=%v partial=%v", f.calls, c.Partial())
	}
}

func TestApply(t *testing.T) {
	v := 7.5
	rows := []dom.CanonicalRow{{TitleID: "tt1"}, {TitleID: "tt2"}, {TitleID: "tt1", Platform: "Hulu"}, {}}
	n := Apply(rows, map[string]*float64{"tt1": &v, "": &v})
	if n != 2 || rows[0].Rating == nil || *rows[2].Rating != 7.5 || rows[1].Rating != nil || rows[3].Rating != nil {
		t.Fatalf("n=%d rows=%+v", n, rows)
	}
	*rows[0].Rating = 1
	if *rows[2].Rating != 7.5 || v != 7.5 {
		t.Fatalf("rows must not share rating pointers")
	}
}
