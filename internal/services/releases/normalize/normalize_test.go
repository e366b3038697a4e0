package normalize

import (
	"reflect"
	"testing"
	"time"

	"ottscout/internal/adapters/ingest/ottdetails"
	"ottscout/internal/adapters/ingest/streaming"
	"ottscout/internal/core/catalog"
	dom "ottscout/internal/services/releases/domain"
)

var runDate = time.Date(2024, 3, 9, 17, 45, 0, 0, time.FixedZone("IST", 19800))

func newN() *Normalizer { return New(catalog.Default(), runDate) }

func ott(langs []string, avail map[string][]ottdetails.Offer) ottdetails.Title {
	return ottdetails.Title{
		IMDbID:                "tt1",
		Title:                 " Jailer ",
		Released:              "2023",
		Type:                  "movie",
		Language:              langs,
		StreamingAvailability: ottdetails.Availability{Country: avail},
	}
}

func TestNormalize_OTTAliasesCollapseToOneRow(t *testing.T) {
	raw := dom.FromOTT(ott([]string{"Tamil", "english", "tamil"}, map[string][]ottdetails.Offer{
		"US": {{Platform: "Prime Video"}, {Platform: "amazon prime video"}, {Platform: "Mubi"}},
	}))
	rows := newN().Normalize(raw, "US")
	if len(rows) != 1 {
		t.Fatalf("rows = %+v", rows)
	}
	r := rows[0]
	if r.Platform != catalog.PrimeVideo || r.Region != "US" || r.Title != "Jailer" || r.Year != "2023" || r.TitleID != "tt1" {
		t.Fatalf("row = %+v", r)
	}
	if !reflect.DeepEqual(r.Languages, []string{"English", "Tamil"}) {
		t.Fatalf("languages = %v", r.Languages)
	}
	if !r.DateAdded.Equal(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date added = %v", r.DateAdded)
	}
}

func TestNormalize_OnePerTargetPlatform(t *testing.T) {
	raw := dom.FromOTT(ott([]string{"Hindi"}, map[string][]ottdetails.Offer{
		"IN": {{Platform: "Netflix"}, {Platform: "Disney+ Hotstar"}, {Platform: "JioCinema"}},
	}))
	rows := newN().Normalize(raw, "IN")
	if len(rows) != 2 || rows[0].Platform != catalog.Netflix || rows[1].Platform != catalog.Hotstar {
		t.Fatalf("rows = %+v", rows)
	}
	rows[0].Languages[0] = "mutated"
	if rows[1].Languages[0] != "Hindi" {
		t.Fatalf("rows share a languages slice")
	}
}

func TestNormalize_Rejections(t *testing.T) {
	n := newN()
	cases := map[string]dom.RawRecord{
		"no indian language": dom.FromOTT(ott([]string{"English", "French"}, map[string][]ottdetails.Offer{"US": {{Platform: "Netflix"}}})),
		"no target platform": dom.FromOTT(ott([]string{"Hindi"}, map[string][]ottdetails.Offer{"US": {{Platform: "Mubi"}}})),
		"no availability":    dom.FromOTT(ott([]string{"Hindi"}, nil)),
		"empty record":       {},
	}
	for name, raw := range cases {
		if rows := n.Normalize(raw, "US"); len(rows) != 0 {
			t.Errorf("%s: rows = %+v", name, rows)
		}
	}
}

func TestResolveRegion(t *testing.T) {
	m := map[string][]string{"in": {"lower"}, "GB": {"gb"}, "AU": {"au"}}
	cases := []struct {
		region catalog.Region
		want   string
	}{
		{"IN", "lower"},
		{"GB", "gb"},
		{"US", "au"}, // smallest key when the region is absent
	}
	for _, tc := range cases {
		if got := ResolveRegion(m, tc.region); len(got) != 1 || got[0] != tc.want {
			t.Errorf("ResolveRegion(%s) = %v, want %s", tc.region, got, tc.want)
		}
	}
	if got := ResolveRegion(map[string][]string{}, "US"); got != nil {
		t.Fatalf("empty map = %v", got)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		typ    string
		genres []string
		want   catalog.ContentType
	}{
		{"movie", nil, catalog.Movie},
		{"", []string{"Drama"}, catalog.Movie},
		{"series", nil, catalog.WebSeries},
		{"tvSeries", nil, catalog.WebSeries},
		{"show", nil, catalog.WebSeries},
		{"series", []string{"Crime", "Documentary"}, catalog.Documentary},
		{"movie", []string{"documentary"}, catalog.Documentary},
	}
	for _, tc := range cases {
		if got := Classify(tc.typ, tc.genres); got != tc.want {
			t.Errorf("Classify(%q, %v) = %s, want %s", tc.typ, tc.genres, got, tc.want)
		}
	}
}

func TestDisplayLanguages(t *testing.T) {
	got := DisplayLanguages([]string{"tam", "Tamil", "hi", "", "telugu"})
	want := []string{"Hindi", "Tamil", "Telugu"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestYearOf(t *testing.T) {
	for in, want := range map[string]string{"2023": "2023", "2021-07-01": "2021", "": "", "TBA": "TBA", " 1999 ": "1999"} {
		if got := yearOf(in); got != want {
			t.Errorf("yearOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalize_ShowDates(t *testing.T) {
	jan5 := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC).Unix()
	jan2 := time.Date(2024, 1, 2, 23, 0, 0, 0, time.UTC).Unix()
	show := streaming.Show{
		IMDbID:      "tt9",
		Title:       "Kota Factory",
		ShowType:    "series",
		ReleaseYear: 2019,
		Genres:      []streaming.Genre{{ID: "comedy", Name: "Comedy"}},
		AddedOn:     jan5,
		StreamingOptions: map[string][]streaming.StreamingOption{
			"us": {
				{Service: streaming.Service{ID: "netflix", Name: "Netflix"}, Audios: []streaming.Track{{Language: "hin"}, {Language: "eng"}}},
				{Service: streaming.Service{ID: "zee5"}, AvailableSince: jan2},
				{Service: streaming.Service{ID: "mubi", Name: "MUBI"}, Audios: []streaming.Track{{Language: "fra"}}},
			},
		},
	}
	rows := newN().Normalize(dom.FromShow(show), "US")
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	nf, z := rows[0], rows[1]
	if nf.Platform != catalog.Netflix || nf.Type != catalog.WebSeries || nf.Year != "2019" {
		t.Fatalf("netflix row = %+v", nf)
	}
	if !nf.DateAdded.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("change timestamp not used: %v", nf.DateAdded)
	}
	if z.Platform != catalog.Zee5 || !z.DateAdded.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("zee5 row = %+v", z)
	}
	if !reflect.DeepEqual(nf.Languages, []string{"English", "French", "Hindi"}) {
		t.Fatalf("languages = %v", nf.Languages)
	}
}

func TestNormalize_ShowWithoutIndianAudio(t *testing.T) {
	show := streaming.Show{
		Title: "Elsewhere",
		StreamingOptions: map[string][]streaming.StreamingOption{
			"in": {{Service: streaming.Service{ID: "netflix"}, Audios: []streaming.Track{{Language: "eng"}}}},
		},
	}
	if rows := newN().Normalize(dom.FromShow(show), "IN"); len(rows) != 0 {
		t.Fatalf("rows = %+v", rows)
	}
}
