package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"ottscout/internal/core/catalog"
	kit "ottscout/internal/platform/testkit"
	dom "ottscout/internal/services/releases/domain"

	"github.com/xuri/excelize/v2"
)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func rating(f float64) *float64 { return &f }

// rows are already in report order
func sampleRows() []dom.CanonicalRow {
	return []dom.CanonicalRow{
		{Title: "Leo", Year: "2023", Type: catalog.Movie, Languages: []string{"Tamil", "Telugu"}, Platform: "Netflix", Region: "US", DateAdded: day(5), TitleID: "tt1", Rating: rating(7.26)},
		{Title: "Kota, Factory", Year: "2019", Type: catalog.WebSeries, Languages: []string{"Hindi"}, Platform: "Zee5", Region: "US", DateAdded: day(2), TitleID: "tt2"},
		{Title: "Jailer", Year: "2023", Type: catalog.Movie, Languages: []string{"Tamil"}, Platform: "Netflix", Region: "IN", DateAdded: day(9), TitleID: "tt3", Rating: rating(7)},
		{Title: "Old", Year: "2001", Type: catalog.Documentary, Languages: []string{"Tamil"}, Platform: "Hotstar", Region: "IN", DateAdded: day(1), TitleID: "tt4"},
	}
}

func TestRecord(t *testing.T) {
	got := Record(sampleRows()[0])
	want := []string{"Leo", "2023", "movie", "Tamil, Telugu", "Netflix", "US", "2024-01-05", "7.3"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("Record = %q, want %q", got, want)
	}
	if got := Record(dom.CanonicalRow{Title: "x"}); got[6] != "" || got[7] != "" {
		t.Fatalf("absent date and rating should be empty, got %q", got)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleRows()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	recs, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(recs) != 5 {
		t.Fatalf("records = %d, want header + 4", len(recs))
	}
	if strings.Join(recs[0], ",") != "title,year,type,languages,platform,region,date_added,rating" {
		t.Fatalf("header = %q", recs[0])
	}
	if recs[2][0] != "Kota, Factory" || recs[2][7] != "" {
		t.Fatalf("quoted title or empty rating lost: %q", recs[2])
	}
}

func TestWriteCSV_EmptyStillHasHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != strings.Join(Columns, ",") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestWorkbook(t *testing.T) {
	f, err := Workbook(sampleRows())
	if err != nil {
		t.Fatalf("Workbook: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetName(0); got != SheetName {
		t.Fatalf("sheet = %q", got)
	}
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 5 || rows[0][0] != "title" || rows[1][0] != "Leo" || rows[3][5] != "IN" {
		t.Fatalf("rows = %q", rows)
	}

	w, err := f.GetColWidth(SheetName, "A")
	if err != nil || w != float64(len("Kota, Factory")+4) {
		t.Fatalf("width A = %v (%v)", w, err)
	}

	styleID, err := f.GetCellStyle(SheetName, "H1")
	if err != nil {
		t.Fatal(err)
	}
	st, err := f.GetStyle(styleID)
	if err != nil || st.Font == nil || !st.Font.Bold || len(st.Fill.Color) == 0 || !strings.HasSuffix(strings.ToUpper(st.Fill.Color[0]), "4472C4") {
		t.Fatalf("header style = %+v (%v)", st, err)
	}
}

func TestWorkbook_WidthCapped(t *testing.T) {
	f, err := Workbook([]dom.CanonicalRow{{Title: strings.Repeat("x", 120)}})
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if w, _ := f.GetColWidth(SheetName, "A"); w != 50 {
		t.Fatalf("width = %v, want 50", w)
	}
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	files, err := WriteFiles(dir, day(7), sampleRows())
	if err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}
	if filepath.Base(files.XLSX) != "new_releases_2024-01-07.xlsx" || filepath.Base(files.CSV) != CSVName {
		t.Fatalf("files = %+v", files)
	}
	b, err := os.ReadFile(files.CSV)
	if err != nil {
		t.Fatal(err)
	}
	kit.MustContain(t, string(b), "Jailer")

	x, err := excelize.OpenFile(files.XLSX)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer x.Close()
	if v, _ := x.GetCellValue(SheetName, "A2"); v != "Leo" {
		t.Fatalf("A2 = %q", v)
	}
}

func TestSummarize(t *testing.T) {
	rows := append(sampleRows(), dom.CanonicalRow{Title: "Z", Platform: "Netflix", Region: "GB"},
		dom.CanonicalRow{Title: "Leo 2", Platform: "Netflix", Region: "US"})
	got := Summarize(rows, catalog.Default())
	var keys []string
	for _, c := range got {
		keys = append(keys, string(c.Region)+"/"+string(c.Platform)+"="+strconv.Itoa(c.N))
	}
	want := "US/Netflix=2 US/Zee5=1 IN/Hotstar=1 IN/Netflix=1 GB/Netflix=1"
	if strings.Join(keys, " ") != want {
		t.Fatalf("Summarize = %s, want %s", strings.Join(keys, " "), want)
	}
}

func TestWithLanguage_RegionThenNewest(t *testing.T) {
	got := WithLanguage(sampleRows(), "ta", catalog.Default())
	var titles []string
	for _, r := range got {
		titles = append(titles, r.Title)
	}
	if strings.Join(titles, ",") != "Leo,Jailer,Old" {
		t.Fatalf("order = %v", titles)
	}
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary(sampleRows(), catalog.Default())
	kit.MustContain(t, out, "REGION")
	kit.MustContain(t, out, "Zee5")
	kit.MustContain(t, out, "TOTAL")
	if !strings.Contains(out, "4") {
		t.Fatalf("grand total missing:\n%s", out)
	}
	kit.MustContain(t, RenderRows(sampleRows()), "Kota, Factory")
}

func TestMailHTML(t *testing.T) {
	body, err := MailHTML(sampleRows(), catalog.Default(), MailOptions{Day: day(7)})
	if err != nil {
		t.Fatalf("MailHTML: %v", err)
	}
	kit.MustContain(t, body, "New Indian Movies &amp; Shows &mdash; January 07, 2024")
	kit.MustContain(t, body, "Top 5 US Releases")
	kit.MustContain(t, body, "Top Tamil Releases")
	kit.MustContain(t, body, `<td colspan="2">Grand Total</td><td style="text-align:center">4</td>`)
	kit.MustContain(t, body, "Tamil, Telugu")
	kit.MustContain(t, body, ">7.3<")
	kit.MustContain(t, body, ">–<")
	kit.MustContain(t, body, "Full data is attached as an Excel file.")
	if strings.Index(body, "Jailer") < strings.Index(body, "Top Tamil Releases") {
		t.Fatalf("IN row leaked into the US top list")
	}
}

func TestMailHTML_EmptySections(t *testing.T) {
	rows := []dom.CanonicalRow{{Title: "Kota", Languages: []string{"Hindi"}, Platform: "Zee5", Region: "IN", DateAdded: day(1)}}
	body, err := MailHTML(rows, catalog.Default(), MailOptions{Day: day(1)})
	if err != nil {
		t.Fatal(err)
	}
	kit.MustContain(t, body, "No US releases found")
	kit.MustContain(t, body, "No new Tamil releases in this period.")
}

func TestMailHTML_EscapesTitles(t *testing.T) {
	rows := []dom.CanonicalRow{{Title: "<b>x</b>", Languages: []string{"Tamil"}, Platform: "Netflix", Region: "US", DateAdded: day(1)}}
	body, err := MailHTML(rows, catalog.Default(), MailOptions{Day: day(1), Highlight: "ta"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(body, "<b>x</b>") {
		t.Fatalf("title was not escaped")
	}
	kit.MustContain(t, body, "&lt;b&gt;x&lt;/b&gt;")
	kit.MustContain(t, body, "Top Tamil Releases")
}
