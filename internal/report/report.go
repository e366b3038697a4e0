// Package report renders a finished run as CSV, XLSX, a console table and an HTML mail body
package report

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	perr "ottscout/internal/platform/errors"
	dom "ottscout/internal/services/releases/domain"
)

// Columns is the header shared by the CSV and XLSX outputs
var Columns = []string{"title", "year", "type", "languages", "platform", "region", "date_added", "rating"}

// DateLayout is how dates are rendered in every output
const DateLayout = "2006-01-02"

// CSVName is the fixed CSV file name
const CSVName = "indian_streaming_content.csv"

// XLSXName returns the dated spreadsheet name for day
func XLSXName(day time.Time) string {
	return "new_releases_" + day.UTC().Format(DateLayout) + ".xlsx"
}

// Record flattens a row into the Columns order
func Record(r dom.CanonicalRow) []string {
	return []string{
		r.Title,
		r.Year,
		string(r.Type),
		strings.Join(r.Languages, ", "),
		string(r.Platform),
		string(r.Region),
		formatDate(r.DateAdded),
		formatRating(r.Rating),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

func formatRating(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

// Files are the paths WriteFiles produced
type Files struct {
	CSV  string
	XLSX string
}

// WriteFiles writes the CSV and the dated XLSX for rows into dir
func WriteFiles(dir string, day time.Time, rows []dom.CanonicalRow) (Files, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "create output dir %s", dir)
	}
	out := Files{CSV: filepath.Join(dir, CSVName), XLSX: filepath.Join(dir, XLSXName(day))}

	f, err := os.Create(out.CSV)
	if err != nil {
		return Files{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "create %s", out.CSV)
	}
	if err := WriteCSV(f, rows); err != nil {
		_ = f.Close()
		return Files{}, err
	}
	if err := f.Close(); err != nil {
		return Files{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "close %s", out.CSV)
	}

	if err := WriteXLSXFile(out.XLSX, rows); err != nil {
		return Files{}, err
	}
	return out, nil
}

func cellWidth(n int) float64 {
	return float64(min(n+4, 50))
}
