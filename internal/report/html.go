package report

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"ottscout/internal/core/catalog"
	perr "ottscout/internal/platform/errors"
	dom "ottscout/internal/services/releases/domain"
)

// MailOptions shapes the HTML body
type MailOptions struct {
	Day       time.Time
	TopRegion catalog.Region
	TopN      int
	// Highlight is the language that gets its own section
	Highlight string
}

func (o MailOptions) withDefaults() MailOptions {
	if o.Day.IsZero() {
		o.Day = time.Now().UTC()
	}
	if o.TopRegion == "" {
		o.TopRegion = "US"
	}
	if o.TopN <= 0 {
		o.TopN = 5
	}
	if o.Highlight == "" {
		o.Highlight = "Tamil"
	}
	return o
}

type mailView struct {
	Date      string
	Summary   []Count
	Total     int
	TopRegion string
	TopN      int
	Top       []dom.CanonicalRow
	Highlight string
	Featured  []dom.CanonicalRow
}

const th = `style="background:#4472C4;color:#fff"`

var mailTmpl = template.Must(template.New("mail").Funcs(template.FuncMap{
	"date":   formatDate,
	"rating": mailRating,
	"langs":  func(xs []string) string { return strings.Join(xs, ", ") },
}).Parse(`<html>
<body style="font-family:Arial,sans-serif;color:#333">
<h2>New Indian Movies &amp; Shows &mdash; {{.Date}}</h2>

<h3>Summary by Platform &amp; Country</h3>
<table border="1" cellpadding="6" cellspacing="0" style="border-collapse:collapse;min-width:320px">
  <tr ` + th + `><th>Country</th><th>Platform</th><th>Count</th></tr>
{{- range .Summary}}
  <tr><td>{{.Region}}</td><td>{{.Platform}}</td><td style="text-align:center">{{.N}}</td></tr>
{{- end}}
  <tr style="font-weight:bold"><td colspan="2">Grand Total</td><td style="text-align:center">{{.Total}}</td></tr>
</table>

<h3>Top {{.TopN}} {{.TopRegion}} Releases</h3>
<table border="1" cellpadding="6" cellspacing="0" style="border-collapse:collapse;min-width:520px">
  <tr ` + th + `><th>Title</th><th>Year</th><th>Type</th><th>Platform</th><th>Date Added</th><th>IMDb</th></tr>
{{- range .Top}}
  <tr><td>{{.Title}}</td><td style="text-align:center">{{.Year}}</td><td>{{.Type}}</td><td>{{.Platform}}</td><td style="text-align:center">{{date .DateAdded}}</td><td style="text-align:center">{{rating .Rating}}</td></tr>
{{- else}}
  <tr><td colspan="6" style="text-align:center">No {{.TopRegion}} releases found</td></tr>
{{- end}}
</table>

<h3>Top {{.Highlight}} Releases</h3>
{{- if .Featured}}
<table border="1" cellpadding="6" cellspacing="0" style="border-collapse:collapse;min-width:680px">
  <tr ` + th + `><th>Title</th><th>Year</th><th>Type</th><th>Platform</th><th>Country</th><th>Date Added</th><th>Languages</th><th>IMDb</th></tr>
{{- range .Featured}}
  <tr><td>{{.Title}}</td><td style="text-align:center">{{.Year}}</td><td>{{.Type}}</td><td>{{.Platform}}</td><td>{{.Region}}</td><td style="text-align:center">{{date .DateAdded}}</td><td>{{langs .Languages}}</td><td style="text-align:center">{{rating .Rating}}</td></tr>
{{- end}}
</table>
{{- else}}
<p><em>No new {{.Highlight}} releases in this period.</em></p>
{{- end}}

<p style="margin-top:18px;font-size:0.9em;color:#888">Full data is attached as an Excel file.</p>
</body>
</html>
`))

// MailHTML renders the notification body for rows in report order
func MailHTML(rows []dom.CanonicalRow, policy catalog.Policy, opt MailOptions) (string, error) {
	opt = opt.withDefaults()
	highlight := catalog.DisplayLanguage(opt.Highlight)
	v := mailView{
		Date:      opt.Day.UTC().Format("January 02, 2006"),
		Summary:   Summarize(rows, policy),
		Total:     len(rows),
		TopRegion: string(opt.TopRegion),
		TopN:      opt.TopN,
		Top:       TopInRegion(rows, opt.TopRegion, opt.TopN),
		Highlight: highlight,
		Featured:  WithLanguage(rows, highlight, policy),
	}
	var buf bytes.Buffer
	if err := mailTmpl.Execute(&buf, v); err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeUnknown, "render mail body")
	}
	return buf.String(), nil
}

// mailRating is one decimal, or an en dash when absent
func mailRating(v *float64) string {
	if v == nil {
		return "–"
	}
	return formatRating(v)
}
