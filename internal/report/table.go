package report

import (
	"io"
	"strconv"

	"ottscout/internal/core/catalog"
	dom "ottscout/internal/services/releases/domain"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderSummary draws the per region and platform counts with a total footer
func RenderSummary(rows []dom.CanonicalRow, policy catalog.Policy) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Region", "Platform", "Count"})
	for _, c := range Summarize(rows, policy) {
		tw.AppendRow(table.Row{string(c.Region), string(c.Platform), strconv.Itoa(c.N)})
	}
	tw.AppendFooter(table.Row{"Total", "", strconv.Itoa(len(rows))})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	return tw.Render()
}

// RenderRows draws every row in report order
func RenderRows(rows []dom.CanonicalRow) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	header := make(table.Row, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	tw.AppendHeader(header)
	for _, r := range rows {
		rec := Record(r)
		row := make(table.Row, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		tw.AppendRow(row)
	}
	return tw.Render()
}

// PrintSummary writes RenderSummary and a trailing newline to w
func PrintSummary(w io.Writer, rows []dom.CanonicalRow, policy catalog.Policy) error {
	_, err := io.WriteString(w, RenderSummary(rows, policy)+"\n")
	return err
}
