package report

import (
	"io"
	"unicode/utf8"

	perr "ottscout/internal/platform/errors"
	dom "ottscout/internal/services/releases/domain"

	"github.com/xuri/excelize/v2"
)

// SheetName is the single worksheet of the attachment
const SheetName = "New Releases"

// headerFill is the header background
const headerFill = "4472C4"

// Workbook builds the spreadsheet: styled header, one row per record, approximate auto width
func Workbook(rows []dom.CanonicalRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "rename sheet")
	}

	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "header style")
	}

	widths := make([]int, len(Columns))
	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
		widths[i] = utf8.RuneCountInString(c)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "write header")
	}
	last, _ := excelize.CoordinatesToCellName(len(Columns), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, style); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "style header")
	}

	for i, r := range rows {
		rec := Record(r)
		vals := make([]any, len(rec))
		for j, v := range rec {
			vals[j] = v
			widths[j] = max(widths[j], utf8.RuneCountInString(v))
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, cell, &vals); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "write row %d", i+2)
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, cellWidth(w)); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "set column width")
		}
	}
	return f, nil
}

// WriteXLSX streams the workbook to w
func WriteXLSX(w io.Writer, rows []dom.CanonicalRow) error {
	f, err := Workbook(rows)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return perr.WrapIf(err, perr.ErrorCodeUnavailable, "write xlsx")
}

// WriteXLSXFile saves the workbook at path
func WriteXLSXFile(path string, rows []dom.CanonicalRow) error {
	f, err := Workbook(rows)
	if err != nil {
		return err
	}
	defer f.Close()
	return perr.WrapIf(f.SaveAs(path), perr.ErrorCodeUnavailable, "save "+path)
}
