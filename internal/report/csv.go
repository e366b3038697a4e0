package report

import (
	"encoding/csv"
	"io"

	perr "ottscout/internal/platform/errors"
	dom "ottscout/internal/services/releases/domain"
)

// WriteCSV writes a header and one record per row; absent values are empty cells
func WriteCSV(w io.Writer, rows []dom.CanonicalRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "write csv header")
	}
	for _, r := range rows {
		if err := cw.Write(Record(r)); err != nil {
			return perr.Wrap(err, perr.ErrorCodeUnavailable, "write csv row")
		}
	}
	cw.Flush()
	return perr.WrapIf(cw.Error(), perr.ErrorCodeUnavailable, "flush csv")
}
