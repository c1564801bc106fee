package epidemic

import (
	"encoding/csv"
	"io"
	"strconv"
)

// Record is one sample of the compartment sizes.
type Record struct {
	T float64 `json:"t"`
	S int     `json:"s"`
	I int     `json:"i"`
	R int     `json:"r"`
}

// Timeline is the ordered sequence of records produced by a run. The first
// record is taken at t=0 right after seeding, then one per event.
type Timeline []Record

// Final returns the last record, or the zero Record for an empty timeline.
func (tl Timeline) Final() Record {
	if len(tl) == 0 {
		return Record{}
	}
	return tl[len(tl)-1]
}

// WriteCSV writes a header row followed by one row per record.
func (tl Timeline) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"t", "s", "i", "r"}); err != nil {
		return err
	}
	for _, rec := range tl {
		row := []string{
			strconv.FormatFloat(rec.T, 'g', -1, 64),
			strconv.Itoa(rec.S),
			strconv.Itoa(rec.I),
			strconv.Itoa(rec.R),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
