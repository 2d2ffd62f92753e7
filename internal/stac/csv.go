package stac

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ldubois/swissmeteo/internal/frame"
	"github.com/ldubois/swissmeteo/internal/observability"
)

// timestampColumn is the time column of SwissMetNet CSV extracts.
const timestampColumn = "reference_timestamp"

// Variables maps SwissMetNet hourly parameter codes to the column
// names used in the aggregated dataset.
var Variables = map[string]string{
	"prestah0": "atmospheric_pressure",
	"tre200h0": "air_temperature",
	"rre150h0": "rainfall",
	"ure200h0": "humidity",
	"dkl010h0": "wind_direction",
	"gre000h0": "global_radiation",
	"oli000h0": "irradiation",
	"fkl010h0": "wind_speed",
}

// VariableNames returns the renamed variable columns in the fixed
// order used for assembled frames.
func VariableNames() []string {
	return append([]string(nil), variableOrder...)
}

// variableOrder fixes the column order of assembled frames.
var variableOrder = []string{
	"atmospheric_pressure",
	"air_temperature",
	"rainfall",
	"humidity",
	"wind_direction",
	"global_radiation",
	"irradiation",
	"wind_speed",
}

// Extracts use ISO timestamps in newer files and dotted European
// ones in older historical files.
var timestampFormats = []string{
	"2006-01-02T15:04:05",
	"02.01.2006 15:04",
}

type record struct {
	ts   time.Time
	vals map[string]float64
}

// parsePayload reads one ;-separated SwissMetNet CSV extract. It
// returns the parsed records and the renamed variable columns present
// in the header. Rows with unparsable timestamps are dropped; an
// empty body or a header without the time column is a payload error.
func parsePayload(r io.Reader) ([]record, []string, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("%w: empty body", ErrBadPayload)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read header: %v", ErrBadPayload, err)
	}

	tsIdx := -1
	colIdx := make(map[int]string) // field position -> renamed column
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == timestampColumn {
			tsIdx = i
			continue
		}
		if renamed, ok := Variables[name]; ok {
			colIdx[i] = renamed
		}
	}
	if tsIdx < 0 {
		return nil, nil, fmt.Errorf("%w: header missing %s column", ErrBadPayload, timestampColumn)
	}

	var recs []record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: read row: %v", ErrBadPayload, err)
		}
		if tsIdx >= len(row) {
			continue
		}
		ts, ok := parseTimestamp(row[tsIdx])
		if !ok {
			continue
		}

		rec := record{ts: ts, vals: make(map[string]float64, len(colIdx))}
		for i, name := range colIdx {
			if i >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[i])
			if cell == "" || cell == "-" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				continue
			}
			rec.vals[name] = v
		}
		recs = append(recs, rec)
	}
	observability.RowsParsedTotal.Add(float64(len(recs)))

	var present []string
	seen := make(map[string]bool)
	for _, name := range colIdx {
		seen[name] = true
	}
	for _, name := range variableOrder {
		if seen[name] {
			present = append(present, name)
		}
	}
	return recs, present, nil
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// buildFrame assembles records into a frame with one column per
// present variable, in canonical variable order. Duplicate timestamps
// collapse to a single row; the last parsed value wins.
func buildFrame(recs []record, present map[string]bool) *frame.Frame {
	index := make([]time.Time, len(recs))
	for i, r := range recs {
		index[i] = r.ts
	}
	df := frame.New(index)

	pos := make(map[int64]int, df.Len())
	for i, t := range df.Index() {
		pos[t.UnixNano()] = i
	}

	for _, name := range variableOrder {
		if !present[name] {
			continue
		}
		vals := frame.NaNSlice(df.Len())
		for _, r := range recs {
			if v, ok := r.vals[name]; ok {
				vals[pos[r.ts.UnixNano()]] = v
			}
		}
		// Length is df.Len() by construction.
		_ = df.SetColumn(name, vals)
	}
	return df
}
