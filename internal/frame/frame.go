// Package frame implements the small time-indexed table the pipeline
// assembles station data into: float64 columns over a shared sorted
// timestamp index, NaN for missing values.
package frame

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"
)

var (
	ErrLengthMismatch  = errors.New("column length does not match index")
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrUnknownColumn   = errors.New("unknown column")
)

// Frame is a time-indexed table. The index is ascending and unique;
// every column has exactly one value slot per index entry.
type Frame struct {
	index []time.Time
	cols  []string
	data  map[string][]float64
}

// New creates a Frame over the given timestamps. The input is copied,
// sorted ascending and de-duplicated (first occurrence wins).
func New(index []time.Time) *Frame {
	sorted := make([]time.Time, len(index))
	copy(sorted, index)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	uniq := sorted[:0]
	for _, t := range sorted {
		if len(uniq) == 0 || !t.Equal(uniq[len(uniq)-1]) {
			uniq = append(uniq, t)
		}
	}
	return &Frame{
		index: uniq,
		data:  make(map[string][]float64),
	}
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.index) }

// Index returns the timestamp index. Callers must not modify it.
func (f *Frame) Index() []time.Time { return f.index }

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.cols))
	copy(out, f.cols)
	return out
}

// HasColumn reports whether the frame holds the named column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.data[name]
	return ok
}

// SetColumn adds or replaces a column. The slice is copied.
func (f *Frame) SetColumn(name string, values []float64) error {
	if len(values) != len(f.index) {
		return fmt.Errorf("%w: column %q has %d values for %d rows",
			ErrLengthMismatch, name, len(values), len(f.index))
	}
	if _, exists := f.data[name]; !exists {
		f.cols = append(f.cols, name)
	}
	v := make([]float64, len(values))
	copy(v, values)
	f.data[name] = v
	return nil
}

// Column returns the values of the named column. Callers must not
// modify the returned slice.
func (f *Frame) Column(name string) ([]float64, bool) {
	v, ok := f.data[name]
	return v, ok
}

// NaNSlice returns a fresh slice of n NaN values, the empty cell
// filler for new columns.
func NaNSlice(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}

// WithSuffix returns a copy of the frame with every column renamed to
// "<name>_<suffix>".
func (f *Frame) WithSuffix(suffix string) *Frame {
	out := &Frame{
		index: f.index,
		cols:  make([]string, 0, len(f.cols)),
		data:  make(map[string][]float64, len(f.cols)),
	}
	for _, name := range f.cols {
		renamed := name + "_" + suffix
		out.cols = append(out.cols, renamed)
		out.data[renamed] = f.data[name]
	}
	return out
}

// OuterJoin concatenates frames horizontally on the union of their
// indices. Rows missing from a frame are filled with NaN. Column
// names must be unique across inputs.
func OuterJoin(frames ...*Frame) (*Frame, error) {
	var union []time.Time
	for _, f := range frames {
		union = append(union, f.index...)
	}
	out := New(union)

	pos := make(map[int64]int, len(out.index))
	for i, t := range out.index {
		pos[t.UnixNano()] = i
	}

	for _, f := range frames {
		for _, name := range f.cols {
			if out.HasColumn(name) {
				return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
			}
			vals := NaNSlice(out.Len())
			src := f.data[name]
			for i, t := range f.index {
				vals[pos[t.UnixNano()]] = src[i]
			}
			if err := out.SetColumn(name, vals); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// WeightedAverage computes the per-row weighted average of the named
// columns. Rows where a column is NaN drop that column and the weights
// are renormalized over the remaining ones; a row with no values at
// all yields NaN.
func (f *Frame) WeightedAverage(cols []string, weights []float64) ([]float64, error) {
	if len(cols) != len(weights) {
		return nil, fmt.Errorf("%d columns for %d weights", len(cols), len(weights))
	}
	series := make([][]float64, len(cols))
	for i, name := range cols {
		v, ok := f.data[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		series[i] = v
	}

	out := make([]float64, f.Len())
	for row := range out {
		var sum, wsum float64
		for i, v := range series {
			if math.IsNaN(v[row]) {
				continue
			}
			sum += weights[i] * v[row]
			wsum += weights[i]
		}
		if wsum == 0 {
			out[row] = math.NaN()
			continue
		}
		out[row] = sum / wsum
	}
	return out, nil
}

// Slice returns the rows with start <= timestamp <= end.
func (f *Frame) Slice(start, end time.Time) *Frame {
	lo := sort.Search(len(f.index), func(i int) bool { return !f.index[i].Before(start) })
	hi := sort.Search(len(f.index), func(i int) bool { return f.index[i].After(end) })

	out := &Frame{
		index: f.index[lo:hi],
		cols:  append([]string(nil), f.cols...),
		data:  make(map[string][]float64, len(f.cols)),
	}
	for _, name := range f.cols {
		out.data[name] = f.data[name][lo:hi]
	}
	return out
}

// DropEmptyColumns returns a copy without columns that hold only NaN.
func (f *Frame) DropEmptyColumns() *Frame {
	out := &Frame{
		index: f.index,
		data:  make(map[string][]float64),
	}
	for _, name := range f.cols {
		vals := f.data[name]
		empty := true
		for _, v := range vals {
			if !math.IsNaN(v) {
				empty = false
				break
			}
		}
		if !empty {
			out.cols = append(out.cols, name)
			out.data[name] = vals
		}
	}
	return out
}

// Resample buckets rows to the given frequency code (h, d, m, y) and
// takes the arithmetic mean of the non-NaN values per bucket. A
// bucket with no values for a column yields NaN.
func (f *Frame) Resample(freq string) (*Frame, error) {
	trunc, err := truncator(freq)
	if err != nil {
		return nil, err
	}

	var buckets []time.Time
	rowBucket := make([]int, f.Len())
	for i, t := range f.index {
		b := trunc(t)
		if len(buckets) == 0 || !b.Equal(buckets[len(buckets)-1]) {
			buckets = append(buckets, b)
		}
		rowBucket[i] = len(buckets) - 1
	}

	out := New(buckets)
	for _, name := range f.cols {
		src := f.data[name]
		sums := make([]float64, len(buckets))
		counts := make([]int, len(buckets))
		for i, v := range src {
			if math.IsNaN(v) {
				continue
			}
			sums[rowBucket[i]] += v
			counts[rowBucket[i]]++
		}
		vals := NaNSlice(len(buckets))
		for i := range buckets {
			if counts[i] > 0 {
				vals[i] = sums[i] / float64(counts[i])
			}
		}
		if err := out.SetColumn(name, vals); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func truncator(freq string) (func(time.Time) time.Time, error) {
	switch freq {
	case "h":
		return func(t time.Time) time.Time {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
		}, nil
	case "d":
		return func(t time.Time) time.Time {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		}, nil
	case "m":
		return func(t time.Time) time.Time {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
		}, nil
	case "y":
		return func(t time.Time) time.Time {
			return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
		}, nil
	default:
		return nil, fmt.Errorf("resample: unsupported frequency %q", freq)
	}
}

// TimeColumn is the header of the index column in CSV output.
const TimeColumn = "reference_timestamp"

// WriteCSV writes the frame as comma-separated rows with a header
// line. NaN cells are written empty.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := append([]string{TimeColumn}, f.cols...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(header))
	for i, t := range f.index {
		row[0] = t.Format("2006-01-02T15:04:05")
		for j, name := range f.cols {
			v := f.data[name][i]
			if math.IsNaN(v) {
				row[j+1] = ""
			} else {
				row[j+1] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
