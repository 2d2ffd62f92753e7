package frame

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2023, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestNew_SortsAndDeduplicates(t *testing.T) {
	f := New([]time.Time{day(3), day(1), day(2), day(1)})
	if f.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", f.Len())
	}
	idx := f.Index()
	for i := 0; i < 3; i++ {
		if !idx[i].Equal(day(i + 1)) {
			t.Errorf("Index()[%d] = %v, want %v", i, idx[i], day(i+1))
		}
	}
}

func TestSetColumn_LengthMismatch(t *testing.T) {
	f := New([]time.Time{day(1), day(2)})
	if err := f.SetColumn("air_temperature", []float64{1}); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("SetColumn() error = %v, want %v", err, ErrLengthMismatch)
	}
}

func TestWithSuffix(t *testing.T) {
	f := New([]time.Time{day(1)})
	if err := f.SetColumn("air_temperature", []float64{5}); err != nil {
		t.Fatalf("SetColumn() error = %v", err)
	}
	g := f.WithSuffix("BER")
	if !g.HasColumn("air_temperature_BER") {
		t.Errorf("suffixed frame missing air_temperature_BER, columns = %v", g.Columns())
	}
	if g.HasColumn("air_temperature") {
		t.Errorf("suffixed frame still has unsuffixed column")
	}
	if !f.HasColumn("air_temperature") {
		t.Errorf("WithSuffix mutated the source frame")
	}
}

func TestOuterJoin(t *testing.T) {
	a := New([]time.Time{day(1), day(2)})
	if err := a.SetColumn("air_temperature_BER", []float64{10, 12}); err != nil {
		t.Fatal(err)
	}
	b := New([]time.Time{day(2), day(3)})
	if err := b.SetColumn("air_temperature_SIO", []float64{8, 9}); err != nil {
		t.Fatal(err)
	}

	joined, err := OuterJoin(a, b)
	if err != nil {
		t.Fatalf("OuterJoin() error = %v", err)
	}
	if joined.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 (union of indices)", joined.Len())
	}

	ber, _ := joined.Column("air_temperature_BER")
	if !math.IsNaN(ber[2]) {
		t.Errorf("BER at day 3 = %v, want NaN", ber[2])
	}
	if ber[0] != 10 || ber[1] != 12 {
		t.Errorf("BER = %v, want [10 12 NaN]", ber)
	}
	sio, _ := joined.Column("air_temperature_SIO")
	if !math.IsNaN(sio[0]) || sio[1] != 8 || sio[2] != 9 {
		t.Errorf("SIO = %v, want [NaN 8 9]", sio)
	}
}

func TestOuterJoin_DuplicateColumn(t *testing.T) {
	a := New([]time.Time{day(1)})
	_ = a.SetColumn("rainfall_BER", []float64{1})
	b := New([]time.Time{day(1)})
	_ = b.SetColumn("rainfall_BER", []float64{2})

	if _, err := OuterJoin(a, b); !errors.Is(err, ErrDuplicateColumn) {
		t.Fatalf("OuterJoin() error = %v, want %v", err, ErrDuplicateColumn)
	}
}

func TestWeightedAverage(t *testing.T) {
	f := New([]time.Time{day(1), day(2), day(3)})
	_ = f.SetColumn("t_BER", []float64{10, 12, 14})
	_ = f.SetColumn("t_SIO", []float64{8, 9, 10})

	avg, err := f.WeightedAverage([]string{"t_BER", "t_SIO"}, []float64{0.6, 0.4})
	if err != nil {
		t.Fatalf("WeightedAverage() error = %v", err)
	}
	want := []float64{9.2, 10.8, 12.4}
	for i := range want {
		if math.Abs(avg[i]-want[i]) > 1e-9 {
			t.Errorf("avg[%d] = %v, want %v", i, avg[i], want[i])
		}
	}
}

func TestWeightedAverage_RenormalizesOverPresent(t *testing.T) {
	f := New([]time.Time{day(1), day(2)})
	_ = f.SetColumn("t_BER", []float64{10, math.NaN()})
	_ = f.SetColumn("t_SIO", []float64{8, 9})

	avg, err := f.WeightedAverage([]string{"t_BER", "t_SIO"}, []float64{0.6, 0.4})
	if err != nil {
		t.Fatalf("WeightedAverage() error = %v", err)
	}
	if math.Abs(avg[0]-9.2) > 1e-9 {
		t.Errorf("avg[0] = %v, want 9.2", avg[0])
	}
	// BER missing on day 2: SIO carries full weight after renormalization.
	if math.Abs(avg[1]-9) > 1e-9 {
		t.Errorf("avg[1] = %v, want 9 (renormalized)", avg[1])
	}
}

func TestWeightedAverage_AllMissingIsNaN(t *testing.T) {
	f := New([]time.Time{day(1)})
	_ = f.SetColumn("t_BER", []float64{math.NaN()})
	_ = f.SetColumn("t_SIO", []float64{math.NaN()})

	avg, err := f.WeightedAverage([]string{"t_BER", "t_SIO"}, []float64{0.6, 0.4})
	if err != nil {
		t.Fatalf("WeightedAverage() error = %v", err)
	}
	if !math.IsNaN(avg[0]) {
		t.Errorf("avg[0] = %v, want NaN", avg[0])
	}
}

func TestWeightedAverage_UnknownColumn(t *testing.T) {
	f := New([]time.Time{day(1)})
	if _, err := f.WeightedAverage([]string{"missing"}, []float64{1}); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("WeightedAverage() error = %v, want %v", err, ErrUnknownColumn)
	}
}

func TestSlice(t *testing.T) {
	f := New([]time.Time{day(1), day(2), day(3), day(4)})
	_ = f.SetColumn("t", []float64{1, 2, 3, 4})

	s := f.Slice(day(2), day(3))
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	v, _ := s.Column("t")
	if v[0] != 2 || v[1] != 3 {
		t.Errorf("sliced column = %v, want [2 3]", v)
	}
}

func TestDropEmptyColumns(t *testing.T) {
	f := New([]time.Time{day(1), day(2)})
	_ = f.SetColumn("kept", []float64{1, math.NaN()})
	_ = f.SetColumn("dropped", []float64{math.NaN(), math.NaN()})

	g := f.DropEmptyColumns()
	if !g.HasColumn("kept") {
		t.Errorf("kept column was dropped")
	}
	if g.HasColumn("dropped") {
		t.Errorf("all-NaN column survived")
	}
}

func TestResample_DailyMean(t *testing.T) {
	ts := []time.Time{
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2023, 1, 2, 6, 0, 0, 0, time.UTC),
	}
	f := New(ts)
	_ = f.SetColumn("t", []float64{10, 14, 20})

	g, err := f.Resample("d")
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	if g.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 daily buckets", g.Len())
	}
	v, _ := g.Column("t")
	if v[0] != 12 || v[1] != 20 {
		t.Errorf("resampled = %v, want [12 20]", v)
	}
}

func TestResample_SameGranularityIsIdentity(t *testing.T) {
	ts := []time.Time{day(1), day(2), day(3)}
	f := New(ts)
	_ = f.SetColumn("t", []float64{1, 2, 3})

	g, err := f.Resample("d")
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	if g.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", g.Len())
	}
	v, _ := g.Column("t")
	for i, want := range []float64{1, 2, 3} {
		if v[i] != want {
			t.Errorf("v[%d] = %v, want %v", i, v[i], want)
		}
	}
}

func TestResample_UnknownFrequency(t *testing.T) {
	f := New([]time.Time{day(1)})
	if _, err := f.Resample("w"); err == nil {
		t.Fatal("Resample(w) expected error, got nil")
	}
}

func TestWriteCSV(t *testing.T) {
	f := New([]time.Time{day(1), day(2)})
	_ = f.SetColumn("air_temperature_BER", []float64{10.5, math.NaN()})

	var buf bytes.Buffer
	if err := f.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[0] != "reference_timestamp,air_temperature_BER" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "2023-01-01T00:00:00,10.5" {
		t.Errorf("row 1 = %q", lines[1])
	}
	if lines[2] != "2023-01-02T00:00:00," {
		t.Errorf("row 2 = %q, want empty cell for NaN", lines[2])
	}
}
