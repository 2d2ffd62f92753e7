// Package export writes the run artifacts: the aggregated dataset as
// (optionally gzipped) CSV and the station weight reference table.
package export

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ldubois/swissmeteo/internal/frame"
	"github.com/ldubois/swissmeteo/internal/stations"
)

// WriteDataset writes the aggregated frame to path, creating parent
// directories. A ".gz" suffix selects gzip compression.
func WriteDataset(path string, df *frame.Frame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset file: %w", err)
	}
	defer f.Close()

	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(f)
		if err := df.WriteCSV(gz); err != nil {
			gz.Close()
			return fmt.Errorf("write dataset: %w", err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("flush gzip: %w", err)
		}
	} else if err := df.WriteCSV(f); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	return f.Close()
}

// WriteStationWeights writes the station reference table with the
// computed weights to path as plain CSV.
func WriteStationWeights(path string, sts []stations.Station, weights map[string]float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create weights file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	header := []string{"Name", "station_id", "canton", "population", "district", "canton_pop", "weight"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, s := range sts {
		row := []string{
			s.Name,
			s.ID,
			s.Canton,
			strconv.Itoa(s.Population),
			strconv.Itoa(s.District),
			strconv.Itoa(s.CantonPop),
			strconv.FormatFloat(weights[s.ID], 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write station %s: %w", s.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return f.Close()
}
