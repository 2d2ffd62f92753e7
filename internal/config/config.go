package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Frequency codes accepted by the MeteoSwiss OGD datasets.
const (
	FreqHourly  = "h"
	FreqDaily   = "d"
	FreqMonthly = "m"
	FreqYearly  = "y"
)

// Named output sinks in the save-path map.
const (
	SourceDataset        = "save directory"
	SourceStationWeights = "station weights"
)

var (
	ErrInvalidFreq   = errors.New("invalid frequency code")
	ErrInvalidPeriod = errors.New("start date after end date")
	ErrUnknownSource = errors.New("unknown data source")
)

// DateFormat is the wire format for start/end dates in config files and env.
const DateFormat = "2006-01-02"

var (
	defaultStart = time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	defaultEnd   = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
)

// Config holds extraction parameters plus the ambient settings loaded
// from YAML and env. Single-owner value object; mutate only through
// the setters so invariants hold.
type Config struct {
	Freq        string
	StartDate   time.Time
	EndDate     time.Time
	GlobalMeteo bool
	SaveDir     map[string]string

	// CustomDates records whether the caller supplied its own period
	// rather than relying on the defaults.
	CustomDates bool

	STACBaseURL  string
	HTTPTimeout  time.Duration
	RateLimitRPS int
	MetricsAddr  string
}

// New builds a validated Config. Zero start/end fall back to the
// default 2016-01-01..2024-12-31 period. An empty saveDir keeps the
// default output paths.
func New(freq string, start, end time.Time, globalMeteo bool, saveDir string) (*Config, error) {
	custom := !start.IsZero() || !end.IsZero()
	cfg := &Config{
		GlobalMeteo: globalMeteo,
		SaveDir:     defaultPaths(),
		STACBaseURL: DefaultSTACBaseURL,
		HTTPTimeout: 30 * time.Second,
	}
	if err := cfg.SetFreq(freq); err != nil {
		return nil, err
	}
	if start.IsZero() {
		start = defaultStart
	}
	if end.IsZero() {
		end = defaultEnd
	}
	if err := cfg.SetPeriod(start, end); err != nil {
		return nil, err
	}
	cfg.CustomDates = custom
	if saveDir != "" {
		cfg.SaveDir[SourceDataset] = saveDir
	}
	return cfg, nil
}

// DefaultSTACBaseURL points at the public MeteoSwiss STAC catalog.
const DefaultSTACBaseURL = "https://data.geo.admin.ch/api/stac/v1"

func defaultPaths() map[string]string {
	return map[string]string{
		SourceDataset:        "./data/swissmeteo.csv.gz",
		SourceStationWeights: "./data/station_weight.csv",
	}
}

// SetFreq replaces the frequency. Input is lowercased before
// validation against the four recognized codes.
func (c *Config) SetFreq(freq string) error {
	f := strings.ToLower(strings.TrimSpace(freq))
	switch f {
	case FreqHourly, FreqDaily, FreqMonthly, FreqYearly:
		c.Freq = f
		return nil
	default:
		return fmt.Errorf("%w: %q (want h, d, m or y)", ErrInvalidFreq, freq)
	}
}

// SetPeriod replaces the extraction period. Rejects inverted ranges.
func (c *Config) SetPeriod(start, end time.Time) error {
	if start.After(end) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidPeriod,
			start.Format(DateFormat), end.Format(DateFormat))
	}
	c.StartDate = start
	c.EndDate = end
	c.CustomDates = true
	return nil
}

// Validate re-checks the stored invariants, for configs assembled
// without the constructor.
func (c *Config) Validate() error {
	if err := c.SetFreq(c.Freq); err != nil {
		return err
	}
	if c.StartDate.After(c.EndDate) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidPeriod,
			c.StartDate.Format(DateFormat), c.EndDate.Format(DateFormat))
	}
	return nil
}

// SetGlobalMeteo toggles the population-weighted global columns.
func (c *Config) SetGlobalMeteo(on bool) {
	c.GlobalMeteo = on
}

// SetPath updates the output path for a known source key.
func (c *Config) SetPath(source, path string) error {
	if _, ok := c.SaveDir[source]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	c.SaveDir[source] = path
	return nil
}

// Path returns the output path for a source, or "" if unknown.
func (c *Config) Path(source string) string {
	return c.SaveDir[source]
}

// Summary returns a field-name to value snapshot for display/logging.
func (c *Config) Summary() map[string]any {
	return map[string]any{
		"freq":         c.Freq,
		"start_date":   c.StartDate.Format(DateFormat),
		"end_date":     c.EndDate.Format(DateFormat),
		"global_meteo": c.GlobalMeteo,
		"save_dir":     c.SaveDir[SourceDataset],
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("<Config freq=%s period=%s..%s global_meteo=%t save_dir=%s>",
		c.Freq, c.StartDate.Format(DateFormat), c.EndDate.Format(DateFormat),
		c.GlobalMeteo, c.SaveDir[SourceDataset])
}

type fileConfig struct {
	STAC struct {
		BaseURL      string `yaml:"base_url"`
		Timeout      string `yaml:"timeout"`
		RateLimitRPS int    `yaml:"rate_limit_rps"`
	} `yaml:"stac"`

	Extract struct {
		Freq        string `yaml:"freq"`
		StartDate   string `yaml:"start_date"`
		EndDate     string `yaml:"end_date"`
		GlobalMeteo *bool  `yaml:"global_meteo"`
	} `yaml:"extract"`

	Output struct {
		Dataset        string `yaml:"dataset"`
		StationWeights string `yaml:"station_weights"`
	} `yaml:"output"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev),
// after a best-effort .env load. Env vars override file values. Call
// from project root.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	freq := getenvDefault("SWISSMETEO_FREQ", fc.Extract.Freq)
	if freq == "" {
		freq = FreqHourly
	}

	start, err := parseDate(getenvDefault("SWISSMETEO_START_DATE", fc.Extract.StartDate))
	if err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}
	end, err := parseDate(getenvDefault("SWISSMETEO_END_DATE", fc.Extract.EndDate))
	if err != nil {
		return nil, fmt.Errorf("end_date: %w", err)
	}

	globalMeteo := false
	if fc.Extract.GlobalMeteo != nil {
		globalMeteo = *fc.Extract.GlobalMeteo
	}
	if v := os.Getenv("SWISSMETEO_GLOBAL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("SWISSMETEO_GLOBAL: %w", err)
		}
		globalMeteo = b
	}

	cfg, err := New(freq, start, end, globalMeteo, fc.Output.Dataset)
	if err != nil {
		return nil, err
	}
	if fc.Output.StationWeights != "" {
		cfg.SaveDir[SourceStationWeights] = fc.Output.StationWeights
	}

	if u := getenvDefault("STAC_BASE_URL", fc.STAC.BaseURL); u != "" {
		cfg.STACBaseURL = u
	}
	cfg.HTTPTimeout = parseDuration(fc.STAC.Timeout, 30*time.Second)
	cfg.RateLimitRPS = fc.STAC.RateLimitRPS
	cfg.MetricsAddr = getenvDefault("METRICS_ADDR", fc.Metrics.Addr)

	return cfg, nil
}

// parseDate parses a YYYY-MM-DD string; empty input yields the zero
// time so New falls back to the default period.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// parseDuration parses a duration string and returns defaultVal if
// parsing fails or the result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
