// Package stac downloads SwissMetNet observation files from the
// MeteoSwiss STAC catalog on data.geo.admin.ch and parses them into
// time-indexed frames.
package stac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ldubois/swissmeteo/internal/frame"
	"github.com/ldubois/swissmeteo/internal/observability"
)

// Collection is the STAC collection holding SwissMetNet station data.
const Collection = "ch.meteoschweiz.ogd-smn"

var (
	ErrNoItems        = errors.New("no catalog items for station")
	ErrNoFiles        = errors.New("no data files for station and frequency")
	ErrUpstream       = errors.New("upstream failure")
	ErrBadPayload     = errors.New("malformed CSV payload")
	ErrNoObservations = errors.New("no observations in requested period")
)

// Client fetches station data from the STAC API. Every fetch is a
// single attempt; transport and decoding failures propagate to the
// caller unretried.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter // nil when pacing disabled
}

// NewClient returns a Client against the given STAC base URL. rps > 0
// paces outgoing requests to that many per second.
func NewClient(baseURL string, timeout time.Duration, rps int) *Client {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

// DownloadStation fetches and parses all data files for one station
// at the given frequency, returning a frame sliced to [start, end].
func (c *Client) DownloadStation(ctx context.Context, stationID string, start, end time.Time, freq string) (*frame.Frame, error) {
	files, err := c.listFiles(ctx, stationID, freq, start, end)
	if err != nil {
		return nil, err
	}

	var recs []record
	present := make(map[string]bool)
	for _, f := range files {
		fileRecs, fileCols, err := c.downloadFile(ctx, f.href)
		if err != nil {
			return nil, fmt.Errorf("station %s file %s: %w", stationID, f.key, err)
		}
		recs = append(recs, fileRecs...)
		for _, col := range fileCols {
			present[col] = true
		}
	}

	df := buildFrame(recs, present).Slice(start, end)
	if df.Len() == 0 {
		return nil, fmt.Errorf("%w: station %s %s..%s", ErrNoObservations,
			stationID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return df, nil
}

type dataFile struct {
	key  string
	href string
}

// listFiles queries the catalog for the station's item and selects
// the CSV assets matching the frequency whose historical year span
// overlaps the requested period.
func (c *Client) listFiles(ctx context.Context, stationID, freq string, start, end time.Time) ([]dataFile, error) {
	params := url.Values{}
	params.Set("q", strings.ToLower(stationID))
	params.Set("limit", "10")
	endpoint := fmt.Sprintf("%s/collections/%s/items?%s", c.baseURL, Collection, params.Encode())

	body, err := c.get(ctx, "items", endpoint)
	if err != nil {
		return nil, fmt.Errorf("station %s: %w", stationID, err)
	}
	defer body.Close()

	var payload struct {
		Features []struct {
			Assets map[string]struct {
				Href string `json:"href"`
			} `json:"assets"`
		} `json:"features"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("station %s: decode item search: %w", stationID, err)
	}
	if len(payload.Features) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoItems, stationID)
	}

	// First feature is the station's own item.
	assets := payload.Features[0].Assets
	marker := "_" + freq + "_"

	var files []dataFile
	for key, asset := range assets {
		if !strings.Contains(key, marker) || !strings.HasSuffix(key, ".csv") {
			continue
		}
		if !fileInRange(key, start.Year(), end.Year()) {
			continue
		}
		files = append(files, dataFile{key: key, href: asset.Href})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s freq=%s", ErrNoFiles, stationID, freq)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].key < files[j].key })
	return files, nil
}

// fileInRange keeps historical_YYYY-YYYY assets whose year span
// overlaps [startYear, endYear]. Non-historical assets (recent, now)
// are skipped.
func fileInRange(key string, startYear, endYear int) bool {
	if !strings.Contains(key, "historical_") {
		return false
	}
	parts := strings.Split(strings.TrimSuffix(key, ".csv"), "_")
	span := strings.SplitN(parts[len(parts)-1], "-", 2)
	if len(span) != 2 {
		return false
	}
	fileStart, err1 := strconv.Atoi(span[0])
	fileEnd, err2 := strconv.Atoi(span[1])
	if err1 != nil || err2 != nil {
		return false
	}
	return fileStart <= endYear && fileEnd >= startYear
}

// downloadFile fetches one CSV asset and parses it.
func (c *Client) downloadFile(ctx context.Context, href string) ([]record, []string, error) {
	body, err := c.get(ctx, "asset", href)
	if err != nil {
		return nil, nil, err
	}
	defer body.Close()
	return parsePayload(body)
}

// get performs one instrumented GET, applying the rate limiter first.
// The caller owns the returned body.
func (c *Client) get(ctx context.Context, endpoint, rawURL string) (io.ReadCloser, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	duration := time.Since(start).Seconds()
	if err != nil {
		observability.STACRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		observability.STACRequestDuration.WithLabelValues(endpoint).Observe(duration)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	observability.STACRequestsTotal.WithLabelValues(endpoint, observability.StatusLabel(resp.StatusCode)).Inc()
	observability.STACRequestDuration.WithLabelValues(endpoint).Observe(duration)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrUpstream, resp.StatusCode, endpoint)
	}
	return resp.Body, nil
}
