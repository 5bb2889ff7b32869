package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/energydatahub/energyhub/internal/collector"
	"github.com/energydatahub/energyhub/internal/timeutil"
	"github.com/energydatahub/energyhub/pkg/models"
)

const openMeteoBaseURL = "https://api.open-meteo.com/v1"

// OpenMeteoSource fetches hourly weather data for a fixed coordinate.
// The API returns wall-clock timestamps without an offset in the
// requested timezone, so parsing localizes them rather than assuming UTC.
type OpenMeteoSource struct {
	client    *http.Client
	baseURL   string
	latitude  float64
	longitude float64
	timezone  string
}

type OpenMeteoConfig struct {
	BaseURL   string
	Timeout   time.Duration
	Latitude  float64
	Longitude float64
	Timezone  string
}

func NewOpenMeteoSource(cfg OpenMeteoConfig) *OpenMeteoSource {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openMeteoBaseURL
	}
	tz := cfg.Timezone
	if tz == "" {
		tz = timeutil.DefaultZone
	}
	return &OpenMeteoSource{
		client:    newHTTPClient(cfg.Timeout),
		baseURL:   baseURL,
		latitude:  cfg.Latitude,
		longitude: cfg.Longitude,
		timezone:  tz,
	}
}

type openMeteoResponse struct {
	Hourly openMeteoHourly `json:"hourly"`
}

type openMeteoHourly struct {
	Time               []string   `json:"time"`
	Temperature        []*float64 `json:"temperature_2m"`
	WindSpeed          []*float64 `json:"wind_speed_10m"`
	ShortwaveRadiation []*float64 `json:"shortwave_radiation"`
}

func (s *OpenMeteoSource) FetchRaw(ctx context.Context, start, end time.Time, params map[string]string) (collector.RawPayload, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(s.latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(s.longitude, 'f', 4, 64))
	q.Set("hourly", "temperature_2m,wind_speed_10m,shortwave_radiation")
	q.Set("timezone", s.timezone)
	q.Set("start_date", start.Format("2006-01-02"))
	q.Set("end_date", end.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/forecast?%s", s.baseURL, q.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrRequestFailed, err)
	}

	var resp openMeteoResponse
	if err := getJSON(s.client, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *OpenMeteoSource) Parse(raw collector.RawPayload, start, end time.Time) (models.ParsedSeries, error) {
	resp, ok := raw.(*openMeteoResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T", raw)
	}

	loc, err := time.LoadLocation(s.timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %v", s.timezone, err)
	}

	series := models.ParsedSeries{}
	for i, tsStr := range resp.Hourly.Time {
		ts, err := timeutil.ParseTimestamp(tsStr, loc)
		if err != nil {
			return nil, fmt.Errorf("bad hourly timestamp %q: %v", tsStr, err)
		}
		if ts.Before(start) || !ts.Before(end) {
			continue
		}

		point := models.Point{}
		if i < len(resp.Hourly.Temperature) {
			point["temperature_2m"] = resp.Hourly.Temperature[i]
		}
		if i < len(resp.Hourly.WindSpeed) {
			point["wind_speed_10m"] = resp.Hourly.WindSpeed[i]
		}
		if i < len(resp.Hourly.ShortwaveRadiation) {
			point["shortwave_radiation"] = resp.Hourly.ShortwaveRadiation[i]
		}
		series[ts] = point
	}
	return series, nil
}

func (s *OpenMeteoSource) MetadataOverrides(start, end time.Time) map[string]string {
	return map[string]string{
		"latitude":  strconv.FormatFloat(s.latitude, 'f', 4, 64),
		"longitude": strconv.FormatFloat(s.longitude, 'f', 4, 64),
		"fields":    "temperature_2m,wind_speed_10m,shortwave_radiation",
	}
}
