package sources

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/energydatahub/energyhub/internal/cache"
	"github.com/energydatahub/energyhub/internal/collector"
	"github.com/energydatahub/energyhub/pkg/models"
)

const (
	luchtmeetnetBaseURL = "https://api.luchtmeetnet.nl/open_api"
	stationCacheKey     = "luchtmeetnet:stations"
	defaultStationTTL   = 24 * time.Hour
	maxStationPages     = 10
)

// Station is one air-quality measuring station.
type Station struct {
	Number    string  `json:"number"`
	Location  string  `json:"location"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LuchtmeetnetSource fetches air-quality measurements. It is a two-step
// lookup: resolve the station nearest to the configured coordinate, then
// fetch its measurements. The station list is served from an injected
// cache shared across all instances of this adapter.
type LuchtmeetnetSource struct {
	client    *http.Client
	baseURL   string
	latitude  float64
	longitude float64
	formula   string
	stations  *cache.TTLCache

	mu      sync.Mutex
	nearest *Station
}

type LuchtmeetnetConfig struct {
	BaseURL   string
	Timeout   time.Duration
	Latitude  float64
	Longitude float64
	// Formula is the measured component, e.g. "NO2" or "PM25".
	Formula string
	// StationCache is shared by reference among adapter instances; a nil
	// cache gets a private 24h one.
	StationCache *cache.TTLCache
}

func NewLuchtmeetnetSource(cfg LuchtmeetnetConfig) *LuchtmeetnetSource {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = luchtmeetnetBaseURL
	}
	formula := cfg.Formula
	if formula == "" {
		formula = "NO2"
	}
	stations := cfg.StationCache
	if stations == nil {
		stations = cache.New(defaultStationTTL)
	}
	return &LuchtmeetnetSource{
		client:    newHTTPClient(cfg.Timeout),
		baseURL:   baseURL,
		latitude:  cfg.Latitude,
		longitude: cfg.Longitude,
		formula:   formula,
		stations:  stations,
	}
}

type stationsResponse struct {
	Pagination struct {
		LastPage int `json:"last_page"`
	} `json:"pagination"`
	Data []struct {
		Number   string `json:"number"`
		Location string `json:"location"`
	} `json:"data"`
}

type stationDetailResponse struct {
	Data struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Location string `json:"location"`
	} `json:"data"`
}

type measurementsResponse struct {
	Data []struct {
		TimestampMeasured string   `json:"timestamp_measured"`
		Value             *float64 `json:"value"`
		Formula           string   `json:"formula"`
	} `json:"data"`
}

func (s *LuchtmeetnetSource) FetchRaw(ctx context.Context, start, end time.Time, params map[string]string) (collector.RawPayload, error) {
	station, err := s.nearestStation(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("station_number", station.Number)
	q.Set("formula", s.formula)
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/measurements?%s", s.baseURL, q.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrRequestFailed, err)
	}

	var resp measurementsResponse
	if err := getJSON(s.client, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *LuchtmeetnetSource) Parse(raw collector.RawPayload, start, end time.Time) (models.ParsedSeries, error) {
	resp, ok := raw.(*measurementsResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T", raw)
	}

	series := models.ParsedSeries{}
	for _, m := range resp.Data {
		ts, err := time.Parse(time.RFC3339, m.TimestampMeasured)
		if err != nil {
			return nil, fmt.Errorf("bad timestamp_measured %q: %v", m.TimestampMeasured, err)
		}
		series[ts] = models.Point{s.formula: m.Value}
	}
	return series, nil
}

func (s *LuchtmeetnetSource) MetadataOverrides(start, end time.Time) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nearest == nil {
		return nil
	}
	return map[string]string{
		"station":          s.nearest.Number,
		"station_location": s.nearest.Location,
		"formula":          s.formula,
	}
}

// nearestStation resolves and remembers the station closest to the
// configured coordinate, loading the station list through the shared
// cache.
func (s *LuchtmeetnetSource) nearestStation(ctx context.Context) (*Station, error) {
	s.mu.Lock()
	if s.nearest != nil {
		station := s.nearest
		s.mu.Unlock()
		return station, nil
	}
	s.mu.Unlock()

	v, err := s.stations.GetOrLoad(ctx, stationCacheKey, func(ctx context.Context) (interface{}, error) {
		return s.fetchAllStations(ctx)
	})
	if err != nil {
		return nil, err
	}

	stations, ok := v.([]Station)
	if !ok || len(stations) == 0 {
		return nil, fmt.Errorf("%w: no stations available", ErrRequestFailed)
	}

	nearest := stations[0]
	best := distance(s.latitude, s.longitude, nearest.Latitude, nearest.Longitude)
	for _, st := range stations[1:] {
		if d := distance(s.latitude, s.longitude, st.Latitude, st.Longitude); d < best {
			best = d
			nearest = st
		}
	}

	s.mu.Lock()
	s.nearest = &nearest
	s.mu.Unlock()
	return &nearest, nil
}

func (s *LuchtmeetnetSource) fetchAllStations(ctx context.Context) ([]Station, error) {
	var stations []Station

	for page := 1; page <= maxStationPages; page++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s/stations?page=%d", s.baseURL, page), nil)
		if err != nil {
			return nil, fmt.Errorf("%w: building request: %v", ErrRequestFailed, err)
		}

		var resp stationsResponse
		if err := getJSON(s.client, req, &resp); err != nil {
			return nil, err
		}

		for _, d := range resp.Data {
			detail, err := s.fetchStationDetail(ctx, d.Number)
			if err != nil {
				continue
			}
			stations = append(stations, *detail)
		}

		if page >= resp.Pagination.LastPage {
			break
		}
	}
	return stations, nil
}

func (s *LuchtmeetnetSource) fetchStationDetail(ctx context.Context, number string) (*Station, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/stations/%s", s.baseURL, number), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrRequestFailed, err)
	}

	var resp stationDetailResponse
	if err := getJSON(s.client, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data.Geometry.Coordinates) < 2 {
		return nil, fmt.Errorf("station %s has no coordinates", number)
	}

	return &Station{
		Number:    number,
		Location:  resp.Data.Location,
		Longitude: resp.Data.Geometry.Coordinates[0],
		Latitude:  resp.Data.Geometry.Coordinates[1],
	}, nil
}

// distance is a flat-earth approximation, good enough to rank stations a
// few dozen kilometers apart.
func distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := lat1 - lat2
	dLon := (lon1 - lon2) * math.Cos(lat1*math.Pi/180)
	return math.Sqrt(dLat*dLat + dLon*dLon)
}
