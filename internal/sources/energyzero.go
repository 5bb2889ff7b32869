package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/energydatahub/energyhub/internal/collector"
	"github.com/energydatahub/energyhub/pkg/models"
)

const energyZeroBaseURL = "https://api.energyzero.nl/v1"

// EnergyZeroSource fetches day-ahead electricity prices for the Dutch
// market.
type EnergyZeroSource struct {
	client  *http.Client
	baseURL string
	inclVAT bool
}

type EnergyZeroConfig struct {
	BaseURL    string
	Timeout    time.Duration
	IncludeVAT bool
}

func NewEnergyZeroSource(cfg EnergyZeroConfig) *EnergyZeroSource {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = energyZeroBaseURL
	}
	return &EnergyZeroSource{
		client:  newHTTPClient(cfg.Timeout),
		baseURL: baseURL,
		inclVAT: cfg.IncludeVAT,
	}
}

type energyZeroResponse struct {
	Prices []energyZeroPrice `json:"Prices"`
}

type energyZeroPrice struct {
	Price       *float64 `json:"price"`
	ReadingDate string   `json:"readingDate"`
}

func (s *EnergyZeroSource) FetchRaw(ctx context.Context, start, end time.Time, params map[string]string) (collector.RawPayload, error) {
	q := url.Values{}
	q.Set("fromDate", start.UTC().Format(time.RFC3339))
	q.Set("tillDate", end.UTC().Format(time.RFC3339))
	q.Set("interval", "4")
	q.Set("usageType", "1")
	if s.inclVAT {
		q.Set("inclBtw", "true")
	} else {
		q.Set("inclBtw", "false")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/energyprices?%s", s.baseURL, q.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrRequestFailed, err)
	}

	var resp energyZeroResponse
	if err := getJSON(s.client, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *EnergyZeroSource) Parse(raw collector.RawPayload, start, end time.Time) (models.ParsedSeries, error) {
	resp, ok := raw.(*energyZeroResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T", raw)
	}

	series := models.ParsedSeries{}
	for _, p := range resp.Prices {
		ts, err := time.Parse(time.RFC3339, p.ReadingDate)
		if err != nil {
			return nil, fmt.Errorf("bad readingDate %q: %v", p.ReadingDate, err)
		}
		series[ts] = models.Point{"price": p.Price}
	}
	return series, nil
}
