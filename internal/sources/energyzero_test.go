package sources_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/energydatahub/energyhub/internal/sources"
)

func TestEnergyZero_FetchAndParse(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/energyprices", r.URL.Path)
		gotQuery = map[string]string{
			"fromDate":  r.URL.Query().Get("fromDate"),
			"tillDate":  r.URL.Query().Get("tillDate"),
			"interval":  r.URL.Query().Get("interval"),
			"usageType": r.URL.Query().Get("usageType"),
			"inclBtw":   r.URL.Query().Get("inclBtw"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"Prices": [
				{"price": 0.25, "readingDate": "2024-07-15T00:00:00Z"},
				{"price": 0.31, "readingDate": "2024-07-15T01:00:00Z"},
				{"price": null, "readingDate": "2024-07-15T02:00:00Z"}
			]
		}`))
	}))
	defer server.Close()

	src := sources.NewEnergyZeroSource(sources.EnergyZeroConfig{
		BaseURL:    server.URL,
		IncludeVAT: true,
	})

	start := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	raw, err := src.FetchRaw(context.Background(), start, end, nil)
	require.NoError(t, err)

	assert.Equal(t, "4", gotQuery["interval"])
	assert.Equal(t, "1", gotQuery["usageType"])
	assert.Equal(t, "true", gotQuery["inclBtw"])
	assert.Equal(t, start.Format(time.RFC3339), gotQuery["fromDate"])
	assert.Equal(t, end.Format(time.RFC3339), gotQuery["tillDate"])

	series, err := src.Parse(raw, start, end)
	require.NoError(t, err)
	require.Len(t, series, 3)

	point := series[start]
	require.NotNil(t, point["price"])
	assert.Equal(t, 0.25, *point["price"])

	// Nulls from the API stay nulls.
	nullPoint := series[start.Add(2*time.Hour)]
	assert.Nil(t, nullPoint["price"])
}

func TestEnergyZero_FetchBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer server.Close()

	src := sources.NewEnergyZeroSource(sources.EnergyZeroConfig{BaseURL: server.URL})

	start := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	_, err := src.FetchRaw(context.Background(), start, start.Add(time.Hour), nil)
	assert.ErrorIs(t, err, sources.ErrBadStatus)
}

func TestEnergyZero_ParseRejectsForeignPayload(t *testing.T) {
	src := sources.NewEnergyZeroSource(sources.EnergyZeroConfig{})

	start := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	_, err := src.Parse("not-a-payload", start, start.Add(time.Hour))
	assert.Error(t, err)
}

func TestEnergyZero_ParseRejectsBadTimestamp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Prices": [{"price": 0.1, "readingDate": "15-07-2024"}]}`))
	}))
	defer server.Close()

	src := sources.NewEnergyZeroSource(sources.EnergyZeroConfig{BaseURL: server.URL})

	start := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	raw, err := src.FetchRaw(context.Background(), start, start.Add(time.Hour), nil)
	require.NoError(t, err)

	_, err = src.Parse(raw, start, start.Add(time.Hour))
	assert.Error(t, err)
}
