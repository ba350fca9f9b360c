package places

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zOOGal/Routed/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *GoogleClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewGoogleClient("test-key", testLogger())
	client.baseURL = server.URL + "/places"
	return client
}

func TestSearchText_MapsResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.NotEmpty(t, r.Header.Get("X-Goog-FieldMask"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Fuunji Tokyo", body["textQuery"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"places":[{
            "id":"place-123",
            "displayName":{"text":"Fuunji"},
            "location":{"latitude":35.683,"longitude":139.698},
            "formattedAddress":"2-14-3 Yoyogi, Shibuya",
            "types":["restaurant","food"],
            "rating":4.5,
            "userRatingCount":5000,
            "priceLevel":"PRICE_LEVEL_INEXPENSIVE"
        }]}`))
	})

	results, err := client.SearchText(context.Background(), "Fuunji Tokyo", nil, 3)
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, "place-123", got.PlaceID)
	assert.Equal(t, "Fuunji", got.Name)
	assert.InDelta(t, 35.683, got.Lat, 1e-9)
	require.NotNil(t, got.Address)
	assert.Equal(t, "2-14-3 Yoyogi, Shibuya", *got.Address)
	require.NotNil(t, got.PriceLevel)
	assert.Equal(t, 1, *got.PriceLevel)
}

func TestSearchText_ZeroHitsIsEmptyNotError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	results, err := client.SearchText(context.Background(), "nowhere", nil, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchText_Non200(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := client.SearchText(context.Background(), "anything", nil, 3)
	assert.Error(t, err)
}

func TestGetDetails_OpenNowFromCurrentHours(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
            "id":"place-123",
            "displayName":{"text":"Fuunji"},
            "location":{"latitude":35.683,"longitude":139.698},
            "currentOpeningHours":{"openNow":true}
        }`))
	})

	details, err := client.GetDetails(context.Background(), "place-123")
	require.NoError(t, err)
	require.NotNil(t, details)
	require.NotNil(t, details.IsOpenNow)
	assert.True(t, *details.IsOpenNow)
}

func TestGetDetails_UnknownHoursLeaveIsOpenNil(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"place-123","displayName":{"text":"Fuunji"}}`))
	})

	details, err := client.GetDetails(context.Background(), "place-123")
	require.NoError(t, err)
	require.NotNil(t, details)
	assert.Nil(t, details.IsOpenNow)
}

func TestGetDetails_NotFoundIsNilNil(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	details, err := client.GetDetails(context.Background(), "gone")
	require.NoError(t, err)
	assert.Nil(t, details)
}

func TestParsePriceLevel(t *testing.T) {
	assert.Nil(t, parsePriceLevel(""))
	assert.Nil(t, parsePriceLevel("PRICE_LEVEL_UNSPECIFIED"))
	lvl := parsePriceLevel("PRICE_LEVEL_VERY_EXPENSIVE")
	require.NotNil(t, lvl)
	assert.Equal(t, 4, *lvl)
}

// countingDetailer counts calls through to a fixed response.
type countingDetailer struct {
	calls   int
	details *types.PlaceDetails
	err     error
}

func (d *countingDetailer) GetDetails(ctx context.Context, placeID string) (*types.PlaceDetails, error) {
	d.calls++
	return d.details, d.err
}

func TestCachedDetailer_MemoizesHits(t *testing.T) {
	open := true
	inner := &countingDetailer{details: &types.PlaceDetails{IsOpenNow: &open}}
	cached := NewCachedDetailer(inner)

	for i := 0; i < 3; i++ {
		details, err := cached.GetDetails(context.Background(), "place-123")
		require.NoError(t, err)
		require.NotNil(t, details)
		assert.True(t, *details.IsOpenNow)
	}
	assert.Equal(t, 1, inner.calls)
}

func TestCachedDetailer_DoesNotCacheUnknown(t *testing.T) {
	inner := &countingDetailer{}
	cached := NewCachedDetailer(inner)

	for i := 0; i < 2; i++ {
		details, err := cached.GetDetails(context.Background(), "unknown")
		require.NoError(t, err)
		assert.Nil(t, details)
	}
	assert.Equal(t, 2, inner.calls)
}
