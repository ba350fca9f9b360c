// Package places wraps the external place-search provider behind narrow
// interfaces so the canonicalization and detour engines can be tested
// without network access.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zOOGal/Routed/internal/types"
)

// Searcher is the place text-search collaborator. Implementations must
// return an empty slice, not an error, when the search simply finds
// nothing.
type Searcher interface {
	SearchText(ctx context.Context, query string, locationBias *types.GeoPoint, maxResults int) ([]types.PlaceResult, error)
}

// Detailer is the place-details collaborator. A nil result with nil
// error means the place is unknown to the provider.
type Detailer interface {
	GetDetails(ctx context.Context, placeID string) (*types.PlaceDetails, error)
}

// Client is the full provider surface.
type Client interface {
	Searcher
	Detailer
}

const (
	googleBaseURL  = "https://places.googleapis.com/v1/places"
	requestTimeout = 10 * time.Second

	searchFieldMask = "places.id,places.displayName,places.location," +
		"places.formattedAddress,places.types,places.rating," +
		"places.userRatingCount,places.priceLevel"
	detailsFieldMask = "id,displayName,location,formattedAddress,types," +
		"rating,userRatingCount,priceLevel," +
		"currentOpeningHours,regularOpeningHours"

	locationBiasRadiusM = 50000.0
)

var _ Client = (*GoogleClient)(nil)

// GoogleClient talks to the Google Places API (New) over HTTP.
type GoogleClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewGoogleClient(apiKey string, logger *slog.Logger) *GoogleClient {
	if apiKey == "" {
		logger.Warn("GOOGLE_PLACES_API_KEY not set; place lookups will fail")
	}
	return &GoogleClient{
		apiKey:     apiKey,
		baseURL:    googleBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

// googlePlace is the wire shape shared by search results and details.
type googlePlace struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	Location struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	FormattedAddress    string         `json:"formattedAddress"`
	Types               []string       `json:"types"`
	Rating              *float64       `json:"rating"`
	UserRatingCount     *int           `json:"userRatingCount"`
	PriceLevel          string         `json:"priceLevel"`
	CurrentOpeningHours map[string]any `json:"currentOpeningHours"`
	RegularOpeningHours map[string]any `json:"regularOpeningHours"`
}

func (p *googlePlace) toResult() types.PlaceResult {
	res := types.PlaceResult{
		PlaceID:     p.ID,
		Name:        p.DisplayName.Text,
		Lat:         p.Location.Latitude,
		Lng:         p.Location.Longitude,
		Types:       p.Types,
		Rating:      p.Rating,
		RatingCount: p.UserRatingCount,
		PriceLevel:  parsePriceLevel(p.PriceLevel),
	}
	if p.FormattedAddress != "" {
		addr := p.FormattedAddress
		res.Address = &addr
	}
	return res
}

// SearchText runs a Places text search and maps the results. Zero hits
// is a successful empty result.
func (c *GoogleClient) SearchText(ctx context.Context, query string, locationBias *types.GeoPoint, maxResults int) ([]types.PlaceResult, error) {
	ctx, span := otel.Tracer("PlacesClient").Start(ctx, "SearchText")
	defer span.End()
	span.SetAttributes(attribute.String("places.query", query))

	body := map[string]any{
		"textQuery":      query,
		"maxResultCount": maxResults,
	}
	if locationBias != nil {
		body["locationBias"] = map[string]any{
			"circle": map[string]any{
				"center": map[string]any{
					"latitude":  locationBias.Lat,
					"longitude": locationBias.Lng,
				},
				"radius": locationBiasRadiusM,
			},
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+":searchText", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", searchFieldMask)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search request failed")
		return nil, fmt.Errorf("places search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("places search returned status %d: %s", resp.StatusCode, raw)
		span.RecordError(err)
		span.SetStatus(codes.Error, "non-200 from places search")
		return nil, err
	}

	var decoded struct {
		Places []googlePlace `json:"places"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode places search response: %w", err)
	}

	results := make([]types.PlaceResult, 0, len(decoded.Places))
	for i := range decoded.Places {
		results = append(results, decoded.Places[i].toResult())
	}
	span.SetAttributes(attribute.Int("places.result_count", len(results)))
	return results, nil
}

// GetDetails fetches a single place including opening hours. Unknown
// hours leave IsOpenNow nil.
func (c *GoogleClient) GetDetails(ctx context.Context, placeID string) (*types.PlaceDetails, error) {
	ctx, span := otel.Tracer("PlacesClient").Start(ctx, "GetDetails")
	defer span.End()
	span.SetAttributes(attribute.String("places.place_id", placeID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+placeID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build details request: %w", err)
	}
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", detailsFieldMask)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "details request failed")
		return nil, fmt.Errorf("places details request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("places details returned status %d: %s", resp.StatusCode, raw)
		span.RecordError(err)
		span.SetStatus(codes.Error, "non-200 from places details")
		return nil, err
	}

	var place googlePlace
	if err := json.NewDecoder(resp.Body).Decode(&place); err != nil {
		return nil, fmt.Errorf("failed to decode places details response: %w", err)
	}

	details := &types.PlaceDetails{PlaceResult: place.toResult()}
	if details.PlaceID == "" {
		details.PlaceID = placeID
	}

	hours := place.CurrentOpeningHours
	if hours == nil {
		hours = place.RegularOpeningHours
	}
	if hours != nil {
		details.OpeningHours = hours
		if open, ok := hours["openNow"].(bool); ok {
			details.IsOpenNow = &open
		}
	}

	return details, nil
}

// parsePriceLevel maps Google's price level enum strings onto 1-4.
func parsePriceLevel(val string) *int {
	levels := map[string]int{
		"PRICE_LEVEL_INEXPENSIVE":    1,
		"PRICE_LEVEL_MODERATE":       2,
		"PRICE_LEVEL_EXPENSIVE":      3,
		"PRICE_LEVEL_VERY_EXPENSIVE": 4,
	}
	if lvl, ok := levels[val]; ok {
		return &lvl
	}
	return nil
}
