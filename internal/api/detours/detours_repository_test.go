package detours

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"

	"github.com/zOOGal/Routed/internal/geo"
)

func tokyoBox() geo.BoundingBox {
	return geo.BoundingBox{MinLat: 35.64, MaxLat: 35.70, MinLng: 139.68, MaxLng: 139.79}
}

func poiRowColumns() []string {
	return []string{
		"id", "provider", "provider_place_id", "name", "lat", "lng", "address",
		"categories", "price_level", "rating", "rating_count", "created_at", "updated_at",
		"aggregate_json", "score", "updated_at",
	}
}

func TestListPOIsInBoundingBox(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	poiID := uuid.New()
	now := time.Now()
	score := 2.5
	aggregateJSON := []byte(`{"top_vibe_tags":["cozy"],"top_what_to_order":["tsukemen"],"total_mentions":3}`)

	box := tokyoBox()
	mockPool.ExpectQuery(`SELECT p.id, p.provider, p.provider_place_id`).
		WithArgs(box.MinLat, box.MaxLat, box.MinLng, box.MaxLng).
		WillReturnRows(pgxmock.NewRows(poiRowColumns()).
			AddRow(poiID, "google", "place-123", "Fuunji", 35.6700, 139.7350, nil,
				[]byte(`["restaurant","food"]`), nil, nil, nil, now, now,
				aggregateJSON, &score, &now))

	repo := NewRepository(mockPool, testLogger())
	results, err := repo.ListPOIsInBoundingBox(context.Background(), box)

	require.NoError(t, err)
	require.Len(t, results, 1)
	got := results[0]
	assert.Equal(t, "Fuunji", got.POI.Name)
	assert.Equal(t, []string{"restaurant", "food"}, got.POI.Categories)
	require.NotNil(t, got.Aggregate)
	assert.Equal(t, poiID, got.Aggregate.POIID)
	assert.Equal(t, 2.5, got.Aggregate.Score)
	assert.Equal(t, 3, got.Aggregate.TotalMentions)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestListPOIsInBoundingBox_NoAggregate(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	now := time.Now()
	box := tokyoBox()
	mockPool.ExpectQuery(`SELECT p.id, p.provider, p.provider_place_id`).
		WithArgs(box.MinLat, box.MaxLat, box.MinLng, box.MaxLng).
		WillReturnRows(pgxmock.NewRows(poiRowColumns()).
			AddRow(uuid.New(), "google", "place-456", "Quiet Spot", 35.6650, 139.7200, nil,
				nil, nil, nil, nil, now, now,
				nil, nil, nil))

	repo := NewRepository(mockPool, testLogger())
	results, err := repo.ListPOIsInBoundingBox(context.Background(), box)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Aggregate)
}

func TestListPOIsInBoundingBox_Empty(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	box := tokyoBox()
	mockPool.ExpectQuery(`SELECT p.id, p.provider, p.provider_place_id`).
		WithArgs(box.MinLat, box.MaxLat, box.MinLng, box.MaxLng).
		WillReturnRows(pgxmock.NewRows(poiRowColumns()))

	repo := NewRepository(mockPool, testLogger())
	results, err := repo.ListPOIsInBoundingBox(context.Background(), box)

	require.NoError(t, err)
	assert.Empty(t, results)
}
