package detours

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zOOGal/Routed/internal/geo"
	"github.com/zOOGal/Routed/internal/types"
)

// PGXPool is the pool surface the repository needs; both *pgxpool.Pool
// and pgxmock satisfy it.
type PGXPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// POIWithAggregate pairs a POI with its aggregate, which is nil for POIs
// that have never received a signal recompute.
type POIWithAggregate struct {
	POI       types.POI
	Aggregate *types.POIAggregate
}

var _ Repository = (*RepositoryImpl)(nil)

// Repository is the read-side persistence contract for detour ranking.
type Repository interface {
	// ListPOIsInBoundingBox returns every POI inside the box along with
	// its aggregate when one exists. Corridor math and all further
	// filtering happen in memory; the box is only the coarse cut.
	ListPOIsInBoundingBox(ctx context.Context, box geo.BoundingBox) ([]POIWithAggregate, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewRepository(pgpool PGXPool, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *RepositoryImpl) ListPOIsInBoundingBox(ctx context.Context, box geo.BoundingBox) ([]POIWithAggregate, error) {
	ctx, span := otel.Tracer("DetoursRepository").Start(ctx, "ListPOIsInBoundingBox")
	defer span.End()

	query := `
        SELECT p.id, p.provider, p.provider_place_id, p.name, p.lat, p.lng, p.address,
               p.categories, p.price_level, p.rating, p.rating_count, p.created_at, p.updated_at,
               a.aggregate_json, a.score, a.updated_at
        FROM pois p
        LEFT JOIN poi_aggregates a ON a.poi_id = p.id
        WHERE p.lat >= $1 AND p.lat <= $2
          AND p.lng >= $3 AND p.lng <= $4
    `
	rows, err := r.pgpool.Query(ctx, query, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bounding box query failed")
		return nil, fmt.Errorf("failed to query POIs in bounding box: %w", err)
	}
	defer rows.Close()

	var results []POIWithAggregate
	for rows.Next() {
		var (
			item          POIWithAggregate
			categoriesRaw []byte
			aggRaw        []byte
			aggScore      *float64
			aggUpdatedAt  *time.Time
		)
		err := rows.Scan(
			&item.POI.ID, &item.POI.Provider, &item.POI.ProviderPlaceID, &item.POI.Name,
			&item.POI.Lat, &item.POI.Lng, &item.POI.Address, &categoriesRaw,
			&item.POI.PriceLevel, &item.POI.Rating, &item.POI.RatingCount,
			&item.POI.CreatedAt, &item.POI.UpdatedAt,
			&aggRaw, &aggScore, &aggUpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan POI row: %w", err)
		}

		if categoriesRaw != nil {
			if err := json.Unmarshal(categoriesRaw, &item.POI.Categories); err != nil {
				r.logger.WarnContext(ctx, "malformed POI categories",
					slog.String("poi_id", item.POI.ID.String()), slog.Any("error", err))
			}
		}

		if aggRaw != nil && aggScore != nil {
			var agg types.POIAggregate
			if err := json.Unmarshal(aggRaw, &agg); err != nil {
				r.logger.WarnContext(ctx, "malformed POI aggregate",
					slog.String("poi_id", item.POI.ID.String()), slog.Any("error", err))
			} else {
				agg.POIID = item.POI.ID
				agg.Score = *aggScore
				if aggUpdatedAt != nil {
					agg.UpdatedAt = *aggUpdatedAt
				}
				item.Aggregate = &agg
			}
		}

		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate POI rows: %w", err)
	}

	span.SetAttributes(attribute.Int("detours.bbox_poi_count", len(results)))
	return results, nil
}
