package canonical

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zOOGal/Routed/internal/aggregate"
	"github.com/zOOGal/Routed/internal/types"
)

// PGXPool is the pool surface the repository needs; both *pgxpool.Pool
// and pgxmock satisfy it.
type PGXPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ Repository = (*RepositoryImpl)(nil)

// Repository is the persistence contract for canonicalization.
type Repository interface {
	GetSocialPost(ctx context.Context, postID uuid.UUID) (*types.SocialPost, error)
	GetLatestExtraction(ctx context.Context, postID uuid.UUID) (*types.SocialExtraction, error)
	// ApplyMatch runs the write side of one accepted candidate as a
	// single transaction: find-or-create the POI, insert the signal,
	// recompute and replace the aggregate.
	ApplyMatch(ctx context.Context, provider types.POIProvider, place types.PlaceResult, source types.SocialSource, postID uuid.UUID, payload types.SignalPayload, confidence float64) (uuid.UUID, error)
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

func (r *RepositoryImpl) GetSocialPost(ctx context.Context, postID uuid.UUID) (*types.SocialPost, error) {
	query := `
        SELECT id, source, url, external_id, raw_text, language, author, posted_at, created_at
        FROM social_posts
        WHERE id = $1
    `
	var p types.SocialPost
	err := r.pgpool.QueryRow(ctx, query, postID).Scan(
		&p.ID, &p.Source, &p.URL, &p.ExternalID, &p.RawText, &p.Language, &p.Author, &p.PostedAt, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get social post: %w", err)
	}
	return &p, nil
}

func (r *RepositoryImpl) GetLatestExtraction(ctx context.Context, postID uuid.UUID) (*types.SocialExtraction, error) {
	query := `
        SELECT id, social_post_id, extracted_json, confidence, created_at
        FROM social_extractions
        WHERE social_post_id = $1
        ORDER BY created_at DESC
        LIMIT 1
    `
	var (
		e   types.SocialExtraction
		raw []byte
	)
	err := r.pgpool.QueryRow(ctx, query, postID).Scan(&e.ID, &e.SocialPostID, &raw, &e.Confidence, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest extraction: %w", err)
	}

	var extracted struct {
		Candidates []types.ExtractedCandidate `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &extracted); err != nil {
		// Malformed extraction payloads degrade to zero candidates
		// rather than failing the whole post.
		r.logger.WarnContext(ctx, "malformed extraction payload", slog.String("extraction_id", e.ID.String()), slog.Any("error", err))
	}
	e.Candidates = extracted.Candidates
	return &e, nil
}

func (r *RepositoryImpl) ApplyMatch(ctx context.Context, provider types.POIProvider, place types.PlaceResult, source types.SocialSource, postID uuid.UUID, payload types.SignalPayload, confidence float64) (uuid.UUID, error) {
	ctx, span := otel.Tracer("CanonicalRepository").Start(ctx, "ApplyMatch")
	defer span.End()
	span.SetAttributes(attribute.String("poi.provider_place_id", place.PlaceID))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	poiID, err := r.findOrCreatePOI(ctx, tx, provider, place)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "POI upsert failed")
		return uuid.Nil, err
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal signal payload: %w", err)
	}
	_, err = tx.Exec(ctx, `
        INSERT INTO poi_signals (poi_id, source, social_post_id, signal_json, confidence)
        VALUES ($1, $2, $3, $4, $5)
    `, poiID, source, postID, payloadJSON, confidence)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "signal insert failed")
		return uuid.Nil, fmt.Errorf("failed to insert POI signal: %w", err)
	}

	if err := r.recomputeAggregate(ctx, tx, poiID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate recompute failed")
		return uuid.Nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit match: %w", err)
	}

	span.SetStatus(codes.Ok, "match applied")
	return poiID, nil
}

func (r *RepositoryImpl) findOrCreatePOI(ctx context.Context, tx pgx.Tx, provider types.POIProvider, place types.PlaceResult) (uuid.UUID, error) {
	var poiID uuid.UUID
	err := tx.QueryRow(ctx, `
        SELECT id FROM pois
        WHERE provider = $1 AND provider_place_id = $2
    `, provider, place.PlaceID).Scan(&poiID)
	if err == nil {
		return poiID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("failed to look up POI: %w", err)
	}

	categories, err := json.Marshal(place.Types)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal POI categories: %w", err)
	}
	err = tx.QueryRow(ctx, `
        INSERT INTO pois (provider, provider_place_id, name, lat, lng, address, categories, price_level, rating, rating_count)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id
    `, provider, place.PlaceID, place.Name, place.Lat, place.Lng, place.Address, categories, place.PriceLevel, place.Rating, place.RatingCount).Scan(&poiID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert POI: %w", err)
	}
	return poiID, nil
}

// recomputeAggregate rebuilds the aggregate from the POI's full signal
// set inside the current transaction and replaces the stored row.
func (r *RepositoryImpl) recomputeAggregate(ctx context.Context, tx pgx.Tx, poiID uuid.UUID) error {
	rows, err := tx.Query(ctx, `
        SELECT id, poi_id, source, social_post_id, signal_json, confidence, created_at
        FROM poi_signals
        WHERE poi_id = $1
        ORDER BY created_at
    `, poiID)
	if err != nil {
		return fmt.Errorf("failed to list POI signals: %w", err)
	}
	signals, err := scanSignals(rows)
	if err != nil {
		return err
	}

	agg := aggregate.Compute(signals)
	agg.POIID = poiID
	agg.Score = aggregate.Score(signals, time.Now().UTC())

	aggJSON, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("failed to marshal aggregate: %w", err)
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO poi_aggregates (poi_id, aggregate_json, score, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (poi_id)
        DO UPDATE SET aggregate_json = EXCLUDED.aggregate_json, score = EXCLUDED.score, updated_at = NOW()
    `, poiID, aggJSON, agg.Score)
	if err != nil {
		return fmt.Errorf("failed to upsert aggregate: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE pois SET updated_at = NOW() WHERE id = $1`, poiID)
	if err != nil {
		return fmt.Errorf("failed to touch POI: %w", err)
	}
	return nil
}

func scanSignals(rows pgx.Rows) ([]types.POISignal, error) {
	defer rows.Close()

	var signals []types.POISignal
	for rows.Next() {
		var (
			s       types.POISignal
			rawJSON []byte
		)
		if err := rows.Scan(&s.ID, &s.POIID, &s.Source, &s.SocialPostID, &rawJSON, &s.Confidence, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan POI signal: %w", err)
		}
		if err := json.Unmarshal(rawJSON, &s.Payload); err != nil {
			// Defensive: a malformed payload contributes an empty signal
			// instead of aborting the recompute.
			s.Payload = types.SignalPayload{}
		}
		signals = append(signals, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate POI signals: %w", err)
	}
	return signals, nil
}
