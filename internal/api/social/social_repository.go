// Package social ingests social media posts: storage, LLM candidate
// extraction and the handoff into canonicalization.
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/zOOGal/Routed/internal/types"
)

// PGXPool is the pool surface the repository needs; both *pgxpool.Pool
// and pgxmock satisfy it.
type PGXPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ Repository = (*RepositoryImpl)(nil)

// Repository is the write-side persistence contract for ingestion.
type Repository interface {
	// CreatePost stores the post and fills in its generated ID and
	// created_at.
	CreatePost(ctx context.Context, post *types.SocialPost) error
	// CreateExtraction stores one extraction run and fills in its
	// generated ID and created_at.
	CreateExtraction(ctx context.Context, extraction *types.SocialExtraction) error
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

func (r *RepositoryImpl) CreatePost(ctx context.Context, post *types.SocialPost) error {
	query := `
        INSERT INTO social_posts (source, url, external_id, raw_text, language, author, posted_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at
    `
	err := r.pgpool.QueryRow(ctx, query,
		post.Source, post.URL, post.ExternalID, post.RawText, post.Language, post.Author, post.PostedAt,
	).Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert social post: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) CreateExtraction(ctx context.Context, extraction *types.SocialExtraction) error {
	// The stored shape matches what canonicalization reads back: a
	// top-level "candidates" array.
	extracted, err := json.Marshal(struct {
		Candidates []types.ExtractedCandidate `json:"candidates"`
	}{Candidates: extraction.Candidates})
	if err != nil {
		return fmt.Errorf("failed to marshal extraction: %w", err)
	}

	query := `
        INSERT INTO social_extractions (social_post_id, extracted_json, confidence)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `
	err = r.pgpool.QueryRow(ctx, query, extraction.SocialPostID, extracted, extraction.Confidence).
		Scan(&extraction.ID, &extraction.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert social extraction: %w", err)
	}
	return nil
}
