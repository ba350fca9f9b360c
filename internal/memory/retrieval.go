// Package memory exposes the narrow retrieval surface the detour
// reranker consumes. The full memory subsystem (write gate, embeddings,
// hybrid retrieval) lives elsewhere; this package only needs to hand
// back a few relevant snippets, so the bundled implementation is a plain
// keyword/recency query over the memories table.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zOOGal/Routed/internal/types"
)

// Retriever is the memory-retrieval collaborator.
type Retriever interface {
	RetrieveRelevant(ctx context.Context, userID uuid.UUID, queryText string, limit int) ([]types.MemorySnippet, error)
}

var _ Retriever = (*PGRetriever)(nil)

// PGRetriever retrieves memories by keyword overlap against the query
// text, most recent first.
type PGRetriever struct {
	pgpool *pgxpool.Pool
	logger *slog.Logger
}

func NewPGRetriever(pgpool *pgxpool.Pool, logger *slog.Logger) *PGRetriever {
	return &PGRetriever{pgpool: pgpool, logger: logger}
}

func (r *PGRetriever) RetrieveRelevant(ctx context.Context, userID uuid.UUID, queryText string, limit int) ([]types.MemorySnippet, error) {
	ctx, span := otel.Tracer("MemoryRetriever").Start(ctx, "RetrieveRelevant")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID.String()), attribute.Int("limit", limit))

	// Any query word longer than 3 characters counts as a keyword; a
	// memory matches when its text contains one. Falls back to plain
	// recency when the query has no usable keywords.
	var keywords []string
	for _, w := range strings.Fields(strings.ToLower(queryText)) {
		if len(w) > 3 {
			keywords = append(keywords, "%"+w+"%")
		}
	}

	query := `
        SELECT text, type
        FROM memories
        WHERE user_id = $1
          AND ($2::text[] = '{}' OR text ILIKE ANY($2::text[]))
        ORDER BY created_at DESC
        LIMIT $3
    `
	if keywords == nil {
		keywords = []string{}
	}

	rows, err := r.pgpool.Query(ctx, query, userID, keywords, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "memory query failed")
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	var snippets []types.MemorySnippet
	for rows.Next() {
		var s types.MemorySnippet
		if err := rows.Scan(&s.Text, &s.Type); err != nil {
			return nil, fmt.Errorf("failed to scan memory row: %w", err)
		}
		snippets = append(snippets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memory rows: %w", err)
	}

	return snippets, nil
}
