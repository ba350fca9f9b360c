package social

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zOOGal/Routed/internal/api/canonical"
	"github.com/zOOGal/Routed/internal/types"
)

// ErrInvalidSource is returned when the request names an unknown
// platform.
var ErrInvalidSource = fmt.Errorf("unknown social source")

// ErrEmptyText is returned when a post arrives without any text to
// extract from.
var ErrEmptyText = fmt.Errorf("raw_text is required")

var _ Service = (*ServiceImpl)(nil)

// Service is the ingestion contract.
type Service interface {
	// IngestPost stores the post, runs extraction, stores the extraction
	// and canonicalizes the candidates. Extraction failures degrade to an
	// empty extraction; only validation and storage failures are errors.
	IngestPost(ctx context.Context, req types.SocialPostCreateRequest) (*types.IngestResult, error)
	// IngestBatch runs IngestPost per item with per-item isolation: one
	// bad item never aborts its siblings.
	IngestBatch(ctx context.Context, items []types.SocialPostCreateRequest) *types.BatchIngestSummary
}

type ServiceImpl struct {
	logger    *slog.Logger
	repo      Repository
	extractor Extractor
	canonical canonical.Service
}

func NewService(repo Repository, extractor Extractor, canonicalService canonical.Service, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		repo:      repo,
		extractor: extractor,
		canonical: canonicalService,
	}
}

func (s *ServiceImpl) IngestPost(ctx context.Context, req types.SocialPostCreateRequest) (*types.IngestResult, error) {
	ctx, span := otel.Tracer("SocialService").Start(ctx, "IngestPost", trace.WithAttributes(
		attribute.String("social_post.source", string(req.Source)),
	))
	defer span.End()

	if !types.ValidSocialSource(req.Source) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, req.Source)
	}
	if strings.TrimSpace(req.RawText) == "" {
		return nil, ErrEmptyText
	}

	post := types.SocialPost{
		Source:  req.Source,
		RawText: req.RawText,
	}
	if req.URL != "" {
		post.URL = &req.URL
	}
	if err := s.repo.CreatePost(ctx, &post); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "post insert failed")
		return nil, fmt.Errorf("failed to store post: %w", err)
	}

	// An extraction row is written even when the LLM call fails, so the
	// post is never left half-ingested and a later retry can re-extract.
	candidates, err := s.extractor.ExtractCandidates(ctx, post.RawText, req.CityHint)
	if err != nil {
		s.logger.WarnContext(ctx, "extraction failed, storing empty extraction",
			slog.String("post_id", post.ID.String()), slog.Any("error", err))
		candidates = []types.ExtractedCandidate{}
	}

	extraction := types.SocialExtraction{
		SocialPostID: post.ID,
		Candidates:   candidates,
		Confidence:   averageConfidence(candidates),
	}
	if err := s.repo.CreateExtraction(ctx, &extraction); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction insert failed")
		return nil, fmt.Errorf("failed to store extraction: %w", err)
	}

	result := &types.IngestResult{
		Post:            post,
		CandidatesFound: len(candidates),
	}

	if len(candidates) > 0 {
		canonicalized, err := s.canonical.CanonicalizePost(ctx, post.ID, canonical.DefaultMatchThreshold)
		if err != nil {
			// The post and extraction are already stored; the caller can
			// retry canonicalization on its own endpoint.
			s.logger.ErrorContext(ctx, "canonicalization failed after ingest",
				slog.String("post_id", post.ID.String()), slog.Any("error", err))
		} else {
			result.Canonicalized = canonicalized
		}
	}

	span.SetAttributes(
		attribute.String("social_post.id", post.ID.String()),
		attribute.Int("social.candidate_count", len(candidates)),
	)
	span.SetStatus(codes.Ok, "post ingested")

	s.logger.InfoContext(ctx, "ingested social post",
		slog.String("post_id", post.ID.String()),
		slog.String("source", string(post.Source)),
		slog.Int("candidates_found", len(candidates)),
		slog.Int("raw_text_len", len(post.RawText)),
	)
	return result, nil
}

func (s *ServiceImpl) IngestBatch(ctx context.Context, items []types.SocialPostCreateRequest) *types.BatchIngestSummary {
	ctx, span := otel.Tracer("SocialService").Start(ctx, "IngestBatch", trace.WithAttributes(
		attribute.Int("social.batch_size", len(items)),
	))
	defer span.End()

	summary := &types.BatchIngestSummary{
		Total: len(items),
		Items: make([]types.BatchItemResult, 0, len(items)),
	}

	for i, item := range items {
		result, err := s.IngestPost(ctx, item)
		if err != nil {
			summary.Failed++
			summary.Items = append(summary.Items, types.BatchItemResult{
				Index: i,
				Error: err.Error(),
			})
			s.logger.WarnContext(ctx, "batch item failed",
				slog.Int("index", i), slog.Any("error", err))
			continue
		}
		summary.Succeeded++
		summary.Items = append(summary.Items, types.BatchItemResult{
			Index:  i,
			Result: result,
		})
	}

	span.SetAttributes(
		attribute.Int("social.batch_succeeded", summary.Succeeded),
		attribute.Int("social.batch_failed", summary.Failed),
	)
	return summary
}

func averageConfidence(candidates []types.ExtractedCandidate) float64 {
	if len(candidates) == 0 {
		return 0
	}
	var sum float64
	for _, c := range candidates {
		sum += c.Confidence
	}
	return sum / float64(len(candidates))
}
