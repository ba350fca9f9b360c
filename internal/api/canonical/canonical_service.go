// Package canonical links LLM-extracted place mentions to real-world
// places via the place-search collaborator, creating POIs and signals
// and keeping each POI's aggregate in sync.
package canonical

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zOOGal/Routed/internal/match"
	"github.com/zOOGal/Routed/internal/places"
	"github.com/zOOGal/Routed/internal/types"
)

// DefaultMatchThreshold is the minimum composite match score an accepted
// candidate must reach.
const DefaultMatchThreshold = 0.55

const searchResultLimit = 3

// ErrNoExtraction is returned when the post has never been extracted;
// the precondition failure is the caller's to report, not a degraded
// result.
var ErrNoExtraction = fmt.Errorf("no extraction found for post")

// ErrPostNotFound is returned when the post itself does not exist.
var ErrPostNotFound = fmt.Errorf("social post not found")

var _ Service = (*ServiceImpl)(nil)

// Service is the canonicalization contract.
type Service interface {
	CanonicalizePost(ctx context.Context, postID uuid.UUID, threshold float64) (*types.CanonicalizeResult, error)
}

type ServiceImpl struct {
	logger   *slog.Logger
	repo     Repository
	searcher places.Searcher
}

func NewService(repo Repository, searcher places.Searcher, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		repo:     repo,
		searcher: searcher,
	}
}

// CanonicalizePost matches every extracted candidate of a post against
// the place provider and partitions them into linked POIs and unmatched
// candidates. Per-candidate failures (search errors, weak matches) never
// abort the sibling candidates; only a missing post or extraction is an
// error.
func (s *ServiceImpl) CanonicalizePost(ctx context.Context, postID uuid.UUID, threshold float64) (*types.CanonicalizeResult, error) {
	ctx, span := otel.Tracer("CanonicalService").Start(ctx, "CanonicalizePost", trace.WithAttributes(
		attribute.String("social_post.id", postID.String()),
	))
	defer span.End()

	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}

	post, err := s.repo.GetSocialPost(ctx, postID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load post")
		return nil, fmt.Errorf("failed to load social post: %w", err)
	}
	if post == nil {
		return nil, ErrPostNotFound
	}

	extraction, err := s.repo.GetLatestExtraction(ctx, postID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load extraction")
		return nil, fmt.Errorf("failed to load extraction: %w", err)
	}
	if extraction == nil {
		return nil, ErrNoExtraction
	}

	result := &types.CanonicalizeResult{
		Linked:    []types.LinkedPOI{},
		Unmatched: []types.UnmatchedCandidate{},
	}

	for _, candidate := range extraction.Candidates {
		candidate.Normalize()
		if strings.TrimSpace(candidate.PlaceName) == "" {
			continue
		}
		s.processCandidate(ctx, post, candidate, threshold, result)
	}

	span.SetAttributes(
		attribute.Int("canonical.total_candidates", len(extraction.Candidates)),
		attribute.Int("canonical.linked", len(result.Linked)),
		attribute.Int("canonical.unmatched", len(result.Unmatched)),
	)
	span.SetStatus(codes.Ok, "post canonicalized")

	s.logger.InfoContext(ctx, "canonicalized post",
		slog.String("social_post_id", postID.String()),
		slog.Int("total_candidates", len(extraction.Candidates)),
		slog.Int("linked", len(result.Linked)),
		slog.Int("unmatched", len(result.Unmatched)),
	)

	return result, nil
}

func (s *ServiceImpl) processCandidate(ctx context.Context, post *types.SocialPost, candidate types.ExtractedCandidate, threshold float64, result *types.CanonicalizeResult) {
	query := buildSearchQuery(candidate)

	// Location bias would need a geocoded hint; the text-search provider
	// handles city names in the query well enough without one.
	var locationBias *types.GeoPoint

	searchResults, err := s.searcher.SearchText(ctx, query, locationBias, searchResultLimit)
	if err != nil {
		s.logger.ErrorContext(ctx, "places search failed",
			slog.String("query", query), slog.Any("error", err))
		result.Unmatched = append(result.Unmatched, types.UnmatchedCandidate{
			Candidate: candidate,
			Reason:    fmt.Sprintf("search_error: %v", err),
		})
		return
	}
	if len(searchResults) == 0 {
		result.Unmatched = append(result.Unmatched, types.UnmatchedCandidate{
			Candidate: candidate,
			Reason:    "no_results",
		})
		return
	}

	var (
		bestPlace types.PlaceResult
		bestScore float64
	)
	for _, sr := range searchResults {
		score := match.ScoreMatch(candidate.PlaceName, types.NormalizeCategory(candidate.Category), sr, locationBias)
		if score > bestScore {
			bestScore = score
			bestPlace = sr
		}
	}

	if bestScore < threshold {
		score := bestScore
		result.Unmatched = append(result.Unmatched, types.UnmatchedCandidate{
			Candidate: candidate,
			Reason:    "below_threshold",
			BestScore: &score,
		})
		return
	}

	poiID, err := s.repo.ApplyMatch(ctx, types.ProviderGoogle, bestPlace, post.Source, post.ID, candidate.Payload(), candidate.Confidence)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to apply match",
			slog.String("provider_place_id", bestPlace.PlaceID), slog.Any("error", err))
		result.Unmatched = append(result.Unmatched, types.UnmatchedCandidate{
			Candidate: candidate,
			Reason:    fmt.Sprintf("store_error: %v", err),
		})
		return
	}

	result.Linked = append(result.Linked, types.LinkedPOI{
		POIID:           poiID,
		ProviderPlaceID: bestPlace.PlaceID,
		MatchConfidence: roundTo(bestScore, 3),
		Name:            bestPlace.Name,
	})
}

// buildSearchQuery appends the first available location hint to the
// place name: city first, then landmark, then address.
func buildSearchQuery(c types.ExtractedCandidate) string {
	parts := []string{c.PlaceName}
	switch {
	case c.CityHint != "":
		parts = append(parts, c.CityHint)
	case c.LandmarkHint != "":
		parts = append(parts, c.LandmarkHint)
	case c.AddressHint != "":
		parts = append(parts, c.AddressHint)
	}
	return strings.Join(parts, " ")
}

func roundTo(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}
