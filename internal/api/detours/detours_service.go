// Package detours ranks POIs from the knowledge base against a route
// corridor. The whole pipeline is request-scoped and read-only: nothing
// about a suggestion is persisted.
package detours

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zOOGal/Routed/internal/geo"
	"github.com/zOOGal/Routed/internal/match"
	"github.com/zOOGal/Routed/internal/memory"
	"github.com/zOOGal/Routed/internal/places"
	"github.com/zOOGal/Routed/internal/types"
)

const (
	// Rank score weights.
	socialWeight    = 0.6
	proximityWeight = 0.4

	// Memory reranking adjustments, applied at most once per memory.
	preferenceBoost   = 0.3
	constraintPenalty = 0.5

	// Minimum token length a memory word must have to count as a match
	// keyword.
	rerankTokenMinLen = 3

	memoryLimit        = 5
	defaultMemoryQuery = "food preferences travel dining"

	defaultMaxResults = 5
)

// displayCategories is the fixed priority order used to infer a single
// displayed category from a POI's provider types.
var displayCategories = []struct {
	name     types.POICategory
	keywords []string
}{
	{types.CategoryFood, []string{"restaurant", "food", "meal"}},
	{types.CategoryCafe, []string{"cafe", "coffee"}},
	{types.CategoryBar, []string{"bar", "pub", "night_club"}},
	{types.CategoryDessert, []string{"bakery", "ice_cream", "dessert"}},
	{types.CategoryViewpoint, []string{"tourist_attraction", "park", "viewpoint"}},
	{types.CategoryShop, []string{"store", "shop", "market"}},
}

var _ Service = (*ServiceImpl)(nil)

// Service is the detour suggestion contract.
type Service interface {
	SuggestDetours(ctx context.Context, req types.DetourSuggestRequest) *types.DetourSuggestResponse
}

type ServiceImpl struct {
	logger    *slog.Logger
	repo      Repository
	detailer  places.Detailer
	retriever memory.Retriever
	bufferKm  float64
}

func NewService(repo Repository, detailer places.Detailer, retriever memory.Retriever, bufferKm float64, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		repo:      repo,
		detailer:  detailer,
		retriever: retriever,
		bufferKm:  bufferKm,
	}
}

// candidate is one POI moving through the scoring pipeline: the
// immutable inputs plus an explicit running rank score that the stages
// adjust in sequence.
type candidate struct {
	poi        types.POI
	agg        *types.POIAggregate
	corridorKm float64
	detourMins float64
	rankScore  float64
	isOpen     *bool
}

func (c *candidate) socialScore() float64 {
	if c.agg == nil {
		return 0
	}
	return c.agg.Score
}

// SuggestDetours runs the full ranking pipeline. It never returns an
// error: failures degrade to an empty suggestion list with a reason the
// caller can surface.
func (s *ServiceImpl) SuggestDetours(ctx context.Context, req types.DetourSuggestRequest) *types.DetourSuggestResponse {
	ctx, span := otel.Tracer("DetoursService").Start(ctx, "SuggestDetours", trace.WithAttributes(
		attribute.String("detours.category_filter", req.Filters.Category),
	))
	defer span.End()

	resp := &types.DetourSuggestResponse{
		Suggestions:      []types.DetourSuggestion{},
		CorridorBufferKm: s.bufferKm,
	}

	if isZeroPoint(req.Origin) || isZeroPoint(req.Destination) {
		resp.Reason = types.DetourReasonNoLocation
		return resp
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	// Coarse bounding-box fetch, then corridor and attribute filters in
	// memory.
	box := geo.CorridorBoundingBox(req.Origin, req.Destination, s.bufferKm)
	rows, err := s.repo.ListPOIsInBoundingBox(ctx, box)
	if err != nil {
		s.logger.ErrorContext(ctx, "bounding box query failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "POI query failed")
		resp.Reason = types.DetourReasonQueryFailed
		return resp
	}

	candidates := s.filterCandidates(req, rows)
	if len(candidates) == 0 {
		s.logger.InfoContext(ctx, "no corridor candidates",
			slog.Int("bbox_pois", len(rows)),
			slog.String("category_filter", req.Filters.Category),
		)
		resp.Reason = types.DetourReasonNoCorridorPOI
		return resp
	}

	// Base rank: social score blended with corridor proximity.
	for i := range candidates {
		proximity := math.Max(0, 1.0-candidates[i].corridorKm/s.bufferKm)
		candidates[i].rankScore = candidates[i].socialScore()*socialWeight + proximity*proximityWeight
	}

	if req.UserID != nil {
		s.applyMemoryReranking(ctx, req, candidates)
	}

	sortByRankDesc(candidates)

	// Shortlist more than needed so the open-hours check has slack.
	shortlist := candidates
	if len(shortlist) > maxResults*2 {
		shortlist = shortlist[:maxResults*2]
	}

	if req.Filters.MustBeOpen {
		shortlist = s.filterOpen(ctx, shortlist, maxResults)
	}

	if len(shortlist) > maxResults {
		shortlist = shortlist[:maxResults]
	}

	for i := range shortlist {
		resp.Suggestions = append(resp.Suggestions, buildSuggestion(req, &shortlist[i]))
	}

	span.SetAttributes(
		attribute.Int("detours.bbox_poi_count", len(rows)),
		attribute.Int("detours.candidate_count", len(candidates)),
		attribute.Int("detours.result_count", len(resp.Suggestions)),
	)
	span.SetStatus(codes.Ok, "suggestions ranked")

	s.logger.InfoContext(ctx, "detour suggestions ranked",
		slog.Int("bbox_pois", len(rows)),
		slog.Int("corridor_candidates", len(candidates)),
		slog.Int("results", len(resp.Suggestions)),
	)

	return resp
}

// filterCandidates applies corridor, category, price and detour-time
// filters to the bounding-box rows.
func (s *ServiceImpl) filterCandidates(req types.DetourSuggestRequest, rows []POIWithAggregate) []candidate {
	var out []candidate
	for _, row := range rows {
		point := types.GeoPoint{Lat: row.POI.Lat, Lng: row.POI.Lng}

		within, corridorKm := geo.IsWithinCorridor(point, req.Origin, req.Destination, s.bufferKm)
		if !within {
			continue
		}

		if !categoryFilterAllows(req.Filters.Category, row.POI.Categories) {
			continue
		}

		// Unknown price level never excludes a POI.
		if req.Filters.PriceLevelMax != nil && row.POI.PriceLevel != nil &&
			*row.POI.PriceLevel > *req.Filters.PriceLevelMax {
			continue
		}

		detourMins := geo.EstimateDetourMinutes(req.Origin, point, req.Destination)
		if detourMins > req.MaxDetourMinutes {
			continue
		}

		out = append(out, candidate{
			poi:        row.POI,
			agg:        row.Aggregate,
			corridorKm: corridorKm,
			detourMins: detourMins,
		})
	}
	return out
}

// categoryFilterAllows checks the POI's provider types against the
// filter category's keyword set. POIs with no categories fail every
// non-"any" filter.
func categoryFilterAllows(filter string, poiCategories []string) bool {
	if filter == "" || filter == "any" {
		return true
	}
	keywords, ok := match.CategoryTypeMap[types.POICategory(filter)]
	if !ok {
		return true
	}
	for _, cat := range poiCategories {
		lower := strings.ToLower(cat)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// applyMemoryReranking adjusts rank scores from the user's stored
// preferences and constraints. A retrieval failure skips reranking
// entirely; the base ranking still stands.
func (s *ServiceImpl) applyMemoryReranking(ctx context.Context, req types.DetourSuggestRequest, candidates []candidate) {
	queryText := req.Intent
	if queryText == "" {
		queryText = defaultMemoryQuery
	}

	memories, err := s.retriever.RetrieveRelevant(ctx, *req.UserID, queryText, memoryLimit)
	if err != nil {
		s.logger.WarnContext(ctx, "memory retrieval failed, skipping reranking",
			slog.String("user_id", req.UserID.String()), slog.Any("error", err))
		return
	}
	if len(memories) == 0 {
		return
	}

	var positive, negative []string
	for _, m := range memories {
		switch m.Type {
		case types.MemoryPreference:
			positive = append(positive, strings.ToLower(m.Text))
		case types.MemoryConstraint:
			negative = append(negative, strings.ToLower(m.Text))
		}
	}

	for i := range candidates {
		c := &candidates[i]

		var parts []string
		if c.agg != nil {
			parts = append(parts, c.agg.TopVibeTags...)
			parts = append(parts, c.agg.TopWhatToOrder...)
		}
		parts = append(parts, c.poi.Name)
		combined := strings.ToLower(strings.Join(parts, " "))

		var warningsText string
		if c.agg != nil {
			warningsText = strings.ToLower(strings.Join(c.agg.Warnings, " "))
		}

		// Each memory contributes at most once: the first matching
		// token short-circuits.
		for _, pref := range positive {
			for _, word := range rerankTokens(pref) {
				if strings.Contains(combined, word) {
					c.rankScore += preferenceBoost
					break
				}
			}
		}
		for _, constraint := range negative {
			for _, word := range rerankTokens(constraint) {
				if strings.Contains(combined, word) || strings.Contains(warningsText, word) {
					c.rankScore -= constraintPenalty
					break
				}
			}
		}
	}
}

func rerankTokens(text string) []string {
	var tokens []string
	for _, w := range strings.Fields(text) {
		if len(w) > rerankTokenMinLen {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// filterOpen drops candidates the provider says are closed, keeps the
// ones with unknown hours, and fails open on lookup errors. Stops as
// soon as enough open-or-unknown candidates are collected.
func (s *ServiceImpl) filterOpen(ctx context.Context, shortlist []candidate, maxResults int) []candidate {
	var open []candidate
	for i := range shortlist {
		c := shortlist[i]

		details, err := s.detailer.GetDetails(ctx, c.poi.ProviderPlaceID)
		if err != nil {
			s.logger.WarnContext(ctx, "open-hours check failed, keeping candidate",
				slog.String("poi", c.poi.Name), slog.Any("error", err))
			open = append(open, c)
		} else if details == nil || details.IsOpenNow == nil {
			// Unknown hours: include with the caveat rather than
			// penalize uncertainty.
			open = append(open, c)
		} else {
			c.isOpen = details.IsOpenNow
			if *details.IsOpenNow {
				open = append(open, c)
			}
		}

		if len(open) >= maxResults {
			break
		}
	}
	return open
}

func buildSuggestion(req types.DetourSuggestRequest, c *candidate) types.DetourSuggestion {
	sug := types.DetourSuggestion{
		POIID:              c.poi.ID,
		Name:               c.poi.Name,
		Lat:                c.poi.Lat,
		Lng:                c.poi.Lng,
		Address:            c.poi.Address,
		Category:           string(inferCategory(c.poi.Categories)),
		AddsMinutes:        roundTo(c.detourMins, 1),
		CorridorDistanceKm: roundTo(c.corridorKm, 2),
		SocialScore:        roundTo(c.socialScore(), 2),
		Confidence:         math.Min(1.0, c.rankScore/5.0),
		WhatToOrder:        []string{},
		Warnings:           []string{},
		VibeTags:           []string{},
		SourcesCount:       map[string]int{},
		IsOpen:             c.isOpen,
	}

	if c.agg != nil {
		sug.WhySpecial = firstSnippet(c.agg.WhySpecialSnippets)
		sug.WhatToOrder = capped(c.agg.TopWhatToOrder, 3)
		sug.Warnings = c.agg.Warnings
		sug.VibeTags = capped(c.agg.TopVibeTags, 5)
		if c.agg.SourcesCount != nil {
			sug.SourcesCount = c.agg.SourcesCount
		}
	}
	return sug
}

// inferCategory picks the displayed category: the first keyword bucket,
// in priority order, that any provider type matches.
func inferCategory(poiTypes []string) types.POICategory {
	for _, bucket := range displayCategories {
		for _, t := range poiTypes {
			lower := strings.ToLower(t)
			for _, kw := range bucket.keywords {
				if strings.Contains(lower, kw) {
					return bucket.name
				}
			}
		}
	}
	return types.CategoryOther
}

func firstSnippet(snippets []string) string {
	for _, s := range snippets {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func capped(items []string, n int) []string {
	if items == nil {
		return []string{}
	}
	if len(items) > n {
		return items[:n]
	}
	return items
}

func sortByRankDesc(candidates []candidate) {
	// Stable so equal scores keep their fetch order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].rankScore > candidates[j].rankScore
	})
}

func isZeroPoint(p types.GeoPoint) bool {
	return p.Lat == 0 && p.Lng == 0
}

func roundTo(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}
