package types

import (
	"time"

	"github.com/google/uuid"
)

// POIProvider identifies which place provider a POI was canonicalized against.
type POIProvider string

const (
	ProviderGoogle POIProvider = "google"
	ProviderApple  POIProvider = "apple"
	ProviderOSM    POIProvider = "osm"
	ProviderManual POIProvider = "manual"
)

// SocialSource identifies the platform a social post originated from.
type SocialSource string

const (
	SourceXHS       SocialSource = "xhs"
	SourceTikTok    SocialSource = "tiktok"
	SourceInstagram SocialSource = "instagram"
	SourceReddit    SocialSource = "reddit"
	SourceManual    SocialSource = "manual"
)

// ValidSocialSource reports whether s is one of the known platforms.
func ValidSocialSource(s SocialSource) bool {
	switch s {
	case SourceXHS, SourceTikTok, SourceInstagram, SourceReddit, SourceManual:
		return true
	}
	return false
}

// POICategory is the closed category set used by extraction and filtering.
type POICategory string

const (
	CategoryFood      POICategory = "food"
	CategoryCafe      POICategory = "cafe"
	CategoryBar       POICategory = "bar"
	CategoryDessert   POICategory = "dessert"
	CategoryViewpoint POICategory = "viewpoint"
	CategoryShop      POICategory = "shop"
	CategoryOther     POICategory = "other"
)

// NormalizeCategory maps arbitrary input onto the closed category set,
// defaulting to "other".
func NormalizeCategory(c string) POICategory {
	switch POICategory(c) {
	case CategoryFood, CategoryCafe, CategoryBar, CategoryDessert, CategoryViewpoint, CategoryShop:
		return POICategory(c)
	}
	return CategoryOther
}

// POI is a canonicalized real-world place. Identity is
// (provider, provider_place_id); a POI is created on the first accepted
// match for that provider place id and never deleted by this service.
type POI struct {
	ID              uuid.UUID   `json:"id"`
	Provider        POIProvider `json:"provider"`
	ProviderPlaceID string      `json:"provider_place_id"`
	Name            string      `json:"name"`
	Lat             float64     `json:"lat"`
	Lng             float64     `json:"lng"`
	Address         *string     `json:"address,omitempty"`
	Categories      []string    `json:"categories"`
	PriceLevel      *int        `json:"price_level,omitempty"`
	Rating          *float64    `json:"rating,omitempty"`
	RatingCount     *int        `json:"rating_count,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// SignalPayload is the free-form opinion content carried by one signal.
// Fields mirror the extraction candidate so a signal stays meaningful
// after the original post is gone.
type SignalPayload struct {
	VibeTags        []string    `json:"vibe_tags"`
	WhatToOrder     []string    `json:"what_to_order"`
	WhySpecial      string      `json:"why_special"`
	Warnings        []string    `json:"warnings"`
	BestTimeWindows []string    `json:"best_time_windows"`
	PriceLevelHint  *int        `json:"price_level_hint,omitempty"`
	Category        POICategory `json:"category"`
}

// POISignal is one social-post-derived fact about a POI. Immutable once
// created; many accumulate per POI over time.
type POISignal struct {
	ID           uuid.UUID     `json:"id"`
	POIID        uuid.UUID     `json:"poi_id"`
	Source       SocialSource  `json:"source"`
	SocialPostID *uuid.UUID    `json:"social_post_id,omitempty"`
	Payload      SignalPayload `json:"payload"`
	Confidence   float64       `json:"confidence"`
	CreatedAt    time.Time     `json:"created_at"`
}

// POIAggregate is the derived summary of all signals for one POI. It is
// always recomputed from scratch on signal insertion, never patched
// incrementally, so it stays a pure function of the current signal set.
type POIAggregate struct {
	POIID              uuid.UUID      `json:"poi_id"`
	TopVibeTags        []string       `json:"top_vibe_tags"`
	TopWhatToOrder     []string       `json:"top_what_to_order"`
	Warnings           []string       `json:"warnings"`
	WhySpecialSnippets []string       `json:"why_special_snippets"`
	BestTimeWindows    []string       `json:"best_time_windows"`
	SourcesCount       map[string]int `json:"sources_count"`
	TotalMentions      int            `json:"total_mentions"`
	Score              float64        `json:"score"`
	UpdatedAt          time.Time      `json:"updated_at"`
}
