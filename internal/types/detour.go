package types

import "github.com/google/uuid"

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Reasons surfaced alongside an empty detour result so callers can tell
// the three empty cases apart.
const (
	DetourReasonNoLocation    = "no location context supplied"
	DetourReasonNoCorridorPOI = "no POIs within corridor after filtering"
	DetourReasonQueryFailed   = "POI query failed"
)

// DetourFilters narrows the candidate set before ranking.
type DetourFilters struct {
	Category      string `json:"category"`
	PriceLevelMax *int   `json:"price_level_max,omitempty"`
	MustBeOpen    bool   `json:"must_be_open"`
}

// DetourSuggestRequest is the suggest_detours call surface.
type DetourSuggestRequest struct {
	UserID           *uuid.UUID    `json:"user_id,omitempty"`
	Origin           GeoPoint      `json:"origin"`
	Destination      GeoPoint      `json:"destination"`
	MaxDetourMinutes float64       `json:"max_detour_minutes"`
	Intent           string        `json:"intent,omitempty"`
	Filters          DetourFilters `json:"filters"`
	MaxResults       int           `json:"max_results,omitempty"`
}

// DetourSuggestion is one ranked stop along the corridor. Ephemeral:
// nothing about a suggestion is persisted.
type DetourSuggestion struct {
	POIID              uuid.UUID      `json:"poi_id"`
	Name               string         `json:"name"`
	Lat                float64        `json:"lat"`
	Lng                float64        `json:"lng"`
	Address            *string        `json:"address,omitempty"`
	Category           string         `json:"category"`
	AddsMinutes        float64        `json:"adds_minutes"`
	CorridorDistanceKm float64        `json:"corridor_distance_km"`
	SocialScore        float64        `json:"social_score"`
	WhySpecial         string         `json:"why_special"`
	WhatToOrder        []string       `json:"what_to_order"`
	Warnings           []string       `json:"warnings"`
	VibeTags           []string       `json:"vibe_tags"`
	Confidence         float64        `json:"confidence"`
	SourcesCount       map[string]int `json:"sources_count"`
	IsOpen             *bool          `json:"is_open,omitempty"`
}

// DetourSuggestResponse wraps the ranked list with the corridor width
// used and, when the list is empty, a human-readable reason.
type DetourSuggestResponse struct {
	Suggestions      []DetourSuggestion `json:"suggestions"`
	CorridorBufferKm float64            `json:"corridor_buffer_km"`
	Reason           string             `json:"reason,omitempty"`
}
