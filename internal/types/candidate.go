package types

// ExtractedCandidate is one place mention pulled out of a social post by
// the LLM extraction step. It is ephemeral: accepted candidates become
// POI signals, the rest are reported back with a reason.
type ExtractedCandidate struct {
	PlaceName       string   `json:"place_name"`
	PlaceAliases    []string `json:"place_aliases,omitempty"`
	AddressHint     string   `json:"address_hint,omitempty"`
	LandmarkHint    string   `json:"landmark_hint,omitempty"`
	CityHint        string   `json:"city_hint,omitempty"`
	CountryHint     string   `json:"country_hint,omitempty"`
	Category        string   `json:"category"`
	VibeTags        []string `json:"vibe_tags,omitempty"`
	WhatToOrder     []string `json:"what_to_order,omitempty"`
	WhySpecial      string   `json:"why_special,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	BestTimeWindows []string `json:"best_time_windows,omitempty"`
	PriceLevelHint  *int     `json:"price_level_hint,omitempty"`
	Confidence      float64  `json:"confidence"`
}

// Normalize coerces an extracted candidate into its invariants: category
// restricted to the closed set, confidence clamped to [0,1], price hint
// dropped when outside 1..4. Malformed LLM output degrades to neutral
// values instead of failing the pipeline.
func (c *ExtractedCandidate) Normalize() {
	c.Category = string(NormalizeCategory(c.Category))
	if c.Confidence < 0 {
		c.Confidence = 0
	} else if c.Confidence > 1 {
		c.Confidence = 1
	}
	if c.PriceLevelHint != nil && (*c.PriceLevelHint < 1 || *c.PriceLevelHint > 4) {
		c.PriceLevelHint = nil
	}
}

// Payload converts the candidate's opinion content into the persisted
// signal shape.
func (c *ExtractedCandidate) Payload() SignalPayload {
	return SignalPayload{
		VibeTags:        c.VibeTags,
		WhatToOrder:     c.WhatToOrder,
		WhySpecial:      c.WhySpecial,
		Warnings:        c.Warnings,
		BestTimeWindows: c.BestTimeWindows,
		PriceLevelHint:  c.PriceLevelHint,
		Category:        NormalizeCategory(c.Category),
	}
}

// PlaceResult is a single result from the place-search collaborator.
type PlaceResult struct {
	PlaceID     string   `json:"place_id"`
	Name        string   `json:"name"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Address     *string  `json:"address,omitempty"`
	Types       []string `json:"types"`
	Rating      *float64 `json:"rating,omitempty"`
	RatingCount *int     `json:"rating_count,omitempty"`
	PriceLevel  *int     `json:"price_level,omitempty"`
}

// PlaceDetails extends PlaceResult with opening-hours information from
// the place-details collaborator. IsOpenNow is nil when the provider does
// not know the hours.
type PlaceDetails struct {
	PlaceResult
	OpeningHours map[string]any `json:"opening_hours,omitempty"`
	IsOpenNow    *bool          `json:"is_open_now,omitempty"`
}
