package types

import (
	"time"

	"github.com/google/uuid"
)

// SocialPost is a stored social media post awaiting or holding
// extractions.
type SocialPost struct {
	ID         uuid.UUID    `json:"id"`
	Source     SocialSource `json:"source"`
	URL        *string      `json:"url,omitempty"`
	ExternalID *string      `json:"external_id,omitempty"`
	RawText    string       `json:"raw_text"`
	Language   *string      `json:"language,omitempty"`
	Author     *string      `json:"author,omitempty"`
	PostedAt   *time.Time   `json:"posted_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// SocialExtraction is one LLM extraction run over a post. The most
// recent extraction for a post is the one canonicalization consumes.
type SocialExtraction struct {
	ID           uuid.UUID            `json:"id"`
	SocialPostID uuid.UUID            `json:"social_post_id"`
	Candidates   []ExtractedCandidate `json:"candidates"`
	Confidence   float64              `json:"confidence"`
	CreatedAt    time.Time            `json:"created_at"`
}

// SocialPostCreateRequest is the ingest call surface.
type SocialPostCreateRequest struct {
	Source   SocialSource `json:"source"`
	URL      string       `json:"url,omitempty"`
	RawText  string       `json:"raw_text"`
	CityHint string       `json:"city_hint,omitempty"`
}

// LinkedPOI reports one accepted canonicalization match.
type LinkedPOI struct {
	POIID           uuid.UUID `json:"poi_id"`
	ProviderPlaceID string    `json:"provider_place_id"`
	MatchConfidence float64   `json:"match_confidence"`
	Name            string    `json:"name"`
}

// UnmatchedCandidate reports one rejected candidate with the reason it
// failed to canonicalize.
type UnmatchedCandidate struct {
	Candidate ExtractedCandidate `json:"candidate"`
	Reason    string             `json:"reason"`
	BestScore *float64           `json:"best_score,omitempty"`
}

// CanonicalizeResult partitions a post's candidates into linked POIs and
// unmatched candidates.
type CanonicalizeResult struct {
	Linked    []LinkedPOI          `json:"created_or_linked_pois"`
	Unmatched []UnmatchedCandidate `json:"unmatched_candidates"`
}

// IngestResult is the outcome of ingesting one post end to end.
type IngestResult struct {
	Post            SocialPost          `json:"post"`
	CandidatesFound int                 `json:"candidates_found"`
	Canonicalized   *CanonicalizeResult `json:"canonicalized,omitempty"`
}

// BatchItemResult is the per-item outcome inside a batch ingest. One bad
// item never aborts its siblings.
type BatchItemResult struct {
	Index  int           `json:"index"`
	Result *IngestResult `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// BatchIngestSummary totals a batch ingest run.
type BatchIngestSummary struct {
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Items     []BatchItemResult `json:"items"`
}
