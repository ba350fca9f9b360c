package social

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"github.com/zOOGal/Routed/internal/types"
)

const defaultExtractionModel = "gemini-2.0-flash"

const extractionPrompt = `You are a place extraction assistant. Given a social media post about travel, food, or local experiences, extract structured information about every place mentioned.

Return JSON with this exact schema:
{
  "candidates": [
    {
      "place_name": "string (the name of the place/restaurant/cafe/bar/shop)",
      "place_aliases": ["alternative names or spellings"],
      "address_hint": "string or null (any address info mentioned)",
      "landmark_hint": "string or null (nearby landmark mentioned)",
      "city_hint": "string or null (city/neighborhood mentioned)",
      "country_hint": "string or null (country mentioned)",
      "category": "food|cafe|bar|dessert|viewpoint|shop|other",
      "vibe_tags": ["cozy", "hidden gem", "touristy", "romantic", etc],
      "what_to_order": ["specific dishes or items mentioned as recommendations"],
      "why_special": "string (why the author recommends this place)",
      "warnings": ["any warnings: long lines, cash only, reservation needed, etc"],
      "best_time_windows": ["weekday lunch", "after 8pm", "weekend brunch", etc],
      "price_level_hint": 1 to 4 or null (1=budget, 4=splurge),
      "confidence": 0.0 to 1.0 (how confident you are this is a real, specific place)
    }
  ]
}

Rules:
- Only extract places that are clearly specific, named locations (not generic references like "a restaurant nearby")
- If the post mentions no specific places, return {"candidates": []}
- Use the original language for place names when possible, and add English translations as aliases
- Set confidence lower (< 0.5) for places only vaguely mentioned
- Set confidence higher (> 0.8) for places that are the main subject of the post
- Extract ALL places mentioned, even if briefly
- Do not invent information not present in the text
`

// Extractor pulls place candidates out of raw post text. Implementations
// must return normalized candidates; an error means no extraction could
// be produced at all.
type Extractor interface {
	ExtractCandidates(ctx context.Context, rawText, cityHint string) ([]types.ExtractedCandidate, error)
}

var _ Extractor = (*GeminiExtractor)(nil)

// GeminiExtractor runs the extraction prompt against the Gemini API.
type GeminiExtractor struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func NewGeminiExtractor(ctx context.Context, apiKey, model string, logger *slog.Logger) (*GeminiExtractor, error) {
	if model == "" {
		model = defaultExtractionModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiExtractor{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

func (e *GeminiExtractor) ExtractCandidates(ctx context.Context, rawText, cityHint string) ([]types.ExtractedCandidate, error) {
	ctx, span := otel.Tracer("SocialExtractor").Start(ctx, "ExtractCandidates")
	defer span.End()

	if strings.TrimSpace(rawText) == "" {
		return []types.ExtractedCandidate{}, nil
	}

	prompt := extractionPrompt + "\n\nSocial post text:\n\n" + rawText
	if cityHint != "" {
		prompt += fmt.Sprintf("\n\nContext: This post is about %s.", cityHint)
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.2),
		ResponseMIMEType: "application/json",
	}
	response, err := e.client.Models.GenerateContent(ctx, e.model, genai.Text(prompt), config)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction call failed")
		return nil, fmt.Errorf("failed to generate extraction: %w", err)
	}

	candidates, err := parseExtraction(response.Text())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction parse failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("social.candidate_count", len(candidates)))
	e.logger.DebugContext(ctx, "extracted place candidates",
		slog.Int("candidate_count", len(candidates)),
		slog.Int("raw_text_len", len(rawText)),
	)
	return candidates, nil
}

// parseExtraction decodes the model's JSON, tolerating markdown fences,
// and drops candidates without a place name. Every surviving candidate
// is normalized.
func parseExtraction(text string) ([]types.ExtractedCandidate, error) {
	jsonStr := cleanJSONResponse(text)

	var extracted struct {
		Candidates []types.ExtractedCandidate `json:"candidates"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &extracted); err != nil {
		return nil, fmt.Errorf("failed to parse extraction JSON: %w", err)
	}

	cleaned := make([]types.ExtractedCandidate, 0, len(extracted.Candidates))
	for _, c := range extracted.Candidates {
		if strings.TrimSpace(c.PlaceName) == "" {
			continue
		}
		c.Normalize()
		cleaned = append(cleaned, c)
	}
	return cleaned, nil
}

func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)
	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSuffix(strings.TrimSpace(response), "```")
	return strings.TrimSpace(response)
}
