package social

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zOOGal/Routed/internal/types"
)

// MockRepository is a mock implementation of Repository.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreatePost(ctx context.Context, post *types.SocialPost) error {
	args := m.Called(ctx, post)
	if args.Error(0) == nil {
		post.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockRepository) CreateExtraction(ctx context.Context, extraction *types.SocialExtraction) error {
	args := m.Called(ctx, extraction)
	if args.Error(0) == nil {
		extraction.ID = uuid.New()
	}
	return args.Error(0)
}

// MockExtractor is a mock implementation of Extractor.
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) ExtractCandidates(ctx context.Context, rawText, cityHint string) ([]types.ExtractedCandidate, error) {
	args := m.Called(ctx, rawText, cityHint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ExtractedCandidate), args.Error(1)
}

// MockCanonicalService is a mock implementation of canonical.Service.
type MockCanonicalService struct {
	mock.Mock
}

func (m *MockCanonicalService) CanonicalizePost(ctx context.Context, postID uuid.UUID, threshold float64) (*types.CanonicalizeResult, error) {
	args := m.Called(ctx, postID, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.CanonicalizeResult), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func fuunjiCandidate() types.ExtractedCandidate {
	return types.ExtractedCandidate{
		PlaceName:   "Fuunji",
		CityHint:    "Tokyo",
		Category:    "food",
		WhatToOrder: []string{"tsukemen"},
		Confidence:  0.9,
	}
}

func TestIngestPost_InvalidSource(t *testing.T) {
	svc := NewService(new(MockRepository), new(MockExtractor), new(MockCanonicalService), testLogger())

	_, err := svc.IngestPost(context.Background(), types.SocialPostCreateRequest{
		Source:  "myspace",
		RawText: "some text",
	})
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestIngestPost_EmptyText(t *testing.T) {
	svc := NewService(new(MockRepository), new(MockExtractor), new(MockCanonicalService), testLogger())

	_, err := svc.IngestPost(context.Background(), types.SocialPostCreateRequest{
		Source:  types.SourceManual,
		RawText: "   ",
	})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestIngestPost_StoresExtractsAndCanonicalizes(t *testing.T) {
	repo := new(MockRepository)
	repo.On("CreatePost", mock.Anything, mock.Anything).Return(nil)
	repo.On("CreateExtraction", mock.Anything, mock.Anything).Return(nil)

	extractor := new(MockExtractor)
	extractor.On("ExtractCandidates", mock.Anything, "best tsukemen at Fuunji", "Tokyo").
		Return([]types.ExtractedCandidate{fuunjiCandidate()}, nil)

	canonicalSvc := new(MockCanonicalService)
	canonicalSvc.On("CanonicalizePost", mock.Anything, mock.Anything, mock.Anything).
		Return(&types.CanonicalizeResult{
			Linked:    []types.LinkedPOI{{POIID: uuid.New(), Name: "Fuunji", MatchConfidence: 0.92}},
			Unmatched: []types.UnmatchedCandidate{},
		}, nil)

	svc := NewService(repo, extractor, canonicalSvc, testLogger())
	result, err := svc.IngestPost(context.Background(), types.SocialPostCreateRequest{
		Source:   types.SourceManual,
		RawText:  "best tsukemen at Fuunji",
		CityHint: "Tokyo",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.CandidatesFound)
	require.NotNil(t, result.Canonicalized)
	assert.Len(t, result.Canonicalized.Linked, 1)
	repo.AssertExpectations(t)
	extractor.AssertExpectations(t)
	canonicalSvc.AssertExpectations(t)
}

func TestIngestPost_ExtractionFailureStoresEmptyExtraction(t *testing.T) {
	repo := new(MockRepository)
	repo.On("CreatePost", mock.Anything, mock.Anything).Return(nil)
	repo.On("CreateExtraction", mock.Anything, mock.MatchedBy(func(e *types.SocialExtraction) bool {
		return len(e.Candidates) == 0 && e.Confidence == 0
	})).Return(nil)

	extractor := new(MockExtractor)
	extractor.On("ExtractCandidates", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("model unavailable"))

	canonicalSvc := new(MockCanonicalService)

	svc := NewService(repo, extractor, canonicalSvc, testLogger())
	result, err := svc.IngestPost(context.Background(), types.SocialPostCreateRequest{
		Source:  types.SourceReddit,
		RawText: "great ramen spot",
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.CandidatesFound)
	assert.Nil(t, result.Canonicalized)
	canonicalSvc.AssertNotCalled(t, "CanonicalizePost")
	repo.AssertExpectations(t)
}

func TestIngestPost_CanonicalizationFailureKeepsIngest(t *testing.T) {
	repo := new(MockRepository)
	repo.On("CreatePost", mock.Anything, mock.Anything).Return(nil)
	repo.On("CreateExtraction", mock.Anything, mock.Anything).Return(nil)

	extractor := new(MockExtractor)
	extractor.On("ExtractCandidates", mock.Anything, mock.Anything, mock.Anything).
		Return([]types.ExtractedCandidate{fuunjiCandidate()}, nil)

	canonicalSvc := new(MockCanonicalService)
	canonicalSvc.On("CanonicalizePost", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("db down"))

	svc := NewService(repo, extractor, canonicalSvc, testLogger())
	result, err := svc.IngestPost(context.Background(), types.SocialPostCreateRequest{
		Source:  types.SourceManual,
		RawText: "best tsukemen at Fuunji",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.CandidatesFound)
	assert.Nil(t, result.Canonicalized)
}

func TestIngestPost_AverageConfidence(t *testing.T) {
	repo := new(MockRepository)
	repo.On("CreatePost", mock.Anything, mock.Anything).Return(nil)
	repo.On("CreateExtraction", mock.Anything, mock.MatchedBy(func(e *types.SocialExtraction) bool {
		return e.Confidence > 0.59 && e.Confidence < 0.61
	})).Return(nil)

	extractor := new(MockExtractor)
	extractor.On("ExtractCandidates", mock.Anything, mock.Anything, mock.Anything).
		Return([]types.ExtractedCandidate{
			{PlaceName: "A", Category: "food", Confidence: 0.8},
			{PlaceName: "B", Category: "cafe", Confidence: 0.4},
		}, nil)

	canonicalSvc := new(MockCanonicalService)
	canonicalSvc.On("CanonicalizePost", mock.Anything, mock.Anything, mock.Anything).
		Return(&types.CanonicalizeResult{}, nil)

	svc := NewService(repo, extractor, canonicalSvc, testLogger())
	_, err := svc.IngestPost(context.Background(), types.SocialPostCreateRequest{
		Source:  types.SourceManual,
		RawText: "two places",
	})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestIngestBatch_PerItemIsolation(t *testing.T) {
	repo := new(MockRepository)
	repo.On("CreatePost", mock.Anything, mock.Anything).Return(nil)
	repo.On("CreateExtraction", mock.Anything, mock.Anything).Return(nil)

	extractor := new(MockExtractor)
	extractor.On("ExtractCandidates", mock.Anything, mock.Anything, mock.Anything).
		Return([]types.ExtractedCandidate{}, nil)

	svc := NewService(repo, extractor, new(MockCanonicalService), testLogger())
	summary := svc.IngestBatch(context.Background(), []types.SocialPostCreateRequest{
		{Source: types.SourceManual, RawText: "first post"},
		{Source: "myspace", RawText: "bad source"},
		{Source: types.SourceManual, RawText: "third post"},
	})

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Items, 3)
	assert.NotNil(t, summary.Items[0].Result)
	assert.NotEmpty(t, summary.Items[1].Error)
	assert.Equal(t, 1, summary.Items[1].Index)
	assert.NotNil(t, summary.Items[2].Result)
}

func TestParseExtraction_MarkdownFences(t *testing.T) {
	text := "```json\n{\"candidates\":[{\"place_name\":\"Fuunji\",\"category\":\"food\",\"confidence\":1.4}]}\n```"
	candidates, err := parseExtraction(text)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Fuunji", candidates[0].PlaceName)
	// Normalized: confidence clamped to [0,1].
	assert.Equal(t, 1.0, candidates[0].Confidence)
}

func TestParseExtraction_DropsNameless(t *testing.T) {
	text := `{"candidates":[{"place_name":"  ","category":"food"},{"place_name":"Real Place","category":"weird"}]}`
	candidates, err := parseExtraction(text)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Real Place", candidates[0].PlaceName)
	assert.Equal(t, "other", candidates[0].Category)
}

func TestParseExtraction_MalformedJSON(t *testing.T) {
	_, err := parseExtraction("not json at all")
	assert.Error(t, err)
}
