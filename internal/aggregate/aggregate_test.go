package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zOOGal/Routed/internal/types"
)

func signalWith(payload types.SignalPayload, source types.SocialSource, confidence float64, createdAt time.Time) types.POISignal {
	return types.POISignal{
		Source:     source,
		Payload:    payload,
		Confidence: confidence,
		CreatedAt:  createdAt,
	}
}

func TestCompute(t *testing.T) {
	now := time.Now()

	t.Run("empty input yields empty aggregate", func(t *testing.T) {
		agg := Compute(nil)

		assert.Equal(t, 0, agg.TotalMentions)
		assert.Empty(t, agg.TopVibeTags)
		assert.Empty(t, agg.TopWhatToOrder)
		assert.Empty(t, agg.Warnings)
		assert.Empty(t, agg.WhySpecialSnippets)
		assert.Empty(t, agg.BestTimeWindows)
		assert.Empty(t, agg.SourcesCount)
	})

	t.Run("shared tag ranks first", func(t *testing.T) {
		signals := []types.POISignal{
			signalWith(types.SignalPayload{VibeTags: []string{"cozy", "hidden gem"}}, types.SourceReddit, 0.8, now),
			signalWith(types.SignalPayload{VibeTags: []string{"cozy", "romantic"}}, types.SourceXHS, 0.9, now),
			signalWith(types.SignalPayload{VibeTags: []string{"cozy"}}, types.SourceReddit, 0.7, now),
		}

		agg := Compute(signals)

		assert.Equal(t, 3, agg.TotalMentions)
		assert.Equal(t, "cozy", agg.TopVibeTags[0])
		assert.Equal(t, map[string]int{"reddit": 2, "xhs": 1}, agg.SourcesCount)
	})

	t.Run("warnings deduplicated by exact text", func(t *testing.T) {
		signals := []types.POISignal{
			signalWith(types.SignalPayload{Warnings: []string{"cash only", "long lines"}}, types.SourceManual, 0.5, now),
			signalWith(types.SignalPayload{Warnings: []string{"cash only"}}, types.SourceManual, 0.5, now),
		}

		agg := Compute(signals)
		assert.ElementsMatch(t, []string{"cash only", "long lines"}, agg.Warnings)
	})

	t.Run("why special keeps first-seen order and skips duplicates", func(t *testing.T) {
		signals := []types.POISignal{
			signalWith(types.SignalPayload{WhySpecial: "legendary broth"}, types.SourceManual, 0.5, now),
			signalWith(types.SignalPayload{WhySpecial: ""}, types.SourceManual, 0.5, now),
			signalWith(types.SignalPayload{WhySpecial: "legendary broth"}, types.SourceManual, 0.5, now),
			signalWith(types.SignalPayload{WhySpecial: "hidden location"}, types.SourceManual, 0.5, now),
		}

		agg := Compute(signals)
		assert.Equal(t, []string{"legendary broth", "hidden location"}, agg.WhySpecialSnippets)
	})

	t.Run("frequency ties keep insertion order", func(t *testing.T) {
		signals := []types.POISignal{
			signalWith(types.SignalPayload{VibeTags: []string{"first", "second"}}, types.SourceManual, 0.5, now),
		}

		agg := Compute(signals)
		assert.Equal(t, []string{"first", "second"}, agg.TopVibeTags)
	})

	t.Run("top lists are bounded", func(t *testing.T) {
		payload := types.SignalPayload{}
		for i := 0; i < 15; i++ {
			payload.VibeTags = append(payload.VibeTags, string(rune('a'+i)))
		}
		agg := Compute([]types.POISignal{signalWith(payload, types.SourceManual, 0.5, now)})
		assert.Len(t, agg.TopVibeTags, 10)
	})
}

func TestScore(t *testing.T) {
	now := time.Now()

	t.Run("zero signals score zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Score(nil, now))
	})

	t.Run("monotonically increasing in mention count", func(t *testing.T) {
		var signals []types.POISignal
		prev := 0.0
		for i := 0; i < 5; i++ {
			signals = append(signals, signalWith(types.SignalPayload{}, types.SourceManual, 0.8, now))
			s := Score(signals, now)
			assert.Greater(t, s, prev)
			prev = s
		}
	})

	t.Run("decreasing in newest signal age", func(t *testing.T) {
		fresh := []types.POISignal{signalWith(types.SignalPayload{}, types.SourceManual, 0.8, now)}
		stale := []types.POISignal{signalWith(types.SignalPayload{}, types.SourceManual, 0.8, now.AddDate(0, -6, 0))}
		ancient := []types.POISignal{signalWith(types.SignalPayload{}, types.SourceManual, 0.8, now.AddDate(-2, 0, 0))}

		assert.Greater(t, Score(fresh, now), Score(stale, now))
		assert.Greater(t, Score(stale, now), Score(ancient, now))
	})

	t.Run("recency bonus bottoms out at zero", func(t *testing.T) {
		old := []types.POISignal{signalWith(types.SignalPayload{}, types.SourceManual, 0.5, now.AddDate(-3, 0, 0))}
		older := []types.POISignal{signalWith(types.SignalPayload{}, types.SourceManual, 0.5, now.AddDate(-5, 0, 0))}
		assert.InDelta(t, Score(old, now), Score(older, now), 1e-9)
	})

	t.Run("deterministic for identical input", func(t *testing.T) {
		signals := []types.POISignal{
			signalWith(types.SignalPayload{}, types.SourceReddit, 0.9, now.Add(-time.Hour)),
			signalWith(types.SignalPayload{}, types.SourceXHS, 0.7, now.Add(-2*time.Hour)),
		}
		assert.Equal(t, Score(signals, now), Score(signals, now))
	})
}
