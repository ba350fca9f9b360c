package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zOOGal/Routed/internal/types"
)

func TestNameSimilarity(t *testing.T) {
	t.Run("identical names", func(t *testing.T) {
		assert.Equal(t, 1.0, NameSimilarity("Ramen Nagi", "Ramen Nagi"))
	})

	t.Run("case and whitespace insensitive", func(t *testing.T) {
		assert.Equal(t, 1.0, NameSimilarity("  RAMEN NAGI ", "ramen nagi"))
	})

	t.Run("empty input scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, NameSimilarity("", "x"))
		assert.Equal(t, 0.0, NameSimilarity("x", "   "))
	})

	t.Run("symmetric and bounded", func(t *testing.T) {
		pairs := [][2]string{
			{"Fuunji Tsukemen", "Fuunji"},
			{"Blue Bottle Coffee", "Blue Bottle"},
			{"abc", "xyz"},
		}
		for _, p := range pairs {
			ab := NameSimilarity(p[0], p[1])
			ba := NameSimilarity(p[1], p[0])
			assert.InDelta(t, ab, ba, 1e-9)
			assert.GreaterOrEqual(t, ab, 0.0)
			assert.LessOrEqual(t, ab, 1.0)
		}
	})

	t.Run("partial overlap scores between disjoint and identical", func(t *testing.T) {
		partial := NameSimilarity("Fuunji Tsukemen", "Fuunji")
		assert.Greater(t, partial, NameSimilarity("Fuunji", "Sushiro"))
		assert.Less(t, partial, 1.0)
	})
}

func TestCategoryMatchScore(t *testing.T) {
	t.Run("direct keyword hit", func(t *testing.T) {
		assert.Equal(t, 1.0, CategoryMatchScore(types.CategoryFood, []string{"restaurant", "point_of_interest"}))
		assert.Equal(t, 1.0, CategoryMatchScore(types.CategoryCafe, []string{"coffee_shop"}))
	})

	t.Run("disjoint types miss", func(t *testing.T) {
		assert.Equal(t, 0.0, CategoryMatchScore(types.CategoryBar, []string{"museum", "library"}))
	})

	t.Run("other is neutral", func(t *testing.T) {
		assert.Equal(t, 0.5, CategoryMatchScore(types.CategoryOther, []string{"restaurant"}))
	})
}

func TestScoreMatch(t *testing.T) {
	place := types.PlaceResult{
		PlaceID: "p1",
		Name:    "Ramen Nagi",
		Lat:     35.6895,
		Lng:     139.7004,
		Types:   []string{"restaurant", "food"},
	}

	t.Run("perfect match without bias", func(t *testing.T) {
		// 1.0*0.5 + 1.0*0.3 + 0.5*0.2
		got := ScoreMatch("Ramen Nagi", types.CategoryFood, place, nil)
		assert.InDelta(t, 0.9, got, 1e-9)
	})

	t.Run("bias at the place gives full proximity credit", func(t *testing.T) {
		bias := &types.GeoPoint{Lat: place.Lat, Lng: place.Lng}
		got := ScoreMatch("Ramen Nagi", types.CategoryFood, place, bias)
		assert.InDelta(t, 1.0, got, 1e-9)
	})

	t.Run("far bias zeroes proximity", func(t *testing.T) {
		bias := &types.GeoPoint{Lat: 34.6937, Lng: 135.5023} // Osaka, ~400km
		got := ScoreMatch("Ramen Nagi", types.CategoryFood, place, bias)
		assert.InDelta(t, 0.8, got, 1e-9)
	})

	t.Run("bounded", func(t *testing.T) {
		got := ScoreMatch("Something Else Entirely", types.CategoryBar, place, nil)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	})
}
