// Package match scores how well an extracted place mention lines up with
// a provider search result. Scores are all bounded to [0,1].
package match

import (
	"strings"

	"github.com/zOOGal/Routed/internal/geo"
	"github.com/zOOGal/Routed/internal/types"
)

// CategoryTypeMap maps our closed category set to provider-type
// substrings we expect to see on a matching place. Categories without an
// entry ("other") carry no expectation and score neutral.
var CategoryTypeMap = map[types.POICategory][]string{
	types.CategoryFood:      {"restaurant", "meal_delivery", "meal_takeaway", "food"},
	types.CategoryCafe:      {"cafe", "coffee"},
	types.CategoryBar:       {"bar", "night_club", "pub"},
	types.CategoryDessert:   {"bakery", "ice_cream", "dessert", "cafe"},
	types.CategoryViewpoint: {"tourist_attraction", "park", "point_of_interest", "natural_feature"},
	types.CategoryShop:      {"store", "shop", "shopping_mall", "market"},
}

// Composite weights for ScoreMatch.
const (
	nameWeight      = 0.5
	categoryWeight  = 0.3
	proximityWeight = 0.2

	// Proximity credit fades linearly to zero at this distance from the
	// location bias.
	proximityFadeKm = 50.0
)

// NameSimilarity returns a sequence-alignment similarity in [0,1]
// between two place names, case-insensitive and whitespace-trimmed.
// Empty input on either side scores 0.
func NameSimilarity(a, b string) float64 {
	ar := []rune(strings.ToLower(strings.TrimSpace(a)))
	br := []rune(strings.ToLower(strings.TrimSpace(b)))
	if len(ar) == 0 || len(br) == 0 {
		return 0.0
	}
	// Ratcliff/Obershelp: twice the total matched characters over the
	// combined length.
	matched := matchingTotal(ar, br)
	return 2.0 * float64(matched) / float64(len(ar)+len(br))
}

// matchingTotal recursively counts matched characters: take the longest
// common substring, then recurse on the pieces to its left and right.
func matchingTotal(a, b []rune) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingTotal(a[:ai], b[:bi])
	total += matchingTotal(a[ai+size:], b[bi+size:])
	return total
}

// longestCommonSubstring returns the earliest longest run of equal runes
// shared by a and b as (start in a, start in b, length).
func longestCommonSubstring(a, b []rune) (int, int, int) {
	bestA, bestB, bestLen := 0, 0, 0
	// lengths[j] is the run length ending at a[i], b[j-1] from the
	// previous row.
	lengths := make([]int, len(b)+1)
	for i := 0; i < len(a); i++ {
		prev := 0
		for j := 0; j < len(b); j++ {
			cur := lengths[j+1]
			if a[i] == b[j] {
				lengths[j+1] = prev + 1
				if lengths[j+1] > bestLen {
					bestLen = lengths[j+1]
					bestA = i - bestLen + 1
					bestB = j - bestLen + 1
				}
			} else {
				lengths[j+1] = 0
			}
			prev = cur
		}
	}
	return bestA, bestB, bestLen
}

// CategoryMatchScore scores a candidate category against provider types:
// 1.0 on any expected-substring hit, 0.0 on a miss, and a neutral 0.5
// for categories with no expectation.
func CategoryMatchScore(category types.POICategory, providerTypes []string) float64 {
	expected, ok := CategoryTypeMap[category]
	if !ok || len(expected) == 0 {
		return 0.5
	}
	for _, pt := range providerTypes {
		lower := strings.ToLower(pt)
		for _, exp := range expected {
			if strings.Contains(lower, exp) {
				return 1.0
			}
		}
	}
	return 0.0
}

// ScoreMatch combines name similarity, category match and proximity into
// one composite match score. Proximity is neutral (0.5) when no location
// bias is supplied, otherwise full credit near the bias fading to zero
// at 50km.
func ScoreMatch(candidateName string, category types.POICategory, place types.PlaceResult, locationBias *types.GeoPoint) float64 {
	ns := NameSimilarity(candidateName, place.Name)
	cs := CategoryMatchScore(category, place.Types)

	proximity := 0.5
	if locationBias != nil {
		dist := geo.HaversineKm(locationBias.Lat, locationBias.Lng, place.Lat, place.Lng)
		proximity = 1.0 - dist/proximityFadeKm
		if proximity < 0 {
			proximity = 0
		}
	}

	return ns*nameWeight + cs*categoryWeight + proximity*proximityWeight
}
