package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiceBigramSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, DiceBigramSimilarity("night", "night"))
	assert.Equal(t, 0.0, DiceBigramSimilarity("a", "night"))
	assert.Equal(t, 0.0, DiceBigramSimilarity("", ""))

	// "night" vs "nacht": bigrams {ni,ig,gh,ht} vs {na,ac,ch,ht}, one shared.
	assert.InDelta(t, 0.25, DiceBigramSimilarity("night", "nacht"), 1e-9)

	// Symmetric.
	assert.Equal(t,
		DiceBigramSimilarity("example.com/watch", "example.com/watchlist"),
		DiceBigramSimilarity("example.com/watchlist", "example.com/watch"))

	// Near-identical URLs score high, unrelated URLs score low.
	assert.Greater(t, DiceBigramSimilarity("example.com/article/42", "example.com/article/43"), 0.8)
	assert.Less(t, DiceBigramSimilarity("example.com/article/42", "othersite.org/blog"), 0.3)
}

func TestDiceBigramSimilarityRepeatedBigrams(t *testing.T) {
	// Repeated bigrams must not be double counted: "aaaa" has three "aa"
	// bigrams, "aa" has one.
	assert.InDelta(t, 0.5, DiceBigramSimilarity("aaaa", "aa"), 1e-9)
}
