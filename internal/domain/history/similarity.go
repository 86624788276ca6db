package history

// DiceBigramSimilarity computes the Dice coefficient over character bigrams
// of two strings: 2*overlap / (len(a)-1 + len(b)-1). Symmetric, 1.0 for
// identical strings, 0.0 when either string has fewer than two characters.
func DiceBigramSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) < 2 || len(b) < 2 {
		return 0.0
	}

	bigrams := make(map[string]int)
	for i := 0; i < len(a)-1; i++ {
		bigrams[a[i:i+2]]++
	}

	overlap := 0
	for i := 0; i < len(b)-1; i++ {
		pair := b[i : i+2]
		if bigrams[pair] > 0 {
			bigrams[pair]--
			overlap++
		}
	}

	return 2.0 * float64(overlap) / float64(len(a)-1+len(b)-1)
}
