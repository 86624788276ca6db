package history

import "fmt"

const identifierPrefix = "sess-"

// Identifier derives a stable, content-based identifier from a session's
// boundary timestamps, boundary URLs, and item count. Identical inputs always
// produce identical identifiers, which is what makes re-submission detection
// against the analyzed set idempotent.
func Identifier(s *Session) string {
	var firstURL, lastURL string
	if len(s.Items) > 0 {
		firstURL = s.Items[0].URL
		lastURL = s.Items[len(s.Items)-1].URL
	}

	seed := fmt.Sprintf("%d|%d|%s|%s|%d",
		s.StartTimeMs, s.EndTimeMs, firstURL, lastURL, len(s.Items))

	return identifierPrefix + fmt.Sprintf("%08x", hash32(seed))
}

// hash32 is a 31-multiplier rolling hash over the seed string, folded to a
// non-negative 32-bit value.
func hash32(seed string) uint32 {
	var h int32
	for _, r := range seed {
		h = h*31 + int32(r)
	}
	if h < 0 {
		h = -h
	}
	return uint32(h)
}
