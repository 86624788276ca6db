package services

import (
	"net/url"
	"sort"
	"strings"

	"github.com/trailmark-ai/trailmark-go/internal/domain/history"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/logging"
)

// DedupeService collapses consecutive near-duplicate records in a
// time-sorted slice. A candidate is dropped only when its title matches the
// last kept record (case-insensitive, trimmed, non-empty on both sides) AND
// the Dice bigram similarity of the comparison-normalized URLs meets the
// threshold. Differing or empty titles always keep the candidate; the bias
// is toward recall.
type DedupeService struct {
	threshold float64
	logger    *logging.ChanneledLogger
}

// NewDedupeService creates a new dedupe service
func NewDedupeService(threshold float64, logger *logging.ChanneledLogger) *DedupeService {
	return &DedupeService{threshold: threshold, logger: logger}
}

// Collapse walks a time-sorted slice and removes consecutive near
// duplicates. Feeding the output back in produces no further drops.
func (s *DedupeService) Collapse(records []history.VisitRecord) []history.VisitRecord {
	return s.CollapseAfter(nil, records)
}

// CollapseAfter is Collapse seeded with the most recent already-stored
// record, so a new batch's head can be collapsed against the existing log
// tail without re-storing it.
func (s *DedupeService) CollapseAfter(seed *history.VisitRecord, records []history.VisitRecord) []history.VisitRecord {
	if len(records) == 0 {
		return records
	}

	kept := make([]history.VisitRecord, 0, len(records))
	lastKept := seed
	dropped := 0

	for _, record := range records {
		if lastKept != nil && s.isNearDuplicate(*lastKept, record) {
			dropped++
			continue
		}
		kept = append(kept, record)
		lastKept = &kept[len(kept)-1]
	}

	if dropped > 0 {
		s.logger.Ingest().Debug("Collapsed consecutive duplicates",
			"input", len(records),
			"dropped", dropped)
	}
	return kept
}

func (s *DedupeService) isNearDuplicate(last, candidate history.VisitRecord) bool {
	lastTitle := strings.ToLower(strings.TrimSpace(last.Title))
	candidateTitle := strings.ToLower(strings.TrimSpace(candidate.Title))
	if lastTitle == "" || candidateTitle == "" || lastTitle != candidateTitle {
		return false
	}

	similarity := history.DiceBigramSimilarity(comparisonKey(last.URL), comparisonKey(candidate.URL))
	return similarity >= s.threshold
}

// comparisonKey normalizes a URL for similarity comparison only: lowercase
// host, fragment stripped, tracking params removed, remaining query keys
// sorted, trailing slash trimmed. Persisted record fields are untouched.
func comparisonKey(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return strings.TrimRight(strings.ToLower(rawURL), "/")
	}

	host := strings.ToLower(parsed.Host)
	path := strings.TrimRight(parsed.EscapedPath(), "/")

	query := parsed.Query()
	keys := make([]string, 0, len(query))
	for key := range query {
		if isTrackingParam(key) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	builder.WriteString(host)
	builder.WriteString(path)
	for i, key := range keys {
		if i == 0 {
			builder.WriteString("?")
		} else {
			builder.WriteString("&")
		}
		builder.WriteString(key)
		builder.WriteString("=")
		builder.WriteString(query.Get(key))
	}
	return builder.String()
}
