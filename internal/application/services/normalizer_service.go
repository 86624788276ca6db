// Package services provides application-level orchestration services
package services

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/trailmark-ai/trailmark-go/internal/domain/history"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/logging"
)

// webkitEpochOffsetMs is the fixed offset between the WebKit epoch
// (1601-01-01) and the Unix epoch, in milliseconds. Browser history exports
// carry WebKit-epoch visit times; already-normalized inputs are passed
// through unchanged.
const webkitEpochOffsetMs = 11644473600000

var (
	numericSegmentRe = regexp.MustCompile(`^\d+$`)
	uuidSegmentRe    = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	hexSegmentRe     = regexp.MustCompile(`^[0-9a-fA-F]{16,}$`)
	opaqueSegmentRe  = regexp.MustCompile(`^[A-Za-z0-9_-]{24,}$`)
	pageSuffixRe     = regexp.MustCompile(`\.(html?|php|aspx?|jsp)$`)
)

// trackingNoiseSegments are path segments that carry referral noise rather
// than page identity.
var trackingNoiseSegments = map[string]bool{
	"ref":      true,
	"referral": true,
	"track":    true,
	"tracking": true,
	"utm":      true,
}

// trackingParams are query keys never surfaced in any output field.
var trackingParams = map[string]bool{
	"gclid":      true,
	"fbclid":     true,
	"msclkid":    true,
	"igshid":     true,
	"mc_cid":     true,
	"mc_eid":     true,
	"ref":        true,
	"ref_src":    true,
	"spm":        true,
	"yclid":      true,
	"_ga":        true,
	"wbraid":     true,
	"gbraid":     true,
	"vero_id":    true,
	"oly_enc_id": true,
}

// siteSearchParams maps hostnames to the query parameter carrying the user's
// search term on that site. Hosts not listed fall back to genericSearchParams.
var siteSearchParams = map[string]string{
	"www.google.com":    "q",
	"google.com":        "q",
	"www.bing.com":      "q",
	"duckduckgo.com":    "q",
	"search.brave.com":  "q",
	"www.youtube.com":   "search_query",
	"www.amazon.com":    "k",
	"www.amazon.de":     "k",
	"search.yahoo.com":  "p",
	"github.com":        "q",
	"stackoverflow.com": "q",
	"www.reddit.com":    "q",
	"www.ebay.com":      "_nkw",
	"www.etsy.com":      "q",
	"en.wikipedia.org":  "search",
}

var genericSearchParams = []string{"q", "query", "search", "search_query", "k", "p"}

// NormalizerService converts raw visit events into enriched VisitRecords:
// timestamp canonicalization, URL feature extraction, and tracking-parameter
// stripping.
type NormalizerService struct {
	logger *logging.ChanneledLogger
}

// NewNormalizerService creates a new normalizer service
func NewNormalizerService(logger *logging.ChanneledLogger) *NormalizerService {
	return &NormalizerService{logger: logger}
}

// Normalize converts one raw event into a VisitRecord. The boolean is false
// when the event carries no usable timestamp and must be skipped. Malformed
// URLs never fail; they produce a record with empty hostname and root path.
func (s *NormalizerService) Normalize(event history.RawVisitEvent) (history.VisitRecord, bool) {
	if !event.HasTimestamp() {
		s.logger.Ingest().Debug("Skipping event without usable timestamp", "url", event.URL)
		return history.VisitRecord{}, false
	}

	record := history.VisitRecord{
		URL:         event.URL,
		Title:       strings.TrimSpace(event.Title),
		VisitTimeMs: normalizeTimestamp(event.VisitTime),
	}
	record.Hostname, record.CleanedPath, record.SearchQuery = extractURLFeatures(event.URL)
	return record, true
}

// NormalizeBatch converts a batch of raw events, dropping the unusable ones.
func (s *NormalizerService) NormalizeBatch(events []history.RawVisitEvent) ([]history.VisitRecord, int) {
	records := make([]history.VisitRecord, 0, len(events))
	skipped := 0
	for _, event := range events {
		record, ok := s.Normalize(event)
		if !ok {
			skipped++
			continue
		}
		records = append(records, record)
	}
	return records, skipped
}

// normalizeTimestamp converts a raw-epoch timestamp to Unix milliseconds.
// The WebKit offset is subtracted only when the result stays non-negative,
// tolerating inputs that were already Unix-epoch.
func normalizeTimestamp(raw float64) int64 {
	ms := int64(raw)
	if shifted := ms - webkitEpochOffsetMs; shifted >= 0 {
		return shifted
	}
	return ms
}

// extractURLFeatures derives the lowercased hostname, the cleaned path, and
// an optional search query from a raw URL.
func extractURLFeatures(rawURL string) (hostname, cleanedPath, searchQuery string) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "", "/", ""
	}

	hostname = strings.ToLower(parsed.Hostname())
	cleanedPath = cleanPath(parsed.EscapedPath())
	searchQuery = extractSearchQuery(hostname, parsed.Query())
	return hostname, cleanedPath, searchQuery
}

// cleanPath strips identity-free segments so paths compare and cluster on
// page meaning rather than per-visit noise.
func cleanPath(path string) string {
	if path == "" {
		return "/"
	}

	kept := make([]string, 0, 8)
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		if trackingNoiseSegments[strings.ToLower(segment)] {
			continue
		}
		if numericSegmentRe.MatchString(segment) ||
			uuidSegmentRe.MatchString(segment) ||
			hexSegmentRe.MatchString(segment) ||
			opaqueSegmentRe.MatchString(segment) {
			continue
		}
		kept = append(kept, pageSuffixRe.ReplaceAllString(segment, ""))
	}

	if len(kept) == 0 {
		return "/"
	}
	return "/" + strings.Join(kept, "/")
}

// extractSearchQuery looks up the site's known search parameter first, then
// the generic fallbacks. Tracking keys are never considered.
func extractSearchQuery(hostname string, query url.Values) string {
	if param, ok := siteSearchParams[hostname]; ok {
		if value := cleanQueryValue(param, query.Get(param)); value != "" {
			return value
		}
	}
	for _, param := range genericSearchParams {
		if value := cleanQueryValue(param, query.Get(param)); value != "" {
			return value
		}
	}
	return ""
}

func cleanQueryValue(key, value string) string {
	if isTrackingParam(key) {
		return ""
	}
	return strings.TrimSpace(value)
}

func isTrackingParam(key string) bool {
	lower := strings.ToLower(key)
	return strings.HasPrefix(lower, "utm_") || trackingParams[lower]
}
