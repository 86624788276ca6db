package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailmark-ai/trailmark-go/internal/domain/history"
)

func TestNormalizeSkipsMissingTimestamp(t *testing.T) {
	service := NewNormalizerService(quietLogger(t))

	_, ok := service.Normalize(history.RawVisitEvent{URL: "https://go.dev/"})
	assert.False(t, ok)
}

func TestNormalizeSubtractsWebKitOffset(t *testing.T) {
	service := NewNormalizerService(quietLogger(t))

	record, ok := service.Normalize(history.RawVisitEvent{
		URL:       "https://go.dev/doc/",
		VisitTime: float64(webkitEpochOffsetMs + 1_758_542_400_000),
	})
	require.True(t, ok)
	assert.Equal(t, int64(1_758_542_400_000), record.VisitTimeMs)
}

func TestNormalizeKeepsUnixEpochTimestamp(t *testing.T) {
	service := NewNormalizerService(quietLogger(t))

	record, ok := service.Normalize(history.RawVisitEvent{
		URL:       "https://go.dev/doc/",
		VisitTime: 1_758_542_400_000,
	})
	require.True(t, ok)
	assert.Equal(t, int64(1_758_542_400_000), record.VisitTimeMs)
}

func TestNormalizeExtractsURLFeatures(t *testing.T) {
	service := NewNormalizerService(quietLogger(t))

	record, ok := service.Normalize(history.RawVisitEvent{
		URL:       "https://Shop.Example.COM/products/12345/winter-boots.html?utm_source=mail&utm_campaign=x",
		Title:     "  Winter Boots  ",
		VisitTime: 1_758_542_400_000,
	})
	require.True(t, ok)
	assert.Equal(t, "shop.example.com", record.Hostname)
	assert.Equal(t, "/products/winter-boots", record.CleanedPath)
	assert.Equal(t, "Winter Boots", record.Title)
	assert.Empty(t, record.SearchQuery)
}

func TestCleanPathStripsOpaqueSegments(t *testing.T) {
	cases := map[string]string{
		"/watch/3fa85f64-5717-4562-b3fc-2c963f66afa6": "/watch",
		"/doc/deadbeefdeadbeefdeadbeef":               "/doc",
		"/a//b///c/":                                  "/a/b/c",
		"/ref/article":                                "/article",
		"":                                            "/",
		"/9876543210":                                 "/",
	}
	for input, want := range cases {
		assert.Equal(t, want, cleanPath(input), "input %q", input)
	}
}

func TestSearchQuerySiteSpecificParam(t *testing.T) {
	service := NewNormalizerService(quietLogger(t))

	record, ok := service.Normalize(history.RawVisitEvent{
		URL:       "https://www.youtube.com/results?search_query=go+testing+tips",
		VisitTime: 1_758_542_400_000,
	})
	require.True(t, ok)
	assert.Equal(t, "go testing tips", record.SearchQuery)
}

func TestSearchQueryGenericFallback(t *testing.T) {
	service := NewNormalizerService(quietLogger(t))

	record, ok := service.Normalize(history.RawVisitEvent{
		URL:       "https://docs.example.org/find?query=session+windowing",
		VisitTime: 1_758_542_400_000,
	})
	require.True(t, ok)
	assert.Equal(t, "session windowing", record.SearchQuery)
}

func TestNormalizeMalformedURLFallsBack(t *testing.T) {
	service := NewNormalizerService(quietLogger(t))

	record, ok := service.Normalize(history.RawVisitEvent{
		URL:       "::::not a url",
		VisitTime: 1_758_542_400_000,
	})
	require.True(t, ok)
	assert.Empty(t, record.Hostname)
	assert.Equal(t, "/", record.CleanedPath)
}

func TestNormalizeBatchCountsSkipped(t *testing.T) {
	service := NewNormalizerService(quietLogger(t))

	records, skipped := service.NormalizeBatch([]history.RawVisitEvent{
		{URL: "https://go.dev/", VisitTime: 1_758_542_400_000},
		{URL: "https://go.dev/doc/"},
	})
	assert.Len(t, records, 1)
	assert.Equal(t, 1, skipped)
}
