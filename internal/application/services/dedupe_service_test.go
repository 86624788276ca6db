package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trailmark-ai/trailmark-go/internal/domain/history"
)

func dedupeRecord(offsetMin int, url, title string) history.VisitRecord {
	return history.VisitRecord{
		URL:         url,
		Title:       title,
		VisitTimeMs: int64(offsetMin) * 60_000,
	}
}

func testDeduper(t *testing.T) *DedupeService {
	t.Helper()
	return NewDedupeService(0.72, quietLogger(t))
}

func TestCollapseDropsNearDuplicate(t *testing.T) {
	deduper := testDeduper(t)

	kept := deduper.Collapse([]history.VisitRecord{
		dedupeRecord(0, "https://news.example.com/story/climate-report", "Climate Report"),
		dedupeRecord(1, "https://news.example.com/story/climate-report?utm_source=mail", "Climate Report"),
	})
	assert.Len(t, kept, 1)
}

func TestCollapseKeepsDifferentTitles(t *testing.T) {
	deduper := testDeduper(t)

	kept := deduper.Collapse([]history.VisitRecord{
		dedupeRecord(0, "https://news.example.com/story/climate-report", "Climate Report"),
		dedupeRecord(1, "https://news.example.com/story/climate-report", "Climate Report - Comments"),
	})
	assert.Len(t, kept, 2)
}

func TestCollapseKeepsEmptyTitles(t *testing.T) {
	deduper := testDeduper(t)

	kept := deduper.Collapse([]history.VisitRecord{
		dedupeRecord(0, "https://news.example.com/story/climate-report", ""),
		dedupeRecord(1, "https://news.example.com/story/climate-report", ""),
	})
	assert.Len(t, kept, 2)
}

func TestCollapseKeepsDissimilarURLs(t *testing.T) {
	deduper := testDeduper(t)

	kept := deduper.Collapse([]history.VisitRecord{
		dedupeRecord(0, "https://news.example.com/story/climate-report", "Example"),
		dedupeRecord(1, "https://docs.other.org/completely/unrelated/path", "Example"),
	})
	assert.Len(t, kept, 2)
}

func TestCollapseOnlyConsecutive(t *testing.T) {
	deduper := testDeduper(t)

	kept := deduper.Collapse([]history.VisitRecord{
		dedupeRecord(0, "https://news.example.com/story/climate-report", "Climate Report"),
		dedupeRecord(1, "https://other.example.com/weather", "Weather"),
		dedupeRecord(2, "https://news.example.com/story/climate-report", "Climate Report"),
	})
	assert.Len(t, kept, 3, "non-adjacent repeats are distinct visits")
}

func TestCollapseIdempotent(t *testing.T) {
	deduper := testDeduper(t)

	input := []history.VisitRecord{
		dedupeRecord(0, "https://news.example.com/story/climate-report", "Climate Report"),
		dedupeRecord(1, "https://news.example.com/story/climate-report/", "Climate Report"),
		dedupeRecord(2, "https://other.example.com/weather", "Weather"),
	}
	once := deduper.Collapse(input)
	twice := deduper.Collapse(once)
	assert.Equal(t, once, twice)
}

func TestCollapseAfterSeedsFromLogTail(t *testing.T) {
	deduper := testDeduper(t)
	seed := dedupeRecord(0, "https://news.example.com/story/climate-report", "Climate Report")

	kept := deduper.CollapseAfter(&seed, []history.VisitRecord{
		dedupeRecord(1, "https://news.example.com/story/climate-report?utm_medium=social", "Climate Report"),
	})
	assert.Empty(t, kept)
}

func TestComparisonKeyNormalization(t *testing.T) {
	a := comparisonKey("https://News.Example.com/Story/?b=2&a=1&utm_source=x#frag")
	b := comparisonKey("https://news.example.com/Story?a=1&b=2")
	assert.Equal(t, a, b)
}
