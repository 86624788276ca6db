// Package performance provides performance tracking and monitoring
// capabilities for Trailmark operations with real-time metrics.
package performance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Tracker manages performance markers and provides metrics aggregation
type Tracker struct {
	markers    map[string]*Marker  // Active and completed markers by unique ID
	alerts     []*PerformanceAlert // Active performance alerts
	thresholds *AlertThresholds    // Configurable alert thresholds
	mu         sync.RWMutex        // Protects concurrent access
	started    time.Time           // When tracking started
	config     *TrackerConfig      // Tracker configuration
}

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	MaxMarkers   int  `json:"maxMarkers"`   // Maximum number of markers to retain
	MaxAlerts    int  `json:"maxAlerts"`    // Maximum number of alerts to retain
	EnableAlerts bool `json:"enableAlerts"` // Whether to generate performance alerts
}

// DefaultTrackerConfig returns a sensible default configuration
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		MaxMarkers:   10000,
		MaxAlerts:    500,
		EnableAlerts: true,
	}
}

// AlertThresholds defines performance thresholds for generating alerts
type AlertThresholds struct {
	// Response time thresholds
	SlowResponseThreshold     time.Duration `json:"slowResponseThreshold"`     // 500ms
	VerySlowResponseThreshold time.Duration `json:"verySlowResponseThreshold"` // 2s
	CriticalResponseThreshold time.Duration `json:"criticalResponseThreshold"` // 5s

	// Cache performance thresholds
	LowCacheHitRatio      float64 `json:"lowCacheHitRatio"`      // 0.85 (85%)
	CriticalCacheHitRatio float64 `json:"criticalCacheHitRatio"` // 0.70 (70%)

	// Operation-specific thresholds
	IngestOperationThreshold time.Duration `json:"ingestOperationThreshold"` // 200ms
	DerivationThreshold      time.Duration `json:"derivationThreshold"`      // 1s
	DatabaseQueryThreshold   time.Duration `json:"databaseQueryThreshold"`   // 50ms
}

// DefaultAlertThresholds returns sensible default alert thresholds
func DefaultAlertThresholds() *AlertThresholds {
	return &AlertThresholds{
		SlowResponseThreshold:     time.Millisecond * 500,
		VerySlowResponseThreshold: time.Second * 2,
		CriticalResponseThreshold: time.Second * 5,
		LowCacheHitRatio:          0.85,
		CriticalCacheHitRatio:     0.70,
		IngestOperationThreshold:  time.Millisecond * 200,
		DerivationThreshold:       time.Second * 1,
		DatabaseQueryThreshold:    time.Millisecond * 50,
	}
}

// NewTracker creates a new performance tracker with the given configuration
func NewTracker(config *TrackerConfig) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}

	return &Tracker{
		markers:    make(map[string]*Marker),
		alerts:     make([]*PerformanceAlert, 0),
		thresholds: DefaultAlertThresholds(),
		started:    time.Now(),
		config:     config,
	}
}

// StartOperation creates and tracks a new performance marker for an operation
func (t *Tracker) StartOperation(operation string) *Marker {
	marker := &Marker{
		Operation: operation,
		StartTime: time.Now(),
		Metadata:  make(map[string]any),
		Success:   true, // Assume success until proven otherwise
	}

	// Generate unique ID for this marker
	markerID := fmt.Sprintf("%s_%d", operation, time.Now().UnixNano())

	t.mu.Lock()
	t.markers[markerID] = marker
	if len(t.markers) > t.config.MaxMarkers {
		t.evictOldestLocked()
	}
	t.mu.Unlock()

	return marker
}

// StartOperationWithContext creates a performance marker with context cancellation support
func (t *Tracker) StartOperationWithContext(ctx context.Context, operation string) *Marker {
	marker := t.StartOperation(operation)

	// Monitor context cancellation
	go func() {
		<-ctx.Done()
		if !marker.Completed {
			marker.SetError(ctx.Err())
			marker.Complete()
		}
	}()

	return marker
}

// CompleteOperation manually completes an operation and checks for alerts
func (t *Tracker) CompleteOperation(marker *Marker) {
	if marker == nil || marker.Completed {
		return
	}

	marker.Complete()

	if t.config.EnableAlerts {
		t.checkForAlerts(marker)
	}
}

// checkForAlerts evaluates a completed marker against alert thresholds
func (t *Tracker) checkForAlerts(marker *Marker) {
	if marker == nil || !marker.Completed {
		return
	}

	alerts := t.evaluateThresholds(marker)

	t.mu.Lock()
	for _, alert := range alerts {
		t.alerts = append(t.alerts, alert)

		// Maintain max alerts limit
		if len(t.alerts) > t.config.MaxAlerts {
			t.alerts = t.alerts[len(t.alerts)-t.config.MaxAlerts:]
		}
	}
	t.mu.Unlock()
}

// evaluateThresholds checks a marker against all relevant thresholds
func (t *Tracker) evaluateThresholds(marker *Marker) []*PerformanceAlert {
	var alerts []*PerformanceAlert

	// Check general response time thresholds
	if marker.Duration > t.thresholds.CriticalResponseThreshold {
		alerts = append(alerts, t.createAlert(marker, AlertCritical,
			"Operation exceeded critical response time threshold"))
	} else if marker.Duration > t.thresholds.VerySlowResponseThreshold {
		alerts = append(alerts, t.createAlert(marker, AlertWarning,
			"Operation exceeded slow response time threshold"))
	}

	// Check operation-specific thresholds
	switch {
	case strings.Contains(marker.Operation, "ingest"):
		if marker.Duration > t.thresholds.IngestOperationThreshold {
			alerts = append(alerts, t.createAlert(marker, AlertWarning,
				"Ingest operation exceeded threshold"))
		}
	case strings.Contains(marker.Operation, "derive"):
		if marker.Duration > t.thresholds.DerivationThreshold {
			alerts = append(alerts, t.createAlert(marker, AlertWarning,
				"Session derivation exceeded threshold"))
		}
	}

	// Check cache hit ratio
	if marker.CacheHits+marker.CacheMisses > 0 {
		hitRatio := marker.GetCacheHitRatio()
		if hitRatio < t.thresholds.CriticalCacheHitRatio {
			alerts = append(alerts, t.createAlert(marker, AlertCritical,
				"Cache hit ratio critically low"))
		} else if hitRatio < t.thresholds.LowCacheHitRatio {
			alerts = append(alerts, t.createAlert(marker, AlertWarning,
				"Cache hit ratio below optimal"))
		}
	}

	return alerts
}

// createAlert creates a new performance alert
func (t *Tracker) createAlert(marker *Marker, severity AlertSeverity, message string) *PerformanceAlert {
	return &PerformanceAlert{
		ID:        fmt.Sprintf("alert_%d", time.Now().UnixNano()),
		Timestamp: time.Now(),
		Severity:  severity,
		Operation: marker.Operation,
		Actual:    marker.Duration,
		Message:   message,
		Metadata: map[string]any{
			"cacheHitRatio": marker.GetCacheHitRatio(),
			"memoryUsageMB": marker.MemoryUsage / (1024 * 1024),
			"success":       marker.Success,
		},
	}
}

// GetMetrics returns all completed performance markers
func (t *Tracker) GetMetrics() []Marker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var metrics []Marker
	for _, marker := range t.markers {
		if marker.Completed {
			metrics = append(metrics, *marker)
		}
	}
	return metrics
}

// GetRecentMetrics returns completed markers within the given window
func (t *Tracker) GetRecentMetrics(within time.Duration) []Marker {
	cutoff := time.Now().Add(-within)

	t.mu.RLock()
	defer t.mu.RUnlock()

	var metrics []Marker
	for _, marker := range t.markers {
		if marker.Completed && marker.EndTime.After(cutoff) {
			metrics = append(metrics, *marker)
		}
	}
	return metrics
}

// GetAlerts returns the current performance alerts
func (t *Tracker) GetAlerts() []*PerformanceAlert {
	t.mu.RLock()
	defer t.mu.RUnlock()

	alerts := make([]*PerformanceAlert, len(t.alerts))
	copy(alerts, t.alerts)
	return alerts
}

// GetOverallStats returns aggregate statistics for all tracked operations
func (t *Tracker) GetOverallStats() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var completed, active, failed int
	var totalDuration time.Duration
	for _, marker := range t.markers {
		if marker.Completed {
			completed++
			totalDuration += marker.Duration
			if !marker.Success {
				failed++
			}
		} else {
			active++
		}
	}

	stats := map[string]any{
		"uptime":              time.Since(t.started).String(),
		"completedOperations": completed,
		"activeOperations":    active,
		"failedOperations":    failed,
		"alertCount":          len(t.alerts),
	}
	if completed > 0 {
		stats["avgDuration"] = (totalDuration / time.Duration(completed)).String()
	}
	return stats
}

// evictOldestLocked drops the oldest completed markers; caller holds the lock.
func (t *Tracker) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, marker := range t.markers {
		if !marker.Completed {
			continue
		}
		if oldestID == "" || marker.EndTime.Before(oldest) {
			oldestID = id
			oldest = marker.EndTime
		}
	}
	if oldestID != "" {
		delete(t.markers, oldestID)
	}
}
