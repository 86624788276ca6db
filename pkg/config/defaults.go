// Package config provides centralized default values for Trailmark
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseFloat(valStr, 64); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%f (default: %f)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Session Derivation
	SessionGapThreshold time.Duration
	SessionMaxDuration  time.Duration
	MinSessionItems     int

	// Visit Log
	VisitLogCapacity int

	// Deduplication
	DedupeSimilarityThreshold float64

	// Analysis Dispatch
	AnalyzedSetCapacity int
	AnalysisEndpoint    string
	AnalysisTimeout     time.Duration
	AnalysisRetryDelay  time.Duration

	// Closure Scheduling
	WakeMargin          time.Duration
	StartupSweepDelay   time.Duration
	SchedulerPollPeriod time.Duration

	// Database Pool
	DBDriver                 string
	DBPath                   string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	DBConnMaxIdleMinutes     int

	// Observability
	SlowQueryThreshold time.Duration

	// Auth
	JWTSecret    string
	AuthTokenTTL time.Duration
	AuthDisabled bool
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Session Derivation
	SessionGapThreshold = time.Duration(getEnvInt("SESSION_GAP_MINUTES", 30)) * time.Minute
	SessionMaxDuration = time.Duration(getEnvInt("SESSION_MAX_DURATION_MINUTES", 90)) * time.Minute
	MinSessionItems = getEnvInt("MIN_SESSION_ITEMS", 2)

	// Visit Log
	VisitLogCapacity = getEnvInt("VISIT_LOG_CAPACITY", 5000)

	// Deduplication
	DedupeSimilarityThreshold = getEnvFloat("DEDUPE_SIMILARITY_THRESHOLD", 0.72)

	// Analysis Dispatch
	AnalyzedSetCapacity = getEnvInt("ANALYZED_SET_CAPACITY", 200)
	AnalysisEndpoint = getEnvString("ANALYSIS_ENDPOINT", "http://localhost:8000/cluster-session")
	AnalysisTimeout = getEnvDuration("ANALYSIS_TIMEOUT", 60*time.Second)
	AnalysisRetryDelay = getEnvDuration("ANALYSIS_RETRY_DELAY", 5*time.Minute)

	// Closure Scheduling
	WakeMargin = time.Duration(getEnvInt("WAKE_MARGIN_MINUTES", 2)) * time.Minute
	StartupSweepDelay = getEnvDuration("STARTUP_SWEEP_DELAY", 15*time.Second)
	SchedulerPollPeriod = getEnvDuration("SCHEDULER_POLL_PERIOD", 30*time.Second)

	// Database Pool
	DBDriver = getEnvString("DB_DRIVER", "sqlite3")
	DBPath = getEnvString("DB_PATH", "trailmark.db")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	DBConnMaxIdleMinutes = getEnvInt("DB_CONN_MAX_IDLE_MINUTES", 3)

	// Observability
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 250*time.Millisecond)

	// Auth
	JWTSecret = getEnvString("JWT_SECRET", "")
	AuthTokenTTL = time.Duration(getEnvInt("AUTH_TOKEN_TTL_HOURS", 168)) * time.Hour
	AuthDisabled = getEnvString("AUTH_DISABLED", "false") == "true"
}
