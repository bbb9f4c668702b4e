// Package config loads GeoRAG's runtime settings from the environment,
// following the teacher's getEnv/getEnvInt convention.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	LogLevel string

	CORSOrigins []string

	// Workspace defaults (§3) applied when a new Workspace is created
	// without an explicit override.
	DefaultCRS              string
	DefaultDistanceUnit     string
	DefaultGeometryValidity string

	// Embedder HTTP adapter (§6).
	EmbedderURL                string
	EmbedderModel              string
	EmbedderDimension          int
	EmbedderPoolSize           int // connection pool size; 0 means 2x NumCPU (§5)
	EmbedderIdleTimeoutSeconds int
	EmbedBatchSize             int
	EmbedBatchTimeoutSeconds   int

	// Chunking (§4.3).
	ChunkWindowSize int
	ChunkOverlap    int

	// Spatial batching (§5).
	SpatialBatchSize int

	// Pipeline (§4.8, §5).
	PipelineDeadlineSeconds int

	// Durable storage pool (§5); ignored by the in-memory adapter.
	PostgresDSN                      string
	StoragePoolMinConns              int
	StoragePoolMaxConns              int
	StoragePoolAcquireTimeoutSeconds int

	// Background build queue (internal/jobs, asynq).
	RedisURL string

	// Repair persistence (§9 Open Question b): whether a repaired
	// geometry overwrites the persisted form, or only the in-memory
	// normalized copy used for fingerprinting.
	PersistRepairs bool

	// AllowRerankFallback permits the retrieval pipeline to fall back to
	// score=1.0 spatial-then-lexicographic results when rerank is
	// requested but the Embedder is unavailable (§4.8). Default is to
	// fail with EmbedderUnavailable.
	AllowRerankFallback bool
}

func LoadConfig() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),

		DefaultCRS:              getEnv("GEORAG_DEFAULT_CRS", "EPSG:4326"),
		DefaultDistanceUnit:     getEnv("GEORAG_DEFAULT_DISTANCE_UNIT", "meters"),
		DefaultGeometryValidity: getEnv("GEORAG_DEFAULT_GEOMETRY_VALIDITY", "strict"),

		EmbedderURL:                getEnv("GEORAG_EMBEDDER_URL", "http://localhost:9000/api/embeddings"),
		EmbedderModel:              getEnv("GEORAG_EMBEDDER_MODEL", "mock-embedder-v1"),
		EmbedderDimension:          getEnvInt("GEORAG_EMBEDDER_DIMENSION", 384),
		EmbedderPoolSize:           getEnvInt("GEORAG_EMBEDDER_POOL_SIZE", 0),
		EmbedderIdleTimeoutSeconds: getEnvInt("GEORAG_EMBEDDER_IDLE_TIMEOUT_SECONDS", 60),
		EmbedBatchSize:             getEnvInt("GEORAG_EMBED_BATCH_SIZE", 64),
		EmbedBatchTimeoutSeconds:   getEnvInt("GEORAG_EMBED_BATCH_TIMEOUT_SECONDS", 30),

		ChunkWindowSize: getEnvInt("GEORAG_CHUNK_WINDOW_SIZE", 1000),
		ChunkOverlap:    getEnvInt("GEORAG_CHUNK_OVERLAP", 200),

		SpatialBatchSize: getEnvInt("GEORAG_SPATIAL_BATCH_SIZE", 256),

		PipelineDeadlineSeconds: getEnvInt("GEORAG_PIPELINE_DEADLINE_SECONDS", 10),

		PostgresDSN:                      getEnv("GEORAG_POSTGRES_DSN", ""),
		StoragePoolMinConns:              getEnvInt("GEORAG_STORAGE_POOL_MIN_CONNS", 2),
		StoragePoolMaxConns:              getEnvInt("GEORAG_STORAGE_POOL_MAX_CONNS", 10),
		StoragePoolAcquireTimeoutSeconds: getEnvInt("GEORAG_STORAGE_POOL_ACQUIRE_TIMEOUT_SECONDS", 30),

		RedisURL: getEnv("REDIS_URL", "localhost:6379"),

		PersistRepairs:      getEnvBool("GEORAG_PERSIST_REPAIRS", true),
		AllowRerankFallback: getEnvBool("GEORAG_ALLOW_RERANK_FALLBACK", false),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
