package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/mkadlec/facegallery/internal/identity"
)

//go:embed thresholds.yaml
var thresholdsYAML []byte

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Detector   DetectorConfig
	Thresholds Thresholds
}

type ServerConfig struct {
	Addr string // listen address (default :8080)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type DetectorConfig struct {
	URL     string // face detection service (default http://localhost:8000)
	Dim     int    // embedding dimensionality (default 512)
	Timeout int    // request timeout in seconds (default 60)
}

// Thresholds holds the recognition tunables. Defaults are embedded from
// thresholds.yaml; environment variables override individual values.
type Thresholds struct {
	MatchConfidence float64                `yaml:"match_confidence"`
	ClusterDistance float64                `yaml:"cluster_distance"`
	MinDetScore     float64                `yaml:"min_det_score"`
	SearchK         int                    `yaml:"search_k"`
	Outliers        identity.OutlierPolicy `yaml:"outliers"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var thresholds Thresholds
	if err := yaml.Unmarshal(thresholdsYAML, &thresholds); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded thresholds.yaml: " + err.Error())
	}

	thresholds.MatchConfidence = envFloat("FACE_MATCH_CONFIDENCE", thresholds.MatchConfidence)
	thresholds.ClusterDistance = envFloat("FACE_CLUSTER_DISTANCE", thresholds.ClusterDistance)
	thresholds.MinDetScore = envFloat("FACE_MIN_DET_SCORE", thresholds.MinDetScore)
	thresholds.SearchK = envInt("FACE_SEARCH_K", thresholds.SearchK)
	thresholds.Outliers.Mode = envString("FACE_OUTLIER_MODE", thresholds.Outliers.Mode)
	thresholds.Outliers.MeanMultiplier = envFloat("FACE_OUTLIER_MEAN_MULTIPLIER", thresholds.Outliers.MeanMultiplier)
	thresholds.Outliers.MaxDistance = envFloat("FACE_OUTLIER_MAX_DISTANCE", thresholds.Outliers.MaxDistance)

	return &Config{
		Server: ServerConfig{
			Addr: envString("SERVER_ADDR", ":8080"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Detector: DetectorConfig{
			URL:     envString("DETECTOR_URL", "http://localhost:8000"),
			Dim:     envInt("EMBEDDING_DIM", 512),
			Timeout: envInt("DETECTOR_TIMEOUT", 60),
		},
		Thresholds: thresholds,
	}
}

// EngineConfig translates the loaded thresholds into the engine's tunables.
func (c *Config) EngineConfig() identity.Config {
	return identity.Config{
		Dimension:       c.Detector.Dim,
		MatchConfidence: c.Thresholds.MatchConfidence,
		ClusterDistance: c.Thresholds.ClusterDistance,
		MinDetScore:     c.Thresholds.MinDetScore,
		SearchK:         c.Thresholds.SearchK,
		Outliers:        c.Thresholds.Outliers,
	}
}
