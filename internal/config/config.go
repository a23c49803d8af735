// Package config loads the engine configuration: detector thresholds
// from a YAML file plus a small set of environment overrides. Unknown
// environment variables are ignored.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scoutwatch/scout/internal/domain"
)

// Environment variables recognized by the engine.
const (
	EnvReferenceDateOverride = "REFERENCE_DATE_OVERRIDE"
	EnvSettlingDays          = "SETTLING_DAYS"
	EnvWorkerPoolSize        = "WORKER_POOL_SIZE"
	EnvRunTimeoutSeconds     = "RUN_TIMEOUT_SECONDS"
)

// Thresholds holds every tunable detector constant. Values mirror the
// production defaults; thresholds.yaml overrides individual fields.
type Thresholds struct {
	Disaster DisasterThresholds `yaml:"disaster"`
	Spam     SpamThresholds     `yaml:"spam"`
	Record   RecordThresholds   `yaml:"record"`
	Trend    TrendThresholds    `yaml:"trend"`

	// MaxAlertsPerProperty caps consolidated alerts per property per
	// day; P0/P1 are exempt from the cap.
	MaxAlertsPerProperty int `yaml:"max_alerts_per_property"`
}

// DisasterThresholds configures the P0 detector.
type DisasterThresholds struct {
	NearZeroSessions    float64 `yaml:"near_zero_sessions"`   // sessions below this are near-zero
	BaselineSessions    float64 `yaml:"baseline_sessions"`    // prior mean must reach this for credibility
	BaselineConversions float64 `yaml:"baseline_conversions"` // prior conversion mean floor
	DropPct             float64 `yaml:"drop_pct"`             // catastrophic drop threshold, percent
}

// SpamThresholds configures the P1 bot-burst detector.
type SpamThresholds struct {
	ZThreshold         float64 `yaml:"z_threshold"`
	ZCritical          float64 `yaml:"z_critical"`
	BounceRateFloor    float64 `yaml:"bounce_rate_floor"`    // fraction in [0,1]
	MaxSessionDuration float64 `yaml:"max_session_duration"` // seconds
	MinSegmentSessions float64 `yaml:"min_segment_sessions"`
	MinOverallSessions float64 `yaml:"min_overall_sessions"`
}

// RecordThresholds configures the 90-day record detector.
type RecordThresholds struct {
	WindowDays      int     `yaml:"window_days"`
	MinMeanSessions float64 `yaml:"min_mean_sessions"`
	SignificancePct float64 `yaml:"significance_pct"` // suppress ties below this delta
	LowImpactFloor  int     `yaml:"low_impact_floor"`
}

// TrendThresholds configures the moving-average crossover detector.
type TrendThresholds struct {
	ShortWindowDays int     `yaml:"short_window_days"`
	LongWindowDays  int     `yaml:"long_window_days"`
	MinMeanSessions float64 `yaml:"min_mean_sessions"`
	TriggerPct      float64 `yaml:"trigger_pct"` // |MA30-MA180|/MA180, percent
	MaxPerDimension int     `yaml:"max_per_dimension"`
}

// DefaultThresholds returns the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Disaster: DisasterThresholds{
			NearZeroSessions:    10,
			BaselineSessions:    100,
			BaselineConversions: 1,
			DropPct:             90,
		},
		Spam: SpamThresholds{
			ZThreshold:         3.0,
			ZCritical:          5.0,
			BounceRateFloor:    0.85,
			MaxSessionDuration: 10,
			MinSegmentSessions: 10,
			MinOverallSessions: 100,
		},
		Record: RecordThresholds{
			WindowDays:      90,
			MinMeanSessions: 100,
			SignificancePct: 5.0,
			LowImpactFloor:  40,
		},
		Trend: TrendThresholds{
			ShortWindowDays: 30,
			LongWindowDays:  180,
			MinMeanSessions: 50,
			TriggerPct:      15.0,
			MaxPerDimension: 3,
		},
		MaxAlertsPerProperty: 12,
	}
}

// RedisConfig enables the optional dataset read-through cache.
type RedisConfig struct {
	Enabled bool          `yaml:"enabled"`
	Addr    string        `yaml:"addr"`
	DB      int           `yaml:"db"`
	TTL     time.Duration `yaml:"ttl"`
}

// PostgresConfig enables the optional alert-history sink.
type PostgresConfig struct {
	Enabled      bool          `yaml:"enabled"`
	DSN          string        `yaml:"dsn"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// SMTPConfig configures the digest delivery adapter.
type SMTPConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Addr       string   `yaml:"addr"` // host:port
	From       string   `yaml:"from"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	Recipients []string `yaml:"recipients"`
}

// Config is the full engine configuration.
type Config struct {
	DataDir    string `yaml:"data_dir"`    // blob store root
	ResultsDir string `yaml:"results_dir"` // results namespace within the store

	SettlingDays    int           `yaml:"settling_days"`
	WorkerPoolSize  int           `yaml:"worker_pool_size"` // 0 means min(4*properties, 16)
	PropertyBudget  time.Duration `yaml:"property_budget"`
	RunTimeout      time.Duration `yaml:"run_timeout"`
	LoadRatePerSec  float64       `yaml:"load_rate_per_sec"`

	Thresholds Thresholds     `yaml:"thresholds"`
	Redis      RedisConfig    `yaml:"redis"`
	Postgres   PostgresConfig `yaml:"postgres"`
	SMTP       SMTPConfig     `yaml:"smtp"`

	// ReferenceDateOverride pins the run's reference date; empty means
	// derive it from the clock.
	ReferenceDateOverride string `yaml:"reference_date_override"`
}

// Default returns the engine defaults before file and env overrides.
func Default() Config {
	return Config{
		DataDir:        "data",
		ResultsDir:     "results",
		SettlingDays:   3,
		PropertyBudget: 60 * time.Second,
		RunTimeout:     10 * time.Minute,
		LoadRatePerSec: 20,
		Thresholds:     DefaultThresholds(),
		Redis:          RedisConfig{TTL: 6 * time.Hour},
		Postgres:       PostgresConfig{QueryTimeout: 30 * time.Second},
	}
}

// Load reads a YAML config file over the defaults and applies env
// overrides. An empty path loads defaults plus env only.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvReferenceDateOverride); v != "" {
		if _, err := domain.ParseDay(v); err != nil {
			return fmt.Errorf("%s: %w", EnvReferenceDateOverride, err)
		}
		c.ReferenceDateOverride = v
	}
	if v := os.Getenv(EnvSettlingDays); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSettlingDays, err)
		}
		c.SettlingDays = n
	}
	if v := os.Getenv(EnvWorkerPoolSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkerPoolSize, err)
		}
		c.WorkerPoolSize = n
	}
	if v := os.Getenv(EnvRunTimeoutSeconds); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRunTimeoutSeconds, err)
		}
		c.RunTimeout = time.Duration(n) * time.Second
	}
	return nil
}

func (c *Config) validate() error {
	if c.SettlingDays < 0 {
		return fmt.Errorf("settling_days must be >= 0, got %d", c.SettlingDays)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("run_timeout must be positive, got %s", c.RunTimeout)
	}
	if c.Thresholds.MaxAlertsPerProperty <= 0 {
		return fmt.Errorf("max_alerts_per_property must be positive, got %d", c.Thresholds.MaxAlertsPerProperty)
	}
	return nil
}

// PoolSize resolves the worker pool size for a property count.
func (c Config) PoolSize(properties int) int {
	if c.WorkerPoolSize > 0 {
		return c.WorkerPoolSize
	}
	size := properties * 4
	if size > 16 {
		size = 16
	}
	if size < 1 {
		size = 1
	}
	return size
}
