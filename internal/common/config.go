package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production" - controls test URL validation
	Server      ServerConfig     `toml:"server"`
	Store       StoreConfig      `toml:"store"`
	Crawler     CrawlerConfig    `toml:"crawler"`
	Dispatcher  DispatcherConfig `toml:"dispatcher"`
	Jobs        JobsConfig       `toml:"jobs"`
	Schedule    ScheduleConfig   `toml:"schedule"`
	Logging     LoggingConfig    `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StoreConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// CrawlerConfig contains category/keyword limits and search-result extraction settings
type CrawlerConfig struct {
	MaxKeywordsPerCategory int           `toml:"max_keywords_per_category"` // Max keywords allowed on a single category
	MaxKeywordLength       int           `toml:"max_keyword_length"`        // Max characters per keyword
	MaxCategoryNameLength  int           `toml:"max_category_name_length"`  // Max characters in a category name
	DefaultMaxResults      int           `toml:"default_max_results"`       // Default max_results for a job when unspecified
	MaxResultsUpperBound   int           `toml:"max_results_upper_bound"`   // Hard ceiling for max_results regardless of request
	ExtractorBrowsers      int           `toml:"extractor_browsers"`        // Pooled headless-browser instance count
	ExtractorTabs          int           `toml:"extractor_tabs"`            // Tabs per browser in the chromedp pool
	RequestTimeout         time.Duration `toml:"request_timeout"`           // Per-request HTTP timeout
	UserAgent              string        `toml:"user_agent"`                // User agent string sent by the extractor
	RateLimitPerMinute     int           `toml:"rate_limit_per_minute"`      // Default extractor rate limit (requests/minute/worker)
}

// DispatcherConfig contains worker-pool and queue rate-limiting settings
type DispatcherConfig struct {
	MaxConcurrentJobs        int `toml:"max_concurrent_jobs"`         // Bounded worker-pool size (default queue)
	CrawlRateLimitPerMinute  int `toml:"crawl_rate_limit_per_minute"` // Max jobs/minute/worker pulled from crawl_queue
	MaintenanceRatePerHour   int `toml:"maintenance_rate_per_hour"`   // Max tasks/hour pulled from maintenance_queue
	DefaultRateLimitPerMin   int `toml:"default_rate_limit_per_minute"`
	QueueVisibilityTimeout   string `toml:"queue_visibility_timeout"` // e.g. "5m"
	QueueMaxReceive          int    `toml:"queue_max_receive"`        // Max delivery attempts before dead-letter
}

// JobsConfig contains job lifecycle settings
type JobsConfig struct {
	ExecutionTimeoutSeconds int `toml:"execution_timeout_seconds"` // Per-job context.WithTimeout budget
	CleanupDays             int `toml:"cleanup_days"`              // cleanup_old_jobs retention window
	StuckThresholdHours     int `toml:"stuck_threshold_hours"`     // find_stuck_jobs heartbeat threshold
}

// ScheduleConfig contains the ambient maintenance-task cadence (robfig/cron)
// and the fixed schedule-scanner tick interval (plain ticker, not configurable via cron)
type ScheduleConfig struct {
	ScanIntervalSeconds          int    `toml:"scan_interval_seconds"`           // ScheduleScanner tick interval (spec-fixed at 60s; overridable for tests only)
	HealthMonitorCron            string `toml:"health_monitor_cron"`             // Cron schedule for periodic health checks
	CleanupCron                  string `toml:"cleanup_cron"`                    // Cron schedule for cleanup_old_jobs sweep
	StuckJobSweepCron            string `toml:"stuck_job_sweep_cron"`            // Cron schedule for find_stuck_jobs/reset_stuck_jobs sweep
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Store: StoreConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Crawler: CrawlerConfig{
			MaxKeywordsPerCategory: 20,
			MaxKeywordLength:       100,
			MaxCategoryNameLength:  255,
			DefaultMaxResults:      100,
			MaxResultsUpperBound:   500,
			ExtractorBrowsers:      5,
			ExtractorTabs:          10,
			RequestTimeout:         30 * time.Second,
			UserAgent:              "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RateLimitPerMinute:     100,
		},
		Dispatcher: DispatcherConfig{
			MaxConcurrentJobs:       10,
			CrawlRateLimitPerMinute: 20,
			MaintenanceRatePerHour:  1,
			DefaultRateLimitPerMin:  100,
			QueueVisibilityTimeout:  "5m",
			QueueMaxReceive:         3,
		},
		Jobs: JobsConfig{
			ExecutionTimeoutSeconds: 1800, // 30 minutes
			CleanupDays:             30,
			StuckThresholdHours:     2,
		},
		Schedule: ScheduleConfig{
			ScanIntervalSeconds: 60,
			HealthMonitorCron:   "0 */5 * * * *", // every 5 minutes
			CleanupCron:         "0 0 3 * * *",    // daily at 03:00
			StuckJobSweepCron:   "0 */15 * * * *", // every 15 minutes
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05.000",
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env -> CLI.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("NEWSCRAWLER_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("NEWSCRAWLER_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("NEWSCRAWLER_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("NEWSCRAWLER_BADGER_PATH"); badgerPath != "" {
		config.Store.Badger.Path = badgerPath
	}

	if level := os.Getenv("NEWSCRAWLER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("NEWSCRAWLER_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("NEWSCRAWLER_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range splitString(output, ",") {
			trimmed := trimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if maxResults := os.Getenv("NEWSCRAWLER_CRAWLER_MAX_RESULTS_UPPER_BOUND"); maxResults != "" {
		if mr, err := strconv.Atoi(maxResults); err == nil {
			config.Crawler.MaxResultsUpperBound = mr
		}
	}
	if rateLimit := os.Getenv("NEWSCRAWLER_CRAWLER_RATE_LIMIT_PER_MINUTE"); rateLimit != "" {
		if rl, err := strconv.Atoi(rateLimit); err == nil {
			config.Crawler.RateLimitPerMinute = rl
		}
	}

	if maxJobs := os.Getenv("NEWSCRAWLER_DISPATCHER_MAX_CONCURRENT_JOBS"); maxJobs != "" {
		if mj, err := strconv.Atoi(maxJobs); err == nil {
			config.Dispatcher.MaxConcurrentJobs = mj
		}
	}

	if timeout := os.Getenv("NEWSCRAWLER_JOBS_EXECUTION_TIMEOUT_SECONDS"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			config.Jobs.ExecutionTimeoutSeconds = t
		}
	}
	if stuck := os.Getenv("NEWSCRAWLER_JOBS_STUCK_THRESHOLD_HOURS"); stuck != "" {
		if s, err := strconv.Atoi(stuck); err == nil {
			config.Jobs.StuckThresholdHours = s
		}
	}

	if scan := os.Getenv("NEWSCRAWLER_SCHEDULE_SCAN_INTERVAL_SECONDS"); scan != "" {
		if s, err := strconv.Atoi(scan); err == nil {
			config.Schedule.ScanIntervalSeconds = s
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Helper functions for string manipulation
func splitString(s, sep string) []string {
	result := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		if i+len(sep) <= len(s) && s[i:i+len(sep)] == sep {
			result = append(result, s[start:i])
			start = i + len(sep)
			i = start - 1
		}
	}
	result = append(result, s[start:])
	return result
}

func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}

// ValidateCronSchedule validates a cron schedule expression (seconds-first, 6 fields)
func ValidateCronSchedule(schedule string) error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// AllowTestURLs returns true if test URLs (localhost, 127.0.0.1, etc.) are allowed.
// Test URLs are only allowed in development mode.
func (c *Config) AllowTestURLs() bool {
	return !c.IsProduction()
}

// DeepCloneConfig creates a deep copy of the Config struct
func DeepCloneConfig(c *Config) *Config {
	if c == nil {
		return nil
	}

	clone := *c

	if len(c.Logging.Output) > 0 {
		clone.Logging.Output = make([]string, len(c.Logging.Output))
		copy(clone.Logging.Output, c.Logging.Output)
	}

	return &clone
}
