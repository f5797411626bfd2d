package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"jobsync/internal/retry"
	"jobsync/internal/service"
	"jobsync/internal/source"

	"github.com/robfig/cron/v3"
)

// Store backends
const (
	StoreDynamoDB = "dynamodb"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Settings holds all runtime configuration for both binaries
type Settings struct {
	Server   ServerSettings
	Store    StoreSettings
	Cache    CacheSettings
	Cluster  ClusterSettings
	Notify   NotifySettings
	Schedule ScheduleSettings
	Sources  SourceSettings
}

// ServerSettings holds HTTP and logging settings
type ServerSettings struct {
	Port         string
	NotifierPort string
	LogMode      string // "production" or "development"
	NodeID       string
}

// StoreSettings selects and locates the job store
type StoreSettings struct {
	Backend            string
	AWSRegion          string
	DynamoDBEndpoint   string
	JobsTable          string
	SubscriptionsTable string
	DatabaseURL        string
}

// CacheSettings configures the read cache. An empty RedisAddr uses a process-local cache.
type CacheSettings struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// ClusterSettings configures optional ZooKeeper coordination
type ClusterSettings struct {
	ZKServers        []string
	ZKSessionTimeout time.Duration
}

// NotifySettings configures how new jobs reach subscribers
type NotifySettings struct {
	Mode            string
	SQSEndpoint     string
	QueueURL        string
	QueueWorkers    int
	PushEnabled     bool
	PushEndpoint    string
	PushAccessToken string
	PushTimeout     time.Duration
}

// ScheduleSettings holds the orchestrator cadence
type ScheduleSettings struct {
	TickSpec    string
	CleanupSpec string
	StaleAfter  time.Duration
}

// SourceSettings configures the adapters
type SourceSettings struct {
	Country         string
	IDStrategy      string
	ReliefWebApp    string
	AdzunaAppID     string
	AdzunaAppKey    string
	AdzunaCountry   string
	JSearchAPIKey   string
	JSearchQuery    string
	RemotiveSearch  string
	FetchTimeout    time.Duration
	PageDelay       time.Duration
	Enabled         map[string]bool
	Intervals       map[string]time.Duration
	DefaultInterval time.Duration
}

// Load reads configuration from environment variables with defaults for local runs
func Load() (*Settings, error) {
	hostname, _ := os.Hostname()

	s := &Settings{
		Server: ServerSettings{
			Port:         getEnv("SERVER_PORT", "8090"),
			NotifierPort: getEnv("NOTIFIER_PORT", "8091"),
			LogMode:      getEnv("LOG_MODE", "development"),
			NodeID:       getEnv("NODE_ID", hostname),
		},
		Store: StoreSettings{
			Backend:            strings.ToLower(getEnv("STORE_BACKEND", StoreDynamoDB)),
			AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
			DynamoDBEndpoint:   getEnv("DYNAMODB_ENDPOINT", ""),
			JobsTable:          getEnv("JOBS_TABLE", "jobs"),
			SubscriptionsTable: getEnv("SUBSCRIPTIONS_TABLE", "alert_subscriptions"),
			DatabaseURL:        getEnv("DATABASE_URL", ""),
		},
		Cache: CacheSettings{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getIntEnv("REDIS_DB", 0),
			TTL:           getDurationEnv("CACHE_TTL", service.DefaultCacheTTL),
		},
		Cluster: ClusterSettings{
			ZKServers:        getSliceEnv("ZK_SERVERS", nil),
			ZKSessionTimeout: getDurationEnv("ZK_SESSION_TIMEOUT", 30*time.Second),
		},
		Notify: NotifySettings{
			Mode:            strings.ToLower(getEnv("NOTIFY_MODE", service.NotifyModeInline)),
			SQSEndpoint:     getEnv("SQS_ENDPOINT", ""),
			QueueURL:        getEnv("NOTIFY_QUEUE_URL", ""),
			QueueWorkers:    getIntEnv("NOTIFY_QUEUE_WORKERS", 2),
			PushEnabled:     getBoolEnv("PUSH_ENABLED", false),
			PushEndpoint:    getEnv("PUSH_ENDPOINT", "https://exp.host"),
			PushAccessToken: getEnv("PUSH_ACCESS_TOKEN", ""),
			PushTimeout:     getDurationEnv("PUSH_TIMEOUT", 15*time.Second),
		},
		Schedule: ScheduleSettings{
			TickSpec:    getEnv("SYNC_TICK_SPEC", service.DefaultTickSpec),
			CleanupSpec: getEnv("CLEANUP_SPEC", service.DefaultCleanupSpec),
			StaleAfter:  getDurationEnv("CLEANUP_STALE_AFTER", service.DefaultStaleAfter),
		},
		Sources: SourceSettings{
			Country:         getEnv("SOURCE_COUNTRY", "Kenya"),
			IDStrategy:      getEnv("SCRAPER_ID_STRATEGY", string(source.IDContent)),
			ReliefWebApp:    getEnv("RELIEFWEB_APPNAME", "jobsync"),
			AdzunaAppID:     getEnv("ADZUNA_APP_ID", ""),
			AdzunaAppKey:    getEnv("ADZUNA_APP_KEY", ""),
			AdzunaCountry:   getEnv("ADZUNA_COUNTRY", "gb"),
			JSearchAPIKey:   getEnv("JSEARCH_API_KEY", ""),
			JSearchQuery:    getEnv("JSEARCH_QUERY", ""),
			RemotiveSearch:  getEnv("REMOTIVE_SEARCH", ""),
			FetchTimeout:    getDurationEnv("SOURCE_FETCH_TIMEOUT", 30*time.Second),
			PageDelay:       getDurationEnv("SOURCE_PAGE_DELAY", retry.DefaultPageDelay),
			DefaultInterval: getDurationEnv("SOURCE_DEFAULT_INTERVAL", service.DefaultSourceInterval),
			Enabled:         make(map[string]bool, len(source.Known)),
			Intervals:       make(map[string]time.Duration, len(source.Known)),
		},
	}

	for _, name := range source.Known {
		prefix := "SOURCE_" + strings.ToUpper(name)
		s.Sources.Enabled[name] = getBoolEnv(prefix+"_ENABLED", s.Sources.enabledByDefault(name))
		s.Sources.Intervals[name] = getDurationEnv(prefix+"_INTERVAL", s.Sources.defaultInterval(name))
	}

	return s, nil
}

// built-in intervals: APIs sync hourly, scrapers twice a day
var sourceIntervals = map[string]time.Duration{
	"reliefweb": time.Hour,
	"remotive":  time.Hour,
	"adzuna":    3 * time.Hour,
	"jsearch":   3 * time.Hour,
	"unjobs":    12 * time.Hour,
	"devjobs":   12 * time.Hour,
}

// an explicit SOURCE_DEFAULT_INTERVAL applies to every source
func (s SourceSettings) defaultInterval(name string) time.Duration {
	if os.Getenv("SOURCE_DEFAULT_INTERVAL") != "" {
		return s.DefaultInterval
	}
	if d, ok := sourceIntervals[name]; ok {
		return d
	}
	return s.DefaultInterval
}

// keyed sources are on only when their credentials are present
func (s SourceSettings) enabledByDefault(name string) bool {
	switch name {
	case "adzuna":
		return s.AdzunaAppID != "" && s.AdzunaAppKey != ""
	case "jsearch":
		return s.JSearchAPIKey != ""
	default:
		return true
	}
}

// IsProduction reports whether logs should be production JSON
func (s *Settings) IsProduction() bool {
	return s.Server.LogMode == "production"
}

// ZooKeeperEnabled reports whether cluster coordination is configured
func (s *Settings) ZooKeeperEnabled() bool {
	return len(s.Cluster.ZKServers) > 0
}

// Validate checks the settings and returns every failure joined
func (s *Settings) Validate() error {
	var errs []error

	if s.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	if s.Server.LogMode != "production" && s.Server.LogMode != "development" {
		errs = append(errs, fmt.Errorf("LOG_MODE must be 'production' or 'development', got '%s'", s.Server.LogMode))
	}

	switch s.Store.Backend {
	case StoreDynamoDB:
		if s.Store.JobsTable == "" || s.Store.SubscriptionsTable == "" {
			errs = append(errs, errors.New("JOBS_TABLE and SUBSCRIPTIONS_TABLE are required for dynamodb"))
		}
	case StorePostgres:
		if s.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be dynamodb, postgres or memory, got '%s'", s.Store.Backend))
	}

	if s.Cache.TTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be positive"))
	}

	switch s.Notify.Mode {
	case service.NotifyModeInline:
	case service.NotifyModeQueue:
		if s.Notify.QueueURL == "" {
			errs = append(errs, errors.New("NOTIFY_QUEUE_URL is required when NOTIFY_MODE is queue"))
		}
	default:
		errs = append(errs, fmt.Errorf("NOTIFY_MODE must be inline or queue, got '%s'", s.Notify.Mode))
	}
	if s.Notify.PushEnabled && s.Notify.PushEndpoint == "" {
		errs = append(errs, errors.New("PUSH_ENDPOINT is required when PUSH_ENABLED is true"))
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(s.Schedule.TickSpec); err != nil {
		errs = append(errs, fmt.Errorf("SYNC_TICK_SPEC is invalid: %w", err))
	}
	if _, err := parser.Parse(s.Schedule.CleanupSpec); err != nil {
		errs = append(errs, fmt.Errorf("CLEANUP_SPEC is invalid: %w", err))
	}
	if s.Schedule.StaleAfter <= 0 {
		errs = append(errs, errors.New("CLEANUP_STALE_AFTER must be positive"))
	}

	strategy := strings.ToLower(s.Sources.IDStrategy)
	if strategy != string(source.IDContent) && strategy != string(source.IDPositional) {
		errs = append(errs, fmt.Errorf("SCRAPER_ID_STRATEGY must be content or positional, got '%s'", s.Sources.IDStrategy))
	}
	if s.Sources.Enabled["adzuna"] && (s.Sources.AdzunaAppID == "" || s.Sources.AdzunaAppKey == "") {
		errs = append(errs, errors.New("ADZUNA_APP_ID and ADZUNA_APP_KEY are required when adzuna is enabled"))
	}
	if s.Sources.Enabled["jsearch"] && s.Sources.JSearchAPIKey == "" {
		errs = append(errs, errors.New("JSEARCH_API_KEY is required when jsearch is enabled"))
	}
	for name, d := range s.Sources.Intervals {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("SOURCE_%s_INTERVAL must be positive", strings.ToUpper(name)))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Registry maps the settings onto the source registry configuration
func (s *Settings) Registry() source.RegistryConfig {
	return source.RegistryConfig{
		Enabled:    s.Sources.Enabled,
		IDStrategy: source.ParseIDStrategy(s.Sources.IDStrategy),
		ReliefWeb: source.ReliefWebConfig{
			AppName:   s.Sources.ReliefWebApp,
			Country:   s.Sources.Country,
			PageDelay: s.Sources.PageDelay,
		},
		UNJobs:  source.UNJobsConfig{Country: s.Sources.Country},
		DevJobs: source.DevJobsConfig{Country: s.Sources.Country},
		Adzuna: source.AdzunaConfig{
			AppID:     s.Sources.AdzunaAppID,
			AppKey:    s.Sources.AdzunaAppKey,
			Country:   s.Sources.AdzunaCountry,
			PageDelay: s.Sources.PageDelay,
		},
		Remotive: source.RemotiveConfig{Search: s.Sources.RemotiveSearch},
		JSearch: source.JSearchConfig{
			APIKey:    s.Sources.JSearchAPIKey,
			Query:     s.Sources.JSearchQuery,
			PageDelay: s.Sources.PageDelay,
		},
	}
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
