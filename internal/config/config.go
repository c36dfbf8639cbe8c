package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

type StorageProvider string

const (
	StorageProviderLocal StorageProvider = "local" // Files under Storage.UploadDir (default)
	StorageProviderS3    StorageProvider = "s3"    // Objects in an S3-compatible bucket
)

type (
	Config struct {
		HTTP
		Global
		Log
		Database
		Storage
		Auth
		CORS
		RateLimit
		Tasks
		Activity
		Metrics
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Log struct {
		Level  string // debug, info, warn, error
		Format string // text or json
	}
	Database struct {
		Driver DatabaseDriver
		Path   string // SQLite file path
		DSN    string // Postgres connection string
	}
	Storage struct {
		Provider        StorageProvider
		UploadDir       string
		MaxUploadSizeMB int64
		S3Bucket        string
		S3Region        string
		S3Endpoint      string // Non-empty for MinIO and other S3-compatible services
		S3Prefix        string
	}
	Auth struct {
		SecretKey       string        // HMAC key for access tokens; generated per process if empty
		TokenExpiry     time.Duration // Access token lifetime (default: 30m)
		BcryptCost      int
		SessionLifetime time.Duration
		SecureCookies   bool // Set to false for local dev without HTTPS

		MaxLoginAttempts int           // Failed logins before the account is locked (default: 5)
		LockoutDuration  time.Duration // How long a locked account stays locked (default: 30m)

		// Failed logins allowed per client IP within RateLimitWindow, across all accounts
		IPLoginFailures int
		RateLimitWindow time.Duration
	}
	CORS struct {
		AllowedOrigins []string
	}
	RateLimit struct {
		RequestsPerSecond float64 // 0 disables the API throttle
		Burst             int
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Activity struct {
		RetentionDays      int    // 0 keeps activity forever
		AuditRetentionDays int    // 0 keeps audit events forever
		CleanupSchedule    string // Cron format: "30 3 * * *" = daily at 03:30
	}
	Metrics struct {
		Enabled bool
	}
)

// MaxUploadBytes returns the upload limit in bytes.
func (s Storage) MaxUploadBytes() int64 {
	return s.MaxUploadSizeMB << 20
}

// splitList parses a comma-separated env value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetDefault("database_driver", string(DatabaseDriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")

	// Storage defaults
	v.SetDefault("storage_provider", string(StorageProviderLocal))
	v.SetDefault("upload_dir", DefaultUploadDir)
	v.SetDefault("max_upload_size_mb", 100)
	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_prefix", "")

	// Auth defaults
	v.SetDefault("auth_secret_key", "")           // Generated if empty
	v.SetDefault("auth_token_expiry", "30m")      // Access token lifetime
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_session_lifetime", "24h")  // Cookie session lifetime
	v.SetDefault("auth_secure_cookies", false)    // Enable behind HTTPS in production
	v.SetDefault("auth_max_login_attempts", 5)    // Per-account failures before lockout
	v.SetDefault("auth_lockout_duration", "30m")  // Account lockout duration
	v.SetDefault("auth_ip_login_failures", 20)    // Per-IP failures per window
	v.SetDefault("auth_rate_limit_window", "15m") // Window for per-IP failures

	v.SetDefault("cors_allowed_origins", "http://localhost:3000")
	v.SetDefault("api_rate_limit_rps", 20)
	v.SetDefault("api_rate_limit_burst", 120) // One catalog page of covers plus the list call

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("activity_retention_days", 0) // History and download counts are kept forever
	v.SetDefault("audit_retention_days", 90)
	v.SetDefault("activity_cleanup_schedule", "30 3 * * *")
	v.SetDefault("metrics_enabled", true)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Database: Database{
			Driver: DatabaseDriver(v.GetString("DATABASE_DRIVER")),
			Path:   v.GetString("DATABASE_PATH"),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		Storage: Storage{
			Provider:        StorageProvider(v.GetString("STORAGE_PROVIDER")),
			UploadDir:       v.GetString("UPLOAD_DIR"),
			MaxUploadSizeMB: v.GetInt64("MAX_UPLOAD_SIZE_MB"),
			S3Bucket:        v.GetString("S3_BUCKET"),
			S3Region:        v.GetString("S3_REGION"),
			S3Endpoint:      v.GetString("S3_ENDPOINT"),
			S3Prefix:        v.GetString("S3_PREFIX"),
		},
		Auth: Auth{
			SecretKey:        v.GetString("AUTH_SECRET_KEY"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
			IPLoginFailures:  v.GetInt("AUTH_IP_LOGIN_FAILURES"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
		},
		CORS: CORS{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		RateLimit: RateLimit{
			RequestsPerSecond: v.GetFloat64("API_RATE_LIMIT_RPS"),
			Burst:             v.GetInt("API_RATE_LIMIT_BURST"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Activity: Activity{
			RetentionDays:      v.GetInt("ACTIVITY_RETENTION_DAYS"),
			AuditRetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
			CleanupSchedule:    v.GetString("ACTIVITY_CLEANUP_SCHEDULE"),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
	}
}
