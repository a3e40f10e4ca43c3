package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Attendance   AttendanceConfig
	Verification VerificationConfig
	Notify       NotifyConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AttendanceConfig tunes the strategy engine defaults.
type AttendanceConfig struct {
	// PresencePolicy is the default per-checkpoint presence rule
	// ("either" or "both") applied when an event does not set its own.
	PresencePolicy string
	// MaxSessions caps SESSION_BASED segmentation.
	MaxSessions int
	// SessionHours is the target hours per synthesized session segment.
	SessionHours float64
	// CompletionCacheTTL bounds staleness of cached completion results.
	CompletionCacheTTL time.Duration
	CacheEnabled       bool
}

// VerificationConfig tunes token issuance and validation.
type VerificationConfig struct {
	// GraceWindow extends a session QR token's validity on both sides of
	// the checkpoint window.
	GraceWindow time.Duration
	// QRTokenSecret signs session QR payloads.
	QRTokenSecret string
	// CodeLength is the rotating access code digit count.
	CodeLength int
	// CodeRotationInterval is the rotating code lifetime.
	CodeRotationInterval time.Duration
}

// NotifyConfig tunes the fire-and-forget domain event dispatcher.
type NotifyConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{
		AllowedOrigins: splitAndTrim(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Attendance = AttendanceConfig{
		PresencePolicy:     v.GetString("ATTENDANCE_PRESENCE_POLICY"),
		MaxSessions:        v.GetInt("ATTENDANCE_MAX_SESSIONS"),
		SessionHours:       v.GetFloat64("ATTENDANCE_SESSION_HOURS"),
		CompletionCacheTTL: v.GetDuration("ATTENDANCE_COMPLETION_CACHE_TTL"),
		CacheEnabled:       v.GetBool("ATTENDANCE_CACHE_ENABLED"),
	}

	cfg.Verification = VerificationConfig{
		GraceWindow:          v.GetDuration("VERIFICATION_GRACE_WINDOW"),
		QRTokenSecret:        v.GetString("VERIFICATION_QR_SECRET"),
		CodeLength:           v.GetInt("VERIFICATION_CODE_LENGTH"),
		CodeRotationInterval: v.GetDuration("VERIFICATION_CODE_ROTATION_INTERVAL"),
	}

	cfg.Notify = NotifyConfig{
		Workers:    v.GetInt("NOTIFY_WORKERS"),
		BufferSize: v.GetInt("NOTIFY_BUFFER_SIZE"),
		MaxRetries: v.GetInt("NOTIFY_MAX_RETRIES"),
		RetryDelay: v.GetDuration("NOTIFY_RETRY_DELAY"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "attendance")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "change-me")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ATTENDANCE_PRESENCE_POLICY", "either")
	v.SetDefault("ATTENDANCE_MAX_SESSIONS", 6)
	v.SetDefault("ATTENDANCE_SESSION_HOURS", 4.0)
	v.SetDefault("ATTENDANCE_COMPLETION_CACHE_TTL", 30*time.Second)
	v.SetDefault("ATTENDANCE_CACHE_ENABLED", true)

	v.SetDefault("VERIFICATION_GRACE_WINDOW", 10*time.Minute)
	v.SetDefault("VERIFICATION_QR_SECRET", "change-me-too")
	v.SetDefault("VERIFICATION_CODE_LENGTH", 6)
	v.SetDefault("VERIFICATION_CODE_ROTATION_INTERVAL", 5*time.Minute)

	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_BUFFER_SIZE", 64)
	v.SetDefault("NOTIFY_MAX_RETRIES", 3)
	v.SetDefault("NOTIFY_RETRY_DELAY", time.Second)
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
