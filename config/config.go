package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/joho/godotenv"
)

// Config is the process configuration read from the environment.
type Config struct {
	GoEnv    string
	Port     string
	Domain   string
	LogLevel string

	MongoURI      string
	MongoDatabase string

	JWTSecret      string
	TokenTTL       time.Duration
	RequestTimeout time.Duration
	CORSOrigins    []string

	RedisAddress             string
	RedisPassword            string
	RedisQueueForReportLimit string
	ReportDailyLimit         int
	RealtimeChannel          string

	NotifyWorkers   int
	NotifyQueueSize int
	ReminderSpec    string
	DeliverySpec    string

	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPass          string
	SMTPFrom          string
	SMTPSkipTLSVerify bool

	GCSBucket string
}

// Load reads .env when present and then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found")
	}

	return &Config{
		GoEnv:    getEnv("GO_ENV", "development"),
		Port:     getEnv("PORT", "8080"),
		Domain:   getEnv("DOMAIN", ""),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MongoURI:      getEnv("MONGODB_URI", ""),
		MongoDatabase: getEnv("MONGODB_DATABASE", "safasajha"),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		TokenTTL:       getDuration("JWT_TTL", 72*time.Hour),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 5*time.Second),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		RedisAddress:             getEnv("REDIS_ADDRESS", ""),
		RedisPassword:            getEnv("REDIS_PASSWORD", ""),
		RedisQueueForReportLimit: getEnv("REDIS_QUEUE_FOR_REPORT_LIMIT", "report-limit"),
		ReportDailyLimit:         getInt("REPORT_DAILY_LIMIT", 20),
		RealtimeChannel:          getEnv("REDIS_REALTIME_CHANNEL", "safasajha:notifications"),

		NotifyWorkers:   getInt("NOTIFY_WORKERS", 2),
		NotifyQueueSize: getInt("NOTIFY_QUEUE_SIZE", 256),
		ReminderSpec:    getEnv("REMINDER_CRON", "0 8 * * *"),
		DeliverySpec:    getEnv("DELIVERY_CRON", "@every 1m"),

		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getInt("SMTP_PORT", 587),
		SMTPUser:          getEnv("SMTP_USER", ""),
		SMTPPass:          getEnv("SMTP_PASS", ""),
		SMTPFrom:          getEnv("SMTP_FROM", "SafaSajha <no-reply@safasajha.local>"),
		SMTPSkipTLSVerify: getEnv("SMTP_SKIP_TLS_VERIFY", "") == "1",

		GCSBucket: getEnv("GCS_BUCKET", ""),
	}
}

func (c *Config) Validate() error {
	var missing []string
	if c.MongoURI == "" {
		missing = append(missing, "MONGODB_URI")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return errors.New("please define the " + strings.Join(missing, ", ") + " environment variable(s)")
	}
	if c.ReportDailyLimit < 1 {
		return errors.New("REPORT_DAILY_LIMIT must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.GoEnv == "production" }

func (c *Config) RedisEnabled() bool { return c.RedisAddress != "" }

func (c *Config) MailEnabled() bool { return c.SMTPHost != "" }

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.WithField("key", key).Warnf("invalid integer %q, using %d", v, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.WithField("key", key).Warnf("invalid duration %q, using %s", v, fallback)
		return fallback
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
