package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Sheet       SheetConfig
	Filter      FilterConfig
	Email       EmailConfig
	State       StateConfig
	Scheduler   SchedulerConfig
	Healthcheck HealthcheckConfig
	Proxy       ProxyConfig
	Notifier    string // email, console
	LogFile     string
	LogLevel    string
	Rules       *SheetRules
}

type SheetConfig struct {
	URL          string
	Format       string // csv, html
	FetchTimeout time.Duration
	RulesPath    string
}

type FilterConfig struct {
	MaxRent       float64
	SendWhenNoNew bool
	GuardMinSeen  int
}

type EmailConfig struct {
	Host                 string
	Port                 int
	User                 string
	Password             string
	Recipients           []string
	HealthcheckRecipient string
}

type StateConfig struct {
	Backend     string // json, sqlite, postgres, s3
	File        string
	DBPath      string
	DatabaseURL string
	S3          S3Config
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Key             string
	AccessKeyID     string
	SecretAccessKey string
}

type SchedulerConfig struct {
	Interval            time.Duration
	Cron                string
	HealthcheckInterval time.Duration
}

type HealthcheckConfig struct {
	MinRows   int
	MaxRunAge time.Duration
}

type ProxyConfig struct {
	URL string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	user := os.Getenv("GMAIL_USER")
	cfg := &Config{
		Sheet: SheetConfig{
			URL:          os.Getenv("SHEET_URL"),
			Format:       strings.ToLower(getEnv("SHEET_FORMAT", "csv")),
			FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
			RulesPath:    getEnv("SHEET_CONFIG", "config/sheet.yaml"),
		},
		Filter: FilterConfig{
			MaxRent:       getEnvFloat("MAX_RENT", 3000),
			SendWhenNoNew: getEnvBool("SEND_WHEN_NO_NEW", false),
			GuardMinSeen:  getEnvInt("GUARD_MIN_SEEN", 1),
		},
		Email: EmailConfig{
			Host:                 getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:                 getEnvInt("SMTP_PORT", 587),
			User:                 user,
			Password:             os.Getenv("GMAIL_APP_PASSWORD"),
			Recipients:           splitList(getEnv("RECIPIENT_EMAIL", user)),
			HealthcheckRecipient: getEnv("HEALTHCHECK_RECIPIENT", user),
		},
		State: StateConfig{
			Backend:     strings.ToLower(getEnv("STATE_BACKEND", "json")),
			File:        getEnv("STATE_FILE", "seen_listings.json"),
			DBPath:      getEnv("DB_PATH", "monitor.db"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
			S3: S3Config{
				Bucket:          os.Getenv("S3_BUCKET"),
				Region:          getEnv("S3_REGION", "us-east-1"),
				Endpoint:        os.Getenv("S3_ENDPOINT"),
				Key:             getEnv("S3_KEY", "sublet-monitor/seen_listings.json"),
				AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			},
		},
		Scheduler: SchedulerConfig{
			Cron:                os.Getenv("SCRAPE_CRON"),
			Interval:            getEnvDuration("SCRAPE_INTERVAL", 0),
			HealthcheckInterval: getEnvDuration("HEALTHCHECK_INTERVAL", 0),
		},
		Healthcheck: HealthcheckConfig{
			MinRows:   getEnvInt("HEALTHCHECK_MIN_ROWS", 10),
			MaxRunAge: getEnvDuration("HEALTHCHECK_MAX_RUN_AGE", 0),
		},
		Proxy:    ProxyConfig{URL: os.Getenv("PROXY_URL")},
		Notifier: strings.ToLower(getEnv("NOTIFIER", "email")),
		LogFile:  getEnv("LOG_FILE", "monitor.log"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	rules, err := LoadSheetRules(cfg.Sheet.RulesPath)
	if err != nil {
		return nil, err
	}
	cfg.Rules = rules

	return cfg, nil
}

// Validate reports every missing setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Sheet.URL == "" {
		errs = append(errs, errors.New("SHEET_URL is not set"))
	}
	switch c.Sheet.Format {
	case "csv", "html":
	default:
		errs = append(errs, fmt.Errorf("unknown SHEET_FORMAT %q", c.Sheet.Format))
	}
	if c.Filter.MaxRent <= 0 {
		errs = append(errs, errors.New("MAX_RENT must be positive"))
	}

	switch c.State.Backend {
	case "json":
		if c.State.File == "" {
			errs = append(errs, errors.New("STATE_FILE is not set"))
		}
	case "sqlite":
		if c.State.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is not set"))
		}
	case "postgres":
		if c.State.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is not set"))
		}
	case "s3":
		if c.State.S3.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STATE_BACKEND %q", c.State.Backend))
	}

	switch c.Notifier {
	case "email":
		if c.Email.User == "" || c.Email.Password == "" {
			errs = append(errs, errors.New("GMAIL_USER and GMAIL_APP_PASSWORD are required for email notifications"))
		}
	case "console":
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFIER %q", c.Notifier))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
