package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Selectors maps the recognized logical fields to CSS selector strings.
// An empty selector means the field is not configured for the target platform.
type Selectors struct {
	ArticleLinks string `mapstructure:"SELECTOR_ARTICLE_LINKS"`
	Title        string `mapstructure:"SELECTOR_TITLE"`
	Author       string `mapstructure:"SELECTOR_AUTHOR"`
	PublishTime  string `mapstructure:"SELECTOR_PUBLISH_TIME"`
	ReadCount    string `mapstructure:"SELECTOR_READ_COUNT"`
	LikeCount    string `mapstructure:"SELECTOR_LIKE_COUNT"`
	CollectCount string `mapstructure:"SELECTOR_COLLECT_COUNT"`
	Summary      string `mapstructure:"SELECTOR_SUMMARY"`
	Content      string `mapstructure:"SELECTOR_CONTENT"`
}

// Lookup returns the selector for a logical field name, or "" if the field
// is unknown or not configured.
func (s Selectors) Lookup(field string) string {
	switch field {
	case "article_links":
		return s.ArticleLinks
	case "title":
		return s.Title
	case "author":
		return s.Author
	case "publish_time":
		return s.PublishTime
	case "read_count":
		return s.ReadCount
	case "like_count":
		return s.LikeCount
	case "collect_count":
		return s.CollectCount
	case "summary":
		return s.Summary
	case "content":
		return s.Content
	}
	return ""
}

// Config stores all configuration for the application.
type Config struct {
	BaseURL string `mapstructure:"BASE_URL"`

	Selectors `mapstructure:",squash"`

	MaxPages        int     `mapstructure:"MAX_PAGES"`
	MaxRetries      int     `mapstructure:"MAX_RETRIES"`
	RetryBaseDelay  float64 `mapstructure:"RETRY_BASE_DELAY"` // seconds
	RequestTimeout  int     `mapstructure:"REQUEST_TIMEOUT"`  // seconds
	RequestDelayMin float64 `mapstructure:"REQUEST_DELAY_MIN"`
	RequestDelayMax float64 `mapstructure:"REQUEST_DELAY_MAX"`
	PageDelayMin    float64 `mapstructure:"PAGE_DELAY_MIN"`
	PageDelayMax    float64 `mapstructure:"PAGE_DELAY_MAX"`

	MinReadCount        int `mapstructure:"MIN_READ_COUNT"`
	MinInteractionCount int `mapstructure:"MIN_INTERACTION_COUNT"`
	MinContentLength    int `mapstructure:"MIN_CONTENT_LENGTH"`

	TLSVerify    bool   `mapstructure:"TLS_VERIFY"`
	MaxRedirects int    `mapstructure:"MAX_REDIRECTS"`
	UserAgents   string `mapstructure:"USER_AGENTS"` // comma-separated
	Proxies      string `mapstructure:"PROXIES"`     // comma-separated

	CSVFilename string `mapstructure:"CSV_FILENAME"`
	CSVEncoding string `mapstructure:"CSV_ENCODING"`

	PostgresURL    string `mapstructure:"POSTGRES_URL"`
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	VisitedTTLDays int    `mapstructure:"VISITED_TTL_DAYS"`

	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
}

// SplitList splits a comma-separated config value, dropping empty entries.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	// This allows configuration purely through environment variables in production
	_ = viper.ReadInConfig()

	// Set default values
	viper.SetDefault("SELECTOR_ARTICLE_LINKS", "a")
	viper.SetDefault("MAX_PAGES", 3)
	viper.SetDefault("MAX_RETRIES", 3)
	viper.SetDefault("RETRY_BASE_DELAY", 2.0)
	viper.SetDefault("REQUEST_TIMEOUT", 15) // in seconds
	viper.SetDefault("REQUEST_DELAY_MIN", 0.5)
	viper.SetDefault("REQUEST_DELAY_MAX", 2.0)
	viper.SetDefault("PAGE_DELAY_MIN", 1.0)
	viper.SetDefault("PAGE_DELAY_MAX", 3.0)
	viper.SetDefault("MIN_READ_COUNT", 10000)
	viper.SetDefault("MIN_INTERACTION_COUNT", 1000)
	viper.SetDefault("MIN_CONTENT_LENGTH", 200)
	viper.SetDefault("TLS_VERIFY", true)
	viper.SetDefault("MAX_REDIRECTS", 5)
	viper.SetDefault("CSV_FILENAME", "bestsellers.csv")
	viper.SetDefault("CSV_ENCODING", "utf-8-sig")
	viper.SetDefault("VISITED_TTL_DAYS", 2)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
