// Package config loads service settings from an optional YAML file with
// environment variable overrides.
//
// Before overrides are applied, .env files are loaded in priority order:
//
//  1. ENV_FILE (if set, only this file is loaded)
//  2. .env.local
//  3. .env
//
// Values already present in the environment are never replaced by a .env file.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nativeui-dev/catalog-mcp/internal/remotestore"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigPathEnvVar names the YAML config file.
	ConfigPathEnvVar = "CATALOG_CONFIG"

	DefaultBlogGistID   = "f4f43f025ea36db122c7fc0ca47e8059"
	DefaultViewTTL      = 30 * time.Minute
	DefaultFetchTimeout = 30 * time.Second
)

// Config holds every setting of the service. Fields tagged env are overridden
// by the named environment variable when it is set.
type Config struct {
	// Token is read from the environment only.
	Token string `yaml:"-" env:"GITHUB_TOKEN"`

	Repository string `yaml:"repository" env:"CATALOG_REPOSITORY"`
	Ref        string `yaml:"ref" env:"CATALOG_REF"`
	BlogGistID string `yaml:"blog_gist_id" env:"BLOG_GIST_ID"`
	APIURL     string `yaml:"api_url" env:"GITHUB_API_URL"`

	RateLimitPerMinute  int           `yaml:"rate_limit_per_minute" env:"GITHUB_CORE_API_RATE_LIMIT"`
	FetchRetries        int           `yaml:"fetch_retries" env:"CATALOG_FETCH_RETRIES"`
	FetchTimeout        time.Duration `yaml:"fetch_timeout" env:"CATALOG_FETCH_TIMEOUT"`
	MetadataConcurrency int           `yaml:"metadata_concurrency" env:"CATALOG_METADATA_CONCURRENCY"`
	ViewTTL             time.Duration `yaml:"view_ttl" env:"CATALOG_VIEW_TTL"`

	PagesFile string `yaml:"pages_file" env:"CATALOG_PAGES_FILE"`

	// Owner and Repo are derived from Repository.
	Owner string `yaml:"-"`
	Repo  string `yaml:"-"`
}

// Defaults returns a Config with every default applied.
func Defaults() *Config {
	return &Config{
		BlogGistID:          DefaultBlogGistID,
		RateLimitPerMinute:  remotestore.DefaultCoreAPIRateLimit,
		FetchRetries:        remotestore.DefaultMaxRetries,
		FetchTimeout:        DefaultFetchTimeout,
		MetadataConcurrency: 8,
		ViewTTL:             DefaultViewTTL,
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then environment overrides.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}

	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetConfigPath returns the config path from CATALOG_CONFIG or the default.
func GetConfigPath(defaultPath string) string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	return defaultPath
}

// HasRepository reports whether a component repository is configured.
func (c *Config) HasRepository() bool {
	return c.Owner != "" && c.Repo != ""
}

func (c *Config) normalise() error {
	if c.Repository != "" {
		owner, repo, err := remotestore.ValidateRepository(c.Repository)
		if err != nil {
			return fmt.Errorf("invalid repository: %w", err)
		}
		c.Owner, c.Repo = owner, repo
	}

	if c.BlogGistID == "" {
		c.BlogGistID = DefaultBlogGistID
	}
	if c.RateLimitPerMinute <= 0 {
		c.RateLimitPerMinute = remotestore.DefaultCoreAPIRateLimit
	}
	if c.FetchRetries <= 0 {
		c.FetchRetries = remotestore.DefaultMaxRetries
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.MetadataConcurrency <= 0 {
		c.MetadataConcurrency = 8
	}
	if c.ViewTTL <= 0 {
		c.ViewTTL = DefaultViewTTL
	}
	return nil
}

// StoreOptions returns the remote store settings.
func (c *Config) StoreOptions() remotestore.Options {
	return remotestore.Options{
		Owner:              c.Owner,
		Repo:               c.Repo,
		Ref:                c.Ref,
		Token:              c.Token,
		BaseURL:            c.APIURL,
		Timeout:            c.FetchTimeout,
		RateLimitPerMinute: c.RateLimitPerMinute,
		MaxRetries:         c.FetchRetries,
	}
}

func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env.local: %w", err)
	}
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// applyEnvOverrides sets every env tagged field whose variable is non-empty.
// Unparseable values are ignored and the previous value kept.
func applyEnvOverrides(cfg *Config) {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := range v.NumField() {
		field := v.Field(i)
		envTag := t.Field(i).Tag.Get("env")
		if envTag == "" || !field.CanSet() {
			continue
		}

		envVal := strings.TrimSpace(os.Getenv(envTag))
		if envVal == "" {
			continue
		}
		setFieldFromString(field, envVal)
	}
}

func setFieldFromString(field reflect.Value, val string) {
	switch field.Kind() {
	case reflect.String:
		field.SetString(val)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			if d, err := time.ParseDuration(val); err == nil {
				field.SetInt(int64(d))
			}
			return
		}
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			field.SetInt(i)
		}

	case reflect.Bool:
		field.SetBool(ParseBool(val))
	}
}

// ParseBool returns true for "true", "1" and "yes", case-insensitively.
func ParseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}

// CommaList splits a comma separated value, dropping blanks.
func CommaList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
