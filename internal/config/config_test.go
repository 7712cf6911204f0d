package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvVars = []string{
	"ENV_FILE", "GITHUB_TOKEN", "CATALOG_REPOSITORY", "CATALOG_REF", "BLOG_GIST_ID", "GITHUB_API_URL",
	"GITHUB_CORE_API_RATE_LIMIT", "CATALOG_FETCH_RETRIES", "CATALOG_FETCH_TIMEOUT",
	"CATALOG_METADATA_CONCURRENCY", "CATALOG_VIEW_TTL", "CATALOG_PAGES_FILE",
}

// isolate clears config env vars and runs the test from an empty directory so
// no stray .env file is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	for _, v := range configEnvVars {
		t.Setenv(v, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultBlogGistID, cfg.BlogGistID)
	assert.Equal(t, 80, cfg.RateLimitPerMinute)
	assert.Equal(t, 3, cfg.FetchRetries)
	assert.Equal(t, 8, cfg.MetadataConcurrency)
	assert.Equal(t, DefaultViewTTL, cfg.ViewTTL)
	assert.False(t, cfg.HasRepository())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := isolate(t)

	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
repository: https://github.com/nativeui-dev/components.git
ref: main
metadata_concurrency: 4
fetch_timeout: 10s
view_ttl: 5m
`), 0o644))

	t.Setenv("CATALOG_REF", "release")
	t.Setenv("GITHUB_TOKEN", "tok")
	t.Setenv("CATALOG_FETCH_RETRIES", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "nativeui-dev", cfg.Owner)
	assert.Equal(t, "components", cfg.Repo)
	assert.True(t, cfg.HasRepository())
	assert.Equal(t, "release", cfg.Ref, "env overrides yaml")
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, 4, cfg.MetadataConcurrency)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 5*time.Minute, cfg.ViewTTL)
	assert.Equal(t, 3, cfg.FetchRetries, "unparseable env keeps default")

	opts := cfg.StoreOptions()
	assert.Equal(t, "nativeui-dev", opts.Owner)
	assert.Equal(t, "release", opts.Ref)
	assert.Equal(t, "tok", opts.Token)
	assert.Equal(t, 10*time.Second, opts.Timeout)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	// t.Setenv("X", "") leaves X set to empty, which godotenv treats as
	// already present, so unset it for this test.
	require.NoError(t, os.Unsetenv("CATALOG_REPOSITORY"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CATALOG_REPOSITORY=acme/ui\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.Owner)
	assert.Equal(t, "ui", cfg.Repo)
	require.NoError(t, os.Unsetenv("CATALOG_REPOSITORY"))
}

func TestLoad_Errors(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("repository: [\n"), 0o644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "parse config")

	t.Setenv("CATALOG_REPOSITORY", "just-a-name")
	_, err = Load("")
	assert.ErrorContains(t, err, "invalid repository")
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	assert.Equal(t, "default.yaml", GetConfigPath("default.yaml"))
	t.Setenv(ConfigPathEnvVar, "/etc/catalog.yaml")
	assert.Equal(t, "/etc/catalog.yaml", GetConfigPath("default.yaml"))
}

func TestParseBoolAndCommaList(t *testing.T) {
	assert.True(t, ParseBool(" Yes "))
	assert.True(t, ParseBool("1"))
	assert.False(t, ParseBool("off"))

	assert.Equal(t, []string{"a", "b"}, CommaList(" a, ,b,"))
	assert.Nil(t, CommaList(""))
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("CATALOG_VIEW_TTL", "90s")
	t.Setenv("CATALOG_METADATA_CONCURRENCY", " 12 ")
	t.Setenv("CATALOG_FETCH_TIMEOUT", "soon")

	cfg := Defaults()
	applyEnvOverrides(cfg)

	assert.Equal(t, 90*time.Second, cfg.ViewTTL)
	assert.Equal(t, 12, cfg.MetadataConcurrency)
	assert.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout, "unparseable values keep the default")
	assert.Empty(t, cfg.Token)
}
