package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
	assert.Equal(t, BackendCSV, cfg.Records.Backend)
	assert.Equal(t, "0.0.0.0:5000", cfg.HTTP.Addr())
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.NotEmpty(t, cfg.Auth.SessionSecret)
	assert.Equal(t, "text", cfg.Observability.LogFormat)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 2, cfg.Wikipedia.Sentences)
	assert.Equal(t, 5*time.Minute, cfg.Maintenance.RecordCheckInterval)
	assert.Equal(t, time.Hour, cfg.Maintenance.AudioMaxAge)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("RECORDS_DIR=/srv/records\nGOOGLE_API_KEY=k1\nGOOGLE_CSE_ID=cx\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("GOOGLE_CSE_ID", "from-env")
	for _, key := range []string{"RECORDS_DIR", "GOOGLE_API_KEY", "GEMINI_API_KEY", "SPEECH_API_KEY"} {
		// Setenv registers the restore; the file can only fill unset keys.
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/records", cfg.Records.Dir)
	assert.Equal(t, "k1", cfg.Google.APIKey)
	assert.Equal(t, "k1", cfg.Google.GeminiAPIKey)
	assert.Equal(t, "k1", cfg.Speech.APIKey)
	assert.Equal(t, "from-env", cfg.Google.CSEID)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("APP_ENV", "production")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("RECORDS_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
	assert.Contains(t, err.Error(), "SESSION_SECRET is required")
}

func TestLoad_DatabaseURLFromParts(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "raizel")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("RECORDS_BACKEND", "POSTGRES")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.Records.Backend)
	assert.Equal(t, "postgres://raizel:pw@db:5432/postgres?sslmode=disable", cfg.Database.URL)
}

func TestGetEnvStringSlice(t *testing.T) {
	t.Setenv("TEST_ORIGINS", " https://a.example , ,https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, getEnvStringSlice("TEST_ORIGINS", nil))
	assert.Equal(t, []string{"*"}, getEnvStringSlice("TEST_ORIGINS_UNSET", []string{"*"}))
}

func TestFeatureFlags_Defaults(t *testing.T) {
	ff := NewFeatureFlags()

	assert.True(t, ff.EnabledFor(FeatureInternetSearch, "R1"))
	assert.True(t, ff.EnabledFor(FeatureColumnLookup, ""))
	assert.False(t, ff.EnabledFor(FeatureGenerativeFallback, "R1"))
	assert.False(t, ff.EnabledFor(FeatureVoiceReplies, "R1"))
	assert.False(t, ff.EnabledFor("no.such.feature", "R1"))
	assert.True(t, ff.IsEnabled(FeatureVoiceReplies, &FeatureContext{IsAdmin: true}))
}

func TestFeatureFlags_EnvOverride(t *testing.T) {
	t.Setenv("FEATURE_ASSISTANT_GENERATIVE_FALLBACK", "true")
	t.Setenv("FEATURE_ASSISTANT_INTERNET_SEARCH", "false")

	ff, err := LoadFeatureFlags()
	require.NoError(t, err)

	assert.True(t, ff.EnabledFor(FeatureGenerativeFallback, "R1"))
	assert.False(t, ff.EnabledFor(FeatureInternetSearch, "R1"))
}

func TestFeatureFlags_Rollout(t *testing.T) {
	ff := NewFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureVoiceReplies, 50))

	gate := ff.Gate(FeatureVoiceReplies)
	enabled := 0
	for i := 0; i < 200; i++ {
		subject := "REG" + string(rune('A'+i%26)) + string(rune('a'+i/26))
		first := gate(subject)
		assert.Equal(t, first, gate(subject), "bucket must be stable")
		if first {
			enabled++
		}
	}
	assert.Greater(t, enabled, 40)
	assert.Less(t, enabled, 160)

	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureVoiceReplies, 101), ErrInvalidRolloutPercent)
	assert.ErrorIs(t, ff.EnableFeature("missing"), ErrFeatureNotFound)
}

func TestFeatureFlags_SubjectOverride(t *testing.T) {
	ff := NewFeatureFlags()
	ff.SetSubjectOverride("R1", FeatureGenerativeFallback, true)

	assert.True(t, ff.EnabledFor(FeatureGenerativeFallback, "R1"))
	assert.False(t, ff.EnabledFor(FeatureGenerativeFallback, "R2"))

	ff.ClearSubjectOverrides("R1")
	assert.False(t, ff.EnabledFor(FeatureGenerativeFallback, "R1"))
}

func TestFeatureFlags_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
features:
  - name: voice.replies
    enabled: true
  - name: dashboard.skills
    enabled: false
`), 0o600))
	t.Setenv("FEATURES_FILE", path)

	ff, err := LoadFeatureFlags()
	require.NoError(t, err)

	all := ff.GetAllFeatures()
	assert.Equal(t, 100, all[FeatureVoiceReplies].RolloutPercent)
	assert.False(t, ff.EnabledFor(FeatureDashboardSkills, "R1"))

	require.NoError(t, os.WriteFile(path, []byte("features:\n  - name: typo.flag\n    enabled: true\n"), 0o600))
	_, err = LoadFeatureFlags()
	assert.ErrorIs(t, err, ErrFeatureNotFound)
}
