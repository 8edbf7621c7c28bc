package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/sloth-organize-bfa/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load()

	assert.Equal(t, 25*time.Minute, cfg.FocusDuration)
	assert.Equal(t, 5*time.Minute, cfg.BreakDuration)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.False(t, cfg.RemoteEnabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9191")
	t.Setenv("FOCUS_DURATION", "50m")
	t.Setenv("USE_SUPABASE", "true")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg := config.Load()

	assert.Equal(t, 9191, cfg.Port)
	assert.Equal(t, 50*time.Minute, cfg.FocusDuration)
	assert.True(t, cfg.RemoteEnabled())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestLocation_FallsBackOnUnknownZone(t *testing.T) {
	cfg := &config.Config{Timezone: "Not/AZone"}
	assert.Equal(t, time.Local, cfg.Location())
}

func TestLoadDotEnv_DoesNotOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SLOTH_TEST_A=from_file\nSLOTH_TEST_B=\"quoted\"\n"), 0o600))

	t.Setenv("SLOTH_TEST_A", "from_env")
	os.Unsetenv("SLOTH_TEST_B")
	t.Cleanup(func() { os.Unsetenv("SLOTH_TEST_B") })

	require.NoError(t, config.LoadDotEnv(path))

	assert.Equal(t, "from_env", os.Getenv("SLOTH_TEST_A"))
	assert.Equal(t, "quoted", os.Getenv("SLOTH_TEST_B"))
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	assert.Error(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}
