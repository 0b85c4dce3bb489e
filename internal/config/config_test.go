package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 30*time.Second, cfg.FetchTimeout.Std())
	assert.Equal(t, int64(50*1024*1024), cfg.MaxFetchSize)
	assert.Equal(t, int64(200*1024*1024), cfg.MaxPDFSize)
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, DefaultFetchRateLimit, cfg.FetchRateLimit)
}

func TestLoad_FileAndEnvPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
fetch_timeout: "10s"
max_pdf_size: 1048576
user_agent: "custom-agent/2.0"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))
	t.Setenv("PDFMILL_CONFIG", configPath)

	// Environment beats the file
	t.Setenv("PDF_MAX_FILE_SIZE", "2097152")

	cfg := Load()
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout.Std(), "file value applied")
	assert.Equal(t, int64(2097152), cfg.MaxPDFSize, "env override wins over file")
	assert.Equal(t, "custom-agent/2.0", cfg.UserAgent)
	assert.Equal(t, DefaultMaxFetchSize, cfg.MaxFetchSize, "unset fields keep defaults")
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PDFMILL_CONFIG", filepath.Join(t.TempDir(), "does-not-exist.yaml"))

	cfg := Load()
	assert.Equal(t, DefaultMaxPDFSize, cfg.MaxPDFSize)
	assert.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout.Std())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PDFMILL_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("PDFMILL_FETCH_TIMEOUT", "5s")
	t.Setenv("PDFMILL_MAX_FETCH_SIZE", "4096")
	t.Setenv("PDFMILL_USER_AGENT", "env-agent/1.0")

	cfg := Load()
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout.Std())
	assert.Equal(t, int64(4096), cfg.MaxFetchSize)
	assert.Equal(t, "env-agent/1.0", cfg.UserAgent)
}

func TestLoad_InvalidEnvValuesIgnored(t *testing.T) {
	t.Setenv("PDFMILL_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("PDFMILL_FETCH_TIMEOUT", "not-a-duration")
	t.Setenv("PDF_MAX_FILE_SIZE", "-100")

	cfg := Load()
	assert.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout.Std())
	assert.Equal(t, DefaultMaxPDFSize, cfg.MaxPDFSize)
}

func TestValidate(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		cfg, err := Validate([]byte(`fetch_timeout: "45s"` + "\n" + `max_pdf_size: 1000`))
		require.NoError(t, err)
		assert.Equal(t, 45*time.Second, cfg.FetchTimeout.Std())
		assert.Equal(t, int64(1000), cfg.MaxPDFSize)
	})

	t.Run("broken yaml", func(t *testing.T) {
		_, err := Validate([]byte("max_pdf_size: [not, a, number"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "YAML parsing failed")
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := Validate([]byte(`fetch_timeout: "forever"`))
		require.Error(t, err)
	})

	t.Run("negative limit", func(t *testing.T) {
		_, err := Validate([]byte("max_pdf_size: -1"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must not be negative")
	})
}

func TestDuration_YAMLRoundTrip(t *testing.T) {
	d := Duration(90 * time.Second)
	out, err := yaml.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, "1m30s\n", string(out))

	var parsed Duration
	require.NoError(t, yaml.Unmarshal([]byte(`"2m"`), &parsed))
	assert.Equal(t, 2*time.Minute, parsed.Std())
}

func TestCheckPDFSize(t *testing.T) {
	cfg := Default()
	cfg.MaxPDFSize = 1024 * 1024 // 1MB

	assert.NoError(t, cfg.CheckPDFSize(512*1024))
	assert.NoError(t, cfg.CheckPDFSize(1024*1024))

	err := cfg.CheckPDFSize(3 * 1024 * 1024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3.0MB exceeds maximum allowed size of 1.0MB")
	assert.Contains(t, err.Error(), "PDF_MAX_FILE_SIZE")
}
