package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"RECON_DB_PATH", "RECON_AUDIT_DIR", "RECON_AUDIT_SOURCE", "RECON_PAGE_SIZE",
	"RECON_LOG_FORMAT", "RECON_METRICS_FILE", "RECON_METRICS_NAMESPACE",
}

// isolateEnv clears RECON_* variables for the test and restores them after.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		if v, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { os.Setenv(k, v) })
		} else {
			t.Cleanup(func() { os.Unsetenv(k) })
		}
		os.Unsetenv(k)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)

	s, err := Load(LoadOptions{EnvFile: noEnvFile(t)})
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
}

func TestLoad_CUEFileOverridesDefaults(t *testing.T) {
	isolateEnv(t)
	path := writeFile(t, "recon.cue", `
database_path: "/var/lib/recon/recon.db"
page_size:     25
log_format:    "json"
`)

	s, err := Load(LoadOptions{File: path, EnvFile: noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/recon/recon.db", s.DatabasePath)
	assert.Equal(t, 25, s.PageSize)
	assert.Equal(t, "json", s.LogFormat)
	assert.Equal(t, Defaults().AuditDir, s.AuditDir, "absent fields keep defaults")
}

func TestLoad_EnvironmentOverridesCUE(t *testing.T) {
	isolateEnv(t)
	path := writeFile(t, "recon.cue", `
page_size:  25
audit_dir:  "from-cue"
`)
	os.Setenv("RECON_PAGE_SIZE", "7")
	os.Setenv("RECON_AUDIT_SOURCE", "nightly")

	s, err := Load(LoadOptions{File: path, EnvFile: noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, 7, s.PageSize)
	assert.Equal(t, "nightly", s.AuditSource)
	assert.Equal(t, "from-cue", s.AuditDir)
}

func TestLoad_DotEnvFile(t *testing.T) {
	isolateEnv(t)
	envFile := writeFile(t, ".env", "RECON_AUDIT_DIR=/tmp/from-dotenv\nRECON_LOG_FORMAT=json\n")
	os.Setenv("RECON_LOG_FORMAT", "text")

	s, err := Load(LoadOptions{EnvFile: envFile})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/from-dotenv", s.AuditDir)
	assert.Equal(t, "text", s.LogFormat, "real environment wins over .env")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		env      map[string]string
		wantCode string
	}{
		{name: "syntax error", content: "page_size: [", wantCode: ErrCodeParse},
		{name: "page size out of range", content: "page_size: 0", wantCode: ErrCodeSchema},
		{name: "wrong type", content: `page_size: "ten"`, wantCode: ErrCodeSchema},
		{name: "unknown log format", content: `log_format: "xml"`, wantCode: ErrCodeSchema},
		{name: "unknown field", content: `colour: "blue"`, wantCode: ErrCodeSchema},
		{name: "bad namespace", content: `metrics_namespace: "9lives"`, wantCode: ErrCodeSchema},
		{name: "non-numeric env", env: map[string]string{"RECON_PAGE_SIZE": "many"}, wantCode: ErrCodeEnv},
		{name: "invalid env value", env: map[string]string{"RECON_LOG_FORMAT": "xml"}, wantCode: ErrCodeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for k, v := range tt.env {
				os.Setenv(k, v)
			}
			opts := LoadOptions{EnvFile: noEnvFile(t)}
			if tt.content != "" {
				opts.File = writeFile(t, "recon.cue", tt.content)
			}

			_, err := Load(opts)
			require.Error(t, err)

			var cfgErr *Error
			require.True(t, errors.As(err, &cfgErr), "got %T: %v", err, err)
			assert.Equal(t, tt.wantCode, cfgErr.Code)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	isolateEnv(t)

	_, err := Load(LoadOptions{File: filepath.Join(t.TempDir(), "nope.cue"), EnvFile: noEnvFile(t)})

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrCodeNotFound, cfgErr.Code)
}

func TestSettings_Validate(t *testing.T) {
	s := Defaults()
	require.NoError(t, s.Validate())

	s.PageSize = 0
	assert.Error(t, s.Validate())
}
