package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		check   func(t *testing.T, cfg *Config)
		wantErr bool
	}{
		{
			name: "defaults",
			env:  map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "library.db", cfg.DBPath)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, 10, cfg.BcryptCost)
				assert.Equal(t, "1.00", cfg.FinePerDay.StringFixed(2))
				assert.Equal(t, "10.00", cfg.UnpaidFineLimit.StringFixed(2))
				assert.Equal(t, "admin", cfg.AdminUsername)
				assert.Equal(t, "admin123", cfg.AdminPassword)
			},
		},
		{
			name: "env overrides",
			env: map[string]string{
				"LIBRARY_DB_PATH":           "/var/lib/library/desk.db",
				"LIBRARY_LOG_LEVEL":         "debug",
				"LIBRARY_FINE_PER_DAY":      "0.50",
				"LIBRARY_UNPAID_FINE_LIMIT": "0",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/var/lib/library/desk.db", cfg.DBPath)
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.Equal(t, "0.50", cfg.FinePerDay.StringFixed(2))
				assert.True(t, cfg.UnpaidFineLimit.IsZero())
			},
		},
		{
			name:    "zero fine rate",
			env:     map[string]string{"LIBRARY_FINE_PER_DAY": "0"},
			wantErr: true,
		},
		{
			name:    "not a number",
			env:     map[string]string{"LIBRARY_UNPAID_FINE_LIMIT": "ten"},
			wantErr: true,
		},
		{
			name:    "bad log level",
			env:     map[string]string{"LIBRARY_LOG_LEVEL": "verbose"},
			wantErr: true,
		},
		{
			name:    "bcrypt cost too high",
			env:     map[string]string{"LIBRARY_BCRYPT_COST": "40"},
			wantErr: true,
		},
		{
			name:    "short admin password",
			env:     map[string]string{"LIBRARY_ADMIN_PASSWORD": "abc"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load("")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LIBRARY_ADMIN_USERNAME=librarian\nLIBRARY_LOG_LEVEL=warn\n"), 0o600))
	// The environment wins over the file.
	t.Setenv("LIBRARY_LOG_LEVEL", "error")
	t.Cleanup(func() { os.Unsetenv("LIBRARY_ADMIN_USERNAME") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "librarian", cfg.AdminUsername)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}
