package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Setenv("ESXCTL_URL", "")
	t.Setenv("ESXCTL_USERNAME", "")
	t.Setenv("ESXCTL_PASSWORD", "")
	t.Setenv("ESXCTL_INSECURE", "")
	os.Unsetenv("ESXCTL_URL")
	os.Unsetenv("ESXCTL_USERNAME")
	os.Unsetenv("ESXCTL_PASSWORD")
	os.Unsetenv("ESXCTL_INSECURE")
}

func TestLoadWithFile_FromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "url = \"https://esxi.local/sdk\"\nusername = \"root\"\npassword = \"secret\"\ninsecure = true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://esxi.local/sdk", cfg.URL)
	assert.Equal(t, "root", cfg.Username)
	assert.Equal(t, "secret", cfg.Password)
	assert.True(t, cfg.Insecure)
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "url = \"https://esxi.local/sdk\"\nusername = \"root\"\npassword = \"secret\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("ESXCTL_URL", "https://other.local/sdk")
	t.Setenv("ESXCTL_INSECURE", "true")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://other.local/sdk", cfg.URL)
	assert.Equal(t, "root", cfg.Username)
	assert.True(t, cfg.Insecure)
}

func TestLoadWithFile_EnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("ESXCTL_URL", "https://esxi.local/sdk")
	t.Setenv("ESXCTL_USERNAME", "root")
	t.Setenv("ESXCTL_PASSWORD", "secret")

	cfg, err := LoadWithFile(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "https://esxi.local/sdk", cfg.URL)
}

func TestLoadWithFile_MissingRequired(t *testing.T) {
	clearEnv(t)
	_, err := LoadWithFile(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url is required")
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	in := &Config{
		URL:      "https://esxi.local/sdk",
		Username: "root",
		Password: "secret",
		Insecure: true,
	}
	require.NoError(t, in.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err := LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"valid", Config{URL: "u", Username: "a", Password: "p"}, ""},
		{"missing url", Config{Username: "a", Password: "p"}, "url is required"},
		{"missing username", Config{URL: "u", Password: "p"}, "username is required"},
		{"missing password", Config{URL: "u", Username: "a"}, "password is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParseInsecure(t *testing.T) {
	assert.True(t, parseInsecure("true"))
	assert.True(t, parseInsecure("1"))
	assert.False(t, parseInsecure("false"))
	assert.False(t, parseInsecure(""))
	assert.False(t, parseInsecure("notabool"))
}
