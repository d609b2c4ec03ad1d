package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

// TestValidate checks required fields and derived defaults.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	// Bad port.
	cfg := Default()
	cfg.Port = 0
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.Port = 70000
	require.Error(t, Validate(cfg))

	// Negative retries.
	cfg = Default()
	cfg.Retries = -1
	require.Error(t, Validate(cfg))

	// No version.
	cfg = Default()
	cfg.Version = " "
	require.Error(t, Validate(cfg))

	// No way to learn the public IP.
	cfg = Default()
	cfg.IPProviders = nil
	require.Error(t, Validate(cfg))

	cfg.PublicIP = "203.0.113.5"
	require.NoError(t, Validate(cfg))

	// Defaults are filled, the password is left to EnsurePassword.
	cfg = &Config{
		Version:        "v2.6.2",
		ReleaseBaseURL: DefaultReleaseBaseURL,
		Port:           5443,
		IPProviders:    DefaultIPProviders(),
	}
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultCertFile, cfg.CertFile)
	require.Equal(t, DefaultKeyFile, cfg.KeyFile)
	require.Equal(t, DefaultServerConfigFile, cfg.ServerConfigFile)
	require.Equal(t, DefaultCertTool, cfg.CertTool)
	require.Empty(t, cfg.Password)
}

// TestApplyEnv verifies environment overrides and parse failures.
func TestApplyEnv(t *testing.T) {
	t.Parallel()

	cfg := Default()
	err := ApplyEnv(cfg, envMap(map[string]string{
		EnvPort:     "5443",
		EnvPassword: "secret123",
		EnvRetries:  " 4 ",
		EnvVersion:  "v2.6.1",
		EnvPublicIP: "",
	}))
	require.NoError(t, err)
	require.Equal(t, 5443, cfg.Port)
	require.Equal(t, "secret123", cfg.Password)
	require.Equal(t, 4, cfg.Retries)
	require.Equal(t, "v2.6.1", cfg.Version)
	require.Empty(t, cfg.PublicIP)

	cfg = Default()
	require.Error(t, ApplyEnv(cfg, envMap(map[string]string{EnvPort: "https"})))
	require.Error(t, ApplyEnv(cfg, envMap(map[string]string{EnvRetries: "many"})))
	require.Error(t, ApplyEnv(nil, envMap(nil)))
}

// TestLoad_MissingDefaultFile returns defaults when the default settings file is absent.
func TestLoad_MissingDefaultFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	_, err = Load("does-not-exist.yaml")
	require.Error(t, err)
}

// TestEnsurePassword_StableAcrossRuns generates a password once and reuses it on the next load.
func TestEnsurePassword_StableAcrossRuns(t *testing.T) {
	chdir(t, t.TempDir())

	first, err := Load("")
	require.NoError(t, err)
	require.NoError(t, Validate(first))

	generated, err := EnsurePassword("", first)
	require.NoError(t, err)
	require.True(t, generated)
	require.Len(t, first.Password, 32)
	require.NotContains(t, first.Password, "-")

	info, err := os.Stat(DefaultSettingsFilename)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())

	second, err := Load("")
	require.NoError(t, err)
	require.NoError(t, Validate(second))

	generated, err = EnsurePassword("", second)
	require.NoError(t, err)
	require.False(t, generated)
	require.Equal(t, first.Password, second.Password)
}

// TestEnsurePassword_KeepsConfiguredPassword leaves an explicit password and the file alone.
func TestEnsurePassword_KeepsConfiguredPassword(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	cfg := Default()
	cfg.Password = "secret123"

	generated, err := EnsurePassword(path, cfg)
	require.NoError(t, err)
	require.False(t, generated)
	require.Equal(t, "secret123", cfg.Password)

	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = EnsurePassword(path, nil)
	require.Error(t, err)
}

// TestSavePassword_PreservesOtherSettings updates only the password key of an existing file.
func TestSavePassword_PreservesOtherSettings(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	original := "# node settings\nport: 8443\npassword: old\nretries: 5\n"
	require.NoError(t, os.WriteFile(path, []byte(original), 0o600))

	require.NoError(t, savePassword(path, "fresh"))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "# node settings")
	require.Contains(t, string(contents), `password: "fresh"`)
	require.NotContains(t, string(contents), "old")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8443, cfg.Port)
	require.Equal(t, "fresh", cfg.Password)
	require.Equal(t, 5, cfg.Retries)

	// A file that is not a mapping is refused.
	require.NoError(t, os.WriteFile(path, []byte("- a\n- b\n"), 0o600))
	require.ErrorIs(t, savePassword(path, "fresh"), errSettingsNotMapping)
}

// TestLoad_PartialFileKeepsDefaults checks that keys absent from the file keep their defaults.
func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 8443\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8443, cfg.Port)
	require.Equal(t, DefaultVersion, cfg.Version)
	require.Equal(t, DefaultIPProviders(), cfg.IPProviders)
}
