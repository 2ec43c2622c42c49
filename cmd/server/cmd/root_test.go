package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		contains    string
		expectError bool
	}{
		{name: "help flag", args: []string{"--help"}, contains: "NITRUTSAV 2026"},
		{name: "short help flag", args: []string{"-h"}, contains: "NITRUTSAV 2026"},
		{name: "invalid flag", args: []string{"--invalid-flag"}, contains: "unknown flag: --invalid-flag", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.contains)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, buf.String(), tt.contains)
		})
	}
}

func TestRootCommandPersistentFlags(t *testing.T) {
	cmd := newRootCommand()
	for _, flag := range []string{"config", "log-level", "log-format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "persistent flag %q", flag)
	}
}

func TestRootCommandSubcommands(t *testing.T) {
	cmd := newRootCommand()

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "admin", "version", "healthcheck"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("DATABASE_URL", "postgres://localhost/zucchini")
	t.Setenv("FIREBASE_PROJECT_ID", "nitrutsav-2026")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", "secret")
}

func TestLoadConfig_FlagsAndOverlay(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOG_LEVEL", "info")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fees:\n  nitrutsav: 599\n"), 0o600))

	opts := &globalOptions{configPath: path, logLevel: "debug", logFormat: "console"}
	cfg, err := opts.loadConfig()
	require.NoError(t, err)

	assert.Equal(t, 599, cfg.Fees.Nitrutsav)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing required env", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		_, err := (&globalOptions{}).loadConfig()
		assert.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("missing overlay file", func(t *testing.T) {
		setRequiredEnv(t)
		_, err := (&globalOptions{configPath: filepath.Join(t.TempDir(), "absent.yaml")}).loadConfig()
		assert.ErrorContains(t, err, "read config file")
	})
}
