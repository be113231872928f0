package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/leptonai/harvester/pkg/tailer"
	"github.com/leptonai/harvester/pkg/watcher"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := DefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIVersion, cfg.APIVersion)
	assert.Equal(t, "localhost:15140", cfg.Address)
	assert.Equal(t, 10, cfg.LineThreshold)
	assert.Equal(t, 10*time.Second, cfg.HeartbeatInterval.Duration)
	assert.Equal(t, tailer.RenameAdvance, cfg.RenamePolicy)
	assert.Equal(t, tailer.FilterShort, cfg.FilterPolicy)
	assert.Equal(t, watcher.RemoveTeardown, cfg.RemovePolicy)

	// no directory by default
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidDirectory)

	cfg, err = DefaultConfig(WithDirectory("/var/log/app"))
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultConfigExpandsHome(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	cfg, err := DefaultConfig(WithDirectory("~/logs"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "logs"), cfg.Directory)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := DefaultConfig(WithDirectory("/logs"))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero threshold", mutate: func(c *Config) { c.LineThreshold = 0 }, wantErr: ErrInvalidLineThreshold},
		{name: "short heartbeat", mutate: func(c *Config) { c.HeartbeatInterval = metav1.Duration{Duration: time.Millisecond} }, wantErr: ErrInvalidHeartbeatInterval},
		{name: "negative poll", mutate: func(c *Config) { c.PollInterval = metav1.Duration{Duration: -time.Second} }, wantErr: ErrInvalidPollInterval},
		{name: "negative sink size", mutate: func(c *Config) { c.SinkMaxSizeMB = -1 }, wantErr: ErrInvalidSinkMaxSize},
		{name: "empty policies use defaults", mutate: func(c *Config) { c.RenamePolicy, c.FilterPolicy, c.RemovePolicy = "", "", "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("bad policies", func(t *testing.T) {
		cfg := valid()
		cfg.RenamePolicy = "sideways"
		assert.Error(t, cfg.Validate())

		cfg = valid()
		cfg.FilterPolicy = "everything"
		assert.Error(t, cfg.Validate())

		cfg = valid()
		cfg.RemovePolicy = "forget"
		assert.Error(t, cfg.Validate())
	})
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "harvester.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
directory: /var/log/app
line_threshold: 25
heartbeat_interval: 3s
poll_interval: 500ms
rename_policy: keep
remove_policy: keep
sink_file: ~/batches.jsonl
log_level: debug
`), 0o644))

	cfg, err := LoadConfig(file)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	home, err := homedir.Dir()
	require.NoError(t, err)

	assert.Equal(t, "/var/log/app", cfg.Directory)
	assert.Equal(t, 25, cfg.LineThreshold)
	assert.Equal(t, 3*time.Second, cfg.HeartbeatInterval.Duration)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval.Duration)
	assert.Equal(t, tailer.RenameKeep, cfg.RenamePolicy)
	assert.Equal(t, tailer.FilterShort, cfg.FilterPolicy)
	assert.Equal(t, watcher.RemoveKeep, cfg.RemovePolicy)
	assert.Equal(t, filepath.Join(home, "batches.jsonl"), cfg.SinkFile)
	assert.Equal(t, "debug", cfg.LogLevel)

	// untouched fields keep their defaults
	assert.Equal(t, "localhost:15140", cfg.Address)
	assert.Equal(t, DefaultSinkMaxSizeMB, cfg.SinkMaxSizeMB)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("directory: /logs\nflush_every: 3\n"), 0o644))
	_, err = LoadConfig(unknown)
	assert.Error(t, err)

	malformed := filepath.Join(dir, "malformed.yaml")
	require.NoError(t, os.WriteFile(malformed, []byte("heartbeat_interval: [1, 2\n"), 0o644))
	_, err = LoadConfig(malformed)
	assert.Error(t, err)
}

func TestYAMLRoundTrip(t *testing.T) {
	cfg, err := DefaultConfig(WithDirectory("/logs"))
	require.NoError(t, err)

	b, err := cfg.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(b), "heartbeat_interval: 10s")

	file := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(file, b, 0o644))
	loaded, err := LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
