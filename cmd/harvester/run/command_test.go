package run

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"

	"github.com/leptonai/harvester/pkg/config"
	"github.com/leptonai/harvester/pkg/sink"
	"github.com/leptonai/harvester/pkg/tailer"
	"github.com/leptonai/harvester/pkg/watcher"
)

func newCLIContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("run", flag.ContinueOnError)
	set.String("config", "", "")
	set.String("dir", "", "")
	set.String("log-level", "", "")
	set.String("log-file", "", "")
	set.String("listen-address", config.DefaultAddress, "")
	set.Int("line-threshold", 10, "")
	set.Duration("heartbeat-interval", 10*time.Second, "")
	set.Duration("poll-interval", 0, "")
	set.String("rename-policy", "", "")
	set.String("filter-policy", "", "")
	set.String("remove-policy", "", "")
	set.String("sink-file", "", "")
	set.Int("sink-max-size-mb", config.DefaultSinkMaxSizeMB, "")
	set.Bool("pprof", false, "")
	require.NoError(t, set.Parse(args))
	return cli.NewContext(nil, set, nil)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(newCLIContext(t, "--dir", "/var/log/app"))
	require.NoError(t, err)

	assert.Equal(t, "/var/log/app", cfg.Directory)
	assert.Equal(t, config.DefaultAddress, cfg.Address)
	assert.Equal(t, 10, cfg.LineThreshold)
	assert.Equal(t, 10*time.Second, cfg.HeartbeatInterval.Duration)
	assert.False(t, cfg.Pprof)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
directory: /from/file
line_threshold: 50
heartbeat_interval: 30s
remove_policy: keep
`), 0o644))

	cfg, err := loadConfig(newCLIContext(t,
		"--config", file,
		"--line-threshold", "5",
		"--poll-interval", "2s",
		"--rename-policy", "keep",
		"--filter-policy", "none",
		"--listen-address", "",
		"--pprof",
	))
	require.NoError(t, err)

	// from the file
	assert.Equal(t, "/from/file", cfg.Directory)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval.Duration)
	assert.Equal(t, watcher.RemoveKeep, cfg.RemovePolicy)

	// from the flags
	assert.Equal(t, 5, cfg.LineThreshold)
	assert.Equal(t, 2*time.Second, cfg.PollInterval.Duration)
	assert.Equal(t, tailer.RenameKeep, cfg.RenamePolicy)
	assert.Equal(t, tailer.FilterNone, cfg.FilterPolicy)
	assert.Empty(t, cfg.Address)
	assert.True(t, cfg.Pprof)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(newCLIContext(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestNewHarvester(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.DefaultConfig(config.WithDirectory(dir))
	require.NoError(t, err)
	cfg.PollInterval.Duration = 10 * time.Millisecond

	h, err := newHarvester(cfg, sink.Nop)
	require.NoError(t, err)
	require.NoError(t, h.Start(context.Background()))
	defer h.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.log"), nil, 0o644))
	assert.Eventually(t, func() bool { return len(h.Files()) == 1 }, 5*time.Second, 10*time.Millisecond)

	cfg.RenamePolicy = "bogus"
	_, err = newHarvester(cfg, sink.Nop)
	assert.Error(t, err)
}

func TestNewSink(t *testing.T) {
	cfg, err := config.DefaultConfig()
	require.NoError(t, err)

	s := newSink(cfg)
	require.NotNil(t, s)

	cfg.SinkFile = filepath.Join(t.TempDir(), "batches.jsonl")
	s = newSink(cfg)
	require.NoError(t, s.Log(context.Background(), "app.log", []string{"line"}))
	require.NoError(t, s.Close())

	b, err := os.ReadFile(cfg.SinkFile)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"filename":"app.log"`)
}
