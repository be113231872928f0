package config

import (
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/leptonai/harvester/pkg/batcher"
	"github.com/leptonai/harvester/pkg/heartbeat"
	"github.com/leptonai/harvester/pkg/tailer"
	"github.com/leptonai/harvester/pkg/watcher"
)

const (
	DefaultAPIVersion = "v1"
	DefaultPort       = 15140
	DefaultLogLevel   = "info"

	// DefaultSinkMaxSizeMB is the sink file size that triggers a rotation.
	DefaultSinkMaxSizeMB = 100
)

var (
	DefaultAddress           = fmt.Sprintf("localhost:%d", DefaultPort)
	DefaultHeartbeatInterval = metav1.Duration{Duration: heartbeat.DefaultInterval}
)

func DefaultConfig(opts ...OpOption) (*Config, error) {
	options := &Op{}
	if err := options.ApplyOpts(opts); err != nil {
		return nil, err
	}

	cfg := &Config{
		APIVersion:        DefaultAPIVersion,
		Directory:         options.Directory,
		Address:           DefaultAddress,
		LineThreshold:     batcher.DefaultLineThreshold,
		HeartbeatInterval: DefaultHeartbeatInterval,
		RenamePolicy:      tailer.RenameAdvance,
		FilterPolicy:      tailer.FilterShort,
		RemovePolicy:      watcher.RemoveTeardown,
		SinkMaxSizeMB:     DefaultSinkMaxSizeMB,
		LogLevel:          DefaultLogLevel,
	}
	return cfg, nil
}
