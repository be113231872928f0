// Package run implements the "run" command.
package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/leptonai/harvester/pkg/config"
	"github.com/leptonai/harvester/pkg/harvester"
	"github.com/leptonai/harvester/pkg/log"
	"github.com/leptonai/harvester/pkg/server"
	"github.com/leptonai/harvester/pkg/sink"
	pkgsystemd "github.com/leptonai/harvester/pkg/systemd"
	"github.com/leptonai/harvester/pkg/tailer"
	"github.com/leptonai/harvester/pkg/watcher"
	"github.com/leptonai/harvester/version"
)

func Command(cliContext *cli.Context) error {
	cfg, err := loadConfig(cliContext)
	if err != nil {
		return err
	}

	zapLvl, err := log.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.Logger = log.CreateLogger(zapLvl, cfg.LogFile)

	log.Logger.Debugw("starting run command")

	if zapLvl.Level() > zap.DebugLevel { // e.g., info, warn, error
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	start := time.Now()

	signals := make(chan os.Signal, 2048)
	stopperC := make(chan server.Stopper, 1)

	log.Logger.Infof("starting harvester %v", version.Version)

	done := server.HandleSignals(rootCtx, rootCancel, signals, stopperC, pkgsystemd.NotifyStopping)

	// start the signal handler as soon as we can to make sure that
	// we don't miss any signals during boot
	signal.Notify(signals, server.DefaultSignalsToHandle...)

	s := newSink(cfg)
	defer func() {
		if err := s.Close(); err != nil {
			log.Logger.Warnw("failed to close sink", "error", err)
		}
	}()

	h, err := newHarvester(cfg, s)
	if err != nil {
		return err
	}
	if err := h.Start(rootCtx); err != nil {
		h.Stop()
		return err
	}

	var srv *server.Server
	if cfg.Address != "" {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		srv, err = server.New(cfg, h, promReg)
		if err == nil {
			err = srv.Start()
		}
		if err != nil {
			h.Stop()
			return err
		}
	} else {
		log.Logger.Infow("status server disabled")
	}
	stopperC <- stopAll{srv: srv, h: h}

	if err := pkgsystemd.NotifyReady(rootCtx); err != nil {
		log.Logger.Warnw("notify ready failed", "error", err)
	}

	log.Logger.Infow("successfully booted", "dir", cfg.Directory, "tookSeconds", time.Since(start).Seconds())
	<-done

	return nil
}

// stopAll stops the status server, then the harvester (final flush).
type stopAll struct {
	srv *server.Server
	h   *harvester.Harvester
}

func (s stopAll) Stop() {
	if s.srv != nil {
		s.srv.Stop()
	}
	s.h.Stop()
}

// loadConfig reads the config file, if any, and applies the flags that
// were explicitly set on top of it.
func loadConfig(cliContext *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f := cliContext.String("config"); f != "" {
		cfg, err = config.LoadConfig(f)
	} else {
		cfg, err = config.DefaultConfig()
	}
	if err != nil {
		return nil, err
	}

	if cliContext.IsSet("dir") {
		cfg.Directory = cliContext.String("dir")
	}
	if cliContext.IsSet("log-level") {
		cfg.LogLevel = cliContext.String("log-level")
	}
	if cliContext.IsSet("log-file") {
		cfg.LogFile = cliContext.String("log-file")
	}
	if cliContext.IsSet("listen-address") {
		cfg.Address = cliContext.String("listen-address")
	}
	if cliContext.IsSet("line-threshold") {
		cfg.LineThreshold = cliContext.Int("line-threshold")
	}
	if cliContext.IsSet("heartbeat-interval") {
		cfg.HeartbeatInterval = metav1.Duration{Duration: cliContext.Duration("heartbeat-interval")}
	}
	if cliContext.IsSet("poll-interval") {
		cfg.PollInterval = metav1.Duration{Duration: cliContext.Duration("poll-interval")}
	}
	if cliContext.IsSet("rename-policy") {
		cfg.RenamePolicy = tailer.RenamePolicy(cliContext.String("rename-policy"))
	}
	if cliContext.IsSet("filter-policy") {
		cfg.FilterPolicy = tailer.FilterPolicy(cliContext.String("filter-policy"))
	}
	if cliContext.IsSet("remove-policy") {
		cfg.RemovePolicy = watcher.RemovePolicy(cliContext.String("remove-policy"))
	}
	if cliContext.IsSet("sink-file") {
		cfg.SinkFile = cliContext.String("sink-file")
	}
	if cliContext.IsSet("sink-max-size-mb") {
		cfg.SinkMaxSizeMB = cliContext.Int("sink-max-size-mb")
	}
	if cliContext.Bool("pprof") {
		cfg.Pprof = true
	}

	if err := cfg.ExpandPaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newSink(cfg *config.Config) *sink.RecordSink {
	if cfg.SinkFile == "" {
		return sink.NewWriter(os.Stdout)
	}
	return sink.NewFile(cfg.SinkFile, cfg.SinkMaxSizeMB)
}

func newHarvester(cfg *config.Config, s sink.Sink) (*harvester.Harvester, error) {
	opts := []harvester.OpOption{
		harvester.WithLineThreshold(cfg.LineThreshold),
		harvester.WithHeartbeatInterval(cfg.HeartbeatInterval.Duration),
		harvester.WithRenamePolicy(cfg.RenamePolicy),
		harvester.WithFilterPolicy(cfg.FilterPolicy),
		harvester.WithRemovePolicy(cfg.RemovePolicy),
	}
	if cfg.PollInterval.Duration > 0 {
		opts = append(opts, harvester.WithPoll(cfg.PollInterval.Duration))
	}

	h, err := harvester.New(cfg.Directory, s, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create harvester: %w", err)
	}
	return h, nil
}
