// Package metrics implements the prometheus metrics of the harvester.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "harvester"

// Error kinds used as the "kind" label of the errors counter.
const (
	ErrorKindList   = "list"
	ErrorKindAttach = "attach"
	ErrorKindStat   = "stat"
	ErrorKindRead   = "read"
	ErrorKindNotify = "notify"
)

// Flush triggers used as the "trigger" label of the flush counter.
const (
	TriggerThreshold = "threshold"
	TriggerHeartbeat = "heartbeat"
	TriggerRemove    = "remove"
)

var (
	metricFilesWatched = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "files",
			Help:      "current number of files with an attached tailer",
		},
	)

	metricEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "events_total",
			Help:      "total number of filesystem notifications handled",
		},
		[]string{"op"},
	)

	metricErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "errors_total",
			Help:      "total number of listing, stat, read and notifier errors",
		},
		[]string{"kind"},
	)

	metricBytesReadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tailer",
			Name:      "bytes_read_total",
			Help:      "total number of bytes read from tailed files",
		},
	)
	metricLinesReadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tailer",
			Name:      "lines_read_total",
			Help:      "total number of lines delivered to the batcher",
		},
	)
	metricSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tailer",
			Name:      "skipped_total",
			Help:      "total number of notifications skipped because the file did not grow",
		},
	)

	metricBufferedLines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "batcher",
			Name:      "buffered_lines",
			Help:      "current number of lines buffered across all files",
		},
	)
	metricFlushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batcher",
			Name:      "flushes_total",
			Help:      "total number of flush passes",
		},
		[]string{"trigger"},
	)

	metricSinkBatchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "batches_total",
			Help:      "total number of batches handed to the sink",
		},
	)
	metricSinkLinesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "lines_total",
			Help:      "total number of lines handed to the sink",
		},
	)
	metricSinkErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "errors_total",
			Help:      "total number of batches the sink failed to accept (dropped)",
		},
	)
	metricSinkSecondsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "seconds_total",
			Help:      "total number of seconds spent in the sink",
		},
	)
)

var collectors = []prometheus.Collector{
	metricFilesWatched,
	metricEventsTotal,
	metricErrorsTotal,

	metricBytesReadTotal,
	metricLinesReadTotal,
	metricSkippedTotal,

	metricBufferedLines,
	metricFlushesTotal,

	metricSinkBatchesTotal,
	metricSinkLinesTotal,
	metricSinkErrorsTotal,
	metricSinkSecondsTotal,
}

// Register registers all harvester metrics.
// Collectors already registered to reg are ignored.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func SetFilesWatched(n int) {
	metricFilesWatched.Set(float64(n))
}

func RecordEvent(op string) {
	metricEventsTotal.WithLabelValues(op).Inc()
}

func RecordError(kind string) {
	metricErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordRead records one successful range read.
func RecordRead(bytes int64, lines int) {
	metricBytesReadTotal.Add(float64(bytes))
	metricLinesReadTotal.Add(float64(lines))
}

func RecordSkipped() {
	metricSkippedTotal.Inc()
}

func SetBufferedLines(n int) {
	metricBufferedLines.Set(float64(n))
}

func RecordFlush(trigger string) {
	metricFlushesTotal.WithLabelValues(trigger).Inc()
}

// RecordSinkCall records one sink call and the time it took.
func RecordSinkCall(lines int, tookSeconds float64, err error) {
	metricSinkBatchesTotal.Inc()
	metricSinkLinesTotal.Add(float64(lines))
	metricSinkSecondsTotal.Add(tookSeconds)
	if err != nil {
		metricSinkErrorsTotal.Inc()
	}
}
