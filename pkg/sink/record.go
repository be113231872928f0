package sink

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var _ Sink = (*RecordSink)(nil)

// Record is one line of output written by a RecordSink.
type Record struct {
	Time     time.Time `json:"time"`
	BatchID  string    `json:"batchID"`
	Filename string    `json:"filename"`
	Count    int       `json:"count"`
	Lines    []string  `json:"lines"`
}

// RecordSink writes each batch as a single JSON object per line.
type RecordSink struct {
	mu     sync.Mutex
	out    *lastErrWriter
	logger *zap.Logger
	closer io.Closer
}

// lastErrWriter remembers the last write error, which zap would
// otherwise only report to its ErrorOutput.
type lastErrWriter struct {
	zapcore.WriteSyncer
	err error
}

func (w *lastErrWriter) Write(p []byte) (int, error) {
	n, err := w.WriteSyncer.Write(p)
	if err != nil {
		w.err = err
	}
	return n, err
}

func (w *lastErrWriter) take() error {
	err := w.err
	w.err = nil
	return err
}

func newRecordSink(w zapcore.WriteSyncer, closer io.Closer) *RecordSink {
	out := &lastErrWriter{WriteSyncer: w}
	return &RecordSink{
		out:    out,
		logger: newRecordLogger(out),
		closer: closer,
	}
}

// NewFile writes batch records to a file, rotated by size.
func NewFile(file string, maxSizeMB int) *RecordSink {
	if maxSizeMB <= 0 {
		maxSizeMB = 128
	}
	lj := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    maxSizeMB, // megabytes
		MaxBackups: 5,
		MaxAge:     3,    // days
		Compress:   true, // compress the rotated files
	}
	return newRecordSink(zapcore.AddSync(lj), lj)
}

// NewWriter writes batch records to w (e.g., os.Stdout).
func NewWriter(w io.Writer) *RecordSink {
	return newRecordSink(zapcore.AddSync(w), nil)
}

func newRecordLogger(w zapcore.WriteSyncer) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.LevelKey = ""
	encoderConfig.MessageKey = ""
	encoderConfig.CallerKey = ""
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339Nano)

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		w,
		zap.NewAtomicLevelAt(zap.InfoLevel),
	)
	return zap.New(core, zap.ErrorOutput(zapcore.AddSync(io.Discard)))
}

// Log writes one record and returns the error of the underlying write,
// if any.
func (s *RecordSink) Log(ctx context.Context, filename string, lines []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.out.take()
	s.logger.Log(zap.InfoLevel, "",
		zap.String("batchID", BatchIDFromContext(ctx)),
		zap.String("filename", filename),
		zap.Int("count", len(lines)),
		zap.Strings("lines", lines),
	)
	return s.out.take()
}

func (s *RecordSink) Close() error {
	_ = s.logger.Sync()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
