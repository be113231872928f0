package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/leptonai/harvester/pkg/log"
)

// Stopper is anything the signal handler shuts down on SIGTERM/SIGINT.
type Stopper interface {
	Stop()
}

var DefaultSignalsToHandle = []os.Signal{
	unix.SIGTERM,
	unix.SIGINT,
	unix.SIGUSR1,
	unix.SIGPIPE,
}

// HandleSignals waits for signals in the background.
//
// SIGUSR1 dumps the goroutine stacks to a file in the temp directory and
// SIGPIPE is ignored. Any other signal cancels ctx, calls notifyStopping,
// stops the last stopper received on stopperC and closes the returned
// channel.
func HandleSignals(ctx context.Context, cancel context.CancelFunc, signals chan os.Signal, stopperC chan Stopper, notifyStopping func(ctx context.Context) error) chan struct{} {
	done := make(chan struct{}, 1)
	go func() {
		var stopper Stopper
		for {
			select {
			case s := <-stopperC:
				stopper = s

			case s := <-signals:
				// logging on SIGPIPE may raise another SIGPIPE
				if s == unix.SIGPIPE {
					continue
				}

				if s == unix.SIGUSR1 {
					file := filepath.Join(os.TempDir(), fmt.Sprintf("harvester.%d.stacks.log", os.Getpid()))
					log.Logger.Infow("received signal -- dumping goroutine stacks", "signal", s, "file", file)
					dumpStacks(file)
					continue
				}

				log.Logger.Warnw("received signal -- stopping", "signal", s)
				cancel()

				if err := notifyStopping(ctx); err != nil {
					log.Logger.Errorw("notify stopping failed", "error", err)
				}
				if stopper != nil {
					stopper.Stop()
				}

				close(done)
				return
			}
		}
	}()
	return done
}

func dumpStacks(file string) {
	buf := make([]byte, 16384)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}

	if err := os.WriteFile(file, buf, 0o644); err != nil {
		log.Logger.Errorw("failed to write goroutine stacks", "file", file, "error", err)
		return
	}
	log.Logger.Debugw("goroutine stacks written", "file", file)
}
