// Package systemd reports the daemon state to the systemd service manager.
package systemd

import (
	"context"

	sd "github.com/coreos/go-systemd/v22/daemon"

	"github.com/leptonai/harvester/pkg/log"
)

// NotifyReady notifies systemd that the daemon is tailing and serving.
// It is a no-op when the daemon is not run by systemd.
func NotifyReady(_ context.Context) error {
	return sdNotify(sd.SdNotifyReady)
}

// NotifyStopping notifies systemd that the daemon is about to be stopped
func NotifyStopping(_ context.Context) error {
	return sdNotify(sd.SdNotifyStopping)
}

func sdNotify(state string) error {
	notified, err := sd.SdNotify(false, state)
	log.Logger.Debugw("sd notification", "state", state, "notified", notified, "error", err)
	return err
}
