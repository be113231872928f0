// Package status implements the "status" command.
package status

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli"

	apiv1 "github.com/leptonai/harvester/api/v1"
	clientv1 "github.com/leptonai/harvester/client/v1"
	cmdcommon "github.com/leptonai/harvester/cmd/harvester/common"
	"github.com/leptonai/harvester/pkg/log"
)

func Command(cliContext *cli.Context) error {
	logLevel := cliContext.String("log-level")
	zapLvl, err := log.ParseLogLevel(logLevel)
	if err != nil {
		return err
	}
	log.Logger = log.CreateLogger(zapLvl, "")

	log.Logger.Debugw("starting status command")

	outputFormat, err := cmdcommon.ParseOutputFormat(cliContext.String("output"))
	if err != nil {
		return err
	}

	rootCtx, rootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer rootCancel()

	addr := cliContext.String("server-address")
	st, err := clientv1.GetStatus(rootCtx, addr, clientv1.WithAcceptEncodingGzip())
	if err != nil {
		return fmt.Errorf("failed to get status from %s: %w", addr, err)
	}
	log.Logger.Debugw("successfully fetched status", "files", len(st.Files))

	return render(os.Stdout, outputFormat, st)
}

func render(wr io.Writer, outputFormat string, st apiv1.Status) error {
	if outputFormat == cmdcommon.OutputFormatJSON {
		return cmdcommon.WriteJSON(wr, st)
	}

	fmt.Fprintf(wr, "%s harvester is running (%d files, %d buffered lines)\n\n", cmdcommon.CheckMark, len(st.Files), st.BufferedLines())
	st.RenderTable(wr)
	return nil
}
