package command

import (
	"fmt"

	"github.com/urfave/cli"

	cmdrun "github.com/leptonai/harvester/cmd/harvester/run"
	cmdstatus "github.com/leptonai/harvester/cmd/harvester/status"
	"github.com/leptonai/harvester/pkg/batcher"
	"github.com/leptonai/harvester/pkg/config"
	"github.com/leptonai/harvester/version"
)

const usage = `
# to tail every file of a directory and print the batches to stdout
harvester run --dir /var/log/app

# to write the batches to a rotated file instead
harvester run --dir /var/log/app --sink-file /var/lib/harvester/batches.jsonl

# to check the files tailed by a running harvester
harvester status
`

func App() *cli.App {
	app := cli.NewApp()

	app.Name = "harvester"
	app.Version = version.Version
	app.Usage = usage
	app.Description = "tails a directory of log files and forwards new lines in batches"

	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "starts tailing a directory in the foreground",
			UsageText: `# to tail a directory with the default thresholds
harvester run --dir /var/log/app

# to load the settings from a file (flags override the file)
harvester run --config /etc/harvester/config.yaml --log-level debug
`,
			Action: cmdrun.Command,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "config,c",
					Usage: "set the YAML config file path (optional)",
				},
				&cli.StringFlag{
					Name:  "dir,d",
					Usage: "set the directory to tail",
				},
				&cli.StringFlag{
					Name:  "log-level,l",
					Usage: "set the logging level [debug, info, warn, error, fatal, panic, dpanic]",
				},
				&cli.StringFlag{
					Name:  "log-file",
					Usage: "set the log file path (set empty to stdout/stderr)",
				},
				&cli.StringFlag{
					Name:  "listen-address",
					Usage: "set the status server listen address (set empty to disable the server)",
					Value: config.DefaultAddress,
				},
				&cli.IntFlag{
					Name:  "line-threshold",
					Usage: "flush every file once a single file buffers more lines than this",
					Value: batcher.DefaultLineThreshold,
				},
				&cli.DurationFlag{
					Name:  "heartbeat-interval",
					Usage: "flush every buffered line at this interval",
					Value: config.DefaultHeartbeatInterval.Duration,
				},
				&cli.DurationFlag{
					Name:  "poll-interval",
					Usage: "poll the directory at this interval instead of using inotify (0 to use inotify)",
				},
				&cli.StringFlag{
					Name:  "rename-policy",
					Usage: "offset handling after a rename [advance, keep]",
				},
				&cli.StringFlag{
					Name:  "filter-policy",
					Usage: "line filtering [short, none]",
				},
				&cli.StringFlag{
					Name:  "remove-policy",
					Usage: "tailer handling when its file is removed [teardown, keep]",
				},
				&cli.StringFlag{
					Name:  "sink-file",
					Usage: "write the batches as JSON lines to this file (default: stdout)",
				},
				&cli.IntFlag{
					Name:  "sink-max-size-mb",
					Usage: "rotate the sink file at this size",
					Value: config.DefaultSinkMaxSizeMB,
				},
				&cli.BoolFlag{
					Name:  "pprof",
					Usage: "enable pprof (default: false)",
				},
			},
		},
		{
			Name:   "status",
			Usage:  "shows the files tailed by a running harvester",
			Action: cmdstatus.Command,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "log-level,l",
					Usage: "set the logging level [debug, info, warn, error, fatal, panic, dpanic]",
				},
				&cli.StringFlag{
					Name:  "server-address",
					Usage: "set the address of the running harvester",
					Value: config.DefaultAddress,
				},
				&cli.StringFlag{
					Name:  "output,o",
					Usage: "set the output format [plain, json]",
					Value: "plain",
				},
			},
		},
		{
			Name:  "version",
			Usage: "prints the version and build information",
			Action: func(cliContext *cli.Context) error {
				fmt.Fprintf(cliContext.App.Writer, "version:   %s\nrevision:  %s\nbuilt:     %s\ngo:        %s\n",
					version.Version, version.Revision, version.BuildTimestamp, version.GoVersion)
				return nil
			},
		},
	}

	return app
}
