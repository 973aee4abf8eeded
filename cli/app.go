// Package cli contains the navgoal command line.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	flagConfig  = "config"
	flagDebug   = "debug"
	flagNATSURL = "nats-url"
	flagBag     = "bag"
	flagOutput  = "output"
	flagLogFile = "log-file"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     flagConfig,
		Aliases:  []string{"c"},
		Usage:    "load configuration from `FILE`",
		Required: true,
	}
}

var app = &cli.App{
	Name:            "navgoal",
	Usage:           "publish docking goals computed from front camera marker detections",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.StringFlag{
			Name:  flagLogFile,
			Usage: "also write logs as JSON lines to `FILE`, rotated as it grows",
		},
	},
	Commands: []*cli.Command{
		{
			Name:  "run",
			Usage: "run the goal node until interrupted",
			Flags: []cli.Flag{
				configFlag(),
				&cli.StringFlag{
					Name:  flagNATSURL,
					Usage: "NATS server `URL`, overriding nats_url from the config",
				},
			},
			Action: RunAction,
		},
		{
			Name:   "validate",
			Usage:  "check a config file and print the effective settings",
			Flags:  []cli.Flag{configFlag()},
			Action: ValidateAction,
		},
		{
			Name:  "replay",
			Usage: "run recorded detections and transforms from a rosbag through the goal node",
			Flags: []cli.Flag{
				configFlag(),
				&cli.StringFlag{
					Name:     flagBag,
					Usage:    "read messages from rosbag `FILE`",
					Required: true,
				},
				&cli.StringFlag{
					Name:  flagOutput,
					Usage: "write published goals as JSON lines to `FILE` instead of stdout",
				},
			},
			Action: ReplayAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
