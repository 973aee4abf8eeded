package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"gopkg.in/yaml.v3"

	"go.viam.com/navgoal/config"
	"go.viam.com/navgoal/logging"
	"go.viam.com/navgoal/ros"
	"go.viam.com/navgoal/services/navgoal"
)

func newLogger(c *cli.Context) logging.Logger {
	level := logging.INFO
	if c.Bool(flagDebug) {
		level = logging.DEBUG
	}
	if path := c.String(flagLogFile); path != "" {
		return logging.NewFileLogger("navgoal", level, path)
	}
	if level == logging.DEBUG {
		return logging.NewDebugLogger("navgoal")
	}
	return logging.NewLogger("navgoal")
}

// RunAction runs the goal node until SIGINT or SIGTERM.
func RunAction(c *cli.Context) error {
	logger := newLogger(c)
	defer utils.UncheckedErrorFunc(logger.Sync)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return navgoal.Run(ctx, navgoal.RunOptions{
		ConfigPath: c.String(flagConfig),
		NATSURL:    c.String(flagNATSURL),
		Debug:      c.Bool(flagDebug),
	}, logger)
}

// ValidateAction reads the config and prints it with every default filled in.
func ValidateAction(c *cli.Context) error {
	path := c.String(flagConfig)
	cfg, err := config.Read(path)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "# %s is valid", path)
	enc := yaml.NewEncoder(c.App.Writer)
	enc.SetIndent(2)
	return multierr.Combine(enc.Encode(cfg), enc.Close())
}

// ReplayAction runs a rosbag through the goal node and writes every goal it would have published.
func ReplayAction(c *cli.Context) (err error) {
	logger := newLogger(c)
	defer utils.UncheckedErrorFunc(logger.Sync)

	cfg, err := config.Read(c.String(flagConfig))
	if err != nil {
		return err
	}
	logger.Infow("reading bag", "path", c.String(flagBag))
	rb, err := ros.ReadBag(c.String(flagBag))
	if err != nil {
		return err
	}
	msgs, err := ros.MessagesForTopics(rb, navgoal.ReplayTopics(cfg)...)
	if err != nil {
		return err
	}

	out := c.App.Writer
	if path := c.String(flagOutput); path != "" {
		//nolint:gosec
		f, createErr := os.Create(path)
		if createErr != nil {
			return errors.Wrapf(createErr, "cannot create %s", path)
		}
		defer func() {
			err = multierr.Combine(err, f.Close())
		}()
		out = f
	}

	res, err := navgoal.Replay(c.Context, cfg, msgs, logger)
	if err != nil {
		return errors.Wrap(err, "replay failed")
	}
	if err := writeGoals(out, res.Goals); err != nil {
		return err
	}
	logger.Infow("replay finished", "messages", res.Messages, "ticks", res.Ticks, "goals", len(res.Goals))
	return nil
}

func writeGoals(w io.Writer, goals []ros.PoseStamped) error {
	enc := json.NewEncoder(w)
	for _, g := range goals {
		if err := enc.Encode(g); err != nil {
			return errors.Wrap(err, "cannot write goal")
		}
	}
	return nil
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}
