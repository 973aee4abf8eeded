package config

import (
	"go.viam.com/navgoal/logging"
)

// Level returns the configured log level.
func (c *Config) Level() (logging.Level, error) {
	if c.LogLevel == "" {
		return logging.INFO, nil
	}
	return logging.LevelFromString(c.LogLevel)
}

// ApplyLogLevel sets logger to the configured level, or to debug when the command line asked for
// it. It reports whether the level changed.
func ApplyLogLevel(logger logging.Logger, cfg *Config, cmdLineDebug bool) bool {
	level, err := cfg.Level()
	if err != nil {
		level = logging.INFO
	}
	if cmdLineDebug {
		level = logging.DEBUG
	}
	if logger.GetLevel() == level {
		return false
	}
	logger.Infow("New log level", "level", level.String())
	logger.SetLevel(level)
	return true
}
