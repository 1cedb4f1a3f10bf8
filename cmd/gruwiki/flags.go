package main

import "github.com/urfave/cli/v3"

var (
	runPath    string
	runsPath   string
	configFile string
	logLevel   string
	logFormat  string
	debug      bool
)

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "run",
			Aliases:     []string{"r"},
			Usage:       "path to a training run directory",
			Destination: &runPath,
		},
		&cli.StringFlag{
			Name:        "runs-path",
			Usage:       "directory holding one subdirectory per training run",
			Destination: &runsPath,
		},
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Usage:       "path to the YAML config file",
		Value:       defaultConfigPath(),
		Destination: &configFile,
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
