package main

import (
	"fmt"
	"io"
	"os"

	"github.com/QuangTung97/bankpool"
	"github.com/QuangTung97/bankpool/config"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/slog"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "TOML file with the bank layout and tracer capacity",
	}
	verboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Log every malloc and free",
	}
	formatFlag = &cli.StringFlag{
		Name:  "format",
		Value: string(bankpool.FormatText),
		Usage: "Report format: text or json",
	}
)

func newApp(stdout io.Writer, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "bankpool",
		Usage:     "static pool allocator with allocation tracing",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     []cli.Flag{configFlag, verboseFlag},
		Commands: []*cli.Command{
			{
				Name:   "demo",
				Usage:  "Run the demonstration allocations and print the tracer report",
				Flags:  []cli.Flag{formatFlag},
				Action: demo,
			},
			{
				Name:   "config",
				Usage:  "Print the effective configuration as TOML",
				Action: dumpConfig,
			},
		},
	}
}

func loadConfig(ctx *cli.Context) (config.Config, error) {
	path := ctx.String(configFlag.Name)
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newLogger(ctx *cli.Context) *slog.Logger {
	level := slog.LevelInfo
	if ctx.Bool(verboseFlag.Name) {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(ctx.App.ErrWriter, &slog.HandlerOptions{Level: level}))
}

func dumpConfig(ctx *cli.Context) error {
	c, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	return config.Encode(ctx.App.Writer, c)
}

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
