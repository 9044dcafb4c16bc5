// Command dlaccel is the headless download-accelerator engine. It speaks
// the length-framed command/event protocol described in its companion
// packages over stdin/stdout, so it is normally spawned by a controller
// process (a browser extension, a CLI front-end) rather than run by hand.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/urfave/cli"

	"github.com/nativedl/dlaccel/pkg/dlengine"
	"github.com/nativedl/dlaccel/pkg/dlregistry"
	"github.com/nativedl/dlaccel/pkg/nativemsg"
)

func main() {
	app := &cli.App{
		Name:  "dlaccel",
		Usage: "native-messaging download accelerator engine",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:   "download-dir",
				Usage:  "directory downloaded files are written to",
				EnvVar: "DLACCEL_DOWNLOAD_DIR",
			},
			cli.IntFlag{
				Name:   "parallelism",
				Usage:  "number of concurrent segment fetchers for a multi-segment download",
				Value:  dlengine.DefaultParallelism,
				EnvVar: "DLACCEL_PARALLELISM",
			},
			cli.StringFlag{
				Name:   "log-file",
				Usage:  "path to write diagnostic logs to (defaults to stderr)",
				EnvVar: "DLACCEL_LOG_FILE",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "dlaccel: %s\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger, closeLog, err := buildLogger(c.String("log-file"))
	if err != nil {
		return err
	}
	defer closeLog()

	downloadDir, err := resolveDownloadDir(c.String("download-dir"))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}
	if err := dlengine.ValidateDownloadDirectory(downloadDir); err != nil {
		return fmt.Errorf("download directory unusable: %w", err)
	}

	registry := dlregistry.New()
	emitter := nativemsg.NewEmitter(os.Stdout)
	coordinator := dlengine.NewCoordinator(http.DefaultClient, registry, emitter, downloadDir, c.Int("parallelism"))
	coordinator.Logger = logger

	dispatcher := nativemsg.NewDispatcher(os.Stdin, emitter, coordinator)
	return dispatcher.Run()
}

func resolveDownloadDir(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, "Downloads"), nil
}

func buildLogger(path string) (*log.Logger, func(), error) {
	if path == "" {
		return log.New(os.Stderr, "dlaccel: ", log.LstdFlags), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return log.New(f, "dlaccel: ", log.LstdFlags), func() { f.Close() }, nil
}
