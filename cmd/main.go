package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "photokiosk",
		Usage: "Souvenir photo booth service for the campus kiosk",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				EnvVars: []string{"PHOTOKIOSK_CONFIG"},
				Usage:   "Path to the YAML config file",
			},
		},
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			cleanupCmd(),
		},
	}
}
