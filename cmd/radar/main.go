package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"

	"github.com/travigo/transit-radar/pkg/radarconfig"
	"github.com/travigo/transit-radar/pkg/radarserver"
)

func main() {
	env := radarconfig.LoadEnvironment()

	if env.LogFormat() != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	if env.Debug() {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "radar",
		Description: "Transit reachability radar: GTFS timetable index, earliest-arrival search and HTTP surface",
		Commands: []*cli.Command{
			radarserver.RegisterCLI(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}
