package radarserver

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/travigo/transit-radar/pkg/gtfstime"
	"github.com/travigo/transit-radar/pkg/radar"
	"github.com/travigo/transit-radar/pkg/radarconfig"
	"github.com/travigo/transit-radar/pkg/radarresult"
)

// RegisterCLI returns a named cli.Command with its own subcommands, meant
// to be attached to the cmd/radar urfave/cli.App.
func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "radar",
		Usage: "Builds and serves transit reachability radars from a GTFS feed",
		Subcommands: []*cli.Command{
			loadCommand(),
			serveCommand(),
			queryCommand(),
		},
	}
}

func loadCommand() *cli.Command {
	return &cli.Command{
		Name:  "load",
		Usage: "Load a GTFS feed and report how it was indexed, without serving it",
		Flags: []cli.Flag{gtfsDirFlag(), lineColoursFlag()},
		Action: func(c *cli.Context) error {
			store := NewStore()
			if err := store.Refresh(c.String("gtfs-dir"), c.String("line-colours")); err != nil {
				return err
			}
			idx, stations := store.Current()
			log.Info().
				Int("stops", idx.StopCount()).
				Int("stations", idx.StationCount()).
				Int("indexed_words", stations.NumWords()).
				Msg("feed loaded")
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the radar HTTP API",
		Flags: []cli.Flag{
			gtfsDirFlag(),
			lineColoursFlag(),
			&cli.StringFlag{Name: "listen", Value: ":8080", Usage: "listen target for the web server"},
			&cli.StringFlag{Name: "redis-address", Value: "", EnvVars: []string{radarconfig.KeyRedisAddress}, Usage: "optional redis address for the response cache"},
		},
		Action: func(c *cli.Context) error {
			store := NewStore()
			if err := store.Refresh(c.String("gtfs-dir"), c.String("line-colours")); err != nil {
				return err
			}

			respCache := NewResponseCache(c.String("redis-address"))
			cutoff := radarconfig.LoadEnvironment().ServiceCutoffSeconds(gtfstime.DefaultServiceCutoff)
			app := SetupServer(store, respCache, cutoff)
			return app.Listen(c.String("listen"))
		},
	}
}

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "Run a single radar query against a feed and print the reduced JSON result",
		Flags: []cli.Flag{
			gtfsDirFlag(),
			lineColoursFlag(),
			&cli.StringFlag{Name: "origin", Required: true, Usage: "origin station's feed identifier"},
			&cli.StringFlag{Name: "time", Value: "now", Usage: "query instant, RFC3339 or \"now\""},
			&cli.StringFlag{Name: "duration-minutes", Value: "", Usage: "budget in minutes, default 30"},
			&cli.StringFlag{Name: "modes", Value: "", Usage: "comma-separated mode subset, default all"},
			&cli.StringFlag{Name: "transfer-cap-seconds", Value: "", Usage: "maximum single transfer, default 600"},
		},
		Action: func(c *cli.Context) error {
			store := NewStore()
			if err := store.Refresh(c.String("gtfs-dir"), c.String("line-colours")); err != nil {
				return err
			}
			idx, _ := store.Current()

			origin, ok := idx.StationByExternalID(c.String("origin"))
			if !ok {
				return fmt.Errorf("radar query: unknown origin station %q", c.String("origin"))
			}

			instant, err := radarconfig.ParseTime(c.String("time"), time.Now)
			if err != nil {
				return err
			}
			durationMinutes, err := radarconfig.ParseDurationMinutes(c.String("duration-minutes"))
			if err != nil {
				return err
			}
			modes, err := radarconfig.ParseModes(c.String("modes"))
			if err != nil {
				return err
			}
			transferCap, err := radarconfig.ParseTransferCapSeconds(c.String("transfer-cap-seconds"))
			if err != nil {
				return err
			}

			day, queryTime := gtfstime.Normalise(instant, gtfstime.DefaultServiceCutoff)
			tree, err := radar.Search(idx, radar.Config{
				Origin:      origin,
				Day:         day,
				QueryTime:   queryTime,
				Duration:    durationMinutes * 60,
				Modes:       modes,
				TransferCap: transferCap,
			})
			if err != nil {
				return err
			}

			result := radarresult.Project(idx, tree, day)
			encoded, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(encoded))
			return nil
		},
	}
}

func gtfsDirFlag() cli.Flag {
	return &cli.StringFlag{Name: "gtfs-dir", Required: true, EnvVars: []string{radarconfig.KeyGTFSDir}, Usage: "directory containing the GTFS feed's text files"}
}

func lineColoursFlag() cli.Flag {
	return &cli.StringFlag{Name: "line-colours", Value: "", EnvVars: []string{radarconfig.KeyLineColoursFile}, Usage: "optional route livery CSV (route_short_name,colour,dash)"}
}
