// Command selfplay lets the search play against itself and writes the
// resulting training examples, and optionally the game records. With -from it
// plays nothing and turns recorded games into examples instead.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"

	janggizero "github.com/janggizero"
	"github.com/janggizero/game"
	"github.com/janggizero/mcts"
)

var (
	confPath    = flag.String("config", "", "YAML configuration file")
	episodes    = flag.Int("episodes", 10, "number of games to play")
	outPath     = flag.String("out", "examples.gob.zst", "where to write the examples")
	recordsPath = flag.String("records", "", "where to write the game records, if anywhere")
	fromPath    = flag.String("from", "", "read game records from this file instead of playing")
	sims        = flag.Int("sims", 0, "simulations per move, overrides the configuration")
	parallel    = flag.Int("parallel", 0, "games played at once, overrides the configuration")
	seed        = flag.Int64("seed", 0, "random seed, overrides the configuration")
	verbose     = flag.Bool("v", false, "log every move")
)

func main() {
	flag.Parse()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	if *verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}

	conf := janggizero.DefaultConfig()
	if *confPath != "" {
		var err error
		if conf, err = janggizero.LoadConfig(*confPath); err != nil {
			logger.Fatal().Err(err).Msg("loading configuration")
		}
	}
	if *sims > 0 {
		conf.MCTSConf.NumSimulations = *sims
	}
	if *parallel > 0 {
		conf.Parallel = *parallel
	}
	if *seed != 0 {
		conf.Seed = *seed
	}

	if *fromPath != "" {
		fromRecords(logger, conf)
		return
	}

	sp, err := janggizero.NewSelfPlayer(conf, mcts.MaterialPredictor{}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("setting up self play")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	examples, records, err := sp.Generate(ctx, *episodes)
	if err != nil {
		logger.Fatal().Err(err).Msg("self play")
	}
	logger.Info().Int("examples", len(examples)).Int("games", len(records)).Msg("self play done")

	if err := janggizero.SaveExamples(*outPath, examples); err != nil {
		logger.Fatal().Err(err).Msg("saving examples")
	}
	if *recordsPath != "" {
		dumps := make([]string, len(records))
		for i, r := range records {
			dumps[i] = r.Dumps()
		}
		if err := os.WriteFile(*recordsPath, []byte(strings.Join(dumps, "\n")), 0644); err != nil {
			logger.Fatal().Err(err).Msg("saving records")
		}
	}
}

func fromRecords(logger zerolog.Logger, conf janggizero.Config) {
	f, err := os.Open(*fromPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("opening records")
	}
	defer f.Close()
	records, err := game.ReadRecords(f)
	if err != nil {
		logger.Fatal().Err(err).Msg("reading records")
	}

	var examples []janggizero.Example
	for i, rec := range records {
		ex, err := janggizero.RecordExamples(rec, conf.GameConf.MaxRepetitions)
		if err != nil {
			logger.Warn().Err(err).Int("record", i).Msg("skipping record")
			continue
		}
		examples = append(examples, ex...)
	}
	logger.Info().Int("examples", len(examples)).Int("games", len(records)).Msg("records converted")

	if err := janggizero.SaveExamples(*outPath, examples); err != nil {
		logger.Fatal().Err(err).Msg("saving examples")
	}
}
