// Command generatemoves plays random games and writes one record file per
// game, in the text form read back by game.ParseRecord. It also reports how
// many distinct moves came up.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"github.com/janggizero/game"
	"github.com/janggizero/janggi"
)

var (
	numGame      = flag.Int("num_game", 10, "number of games to play")
	dir          = flag.String("path", "records", "directory to write the records to")
	iterationMax = flag.Int("iteration_max", 200, "rounds before a game is scored")
	asJSON       = flag.Bool("json", false, "also write each record as JSON")
	seed         = flag.Int64("seed", 1, "random seed")
)

func main() {
	flag.Parse()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := os.MkdirAll(*dir, 0755); err != nil {
		logger.Fatal().Err(err).Msg("creating the output directory")
	}

	conf := game.DefaultConfig()
	conf.IterationMax = *iterationMax
	r := rand.New(rand.NewSource(uint64(*seed)))
	moves := make(map[janggi.Action]struct{})
	for i := 0; i < *numGame; i++ {
		blue := janggi.Layouts[r.Intn(len(janggi.Layouts))]
		red := janggi.Layouts[r.Intn(len(janggi.Layouts))]
		g := game.New(game.NewRandomPlayer(r.Int63()), game.NewRandomPlayer(r.Int63()), janggi.NewBoard(blue, red, conf.MaxRepetitions), conf)
		if _, err := g.Run(context.Background()); err != nil {
			logger.Fatal().Err(err).Int("game", i).Msg("playing")
		}
		for _, a := range g.History() {
			moves[a] = struct{}{}
		}

		record := g.Record()
		name := filepath.Join(*dir, uuid.NewString())
		if err := os.WriteFile(name+".txt", []byte(record.Dumps()), 0644); err != nil {
			logger.Fatal().Err(err).Msg("writing the record")
		}
		if *asJSON {
			data, err := record.MarshalJSON()
			if err != nil {
				logger.Fatal().Err(err).Msg("encoding the record")
			}
			if err := os.WriteFile(name+".json", data, 0644); err != nil {
				logger.Fatal().Err(err).Msg("writing the record")
			}
		}
		logger.Info().Int("game", i).Int("moves", len(record.Actions)).Stringer("winner", record.Winner).Msg("game over")
	}
	logger.Info().Int("distinct moves", len(moves)).Msg("done")
}
