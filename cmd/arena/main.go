// Command arena pits the search against a random player, or against a human
// typing moves in UCI notation, and prints the tally.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"

	janggizero "github.com/janggizero"
	"github.com/janggizero/game"
	"github.com/janggizero/janggi"
	"github.com/janggizero/mcts"
)

var (
	confPath = flag.String("config", "", "YAML configuration file")
	games    = flag.Int("games", 10, "number of games against the random player")
	sims     = flag.Int("sims", 0, "simulations per move, overrides the configuration")
	seed     = flag.Int64("seed", 0, "random seed, overrides the configuration")
	human    = flag.Bool("human", false, "play one game as BLUE from the terminal")
	ponder   = flag.Bool("ponder", false, "let the search think on the opponent's time")
	blue     = flag.String("blue", "yang", "blue layout for the human game")
	red      = flag.String("red", "yang", "red layout for the human game")
	dotPath  = flag.String("dot", "", "write the search tree of the opening position to this DOT file")
	dotDepth = flag.Int("dot_depth", 2, "depth of the DOT tree")
	dotWidth = flag.Int("dot_width", 5, "children per node in the DOT tree")
	verbose  = flag.Bool("v", false, "log every move")
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
	if *seed != 0 {
		conf.Seed = *seed
	}

	m, err := mcts.New(conf.MCTSConf, mcts.MaterialPredictor{}, mcts.WithSeed(conf.Seed), mcts.WithLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("setting up the search")
	}
	agent := janggizero.NewAgent("mcts", m)
	agent.Ponder = *ponder
	defer func() {
		if err := agent.Close(); err != nil {
			logger.Error().Err(err).Msg("closing the agent")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *dotPath != "" {
		if err := writeDot(ctx, m, conf); err != nil {
			logger.Fatal().Err(err).Msg("writing the search tree")
		}
	}

	if *human {
		if err := playHuman(ctx, agent, conf, logger); err != nil {
			logger.Fatal().Err(err).Msg("human game")
		}
		return
	}

	arena := janggizero.NewArena(agent, game.NewRandomPlayer(conf.Seed), conf, logger)
	for i := 0; i < *games; i++ {
		record, err := arena.Play(ctx)
		if err != nil {
			logger.Fatal().Err(err).Int("game", i).Msg("arena")
		}
		logger.Info().Int("game", i).Stringer("winner", record.Winner).Int("moves", len(record.Actions)).Msg("game over")
	}
	fmt.Printf("mcts wins %d, loss %d\n", arena.CurrentStats.Wins, arena.CurrentStats.Loss)
}

func playHuman(ctx context.Context, agent *janggizero.Agent, conf janggizero.Config, logger zerolog.Logger) error {
	blueLayout, err := janggi.ParseLayout(*blue)
	if err != nil {
		return err
	}
	redLayout, err := janggi.ParseLayout(*red)
	if err != nil {
		return err
	}
	you := game.NewTextPlayer(os.Stdin, os.Stdout)
	g := game.New(you, agent, janggi.NewBoard(blueLayout, redLayout, conf.GameConf.MaxRepetitions), conf.GameConf, game.WithLogger(logger))
	winner, err := g.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%v\n%v wins\n", g.Board, winner)
	return nil
}

func writeDot(ctx context.Context, m *mcts.MCTS, conf janggizero.Config) error {
	s := game.NewState(janggi.NewBoard(janggi.Yang, janggi.Yang, conf.GameConf.MaxRepetitions), conf.GameConf.IterationMax)
	root := mcts.NewRoot()
	if err := m.Search(ctx, root, s); err != nil {
		return err
	}
	dot, err := mcts.Dot(root, *dotDepth, *dotWidth)
	if err != nil {
		return err
	}
	return os.WriteFile(*dotPath, []byte(dot), 0644)
}
