package mcts

import "github.com/rs/zerolog"

// lumberjack is the debug trace of the search.
type lumberjack struct {
	logger zerolog.Logger
}

func makeLumberJack() lumberjack {
	return lumberjack{zerolog.Nop()}
}

func (l *lumberjack) log(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

// Logger returns the logger the trace is written to.
func (l *lumberjack) Logger() zerolog.Logger { return l.logger }
