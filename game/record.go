package game

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/janggizero/janggi"
)

// Visits are the search statistics behind one move.
type Visits struct {
	Total int
	N     map[janggi.Action]int
}

// Record is a game reduced to what is needed to replay it: the two layouts and
// the moves from the standard position.
type Record struct {
	Blue, Red janggi.Layout
	Actions   []janggi.Action
	Winner    janggi.Color
	Visits    []Visits // optional, aligned with Actions
}

// toMove is the side to move once every action has been played.
func (r *Record) toMove() janggi.Color {
	if len(r.Actions)%2 == 0 {
		return janggi.Blue
	}
	return janggi.Red
}

// Dumps writes the text form: the blue layout, the red layout, then one
// compact move per line. When the winner is the side left to move, a final
// pass marker is added so the loser is always the side to move at the end.
func (r *Record) Dumps() string {
	var sb strings.Builder
	sb.WriteString(r.Blue.String())
	sb.WriteByte('\n')
	sb.WriteString(r.Red.String())
	sb.WriteByte('\n')
	for _, a := range r.Actions {
		sb.WriteString(a.Compact())
		sb.WriteByte('\n')
	}
	if r.Winner == r.toMove() {
		sb.WriteString(janggi.Pass.Compact())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ParseRecord reads one record in the text form written by Dumps.
func ParseRecord(rd io.Reader) (*Record, error) {
	sc := bufio.NewScanner(rd)
	rec, err := scanRecord(sc)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.New("empty record")
	}
	return rec, nil
}

// ReadRecords reads records separated by blank lines.
func ReadRecords(rd io.Reader) ([]*Record, error) {
	sc := bufio.NewScanner(rd)
	var recs []*Record
	for {
		rec, err := scanRecord(sc)
		if err != nil {
			return recs, errors.WithMessagef(err, "record %d", len(recs))
		}
		if rec == nil {
			return recs, nil
		}
		recs = append(recs, rec)
	}
}

// scanRecord consumes lines up to the next blank line. It returns nil at the
// end of the input.
func scanRecord(sc *bufio.Scanner) (*Record, error) {
	var lines []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			if len(lines) == 0 {
				continue
			}
			break
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	if len(lines) == 0 {
		return nil, nil
	}
	if len(lines) < 2 {
		return nil, errors.Errorf("record has %d lines, want the two layouts first", len(lines))
	}

	rec := &Record{}
	var err error
	if rec.Blue, err = janggi.ParseLayout(lines[0]); err != nil {
		return nil, err
	}
	if rec.Red, err = janggi.ParseLayout(lines[1]); err != nil {
		return nil, err
	}
	for i, line := range lines[2:] {
		a, err := janggi.ParseCompact(line)
		if err != nil {
			return nil, errors.WithMessagef(err, "move %d", i)
		}
		rec.Actions = append(rec.Actions, a)
	}
	// The side left to move lost. A trailing pass is either the marker Dumps
	// writes when the winner is left to move, or the forced pass of a side
	// without any other move; the winner is the same either way. The pass is
	// kept only when the position before it calls for one, which mistakes the
	// marker of a game capped on such a position for a real pass.
	rec.Winner = rec.toMove().Other()
	if n := len(rec.Actions); n > 0 && rec.Actions[n-1].IsPass() {
		prefix := &Record{Blue: rec.Blue, Red: rec.Red, Actions: rec.Actions[:n-1]}
		s, err := prefix.Replay(janggi.DefaultMaxRepetitions)
		if err != nil || !passIsForced(s) {
			rec.Actions = rec.Actions[:n-1]
		}
	}
	return rec, nil
}

// passIsForced reports whether the game goes on in s and passing is all the
// side to move can do.
func passIsForced(s *State) bool {
	if s.IsFinished() {
		return false
	}
	actions := s.Actions()
	return len(actions) == 1 && actions[0].IsPass()
}

// Replay rebuilds the game on a fresh board, checking every move.
func (r *Record) Replay(maxRepetitions int) (*State, error) {
	s := NewState(janggi.NewBoard(r.Blue, r.Red, maxRepetitions), 0)
	for i, a := range r.Actions {
		if !contains(s.Actions(), a) {
			return s, errors.Wrapf(ErrIllegalAction, "move %d %v for %v", i, a.UCI(), s.ToMove)
		}
		s.Apply(a)
		s.Board.InvalidateActionCache()
	}
	return s, nil
}

type jsonMove struct {
	Played string         `json:"played"`
	Total  int            `json:"total_N"`
	N      map[string]int `json:"N"`
}

type jsonRecord struct {
	Blue   janggi.Layout `json:"blue"`
	Red    janggi.Layout `json:"red"`
	Winner string        `json:"winner"`
	Moves  []jsonMove    `json:"moves"`
}

// MarshalJSON writes the moves in UCI notation with their visit counts. Moves
// without statistics count as a single visit of the move played.
func (r *Record) MarshalJSON() ([]byte, error) {
	out := jsonRecord{
		Blue:   r.Blue,
		Red:    r.Red,
		Winner: r.Winner.String(),
		Moves:  make([]jsonMove, len(r.Actions)),
	}
	for i, a := range r.Actions {
		m := jsonMove{Played: a.UCI(), Total: 1, N: map[string]int{a.UCI(): 1}}
		if i < len(r.Visits) && r.Visits[i].Total > 0 {
			v := r.Visits[i]
			m.Total = v.Total
			m.N = make(map[string]int, len(v.N))
			for va, n := range v.N {
				m.N[va.UCI()] = n
			}
		}
		out.Moves[i] = m
	}
	return json.Marshal(out)
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var in jsonRecord
	if err := json.Unmarshal(b, &in); err != nil {
		return errors.WithStack(err)
	}
	winner, err := janggi.ParseColor(in.Winner)
	if err != nil {
		return err
	}
	*r = Record{Blue: in.Blue, Red: in.Red, Winner: winner}
	for i, m := range in.Moves {
		a, err := janggi.ParseUCI(m.Played)
		if err != nil {
			return errors.WithMessagef(err, "move %d", i)
		}
		v := Visits{Total: m.Total, N: make(map[janggi.Action]int, len(m.N))}
		for s, n := range m.N {
			va, err := janggi.ParseUCI(s)
			if err != nil {
				return errors.WithMessagef(err, "visits of move %d", i)
			}
			v.N[va] = n
		}
		r.Actions = append(r.Actions, a)
		r.Visits = append(r.Visits, v)
	}
	return nil
}
