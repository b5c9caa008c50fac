package janggi

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidNotation is the cause of every notation parsing failure.
var ErrInvalidNotation = errors.New("invalid move notation")

const (
	uciPass     = "a1a1"
	compactPass = "XXXX"
)

// UCI writes the move with files a to i for columns and ranks 1 to 10 for
// rows, e.g. "b1c3". A pass is "a1a1".
func (a Action) UCI() string {
	if a.IsPass() {
		return uciPass
	}
	var sb strings.Builder
	sb.WriteByte(byte('a' + a.FromCol))
	sb.WriteString(strconv.Itoa(int(a.FromRow) + 1))
	sb.WriteByte(byte('a' + a.ToCol))
	sb.WriteString(strconv.Itoa(int(a.ToRow) + 1))
	return sb.String()
}

// ParseUCI reads the notation written by Action.UCI.
func ParseUCI(s string) (Action, error) {
	fromCol, rest, ok := uciFile(s)
	if !ok {
		return Pass, errors.Wrapf(ErrInvalidNotation, "bad origin file in %q", s)
	}
	fromRow, rest, ok := uciRank(rest)
	if !ok {
		return Pass, errors.Wrapf(ErrInvalidNotation, "bad origin rank in %q", s)
	}
	toCol, rest, ok := uciFile(rest)
	if !ok {
		return Pass, errors.Wrapf(ErrInvalidNotation, "bad destination file in %q", s)
	}
	toRow, rest, ok := uciRank(rest)
	if !ok || rest != "" {
		return Pass, errors.Wrapf(ErrInvalidNotation, "bad destination rank in %q", s)
	}
	a := NewAction(fromRow, fromCol, toRow, toCol)
	if a.IsPass() {
		return Pass, nil
	}
	return a, nil
}

func uciFile(s string) (col int, rest string, ok bool) {
	if s == "" || s[0] < 'a' || s[0] >= 'a'+Width {
		return 0, s, false
	}
	return int(s[0] - 'a'), s[1:], true
}

func uciRank(s string) (row int, rest string, ok bool) {
	n := 0
	for n < len(s) && n < 2 && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	if n == 0 {
		return 0, s, false
	}
	rank, err := strconv.Atoi(s[:n])
	if err != nil || rank < 1 || rank > Height {
		return 0, s, false
	}
	return rank - 1, s[n:], true
}

// Compact writes the four digits from-row, from-col, to-row, to-col. A pass is
// "XXXX".
func (a Action) Compact() string {
	if a.IsPass() {
		return compactPass
	}
	return string([]byte{
		byte('0' + a.FromRow), byte('0' + a.FromCol),
		byte('0' + a.ToRow), byte('0' + a.ToCol),
	})
}

// ParseCompact reads the notation written by Action.Compact.
func ParseCompact(s string) (Action, error) {
	if s == compactPass {
		return Pass, nil
	}
	if len(s) != 4 {
		return Pass, errors.Wrapf(ErrInvalidNotation, "%q is not four characters", s)
	}
	var d [4]int
	for i := 0; i < 4; i++ {
		if s[i] < '0' || s[i] > '9' {
			return Pass, errors.Wrapf(ErrInvalidNotation, "%q has a non digit", s)
		}
		d[i] = int(s[i] - '0')
	}
	if d[1] >= Width || d[3] >= Width {
		return Pass, errors.Wrapf(ErrInvalidNotation, "%q is off the board", s)
	}
	a := NewAction(d[0], d[1], d[2], d[3])
	if a.IsPass() {
		return Pass, nil
	}
	return a, nil
}
