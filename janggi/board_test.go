package janggi

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snapshot captures everything Apply and Reverse are allowed to touch.
type snapshot struct {
	pieces  []Piece
	grid    [Height][Width]int8
	sig     Signature
	history map[Signature]int
	cache   *cacheNode
	stack   int
	str     string
}

func takeSnapshot(b *Board) snapshot {
	h := make(map[Signature]int, len(b.history))
	for k, v := range b.history {
		h[k] = v
	}
	return snapshot{
		pieces:  append([]Piece(nil), b.pieces...),
		grid:    b.grid,
		sig:     b.sig,
		history: h,
		cache:   b.cache,
		stack:   len(b.stack),
		str:     b.String(),
	}
}

func TestInitialActionCount(t *testing.T) {
	for _, blue := range Layouts {
		for _, red := range Layouts {
			b := NewBoard(blue, red, DefaultMaxRepetitions)
			assert.Len(t, b.Actions(Blue), 31, "blue %v red %v", blue, red)
			assert.Len(t, b.Actions(Red), 31, "blue %v red %v", blue, red)
		}
	}
}

func TestActionsWhileInCheck(t *testing.T) {
	b := NewBoard(Yang, Yang, DefaultMaxRepetitions)
	mustPlace(t, b, Chariot, Red, 2, 3)

	require.True(t, b.IsCheck(Blue))
	assert.ElementsMatch(t, []Action{
		NewAction(1, 4, 0, 4),
		NewAction(1, 4, 1, 5),
		NewAction(1, 4, 2, 3),
		NewAction(0, 2, 2, 3),
	}, b.Actions(Blue))
}

func TestApplyReverseRestoresBoard(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	b := NewBoard(Gwee, Sang, DefaultMaxRepetitions)
	color := Blue
	for ply := 0; ply < 60; ply++ {
		before := takeSnapshot(b)
		actions := b.Actions(color)
		for _, a := range actions {
			u := b.Apply(a)
			b.Actions(color.Other())
			b.Reverse(u)
			require.Equal(t, before, takeSnapshot(b), "after %v at ply %d", a, ply)
		}
		b.Apply(actions[r.Intn(len(actions))])
		color = color.Other()
		if b.General(color) == nil {
			break
		}
	}
}

func TestReverseOutOfOrderPanics(t *testing.T) {
	b := NewBoard(Yang, Yang, DefaultMaxRepetitions)
	first := b.Apply(NewAction(3, 0, 4, 0))
	b.Apply(NewAction(6, 0, 5, 0))
	assert.Panics(t, func() { b.Reverse(first) })
}

func TestPassOnlyTouchesHistory(t *testing.T) {
	b := NewBoard(Yang, Yang, DefaultMaxRepetitions)
	str := b.String()
	sig := b.Signature()

	u := b.Apply(Pass)
	assert.Equal(t, str, b.String())
	assert.Equal(t, 1, b.Repetitions(sig))
	assert.False(t, u.Captured())

	b.Reverse(u)
	assert.Equal(t, 0, b.Repetitions(sig))
}

func TestRepetitionLimit(t *testing.T) {
	b := NewEmptyBoard(3)
	mustPlace(t, b, General, Blue, 1, 4)
	mustPlace(t, b, General, Red, 8, 4)
	mustPlace(t, b, Chariot, Blue, 4, 0)
	mustPlace(t, b, Chariot, Red, 5, 8)

	out, back := NewAction(4, 0, 4, 1), NewAction(4, 1, 4, 0)
	redOut, redBack := NewAction(5, 8, 5, 7), NewAction(5, 7, 5, 8)

	cycle := []Action{out, redOut, back}
	for _, a := range cycle {
		b.Apply(a)
	}
	require.Contains(t, b.Actions(Red), redBack, "the start position has been left once")
	b.Apply(redBack)

	for _, a := range cycle {
		require.Contains(t, b.Actions(b.At(int(a.FromRow), int(a.FromCol)).Color), a)
		b.Apply(a)
	}
	assert.NotContains(t, b.Actions(Red), redBack, "a third visit of the start position must not be offered")
	assert.Contains(t, b.Actions(Red), NewAction(5, 7, 5, 6))
}

func TestIsCheck(t *testing.T) {
	b := NewEmptyBoard(DefaultMaxRepetitions)
	mustPlace(t, b, General, Blue, 1, 4)
	mustPlace(t, b, General, Red, 8, 3)
	mustPlace(t, b, Chariot, Red, 5, 4)
	assert.True(t, b.IsCheck(Blue))
	assert.False(t, b.IsCheck(Red))

	mustPlace(t, b, Soldier, Blue, 3, 4)
	assert.False(t, b.IsCheck(Blue))
}

func TestIsFinished(t *testing.T) {
	t.Run("checkmate", func(t *testing.T) {
		b := NewEmptyBoard(DefaultMaxRepetitions)
		mustPlace(t, b, General, Blue, 0, 4)
		mustPlace(t, b, Chariot, Blue, 9, 0)
		mustPlace(t, b, Cannon, Blue, 9, 1)
		mustPlace(t, b, General, Red, 8, 4)
		mustPlace(t, b, Chariot, Red, 0, 8)
		mustPlace(t, b, Chariot, Red, 1, 0)

		require.Equal(t, float32(20), b.Score(Blue))
		require.True(t, b.IsCheck(Blue))
		assert.Equal(t, []Action{Pass}, b.Actions(Blue))
		assert.True(t, b.IsFinished(Blue, nil))
		assert.False(t, b.IsFinished(Red, nil))
	})

	t.Run("low material without a capture", func(t *testing.T) {
		b := NewEmptyBoard(DefaultMaxRepetitions)
		mustPlace(t, b, General, Blue, 1, 4)
		mustPlace(t, b, Soldier, Blue, 3, 0)
		mustPlace(t, b, General, Red, 8, 4)
		mustPlace(t, b, Chariot, Red, 5, 8)
		mustPlace(t, b, Chariot, Red, 6, 8)

		assert.False(t, b.IsFinished(Blue, nil))
		u := b.Apply(NewAction(5, 8, 5, 7))
		assert.True(t, b.IsFinished(Blue, &u))
	})

	t.Run("low material right after a capture", func(t *testing.T) {
		b := NewEmptyBoard(DefaultMaxRepetitions)
		mustPlace(t, b, General, Blue, 1, 4)
		mustPlace(t, b, Soldier, Blue, 3, 0)
		mustPlace(t, b, Soldier, Blue, 5, 7)
		mustPlace(t, b, General, Red, 8, 4)
		mustPlace(t, b, Chariot, Red, 5, 8)

		u := b.Apply(NewAction(5, 8, 5, 7))
		require.True(t, u.Captured())
		assert.False(t, b.IsFinished(Blue, &u))
	})

	t.Run("starting position", func(t *testing.T) {
		b := NewBoard(Yang, Won, DefaultMaxRepetitions)
		assert.False(t, b.IsFinished(Blue, nil))
		assert.False(t, b.IsFinished(Red, nil))
	})
}

func TestActionCacheFollowsMoves(t *testing.T) {
	b := NewBoard(Yang, Yang, DefaultMaxRepetitions)
	root := b.cache
	first := b.Actions(Blue)

	u := b.Apply(first[0])
	require.NotSame(t, root, b.cache)
	require.Same(t, root, b.cache.parent)
	b.Actions(Red)

	b.Reverse(u)
	require.Same(t, root, b.cache)
	assert.Same(t, &first[0], &b.Actions(Blue)[0], "the memoised slice is returned again")
	assert.Equal(t, 2, b.CacheSize())

	b.InvalidateActionCache()
	assert.Equal(t, 1, b.CacheSize())
}

func TestCloneIsIndependent(t *testing.T) {
	b := NewBoard(Sang, Gwee, DefaultMaxRepetitions)
	c := b.Clone()
	c.Apply(NewAction(3, 0, 4, 0))

	assert.NotEqual(t, b.String(), c.String())
	assert.Equal(t, 3, b.At(3, 0).Row)
	assert.Nil(t, b.At(4, 0))
	assert.Equal(t, 0, b.Repetitions(b.Signature()))
}

func TestIdenticalMovesGiveIdenticalBoards(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	a := NewBoard(Won, Yang, DefaultMaxRepetitions)
	b := NewBoard(Won, Yang, DefaultMaxRepetitions)
	color := Blue
	for ply := 0; ply < 80 && a.General(color) != nil; ply++ {
		actions := a.Actions(color)
		require.Equal(t, actions, b.Actions(color))
		next := actions[r.Intn(len(actions))]
		a.Apply(next)
		b.Apply(next)
		a.InvalidateActionCache()
		color = color.Other()
	}
	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, a.Score(Blue), b.Score(Blue))
	assert.Equal(t, a.Score(Red), b.Score(Red))
}

func TestString(t *testing.T) {
	b := NewBoard(Yang, Yang, DefaultMaxRepetitions)
	want := "r e h g . g h e r\n" +
		". . . . k . . . .\n" +
		". c . . . . . c .\n" +
		"s . s . s . s . s\n" +
		". . . . . . . . .\n" +
		". . . . . . . . .\n" +
		"S . S . S . S . S\n" +
		". C . . . . . C .\n" +
		". . . . K . . . .\n" +
		"R E H G . G H E R\n"
	assert.Equal(t, want, b.String())
}

func TestPlaceRejectsBadSquares(t *testing.T) {
	b := NewBoard(Yang, Yang, DefaultMaxRepetitions)
	assert.Error(t, b.Place(Soldier, Blue, 0, 0))
	assert.Error(t, b.Place(Soldier, Blue, 10, 0))
	assert.Error(t, b.Place(General, Blue, 4, 4))
	assert.Error(t, b.Remove(4, 4))
}

func TestParseLayout(t *testing.T) {
	for _, l := range Layouts {
		got, err := ParseLayout(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, got)
	}
	_, err := ParseLayout("nope")
	assert.Error(t, err)
}
