package janggi

// Actions returns the legal moves of color, in a deterministic order. Moves
// that leave the general in check, and moves that would reach a position for
// the MaxRepetitions-th time, are excluded. When nothing is left the single
// Pass action is returned.
//
// The result is memoised in the action cache node of the current position and
// must not be modified.
func (b *Board) Actions(color Color) []Action {
	node := b.cache
	if acts := node.actions[color.index()]; acts != nil {
		return acts
	}

	var candidates []Action
	for _, i := range b.byColor[color.index()] {
		if p := &b.pieces[i]; p.Alive {
			candidates = b.Destinations(p, candidates)
		}
	}

	legal := candidates[:0]
	for _, a := range candidates {
		captured := b.move(a)
		ok := !b.repeats() && !b.IsCheck(color)
		b.unmove(a, captured)
		if ok {
			legal = append(legal, a)
		}
	}
	if len(legal) == 0 {
		legal = []Action{Pass}
	}
	node.actions[color.index()] = legal
	return legal
}

// repeats reports whether reaching the current placement once more hits the
// repetition limit.
func (b *Board) repeats() bool {
	if b.maxRepetitions <= 0 {
		return false
	}
	return b.history[b.sig]+1 >= b.maxRepetitions
}

// IsCheck reports whether an opposing piece can capture the general of color.
func (b *Board) IsCheck(color Color) bool {
	g := b.General(color)
	if g == nil {
		return false
	}
	for _, i := range b.byColor[color.Other().index()] {
		p := &b.pieces[i]
		if !p.Alive || !b.Threatens(p, g.Row, g.Col) {
			continue
		}
		b.threats = b.Destinations(p, b.threats[:0])
		for _, a := range b.threats {
			if int(a.ToRow) == g.Row && int(a.ToCol) == g.Col {
				return true
			}
		}
	}
	return false
}

// IsFinished reports whether color, about to move, has lost or the game can
// no longer progress. last is the move that produced the position, nil at the
// start of a game.
func (b *Board) IsFinished(color Color, last *Undo) bool {
	if b.General(color) == nil {
		return true
	}
	score := b.Score(color)
	if score == 0 {
		return true
	}
	if score < 20 && last != nil && !last.Captured() {
		return true
	}
	acts := b.Actions(color)
	return len(acts) == 1 && acts[0].IsPass() && b.IsCheck(color)
}

// CacheSize counts the nodes of the action cache tree, for diagnostics.
func (b *Board) CacheSize() int {
	root := b.cache
	for root.parent != nil {
		root = root.parent
	}
	return root.size()
}
