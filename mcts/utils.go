package mcts

import (
	"sort"

	"github.com/janggizero/janggi"
)

// pair is a tuple of action and score
type pair struct {
	Action janggi.Action
	Score  float32
}

// byScore is a sortable list of pairs. It sorts the list with best score first,
// the action order breaking ties so the result is deterministic.
type byScore []pair

func (l byScore) Len() int { return len(l) }
func (l byScore) Less(i, j int) bool {
	if l[i].Score != l[j].Score {
		return l[i].Score > l[j].Score
	}
	return less(l[i].Action, l[j].Action)
}
func (l byScore) Swap(i, j int) { l[i], l[j] = l[j], l[i] }

func less(a, b janggi.Action) bool {
	switch {
	case a.FromRow != b.FromRow:
		return a.FromRow < b.FromRow
	case a.FromCol != b.FromCol:
		return a.FromCol < b.FromCol
	case a.ToRow != b.ToRow:
		return a.ToRow < b.ToRow
	}
	return a.ToCol < b.ToCol
}

// ranked returns the actions of n by decreasing visit count.
func (n *Node) ranked() []pair {
	n.lock.Lock()
	l := make(byScore, 0, len(n.actions))
	for _, a := range n.actions {
		l = append(l, pair{Action: a, Score: float32(n.visits[a])})
	}
	n.lock.Unlock()
	sort.Sort(l)
	return l
}

// Top returns up to k actions of n, most visited first.
func (n *Node) Top(k int) []janggi.Action {
	l := n.ranked()
	if k > len(l) {
		k = len(l)
	}
	retVal := make([]janggi.Action, k)
	for i := range retVal {
		retVal[i] = l[i].Action
	}
	return retVal
}
