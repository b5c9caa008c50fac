package mcts

import (
	"fmt"
	"sync"

	"github.com/chewxy/math32"
	"gorgonia.org/tensor"

	"github.com/janggizero/janggi"
)

// Node is a position in the search tree. It is created empty and expanded
// exactly once, on the first simulation that reaches it; from then on it holds
// the prior P(s, a), the visit count N(s, a) and the mean value Q(s, a) of
// every legal action a.
//
// All methods are safe for concurrent use.
type Node struct {
	// should guarantee thread-safe operation
	lock sync.Mutex

	expanded bool
	noise    bool // blend Dirichlet noise into the priors
	noised   bool // noise was drawn for the priors

	actions  []janggi.Action // legal actions, in the board's order
	psa      map[janggi.Action]float32
	qsa      map[janggi.Action]float32
	visits   map[janggi.Action]uint32
	total    uint32
	children map[janggi.Action]*Node
}

// NewNode returns an unexpanded node.
func NewNode() *Node { return &Node{} }

// NewRoot returns an unexpanded node whose priors receive exploration noise.
func NewRoot() *Node { return &Node{noise: true} }

func (n *Node) Format(s fmt.State, c rune) {
	n.lock.Lock()
	defer n.lock.Unlock()
	fmt.Fprintf(s, "{Expanded: %v, Actions: %d, Visits: %d, Children: %d}",
		n.expanded, len(n.actions), n.total, len(n.children))
}

// IsExpanded returns true once the priors are set.
func (n *Node) IsExpanded() bool {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.expanded
}

// Total is the number of simulations backed up through this node.
func (n *Node) Total() uint32 {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.total
}

// Actions returns the legal actions of the node, nil before expansion.
func (n *Node) Actions() []janggi.Action {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.actions
}

// Visits returns N(s, a).
func (n *Node) Visits(a janggi.Action) uint32 {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.visits[a]
}

// QSA returns Q(s, a).
func (n *Node) QSA(a janggi.Action) float32 {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.qsa[a]
}

// PSA returns P(s, a).
func (n *Node) PSA(a janggi.Action) float32 {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.psa[a]
}

// Child returns the node reached by a, or nil if it was never explored.
func (n *Node) Child(a janggi.Action) *Node {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.children[a]
}

// Advance follows a real move: it returns the explored subtree of a, or a new
// root when a was never searched. Either way the node becomes a root and its
// priors receive exploration noise on the next search. The siblings are left
// to the collector.
func (n *Node) Advance(a janggi.Action) *Node {
	child := n.Child(a)
	if child == nil {
		return NewRoot()
	}
	child.lock.Lock()
	child.noise = true
	child.lock.Unlock()
	return child
}

// wantsNoise reports whether the priors still need exploration noise.
func (n *Node) wantsNoise() bool {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.noise && !n.noised
}

// addNoise blends noise into the priors of an expanded node, once.
func (n *Node) addNoise(noise []float64, epsilon float32) {
	n.lock.Lock()
	defer n.lock.Unlock()
	if !n.expanded || n.noised {
		return
	}
	n.noised = true
	if noise == nil {
		return
	}
	for i, a := range n.actions {
		n.psa[a] = (1-epsilon)*n.psa[a] + epsilon*float32(noise[i])
	}
}

// VisitCounts returns the total visits and a copy of N(s, ·).
func (n *Node) VisitCounts() (total int, counts map[janggi.Action]int) {
	n.lock.Lock()
	defer n.lock.Unlock()
	counts = make(map[janggi.Action]int, len(n.visits))
	for a, v := range n.visits {
		counts[a] = int(v)
	}
	return int(n.total), counts
}

// expand sets the priors over actions. Priors missing from p count as 0.
// noise, if any, is blended in with weight epsilon. A node that is already
// expanded is left untouched, so concurrent expansions keep the first one.
func (n *Node) expand(actions []janggi.Action, p map[janggi.Action]float32, noise []float64, epsilon float32) {
	n.lock.Lock()
	defer n.lock.Unlock()
	if n.expanded {
		return
	}
	n.actions = append([]janggi.Action(nil), actions...)
	n.psa = make(map[janggi.Action]float32, len(actions))
	n.qsa = make(map[janggi.Action]float32, len(actions))
	n.visits = make(map[janggi.Action]uint32, len(actions))
	n.children = make(map[janggi.Action]*Node)
	for i, a := range actions {
		psa := p[a]
		if noise != nil {
			psa = (1-epsilon)*psa + epsilon*float32(noise[i])
		}
		n.psa[a] = psa
		n.qsa[a] = 0
		n.visits[a] = 0
	}
	n.noised = n.noise
	n.expanded = true
}

// child returns the node reached by a, creating it if needed.
func (n *Node) child(a janggi.Action) *Node {
	n.lock.Lock()
	defer n.lock.Unlock()
	kid, ok := n.children[a]
	if !ok {
		kid = NewNode()
		n.children[a] = kid
	}
	return kid
}

// Select picks the action with the largest upper confidence bound
//	U(s, a) = Q(s, a) + cpuct * P(s, a) * sqrt(N(s)) / (1 + N(s, a))
// scanning actions in the given order and keeping the first maximum.
func (n *Node) Select(cpuct float32, order []janggi.Action) janggi.Action {
	n.lock.Lock()
	defer n.lock.Unlock()

	best := order[0]
	bestValue := math32.Inf(-1)
	numerator := math32.Sqrt(float32(n.total))
	for _, a := range order {
		usa := n.qsa[a] + cpuct*n.psa[a]*numerator/(1+float32(n.visits[a]))
		if usa > bestValue {
			bestValue = usa
			best = a
		}
	}
	return best
}

// update backs up value v through a, keeping Q(s, a) a running mean.
func (n *Node) update(a janggi.Action, v float32) {
	n.lock.Lock()
	defer n.lock.Unlock()
	visits := float32(n.visits[a])
	n.qsa[a] = (visits*n.qsa[a] + v) / (visits + 1)
	n.visits[a]++
	n.total++
}

// Policy returns the training target of the node as an (NumClasses, Height,
// Width) tensor: N(s, a)/N(s) at the move class and origin square of a, seen
// through the same symmetries as Board.Features for color and augmented.
func (n *Node) Policy(color janggi.Color, augmented bool) *tensor.Dense {
	data := make([]float32, janggi.NumClasses*janggi.Height*janggi.Width)

	n.lock.Lock()
	defer n.lock.Unlock()
	if n.total > 0 {
		for a, v := range n.visits {
			if i := a.PolicyIndex(color, augmented); i >= 0 {
				data[i] = float32(v) / float32(n.total)
			}
		}
	}
	return tensor.New(tensor.WithShape(janggi.NumClasses, janggi.Height, janggi.Width), tensor.WithBacking(data))
}

// countChildren counts the explored nodes below n.
func (n *Node) countChildren() (retVal int) {
	n.lock.Lock()
	children := make([]*Node, 0, len(n.children))
	for _, kid := range n.children {
		children = append(children, kid)
	}
	n.lock.Unlock()
	for _, kid := range children {
		retVal += 1 + kid.countChildren()
	}
	return
}
