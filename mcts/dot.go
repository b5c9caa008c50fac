package mcts

import (
	"fmt"

	"github.com/awalterschulze/gographviz"
	"github.com/pkg/errors"
)

// Dot renders the tree below root as a Graphviz digraph, following at most
// width of the most visited actions per node down to depth.
func Dot(root *Node, depth, width int) (string, error) {
	g := gographviz.NewGraph()
	if err := g.SetName("mcts"); err != nil {
		return "", errors.WithStack(err)
	}
	if err := g.SetDir(true); err != nil {
		return "", errors.WithStack(err)
	}
	var id int
	var walk func(n *Node, name string, depth int) error
	walk = func(n *Node, name string, depth int) error {
		if err := g.AddNode("mcts", name, map[string]string{
			"label": fmt.Sprintf("\"N=%d\"", n.Total()),
		}); err != nil {
			return errors.WithStack(err)
		}
		if depth == 0 {
			return nil
		}
		for i, p := range n.ranked() {
			if i == width || p.Score == 0 {
				break
			}
			id++
			kid := fmt.Sprintf("n%d", id)
			if err := walk(n.Child(p.Action), kid, depth-1); err != nil {
				return err
			}
			label := fmt.Sprintf("\"%v N=%d Q=%.3f P=%.3f\"",
				p.Action, int(p.Score), n.QSA(p.Action), n.PSA(p.Action))
			if err := g.AddEdge(name, kid, true, map[string]string{"label": label}); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}
	if err := walk(root, "n0", depth); err != nil {
		return "", err
	}
	return g.String(), nil
}
