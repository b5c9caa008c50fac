package janggi

// cacheNode mirrors one sequence of moves applied since the cache was last
// reset and memoises the legal actions of both colors at that point.
type cacheNode struct {
	parent   *cacheNode
	children map[Action]*cacheNode
	actions  [2][]Action
}

func newCacheNode(parent *cacheNode) *cacheNode {
	return &cacheNode{parent: parent}
}

func (n *cacheNode) child(a Action) *cacheNode {
	if n.children == nil {
		n.children = make(map[Action]*cacheNode)
	}
	c, ok := n.children[a]
	if !ok {
		c = newCacheNode(n)
		n.children[a] = c
	}
	return c
}

// size counts the nodes below and including n.
func (n *cacheNode) size() int {
	retVal := 1
	for _, c := range n.children {
		retVal += c.size()
	}
	return retVal
}
