package parser

import "fmt"

// Node is a language-neutral syntax node built from a tree-sitter parse.
// Anonymous tokens such as operators and keywords are kept as leaves so that
// they take part in structural comparison.
type Node struct {
	Kind      string
	Text      string // set only for value kinds (identifiers, literals)
	Named     bool
	StartByte int
	EndByte   int
	StartLine int // 1-based
	EndLine   int // 1-based, inclusive
	Children  []*Node
}

// IsLeaf returns true if the node has no children
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Size returns the number of nodes in the subtree rooted at n
func (n *Node) Size() int {
	if n == nil {
		return 0
	}
	size := 1
	for _, child := range n.Children {
		size += child.Size()
	}
	return size
}

// Walk visits n and its descendants in pre-order. Returning false from visit
// skips the children of the visited node.
func (n *Node) Walk(visit func(*Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(visit)
	}
}

// FindBySpan returns the outermost node whose byte range equals [start, end),
// or nil when no node covers exactly that range.
func (n *Node) FindBySpan(start, end int) *Node {
	current := n
	for current != nil {
		if current.StartByte == start && current.EndByte == end {
			return current
		}
		var next *Node
		for _, child := range current.Children {
			if child.StartByte <= start && end <= child.EndByte {
				next = child
				break
			}
		}
		current = next
	}
	return nil
}

// FindByKind returns all nodes of the given kind in pre-order
func (n *Node) FindByKind(kind string) []*Node {
	var nodes []*Node
	n.Walk(func(node *Node) bool {
		if node.Kind == kind {
			nodes = append(nodes, node)
		}
		return true
	})
	return nodes
}

// String returns a short description of the node
func (n *Node) String() string {
	if n.Text != "" {
		return fmt.Sprintf("%s(%q) [%d-%d]", n.Kind, n.Text, n.StartLine, n.EndLine)
	}
	return fmt.Sprintf("%s [%d-%d]", n.Kind, n.StartLine, n.EndLine)
}
