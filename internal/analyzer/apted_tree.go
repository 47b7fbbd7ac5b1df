package analyzer

import (
	"fmt"

	"github.com/ludo-technologies/simscan/internal/parser"
)

// TreeNode represents a node in the ordered labeled tree compared by the
// tree edit distance. Trees are read-only once built and may be shared
// between goroutines.
type TreeNode struct {
	// Unique identifier for this node within its tree
	ID int

	// Label is the syntax kind of the node
	Label string

	// Value is the source text of identifiers and literals, empty otherwise
	Value string

	// Source line range (1-based, inclusive). Zero for synthetic nodes.
	StartLine int
	EndLine   int

	Children []*TreeNode
}

// NewTreeNode creates a new tree node with the given ID and label
func NewTreeNode(id int, label string) *TreeNode {
	return &TreeNode{
		ID:       id,
		Label:    label,
		Children: []*TreeNode{},
	}
}

// NewValueNode creates a leaf node carrying a value
func NewValueNode(id int, label, value string) *TreeNode {
	node := NewTreeNode(id, label)
	node.Value = value
	return node
}

// AddChild adds a child node to this node
func (t *TreeNode) AddChild(child *TreeNode) {
	if child != nil {
		t.Children = append(t.Children, child)
	}
}

// IsLeaf returns true if this node has no children
func (t *TreeNode) IsLeaf() bool {
	return len(t.Children) == 0
}

// Size returns the size of the subtree rooted at this node
func (t *TreeNode) Size() int {
	if t == nil {
		return 0
	}
	size := 1
	for _, child := range t.Children {
		size += child.Size()
	}
	return size
}

// Height returns the height of the subtree rooted at this node
func (t *TreeNode) Height() int {
	if t == nil || t.IsLeaf() {
		return 0
	}
	maxHeight := 0
	for _, child := range t.Children {
		if h := child.Height(); h > maxHeight {
			maxHeight = h
		}
	}
	return maxHeight + 1
}

// String returns a string representation of the node
func (t *TreeNode) String() string {
	if t.Value != "" {
		return fmt.Sprintf("Node{ID: %d, Label: %s, Value: %q, Children: %d}", t.ID, t.Label, t.Value, len(t.Children))
	}
	return fmt.Sprintf("Node{ID: %d, Label: %s, Children: %d}", t.ID, t.Label, len(t.Children))
}

// TreeConverter converts parser nodes into comparison trees. A converter
// numbers nodes from its own counter, so use a new one per tree.
type TreeConverter struct {
	nextID int
}

// NewTreeConverter creates a new tree converter
func NewTreeConverter() *TreeConverter {
	return &TreeConverter{nextID: 0}
}

// ConvertNode converts a parser node into a TreeNode
func (tc *TreeConverter) ConvertNode(node *parser.Node) *TreeNode {
	if node == nil {
		return nil
	}

	treeNode := NewTreeNode(tc.nextID, node.Kind)
	tc.nextID++
	treeNode.Value = node.Text
	treeNode.StartLine = node.StartLine
	treeNode.EndLine = node.EndLine

	for _, child := range node.Children {
		if childNode := tc.ConvertNode(child); childNode != nil {
			treeNode.AddChild(childNode)
		}
	}

	return treeNode
}

// ConvertTree converts a parser tree with a fresh converter
func ConvertTree(node *parser.Node) *TreeNode {
	return NewTreeConverter().ConvertNode(node)
}

// PostOrderNodes returns all nodes of the tree in post-order
func PostOrderNodes(root *TreeNode) []*TreeNode {
	if root == nil {
		return []*TreeNode{}
	}
	nodes := make([]*TreeNode, 0, root.Size())
	var visit func(n *TreeNode)
	visit = func(n *TreeNode) {
		for _, child := range n.Children {
			visit(child)
		}
		nodes = append(nodes, n)
	}
	visit(root)
	return nodes
}

// GetSubtreeNodes returns all nodes in the subtree rooted at the given node in pre-order
func GetSubtreeNodes(root *TreeNode) []*TreeNode {
	if root == nil {
		return []*TreeNode{}
	}
	nodes := []*TreeNode{root}
	for _, child := range root.Children {
		nodes = append(nodes, GetSubtreeNodes(child)...)
	}
	return nodes
}

// postOrderIndex holds the Zhang-Shasha numbering of a tree. Positions are
// 1-based: nodes[0] is unused so that index 0 can stand for the empty forest.
type postOrderIndex struct {
	nodes    []*TreeNode
	lml      []int // leftmost leaf descendant of each node
	keyRoots []int // ascending
}

func newPostOrderIndex(root *TreeNode) *postOrderIndex {
	post := PostOrderNodes(root)
	n := len(post)

	idx := &postOrderIndex{
		nodes: make([]*TreeNode, n+1),
		lml:   make([]int, n+1),
	}
	copy(idx.nodes[1:], post)

	position := 0
	var visit func(node *TreeNode) int
	visit = func(node *TreeNode) int {
		leftmost := 0
		for i, child := range node.Children {
			l := visit(child)
			if i == 0 {
				leftmost = l
			}
		}
		position++
		if leftmost == 0 {
			leftmost = position
		}
		idx.lml[position] = leftmost
		return leftmost
	}
	if root != nil {
		visit(root)
	}

	// a keyroot is the highest node sharing a given leftmost leaf
	highest := make(map[int]int, n)
	for i := 1; i <= n; i++ {
		highest[idx.lml[i]] = i
	}
	idx.keyRoots = make([]int, 0, len(highest))
	for i := 1; i <= n; i++ {
		if highest[idx.lml[i]] == i {
			idx.keyRoots = append(idx.keyRoots, i)
		}
	}

	return idx
}

func (p *postOrderIndex) size() int {
	return len(p.nodes) - 1
}
