package brackets

import (
	"context"
	"fmt"

	"github.com/Dosada05/album-bracket/models"
)

// RoundReader is the read side of the round store.
type RoundReader interface {
	GetRound(ctx context.Context, id int64) (*models.Round, error)
	// ListChildren returns the rounds feeding into parentID, oldest first.
	ListChildren(ctx context.Context, parentID int64) ([]*models.Round, error)
}

// Node is a round together with the rounds that feed into it.
type Node struct {
	models.Round
	PreviousRounds []*Node `json:"previous_rounds"`
}

func (n *Node) IsLeaf() bool {
	return len(n.PreviousRounds) == 0
}

// Walk visits the tree depth-first, parents before children. Returning
// false from fn skips the node's children.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, child := range n.PreviousRounds {
		child.walk(fn, depth+1)
	}
}

func (n *Node) Leaves() []*Node {
	var leaves []*Node
	n.Walk(func(node *Node, _ int) bool {
		if node.IsLeaf() {
			leaves = append(leaves, node)
		}
		return true
	})
	return leaves
}

// Find returns the node with the given round id, or nil.
func (n *Node) Find(id int64) *Node {
	var found *Node
	n.Walk(func(node *Node, _ int) bool {
		if found != nil {
			return false
		}
		if node.ID == id {
			found = node
			return false
		}
		return true
	})
	return found
}

// LoadTree rebuilds the subtree under root from the store. Nothing is
// cached, so every call reflects the committed state.
func LoadTree(ctx context.Context, reader RoundReader, root *models.Round) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	children, err := reader.ListChildren(ctx, root.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load children of round %d: %w", root.ID, err)
	}

	node := &Node{Round: *root, PreviousRounds: make([]*Node, 0, len(children))}
	for _, child := range children {
		sub, err := LoadTree(ctx, reader, child)
		if err != nil {
			return nil, err
		}
		node.PreviousRounds = append(node.PreviousRounds, sub)
	}
	return node, nil
}

func LoadTreeByID(ctx context.Context, reader RoundReader, id int64) (*Node, error) {
	root, err := reader.GetRound(ctx, id)
	if err != nil {
		return nil, err
	}
	return LoadTree(ctx, reader, root)
}
