// Package for rebuilding the tree described by node records as a gotree tree
package graphs

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/evolbioinfo/gotree/tree"

	"github.com/jsdoublel/treestat/internal/schema"
)

var (
	ErrInvalidID     = errors.New("invalid node id")
	ErrDuplicateID   = errors.New("duplicate node id")
	ErrMissingParent = errors.New("missing parent")
	ErrNoRoot        = errors.New("no root")
	ErrMultipleRoots = errors.New("multiple roots")
	ErrDisconnected  = errors.New("not connected to the root")
)

// Tree rebuilt from node records, with the records it came from
type TreeData struct {
	tree.Tree
	Records        []*schema.Node              // records in input order
	IdToNodes      map[int]*tree.Node          // node id -> tree node
	NumLeavesBelow map[int]int                 // node id -> leaves in subtree
	NLeaves        int                         // number of leaves
	records        map[*tree.Node]*schema.Node // tree node -> record
	position       map[int]int                 // node id -> index in Records
}

// Node whose declared tip count disagrees with the rebuilt tree
type TipMismatch struct {
	NodeID   int
	Declared int
	Found    int
}

// Builds the tree. Each record becomes a node named after it; edges run from
// parent to child with length x_dist(child) - x_dist(parent). Returns an
// error unless there is exactly one root and every node hangs off it.
func Build(nodes []*schema.Node) (*TreeData, error) {
	position := make(map[int]int, len(nodes)) // node id -> index in nodes
	tre := tree.NewTree()
	idToNodes := make(map[int]*tree.Node, len(nodes))
	records := make(map[*tree.Node]*schema.Node, len(nodes))
	var root *tree.Node
	for i, n := range nodes {
		if n.NodeID < 0 || n.ParentID < 0 {
			return nil, fmt.Errorf("%w, node %d has parent %d", ErrInvalidID, n.NodeID, n.ParentID)
		}
		if _, ok := position[n.NodeID]; ok {
			return nil, fmt.Errorf("%w %d", ErrDuplicateID, n.NodeID)
		}
		position[n.NodeID] = i
		tn := tre.NewNode()
		tn.SetName(n.Name)
		idToNodes[n.NodeID] = tn
		records[tn] = n
		if n.IsRoot() {
			if root != nil {
				return nil, fmt.Errorf("%w, nodes %d and %d are both their own parent",
					ErrMultipleRoots, records[root].NodeID, n.NodeID)
			}
			root = tn
		}
	}
	if root == nil {
		return nil, fmt.Errorf("%w, no node is its own parent", ErrNoRoot)
	}
	for _, n := range nodes {
		if n.IsRoot() {
			continue
		}
		p, ok := position[n.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w, parent %d of node %d", ErrMissingParent, n.ParentID, n.NodeID)
		}
		e := tre.ConnectNodes(idToNodes[n.ParentID], idToNodes[n.NodeID])
		e.SetLength(n.XDist - nodes[p].XDist)
	}
	tre.SetRoot(root)
	td := &TreeData{
		Tree:      *tre,
		Records:   nodes,
		IdToNodes: idToNodes,
		records:   records,
		position:  position,
	}
	below, reached := td.countLeavesBelow()
	if unreached, ok := reached.NextClear(0); ok && unreached < uint(len(nodes)) {
		return nil, fmt.Errorf("%w, %d of %d nodes (first is node %d)", ErrDisconnected,
			uint(len(nodes))-reached.Count(), len(nodes), nodes[unreached].NodeID)
	}
	td.NumLeavesBelow = below
	td.NLeaves = below[records[root].NodeID]
	return td, nil
}

// Children of cur when reached from prev (nil for the root)
func children(cur, prev *tree.Node) []*tree.Node {
	result := make([]*tree.Node, 0, len(cur.Neigh()))
	for _, u := range cur.Neigh() {
		if u != prev {
			result = append(result, u)
		}
	}
	return result
}

// Count leaves below each node; also returns the positions in Records of
// the nodes reached from the root
func (td *TreeData) countLeavesBelow() (map[int]int, *bitset.BitSet) {
	below := make(map[*tree.Node]int, len(td.Records))
	reached := bitset.New(uint(len(td.Records)))
	td.PostOrder(func(cur, prev *tree.Node, e *tree.Edge) (keep bool) {
		reached.Set(uint(td.position[td.records[cur].NodeID]))
		kids := children(cur, prev)
		if len(kids) == 0 {
			below[cur] = 1
		} else {
			for _, c := range kids {
				below[cur] += below[c]
			}
		}
		return true
	})
	byID := make(map[int]int, len(below))
	for tn, count := range below {
		byID[td.records[tn].NodeID] = count
	}
	return byID, reached
}

// Nodes whose num_tips differs from the leaves found below them, in input order
func (td *TreeData) TipCountMismatches() []TipMismatch {
	mismatches := make([]TipMismatch, 0)
	for _, n := range td.Records {
		if found := td.NumLeavesBelow[n.NodeID]; found != n.NumTips {
			mismatches = append(mismatches, TipMismatch{NodeID: n.NodeID, Declared: n.NumTips, Found: found})
		}
	}
	return mismatches
}

// Record a tree node was built from
func (td *TreeData) Record(n *tree.Node) *schema.Node {
	return td.records[n]
}
