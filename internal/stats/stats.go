// Package for reducing a stream of node records into summary statistics
package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/jsdoublel/treestat/internal/schema"
)

var ErrNoNodes = errors.New("no node records")

const (
	defaultZoom = -2.0
	yRange      = 24e2 // vertical extent the layout is scaled to
)

// Single pass accumulator over node records. The zero value is not usable,
// call NewAggregator.
type Aggregator struct {
	nodes      int
	mutations  int
	leaves     int
	tipSum     int64
	minX, maxX float64
	minY, maxY float64
	root       *Root
	extraRoots int
	clades     map[string]map[string]int      // scheme -> label -> nodes
	metaValues map[string]map[string]struct{} // meta key -> distinct encoded values
}

type Root struct {
	Name      string
	ID        int
	Mutations []int // mutations on the root itself
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		minX:       math.Inf(1),
		maxX:       math.Inf(-1),
		minY:       math.Inf(1),
		maxY:       math.Inf(-1),
		clades:     make(map[string]map[string]int),
		metaValues: make(map[string]map[string]struct{}),
	}
}

// Folds one node into the running statistics. The first node that is its own
// parent is kept as the root; later ones are only counted.
func (a *Aggregator) Add(n *schema.Node) {
	a.nodes++
	a.mutations += len(n.Mutations)
	a.tipSum += int64(n.NumTips)
	if n.NumTips == 1 {
		a.leaves++
	}
	a.minX = math.Min(a.minX, n.XDist)
	a.maxX = math.Max(a.maxX, n.XDist)
	a.minY = math.Min(a.minY, n.Y)
	a.maxY = math.Max(a.maxY, n.Y)
	if n.IsRoot() {
		if a.root == nil {
			a.root = &Root{Name: n.Name, ID: n.NodeID, Mutations: slices.Clone(n.Mutations)}
		} else {
			a.extraRoots++
		}
	}
	for scheme, label := range n.Clades {
		if a.clades[scheme] == nil {
			a.clades[scheme] = make(map[string]int)
		}
		a.clades[scheme][label]++
	}
	for k, v := range n.Meta {
		enc, err := json.Marshal(v)
		if err != nil {
			enc = []byte(fmt.Sprint(v))
		}
		if a.metaValues[k] == nil {
			a.metaValues[k] = make(map[string]struct{})
		}
		a.metaValues[k][string(enc)] = struct{}{}
	}
}

// Snapshot of the statistics accumulated so far
func (a *Aggregator) Summary() *Summary {
	clades := make(map[string]map[string]int, len(a.clades))
	for scheme, labels := range a.clades {
		clades[scheme] = make(map[string]int, len(labels))
		for l, c := range labels {
			clades[scheme][l] = c
		}
	}
	metaValues := make(map[string]int, len(a.metaValues))
	for k, vals := range a.metaValues {
		metaValues[k] = len(vals)
	}
	var root *Root
	if a.root != nil {
		root = &Root{Name: a.root.Name, ID: a.root.ID, Mutations: slices.Clone(a.root.Mutations)}
	}
	return &Summary{
		Nodes:      a.nodes,
		Mutations:  a.mutations,
		Leaves:     a.leaves,
		TipSum:     a.tipSum,
		MinX:       a.minX,
		MaxX:       a.maxX,
		MinY:       a.minY,
		MaxY:       a.maxY,
		Root:       root,
		ExtraRoots: a.extraRoots,
		Clades:     clades,
		MetaValues: metaValues,
	}
}

// Aggregate statistics of a node stream. Extrema are +Inf/-Inf when Nodes is 0.
type Summary struct {
	Nodes      int   // node records read
	Mutations  int   // sum of per-node mutation list lengths
	Leaves     int   // nodes with exactly one tip
	TipSum     int64 // sum of per-node tip counts
	MinX, MaxX float64
	MinY, MaxY float64
	Root       *Root // nil when no node is its own parent
	ExtraRoots int   // roots after the first
	Clades     map[string]map[string]int
	MetaValues map[string]int // distinct values per meta key
}

// Mean number of tips under a node
func (s *Summary) MeanTips() (float64, error) {
	if s.Nodes == 0 {
		return 0, ErrNoNodes
	}
	return float64(s.TipSum) / float64(s.Nodes), nil
}

// Factor applied to y coordinates so the layout spans a fixed height
func (s *Summary) ScaleY() float64 {
	n := float64(s.Nodes)
	if s.Nodes > 10000 {
		return yRange / n
	}
	return yRange / (n * 0.6666)
}

// Starting viewport of a viewer
type View struct {
	X, Y, Zoom float64
}

// Centre of the tree in x_dist and scaled y. Zoom comes from cfg when set.
func (s *Summary) InitialView(cfg schema.Config) (View, error) {
	if s.Nodes == 0 {
		return View{}, ErrNoNodes
	}
	scale := s.ScaleY()
	zoom := defaultZoom
	if cfg.InitialZoom != nil {
		zoom = *cfg.InitialZoom
	}
	return View{
		X:    (s.MaxX + s.MinX) / 2,
		Y:    (round6(s.MaxY*scale) + round6(s.MinY*scale)) / 2,
		Zoom: zoom,
	}, nil
}

func round6(x float64) float64 {
	return math.Round(x*1e6) / 1e6
}
