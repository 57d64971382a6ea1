package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// One vertex of the tree. Ids are not necessarily contiguous.
type Node struct {
	Name      string            `json:"name"`
	XDist     float64           `json:"x_dist"` // distance from the root
	Y         float64           `json:"y"`      // vertical layout coordinate
	Mutations []int             `json:"mutations"`
	ParentID  int               `json:"parent_id"`
	NodeID    int               `json:"node_id"`
	NumTips   int               `json:"num_tips"` // tips in the subtree under this node
	Clades    map[string]string `json:"clades"`   // clade scheme -> label
	Meta      map[string]any    `json:"-"`        // every other top level key
	Info      NodeInfo          `json:"-"`        // decoded from Meta
}

// Flat metadata strings commonly found in Meta
type NodeInfo struct {
	Accession string `mapstructure:"meta_genbank_accession"`
	Date      string `mapstructure:"meta_date"`
	Country   string `mapstructure:"meta_country"`
	Lineage   string `mapstructure:"meta_pangolin_lineage"`
}

var ErrIDRange = errors.New("node id out of range")

var nodeFieldNames = []string{"name", "x_dist", "y", "mutations", "parent_id", "node_id", "num_tips", "clades"}

type nodeFields Node

func (n *Node) UnmarshalJSON(data []byte) error {
	c, err := inspect(data, "node", nodeFieldNames...)
	if err != nil {
		return err
	}
	var fields nodeFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, id := range []int{fields.NodeID, fields.ParentID} {
		if id < math.MinInt32 || id > math.MaxInt32 {
			return fmt.Errorf("%w, %d does not fit in 32 bits", ErrIDRange, id)
		}
	}
	children, err := c.ChildrenMap()
	if err != nil {
		return err
	}
	fields.Meta = make(map[string]any)
	for k, v := range children {
		if !isNodeField(k) {
			fields.Meta[k] = v.Data()
		}
	}
	info, err := decodeInfo(fields.Meta)
	if err != nil {
		return fmt.Errorf("node %d: %w", fields.NodeID, err)
	}
	fields.Info = info
	*n = Node(fields)
	return nil
}

func (n Node) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(n.Meta)+len(nodeFieldNames))
	for k, v := range n.Meta {
		out[k] = v
	}
	out["name"] = n.Name
	out["x_dist"] = n.XDist
	out["y"] = n.Y
	out["mutations"] = n.Mutations
	out["parent_id"] = n.ParentID
	out["node_id"] = n.NodeID
	out["num_tips"] = n.NumTips
	out["clades"] = n.Clades
	return json.Marshal(out)
}

// A root node is its own parent
func (n *Node) IsRoot() bool {
	return n.ParentID == n.NodeID
}

func isNodeField(key string) bool {
	for _, f := range nodeFieldNames {
		if f == key {
			return true
		}
	}
	return false
}

// objects and arrays under an info key leave that field empty
func skipComposite(from, to reflect.Type, data any) (any, error) {
	if to.Kind() == reflect.String && (from.Kind() == reflect.Map || from.Kind() == reflect.Slice) {
		return "", nil
	}
	return data, nil
}

func decodeInfo(meta map[string]any) (NodeInfo, error) {
	var info NodeInfo
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       skipComposite,
		WeaklyTypedInput: true,
		Result:           &info,
	})
	if err != nil {
		return NodeInfo{}, err
	}
	if err := decoder.Decode(meta); err != nil {
		return NodeInfo{}, err
	}
	return info, nil
}
