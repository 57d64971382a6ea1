package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeUnmarshal(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		expected    Node
		expectedErr error
	}{
		{
			name: "root with meta",
			input: `{"name":"node_1","x_dist":0,"y":12.5,"mutations":[0,2],"parent_id":1,"node_id":1,"num_tips":3,` +
				`"clades":{"pango":"B.1"},"meta_country":"UK","meta_date":"2020-03-01","meta_genbank_accession":"MW000001",` +
				`"meta_pangolin_lineage":"B.1"}`,
			expected: Node{
				Name: "node_1", XDist: 0, Y: 12.5, Mutations: []int{0, 2}, ParentID: 1, NodeID: 1, NumTips: 3,
				Clades: map[string]string{"pango": "B.1"},
				Meta: map[string]any{
					"meta_country":           "UK",
					"meta_date":              "2020-03-01",
					"meta_genbank_accession": "MW000001",
					"meta_pangolin_lineage":  "B.1",
				},
				Info: NodeInfo{Accession: "MW000001", Date: "2020-03-01", Country: "UK", Lineage: "B.1"},
			},
		},
		{
			name:  "case and type of meta keys",
			input: `{"name":"a","x_dist":1.5,"y":0,"mutations":[],"parent_id":1,"node_id":2,"num_tips":1,"clades":{},"meta_Country":"Peru","meta_date":2021}`,
			expected: Node{
				Name: "a", XDist: 1.5, Mutations: []int{}, ParentID: 1, NodeID: 2, NumTips: 1,
				Clades: map[string]string{},
				Meta:   map[string]any{"meta_Country": "Peru", "meta_date": float64(2021)},
				Info:   NodeInfo{Country: "Peru", Date: "2021"},
			},
		},
		{
			name:  "composite info values left empty",
			input: `{"name":"a","x_dist":1,"y":0,"mutations":[],"parent_id":1,"node_id":2,"num_tips":1,"clades":{},` +
				`"meta_country":{"iso":"UK"},"meta_date":["2020","2021"],"meta_pangolin_lineage":"B.1"}`,
			expected: Node{
				Name: "a", XDist: 1, Mutations: []int{}, ParentID: 1, NodeID: 2, NumTips: 1,
				Clades: map[string]string{},
				Meta: map[string]any{
					"meta_country":          map[string]any{"iso": "UK"},
					"meta_date":             []any{"2020", "2021"},
					"meta_pangolin_lineage": "B.1",
				},
				Info: NodeInfo{Lineage: "B.1"},
			},
		},
		{
			name:        "null ids",
			input:       `{"name":"a","x_dist":1.5,"y":0,"mutations":[],"parent_id":null,"node_id":null,"num_tips":1,"clades":{}}`,
			expectedErr: ErrMissingField,
		},
		{
			name:        "null distance",
			input:       `{"name":"a","x_dist":null,"y":0,"mutations":[],"parent_id":1,"node_id":2,"num_tips":1,"clades":{}}`,
			expectedErr: ErrMissingField,
		},
		{
			name:        "id beyond 32 bits",
			input:       `{"name":"a","x_dist":1.5,"y":0,"mutations":[],"parent_id":1,"node_id":1099511627776,"num_tips":1,"clades":{}}`,
			expectedErr: ErrIDRange,
		},
		{
			name:        "parent id beyond 32 bits",
			input:       `{"name":"a","x_dist":1.5,"y":0,"mutations":[],"parent_id":-2147483649,"node_id":2,"num_tips":1,"clades":{}}`,
			expectedErr: ErrIDRange,
		},
		{
			name:        "missing clades",
			input:       `{"name":"a","x_dist":1.5,"y":0,"mutations":[],"parent_id":1,"node_id":2,"num_tips":1}`,
			expectedErr: ErrMissingField,
		},
		{
			name:        "missing node id",
			input:       `{"name":"a","x_dist":1.5,"y":0,"mutations":[],"parent_id":1,"num_tips":1,"clades":{}}`,
			expectedErr: ErrMissingField,
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			var n Node
			err := json.Unmarshal([]byte(test.input), &n)
			if test.expectedErr != nil {
				assert.True(t, errors.Is(err, test.expectedErr), "unexpected error %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expected, n)
		})
	}
}

func TestNodeMistyped(t *testing.T) {
	var n Node
	err := json.Unmarshal([]byte(`{"name":3,"x_dist":1.5,"y":0,"mutations":[],"parent_id":1,"node_id":2,"num_tips":1,"clades":{}}`), &n)
	assert.Error(t, err)
	err = json.Unmarshal([]byte(`{"name":"x","x_dist":1.5,"y":0,"mutations":["a"],"parent_id":1,"node_id":2,"num_tips":1,"clades":{}}`), &n)
	assert.Error(t, err)
}

func TestNodeRoundTrip(t *testing.T) {
	input := `{"name":"leaf","x_dist":0.000123,"y":7,"mutations":[4],"parent_id":3,"node_id":9,"num_tips":1,` +
		`"clades":{"nextstrain":"20A","pango":"B.1.1"},"meta_country":"Chile","meta_extra":[1,"two"]}`
	var n Node
	require.NoError(t, json.Unmarshal([]byte(input), &n))
	out, err := json.Marshal(n)
	require.NoError(t, err)
	var back Node
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, n, back)
	assert.False(t, back.IsRoot())
}

func TestNodeIsRoot(t *testing.T) {
	assert.True(t, (&Node{ParentID: 4, NodeID: 4}).IsRoot())
	assert.False(t, (&Node{ParentID: 4, NodeID: 5}).IsRoot())
}
