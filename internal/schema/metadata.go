package schema

import (
	"encoding/json"
	"fmt"

	"github.com/ahmetb/go-linq"
)

// Header record (first line) of a tree export
type Metadata struct {
	Version    string     `json:"version"`
	Mutations  []Mutation `json:"mutations"`   // mutation catalog, referenced by id from nodes
	TotalNodes uint       `json:"total_nodes"` // declared number of node records
	Config     Config     `json:"config"`
}

type Config struct {
	GeneDetails   map[string]GeneDetail `json:"gene_details"`
	NumTips       uint                  `json:"num_tips"`
	Mutations     []Mutation            `json:"mutations"`
	InitialX      *float64              `json:"initial_x,omitempty"`
	InitialY      *float64              `json:"initial_y,omitempty"`
	InitialZoom   *float64              `json:"initial_zoom,omitempty"`
	KeysToDisplay []string              `json:"keys_to_display"`
	NumNodes      *uint                 `json:"num_nodes,omitempty"`
	RootMutations []int                 `json:"root_mutations"`
	RootID        *int                  `json:"root_id,omitempty"`
}

type GeneDetail struct {
	Name   string `json:"name"`
	Strand int    `json:"strand"` // +1 forward, -1 reverse
	Start  uint   `json:"start"`
	End    uint   `json:"end"`
}

type metadataFields Metadata
type configFields Config
type geneDetailFields GeneDetail

func (m *Metadata) UnmarshalJSON(data []byte) error {
	if _, err := inspect(data, "metadata", "version", "mutations", "total_nodes", "config"); err != nil {
		return err
	}
	return json.Unmarshal(data, (*metadataFields)(m))
}

func (c *Config) UnmarshalJSON(data []byte) error {
	if _, err := inspect(data, "config", "gene_details", "num_tips"); err != nil {
		return err
	}
	return json.Unmarshal(data, (*configFields)(c))
}

func (g *GeneDetail) UnmarshalJSON(data []byte) error {
	if _, err := inspect(data, "gene detail", "name", "strand", "start", "end"); err != nil {
		return err
	}
	return json.Unmarshal(data, (*geneDetailFields)(g))
}

// Returns the number of amino acid and nucleotide mutations in the catalog
func (m *Metadata) CountMutations() (aa, nt int) {
	aa = linq.From(m.Mutations).CountWithT(func(mut Mutation) bool { return mut.Kind == AminoAcid })
	nt = linq.From(m.Mutations).CountWithT(func(mut Mutation) bool { return mut.Kind == Nucleotide })
	return
}

// Mutation catalog entry by id, if there is one
func (m *Metadata) Mutation(id int) (Mutation, error) {
	if id >= 0 && id < len(m.Mutations) && int(m.Mutations[id].MutationID) == id {
		return m.Mutations[id], nil
	}
	for _, mut := range m.Mutations {
		if int(mut.MutationID) == id {
			return mut, nil
		}
	}
	return Mutation{}, fmt.Errorf("mutation %d not in catalog", id)
}
