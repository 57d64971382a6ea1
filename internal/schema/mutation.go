package schema

import (
	"encoding/json"
	"fmt"
)

type MutationKind int

const (
	AminoAcid MutationKind = iota
	Nucleotide
)

func (k MutationKind) String() string {
	switch k {
	case AminoAcid:
		return "aa"
	case Nucleotide:
		return "nt"
	default:
		panic(fmt.Sprintf("invalid mutation kind (%d)", k))
	}
}

// One entry of the mutation catalog. The two kinds share every field except
// NucForCodon, which only amino acid mutations carry.
type Mutation struct {
	Kind            MutationKind
	Gene            string
	PreviousResidue string
	ResiduePos      uint
	NewResidue      string
	MutationID      uint
	NucForCodon     uint // amino acid mutations only
	Type            string
}

type aaMutation struct {
	Gene            string `json:"gene"`
	PreviousResidue string `json:"previous_residue"`
	ResiduePos      uint   `json:"residue_pos"`
	NewResidue      string `json:"new_residue"`
	MutationID      uint   `json:"mutation_id"`
	NucForCodon     uint   `json:"nuc_for_codon"`
	Type            string `json:"type"`
}

type ntMutation struct {
	Gene            string `json:"gene"`
	PreviousResidue string `json:"previous_residue"`
	ResiduePos      uint   `json:"residue_pos"`
	NewResidue      string `json:"new_residue"`
	MutationID      uint   `json:"mutation_id"`
	Type            string `json:"type"`
}

type mutationVariant struct {
	fields []string
	decode func(data []byte) (Mutation, error)
}

// Variants in the order they are tried. An amino acid record also satisfies
// the nucleotide shape, so amino acid must come first.
var mutationVariants = []mutationVariant{
	{
		fields: []string{"gene", "previous_residue", "residue_pos", "new_residue",
			"mutation_id", "nuc_for_codon", "type"},
		decode: func(data []byte) (Mutation, error) {
			var m aaMutation
			if err := json.Unmarshal(data, &m); err != nil {
				return Mutation{}, err
			}
			return Mutation{
				Kind:            AminoAcid,
				Gene:            m.Gene,
				PreviousResidue: m.PreviousResidue,
				ResiduePos:      m.ResiduePos,
				NewResidue:      m.NewResidue,
				MutationID:      m.MutationID,
				NucForCodon:     m.NucForCodon,
				Type:            m.Type,
			}, nil
		},
	},
	{
		fields: []string{"gene", "previous_residue", "residue_pos", "new_residue",
			"mutation_id", "type"},
		decode: func(data []byte) (Mutation, error) {
			var m ntMutation
			if err := json.Unmarshal(data, &m); err != nil {
				return Mutation{}, err
			}
			return Mutation{
				Kind:            Nucleotide,
				Gene:            m.Gene,
				PreviousResidue: m.PreviousResidue,
				ResiduePos:      m.ResiduePos,
				NewResidue:      m.NewResidue,
				MutationID:      m.MutationID,
				Type:            m.Type,
			}, nil
		},
	},
}

// Decodes the first variant whose fields are all present and well typed.
func (m *Mutation) UnmarshalJSON(data []byte) error {
	c, err := inspect(data, "mutation")
	if err != nil {
		return err
	}
	for _, v := range mutationVariants {
		if firstMissing(c, v.fields) != "" {
			continue
		}
		decoded, err := v.decode(data)
		if err != nil {
			continue
		}
		*m = decoded
		return nil
	}
	return fmt.Errorf("%w, mutation %s is neither an amino acid nor a nucleotide mutation",
		ErrNoVariant, data)
}

func (m Mutation) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case AminoAcid:
		return json.Marshal(aaMutation{
			Gene:            m.Gene,
			PreviousResidue: m.PreviousResidue,
			ResiduePos:      m.ResiduePos,
			NewResidue:      m.NewResidue,
			MutationID:      m.MutationID,
			NucForCodon:     m.NucForCodon,
			Type:            m.Type,
		})
	case Nucleotide:
		return json.Marshal(ntMutation{
			Gene:            m.Gene,
			PreviousResidue: m.PreviousResidue,
			ResiduePos:      m.ResiduePos,
			NewResidue:      m.NewResidue,
			MutationID:      m.MutationID,
			Type:            m.Type,
		})
	default:
		return nil, fmt.Errorf("invalid mutation kind (%d)", m.Kind)
	}
}

// e.g. "S:D614G"
func (m Mutation) String() string {
	return fmt.Sprintf("%s:%s%d%s", m.Gene, m.PreviousResidue, m.ResiduePos, m.NewResidue)
}
