package policy

import "fmt"

// PartKind distinguishes the two halves of a statement a part can
// belong to.
type PartKind string

const (
	KindAction   PartKind = "action"
	KindResource PartKind = "resource"
)

// Part is the atomic unit of reduction: one action or resource entry of
// one statement. Parts are derived once from the source document and
// never change afterwards.
type Part struct {
	Sid   string
	Kind  PartKind
	Value string
}

// ID returns the globally unique identifier of the part. The format is
// stable because the search and the audit trail both key on it.
func (p Part) ID() string {
	return fmt.Sprintf("%s/%s/%s", p.Sid, p.Kind, p.Value)
}

// PartSet is a set of part IDs marking which parts are currently kept.
type PartSet map[string]struct{}

func NewPartSet(ids ...string) PartSet {
	s := make(PartSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s PartSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s PartSet) Add(ids ...string) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Union returns a new set containing the members of both sets. The
// receiver is not modified; candidate sets are never mutated in place.
func (s PartSet) Union(other PartSet) PartSet {
	out := make(PartSet, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Encode flattens a validated document into its ordered part sequence
// and the set of all part IDs. The order follows the document: per
// statement, actions first, then resources.
func Encode(doc *Document) ([]Part, PartSet, error) {
	if err := doc.Validate(); err != nil {
		return nil, nil, err
	}

	var parts []Part
	for _, stmt := range doc.Statements {
		for _, action := range stmt.Action {
			parts = append(parts, Part{Sid: stmt.Sid, Kind: KindAction, Value: action})
		}
		for _, resource := range stmt.Resource {
			parts = append(parts, Part{Sid: stmt.Sid, Kind: KindResource, Value: resource})
		}
	}

	all := make(PartSet, len(parts))
	for _, p := range parts {
		all[p.ID()] = struct{}{}
	}
	return parts, all, nil
}
