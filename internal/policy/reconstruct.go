package policy

// Reconstruct builds a restricted document from the kept part IDs. It
// is a pure function: the source document is never modified.
//
// A statement survives only if at least one action AND at least one
// resource of it are kept; otherwise it is dropped entirely rather than
// emitted as an empty statement. Statement order and all attributes
// outside Action/Resource are preserved verbatim.
func Reconstruct(doc *Document, kept PartSet) *Document {
	out := &Document{
		Version: doc.Version,
		ID:      doc.ID,
	}

	for _, stmt := range doc.Statements {
		var actions StringList
		for _, action := range stmt.Action {
			if kept.Has(Part{Sid: stmt.Sid, Kind: KindAction, Value: action}.ID()) {
				actions = append(actions, action)
			}
		}

		var resources StringList
		for _, resource := range stmt.Resource {
			if kept.Has(Part{Sid: stmt.Sid, Kind: KindResource, Value: resource}.ID()) {
				resources = append(resources, resource)
			}
		}

		if len(actions) == 0 || len(resources) == 0 {
			continue
		}

		out.Statements = append(out.Statements, Statement{
			Sid:       stmt.Sid,
			Effect:    stmt.Effect,
			Action:    actions,
			Resource:  resources,
			Condition: stmt.Condition,
		})
	}

	return out
}
