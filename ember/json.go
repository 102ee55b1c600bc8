package ember

// ToJSON is a best-effort JSON-shaped snapshot of an element and its
// children, kept outside the core dispatch path: JSON<->tree conversion
// is treated as an external collaborator, not a core subsystem. It
// exists for debugging and admin tooling, not for wire compatibility.
func (e *Element) ToJSON() map[string]any {
	m := map[string]any{
		"path":   e.Path(),
		"number": e.number,
		"kind":   e.kind.String(),
	}

	switch e.kind {
	case KindParameter:
		m["access"] = e.access
		m["value"] = e.value
		if e.streamIdentifier != nil {
			m["streamIdentifier"] = *e.streamIdentifier
		}
	case KindMatrix:
		m["targetCount"] = e.targetCount
		m["sourceCount"] = e.sourceCount
		connections := map[int][]int{}
		for target, conn := range e.connections {
			connections[target] = conn.SourceList()
		}
		m["connections"] = connections
	case KindCommand:
		m["command"] = e.command
	}

	if children := e.Children(); 0 < len(children) {
		childJSON := make([]map[string]any, 0, len(children))
		for _, child := range children {
			childJSON = append(childJSON, child.ToJSON())
		}
		m["children"] = childJSON
	}

	return m
}
