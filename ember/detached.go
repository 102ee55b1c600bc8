package ember

// Detached is a snapshot of an Element (and possibly some of its
// descendants), disconnected from the live arena. Responses and
// notifications are built as a Detached tree rather than pointing back
// into the live Tree, so that sending a response never races with a
// concurrent mutation of the element it describes.
//
// Exactly one of Qualified is set: when true, Path holds the element's
// absolute path and the element is sent standalone; when false, Number
// holds the element's local child index and it is meant to be nested
// inside its parent's Children, reconstructing a branch from the root.
type Detached struct {
	Qualified bool
	Path      string
	Number    int
	Kind      Kind

	Access           ParameterAccess
	ParamType        ParameterType
	Value            any
	StreamIdentifier *int

	TargetCount int
	SourceCount int
	MatrixType  MatrixType
	MatrixMode  MatrixMode
	Labels      []string
	Connections []DetachedConnection

	Command CommandType

	Children []*Detached
}

// DetachedConnection is one matrix crosspoint as carried on the wire.
// Incoming requests set Operation (the mutation to apply); outgoing
// responses set Disposition (the result tag) instead -- a given
// DetachedConnection is never used for both directions at once.
type DetachedConnection struct {
	Target      int
	Sources     []int
	Operation   MatrixOperation
	Disposition MatrixDisposition
}

// GetDuplicate copies this element's own content fields (not its children)
// into a Detached, in the given qualified/unqualified form.
func (e *Element) GetDuplicate(qualified bool) *Detached {
	d := &Detached{
		Qualified:        qualified,
		Kind:             e.kind,
		Access:           e.access,
		ParamType:        e.paramType,
		Value:            e.value,
		StreamIdentifier: e.streamIdentifier,
		TargetCount:      e.targetCount,
		SourceCount:      e.sourceCount,
		MatrixType:       e.matrixType,
		MatrixMode:       e.matrixMode,
		Labels:           e.labels,
		Command:          e.command,
	}
	if qualified {
		d.Path = e.Path()
	} else {
		d.Number = e.number
	}
	for target, conn := range e.connections {
		d.Connections = append(d.Connections, DetachedConnection{
			Target:  target,
			Sources: conn.SourceList(),
		})
	}
	return d
}

// ToQualified returns this element, without children, addressed by its
// absolute path.
func (e *Element) ToQualified() *Detached {
	return e.GetDuplicate(true)
}

// WithDuplicatedChildren extends a Detached with each of e's children,
// each carrying its own content duplicated but its grandchildren trimmed --
// the shape GetDirectory responses use.
func (e *Element) WithDuplicatedChildren(d *Detached) *Detached {
	for _, child := range e.Children() {
		d.Children = append(d.Children, child.GetDuplicate(false))
	}
	return d
}

// GetTreeBranch rebuilds a detached tree of nested single-child elements
// from the root down to this element. If leaf is non-nil it replaces the
// duplicated copy of this element at the bottom of the chain (used to
// splice in an already-built response, e.g. with duplicated children).
func (e *Element) GetTreeBranch(leaf *Detached) *Detached {
	chain := []*Element{}
	for cur := e; cur != nil; {
		chain = append([]*Element{cur}, chain...)
		parent, ok := cur.Parent()
		if !ok {
			break
		}
		cur = parent
	}

	var bottom *Detached
	if leaf != nil {
		bottom = leaf
	} else {
		bottom = e.GetDuplicate(false)
	}

	node := bottom
	for i := len(chain) - 2; i >= 0; i-- {
		parent := chain[i].GetDuplicate(false)
		parent.Children = []*Detached{node}
		node = parent
	}
	return node
}
