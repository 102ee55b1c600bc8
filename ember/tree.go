package ember

import (
	"strconv"
	"strings"
)

// Tree owns the arena of elements and the list of root-level element ids.
// Elements are created only by the builder methods below (configuration
// load); no method replaces an existing element. Child lists are never
// reordered once a parent is built, so Number() is stable for the tree's
// lifetime.
type Tree struct {
	elements []*Element // index 0 unused, ids start at 1
	roots    []ElementId
}

func NewTree() *Tree {
	return &Tree{elements: make([]*Element, 1)}
}

func (t *Tree) Element(id ElementId) (*Element, bool) {
	if id <= NoElement || int(id) >= len(t.elements) {
		return nil, false
	}
	return t.elements[id], true
}

func (t *Tree) Roots() []*Element {
	roots := make([]*Element, 0, len(t.roots))
	for _, id := range t.roots {
		if el, ok := t.Element(id); ok {
			roots = append(roots, el)
		}
	}
	return roots
}

func (t *Tree) alloc(parent ElementId, kind Kind) *Element {
	id := ElementId(len(t.elements))
	el := &Element{
		id:     id,
		tree:   t,
		parent: parent,
		kind:   kind,
	}
	t.elements = append(t.elements, el)

	if parent == NoElement {
		el.number = len(t.roots)
		t.roots = append(t.roots, id)
	} else {
		parentEl := t.elements[parent]
		el.number = len(parentEl.children)
		parentEl.children = append(parentEl.children, id)
	}
	return el
}

func (t *Tree) AddNode(parent ElementId) *Element {
	return t.alloc(parent, KindNode)
}

func (t *Tree) AddParameter(parent ElementId, access ParameterAccess, paramType ParameterType, value any) *Element {
	el := t.alloc(parent, KindParameter)
	el.access = access
	el.paramType = paramType
	el.value = value
	return el
}

func (t *Tree) AddStreamParameter(parent ElementId, access ParameterAccess, paramType ParameterType, value any, streamIdentifier int) *Element {
	el := t.AddParameter(parent, access, paramType, value)
	id := streamIdentifier
	el.streamIdentifier = &id
	return el
}

func (t *Tree) AddMatrix(parent ElementId, targetCount int, sourceCount int, matrixType MatrixType, matrixMode MatrixMode) *Element {
	el := t.alloc(parent, KindMatrix)
	el.targetCount = targetCount
	el.sourceCount = sourceCount
	el.matrixType = matrixType
	el.matrixMode = matrixMode
	el.connections = map[int]*Connection{}
	for target := 0; target < targetCount; target++ {
		el.connections[target] = NewConnection(target)
	}
	return el
}

func (t *Tree) SetMatrixLabels(id ElementId, labels []string) {
	if el, ok := t.Element(id); ok {
		el.labels = labels
	}
}

func (t *Tree) AddCommand(parent ElementId, command CommandType) *Element {
	el := t.alloc(parent, KindCommand)
	el.command = command
	return el
}

// GetElementByPath resolves a dot-joined numeric path (e.g. "1.3.2")
// against the root set, walking child-by-number at each step. It returns
// false if any segment is out of range.
func (t *Tree) GetElementByPath(path string) (*Element, bool) {
	if path == "" {
		return nil, false
	}
	segments := strings.Split(path, ".")
	numbers := make([]int, len(segments))
	for i, s := range segments {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, false
		}
		numbers[i] = n
	}
	return t.GetElementByNumbers(numbers)
}

func (t *Tree) GetElementByNumbers(numbers []int) (*Element, bool) {
	if len(numbers) == 0 {
		return nil, false
	}
	if numbers[0] < 0 || len(t.roots) <= numbers[0] {
		return nil, false
	}
	cur, ok := t.Element(t.roots[numbers[0]])
	if !ok {
		return nil, false
	}
	for _, n := range numbers[1:] {
		cur, ok = cur.ChildByNumber(n)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// ResolveChildChain walks the child chain starting at root, by number, the
// same way GetElementByNumbers does: it returns false if any number in the
// chain does not name an existing child, rather than stopping at the
// deepest element reachable.
func (t *Tree) ResolveChildChain(numbers []int) (*Element, bool) {
	return t.GetElementByNumbers(numbers)
}
