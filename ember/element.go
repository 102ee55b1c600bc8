// Package ember implements the tree data model of the protocol this server
// speaks: a rooted tree of nodes, parameters, matrices and commands, each
// addressable either by a dot-joined numeric path from the root or by a
// single qualified (absolute-path) element.
//
// The tree is stored in arena form -- a flat slice of elements addressed by
// numeric ElementId handles, with parent/child links as handles rather than
// pointers -- so that a child can hold a non-owning back-reference to its
// parent without the reference cycles composition in Go would otherwise
// require pointer tricks to break.
//
// The wire encode/decode in codec.go is a minimal, self-contained TLV
// format; this package is deliberately not a full ASN.1 BER/Ember+ codec --
// that is treated as an external collaborator the server depends on, the
// way a production tree library would be vendored rather than rewritten.
package ember

import (
	"fmt"
	"strconv"
	"strings"
)

// ElementId is an arena handle. The zero value is never a valid element; a
// Tree's elements are numbered starting at 1.
type ElementId int

const NoElement ElementId = 0

type Kind int

const (
	KindNode Kind = iota
	KindParameter
	KindMatrix
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "Node"
	case KindParameter:
		return "Parameter"
	case KindMatrix:
		return "Matrix"
	case KindCommand:
		return "Command"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type ParameterAccess int

const (
	ParameterAccessNone ParameterAccess = iota
	ParameterAccessRead
	ParameterAccessWrite
	ParameterAccessReadWrite
)

func (a ParameterAccess) CanWrite() bool {
	return a > ParameterAccessRead
}

type ParameterType int

const (
	ParameterTypeNull ParameterType = iota
	ParameterTypeInteger
	ParameterTypeReal
	ParameterTypeString
	ParameterTypeBoolean
	ParameterTypeEnum
)

type MatrixType int

const (
	MatrixTypeOneToN MatrixType = iota
	MatrixTypeOneToOne
	MatrixTypeNToN
)

type MatrixMode int

const (
	MatrixModeLinear MatrixMode = iota
	MatrixModeNonLinear
)

type MatrixOperation int

const (
	MatrixOperationAbsolute MatrixOperation = iota
	MatrixOperationConnect
	MatrixOperationDisconnect
)

type MatrixDisposition int

const (
	MatrixDispositionTally MatrixDisposition = iota
	MatrixDispositionModified
	MatrixDispositionPending
)

type CommandType int

const (
	CommandGetDirectory CommandType = iota
	CommandSubscribe
	CommandUnsubscribe
	CommandInvoke
)

// Connection is one matrix crosspoint: the set of source indices currently
// routed to a target.
type Connection struct {
	Target    int
	Sources   map[int]bool
	Operation MatrixOperation
}

func NewConnection(target int) *Connection {
	return &Connection{Target: target, Sources: map[int]bool{}}
}

func (c *Connection) SourceList() []int {
	sources := make([]int, 0, len(c.Sources))
	for s := range c.Sources {
		sources = append(sources, s)
	}
	return sources
}

// Element is a single tagged node in the tree. Only the fields relevant to
// Kind are meaningful; this mirrors the loosely-typed element records of
// the reference protocol rather than a family of Go interfaces, because the
// dispatcher routinely needs to ask "is this also a parameter" without a
// type assertion chain.
type Element struct {
	id     ElementId
	tree   *Tree
	parent ElementId
	number int
	kind   Kind

	children []ElementId

	// Parameter fields.
	access           ParameterAccess
	paramType        ParameterType
	value            any
	streamIdentifier *int

	// Matrix fields.
	targetCount int
	sourceCount int
	matrixType  MatrixType
	matrixMode  MatrixMode
	labels      []string
	connections map[int]*Connection

	// Command fields.
	command CommandType
}

func (e *Element) Id() ElementId   { return e.id }
func (e *Element) Kind() Kind      { return e.kind }
func (e *Element) Number() int     { return e.number }
func (e *Element) IsNode() bool    { return e.kind == KindNode }
func (e *Element) IsParameter() bool { return e.kind == KindParameter }
func (e *Element) IsMatrix() bool  { return e.kind == KindMatrix }
func (e *Element) IsCommand() bool { return e.kind == KindCommand }

// IsStream reports whether this element is a parameter carrying a stream
// identifier, per the protocol's get_directory auto-subscribe carve-out.
func (e *Element) IsStream() bool {
	return e.kind == KindParameter && e.streamIdentifier != nil
}

func (e *Element) Parent() (*Element, bool) {
	if e.parent == NoElement {
		return nil, false
	}
	return e.tree.Element(e.parent)
}

func (e *Element) Children() []*Element {
	children := make([]*Element, 0, len(e.children))
	for _, id := range e.children {
		if child, ok := e.tree.Element(id); ok {
			children = append(children, child)
		}
	}
	return children
}

func (e *Element) ChildByNumber(number int) (*Element, bool) {
	for _, id := range e.children {
		child, ok := e.tree.Element(id)
		if ok && child.number == number {
			return child, true
		}
	}
	return nil, false
}

// Path returns the dot-joined chain of numbers from the root to this
// element, e.g. "1.3.2".
func (e *Element) Path() string {
	numbers := []string{}
	for cur := e; cur != nil; {
		numbers = append([]string{strconv.Itoa(cur.number)}, numbers...)
		parent, ok := cur.Parent()
		if !ok {
			break
		}
		cur = parent
	}
	return strings.Join(numbers, ".")
}

// Parameter accessors.
func (e *Element) Access() ParameterAccess   { return e.access }
func (e *Element) ParameterType() ParameterType { return e.paramType }
func (e *Element) Value() any                { return e.value }
func (e *Element) StreamIdentifier() *int    { return e.streamIdentifier }

func (e *Element) SetValue(value any) {
	e.value = value
}

// Matrix accessors.
func (e *Element) TargetCount() int     { return e.targetCount }
func (e *Element) SourceCount() int     { return e.sourceCount }
func (e *Element) MatrixType() MatrixType { return e.matrixType }
func (e *Element) MatrixMode() MatrixMode { return e.matrixMode }
func (e *Element) Labels() []string     { return e.labels }

func (e *Element) Connection(target int) (*Connection, bool) {
	c, ok := e.connections[target]
	return c, ok
}

func (e *Element) SortedTargets() []int {
	targets := make([]int, 0, len(e.connections))
	for t := range e.connections {
		targets = append(targets, t)
	}
	sortInts(targets)
	return targets
}

func (e *Element) Command() CommandType { return e.command }

func sortInts(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; 0 < j && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}
