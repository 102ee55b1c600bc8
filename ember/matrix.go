package ember

import "fmt"

// ApplyConnection mutates the matrix element's connection at target
// according to op, returning the resulting source set. It returns an
// error, without mutating anything, if the element is not a matrix or
// target is outside [0, targetCount).
//
// oneToN and oneToOne exclusivity (at most one source per target, and for
// oneToOne, a source appearing at only one target) is not enforced here.
// It is documented as an invariant the tree builder and callers are
// expected to respect rather than one this layer rejects at mutation time.
func (e *Element) ApplyConnection(target int, sources []int, op MatrixOperation) ([]int, error) {
	if !e.IsMatrix() {
		return nil, fmt.Errorf("element %s is not a matrix", e.Path())
	}
	if target < 0 || e.targetCount <= target {
		return nil, fmt.Errorf("target %d out of range [0,%d)", target, e.targetCount)
	}

	conn, ok := e.connections[target]
	if !ok {
		conn = NewConnection(target)
		e.connections[target] = conn
	}

	switch op {
	case MatrixOperationConnect:
		for _, s := range sources {
			conn.Sources[s] = true
		}
	case MatrixOperationDisconnect:
		for _, s := range sources {
			delete(conn.Sources, s)
		}
	case MatrixOperationAbsolute:
		fallthrough
	default:
		conn.Sources = map[int]bool{}
		for _, s := range sources {
			conn.Sources[s] = true
		}
	}
	conn.Operation = op

	return conn.SourceList(), nil
}

// ConnectionRequest is one incoming matrix mutation request: a target, a
// set of sources, and an operation (MatrixOperationAbsolute when omitted,
// per the protocol's default).
type ConnectionRequest struct {
	Target    int
	Sources   []int
	Operation MatrixOperation
}

// ValidateConnectionRequest checks the pre-mutation invariants the
// dispatcher must enforce before calling ApplyConnection: the matrix must
// have a positive target count and the target must be in range.
func (e *Element) ValidateConnectionRequest(req ConnectionRequest) error {
	if !e.IsMatrix() {
		return fmt.Errorf("element %s is not a matrix", e.Path())
	}
	if e.targetCount <= 0 {
		return fmt.Errorf("matrix %s has no targetCount", e.Path())
	}
	if req.Target < 0 || e.targetCount <= req.Target {
		return fmt.Errorf("target %d out of range [0,%d) for matrix %s", req.Target, e.targetCount, e.Path())
	}
	return nil
}
