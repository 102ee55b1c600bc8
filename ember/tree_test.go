package ember

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func buildTestTree() *Tree {
	tree := NewTree()
	root := tree.AddNode(NoElement)
	tree.AddNode(root.Id())
	param := tree.AddParameter(root.Id(), ParameterAccessReadWrite, ParameterTypeInteger, int64(10))
	_ = param
	matrix := tree.AddMatrix(root.Id(), 4, 4, MatrixTypeOneToN, MatrixModeLinear)
	matrix.ApplyConnection(1, []int{0}, MatrixOperationAbsolute)
	return tree
}

func TestGetElementByPath(t *testing.T) {
	tree := buildTestTree()

	el, ok := tree.GetElementByPath("0.1")
	assert.Equal(t, true, ok)
	assert.Equal(t, true, el.IsParameter())
	assert.Equal(t, "0.1", el.Path())

	_, ok = tree.GetElementByPath("0.99")
	assert.Equal(t, false, ok)
}

func TestApplyConnectionAbsoluteConnectDisconnect(t *testing.T) {
	tree := buildTestTree()
	matrix, ok := tree.GetElementByPath("0.2")
	assert.Equal(t, true, ok)
	assert.Equal(t, true, matrix.IsMatrix())

	sources, err := matrix.ApplyConnection(1, []int{2}, MatrixOperationConnect)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(sources))

	sources, err = matrix.ApplyConnection(1, []int{0}, MatrixOperationDisconnect)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(sources))
	assert.Equal(t, 2, sources[0])

	sources, err = matrix.ApplyConnection(1, []int{3}, MatrixOperationAbsolute)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(sources))
	assert.Equal(t, 3, sources[0])
}

func TestValidateConnectionRequestOutOfRange(t *testing.T) {
	tree := buildTestTree()
	matrix, _ := tree.GetElementByPath("0.2")

	err := matrix.ValidateConnectionRequest(ConnectionRequest{Target: 99, Sources: []int{0}})
	assert.NotEqual(t, nil, err)
}

func TestGetTreeBranchAndQualified(t *testing.T) {
	tree := buildTestTree()
	param, _ := tree.GetElementByPath("0.1")

	branch := param.GetTreeBranch(nil)
	assert.Equal(t, false, branch.Qualified)
	assert.Equal(t, 0, branch.Number)
	assert.Equal(t, 1, len(branch.Children))
	assert.Equal(t, 1, branch.Children[0].Number)
	assert.Equal(t, KindParameter, branch.Children[0].Kind)

	qualified := param.ToQualified()
	assert.Equal(t, true, qualified.Qualified)
	assert.Equal(t, "0.1", qualified.Path)
	assert.Equal(t, 0, len(qualified.Children))
}
