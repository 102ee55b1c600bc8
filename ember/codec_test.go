package ember

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestEncodeDecodeQualifiedParameter(t *testing.T) {
	d := &Detached{
		Qualified: true,
		Path:      "1.2",
		Kind:      KindParameter,
		Access:    ParameterAccessReadWrite,
		ParamType: ParameterTypeInteger,
		Value:     int64(42),
	}

	decoded, err := Decode(Encode(d))
	assert.Equal(t, nil, err)
	assert.Equal(t, true, decoded.Qualified)
	assert.Equal(t, "1.2", decoded.Path)
	assert.Equal(t, KindParameter, decoded.Kind)
	assert.Equal(t, int64(42), decoded.Value)
}

func TestEncodeDecodeTreeBranchWithMatrix(t *testing.T) {
	leaf := &Detached{
		Kind:        KindMatrix,
		TargetCount: 4,
		SourceCount: 4,
		MatrixType:  MatrixTypeOneToN,
		Connections: []DetachedConnection{
			{Target: 1, Sources: []int{0, 2}, Disposition: MatrixDispositionModified},
		},
	}
	root := &Detached{Kind: KindNode, Number: 0, Children: []*Detached{
		{Kind: KindNode, Number: 3, Children: []*Detached{leaf}},
	}}
	leaf.Number = 2

	decoded, err := Decode(Encode(root))
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(decoded.Children))
	inner := decoded.Children[0]
	assert.Equal(t, 1, len(inner.Children))
	gotLeaf := inner.Children[0]
	assert.Equal(t, KindMatrix, gotLeaf.Kind)
	assert.Equal(t, 4, gotLeaf.TargetCount)
	assert.Equal(t, 1, len(gotLeaf.Connections))
	assert.Equal(t, 1, gotLeaf.Connections[0].Target)
	assert.Equal(t, 2, len(gotLeaf.Connections[0].Sources))
}

func TestEncodeDecodeCommand(t *testing.T) {
	d := &Detached{Kind: KindCommand, Command: CommandGetDirectory}
	decoded, err := Decode(Encode(d))
	assert.Equal(t, nil, err)
	assert.Equal(t, KindCommand, decoded.Kind)
	assert.Equal(t, CommandGetDirectory, decoded.Command)
}
