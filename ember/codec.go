package ember

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Encode and Decode are this server's stand-in for the real Ember+ BER
// codec, treated elsewhere as an external collaborator this server
// depends on rather than implements. The wire shape here is a plain recursive
// tag-length-value encoding -- not ASN.1 BER -- sufficient to round-trip a
// Detached tree between this server and itself (and between test cases and
// the dispatcher) without pulling in an ASN.1 implementation that does not
// fit the element-oriented, context-tagged grammar Ember+ actually uses.
const (
	wireKindNode      byte = 0
	wireKindParameter byte = 1
	wireKindMatrix    byte = 2
	wireKindCommand   byte = 3
)

const (
	wireValueNil    byte = 0
	wireValueInt    byte = 1
	wireValueFloat  byte = 2
	wireValueString byte = 3
	wireValueBool   byte = 4
)

// Encode serializes a Detached tree (a decoded request or a constructed
// response) to bytes.
func Encode(d *Detached) []byte {
	buf := &bytes.Buffer{}
	encodeDetached(buf, d)
	return buf.Bytes()
}

func encodeDetached(buf *bytes.Buffer, d *Detached) {
	if d.Qualified {
		buf.WriteByte(1)
		writeString(buf, d.Path)
	} else {
		buf.WriteByte(0)
		writeInt32(buf, int32(d.Number))
	}

	switch d.Kind {
	case KindParameter:
		buf.WriteByte(wireKindParameter)
		buf.WriteByte(byte(d.Access))
		buf.WriteByte(byte(d.ParamType))
		if d.StreamIdentifier != nil {
			buf.WriteByte(1)
			writeInt32(buf, int32(*d.StreamIdentifier))
		} else {
			buf.WriteByte(0)
		}
		writeValue(buf, d.Value)

	case KindMatrix:
		buf.WriteByte(wireKindMatrix)
		writeInt32(buf, int32(d.TargetCount))
		writeInt32(buf, int32(d.SourceCount))
		buf.WriteByte(byte(d.MatrixType))
		buf.WriteByte(byte(d.MatrixMode))
		writeUint16(buf, uint16(len(d.Labels)))
		for _, l := range d.Labels {
			writeString(buf, l)
		}
		writeUint16(buf, uint16(len(d.Connections)))
		for _, c := range d.Connections {
			writeInt32(buf, int32(c.Target))
			writeUint16(buf, uint16(len(c.Sources)))
			for _, s := range c.Sources {
				writeInt32(buf, int32(s))
			}
			buf.WriteByte(byte(c.Operation))
			buf.WriteByte(byte(c.Disposition))
		}

	case KindCommand:
		buf.WriteByte(wireKindCommand)
		buf.WriteByte(byte(d.Command))

	default:
		buf.WriteByte(wireKindNode)
	}

	writeUint16(buf, uint16(len(d.Children)))
	for _, child := range d.Children {
		encodeDetached(buf, child)
	}
}

// Decode parses bytes produced by Encode back into a Detached tree.
func Decode(data []byte) (*Detached, error) {
	r := &reader{data: data}
	d, err := decodeDetached(r)
	if err != nil {
		return nil, err
	}
	if r.offset != len(r.data) {
		return nil, fmt.Errorf("ember: %d trailing bytes after decode", len(r.data)-r.offset)
	}
	return d, nil
}

func decodeDetached(r *reader) (*Detached, error) {
	qualified, err := r.byte()
	if err != nil {
		return nil, err
	}
	d := &Detached{Qualified: qualified == 1}
	if d.Qualified {
		d.Path, err = r.string()
	} else {
		var n int32
		n, err = r.int32()
		d.Number = int(n)
	}
	if err != nil {
		return nil, err
	}

	kind, err := r.byte()
	if err != nil {
		return nil, err
	}

	switch kind {
	case wireKindParameter:
		d.Kind = KindParameter
		access, err := r.byte()
		if err != nil {
			return nil, err
		}
		d.Access = ParameterAccess(access)
		paramType, err := r.byte()
		if err != nil {
			return nil, err
		}
		d.ParamType = ParameterType(paramType)
		hasStream, err := r.byte()
		if err != nil {
			return nil, err
		}
		if hasStream == 1 {
			sid, err := r.int32()
			if err != nil {
				return nil, err
			}
			id := int(sid)
			d.StreamIdentifier = &id
		}
		d.Value, err = r.value()
		if err != nil {
			return nil, err
		}

	case wireKindMatrix:
		d.Kind = KindMatrix
		targetCount, err := r.int32()
		if err != nil {
			return nil, err
		}
		d.TargetCount = int(targetCount)
		sourceCount, err := r.int32()
		if err != nil {
			return nil, err
		}
		d.SourceCount = int(sourceCount)
		matrixType, err := r.byte()
		if err != nil {
			return nil, err
		}
		d.MatrixType = MatrixType(matrixType)
		matrixMode, err := r.byte()
		if err != nil {
			return nil, err
		}
		d.MatrixMode = MatrixMode(matrixMode)
		labelCount, err := r.uint16()
		if err != nil {
			return nil, err
		}
		for i := 0; i < int(labelCount); i++ {
			label, err := r.string()
			if err != nil {
				return nil, err
			}
			d.Labels = append(d.Labels, label)
		}
		connCount, err := r.uint16()
		if err != nil {
			return nil, err
		}
		for i := 0; i < int(connCount); i++ {
			target, err := r.int32()
			if err != nil {
				return nil, err
			}
			sourceCount, err := r.uint16()
			if err != nil {
				return nil, err
			}
			sources := make([]int, 0, sourceCount)
			for j := 0; j < int(sourceCount); j++ {
				s, err := r.int32()
				if err != nil {
					return nil, err
				}
				sources = append(sources, int(s))
			}
			operation, err := r.byte()
			if err != nil {
				return nil, err
			}
			disposition, err := r.byte()
			if err != nil {
				return nil, err
			}
			d.Connections = append(d.Connections, DetachedConnection{
				Target:      int(target),
				Sources:     sources,
				Operation:   MatrixOperation(operation),
				Disposition: MatrixDisposition(disposition),
			})
		}

	case wireKindCommand:
		d.Kind = KindCommand
		command, err := r.byte()
		if err != nil {
			return nil, err
		}
		d.Command = CommandType(command)

	default:
		d.Kind = KindNode
	}

	childCount, err := r.uint16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(childCount); i++ {
		child, err := decodeDetached(r)
		if err != nil {
			return nil, err
		}
		d.Children = append(d.Children, child)
	}

	return d, nil
}

func writeValue(buf *bytes.Buffer, value any) {
	switch v := value.(type) {
	case nil:
		buf.WriteByte(wireValueNil)
	case int:
		buf.WriteByte(wireValueInt)
		writeInt64(buf, int64(v))
	case int64:
		buf.WriteByte(wireValueInt)
		writeInt64(buf, v)
	case float64:
		buf.WriteByte(wireValueFloat)
		writeInt64(buf, int64(math.Float64bits(v)))
	case string:
		buf.WriteByte(wireValueString)
		writeString(buf, v)
	case bool:
		buf.WriteByte(wireValueBool)
		if v {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	default:
		buf.WriteByte(wireValueNil)
	}
}

func (r *reader) value() (any, error) {
	kind, err := r.byte()
	if err != nil {
		return nil, err
	}
	switch kind {
	case wireValueNil:
		return nil, nil
	case wireValueInt:
		v, err := r.int64()
		return v, err
	case wireValueFloat:
		bits, err := r.int64()
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(uint64(bits)), nil
	case wireValueString:
		return r.string()
	case wireValueBool:
		b, err := r.byte()
		return b == 1, err
	default:
		return nil, fmt.Errorf("ember: unknown value kind %d", kind)
	}
}

type reader struct {
	data   []byte
	offset int
}

func (r *reader) byte() (byte, error) {
	if len(r.data) <= r.offset {
		return 0, fmt.Errorf("ember: unexpected end of data")
	}
	b := r.data[r.offset]
	r.offset += 1
	return b, nil
}

func (r *reader) take(n int) ([]byte, error) {
	if len(r.data) < r.offset+n {
		return nil, fmt.Errorf("ember: unexpected end of data")
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b, nil
}

func (r *reader) uint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) int32() (int32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (r *reader) int64() (int64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (r *reader) string() (string, error) {
	n, err := r.uint16()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeInt32(buf *bytes.Buffer, v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	buf.Write(b[:])
}

func writeInt64(buf *bytes.Buffer, v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint16(buf, uint16(len(s)))
	buf.WriteString(s)
}
