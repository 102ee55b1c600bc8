// Package s101 implements the S101 byte-oriented framing protocol used to
// carry Ember+ messages over a TCP stream: escape-based framing, a CRC-16
// integrity check per frame, and reassembly of a payload that spans several
// frames.
package s101

const (
	// BOF and EOF delimit a frame. Within the frame body, BOF, EOF and the
	// escape byte itself are escaped: each is transmitted as ESC followed
	// by the original byte XORed with escapeXor.
	BOF = 0xFE
	EOF = 0xFF
	ESC = 0xFD

	escapeXor = 0x20
)

// MessageType identifies the framing layer carried in a frame. S101 is the
// only message type this codec understands; any other value is dropped.
type MessageType byte

const (
	MessageTypeS101 MessageType = 0x0E
)

// Command identifies the S101-layer purpose of a frame.
type Command byte

const (
	CommandEmberPayload      Command = 0x01
	CommandKeepaliveRequest  Command = 0x02
	CommandKeepaliveResponse Command = 0x03
)

// Flags is a bitset carried in the frame envelope describing the position of
// a frame within a (possibly fragmented) Ember+ message.
type Flags byte

const (
	FlagFirstPacket Flags = 0x02
	FlagLastPacket  Flags = 0x04
	FlagEmptyPacket Flags = 0x08

	// FlagSinglePacket marks a message that is not fragmented: both first
	// and last.
	FlagSinglePacket = FlagFirstPacket | FlagLastPacket
)

func (f Flags) First() bool { return f&FlagFirstPacket != 0 }
func (f Flags) Last() bool  { return f&FlagLastPacket != 0 }
func (f Flags) Empty() bool { return f&FlagEmptyPacket != 0 }

const (
	// DefaultVersion is the S101 protocol version byte used by this codec.
	DefaultVersion byte = 0x01

	// DefaultSlot is the slot byte used when no multi-slot addressing is
	// in play; the protocol's slot addressing is not exercised by this
	// server.
	DefaultSlot byte = 0x00

	// MaxPayloadSize is the default cap on the Ember+ payload bytes carried
	// in a single frame. Larger BER-encoded messages are split across
	// multiple frames by EncodeEmber.
	MaxPayloadSize = 1024

	// minFrameLength is the minimum number of unescaped bytes between BOF
	// and EOF (exclusive) for a frame to be considered well-formed: the
	// shortest valid frame is a keepalive with no payload --
	// slot, message type, command, version, crcLo, crcHi.
	minFrameLength = 6
)
