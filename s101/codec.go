package s101

import (
	"fmt"
)

// state is the byte-level receive state of a single Codec.
type state int

const (
	stateSearchBOF state = iota
	stateInFrame
	stateEscaped
)

// Handlers are the events a Codec dispatches to its owner as bytes are fed
// in. A nil handler is simply skipped; Codec never blocks on delivery.
type Handlers struct {
	OnKeepaliveRequest  func()
	OnKeepaliveResponse func()
	OnEmberPacket       func(payload []byte)
}

// Codec is a stateful, single-connection S101 receiver. Feed arbitrary byte
// chunks to Feed; it reassembles frames and Ember+ messages and invokes the
// configured Handlers. Codec never panics or returns an error across the
// Feed boundary: malformed frames are dropped silently per the protocol's
// failure policy.
type Codec struct {
	handlers Handlers

	state state
	frame []byte // bytes accumulated since BOF, unescaped, excluding BOF/EOF

	// reassembly state for a fragmented ember message
	reassembling bool
	message      []byte
}

func NewCodec(handlers Handlers) *Codec {
	return &Codec{
		handlers: handlers,
		state:    stateSearchBOF,
	}
}

// Feed processes a chunk of bytes read from the socket. It may invoke zero
// or more handler callbacks synchronously before returning.
func (self *Codec) Feed(data []byte) {
	for _, b := range data {
		self.feedByte(b)
	}
}

func (self *Codec) feedByte(b byte) {
	switch self.state {
	case stateSearchBOF:
		if b == BOF {
			self.frame = self.frame[:0]
			self.state = stateInFrame
		}
		// else discard

	case stateInFrame:
		switch b {
		case EOF:
			self.completeFrame()
			self.state = stateSearchBOF
		case ESC:
			self.state = stateEscaped
		case BOF:
			// restart: treat as a new BOF
			self.frame = self.frame[:0]
			// stays in InFrame
		default:
			self.frame = append(self.frame, b)
		}

	case stateEscaped:
		self.frame = append(self.frame, b^escapeXor)
		self.state = stateInFrame
	}
}

// completeFrame validates and dispatches the frame accumulated in
// self.frame (the unescaped bytes strictly between BOF and EOF).
func (self *Codec) completeFrame() {
	frame := self.frame
	if len(frame) < minFrameLength {
		return
	}

	body := frame[:len(frame)-2]
	crcLo := frame[len(frame)-2]
	crcHi := frame[len(frame)-1]
	if !crcCheck(body, crcLo, crcHi) {
		return
	}

	// slot, messageType, command, version, flags, dtd, appBytesLen, appBytes..., payload...
	if MessageType(body[1]) != MessageTypeS101 {
		return
	}
	command := Command(body[2])
	flags := Flags(0)
	offset := 4 // slot, messageType, command, version consumed

	switch command {
	case CommandKeepaliveRequest:
		if self.handlers.OnKeepaliveRequest != nil {
			self.handlers.OnKeepaliveRequest()
		}
		return
	case CommandKeepaliveResponse:
		if self.handlers.OnKeepaliveResponse != nil {
			self.handlers.OnKeepaliveResponse()
		}
		return
	case CommandEmberPayload:
		// fall through to payload parsing below
	default:
		return
	}

	if len(body) < offset+3 {
		return
	}
	flags = Flags(body[offset])
	// dtd byte at offset+1 is not interpreted by this codec
	appBytesLen := int(body[offset+2])
	offset += 3
	if len(body) < offset+appBytesLen {
		return
	}
	// application bytes are opaque to this codec
	offset += appBytesLen

	payload := body[offset:]
	self.handlePayloadFrame(flags, payload)
}

func (self *Codec) handlePayloadFrame(flags Flags, payload []byte) {
	if flags.Empty() {
		// an empty-packet frame discards its own payload and resets any
		// in-progress reassembly per the first-packet semantics.
		self.reassembling = false
		self.message = nil
		return
	}

	if flags.First() {
		self.reassembling = true
		self.message = append([]byte{}, payload...)
	} else if self.reassembling {
		self.message = append(self.message, payload...)
	} else {
		// a continuation frame arrived with no open reassembly: drop it
		// silently, matching the codec's no-exception failure policy.
		return
	}

	if flags.Last() {
		message := self.message
		self.reassembling = false
		self.message = nil
		if self.handlers.OnEmberPacket != nil {
			self.handlers.OnEmberPacket(message)
		}
	}
}

// escape appends b to dst, escaping BOF, EOF and ESC bytes.
func escape(dst []byte, b byte) []byte {
	switch b {
	case BOF, EOF, ESC:
		return append(dst, ESC, b^escapeXor)
	default:
		return append(dst, b)
	}
}

// buildFrame assembles one complete, escaped, CRC-terminated frame for the
// given command/flags/payload and wraps it in BOF/EOF.
func buildFrame(command Command, flags Flags, appBytes []byte, payload []byte) []byte {
	body := make([]byte, 0, 8+len(appBytes)+len(payload))
	body = append(body, DefaultSlot, byte(MessageTypeS101), byte(command), DefaultVersion)
	if command == CommandEmberPayload {
		body = append(body, byte(flags), 0x00 /* dtd */, byte(len(appBytes)))
		body = append(body, appBytes...)
		body = append(body, payload...)
	}

	crc := crc16(body)
	body = append(body, byte(crc&0xFF), byte(crc>>8))

	out := make([]byte, 0, len(body)*2+2)
	out = append(out, BOF)
	for _, b := range body {
		out = escape(out, b)
	}
	out = append(out, EOF)
	return out
}

// EncodeKeepaliveRequest returns a single well-formed keepalive-request
// frame.
func EncodeKeepaliveRequest() []byte {
	return buildFrame(CommandKeepaliveRequest, 0, nil, nil)
}

// EncodeKeepaliveResponse returns a single well-formed keepalive-response
// frame.
func EncodeKeepaliveResponse() []byte {
	return buildFrame(CommandKeepaliveResponse, 0, nil, nil)
}

// EncodeEmber splits payload into one or more frames of at most
// MaxPayloadSize bytes each, flagged so the receiving Codec reassembles them
// back into payload. An empty payload produces a single empty-packet frame.
func EncodeEmber(payload []byte) [][]byte {
	if len(payload) == 0 {
		return [][]byte{buildFrame(CommandEmberPayload, FlagFirstPacket|FlagLastPacket|FlagEmptyPacket, nil, nil)}
	}

	frames := [][]byte{}
	for offset := 0; offset < len(payload); offset += MaxPayloadSize {
		end := offset + MaxPayloadSize
		if len(payload) < end {
			end = len(payload)
		}
		var flags Flags
		if offset == 0 {
			flags |= FlagFirstPacket
		}
		if end == len(payload) {
			flags |= FlagLastPacket
		}
		frames = append(frames, buildFrame(CommandEmberPayload, flags, nil, payload[offset:end]))
	}
	return frames
}

func (s state) String() string {
	switch s {
	case stateSearchBOF:
		return "SearchBOF"
	case stateInFrame:
		return "InFrame"
	case stateEscaped:
		return "Escaped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
