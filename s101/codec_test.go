package s101

import (
	"bytes"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestKeepaliveRoundTrip(t *testing.T) {
	requests := 0
	codec := NewCodec(Handlers{
		OnKeepaliveRequest: func() { requests += 1 },
	})

	codec.Feed(EncodeKeepaliveRequest())
	assert.Equal(t, 1, requests)
}

func TestKeepaliveResponseRoundTrip(t *testing.T) {
	responses := 0
	codec := NewCodec(Handlers{
		OnKeepaliveResponse: func() { responses += 1 },
	})

	codec.Feed(EncodeKeepaliveResponse())
	assert.Equal(t, 1, responses)
}

func TestEmberRoundTripSmall(t *testing.T) {
	var got []byte
	codec := NewCodec(Handlers{
		OnEmberPacket: func(payload []byte) { got = payload },
	})

	payload := []byte{0x01, 0x02, 0xFE, 0xFF, 0xFD, 0x03}
	for _, frame := range EncodeEmber(payload) {
		codec.Feed(frame)
	}
	assert.Equal(t, true, bytes.Equal(payload, got))
}

func TestEmberRoundTripFragmented(t *testing.T) {
	var got []byte
	packets := 0
	codec := NewCodec(Handlers{
		OnEmberPacket: func(payload []byte) {
			got = payload
			packets += 1
		},
	})

	payload := make([]byte, 2500)
	for i := range payload {
		payload[i] = byte(i % 256)
	}

	frames := EncodeEmber(payload)
	assert.Equal(t, true, 1 < len(frames))

	// feed interleaved with arbitrary chunk boundaries, byte at a time for
	// the first frame and in one shot for the rest, to exercise Feed being
	// called with arbitrary slicing of the underlying byte stream.
	for i, frame := range frames {
		if i == 0 {
			for _, b := range frame {
				codec.Feed([]byte{b})
			}
		} else {
			codec.Feed(frame)
		}
	}

	assert.Equal(t, 1, packets)
	assert.Equal(t, true, bytes.Equal(payload, got))
}

func TestEmptyEmberPacketIgnored(t *testing.T) {
	packets := 0
	codec := NewCodec(Handlers{
		OnEmberPacket: func(payload []byte) { packets += 1 },
	})

	codec.Feed(EncodeEmber(nil)[0])
	assert.Equal(t, 0, packets)
}

func TestCrcCorruptionDropsFrame(t *testing.T) {
	packets := 0
	codec := NewCodec(Handlers{
		OnEmberPacket: func(payload []byte) { packets += 1 },
	})

	frames := EncodeEmber([]byte("hello"))
	assert.Equal(t, 1, len(frames))
	corrupted := append([]byte{}, frames[0]...)
	corrupted[len(corrupted)-2] += 1 // final CRC byte before EOF

	codec.Feed(corrupted)
	assert.Equal(t, 0, packets)

	// the codec must have returned to SearchBOF and still decode a
	// subsequent valid frame.
	codec.Feed(frames[0])
	assert.Equal(t, 1, packets)
}

func TestEscapeCorrectness(t *testing.T) {
	payload := []byte{BOF, EOF, ESC, 0x00, 0x7F}
	frames := EncodeEmber(payload)
	assert.Equal(t, 1, len(frames))
	frame := frames[0]

	// no BOF or EOF may appear inside the frame body.
	body := frame[1 : len(frame)-1]
	for i, b := range body {
		if b == BOF {
			t.Fatalf("unescaped BOF at body offset %d", i)
		}
		if b == EOF {
			t.Fatalf("unescaped EOF at body offset %d", i)
		}
	}

	// every ESC byte is followed by an escaped payload byte.
	for i := 0; i < len(body); i++ {
		if body[i] == ESC {
			if i+1 >= len(body) {
				t.Fatalf("trailing ESC with no escaped byte")
			}
			i += 1
		}
	}
}

func TestSingleBitFlipRejected(t *testing.T) {
	frames := EncodeEmber([]byte("crc test payload"))
	original := frames[0]

	for bit := 0; bit < 8; bit++ {
		packets := 0
		codec := NewCodec(Handlers{
			OnEmberPacket: func(payload []byte) { packets += 1 },
		})

		mutated := append([]byte{}, original...)
		// flip a bit inside the frame body (not BOF/EOF markers).
		mutated[len(mutated)/2] ^= byte(1 << bit)
		codec.Feed(mutated)
		assert.Equal(t, 0, packets)
	}
}
