package kfly

// SLIP-style framing constants, matching the device's on-wire envelope.
const (
	slipEnd    byte = 0xC0
	slipEsc    byte = 0xDB
	slipEscEnd byte = 0xDC
	slipEscEsc byte = 0xDD
)

// MaxFrameSize bounds the decoder's accumulation buffer. A frame that
// grows past this without closing is discarded and the decoder
// resynchronizes on the next END byte.
const MaxFrameSize = 4096

// EncodeFrame wraps a packet body in SLIP END/ESC framing.
func EncodeFrame(body []byte) []byte {
	out := make([]byte, 0, len(body)+4)
	out = append(out, slipEnd)
	for _, b := range body {
		switch b {
		case slipEnd:
			out = append(out, slipEsc, slipEscEnd)
		case slipEsc:
			out = append(out, slipEsc, slipEscEsc)
		default:
			out = append(out, b)
		}
	}
	out = append(out, slipEnd)
	return out
}

type frameState int

const (
	frameIdle frameState = iota
	frameInFrame
	frameAfterEsc
)

// FrameDecoder is a stateful, restartable SLIP decoder. A single
// instance processes an unbounded stream across any number of Feed
// calls from a single caller; feeding must be serialized by the caller
// (the Codec does this with a transport-wide mutex).
type FrameDecoder struct {
	state frameState
	buf   []byte
}

// NewFrameDecoder returns a decoder in the Idle state with an empty
// accumulation buffer.
func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{state: frameIdle}
}

// Feed advances the state machine by one byte. When a complete,
// non-empty frame body closes, it is returned with ok=true. The
// returned slice is only valid until the next call to Feed.
func (d *FrameDecoder) Feed(b byte) (body []byte, ok bool) {
	switch d.state {
	case frameIdle:
		if b == slipEnd {
			d.state = frameInFrame
			d.buf = d.buf[:0]
		}
		return nil, false

	case frameInFrame:
		switch {
		case b == slipEnd:
			if len(d.buf) == 0 {
				// Back-to-back END markers: stay in InFrame, tolerate it.
				return nil, false
			}
			out := d.buf
			d.buf = nil
			d.state = frameIdle
			return out, true
		case b == slipEsc:
			d.state = frameAfterEsc
			return nil, false
		default:
			d.appendByte(b)
			return nil, false
		}

	case frameAfterEsc:
		switch b {
		case slipEscEnd:
			d.appendByte(slipEnd)
			d.state = frameInFrame
		case slipEscEsc:
			d.appendByte(slipEsc)
			d.state = frameInFrame
		default:
			// Corrupt escape sequence: drop what we have and resync on
			// the next END.
			d.buf = nil
			d.state = frameIdle
		}
		return nil, false
	}

	return nil, false
}

func (d *FrameDecoder) appendByte(b byte) {
	if len(d.buf) >= MaxFrameSize {
		// Overflow guard: discard silently and resync on the next END.
		d.buf = nil
		d.state = frameIdle
		return
	}
	d.buf = append(d.buf, b)
}

// FeedBytes runs Feed over every byte of p, invoking emit in order for
// each completed frame body.
func (d *FrameDecoder) FeedBytes(p []byte, emit func([]byte)) {
	for _, b := range p {
		if body, ok := d.Feed(b); ok {
			emit(body)
		}
	}
}
