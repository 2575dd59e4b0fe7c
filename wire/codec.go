package wire

import (
	"bytes"
	"unicode/utf8"
)

// DefaultMaxFrameSize is the cap on a single frame's size.
const DefaultMaxFrameSize = 16 * 1024 * 1024

// FrameErrorKind classifies a framing failure.
type FrameErrorKind int

const (
	InvalidFrame FrameErrorKind = iota
	FrameTooLarge
	NonUtf8
)

func (k FrameErrorKind) String() string {
	switch k {
	case InvalidFrame:
		return "InvalidFrame"
	case FrameTooLarge:
		return "FrameTooLarge"
	case NonUtf8:
		return "NonUtf8"
	default:
		return "Unknown"
	}
}

// FrameError is a framing-layer error: malformed or oversized frames,
// or a frame that is not valid UTF-8.
type FrameError struct {
	Kind FrameErrorKind
}

func (e *FrameError) Error() string { return "wire: " + e.Kind.String() }

// Decoder deframes a byte stream into NUL-terminated messages. It owns
// no I/O: the host appends bytes with Append and pulls decoded frames
// with TakeFrame.
type Decoder struct {
	buf      []byte
	maxFrame int
}

// NewDecoder returns a Decoder using DefaultMaxFrameSize.
func NewDecoder() *Decoder {
	return &Decoder{maxFrame: DefaultMaxFrameSize}
}

// SetMaxFrameSize overrides the frame size cap.
func (d *Decoder) SetMaxFrameSize(n int) { d.maxFrame = n }

// Append adds bytes to the internal buffer.
func (d *Decoder) Append(b []byte) {
	d.buf = append(d.buf, b...)
}

// Buffered returns the number of bytes currently held and not yet
// consumed by TakeFrame, including any complete frames not yet taken.
func (d *Decoder) Buffered() int { return len(d.buf) }

// DrainRemaining returns and clears whatever bytes are currently
// buffered, without looking for a frame terminator. It is used once,
// at the moment of a successful connection upgrade, to hand the host
// whatever bytes arrived past the terminating NUL of the upgrade
// reply — those bytes are the start of the raw stream the application
// now owns.
func (d *Decoder) DrainRemaining() []byte {
	b := d.buf
	d.buf = nil
	return b
}

// TakeFrame returns the next complete frame, consuming bytes through
// its terminating NUL. ok is false when the buffer holds no complete
// frame yet. err is non-nil for a malformed or oversized frame; the
// decoder discards the offending bytes so the next 0x00 in a later
// Append resynchronizes decoding.
func (d *Decoder) TakeFrame() (frame []byte, ok bool, err error) {
	idx := bytes.IndexByte(d.buf, 0)
	if idx < 0 {
		if len(d.buf) > d.maxFrame {
			d.buf = d.buf[:0]
			return nil, false, &FrameError{Kind: FrameTooLarge}
		}
		return nil, false, nil
	}

	frame = d.buf[:idx]
	d.buf = append(d.buf[:0:0], d.buf[idx+1:]...)

	if idx > d.maxFrame {
		return nil, false, &FrameError{Kind: FrameTooLarge}
	}
	if len(frame) == 0 {
		return nil, false, &FrameError{Kind: InvalidFrame}
	}
	if !utf8.Valid(frame) {
		return nil, false, &FrameError{Kind: NonUtf8}
	}
	return frame, true, nil
}

// EncodeFrame appends the NUL frame terminator to msg, ready to be
// queued as a Transmit.
func EncodeFrame(msg []byte) []byte {
	out := make([]byte, len(msg)+1)
	copy(out, msg)
	out[len(msg)] = 0
	return out
}
