package mllp

// FramerState names a state of the Framer's pull-based state machine.
type FramerState int

const (
	// StateIdle is waiting for a StartBlock byte; any bytes seen here are
	// protocol junk (keep-alives, stray bytes between messages) and are
	// dropped rather than buffered.
	StateIdle FramerState = iota
	// StateInBody is accumulating message bytes after a StartBlock and
	// before an EndBlock.
	StateInBody
	// StateSawFS has seen EndBlock and is waiting for the trailing
	// CarriageReturn that completes a frame.
	StateSawFS
)

func (s FramerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInBody:
		return "in_body"
	case StateSawFS:
		return "saw_fs"
	default:
		return "unknown"
	}
}

// Frame is one complete MLLP-delimited message extracted by a Framer,
// holding the raw HL7 bytes with the MLLP envelope already stripped.
type Frame struct {
	Data []byte
}

// Framer turns a byte stream into a sequence of Frames using a pure,
// pull-based three-state machine (idle / in_body / saw_fs). Unlike Reader,
// Framer performs no I/O of its own: a caller feeds it whatever bytes
// arrived from a socket, pipe, or test fixture via Feed, and Framer returns
// zero or more complete Frames found in that input plus whatever it
// buffered internally for the next call. This makes Framer usable in
// non-blocking event loops (e.g. driven by a `net.Conn` read loop with a
// deadline, or a unit test feeding bytes one at a time) where Reader's
// blocking ReadByte loop doesn't fit.
type Framer struct {
	state   FramerState
	buf     []byte
	maxSize int

	droppedJunk int
}

// NewFramer creates a Framer. maxSize bounds how many body bytes it will
// buffer before Feed returns ErrMessageTooLarge; maxSize <= 0 uses
// MaxMessageSize.
func NewFramer(maxSize int) *Framer {
	if maxSize <= 0 {
		maxSize = MaxMessageSize
	}
	return &Framer{maxSize: maxSize}
}

// State reports the Framer's current state, mainly useful for tests and
// diagnostics.
func (f *Framer) State() FramerState { return f.state }

// DroppedJunkBytes reports how many bytes Feed has discarded while idle
// (bytes seen outside any frame, e.g. TCP keep-alive noise between
// messages).
func (f *Framer) DroppedJunkBytes() int { return f.droppedJunk }

// Feed advances the state machine with the next chunk of input and returns
// every complete Frame found within it. Frames may span multiple Feed
// calls; partially-received messages are retained internally until a
// subsequent Feed call completes them. A message whose body exceeds the
// configured maxSize produces no Frame: Feed returns ErrMessageTooLarge
// (alongside any complete Frames found in the same input), discards the
// buffered body and resets to StateIdle, so the rest of that message is
// dropped as idle bytes until the next StartBlock.
func (f *Framer) Feed(input []byte) ([]Frame, error) {
	var frames []Frame
	var firstErr error

	for _, b := range input {
		switch f.state {
		case StateIdle:
			if b == StartBlock {
				f.buf = f.buf[:0]
				f.state = StateInBody
			} else {
				f.droppedJunk++
			}

		case StateInBody:
			if b == EndBlock {
				f.state = StateSawFS
				continue
			}
			if len(f.buf) >= f.maxSize {
				if firstErr == nil {
					firstErr = ErrMessageTooLarge
				}
				f.buf = f.buf[:0]
				f.state = StateIdle
				continue
			}
			f.buf = append(f.buf, b)

		case StateSawFS:
			if b == CarriageReturn {
				data := make([]byte, len(f.buf))
				copy(data, f.buf)
				frames = append(frames, Frame{Data: data})
				f.buf = f.buf[:0]
				f.state = StateIdle
				continue
			}
			// Not a valid end sequence: the FS byte was part of the body.
			// Re-admit it and keep accumulating, then reconsider b as a
			// body byte (it might itself be another FS).
			f.buf = append(f.buf, EndBlock)
			f.state = StateInBody
			if b == EndBlock {
				f.state = StateSawFS
				continue
			}
			if len(f.buf) < f.maxSize {
				f.buf = append(f.buf, b)
			}
		}
	}

	return frames, firstErr
}

// Reset discards any partially-buffered frame and returns the Framer to
// StateIdle. Useful after a connection error when the caller knows
// whatever was mid-frame is no longer recoverable.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
	f.state = StateIdle
}
