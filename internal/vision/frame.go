package vision

import (
	"errors"
	"time"
)

// ErrEndOfStream is returned by FrameSource.Next when the underlying stream has
// no more frames. It is a terminal condition for the owning lane, not an error
// the caller should retry.
var ErrEndOfStream = errors.New("vision: end of stream")

// Frame is one grayscale video frame from a lane camera. Pix holds 8-bit
// luminance values in row-major order, len(Pix) == Width*Height. A Frame is
// never mutated after construction; ownership passes to whoever it is handed to.
type Frame struct {
	LaneID   string
	Seq      int64 // monotonically increasing per source, first frame is 1
	Width    int
	Height   int
	Pix      []uint8
	Captured time.Time
}

// At returns the luminance at (x, y). Out-of-bounds coordinates return 0.
func (f *Frame) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0
	}
	return f.Pix[y*f.Width+x]
}

// FrameSource yields successive frames for a single lane. Implementations are
// not safe for concurrent use; each lane's worker owns its source exclusively.
type FrameSource interface {
	// Open prepares the stream. An unreadable or missing stream is reported
	// here so the lane can terminate before processing starts.
	Open() error

	// Next returns the next frame, or ErrEndOfStream once the stream is
	// exhausted. A corrupt or truncated frame is reported as ErrEndOfStream:
	// the lane simply ends, it does not fail.
	Next() (*Frame, error)

	// Release frees the underlying stream. Safe to call after Next has
	// returned ErrEndOfStream, and safe to call more than once.
	Release() error
}

// Mask is a binary foreground mask derived from one frame. A non-zero byte
// marks a foreground pixel.
type Mask struct {
	Width  int
	Height int
	Bits   []uint8
}

// NewMask allocates an all-background mask of the given dimensions.
func NewMask(w, h int) *Mask {
	return &Mask{Width: w, Height: h, Bits: make([]uint8, w*h)}
}

// Set marks (x, y) as foreground.
func (m *Mask) Set(x, y int) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Bits[y*m.Width+x] = 1
}

// At reports whether (x, y) is foreground. Out-of-bounds is background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Bits[y*m.Width+x] != 0
}

// ForegroundCount returns the number of foreground pixels in the mask.
func (m *Mask) ForegroundCount() int {
	n := 0
	for _, b := range m.Bits {
		if b != 0 {
			n++
		}
	}
	return n
}
