package vision

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"
)

// RawFileSource reads fixed-size 8-bit grayscale frames from a planar dump
// file, the format produced by decoding lane footage offline (one frame is
// exactly Width*Height bytes, frames are concatenated back to back). The real
// camera decoder lives outside this module; this source lets recorded footage
// drive the counting pipeline.
type RawFileSource struct {
	LaneID string
	Path   string
	Width  int
	Height int

	file *os.File
	rd   *bufio.Reader
	seq  int64
}

// NewRawFileSource returns an unopened source for the given dump file.
func NewRawFileSource(laneID, path string, width, height int) *RawFileSource {
	return &RawFileSource{LaneID: laneID, Path: path, Width: width, Height: height}
}

// Open validates the frame geometry and opens the dump file.
func (s *RawFileSource) Open() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("raw source %s: invalid frame geometry %dx%d", s.LaneID, s.Width, s.Height)
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("raw source %s: %w", s.LaneID, err)
	}
	s.file = f
	s.rd = bufio.NewReaderSize(f, 1<<16)
	return nil
}

// Next reads one full frame. A short read at any point means the recording is
// truncated; that is reported as end of stream, not as a failure.
func (s *RawFileSource) Next() (*Frame, error) {
	if s.rd == nil {
		return nil, ErrEndOfStream
	}
	pix := make([]uint8, s.Width*s.Height)
	if _, err := io.ReadFull(s.rd, pix); err != nil {
		return nil, ErrEndOfStream
	}
	s.seq++
	return &Frame{
		LaneID:   s.LaneID,
		Seq:      s.seq,
		Width:    s.Width,
		Height:   s.Height,
		Pix:      pix,
		Captured: time.Now(),
	}, nil
}

// Release closes the dump file. Calling it more than once is harmless.
func (s *RawFileSource) Release() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.rd = nil
	return err
}
