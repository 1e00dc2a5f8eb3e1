package render

import "fmt"

// FrameBuffer is a packed RGBA pixel buffer sized once and reused for every
// frame of a job, keeping the render loop free of per-frame heap churn.
type FrameBuffer struct {
	Width  int
	Height int
	Pix    []byte // len = Width*Height*4
}

// NewFrameBuffer allocates a buffer for the given even dimensions.
func NewFrameBuffer(width, height int) (*FrameBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("frame buffer: dimensions must be positive, got %dx%d", width, height)
	}
	return &FrameBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*4),
	}, nil
}

// Clear fills the buffer with opaque black.
func (b *FrameBuffer) Clear() {
	for i := 0; i < len(b.Pix); i += 4 {
		b.Pix[i] = 0
		b.Pix[i+1] = 0
		b.Pix[i+2] = 0
		b.Pix[i+3] = 0xff
	}
}

// At returns the pixel at (x, y). Intended for tests; the render loop writes
// into Pix directly.
func (b *FrameBuffer) At(x, y int) (r, g, bl, a byte) {
	i := (y*b.Width + x) * 4
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]
}

// blendPixel writes src over the destination pixel at index i with the given
// alpha in [0,256].
func (b *FrameBuffer) blendPixel(i int, r, g, bl byte, alpha uint32) {
	if alpha >= 256 {
		b.Pix[i] = r
		b.Pix[i+1] = g
		b.Pix[i+2] = bl
		b.Pix[i+3] = 0xff
		return
	}
	inv := 256 - alpha
	b.Pix[i] = byte((uint32(r)*alpha + uint32(b.Pix[i])*inv) >> 8)
	b.Pix[i+1] = byte((uint32(g)*alpha + uint32(b.Pix[i+1])*inv) >> 8)
	b.Pix[i+2] = byte((uint32(bl)*alpha + uint32(b.Pix[i+2])*inv) >> 8)
	b.Pix[i+3] = 0xff
}
