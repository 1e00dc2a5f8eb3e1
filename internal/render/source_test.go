package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"clipforge/internal/logging"
	"clipforge/internal/timeline"
)

func writePNG(t *testing.T, dir, name string, c color.RGBA, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return name
}

func frameSource(t *testing.T, elements []timeline.Element, root string) *FrameSource {
	t.Helper()
	snapshot, err := timeline.Freeze(elements)
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}
	fs := NewFrameSource(snapshot, timeline.DirResolver{Root: root}, logging.NewNop())
	if err := fs.Prepare(context.Background()); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	return fs
}

func TestRenderFrameDeterministic(t *testing.T) {
	dir := t.TempDir()
	name := writePNG(t, dir, "red.png", color.RGBA{R: 200, A: 255}, 8, 8)
	fs := frameSource(t, []timeline.Element{{
		ID: "e1", Kind: timeline.KindVisual, SourceRef: name,
		TrackIndex: 0, StartTime: 0, Duration: 5,
	}}, dir)

	buf1, _ := NewFrameBuffer(32, 32)
	buf2, _ := NewFrameBuffer(32, 32)
	fs.RenderFrame(1.5, buf1)
	fs.RenderFrame(1.5, buf2)
	if !bytes.Equal(buf1.Pix, buf2.Pix) {
		t.Fatal("identical timestamps must render identical pixels")
	}
}

func TestRenderFrameRespectsElementInterval(t *testing.T) {
	fs := frameSource(t, []timeline.Element{{
		ID: "bg", Kind: timeline.KindVisual, SourceRef: "color:#ff0000",
		TrackIndex: 0, StartTime: 2, Duration: 3,
	}}, t.TempDir())

	buf, _ := NewFrameBuffer(16, 16)
	fs.RenderFrame(1.0, buf)
	if r, _, _, _ := buf.At(8, 8); r != 0 {
		t.Fatalf("element inactive at t=1 must not be drawn, got r=%d", r)
	}
	fs.RenderFrame(3.0, buf)
	if r, _, _, _ := buf.At(8, 8); r != 0xff {
		t.Fatalf("element active at t=3 must fill canvas, got r=%d", r)
	}
}

func TestRenderFrameTrackOrder(t *testing.T) {
	fs := frameSource(t, []timeline.Element{
		{ID: "top", Kind: timeline.KindVisual, SourceRef: "color:#00ff00", TrackIndex: 1, StartTime: 0, Duration: 5},
		{ID: "bottom", Kind: timeline.KindVisual, SourceRef: "color:#ff0000", TrackIndex: 0, StartTime: 0, Duration: 5},
	}, t.TempDir())

	buf, _ := NewFrameBuffer(16, 16)
	fs.RenderFrame(1, buf)
	r, g, _, _ := buf.At(8, 8)
	if r != 0 || g != 0xff {
		t.Fatalf("higher track must win, got r=%d g=%d", r, g)
	}
}

func TestRenderFrameOpacityBlends(t *testing.T) {
	elements := []timeline.Element{
		{ID: "bottom", Kind: timeline.KindVisual, SourceRef: "color:#ff0000", TrackIndex: 0, StartTime: 0, Duration: 5},
		{ID: "top", Kind: timeline.KindVisual, SourceRef: "color:#0000ff", TrackIndex: 1, StartTime: 0, Duration: 5,
			Transform: timeline.Transform{Opacity: 0.5}},
	}
	fs := frameSource(t, elements, t.TempDir())
	buf, _ := NewFrameBuffer(16, 16)
	fs.RenderFrame(1, buf)
	r, _, b, _ := buf.At(8, 8)
	if r == 0 || r == 0xff || b == 0 || b == 0xff {
		t.Fatalf("expected a blend of red and blue, got r=%d b=%d", r, b)
	}
}

func TestPrepareDegradesMissingVisual(t *testing.T) {
	dir := t.TempDir()
	fs := frameSource(t, []timeline.Element{{
		ID: "gone", Kind: timeline.KindVisual, SourceRef: "missing.png",
		TrackIndex: 0, StartTime: 0, Duration: 5,
	}}, dir)
	if len(fs.Warnings()) != 1 {
		t.Fatalf("expected one warning, got %v", fs.Warnings())
	}
	buf, _ := NewFrameBuffer(8, 8)
	fs.RenderFrame(1, buf)
	if r, g, b, _ := buf.At(4, 4); r != 0 || g != 0 || b != 0 {
		t.Fatal("missing visual must render as background")
	}
}

func TestDrawLayerPositionAndScale(t *testing.T) {
	dir := t.TempDir()
	name := writePNG(t, dir, "dot.png", color.RGBA{G: 255, A: 255}, 4, 4)
	fs := frameSource(t, []timeline.Element{{
		ID: "dot", Kind: timeline.KindVisual, SourceRef: name,
		TrackIndex: 0, StartTime: 0, Duration: 5,
		Transform: timeline.Transform{X: 8, Y: 8, Scale: 2},
	}}, dir)
	buf, _ := NewFrameBuffer(32, 32)
	fs.RenderFrame(0, buf)
	if _, g, _, _ := buf.At(9, 9); g != 0xff {
		t.Fatal("scaled layer must cover offset position")
	}
	if _, g, _, _ := buf.At(4, 4); g != 0 {
		t.Fatal("pixels outside the layer must stay background")
	}
}
