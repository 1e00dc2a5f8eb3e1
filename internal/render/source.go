package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"clipforge/internal/logging"
	"clipforge/internal/timeline"
)

// visual is the resolved pixel content for one visual element. A nil image
// with ok=false means the source failed to resolve and its window renders
// as nothing (lower tracks or background show through).
type visual struct {
	img *image.RGBA
	ok  bool
}

// FrameSource renders composited frames from an immutable snapshot.
type FrameSource struct {
	snapshot *timeline.Snapshot
	resolver timeline.Resolver
	logger   *slog.Logger

	visuals  map[string]visual
	active   []timeline.Element // reused scratch for ActiveAt
	warnings []string
}

// NewFrameSource constructs a frame source over the given snapshot.
func NewFrameSource(snapshot *timeline.Snapshot, resolver timeline.Resolver, logger *slog.Logger) *FrameSource {
	return &FrameSource{
		snapshot: snapshot,
		resolver: resolver,
		logger:   logging.NewComponentLogger(logger, "render"),
		visuals:  make(map[string]visual),
	}
}

// Prepare resolves every visual element's pixels once. Individual failures
// degrade to a skipped layer plus a warning; only context cancellation is
// returned as an error.
func (f *FrameSource) Prepare(ctx context.Context) error {
	for _, element := range f.snapshot.Elements() {
		if !element.HasVisual() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, done := f.visuals[element.ID]; done {
			continue
		}
		img, err := f.resolveVisual(ctx, element)
		if err != nil {
			f.warnings = append(f.warnings,
				fmt.Sprintf("visual %s unavailable, window renders without it: %v", element.ID, err))
			f.logger.Warn("visual source degraded",
				logging.SourceID(element.ID),
				logging.Error(err),
			)
			f.visuals[element.ID] = visual{}
			continue
		}
		f.visuals[element.ID] = visual{img: img, ok: true}
	}
	return nil
}

// Warnings returns the degradation messages collected during Prepare.
func (f *FrameSource) Warnings() []string {
	return append([]string(nil), f.warnings...)
}

// RenderFrame composites the frame for timestampSeconds into dst. Lower track
// indexes are drawn first, higher tracks on top. Identical timestamps against
// the same snapshot always produce identical pixels.
func (f *FrameSource) RenderFrame(timestampSeconds float64, dst *FrameBuffer) {
	dst.Clear()
	f.active = f.snapshot.ActiveAt(timestampSeconds, f.active)
	for _, element := range f.active {
		if !element.HasVisual() {
			continue
		}
		layer, found := f.visuals[element.ID]
		if !found || !layer.ok {
			continue
		}
		drawLayer(dst, layer.img, element.Transform)
	}
}

func (f *FrameSource) resolveVisual(ctx context.Context, element timeline.Element) (*image.RGBA, error) {
	ref := strings.TrimSpace(element.SourceRef)
	if rgba, ok := parseColorRef(ref); ok {
		return solidImage(rgba, 16, 16), nil
	}
	src, err := f.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	data := src.Data
	if data == nil {
		data, err = os.ReadFile(src.Path)
		if err != nil {
			return nil, err
		}
	}
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	bounds := decoded.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), decoded, bounds.Min, draw.Src)
	return rgba, nil
}

// drawLayer paints src into dst honoring position, scale, and opacity.
// A 16x16 solid marker image (from a color: ref) stretches to the full
// canvas; everything else draws at its scaled natural size with
// nearest-neighbor sampling.
func drawLayer(dst *FrameBuffer, src *image.RGBA, transform timeline.Transform) {
	srcW := src.Bounds().Dx()
	srcH := src.Bounds().Dy()
	scale := transform.EffectiveScale()
	dstW := int(float64(srcW) * scale)
	dstH := int(float64(srcH) * scale)
	if srcW == 16 && srcH == 16 {
		dstW, dstH = dst.Width, dst.Height
	}
	if dstW <= 0 || dstH <= 0 {
		return
	}
	offX := int(transform.X)
	offY := int(transform.Y)
	opacity := uint32(transform.EffectiveOpacity() * 256)

	for y := 0; y < dstH; y++ {
		dy := y + offY
		if dy < 0 || dy >= dst.Height {
			continue
		}
		sy := y * srcH / dstH
		for x := 0; x < dstW; x++ {
			dx := x + offX
			if dx < 0 || dx >= dst.Width {
				continue
			}
			sx := x * srcW / dstW
			si := src.PixOffset(sx, sy)
			alpha := uint32(src.Pix[si+3]) * opacity >> 8
			if alpha == 0 {
				continue
			}
			di := (dy*dst.Width + dx) * 4
			dst.blendPixel(di, src.Pix[si], src.Pix[si+1], src.Pix[si+2], alpha)
		}
	}
}

// parseColorRef recognizes synthetic "color:#rrggbb" source refs used for
// background and title-card elements.
func parseColorRef(ref string) ([4]byte, bool) {
	if !strings.HasPrefix(ref, "color:#") {
		return [4]byte{}, false
	}
	hex := strings.TrimPrefix(ref, "color:#")
	if len(hex) != 6 {
		return [4]byte{}, false
	}
	value, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return [4]byte{}, false
	}
	return [4]byte{byte(value >> 16), byte(value >> 8), byte(value), 0xff}, true
}

func solidImage(rgba [4]byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = rgba[0]
		img.Pix[i+1] = rgba[1]
		img.Pix[i+2] = rgba[2]
		img.Pix[i+3] = rgba[3]
	}
	return img
}
