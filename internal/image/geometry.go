package imagepkg

import "math"

// ReferencePreviewWidth is the width that Transform offsets and
// TextOverlay sizes are expressed in.
const ReferencePreviewWidth = 300

const (
	MinZoom = 0.5
	MaxZoom = 2.0

	// ExportScale relates PreviewTarget to ExportTarget.
	ExportScale = 4

	// MaxRenderPixels bounds the surface a single render may allocate.
	MaxRenderPixels = 8192 * 8192
)

// RenderTarget is the size of the output surface.
type RenderTarget struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

var (
	PreviewTarget = RenderTarget{Width: ReferencePreviewWidth, Height: 400}
	ExportTarget  = PreviewTarget.Scale(ExportScale)
)

// Scale multiplies both dimensions by k.
func (t RenderTarget) Scale(k int) RenderTarget {
	return RenderTarget{Width: t.Width * k, Height: t.Height * k}
}

// Factor is the ratio between this target and the reference preview.
func (t RenderTarget) Factor() float64 {
	return float64(t.Width) / ReferencePreviewWidth
}

func (t RenderTarget) valid() bool {
	if t.Width <= 0 || t.Height <= 0 {
		return false
	}
	return int64(t.Width)*int64(t.Height) <= MaxRenderPixels
}

// Transform places the source photo inside the target. Offsets are in
// pixels of the reference preview.
type Transform struct {
	Zoom    float64 `json:"zoom"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

func DefaultTransform() Transform {
	return Transform{Zoom: 1}
}

// ClampZoom forces z into [MinZoom, MaxZoom]. Render does not clamp; callers
// accepting user input do.
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) || z <= 0 {
		return 1
	}
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// Clamped returns t with its zoom clamped and non-finite offsets zeroed.
func (t Transform) Clamped() Transform {
	t.Zoom = ClampZoom(t.Zoom)
	if math.IsNaN(t.OffsetX) || math.IsInf(t.OffsetX, 0) {
		t.OffsetX = 0
	}
	if math.IsNaN(t.OffsetY) || math.IsInf(t.OffsetY, 0) {
		t.OffsetY = 0
	}
	return t
}

// Rect is a rectangle in floating point target pixels.
type Rect struct {
	X, Y, W, H float64
}

// Scale multiplies every component by k.
func (r Rect) Scale(k float64) Rect {
	return Rect{X: r.X * k, Y: r.Y * k, W: r.W * k, H: r.H * k}
}

// SourceRect computes where a srcW x srcH photo lands in target. The photo
// is fitted inside the target keeping its aspect ratio, multiplied by the
// zoom, centered, then moved by the offset scaled to the target.
func SourceRect(target RenderTarget, srcW, srcH int, t Transform) Rect {
	if srcW <= 0 || srcH <= 0 {
		return Rect{}
	}
	tw, th := float64(target.Width), float64(target.Height)
	fit := math.Min(tw/float64(srcW), th/float64(srcH))
	w := float64(srcW) * fit * t.Zoom
	h := float64(srcH) * fit * t.Zoom
	s := target.Factor()
	return Rect{
		X: (tw-w)/2 + t.OffsetX*s,
		Y: (th-h)/2 + t.OffsetY*s,
		W: w,
		H: h,
	}
}

// CropWindow returns the part of the source photo visible in target, in
// normalized source coordinates (0..1 on each axis).
func CropWindow(target RenderTarget, srcW, srcH int, t Transform) Rect {
	r := SourceRect(target, srcW, srcH, t)
	if r.W <= 0 || r.H <= 0 {
		return Rect{}
	}
	x0 := math.Max(r.X, 0)
	y0 := math.Max(r.Y, 0)
	x1 := math.Min(r.X+r.W, float64(target.Width))
	y1 := math.Min(r.Y+r.H, float64(target.Height))
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{
		X: (x0 - r.X) / r.W,
		Y: (y0 - r.Y) / r.H,
		W: (x1 - x0) / r.W,
		H: (y1 - y0) / r.H,
	}
}
