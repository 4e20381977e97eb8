package imagepkg

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

var (
	// BackgroundColor shows wherever the photo does not cover the target.
	BackgroundColor  = color.NRGBA{R: 0x11, G: 0x11, B: 0x18, A: 0xff}
	PlaceholderColor = color.NRGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
)

// PlaceholderText is drawn when no photo has been chosen yet.
var PlaceholderText = TextOverlay{
	Value:    "Add your photo",
	Bottom:   0.5,
	FontSize: 18,
	Color:    color.NRGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff},
}

// FrameAsset is the decorative overlay stretched over the whole target.
type FrameAsset struct {
	Image  *image.NRGBA
	Source string
}

// Render draws source, then frame, then text onto a new surface of the
// target's size. A nil source renders a placeholder. The result depends only
// on the arguments, so equal inputs give pixel identical outputs.
func Render(target RenderTarget, source *SourceImage, frame *FrameAsset, t Transform, text *TextOverlay) (*image.NRGBA, error) {
	if !target.valid() {
		return nil, fmt.Errorf("%w: target %dx%d", ErrRenderUnavailable, target.Width, target.Height)
	}

	var canvas *image.NRGBA
	if source == nil || source.Image == nil {
		canvas = imaging.New(target.Width, target.Height, PlaceholderColor)
		if err := drawText(canvas, PlaceholderText, target); err != nil {
			return nil, err
		}
	} else {
		canvas = imaging.New(target.Width, target.Height, BackgroundColor)
		drawSource(canvas, source, SourceRect(target, source.Width, source.Height, t))
	}

	if frame != nil && frame.Image != nil {
		stretched := imaging.Resize(frame.Image, target.Width, target.Height, imaging.Lanczos)
		draw.Draw(canvas, canvas.Bounds(), stretched, image.Point{}, draw.Over)
	}

	if text != nil {
		if err := drawText(canvas, *text, target); err != nil {
			return nil, err
		}
	}
	return canvas, nil
}

// drawSource maps the photo onto r with an affine transform, so fractional
// placement survives at every output scale instead of being rounded to
// whole pixels first. The transform reads from the smallest reduction of
// the photo that still covers r.
func drawSource(dst *image.NRGBA, source *SourceImage, r Rect) {
	if r.W <= 0 || r.H <= 0 {
		return
	}
	src := source.level(r.W, r.H)
	b := src.Bounds()
	m := f64.Aff3{
		r.W / float64(b.Dx()), 0, r.X,
		0, r.H / float64(b.Dy()), r.Y,
	}
	xdraw.CatmullRom.Transform(dst, m, src, b, xdraw.Over, nil)
}
