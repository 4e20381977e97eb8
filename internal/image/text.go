package imagepkg

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// TextOverlay is the participant name drawn on top of the frame. FontSize
// and GlowRadius are in reference preview pixels; Bottom is the baseline's
// distance from the bottom edge as a fraction of the target height.
type TextOverlay struct {
	Value      string      `json:"value"`
	Bottom     float64     `json:"bottom"`
	FontSize   float64     `json:"font_size"`
	Color      color.NRGBA `json:"-"`
	GlowColor  color.NRGBA `json:"-"`
	GlowRadius float64     `json:"glow_radius"`
}

// TextLayout is a TextOverlay resolved against a concrete target.
type TextLayout struct {
	FontSize   float64
	Baseline   float64
	GlowRadius float64
}

// TextMargin is the share of the target width kept clear on each side of
// the text.
const TextMargin = 0.05

// Layout scales the overlay to target. A value too wide for the reference
// preview is shrunk there first, so every target wraps it identically.
func (o TextOverlay) Layout(target RenderTarget) TextLayout {
	s := target.Factor()
	return TextLayout{
		FontSize:   o.fittedSize() * s,
		Baseline:   float64(target.Height) * (1 - o.Bottom),
		GlowRadius: o.GlowRadius * s,
	}
}

// fittedSize is FontSize, reduced until the value fits between the margins
// of the reference preview width.
func (o TextOverlay) fittedSize() float64 {
	size := o.FontSize
	if size <= 0 || strings.TrimSpace(o.Value) == "" {
		return size
	}
	avail := float64(ReferencePreviewWidth) * (1 - 2*TextMargin)
	for i := 0; i < 4; i++ {
		face, err := newFace(size)
		if err != nil {
			return size
		}
		w := float64(font.MeasureString(face, o.Value)) / 64
		face.Close()
		if w <= avail {
			return size
		}
		size *= avail / w
	}
	return size
}

var boldFont = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(gobold.TTF)
})

func newFace(size float64) (font.Face, error) {
	f, err := boldFont()
	if err != nil {
		return nil, fmt.Errorf("%w: parse font: %v", ErrRenderUnavailable, err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: font face: %v", ErrRenderUnavailable, err)
	}
	return face, nil
}

func drawText(dst *image.NRGBA, o TextOverlay, target RenderTarget) error {
	if strings.TrimSpace(o.Value) == "" {
		return nil
	}
	l := o.Layout(target)
	if l.FontSize <= 0 {
		return nil
	}
	face, err := newFace(l.FontSize)
	if err != nil {
		return err
	}
	defer face.Close()

	width := font.MeasureString(face, o.Value)
	dot := fixed.Point26_6{
		X: (fixed.I(target.Width) - width) / 2,
		Y: fixed.Int26_6(l.Baseline * 64),
	}

	if l.GlowRadius > 0 && o.GlowColor.A > 0 {
		glow := image.NewNRGBA(dst.Bounds())
		d := font.Drawer{Dst: glow, Src: image.NewUniform(o.GlowColor), Face: face, Dot: dot}
		d.DrawString(o.Value)
		// imaging.Blur takes a gaussian sigma; half the radius matches a CSS blur.
		blurred := imaging.Blur(glow, l.GlowRadius/2)
		draw.Draw(dst, dst.Bounds(), blurred, image.Point{}, draw.Over)
	}

	d := font.Drawer{Dst: dst, Src: image.NewUniform(o.Color), Face: face, Dot: dot}
	d.DrawString(o.Value)
	return nil
}
