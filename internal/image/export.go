package imagepkg

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

var pngEncoder = png.Encoder{CompressionLevel: png.DefaultCompression}

// EncodePNG encodes img. The encoder is deterministic, so identical
// renders encode to identical bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := pngEncoder.Encode(buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportAtResolution renders at PreviewTarget scaled by k and returns PNG
// bytes. Passing the transform used for the preview reproduces the
// preview's crop at k times the resolution.
func ExportAtResolution(k int, source *SourceImage, frame *FrameAsset, t Transform, text *TextOverlay) ([]byte, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: scale %d", ErrRenderUnavailable, k)
	}
	img, err := Render(PreviewTarget.Scale(k), source, frame, t, text)
	if err != nil {
		return nil, err
	}
	return EncodePNG(img)
}
