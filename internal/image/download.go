package imagepkg

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"net/url"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/youruser/visualapp/internal/util"

	_ "golang.org/x/image/webp"
)

const (
	// MaxImageBytes caps how much of any single input is read.
	MaxImageBytes = 20 << 20
	// MaxSourcePixels caps the declared dimensions of an input before any
	// raster is allocated for it.
	MaxSourcePixels = 40_000_000

	minLevelSide = 16
)

// maxSourceSize is the export target at maximum zoom. A contain-fitted photo
// never needs more pixels than this at ExportScale, so larger inputs are
// reduced once when decoded.
var maxSourceSize = RenderTarget{
	Width:  int(math.Ceil(float64(ExportTarget.Width) * MaxZoom)),
	Height: int(math.Ceil(float64(ExportTarget.Height) * MaxZoom)),
}

// SourceImage is a decoded raster normalized to NRGBA with its origin at 0,0.
type SourceImage struct {
	Image  *image.NRGBA
	Width  int
	Height int
	Format string

	// levels[0] is Image, each following level half the previous one.
	levels []*image.NRGBA
}

func newSourceImage(img image.Image, format string) *SourceImage {
	// Clone rebases bounds to 0,0 so geometry can ignore img.Bounds().Min.
	nrgba := imaging.Clone(img)
	src := &SourceImage{
		Image:  nrgba,
		Width:  nrgba.Bounds().Dx(),
		Height: nrgba.Bounds().Dy(),
		Format: format,
		levels: []*image.NRGBA{nrgba},
	}
	for {
		prev := src.levels[len(src.levels)-1]
		w, h := prev.Bounds().Dx()/2, prev.Bounds().Dy()/2
		if w < minLevelSide || h < minLevelSide {
			break
		}
		src.levels = append(src.levels, imaging.Resize(prev, w, h, imaging.Lanczos))
	}
	return src
}

// level returns the smallest precomputed reduction of the photo that still
// covers w x h pixels, so drawing it never shrinks by more than half.
func (s *SourceImage) level(w, h float64) *image.NRGBA {
	for i := len(s.levels) - 1; i > 0; i-- {
		b := s.levels[i].Bounds()
		if float64(b.Dx()) >= w && float64(b.Dy()) >= h {
			return s.levels[i]
		}
	}
	return s.Image
}

// LoadImage decodes an image from a data URL, an http(s) URL, or a file path.
func LoadImage(ctx context.Context, source string) (*SourceImage, error) {
	name := describeSource(source)
	data, err := readSource(ctx, source)
	if err != nil {
		return nil, &DecodeError{Source: name, Err: err}
	}
	return decodeBytes(name, data)
}

// DecodeImage decodes an uploaded stream.
func DecodeImage(name string, r io.Reader) (*SourceImage, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return nil, &DecodeError{Source: name, Err: err}
	}
	if len(data) > MaxImageBytes {
		return nil, &DecodeError{Source: name, Err: errors.New("image too large")}
	}
	return decodeBytes(name, data)
}

func decodeBytes(name string, data []byte) (*SourceImage, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Source: name, Err: errors.New("empty input")}
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, &DecodeError{Source: name, Err: fmt.Errorf("unsupported content type %s", mt.String())}
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Source: name, Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &DecodeError{Source: name, Err: errors.New("zero sized image")}
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return nil, &DecodeError{Source: name, Err: fmt.Errorf("image is %dx%d, more than %d pixels", cfg.Width, cfg.Height, MaxSourcePixels)}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Source: name, Err: err}
	}
	b := img.Bounds()
	if b.Dx() > maxSourceSize.Width || b.Dy() > maxSourceSize.Height {
		img = imaging.Fit(img, maxSourceSize.Width, maxSourceSize.Height, imaging.Lanczos)
	}
	return newSourceImage(img, strings.TrimPrefix(mt.Extension(), ".")), nil
}

func readSource(ctx context.Context, source string) ([]byte, error) {
	switch {
	case strings.HasPrefix(source, "data:"):
		return parseDataURL(source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return util.GetBytes(ctx, source, MaxImageBytes)
	case source == "":
		return nil, errors.New("empty source")
	default:
		f, err := os.Open(source)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
		if err != nil {
			return nil, err
		}
		if len(data) > MaxImageBytes {
			return nil, errors.New("image too large")
		}
		return data, nil
	}
}

// parseDataURL handles data:[<mediatype>][;base64],<data>.
func parseDataURL(s string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data url")
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// some encoders drop the padding
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		return data, err
	}
	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return nil, err
	}
	return []byte(unescaped), nil
}

func describeSource(source string) string {
	if strings.HasPrefix(source, "data:") {
		return "data-url"
	}
	return source
}
