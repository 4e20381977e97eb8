package imagepkg

import (
	"errors"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	MinQRSize     = 64
	MaxQRSize     = 2048
	DefaultQRSize = 400
)

// GenerateQRPNG returns PNG bytes of a QR code encoding a ticket code.
// size is clamped to [MinQRSize, MaxQRSize].
func GenerateQRPNG(text string, size int) ([]byte, error) {
	if text == "" {
		return nil, errors.New("empty qr payload")
	}
	switch {
	case size < MinQRSize:
		size = MinQRSize
	case size > MaxQRSize:
		size = MaxQRSize
	}
	return qrcode.Encode(text, qrcode.Medium, size)
}
