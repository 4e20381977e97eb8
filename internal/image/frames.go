package imagepkg

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/youruser/visualapp/internal/util"
)

// AssetCache stores raw frame bytes between processes.
type AssetCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// FrameLoader decodes frame assets once and hands the same *FrameAsset to
// every render. Raw bytes are also kept in an optional shared cache.
type FrameLoader struct {
	cache AssetCache

	mu     sync.Mutex
	frames map[string]*FrameAsset
}

func NewFrameLoader(cache AssetCache) *FrameLoader {
	return &FrameLoader{cache: cache, frames: make(map[string]*FrameAsset)}
}

// Load returns the decoded frame for source, which may be a URL, a data URL
// or a file path.
func (l *FrameLoader) Load(ctx context.Context, source string) (*FrameAsset, error) {
	l.mu.Lock()
	f, ok := l.frames[source]
	l.mu.Unlock()
	if ok {
		return f, nil
	}

	img, err := l.decode(ctx, source)
	if err != nil {
		return nil, err
	}
	f = &FrameAsset{Image: img.Image, Source: source}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.frames[source]; ok {
		return existing, nil
	}
	l.frames[source] = f
	return f, nil
}

func (l *FrameLoader) decode(ctx context.Context, source string) (*SourceImage, error) {
	if l.cache == nil || !isRemote(source) {
		return LoadImage(ctx, source)
	}

	log := logrus.WithField("frame", source)
	if data, err := l.cache.Get(ctx, source); err == nil && len(data) > 0 {
		img, err := DecodeImage(source, bytes.NewReader(data))
		if err == nil {
			return img, nil
		}
		log.WithError(err).Warn("cached frame is not decodable, refetching")
	}

	data, err := util.GetBytes(ctx, source, MaxImageBytes)
	if err != nil {
		return nil, &DecodeError{Source: source, Err: err}
	}
	img, err := DecodeImage(source, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := l.cache.Set(ctx, source, data); err != nil {
		log.WithError(err).Warn("could not cache frame")
	}
	return img, nil
}

// Forget drops a decoded frame and its shared raw bytes, e.g. after a
// campaign changes its artwork.
func (l *FrameLoader) Forget(ctx context.Context, source string) {
	l.mu.Lock()
	delete(l.frames, source)
	l.mu.Unlock()

	if l.cache == nil || !isRemote(source) {
		return
	}
	if err := l.cache.Delete(ctx, source); err != nil {
		logrus.WithError(err).WithField("frame", source).Warn("could not drop cached frame")
	}
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
