package storage

import (
	"bytes"
	"errors"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/youruser/visualapp/internal/util"
)

var ErrInvalidKey = errors.New("invalid storage key")

// FileStorage keeps exported visuals on local disk and serves them under
// a public base URL.
type FileStorage interface {
	Save(key string, data io.Reader) error
	Get(key string) (io.ReadCloser, error)
	Delete(key string) error
	Exists(key string) bool
	PublicURL(key string) string
}

type fileStorage struct {
	basePath string
	baseURL  string
}

func NewFileStorage(basePath, baseURL string) FileStorage {
	return &fileStorage{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}
}

// resolve rejects keys that would escape basePath.
func (s *fileStorage) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.basePath, filepath.FromSlash(clean)), nil
}

func (s *fileStorage) Save(key string, data io.Reader) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(fullPath, data)
}

func (s *fileStorage) Get(key string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(fullPath)
}

func (s *fileStorage) Delete(key string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	return os.Remove(fullPath)
}

func (s *fileStorage) Exists(key string) bool {
	fullPath, err := s.resolve(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullPath)
	return err == nil
}

func (s *fileStorage) PublicURL(key string) string {
	parts := strings.Split(strings.TrimPrefix(path.Clean("/"+key), "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.baseURL + "/" + strings.Join(parts, "/")
}

// SaveBytes is a convenience for in-memory payloads.
func SaveBytes(s FileStorage, key string, data []byte) error {
	return s.Save(key, bytes.NewReader(data))
}
