// AngelaMos | 2026
// store.go

package upload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/car-rental-backend/internal/config"
	"github.com/carterperez-dev/car-rental-backend/internal/core"
)

var extensions = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
}

// Store persists inline data URLs as files and serves them back under a
// URL prefix.
type Store struct {
	dir      string
	prefix   string
	maxBytes int
}

func NewStore(cfg config.UploadConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	return &Store{
		dir:      cfg.Dir,
		prefix:   "/" + strings.Trim(cfg.URLPrefix, "/"),
		maxBytes: cfg.MaxBytes,
	}, nil
}

func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// SaveDataURL decodes a base64 data URL and writes it to a new file. The
// returned value is the public URL path of the file.
func (s *Store) SaveDataURL(dataURL, namePrefix string) (string, error) {
	mime, payload, err := parseDataURL(dataURL)
	if err != nil {
		return "", err
	}

	ext, ok := extensions[mime]
	if !ok {
		return "", fmt.Errorf("unsupported upload type %q: %w", mime, core.ErrInvalidInput)
	}

	if s.maxBytes > 0 && base64.StdEncoding.DecodedLen(len(payload)) > s.maxBytes+2 {
		return "", fmt.Errorf("upload exceeds %d bytes: %w", s.maxBytes, core.ErrInvalidInput)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decode upload: %w", core.ErrInvalidInput)
	}

	if s.maxBytes > 0 && len(data) > s.maxBytes {
		return "", fmt.Errorf("upload exceeds %d bytes: %w", s.maxBytes, core.ErrInvalidInput)
	}

	name := fmt.Sprintf("%s-%s%s", sanitize(namePrefix), uuid.New().String(), ext)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o640); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}

	return path.Join(s.prefix, name), nil
}

// Remove deletes a file previously returned by SaveDataURL. Missing files
// are not an error.
func (s *Store) Remove(urlPath string) error {
	if !strings.HasPrefix(urlPath, s.prefix+"/") {
		return nil
	}

	name := path.Base(urlPath)
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

func (s *Store) Prefix() string {
	return s.prefix
}

func (s *Store) Handler() http.Handler {
	return http.StripPrefix(s.prefix, http.FileServer(http.Dir(s.dir)))
}

func parseDataURL(s string) (string, string, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", "", fmt.Errorf("not a data url: %w", core.ErrInvalidInput)
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", fmt.Errorf("malformed data url: %w", core.ErrInvalidInput)
	}

	mime, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return "", "", fmt.Errorf("data url must be base64: %w", core.ErrInvalidInput)
	}

	return strings.ToLower(mime), payload, nil
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
