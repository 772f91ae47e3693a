// Package files persists uploaded documents on disk under content-addressed
// names. Writes are create-once; orphaned files from aborted registrations are
// left for an external janitor.
package files

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"iaset/internal/platform/metrics"
	dErrors "iaset/pkg/domain-errors"
)

// Document categories; each maps to a subfolder of the upload root.
const (
	CategoryPhotos     = "photos"
	CategoryCertidoes  = "certidoes"
	CategoryDocumentos = "documentos"
	CategoryDependents = "dependents"
)

// MaxFileSize is the upper bound for a single uploaded document.
const MaxFileSize = 2 << 20 // 2 MiB

// Upload is an in-memory file descriptor as received from a multipart form.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Bytes       []byte
}

// Store writes uploads below a root directory and hands back public paths.
type Store struct {
	root    string
	metrics *metrics.Metrics
	logger  *slog.Logger

	now func() time.Time
}

func NewStore(root string, m *metrics.Metrics, logger *slog.Logger) *Store {
	return &Store{
		root:    root,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Save persists one upload under the given category and returns its public
// path. A nil upload is not an error: callers treat an absent optional
// document as "no document provided" and get an empty path back.
func (s *Store) Save(ctx context.Context, up *Upload, category string) (string, error) {
	if up == nil {
		return "", nil
	}

	if up.Size > MaxFileSize {
		return "", dErrors.New(dErrors.CodePayloadTooLarge, "file exceeds the 2MB size limit")
	}

	dir := filepath.Join(s.root, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := s.hashedFilename(up.Name)
	if err := os.WriteFile(filepath.Join(dir, name), up.Bytes, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}

	s.metrics.IncrementFilesStored(category)
	s.logger.DebugContext(ctx, "file stored",
		"category", category,
		"name", name,
		"size", up.Size,
	)

	return "/uploads/" + category + "/" + name, nil
}

// hashedFilename derives a collision-resistant name from the original name
// salted with the current millisecond timestamp, keeping the extension.
// Two identically named uploads landing in the same millisecond can still
// collide; the entropy is accepted as-is.
func (s *Store) hashedFilename(originalName string) string {
	millis := strconv.FormatInt(s.now().UnixMilli(), 10)
	sum := md5.Sum([]byte(originalName + millis))
	return hex.EncodeToString(sum[:]) + filepath.Ext(originalName)
}
