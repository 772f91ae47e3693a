package files

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"iaset/internal/platform/logger"
	dErrors "iaset/pkg/domain-errors"
)

type StoreSuite struct {
	suite.Suite
	root  string
	store *Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.root = s.T().TempDir()
	s.store = NewStore(s.root, nil, logger.New())
}

func (s *StoreSuite) TestSaveBehavior() {
	ctx := context.Background()

	s.Run("stores a file and returns its public path", func() {
		path, err := s.store.Save(ctx, &Upload{Name: "foto.png", Size: 4, Bytes: []byte("data")}, CategoryPhotos)
		s.Require().NoError(err)
		s.True(strings.HasPrefix(path, "/uploads/photos/"))
		s.True(strings.HasSuffix(path, ".png"))

		onDisk := filepath.Join(s.root, CategoryPhotos, filepath.Base(path))
		data, err := os.ReadFile(onDisk)
		s.Require().NoError(err)
		s.Equal([]byte("data"), data)
	})

	s.Run("nil upload means no document provided", func() {
		path, err := s.store.Save(ctx, nil, CategoryCertidoes)
		s.Require().NoError(err)
		s.Empty(path)
	})

	s.Run("creates the category directory idempotently", func() {
		_, err := s.store.Save(ctx, &Upload{Name: "a.pdf", Size: 1, Bytes: []byte("x")}, CategoryDocumentos)
		s.Require().NoError(err)
		_, err = s.store.Save(ctx, &Upload{Name: "b.pdf", Size: 1, Bytes: []byte("y")}, CategoryDocumentos)
		s.Require().NoError(err)
	})
}

func (s *StoreSuite) TestSizeLimit() {
	ctx := context.Background()

	s.Run("rejects oversized files before writing", func() {
		up := &Upload{Name: "big.pdf", Size: MaxFileSize + 1, Bytes: nil}
		_, err := s.store.Save(ctx, up, CategoryCertidoes)
		s.Require().ErrorIs(err, dErrors.New(dErrors.CodePayloadTooLarge, ""))

		entries, readErr := os.ReadDir(s.root)
		s.Require().NoError(readErr)
		s.Empty(entries, "nothing should touch disk for an oversized upload")
	})

	s.Run("accepts a file at the exact limit", func() {
		up := &Upload{Name: "edge.pdf", Size: MaxFileSize, Bytes: make([]byte, 8)}
		_, err := s.store.Save(ctx, up, CategoryCertidoes)
		s.Require().NoError(err)
	})
}

func (s *StoreSuite) TestTimestampSaltedNames() {
	ctx := context.Background()

	// Pin distinct timestamps so the same content lands under distinct names.
	base := time.Now()
	s.store.now = func() time.Time { return base }
	first, err := s.store.Save(ctx, &Upload{Name: "same.pdf", Size: 4, Bytes: []byte("same")}, CategoryPhotos)
	s.Require().NoError(err)

	s.store.now = func() time.Time { return base.Add(5 * time.Millisecond) }
	second, err := s.store.Save(ctx, &Upload{Name: "same.pdf", Size: 4, Bytes: []byte("same")}, CategoryPhotos)
	s.Require().NoError(err)

	s.NotEqual(first, second)

	for _, p := range []string{first, second} {
		_, statErr := os.Stat(filepath.Join(s.root, CategoryPhotos, filepath.Base(p)))
		s.Require().NoError(statErr, "both files must be independently retrievable")
	}
}
