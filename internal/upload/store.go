package upload

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/file"

	"github.com/joseph-ayodele/docinsight/constants"
	"github.com/joseph-ayodele/docinsight/internal/common"
)

// Document is one stored upload. Its storage is owned by a single request
// and must be released exactly once through Store.Release.
type Document struct {
	ID          string
	URL         string
	Filename    string // original client filename, informational only
	ContentType constants.ContentType
	Size        int64
	SHA256Hex   string
	StoredAt    time.Time

	release *sync.Once
}

// Store keeps uploads under BaseURL. Any afs scheme works: file:// for a
// local temp dir, mem:// in tests, or an object store.
type Store struct {
	fs       afs.Service
	baseURL  string
	maxBytes int64
	logger   *slog.Logger
}

func NewStore(cfg common.UploadConfig, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = constants.MaxUploadBytes
	}
	return &Store{
		fs:       afs.New(),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Save stores r under a request-unique name. Inputs larger than the
// configured limit are rejected with INVALID_UPLOAD.
func (s *Store) Save(ctx context.Context, filename string, ct constants.ContentType, r io.Reader) (Document, error) {
	start := time.Now()
	id := uuid.New().String()
	url := s.baseURL + "/upload-" + id + ct.Ext()

	h := sha256.New()
	var buf bytes.Buffer
	n, err := io.Copy(io.MultiWriter(&buf, h), io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		s.logger.Error("upload.read_error", "upload_id", id, "error", err)
		return Document{}, common.NewAppError(common.CodeInvalidUpload, "Could not read upload", err)
	}
	if n > s.maxBytes {
		s.logger.Warn("upload.too_large", "upload_id", id, "limit", s.maxBytes)
		return Document{}, common.NewAppError(common.CodeInvalidUpload, "File too large", common.ErrTooLarge)
	}

	if err := s.fs.Upload(ctx, url, file.DefaultFileOsMode, &buf); err != nil {
		s.logger.Error("upload.store_error", "upload_id", id, "error", err)
		return Document{}, common.NewAppError(common.CodeStorage, "store upload", err)
	}

	doc := Document{
		ID:          id,
		URL:         url,
		Filename:    filename,
		ContentType: ct,
		Size:        n,
		SHA256Hex:   hex.EncodeToString(h.Sum(nil)),
		StoredAt:    time.Now().UTC(),
		release:     &sync.Once{},
	}
	s.logger.Debug("upload.stored",
		"upload_id", id,
		"content_type", ct,
		"bytes", n,
		"sha256", doc.SHA256Hex,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

// Read returns the stored bytes.
func (s *Store) Read(ctx context.Context, doc Document) ([]byte, error) {
	data, err := s.fs.DownloadWithURL(ctx, doc.URL)
	if err != nil {
		return nil, common.NewAppError(common.CodeStorage, "read upload", err)
	}
	return data, nil
}

// Release deletes the stored object. Only the first call per document acts;
// later calls return nil.
func (s *Store) Release(ctx context.Context, doc Document) error {
	if doc.release == nil {
		return fmt.Errorf("release %s: %w", doc.ID, common.ErrInvalidInput)
	}
	var err error
	doc.release.Do(func() {
		// Cleanup must survive a cancelled request context.
		ctx := context.WithoutCancel(ctx)
		if derr := s.fs.Delete(ctx, doc.URL); derr != nil {
			s.logger.Error("upload.release_error", "upload_id", doc.ID, "error", derr)
			err = common.NewAppError(common.CodeStorage, "delete upload", derr)
			return
		}
		s.logger.Debug("upload.released", "upload_id", doc.ID)
	})
	return err
}

// Exists reports whether the stored object is still present.
func (s *Store) Exists(ctx context.Context, doc Document) (bool, error) {
	return s.fs.Exists(ctx, doc.URL)
}
