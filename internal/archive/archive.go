// Package archive keeps the raw platform payloads a score was computed from,
// so metrics can be recomputed after a calculator change without refetching.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/darescore/dare/pkg/platform"
)

// ErrNotFound is returned when no payload is archived for the key.
var ErrNotFound = errors.New("archived payload not found")

// Storage abstracts blob storage for raw payload envelopes. Each candidate
// has at most one archived payload per platform; a put replaces it.
type Storage interface {
	PutPayload(ctx context.Context, candidateID string, p platform.Platform, data []byte) error
	GetPayload(ctx context.Context, candidateID string, p platform.Platform) ([]byte, error)
}

// Key is the object key of a payload, shared by every backend.
func Key(candidateID string, p platform.Platform) string {
	return candidateID + "/payloads/" + string(p) + ".json"
}

// Put encodes payload into a platform-tagged envelope and archives it.
func Put(ctx context.Context, s Storage, candidateID string, payload platform.Payload) error {
	data, err := platform.EncodeEnvelope(payload)
	if err != nil {
		return err
	}
	return s.PutPayload(ctx, candidateID, payload.Platform(), data)
}

// Get reads and decodes the archived payload of candidateID on p.
func Get(ctx context.Context, s Storage, candidateID string, p platform.Platform) (platform.Payload, error) {
	data, err := s.GetPayload(ctx, candidateID, p)
	if err != nil {
		return nil, err
	}
	payload, err := platform.DecodeEnvelope(data)
	if err != nil {
		return nil, fmt.Errorf("archived %s payload: %w", p, err)
	}
	return payload, nil
}

// LocalStorage implements Storage on the local filesystem. Useful for
// development, the CLI and tests.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a LocalStorage rooted at baseDir.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

func (s *LocalStorage) path(candidateID string, p platform.Platform) string {
	return filepath.Join(s.BaseDir, filepath.FromSlash(Key(candidateID, p)))
}

func (s *LocalStorage) PutPayload(_ context.Context, candidateID string, p platform.Platform, data []byte) error {
	path := s.path(candidateID, p)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	// Write then rename so readers never see a partial file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func (s *LocalStorage) GetPayload(_ context.Context, candidateID string, p platform.Platform) ([]byte, error) {
	data, err := os.ReadFile(s.path(candidateID, p))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", Key(candidateID, p), ErrNotFound)
	}
	return data, err
}
