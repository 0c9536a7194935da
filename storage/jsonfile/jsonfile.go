package jsonfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ichigozero/gtdkit/tasker/storage"
)

type store struct {
	dir     string
	rename  func(oldpath, newpath string) error
	syncDir func(dir string) error
}

// NewStore keeps every document as <dir>/<kind>.json.
func NewStore(dir string) (storage.Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("data directory is required")
	}
	return &store{dir: dir, rename: os.Rename, syncDir: syncDir}, nil
}

func (s *store) path(kind storage.Kind) string {
	return filepath.Join(s.dir, string(kind)+".json")
}

func (s *store) Load(kind storage.Kind) ([]byte, error) {
	data, err := os.ReadFile(s.path(kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Save writes to a temp file in the same directory and renames it over the
// document, so a crash mid-write never leaves a truncated document behind.
func (s *store) Save(kind storage.Kind, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	path := s.path(kind)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := s.rename(tmpName, path); err != nil {
		return err
	}
	committed = true

	// The new document is in place once the rename succeeds; the directory
	// fsync only hardens it against power loss, so its failure is not
	// reported as a failed save.
	_ = s.syncDir(s.dir)
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	// Some platforms refuse fsync on directories.
	if err := d.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) {
		return err
	}
	return nil
}
