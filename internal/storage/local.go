package storage

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/courseloom/scorm-backend/internal/logger"
	"github.com/courseloom/scorm-backend/internal/scorm"
)

const manifestFilename = "imsmanifest.xml"

// Store owns the physical content tree. Keys are opaque handles
// (one directory per package) handed back to the persistence layer as
// the package's content root.
type Store interface {
	// ExtractZip unpacks the archive under the key's directory.
	ExtractZip(ctx context.Context, zipPath string, key string) error
	// FindManifest locates imsmanifest.xml under the key: root first,
	// then a recursive descent for packages zipped inside a folder.
	FindManifest(key string) (string, error)
	Open(key, relPath string) (io.ReadCloser, error)
	Exists(key, relPath string) bool
	// Tree adapts one key's directory to the resolver's FileTree.
	Tree(key string) scorm.FileTree
	WriteFile(key, relPath string, data []byte) error
	// Remove deletes the key's whole directory tree.
	Remove(key string) error
	AbsPath(key, relPath string) (string, error)
}

type localStore struct {
	root string
	log  *logger.Logger
}

func NewLocalStore(root string, baseLog *logger.Logger) (Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("content root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create content root: %w", err)
	}
	return &localStore{root: root, log: baseLog.With("service", "LocalStore")}, nil
}

// safeJoin resolves relPath under the key's directory and refuses
// anything that escapes it.
func (s *localStore) safeJoin(key, relPath string) (string, error) {
	base := filepath.Join(s.root, filepath.FromSlash(key))
	full := filepath.Join(base, filepath.FromSlash(strings.TrimLeft(relPath, "/")))
	rel, err := filepath.Rel(base, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes content tree: %s", relPath)
	}
	return full, nil
}

func (s *localStore) ExtractZip(ctx context.Context, zipPath string, key string) error {
	rc, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer rc.Close()

	if len(rc.File) == 0 {
		return fmt.Errorf("archive is empty")
	}

	for _, f := range rc.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.extractOne(f, key); err != nil {
			return err
		}
	}
	s.log.Debug("Extracted package archive", "key", key, "entries", len(rc.File))
	return nil
}

func (s *localStore) extractOne(f *zip.File, key string) error {
	dest, err := s.safeJoin(key, f.Name)
	if err != nil {
		return err
	}
	if f.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	in, err := f.Open()
	if err != nil {
		return fmt.Errorf("read archive entry %s: %w", f.Name, err)
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return nil
}

func (s *localStore) FindManifest(key string) (string, error) {
	if s.Exists(key, manifestFilename) {
		return manifestFilename, nil
	}
	base := filepath.Join(s.root, filepath.FromSlash(key))
	found := ""
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if found != "" {
			return fs.SkipAll
		}
		if !d.IsDir() && d.Name() == manifestFilename {
			rel, relErr := filepath.Rel(base, path)
			if relErr != nil {
				return relErr
			}
			found = filepath.ToSlash(rel)
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("%s not found under %s", manifestFilename, key)
	}
	return found, nil
}

func (s *localStore) Open(key, relPath string) (io.ReadCloser, error) {
	full, err := s.safeJoin(key, relPath)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

func (s *localStore) Exists(key, relPath string) bool {
	full, err := s.safeJoin(key, relPath)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

func (s *localStore) Tree(key string) scorm.FileTree {
	return &keyTree{store: s, key: key}
}

type keyTree struct {
	store *localStore
	key   string
}

func (t *keyTree) Exists(relPath string) bool {
	return t.store.Exists(t.key, relPath)
}

func (s *localStore) WriteFile(key, relPath string, data []byte) error {
	full, err := s.safeJoin(key, relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

func (s *localStore) Remove(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("refusing to remove empty key")
	}
	base, err := s.safeJoin(key, ".")
	if err != nil {
		return err
	}
	return os.RemoveAll(base)
}

func (s *localStore) AbsPath(key, relPath string) (string, error) {
	full, err := s.safeJoin(key, relPath)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(full); err != nil {
		return "", err
	}
	return full, nil
}
