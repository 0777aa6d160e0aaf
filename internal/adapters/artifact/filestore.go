package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/okian/crisk/internal/domain/estimator"
)

const (
	pointerFile    = "current.json"
	versionsDir    = "versions"
	modelFile      = "model.json"
	schemaFile     = "schema.json"
	backgroundFile = "background.json"
	metaFile       = "meta.json"
)

type pointer struct {
	Version string `json:"version"`
}

// FileStore keeps each version of the triple in its own directory and names
// the live one through a pointer file replaced by rename. A version directory
// is invisible to readers until the pointer lands, so a failed commit leaves
// at most an orphan directory behind.
type FileStore struct {
	dir       string
	versionFn func() string
	now       func() time.Time
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string, opts ...Option) (*FileStore, error) {
	s := &FileStore{
		dir:       dir,
		versionFn: uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(filepath.Join(dir, versionsDir), 0o755); err != nil {
		return nil, &IOError{Op: "mkdir", Path: dir, Err: err}
	}
	return s, nil
}

// Commit persists snap as a new version and swings the pointer to it.
func (s *FileStore) Commit(ctx context.Context, snap *Snapshot) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("commit cancelled: %w", err)
	}

	version := snap.Version
	if version == "" {
		version = s.versionFn()
	}
	meta := snap.Meta
	if meta.TrainedAt.IsZero() {
		meta.TrainedAt = s.now().UTC()
	}

	dir := filepath.Join(s.dir, versionsDir, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &IOError{Op: "mkdir", Path: dir, Err: err}
	}

	modelRaw, err := estimator.MarshalEnsemble(snap.Ensemble)
	if err != nil {
		return "", fmt.Errorf("encode ensemble: %w", err)
	}
	files := []struct {
		name string
		data any
		raw  []byte
	}{
		{name: modelFile, raw: modelRaw},
		{name: schemaFile, data: snap.Schema},
		{name: backgroundFile, data: snap.Background},
		{name: metaFile, data: meta},
	}
	for _, f := range files {
		raw := f.raw
		if raw == nil {
			if raw, err = json.Marshal(f.data); err != nil {
				return "", fmt.Errorf("encode %s: %w", f.name, err)
			}
		}
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return "", &IOError{Op: "write", Path: path, Err: err}
		}
	}

	if err := s.writePointer(version); err != nil {
		return "", err
	}

	snap.Version = version
	snap.Meta = meta
	return version, nil
}

// Load decodes the snapshot the pointer names and checks the triple is
// internally consistent.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load cancelled: %w", err)
	}

	version, err := s.readPointer()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(s.dir, versionsDir, version)

	modelRaw, err := s.readFile(filepath.Join(dir, modelFile))
	if err != nil {
		return nil, err
	}
	ens, err := estimator.UnmarshalEnsemble(modelRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, modelFile, err)
	}

	snap := &Snapshot{Version: version, Ensemble: ens}
	if err := s.readJSON(filepath.Join(dir, schemaFile), &snap.Schema); err != nil {
		return nil, err
	}
	if err := s.readJSON(filepath.Join(dir, backgroundFile), &snap.Background); err != nil {
		return nil, err
	}
	if err := s.readJSON(filepath.Join(dir, metaFile), &snap.Meta); err != nil {
		return nil, err
	}

	for _, row := range snap.Background {
		if len(row) != len(snap.Schema) {
			return nil, &SchemaMismatchError{
				SchemaWidth: len(snap.Schema),
				FoundWidth:  len(row),
				Member:      "background",
			}
		}
	}
	return snap, nil
}

// CurrentVersion reports the committed version without decoding the triple.
func (s *FileStore) CurrentVersion(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("read cancelled: %w", err)
	}
	return s.readPointer()
}

func (s *FileStore) writePointer(version string) error {
	raw, err := json.Marshal(pointer{Version: version})
	if err != nil {
		return fmt.Errorf("encode pointer: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, pointerFile+".*")
	if err != nil {
		return &IOError{Op: "create", Path: s.dir, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &IOError{Op: "write", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &IOError{Op: "close", Path: tmpName, Err: err}
	}
	final := filepath.Join(s.dir, pointerFile)
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return &IOError{Op: "rename", Path: final, Err: err}
	}
	return nil
}

func (s *FileStore) readPointer() (string, error) {
	var p pointer
	path := filepath.Join(s.dir, pointerFile)
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNoModel
	}
	if err != nil {
		return "", &IOError{Op: "read", Path: path, Err: err}
	}
	if err := json.Unmarshal(raw, &p); err != nil || p.Version == "" {
		return "", fmt.Errorf("%w: %s", ErrCorrupt, pointerFile)
	}
	return p.Version, nil
}

func (s *FileStore) readFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return raw, nil
}

func (s *FileStore) readJSON(path string, v any) error {
	raw, err := s.readFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, filepath.Base(path), err)
	}
	return nil
}
