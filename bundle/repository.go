package bundle

import (
	"bytes"
	"os"
	"path/filepath"

	"konutpricer/core/model"
	kperrors "konutpricer/pkg/errors"
)

// Repository stores and retrieves training bundles. Implementations
// must write atomically: a failed Save may never leave a partial bundle
// where Load can see it.
type Repository interface {
	Save(b *Bundle) error
	Load() (*Bundle, error)
}

// FileRepository persists the bundle as a gob stream on disk, writing to
// a temporary file and renaming into place.
type FileRepository struct {
	Path string
}

// NewFileRepository creates a repository at the given path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{Path: path}
}

// Save encodes and atomically replaces the bundle file.
func (r *FileRepository) Save(b *Bundle) (err error) {
	defer kperrors.Recover(&err, "FileRepository.Save")
	if b == nil {
		return kperrors.NewValueError("FileRepository.Save", "nil bundle")
	}

	if dir := filepath.Dir(r.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return kperrors.Wrap(err, "FileRepository.Save")
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.Path), filepath.Base(r.Path)+".tmp*")
	if err != nil {
		return kperrors.Wrap(err, "FileRepository.Save")
	}
	defer os.Remove(tmp.Name())

	if err := model.SaveModelToWriter(b, tmp); err != nil {
		tmp.Close()
		return kperrors.Wrap(err, "FileRepository.Save")
	}
	if err := tmp.Close(); err != nil {
		return kperrors.Wrap(err, "FileRepository.Save")
	}
	if err := os.Rename(tmp.Name(), r.Path); err != nil {
		return kperrors.Wrap(err, "FileRepository.Save")
	}
	return nil
}

// Load decodes the bundle file.
func (r *FileRepository) Load() (_ *Bundle, err error) {
	defer kperrors.Recover(&err, "FileRepository.Load")

	f, err := os.Open(r.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, kperrors.NewModelError("FileRepository.Load", "bundle not found at "+r.Path, kperrors.ErrNoModel)
		}
		return nil, kperrors.Wrap(err, "FileRepository.Load")
	}
	defer f.Close()

	var b Bundle
	if err := model.LoadModelFromReader(&b, f); err != nil {
		return nil, kperrors.Wrap(err, "FileRepository.Load")
	}
	return &b, nil
}

// MemoryRepository keeps the encoded bundle in memory. It round-trips
// through gob so tests exercise the same encoding path as disk storage.
type MemoryRepository struct {
	data []byte
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Save encodes the bundle into the in-memory buffer.
func (r *MemoryRepository) Save(b *Bundle) (err error) {
	defer kperrors.Recover(&err, "MemoryRepository.Save")
	if b == nil {
		return kperrors.NewValueError("MemoryRepository.Save", "nil bundle")
	}
	var buf bytes.Buffer
	if err := model.SaveModelToWriter(b, &buf); err != nil {
		return kperrors.Wrap(err, "MemoryRepository.Save")
	}
	r.data = buf.Bytes()
	return nil
}

// Load decodes the stored bundle.
func (r *MemoryRepository) Load() (_ *Bundle, err error) {
	defer kperrors.Recover(&err, "MemoryRepository.Load")
	if len(r.data) == 0 {
		return nil, kperrors.NewModelError("MemoryRepository.Load", "no bundle stored", kperrors.ErrNoModel)
	}
	var b Bundle
	if err := model.LoadModelFromReader(&b, bytes.NewReader(r.data)); err != nil {
		return nil, kperrors.Wrap(err, "MemoryRepository.Load")
	}
	return &b, nil
}
