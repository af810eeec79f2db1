package vfs

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// OSDir is a Dir backed by a real directory on the host filesystem.
type OSDir struct {
	path string
}

// NewOSDir opens dir (creating it if necessary) as an OSDir.
func NewOSDir(dir string) (*OSDir, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "vfs: mkdir %s", dir)
	}
	return &OSDir{path: dir}, nil
}

func (d *OSDir) full(name string) string {
	return filepath.Join(d.path, name)
}

func (d *OSDir) Open(name string) (File, error) {
	f, err := os.OpenFile(d.full(name), os.O_RDWR, 0644)
	if os.IsNotExist(err) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, errors.Wrapf(err, "vfs: open %s", name)
	}
	return &osFile{f: f}, nil
}

func (d *OSDir) Create(name string) (File, error) {
	f, err := os.OpenFile(d.full(name), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if os.IsExist(err) {
		return nil, ErrExist
	}
	if err != nil {
		return nil, errors.Wrapf(err, "vfs: create %s", name)
	}
	return &osFile{f: f}, nil
}

func (d *OSDir) Unlink(name string) (bool, error) {
	err := os.Remove(d.full(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "vfs: unlink %s", name)
	}
	return true, nil
}

func (d *OSDir) Rename(oldname, newname string) error {
	if err := os.Rename(d.full(oldname), d.full(newname)); err != nil {
		return errors.Wrapf(err, "vfs: rename %s -> %s", oldname, newname)
	}
	return nil
}

func (d *OSDir) List() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, errors.Wrapf(err, "vfs: list %s", d.path)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func (d *OSDir) Cd(subdir string) (Dir, error) {
	return NewOSDir(d.full(subdir))
}

// osFile adapts *os.File to the File interface. The three-way origin enum
// is translated to io.Seeker's whence values here so the rest of the engine
// never imports "io" just to seek.
type osFile struct {
	f *os.File
}

func (o *osFile) Read(p []byte) (int, error)  { return o.f.Read(p) }
func (o *osFile) Write(p []byte) (int, error) { return o.f.Write(p) }

func (o *osFile) Seek(offset int64, origin SeekOrigin) (int64, error) {
	var whence int
	switch origin {
	case SeekStart:
		whence = io.SeekStart
	case SeekCurrent:
		whence = io.SeekCurrent
	case SeekEnd:
		whence = io.SeekEnd
	default:
		return 0, errors.Newf("vfs: invalid seek origin %d", origin)
	}
	return o.f.Seek(offset, whence)
}

func (o *osFile) Sync() error {
	return o.f.Sync()
}

func (o *osFile) Len() (int64, error) {
	fi, err := o.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (o *osFile) ReadAll() ([]byte, error) {
	cur, err := o.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	defer o.f.Seek(cur, io.SeekStart)

	if _, err := o.f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(o.f)
}

func (o *osFile) Close() error {
	return o.f.Close()
}
