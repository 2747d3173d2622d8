// Package trash moves files into the user's trash instead of deleting them.
package trash

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"profiledeck/internal/logging"
)

// Trasher moves a file out of the active directory. Success or failure is
// the whole contract.
type Trasher interface {
	Trash(path string) error
}

// Func adapts a function to Trasher.
type Func func(path string) error

// Trash calls f(path).
func (f Func) Trash(path string) error { return f(path) }

type layout int

const (
	layoutFreedesktop layout = iota // files/ + info/*.trashinfo
	layoutFlat                      // ~/.Trash on macOS
)

// Bin is a trash directory on the local filesystem.
type Bin struct {
	dir    string
	layout layout
	now    func() time.Time
}

// New returns a Bin rooted at dir using the freedesktop.org layout. An empty
// dir selects the platform trash.
func New(dir string) (*Bin, error) {
	if dir != "" {
		return &Bin{dir: dir, layout: layoutFreedesktop, now: time.Now}, nil
	}
	return Default()
}

// Default returns the platform trash: ~/.Trash on macOS, otherwise
// $XDG_DATA_HOME/Trash (falling back to ~/.local/share/Trash).
func Default() (*Bin, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("locate home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return &Bin{dir: filepath.Join(home, ".Trash"), layout: layoutFlat, now: time.Now}, nil
	case "windows":
		return nil, errors.New("the Windows recycle bin is not supported; configure trash.dir")
	}
	data := os.Getenv("XDG_DATA_HOME")
	if data == "" {
		data = filepath.Join(home, ".local", "share")
	}
	return &Bin{dir: filepath.Join(data, "Trash"), layout: layoutFreedesktop, now: time.Now}, nil
}

// Dir returns the trash directory.
func (b *Bin) Dir() string { return b.dir }

// Trash moves path into the bin.
func (b *Bin) Trash(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(abs); err != nil {
		return err
	}

	filesDir := b.dir
	if b.layout == layoutFreedesktop {
		filesDir = filepath.Join(b.dir, "files")
		if err := os.MkdirAll(filepath.Join(b.dir, "info"), 0700); err != nil {
			return fmt.Errorf("create trash info dir: %w", err)
		}
	}
	if err := os.MkdirAll(filesDir, 0700); err != nil {
		return fmt.Errorf("create trash dir: %w", err)
	}

	lock := flock.New(filepath.Join(b.dir, ".profiledeck.lock"))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock trash: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logging.Get(logging.CategoryTrash).Warn("unlock trash: %v", err)
		}
	}()

	name, infoPath, err := b.reserve(filesDir, abs)
	if err != nil {
		return err
	}
	dest := filepath.Join(filesDir, name)

	if err := move(abs, dest); err != nil {
		if infoPath != "" {
			_ = os.Remove(infoPath)
		}
		return fmt.Errorf("move %s to trash: %w", abs, err)
	}
	logging.Get(logging.CategoryTrash).Info("trashed %s -> %s", abs, dest)
	return nil
}

// reserve picks a free name in filesDir. For the freedesktop layout the
// .trashinfo file is created exclusively to claim the name.
func (b *Bin) reserve(filesDir, abs string) (name, infoPath string, err error) {
	base := filepath.Base(abs)
	for i := 1; i < 10000; i++ {
		name = base
		if i > 1 {
			name = base + "." + strconv.Itoa(i)
		}
		if _, err := os.Lstat(filepath.Join(filesDir, name)); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", "", err
		}

		if b.layout == layoutFlat {
			return name, "", nil
		}

		infoPath = filepath.Join(b.dir, "info", name+".trashinfo")
		f, err := os.OpenFile(infoPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("create trash info: %w", err)
		}
		_, werr := fmt.Fprintf(f, "[Trash Info]\nPath=%s\nDeletionDate=%s\n",
			(&url.URL{Path: abs}).EscapedPath(), b.now().Format("2006-01-02T15:04:05"))
		cerr := f.Close()
		if werr != nil || cerr != nil {
			_ = os.Remove(infoPath)
			return "", "", fmt.Errorf("write trash info: %w", errors.Join(werr, cerr))
		}
		return name, infoPath, nil
	}
	return "", "", fmt.Errorf("no free trash name for %s", base)
}

// Replaced in tests.
var (
	rename = os.Rename
	remove = os.Remove
)

// move renames src to dst, copying only when they sit on different
// filesystems. On failure nothing is left at dst.
func move(src, dst string) error {
	err := rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}
	if cerr := copyFile(src, dst); cerr != nil {
		_ = remove(dst)
		return errors.Join(err, cerr)
	}
	if rerr := remove(src); rerr != nil {
		_ = remove(dst)
		return rerr
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("cannot copy non-regular file %s", src)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
