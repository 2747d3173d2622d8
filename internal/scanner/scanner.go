// Package scanner enumerates candidate profile files under a root directory.
package scanner

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"profiledeck/internal/logging"
)

// ScanError means the root itself cannot be enumerated.
type ScanError struct {
	Root string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Root, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// Warning records an entry that was skipped during enumeration.
type Warning struct {
	Path string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Path, w.Err)
}

// Scan is one enumeration pass over a root. It is not restartable: call
// Open again for a fresh pass.
type Scan struct {
	root string

	mu       sync.Mutex
	warnings []Warning
}

// Open checks that root is a readable directory and prepares a pass over it.
func Open(root string) (*Scan, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &ScanError{Root: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &ScanError{Root: root, Err: fmt.Errorf("not a directory")}
	}
	f, err := os.Open(root)
	if err != nil {
		return nil, &ScanError{Root: root, Err: err}
	}
	defer f.Close()
	if _, err := f.ReadDir(1); err != nil && err != io.EOF {
		return nil, &ScanError{Root: root, Err: err}
	}
	return &Scan{root: root}, nil
}

// Root returns the directory being scanned.
func (s *Scan) Root() string { return s.root }

// Files lazily yields every non-hidden regular file under the root in
// lexical order. Hidden files and hidden directories are skipped entirely.
// Entries that cannot be read are skipped and reported by Warnings.
func (s *Scan) Files(ctx context.Context) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.warn(path, ctxErr)
				return filepath.SkipAll
			}
			if err != nil {
				s.warn(path, err)
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if path != s.root && isHidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}

			if !s.readable(path, d) {
				return nil
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// Warnings returns the entries skipped so far.
func (s *Scan) Warnings() []Warning {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Warning, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// readable filters out non-regular entries and files we cannot open.
// Symlinks are followed so a link to a profile still counts.
func (s *Scan) readable(path string, d fs.DirEntry) bool {
	mode := d.Type()
	if mode&fs.ModeSymlink != 0 {
		info, err := os.Stat(path)
		if err != nil {
			s.warn(path, err)
			return false
		}
		mode = info.Mode().Type()
	}
	if !mode.IsRegular() {
		logging.ScanDebug("skipping non-regular entry %s (%s)", path, mode)
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		s.warn(path, err)
		return false
	}
	f.Close()
	return true
}

func (s *Scan) warn(path string, err error) {
	logging.Get(logging.CategoryScan).Warn("skipping %s: %v", path, err)
	s.mu.Lock()
	s.warnings = append(s.warnings, Warning{Path: path, Err: err})
	s.mu.Unlock()
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Collect runs a full pass and returns the candidates in discovery order.
func Collect(ctx context.Context, root string) ([]string, []Warning, error) {
	s, err := Open(root)
	if err != nil {
		return nil, nil, err
	}
	var paths []string
	for p := range s.Files(ctx) {
		paths = append(paths, p)
	}
	logging.Scan("scanned %s: %d candidates, %d skipped", root, len(paths), len(s.Warnings()))
	return paths, s.Warnings(), nil
}
