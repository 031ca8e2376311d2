// Package atomicfile implements a directory-as-file abstraction with a
// lock-free compare-and-swap write path. A logical value lives as a
// directory whose children are versioned snapshots; readers always see
// a complete, consistent version and writers race via the filesystem's
// own atomic link-create-if-absent primitive rather than any external
// lock.
package atomicfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ark-builders/ark/internal/metrics"
)

// versionWidth is the zero-padded decimal width of the version component
// of a child filename, wide enough that lexical and numeric order agree
// for the lifetime of any realistic directory.
const versionWidth = 20

// ErrContention is returned internally by compareAndSwap when another
// writer won the race for the next version; Modify/ModifyJSON retry on
// this error and never surface it to the caller.
var ErrContention = errors.New("atomicfile: contention")

// NameFunc returns the machine id embedded in child filenames. It is
// satisfied by *appid.Provider; accepting it as a function keeps this
// package free of a hard dependency on appid.
type NameFunc func() (string, error)

// File is an open handle to an AtomicFile directory.
type File struct {
	dir      string
	tmpDir   string
	nameFunc NameFunc
}

// Open ensures dir exists and returns a handle to it. tmpDir holds
// in-flight temp files before they are committed via rename; it must
// live on the same filesystem volume as dir so the final rename is
// atomic. If tmpDir is empty, a ".tmp" sibling of dir is used.
func Open(dir string, nameFunc NameFunc, tmpDir string) (*File, error) {
	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return nil, fmt.Errorf("atomicfile: %s exists and is not a directory", dir)
	case err != nil && !os.IsNotExist(err):
		return nil, fmt.Errorf("atomicfile: stat %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("atomicfile: mkdir %s: %w", dir, err)
	}

	if tmpDir == "" {
		tmpDir = filepath.Join(filepath.Dir(dir), ".tmp")
	}
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("atomicfile: mkdir %s: %w", tmpDir, err)
	}

	return &File{dir: dir, tmpDir: tmpDir, nameFunc: nameFunc}, nil
}

// Dir returns the directory this handle wraps.
func (f *File) Dir() string { return f.dir }

// View is an immutable snapshot of an AtomicFile's state as observed by
// Load.
type View struct {
	Version int64
	path    string // empty if Version == 0
}

// Exists reports whether the view has readable content (version > 0).
func (v View) Exists() bool { return v.path != "" }

// Load scans the directory and returns a view of the child with the
// greatest version. An empty directory yields version 0.
func (f *File) Load() (View, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return View{}, fmt.Errorf("atomicfile: readdir %s: %w", f.dir, err)
	}

	var best View
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		version, ok := parseVersion(e.Name())
		if !ok {
			continue
		}
		if version > best.Version {
			best = View{Version: version, path: filepath.Join(f.dir, e.Name())}
		}
	}
	return best, nil
}

// ReadContent reads the bytes of the child selected by view. It returns
// a nil slice and a nil error when the view has no content.
func (f *File) ReadContent(view View) ([]byte, error) {
	if !view.Exists() {
		return nil, nil
	}
	b, err := os.ReadFile(view.path)
	if err != nil {
		return nil, fmt.Errorf("atomicfile: read %s: %w", view.path, err)
	}
	return b, nil
}

// tempHandle is a writable handle to a file outside the AtomicFile
// directory. If Commit is never called, Close removes the temp file.
type tempHandle struct {
	*os.File
	path      string
	committed bool
}

// Close flushes and closes the temp file, fsyncing it, and removes it
// from disk unless it has been committed via compareAndSwap.
func (t *tempHandle) Close() error {
	err := t.File.Sync()
	closeErr := t.File.Close()
	if err == nil {
		err = closeErr
	}
	if !t.committed {
		os.Remove(t.path)
	}
	return err
}

// makeTemp creates a new file in the AtomicFile's temp directory with a
// random nonce in its name.
func (f *File) makeTemp() (*tempHandle, error) {
	nonce := uuid.NewString()
	path := filepath.Join(f.tmpDir, nonce+".tmp")
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("atomicfile: create temp %s: %w", path, err)
	}
	return &tempHandle{File: fh, path: path}, nil
}

// compareAndSwap attempts to commit temp as version view.Version+1. The
// true race-resolution point is os.Link against a deterministic
// reservation filename: Link fails with EEXIST if another writer has
// already claimed that version, which a bare rename-over-existing would
// not detect (POSIX rename silently clobbers). On success the
// reservation is renamed to its final display name and old children are
// garbage-collected.
func (f *File) compareAndSwap(view View, temp *tempHandle, gc bool) error {
	next := view.Version + 1
	machineID, err := f.nameFunc()
	if err != nil {
		return fmt.Errorf("atomicfile: machine id: %w", err)
	}
	nonce := uuid.NewString()

	reservation := filepath.Join(f.dir, reservationName(next))
	final := filepath.Join(f.dir, childName(next, machineID, nonce))

	if err := os.Link(temp.path, reservation); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrContention
		}
		return fmt.Errorf("atomicfile: link %s: %w", reservation, err)
	}

	// The reservation name is free again once a winner renames it to its
	// final name, so a writer holding a stale view can still link it;
	// re-scan to make sure version next has not already been committed.
	if latest, err := f.Load(); err != nil || latest.Version >= next {
		os.Remove(reservation)
		if err != nil {
			return err
		}
		return ErrContention
	}

	if err := os.Rename(reservation, final); err != nil {
		os.Remove(reservation)
		return fmt.Errorf("atomicfile: rename %s: %w", reservation, err)
	}

	temp.committed = true
	os.Remove(temp.path)

	if gc {
		f.garbageCollect(view.Version)
	}
	return nil
}

// garbageCollect removes children with version <= upTo. Failures are
// ignored: compaction is best-effort and never blocks a writer.
func (f *File) garbageCollect(upTo int64) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		version, ok := parseVersion(e.Name())
		if !ok || version > upTo {
			continue
		}
		os.Remove(filepath.Join(f.dir, e.Name()))
	}
}

// Modify loads the current view, applies op to its bytes, and commits
// the result, retrying indefinitely on contention. Non-contention
// errors are returned immediately.
func (f *File) Modify(op func(current []byte) ([]byte, error)) error {
	start := time.Now()
	retries := 0
	for {
		view, err := f.Load()
		if err != nil {
			return err
		}
		current, err := f.ReadContent(view)
		if errors.Is(err, fs.ErrNotExist) {
			// A concurrent writer committed a newer version and compacted
			// this one away between Load and the read; start over.
			retries++
			continue
		}
		if err != nil {
			return err
		}

		next, err := op(current)
		if err != nil {
			return err
		}

		temp, err := f.makeTemp()
		if err != nil {
			return err
		}
		if _, err := temp.Write(next); err != nil {
			temp.Close()
			return fmt.Errorf("atomicfile: write temp: %w", err)
		}

		err = f.compareAndSwap(view, temp, true)
		temp.Close()
		if err == nil {
			metrics.ObserveAtomicFileModify(f.dir, retries, time.Since(start))
			return nil
		}
		if errors.Is(err, ErrContention) {
			retries++
			continue
		}
		return err
	}
}

// ModifyJSON is Modify specialized for JSON-encoded values: op receives
// the decoded current value (nil if the view has no content yet) and
// returns the next value to persist.
func ModifyJSON[T any](f *File, op func(current *T) (*T, error)) error {
	return f.Modify(func(current []byte) ([]byte, error) {
		var decoded *T
		if len(current) > 0 {
			decoded = new(T)
			if err := jsonUnmarshal(current, decoded); err != nil {
				return nil, fmt.Errorf("atomicfile: decode json: %w", err)
			}
		}

		next, err := op(decoded)
		if err != nil {
			return nil, err
		}

		return jsonMarshal(next)
	})
}

// Close is a no-op retained for symmetry with Open; AtomicFile holds no
// long-lived resources beyond the directory itself.
func (f *File) Close() error { return nil }

// Destroy deletes the AtomicFile directory and all its children.
func (f *File) Destroy() error {
	if err := os.RemoveAll(f.dir); err != nil {
		return fmt.Errorf("atomicfile: remove %s: %w", f.dir, err)
	}
	return nil
}

func reservationName(version int64) string {
	return fmt.Sprintf("%0*d.reserve", versionWidth, version)
}

func childName(version int64, machineID, nonce string) string {
	return fmt.Sprintf("%0*d_%s_%s", versionWidth, version, machineID, nonce)
}

// parseVersion extracts the version prefix from a child filename. Files
// that don't match the <version>_<machineId>_<nonce> shape (including
// stray reservation files left behind by a crashed writer) are ignored.
func parseVersion(name string) (int64, bool) {
	if strings.HasSuffix(name, ".reserve") || strings.HasSuffix(name, ".tmp") {
		return 0, false
	}
	parts := strings.SplitN(name, "_", 3)
	if len(parts) != 3 {
		return 0, false
	}
	v, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || v < 1 {
		return 0, false
	}
	return v, true
}
