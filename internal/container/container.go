// Package container opens the xlsx ZIP container and serves its parts.
//
// Files above MmapThreshold are memory-mapped so cold parts never
// enter the heap; smaller files and byte/stream sources are held in a
// single buffer. Either way the central directory is read once and
// parts are addressed by exact name.
package container

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/mmap"
)

// MmapThreshold is the file size above which Open memory-maps the
// container instead of buffering it.
const MmapThreshold = 10 * 1024 * 1024

// Required entries of a structurally valid workbook container.
var requiredEntries = []string{
	"[Content_Types].xml",
	"xl/workbook.xml",
}

var (
	ErrNotFound     = errors.New("file not found")
	ErrCorrupt      = errors.New("corrupt container")
	ErrMissingEntry = errors.New("missing required entry")
	ErrNoPart       = errors.New("part not found")
)

// Handle is read-only access to one container. It is safe for
// concurrent part reads.
type Handle struct {
	zr    *zip.Reader
	size  int64
	mm    *mmap.ReaderAt // set when memory-mapped
	buf   []byte         // set when buffered
	parts map[string]*zip.File
}

// Open opens a container file, memory-mapping it when it exceeds
// MmapThreshold.
func Open(path string) (*Handle, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}

	if fi.Size() > MmapThreshold {
		mm, err := mmap.Open(path)
		if err != nil {
			return nil, fmt.Errorf("mapping %s: %w", path, err)
		}
		h, err := newHandle(mm, int64(mm.Len()))
		if err != nil {
			mm.Close()
			return nil, err
		}
		h.mm = mm
		return h, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromBytes(data)
}

// FromBytes opens a container held in memory. The handle keeps a
// reference to data; callers must not mutate it.
func FromBytes(data []byte) (*Handle, error) {
	h, err := newHandle(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	h.buf = data
	return h, nil
}

// FromReader buffers r fully and opens it. Used for stdin and other
// non-seekable sources.
func FromReader(r io.Reader) (*Handle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return FromBytes(data)
}

func newHandle(ra io.ReaderAt, size int64) (*Handle, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	parts := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		parts[f.Name] = f
	}
	return &Handle{zr: zr, size: size, parts: parts}, nil
}

// Validate checks that the container holds every required workbook
// entry.
func (h *Handle) Validate() error {
	for _, name := range requiredEntries {
		if _, ok := h.parts[name]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingEntry, name)
		}
	}
	return nil
}

// Mapped reports whether the container is memory-mapped.
func (h *Handle) Mapped() bool { return h.mm != nil }

// Size returns the container size in bytes.
func (h *Handle) Size() int64 { return h.size }

// Has reports whether the named part exists.
func (h *Handle) Has(name string) bool {
	_, ok := h.parts[name]
	return ok
}

// Parts lists part names in central directory order.
func (h *Handle) Parts() []string {
	names := make([]string, 0, len(h.zr.File))
	for _, f := range h.zr.File {
		names = append(names, f.Name)
	}
	return names
}

// Part decompresses the named part fully.
func (h *Handle) Part(name string) ([]byte, error) {
	rc, err := h.PartReader(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrCorrupt, name, err)
	}
	return data, nil
}

// PartReader streams the named part. Row streaming uses this so a
// sheet is never decompressed whole.
func (h *Handle) PartReader(name string) (io.ReadCloser, error) {
	f, ok := h.parts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPart, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrCorrupt, name, err)
	}
	return rc, nil
}

// File exposes the raw archive entry for byte-for-byte copying into a
// new container.
func (h *Handle) File(name string) (*zip.File, bool) {
	f, ok := h.parts[name]
	return f, ok
}

// Close releases the mapping, if any. Part readers obtained earlier
// must not be used afterwards.
func (h *Handle) Close() error {
	if h.mm != nil {
		err := h.mm.Close()
		h.mm = nil
		return err
	}
	return nil
}
