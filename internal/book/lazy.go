package book

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fuabioo/sheetq/internal/container"
	"github.com/fuabioo/sheetq/internal/sst"
	"github.com/fuabioo/sheetq/internal/styles"
)

// LazyWorkbook opens a container without parsing any sheet part.
// Only workbook metadata and the shared string index are read up
// front; sheets load on first use and rows can be streamed without
// loading at all.
type LazyWorkbook struct {
	handle  *container.Handle
	path    string
	strings *sst.Table
	metas   []sheetMeta
	parts   map[string]string // sheet name (folded) -> part name
	names   []DefinedName
	active  int

	stylesOnce sync.Once
	stylesReg  *styles.Registry
	stylesErr  error

	mu     sync.Mutex
	loaded map[string]*Sheet
}

// OpenLazy opens path for lazy access.
func OpenLazy(path string, opts ...OpenOption) (*LazyWorkbook, error) {
	if strings.ToLower(filepath.Ext(path)) != ".xlsx" {
		return nil, fmt.Errorf("%w: %s", ErrNotXlsx, path)
	}
	h, err := container.Open(path)
	if err != nil {
		return nil, err
	}
	lw, err := lazyFromContainer(h, applyOpenOptions(opts))
	if err != nil {
		h.Close()
		return nil, err
	}
	lw.path = path
	return lw, nil
}

// OpenLazyBytes opens an in-memory container for lazy access.
func OpenLazyBytes(data []byte, opts ...OpenOption) (*LazyWorkbook, error) {
	h, err := container.FromBytes(data)
	if err != nil {
		return nil, err
	}
	lw, err := lazyFromContainer(h, applyOpenOptions(opts))
	if err != nil {
		h.Close()
		return nil, err
	}
	return lw, nil
}

func lazyFromContainer(h *container.Handle, cfg openConfig) (*LazyWorkbook, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	lw := &LazyWorkbook{
		handle:  h,
		strings: sst.New(),
		parts:   make(map[string]string),
		loaded:  make(map[string]*Sheet),
	}

	if h.Has("xl/sharedStrings.xml") {
		data, err := h.Part("xl/sharedStrings.xml")
		if err != nil {
			return nil, err
		}
		// An unreadable string table degrades to an empty one so the
		// rest of the workbook stays reachable.
		if tbl, err := sst.Parse(data, cfg.stringCache); err == nil {
			lw.strings = tbl
		}
	}

	metas, activeTab, names, err := parseWorkbookPart(h)
	if err != nil {
		return nil, err
	}
	if len(metas) == 0 {
		return nil, fmt.Errorf("%w: workbook declares no sheets", container.ErrCorrupt)
	}
	rels, err := parseWorkbookRels(h)
	if err != nil {
		return nil, err
	}
	for _, m := range metas {
		for _, rel := range rels {
			if rel.ID == m.relID {
				lw.parts[strings.ToLower(m.name)] = resolveTarget(rel.Target)
				break
			}
		}
	}
	lw.metas = metas
	lw.names = names
	if activeTab >= 0 && activeTab < len(metas) {
		lw.active = activeTab
	}
	return lw, nil
}

// SheetNames lists sheets in tab order without touching their parts.
func (lw *LazyWorkbook) SheetNames() []string {
	names := make([]string, len(lw.metas))
	for i, m := range lw.metas {
		names[i] = m.name
	}
	return names
}

// Visibility reports a sheet's tab state.
func (lw *LazyWorkbook) Visibility(name string) (Visibility, error) {
	for _, m := range lw.metas {
		if strings.EqualFold(m.name, name) {
			return m.state, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrSheetNotFound, name)
}

// ActiveSheet returns the active sheet name.
func (lw *LazyWorkbook) ActiveSheet() string {
	return lw.metas[lw.active].name
}

// DefinedNames lists the workbook's named references.
func (lw *LazyWorkbook) DefinedNames() []DefinedName {
	out := make([]DefinedName, len(lw.names))
	copy(out, lw.names)
	return out
}

// StringCount returns the shared string count without resolving any
// string.
func (lw *LazyWorkbook) StringCount() int {
	return lw.strings.Count()
}

func (lw *LazyWorkbook) styleCount() (int, error) {
	lw.stylesOnce.Do(func() {
		if !lw.handle.Has("xl/styles.xml") {
			lw.stylesReg = styles.NewRegistry()
			return
		}
		data, err := lw.handle.Part("xl/styles.xml")
		if err != nil {
			lw.stylesErr = err
			return
		}
		lw.stylesReg, lw.stylesErr = styles.Parse(data)
	})
	if lw.stylesErr != nil {
		return 0, lw.stylesErr
	}
	return lw.stylesReg.Count(), nil
}

func (lw *LazyWorkbook) partFor(name string) (string, sheetMeta, error) {
	for _, m := range lw.metas {
		if strings.EqualFold(m.name, name) {
			part := lw.parts[strings.ToLower(m.name)]
			if part == "" || !lw.handle.Has(part) {
				return "", m, fmt.Errorf("%w: sheet %q has no part", container.ErrNoPart, name)
			}
			return part, m, nil
		}
	}
	return "", sheetMeta{}, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
}

// LoadSheet parses one sheet on demand and caches it. The returned
// sheet is read-only from the lazy side; mutation goes through the
// eager Workbook.
func (lw *LazyWorkbook) LoadSheet(name string) (*Sheet, error) {
	part, m, err := lw.partFor(name)
	if err != nil {
		return nil, err
	}

	lw.mu.Lock()
	if s, ok := lw.loaded[part]; ok {
		lw.mu.Unlock()
		return s, nil
	}
	lw.mu.Unlock()

	count, err := lw.styleCount()
	if err != nil {
		return nil, err
	}
	data, err := lw.handle.Part(part)
	if err != nil {
		return nil, err
	}
	s := newSheet(nil, m.name, m.sheetID)
	s.partName = part
	s.visibility = m.state
	if _, err := parseSheetXML(s, data, lw.strings, count); err != nil {
		return nil, err
	}

	lw.mu.Lock()
	lw.loaded[part] = s
	lw.mu.Unlock()
	return s, nil
}

// Close releases the container.
func (lw *LazyWorkbook) Close() error {
	return lw.handle.Close()
}
