// Package driver orchestrates the per-unit analysis pipeline and the
// multi-unit build: resolve, check, instantiate, layout, lower. Each unit
// owns its interner and symbol table, so units never share mutable state.
package driver

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"github.com/mubtakir/bayan-sub000/internal/ast"
	"github.com/mubtakir/bayan-sub000/internal/diag"
	"github.com/mubtakir/bayan-sub000/internal/layout"
	"github.com/mubtakir/bayan-sub000/internal/mir"
	"github.com/mubtakir/bayan-sub000/internal/mono"
	"github.com/mubtakir/bayan-sub000/internal/sema"
	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/symbols"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

// Options управляют одним прогоном компиляции.
type Options struct {
	MaxDiagnostics int
	Jobs           int           // 0 — GOMAXPROCS
	Target         layout.Target // zero value falls back to x86_64-linux-gnu
	Cache          *DiskCache    // nil отключает кэш
}

func (o Options) target() layout.Target {
	if o.Target.PtrSize == 0 {
		return layout.X86_64LinuxGNU()
	}
	return o.Target
}

func (o Options) maxDiagnostics() int {
	if o.MaxDiagnostics <= 0 {
		return 100
	}
	return o.MaxDiagnostics
}

// UnitResult собирает все артефакты анализа одной единицы компиляции.
type UnitResult struct {
	Path        string
	Files       *source.FileSet
	Module      *ast.Module
	Symbols     *symbols.Result
	Sema        *sema.Result
	Insts       *mono.InstantiationMap
	MIR         *mir.Module
	Bag         *diag.Bag
	ContentHash Digest

	// FromCache is set when the disk cache already carried a clean verdict
	// for this content hash and analysis was skipped.
	FromCache bool
}

// Broken reports whether the unit produced at least one error.
func (r *UnitResult) Broken() bool {
	return r == nil || (r.Bag != nil && r.Bag.HasErrors())
}

// CompileModule runs the full pipeline over an already-decoded module.
// Diagnostics accumulate in one bag; the bag comes back sorted.
func CompileModule(path string, m *ast.Module, opts Options) *UnitResult {
	bag := diag.NewBag(opts.maxDiagnostics())
	reporter := diag.BagReporter{Bag: bag}

	res := &UnitResult{Path: path, Module: m, Bag: bag}
	res.Symbols = symbols.Resolve(m, reporter, nil)
	res.Sema = sema.Check(res.Symbols, reporter)
	res.Insts = mono.Monomorphize(res.Sema, reporter)

	checkLayouts(res.Symbols, opts.target(), reporter)

	// IR только для чистых единиц: частичный IR для сломанных
	// айтемов не строим.
	if !bag.HasErrors() {
		mod, err := mir.LowerModule(res.Sema, res.Insts)
		if err != nil {
			reporter.Report(diag.NewError(diag.IOError, source.Span{}, "lowering failed: "+err.Error()))
		} else if err := mir.Validate(mod); err != nil {
			reporter.Report(diag.NewError(diag.IOError, source.Span{}, "invalid lowered function: "+err.Error()))
		} else {
			res.MIR = mod
		}
	}

	bag.Sort()
	return res
}

// CompileFile loads a serialized unit (.bast), decodes the tree and runs
// CompileModule. Load and decode failures become diagnostics, not errors:
// the caller renders one bag either way.
func CompileFile(path string, fileSet *source.FileSet, opts Options) *UnitResult {
	bag := diag.NewBag(opts.maxDiagnostics())

	fileID, err := fileSet.Load(path)
	if err != nil {
		bag.Add(diag.NewError(diag.IOError, source.Span{}, "failed to load file: "+err.Error()))
		return &UnitResult{Path: path, Files: fileSet, Bag: bag}
	}
	content := fileSet.Get(fileID).Content
	hash := HashContent(content)

	if opts.Cache != nil {
		var payload DiskPayload
		if ok, _ := opts.Cache.Get(hash, &payload); ok && !payload.Broken {
			return &UnitResult{Path: path, Files: fileSet, Bag: bag, ContentHash: hash, FromCache: true}
		}
	}

	m, err := ast.DecodeModule(content)
	if err != nil {
		bag.Add(diag.NewError(diag.IODecodeError, source.Span{File: fileID}, err.Error()))
		return &UnitResult{Path: path, Files: fileSet, Bag: bag, ContentHash: hash}
	}

	res := CompileModule(path, m, opts)
	res.Files = fileSet
	res.ContentHash = hash

	if opts.Cache != nil {
		payload := &DiskPayload{
			Schema:      diskCacheSchemaVersion,
			Path:        path,
			ContentHash: hash,
			Broken:      res.Broken(),
			Diags:       res.Bag.Len(),
		}
		if res.MIR != nil {
			payload.IRFingerprint = FingerprintIR(res.MIR, res.Symbols.Types, res.Symbols.Table.Strings)
		}
		// Кэш — best effort: ошибка записи не ломает сборку.
		_ = opts.Cache.Put(hash, payload)
	}
	return res
}

// checkLayouts computes the layout of every declared nominal type so that
// infinitely-sized values are reported even when the type is never used.
func checkLayouts(res *symbols.Result, target layout.Target, reporter diag.Reporter) {
	if res == nil || res.Table == nil {
		return
	}
	eng := layout.New(target, res.Types)
	seen := make(map[types.TypeID]bool)
	for i := 1; i <= res.Table.Symbols.Len(); i++ {
		value, err := safecast.Conv[uint32](i)
		if err != nil {
			panic(fmt.Errorf("symbol index overflow: %w", err))
		}
		id := symbols.SymbolID(value)
		sym := res.Table.Symbols.Get(id)
		if sym == nil || sym.Kind != symbols.SymbolType || sym.Type == types.NoTypeID {
			continue
		}
		if seen[sym.Type] {
			continue
		}
		seen[sym.Type] = true
		if _, err := eng.LayoutOf(sym.Type); err != nil {
			var lerr *layout.LayoutError
			if errors.As(err, &lerr) && lerr.Kind == layout.LayoutErrRecursive {
				name := res.Table.SymbolName(id)
				reporter.Report(diag.NewError(
					diag.SemaRecursiveType,
					sym.Span,
					fmt.Sprintf("type %s is recursive without indirection and has infinite size", name),
				))
			}
		}
	}
}
