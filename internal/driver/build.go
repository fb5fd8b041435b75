package driver

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mubtakir/bayan-sub000/internal/source"
)

// listUnitFiles возвращает отсортированный список всех *.bast файлов
// в директории.
func listUnitFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".bast") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Сортируем для детерминированного порядка.
	sort.Strings(files)
	return files, nil
}

// BuildDir compiles every *.bast unit under dir concurrently. Units are
// independent: each gets its own FileSet, interner and symbol table, so no
// mutable state crosses goroutines. Results come back in the sorted file
// order regardless of completion order; span FileIDs are unit-local, so
// diagnostics render against the unit's own Files.
func BuildDir(ctx context.Context, dir string, opts Options) ([]*UnitResult, error) {
	files, err := listUnitFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Индексы уникальны для каждой горутины, мьютекс не нужен.
	results := make([]*UnitResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			// FileSet не потокобезопасен; каждая единица грузит свой.
			results[i] = CompileFile(path, source.NewFileSet(), opts)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
