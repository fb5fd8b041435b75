package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mubtakir/bayan-sub000/internal/ast"
	"github.com/mubtakir/bayan-sub000/internal/diag"
	"github.com/mubtakir/bayan-sub000/internal/source"
)

func intLit(v int64) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprLiteral, Data: ast.LiteralData{Kind: ast.LitInt, Int: v}}
}

func identExpr(name string) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprIdent, Data: ast.IdentData{Name: name}}
}

func retStmt(value *ast.Expr) *ast.Stmt {
	return &ast.Stmt{Kind: ast.StmtReturn, Data: ast.ReturnData{Value: value}}
}

func fnItem(name string, result *ast.TypeExpr, stmts ...*ast.Stmt) *ast.Item {
	return &ast.Item{Kind: ast.ItemFunction, Data: ast.FuncData{
		Name:   name,
		Result: result,
		Body:   &ast.Block{Stmts: stmts},
	}}
}

func cleanModule() *ast.Module {
	return &ast.Module{
		Name:  "main",
		Items: []*ast.Item{fnItem("main", &ast.TypeExpr{Name: "int"}, retStmt(intLit(3)))},
	}
}

func brokenModule() *ast.Module {
	return &ast.Module{
		Name:  "main",
		Items: []*ast.Item{fnItem("main", &ast.TypeExpr{Name: "int"}, retStmt(identExpr("nope")))},
	}
}

func writeUnit(t *testing.T, dir, name string, m *ast.Module) string {
	t.Helper()
	data, err := ast.EncodeModule(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestCompileModuleProducesIR(t *testing.T) {
	res := CompileModule("main.bast", cleanModule(), Options{})
	if res.Broken() {
		t.Fatalf("unexpected diagnostics: %+v", res.Bag.Items())
	}
	if res.MIR == nil {
		t.Fatal("expected lowered IR for a clean unit")
	}
	if _, ok := res.MIR.FuncByName["main"]; !ok {
		t.Fatal("lowered module has no main")
	}
}

func TestCompileModuleSkipsIRForBrokenUnit(t *testing.T) {
	res := CompileModule("main.bast", brokenModule(), Options{})
	if !res.Broken() {
		t.Fatal("expected errors for an undefined identifier")
	}
	if res.MIR != nil {
		t.Fatal("broken unit must not produce IR")
	}
}

func TestCompileModuleReportsRecursiveType(t *testing.T) {
	node := &ast.Item{Kind: ast.ItemStruct, Data: ast.StructData{
		Name:   "Node",
		Fields: []ast.FieldDef{{Name: "next", Type: &ast.TypeExpr{Name: "Node"}}},
	}}
	res := CompileModule("main.bast", &ast.Module{Name: "main", Items: []*ast.Item{node}}, Options{})
	if !hasCode(res.Bag, diag.SemaRecursiveType) {
		t.Fatalf("expected recursive-type diagnostic, got %+v", res.Bag.Items())
	}
}

func TestCompileFileReportsDecodeError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.bast")
	if err := os.WriteFile(path, []byte("not msgpack"), 0o644); err != nil {
		t.Fatal(err)
	}
	res := CompileFile(path, source.NewFileSet(), Options{})
	if !hasCode(res.Bag, diag.IODecodeError) {
		t.Fatalf("expected decode diagnostic, got %+v", res.Bag.Items())
	}
}

func TestCompileFileCachesCleanVerdict(t *testing.T) {
	dir := t.TempDir()
	path := writeUnit(t, dir, "main.bast", cleanModule())

	cache, err := OpenDiskCacheAt(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{Cache: cache}

	first := CompileFile(path, source.NewFileSet(), opts)
	if first.Broken() || first.FromCache {
		t.Fatalf("first build: broken=%v fromCache=%v", first.Broken(), first.FromCache)
	}

	var payload DiskPayload
	ok, err := cache.Get(first.ContentHash, &payload)
	if err != nil || !ok {
		t.Fatalf("cache lookup: ok=%v err=%v", ok, err)
	}
	if payload.Broken {
		t.Fatal("cached verdict marked broken")
	}
	if payload.IRFingerprint.IsZero() {
		t.Fatal("cached clean verdict carries no IR fingerprint")
	}

	second := CompileFile(path, source.NewFileSet(), opts)
	if !second.FromCache {
		t.Fatal("second build of unchanged content must hit the cache")
	}
}

func TestCompileFileDoesNotCacheHitBrokenUnits(t *testing.T) {
	dir := t.TempDir()
	path := writeUnit(t, dir, "main.bast", brokenModule())

	cache, err := OpenDiskCacheAt(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{Cache: cache}

	_ = CompileFile(path, source.NewFileSet(), opts)
	second := CompileFile(path, source.NewFileSet(), opts)
	if second.FromCache {
		t.Fatal("broken verdicts must be recompiled, not served from cache")
	}
	if !second.Broken() {
		t.Fatal("recompilation lost the diagnostics")
	}
}

func TestBuildDirReturnsResultsInSortedOrder(t *testing.T) {
	dir := t.TempDir()
	writeUnit(t, dir, "a.bast", cleanModule())
	writeUnit(t, dir, "b.bast", brokenModule())

	results, err := BuildDir(context.Background(), dir, Options{Jobs: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 units, got %d", len(results))
	}
	if filepath.Base(results[0].Path) != "a.bast" || filepath.Base(results[1].Path) != "b.bast" {
		t.Fatalf("results out of order: %s, %s", results[0].Path, results[1].Path)
	}
	if results[0].Broken() {
		t.Fatal("a.bast should be clean")
	}
	if !results[1].Broken() {
		t.Fatal("b.bast should carry errors")
	}
}

func TestBuildDirEmptyDir(t *testing.T) {
	results, err := BuildDir(context.Background(), t.TempDir(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no units, got %d", len(results))
	}
}

func TestHashContentIsStable(t *testing.T) {
	a := HashContent([]byte("same"))
	b := HashContent([]byte("same"))
	if a != b {
		t.Fatal("equal content must hash equal")
	}
	if a == HashContent([]byte("other")) {
		t.Fatal("different content must hash different")
	}
	if a.IsZero() {
		t.Fatal("digest of non-empty content is zero")
	}
}
