package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mubtakir/bayan-sub000/internal/diag"
	"github.com/mubtakir/bayan-sub000/internal/source"
)

func testBag(t *testing.T) (*diag.Bag, *source.FileSet, source.FileID) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.Add("main.bast", []byte("let x = nope;\nlet y = 1;\n"))
	bag := diag.NewBag(16)
	bag.Add(diag.NewError(
		diag.SemaUndefinedSymbol,
		source.Span{File: id, Start: 8, End: 12},
		"undefined symbol nope",
	))
	return bag, fs, id
}

func TestPrettyRendersLocationAndUnderline(t *testing.T) {
	bag, fs, _ := testBag(t)

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{})
	out := buf.String()

	if !strings.Contains(out, "main.bast:1:9: error[SEM3003]: undefined symbol nope") {
		t.Fatalf("missing header line:\n%s", out)
	}
	if !strings.Contains(out, "let x = nope;") {
		t.Fatalf("missing source context:\n%s", out)
	}
	// 8 bytes before the span, then a caret covering 4 columns.
	if !strings.Contains(out, "  "+strings.Repeat(" ", 8)+"^~~~") {
		t.Fatalf("misaligned underline:\n%s", out)
	}
}

func TestPrettyShowsNotesAndMissing(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.Add("main.bast", []byte("match v {}\n"))
	bag := diag.NewBag(16)
	bag.Add(diag.NewError(
		diag.SemaNonExhaustiveMatch,
		source.Span{File: id, Start: 0, End: 5},
		"match is not exhaustive",
	).WithMissing([]string{"None", "Some(_)"}).
		WithNote(source.Span{File: id, Start: 6, End: 7}, "scrutinee declared here"))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{ShowNotes: true})
	out := buf.String()

	if !strings.Contains(out, "missing: None, Some(_)") {
		t.Fatalf("missing variants not listed:\n%s", out)
	}
	if !strings.Contains(out, "note: scrutinee declared here") {
		t.Fatalf("note not rendered:\n%s", out)
	}
}

func TestPrettyBasenameMode(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.Add("deep/nested/unit.bast", []byte("x\n"))
	bag := diag.NewBag(4)
	bag.Add(diag.NewError(diag.SemaInfo, source.Span{File: id, Start: 0, End: 1}, "msg"))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename})
	if !strings.HasPrefix(buf.String(), "unit.bast:1:1:") {
		t.Fatalf("expected basename path:\n%s", buf.String())
	}
}

func TestJSONIncludesPositions(t *testing.T) {
	bag, fs, _ := testBag(t)

	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true}); err != nil {
		t.Fatal(err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Total != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("expected one diagnostic, got %+v", out)
	}
	d := out.Diagnostics[0]
	if d.Code != "SEM3003" || d.Severity != "error" {
		t.Fatalf("unexpected code/severity: %+v", d)
	}
	if d.Location.StartLine != 1 || d.Location.StartCol != 9 {
		t.Fatalf("unexpected position: %+v", d.Location)
	}
}

func TestJSONTruncatesAtMax(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.Add("main.bast", []byte("xy\n"))
	bag := diag.NewBag(16)
	for i := 0; i < 3; i++ {
		bag.Add(diag.NewError(diag.SemaInfo, source.Span{File: id, Start: 0, End: 1}, "msg"))
	}

	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{Max: 2}); err != nil {
		t.Fatal(err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Diagnostics) != 2 || !out.Truncated || out.Total != 3 {
		t.Fatalf("bad truncation: %+v", out)
	}
}
