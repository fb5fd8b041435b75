package diag

import (
	"fmt"

	"github.com/mubtakir/bayan-sub000/internal/source"
)

// Reporter — минимальный контракт получения диагностик от фаз.
// Реализации: BagReporter (кладёт в Bag), NopReporter.
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter — адаптер, который пишет в *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(d)
}

// NopReporter discards every diagnostic. Useful in tests that only care
// about the returned artefacts.
type NopReporter struct{}

func (NopReporter) Report(Diagnostic) {}

// Errorf builds and reports an error diagnostic in one call.
func Errorf(r Reporter, code Code, primary source.Span, format string, args ...any) {
	if r == nil {
		return
	}
	r.Report(NewError(code, primary, fmt.Sprintf(format, args...)))
}

// Warnf builds and reports a warning diagnostic in one call.
func Warnf(r Reporter, code Code, primary source.Span, format string, args ...any) {
	if r == nil {
		return
	}
	r.Report(New(SevWarning, code, primary, fmt.Sprintf(format, args...)))
}
