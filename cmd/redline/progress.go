package redline

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"

	"github.com/kamilpajak/redline/internal/analysis"
)

// progress is an analysis.ProgressEmitter that can be stopped.
type progress interface {
	analysis.ProgressEmitter
	Close()
}

// newEmitter shows a spinner on terminals and plain progress lines otherwise.
func newEmitter(w io.Writer) progress {
	if f, ok := w.(*os.File); ok && isTerminal(f) {
		return newSpinnerEmitter(w)
	}
	return &textProgress{TextEmitter: analysis.TextEmitter{W: w}}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type textProgress struct {
	analysis.TextEmitter
}

func (*textProgress) Close() {}

type spinnerEmitter struct {
	s *spinner.Spinner
}

func newSpinnerEmitter(w io.Writer) *spinnerEmitter {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " Starting..."
	s.Start()
	return &spinnerEmitter{s: s}
}

func (e *spinnerEmitter) Emit(ev analysis.ProgressEvent) {
	switch ev.Type {
	case "step", "info":
		e.s.Lock()
		e.s.Suffix = " " + ev.File + ": " + ev.Message
		e.s.Unlock()
	}
}

func (e *spinnerEmitter) Close() {
	e.s.Stop()
}
