package analysis

import (
	"fmt"
	"io"
	"sync"

	"github.com/kamilpajak/redline/pkg/models"
)

// Pipeline stages reported through ProgressEvent.Step.
const (
	StepExtract = iota + 1
	StepSelect
	StepCompare
	StepClassify
	StepSave
	maxStep = StepSave
)

// ProgressEvent represents a single progress update during analysis.
type ProgressEvent struct {
	Type      string                 `json:"type"`                 // "step", "info", "done", "error"
	File      string                 `json:"file,omitempty"`       // contract being analyzed
	Step      int                    `json:"step,omitempty"`       // current stage
	MaxStep   int                    `json:"max,omitempty"`        // number of stages
	Message   string                 `json:"message,omitempty"`    // human-readable message
	ElapsedMs int64                  `json:"elapsed_ms,omitempty"` // time since the run started
	Result    *models.AnalysisResult `json:"result,omitempty"`     // final analysis (for "done" type)
}

// ProgressEmitter receives progress events during analysis. Batch runs call
// Emit from several goroutines.
type ProgressEmitter interface {
	Emit(event ProgressEvent)
}

// EmitterFunc adapts a function to ProgressEmitter.
type EmitterFunc func(ProgressEvent)

func (f EmitterFunc) Emit(ev ProgressEvent) { f(ev) }

// TextEmitter formats progress events as human-readable text for CLI output.
type TextEmitter struct {
	W  io.Writer
	mu sync.Mutex
}

// Emit writes a formatted progress line to the underlying writer.
func (e *TextEmitter) Emit(ev ProgressEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prefix := ""
	if ev.File != "" {
		prefix = ev.File + ": "
	}
	switch ev.Type {
	case "step":
		fmt.Fprintf(e.W, "[step %d/%d] %s%s\n", ev.Step, ev.MaxStep, prefix, ev.Message)
	case "info":
		fmt.Fprintf(e.W, "  %s%s\n", prefix, ev.Message)
	case "done":
		if ev.Result != nil {
			fmt.Fprintf(e.W, "%s%d changes, risk %s (%s)\n",
				prefix, ev.Result.Counts.Total, ev.Result.OverallRiskLevel, formatDuration(ev.ElapsedMs))
		}
	case "error":
		fmt.Fprintf(e.W, "Error: %s%s\n", prefix, ev.Message)
	}
}

func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}

func emit(e ProgressEmitter, ev ProgressEvent) {
	if e != nil {
		e.Emit(ev)
	}
}
