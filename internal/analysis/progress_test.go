package analysis

import (
	"bytes"
	"testing"

	"github.com/kamilpajak/redline/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "0ms"},
		{500, "500ms"},
		{999, "999ms"},
		{1000, "1.0s"},
		{1500, "1.5s"},
		{10000, "10.0s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.ms), "formatDuration(%d)", tt.ms)
	}
}

func TestTextEmitter(t *testing.T) {
	tests := []struct {
		name string
		ev   ProgressEvent
		want string
	}{
		{
			name: "step",
			ev:   ProgressEvent{Type: "step", Step: 2, MaxStep: 5, Message: "Selecting template"},
			want: "[step 2/5] Selecting template\n",
		},
		{
			name: "step with file",
			ev:   ProgressEvent{Type: "step", File: "a.docx", Step: 1, MaxStep: 5, Message: "Extracting text"},
			want: "[step 1/5] a.docx: Extracting text\n",
		},
		{
			name: "info",
			ev:   ProgressEvent{Type: "info", Message: "Matched EPAM MSA.docx"},
			want: "  Matched EPAM MSA.docx\n",
		},
		{
			name: "error",
			ev:   ProgressEvent{Type: "error", File: "lease.pdf", Message: "not a vendor contract"},
			want: "Error: lease.pdf: not a vendor contract\n",
		},
		{
			name: "done",
			ev: ProgressEvent{Type: "done", ElapsedMs: 1500, Result: &models.AnalysisResult{
				OverallRiskLevel: models.RiskHigh,
				Counts:           models.Counts{Total: 3},
			}},
			want: "3 changes, risk HIGH (1.5s)\n",
		},
		{
			name: "unknown type is ignored",
			ev:   ProgressEvent{Type: "debug", Message: "x"},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			(&TextEmitter{W: &buf}).Emit(tt.ev)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
