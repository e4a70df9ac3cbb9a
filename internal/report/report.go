// Package report renders analysis results as Word, Excel and PDF documents.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/kamilpajak/redline/pkg/models"
)

// Format identifies a report type.
type Format string

const (
	FormatWord  Format = "word"
	FormatExcel Format = "excel"
	FormatPDF   Format = "pdf"
)

// Formats lists every supported format in generation order.
var Formats = []Format{FormatWord, FormatExcel, FormatPDF}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatWord:
		return ".docx"
	case FormatExcel:
		return ".xlsx"
	case FormatPDF:
		return ".pdf"
	default:
		return ""
	}
}

// ContentType returns the MIME type of the rendered document.
func (f Format) ContentType() string {
	switch f {
	case FormatWord:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// ParseFormats validates names such as "word", "xlsx" or "pdf". An empty list
// selects every format.
func ParseFormats(names []string) ([]Format, error) {
	if len(names) == 0 {
		return Formats, nil
	}
	seen := map[Format]bool{}
	var out []Format
	for _, raw := range names {
		for _, name := range strings.Split(raw, ",") {
			f, err := ParseFormat(name)
			if err != nil {
				return nil, err
			}
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out, nil
}

// ParseFormat accepts a format name or its file extension.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "word", "docx":
		return FormatWord, nil
	case "excel", "xlsx":
		return FormatExcel, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want word, excel or pdf)", name)
	}
}

// Formatter renders one format. Implementations hold no per-call state.
type Formatter interface {
	Format() Format
	Render(w io.Writer, result *models.AnalysisResult) error
}

// ReportFormatError reports a failure confined to one format.
type ReportFormatError struct {
	Format Format
	Err    error
}

func (e *ReportFormatError) Error() string {
	return fmt.Sprintf("%s report failed: %v", e.Format, e.Err)
}

func (e *ReportFormatError) Unwrap() error { return e.Err }

// Outcome is the result of generating one format.
type Outcome struct {
	Location string `json:"location,omitempty"`
	Err      error  `json:"-"`
}

// Outcomes maps each requested format to its outcome.
type Outcomes map[Format]Outcome

// Err joins every failure, or returns nil when all formats succeeded.
func (o Outcomes) Err() error {
	var errs []error
	for _, f := range Formats {
		if out, ok := o[f]; ok && out.Err != nil {
			errs = append(errs, out.Err)
		}
	}
	return errors.Join(errs...)
}

// Key is the storage key for a result's report.
func Key(resultID string, f Format) string {
	return resultID + "/contract-review" + f.Extension()
}

// Options configure an Assembler.
type Options struct {
	// PDFFont is an optional TrueType font for the PDF report. When set and
	// unreadable, only the PDF report fails.
	PDFFont string
	Logger  *slog.Logger
}

// Assembler renders results through its formatters and stores the output.
type Assembler struct {
	storage    Storage
	formatters map[Format]Formatter
	logger     *slog.Logger
	locks      keyedMutex
}

// NewAssembler creates an assembler with the Word, Excel and PDF formatters.
func NewAssembler(storage Storage, opts Options) *Assembler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		storage: storage,
		formatters: map[Format]Formatter{
			FormatWord:  WordFormatter{},
			FormatExcel: ExcelFormatter{},
			FormatPDF:   PDFFormatter{FontPath: opts.PDFFont},
		},
		logger: logger,
	}
}

// WithFormatter replaces the formatter for f.Format().
func (a *Assembler) WithFormatter(f Formatter) *Assembler {
	a.formatters[f.Format()] = f
	return a
}

// Storage returns the backing storage.
func (a *Assembler) Storage() Storage { return a.storage }

// Generate renders every requested format. A failing format never prevents
// the others from being produced. Calls for the same result ID are serialized.
func (a *Assembler) Generate(ctx context.Context, result *models.AnalysisResult, formats []Format) Outcomes {
	if len(formats) == 0 {
		formats = Formats
	}
	unlock := a.locks.lock(result.ID)
	defer unlock()

	outcomes := make(Outcomes, len(formats))
	for _, f := range formats {
		if _, done := outcomes[f]; done {
			continue
		}
		loc, err := a.generate(ctx, result, f)
		if err != nil {
			a.logger.Warn("report generation failed", "result", result.ID, "format", f, "error", err)
			outcomes[f] = Outcome{Err: err}
			continue
		}
		a.logger.Info("report generated", "result", result.ID, "format", f, "location", loc)
		outcomes[f] = Outcome{Location: loc}
	}
	return outcomes
}

func (a *Assembler) generate(ctx context.Context, result *models.AnalysisResult, f Format) (string, error) {
	formatter, ok := a.formatters[f]
	if !ok {
		return "", &ReportFormatError{Format: f, Err: errors.New("unsupported format")}
	}
	data, err := render(formatter, result)
	if err != nil {
		return "", &ReportFormatError{Format: f, Err: err}
	}
	loc, err := a.storage.Write(ctx, Key(result.ID, f), data)
	if err != nil {
		return "", &ReportFormatError{Format: f, Err: fmt.Errorf("store: %w", err)}
	}
	return loc, nil
}

func render(f Formatter, result *models.AnalysisResult) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	var buf bytes.Buffer
	if err := f.Render(&buf, result); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// keyedMutex serializes work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
