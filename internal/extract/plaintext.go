package extract

import (
	"os"
	"strings"
	"unicode/utf8"
)

// PlainText splits text files on blank lines.
type PlainText struct{}

// Extract implements Extractor.
func (PlainText) Extract(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	if !utf8.Valid(data) {
		return nil, &ExtractionError{Path: path, Err: errNotUTF8}
	}
	return SplitParagraphs(string(data)), nil
}

// SplitParagraphs splits on blank lines, joining wrapped lines inside a paragraph.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var paras []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			paras = append(paras, strings.Join(cur, " "))
			cur = cur[:0]
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return cleanParagraphs(paras)
}
