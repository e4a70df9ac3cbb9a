// Package compare aligns template and contract paragraphs and emits the
// differences as ordered change records.
package compare

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/kamilpajak/redline/pkg/models"
	"gonum.org/v1/gonum/stat"
)

// Text placed on the non-empty side of the synthetic change emitted when a
// document yields no paragraphs.
const (
	UnreadableContract = "Document unreadable: no text could be extracted from the contract."
	UnreadableTemplate = "Template unreadable: no text could be extracted from the template."
)

// DefaultPairThreshold is the minimum similarity for a deleted and an inserted
// paragraph in the same gap to be reported as one modification.
const DefaultPairThreshold = 0.2

// DefaultMaxSimilarity drops modifications whose words are all unchanged,
// such as punctuation-only edits.
const DefaultMaxSimilarity = 1.0

// Options tune the engine.
type Options struct {
	PairThreshold float64
	// MaxSimilarity drops modifications at or above this word similarity
	// unless their figures differ.
	MaxSimilarity float64
	// MinChars drops inserted or deleted paragraphs shorter than this, such as
	// stray page numbers.
	MinChars      int
	CaseSensitive bool
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{PairThreshold: DefaultPairThreshold, MaxSimilarity: DefaultMaxSimilarity, MinChars: 1}
}

// Engine compares paragraph sequences. It holds no per-call state.
type Engine struct {
	opts Options
}

// New creates an engine. Non-positive thresholds fall back to defaults.
func New(opts Options) *Engine {
	if opts.PairThreshold <= 0 {
		opts.PairThreshold = DefaultPairThreshold
	}
	if opts.MaxSimilarity <= 0 || opts.MaxSimilarity > 1 {
		opts.MaxSimilarity = DefaultMaxSimilarity
	}
	if opts.MinChars < 1 {
		opts.MinChars = 1
	}
	return &Engine{opts: opts}
}

// Comparison is the engine output.
type Comparison struct {
	Similarity float64 // 0..100
	Changes    []models.Change
}

type opKind int

const (
	opEqual opKind = iota
	opDelete
	opInsert
	opModify
)

type op struct {
	kind opKind
	t, c int // indexes into template and contract; -1 when absent
	sim  float64
}

// Compare diffs template against contract. It never fails: an empty side
// produces similarity 0 and a single synthetic change.
func (e *Engine) Compare(template, contract []string) Comparison {
	t := normalizeAll(template)
	c := normalizeAll(contract)
	if len(t) == 0 || len(c) == 0 {
		return unreadable(len(c) == 0)
	}

	tk := make([]string, len(t))
	for i, p := range t {
		tk[i] = e.key(p)
	}
	ck := make([]string, len(c))
	for i, p := range c {
		ck[i] = e.key(p)
	}

	ops := e.align(t, c, lcsOps(tk, ck))
	return e.build(t, c, ops)
}

func (e *Engine) build(t, c []string, ops []op) Comparison {
	var (
		changes []models.Change
		values  = make([]float64, 0, len(ops))
		weights = make([]float64, 0, len(ops))
		section string
	)
	for _, o := range ops {
		var before, after string
		if o.t >= 0 {
			before = t[o.t]
		}
		if o.c >= 0 {
			after = c[o.c]
		}

		switch o.kind {
		case opEqual:
			values, weights = append(values, 1), append(weights, runeLen(after))
		case opModify:
			values, weights = append(values, o.sim), append(weights, (runeLen(before)+runeLen(after))/2)
			if !e.negligible(before, after) {
				changes = append(changes, models.Change{
					Kind: models.KindModification, BeforeText: before, AfterText: after,
					SectionContext: section, Similarity: round3(o.sim),
				})
			}
		case opDelete:
			values, weights = append(values, 0), append(weights, runeLen(before))
			if utf8.RuneCountInString(before) >= e.opts.MinChars {
				changes = append(changes, models.Change{
					Kind: models.KindDeletion, BeforeText: before, SectionContext: section,
				})
			}
		case opInsert:
			values, weights = append(values, 0), append(weights, runeLen(after))
			if utf8.RuneCountInString(after) >= e.opts.MinChars {
				changes = append(changes, models.Change{
					Kind: models.KindInsertion, AfterText: after, SectionContext: section,
				})
			}
		}

		heading := after
		if heading == "" {
			heading = before
		}
		if isHeading(heading) {
			section = heading
		}
	}

	for i := range changes {
		changes[i].ID = i + 1
	}
	return Comparison{
		Similarity: round2(stat.Mean(values, weights) * 100),
		Changes:    changes,
	}
}

func unreadable(contractEmpty bool) Comparison {
	ch := models.Change{
		ID:             1,
		Kind:           models.KindDeletion,
		BeforeText:     UnreadableContract,
		SectionContext: "document",
		Synthetic:      true,
	}
	if !contractEmpty {
		ch.Kind = models.KindInsertion
		ch.BeforeText = ""
		ch.AfterText = UnreadableTemplate
	}
	return Comparison{Similarity: 0, Changes: []models.Change{ch}}
}

// key is the identity used for alignment. Whitespace-run, quote-style and
// (unless configured otherwise) case-only edits compare equal. Word
// boundaries are kept.
func (e *Engine) key(p string) string {
	if !e.opts.CaseSensitive {
		p = strings.ToLower(p)
	}
	return strings.Join(strings.Fields(glyphs.Replace(p)), " ")
}

// negligible reports whether a modification only touches punctuation or
// other non-word characters: its words, in order, are at least
// MaxSimilarity alike and its figures are identical.
func (e *Engine) negligible(before, after string) bool {
	split := tokens
	if e.opts.CaseSensitive {
		split = words
	}
	if sequenceSimilarity(split(before), split(after)) < e.opts.MaxSimilarity {
		return false
	}
	return slices.Equal(figures(before), figures(after))
}

var glyphs = strings.NewReplacer(
	"\u2018", "'", "\u2019", "'", "\u201c", `"`, "\u201d", `"`,
	"\u2013", "-", "\u2014", "-", "\u00a0", " ",
)

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) float64 {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 1
	}
	return float64(n)
}

func round2(f float64) float64 { return float64(int(f*100+0.5)) / 100 }
func round3(f float64) float64 { return float64(int(f*1000+0.5)) / 1000 }
