package compare

import (
	"regexp"
	"strings"
	"unicode"
)

// lcsOps walks the longest common subsequence of the two key sequences and
// returns equal/delete/insert operations in document order. Within a gap
// deletions come before insertions.
func lcsOps(a, b []string) []op {
	n, m := len(a), len(b)
	// dp[i][j] is the LCS length of a[i:] and b[j:].
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else {
				dp[i][j] = max(dp[i+1][j], dp[i][j+1])
			}
		}
	}

	ops := make([]op, 0, n+m)
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			ops = append(ops, op{kind: opEqual, t: i, c: j})
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			ops = append(ops, op{kind: opDelete, t: i, c: -1})
			i++
		default:
			ops = append(ops, op{kind: opInsert, t: -1, c: j})
			j++
		}
	}
	for ; i < n; i++ {
		ops = append(ops, op{kind: opDelete, t: i, c: -1})
	}
	for ; j < m; j++ {
		ops = append(ops, op{kind: opInsert, t: -1, c: j})
	}
	return ops
}

// align rewrites every run of deletions and insertions between two equal
// paragraphs, pairing similar paragraphs into modifications.
func (e *Engine) align(t, c []string, ops []op) []op {
	out := make([]op, 0, len(ops))
	var dels, ins []int
	flush := func() {
		if len(dels) > 0 || len(ins) > 0 {
			out = append(out, e.pairGap(t, c, dels, ins)...)
		}
		dels, ins = dels[:0], ins[:0]
	}
	for _, o := range ops {
		switch o.kind {
		case opDelete:
			dels = append(dels, o.t)
		case opInsert:
			ins = append(ins, o.c)
		default:
			flush()
			out = append(out, o)
		}
	}
	flush()
	return out
}

// pairGap finds the order-preserving pairing of deleted and inserted
// paragraphs that maximises total similarity. A gap of exactly one deletion
// and one insertion is always a modification.
func (e *Engine) pairGap(t, c []string, dels, ins []int) []op {
	if len(dels) == 1 && len(ins) == 1 {
		return []op{{kind: opModify, t: dels[0], c: ins[0], sim: similarity(t[dels[0]], c[ins[0]])}}
	}

	n, m := len(dels), len(ins)
	sim := make([][]float64, n)
	for i := range sim {
		sim[i] = make([]float64, m)
		for j := range sim[i] {
			sim[i][j] = similarity(t[dels[i]], c[ins[j]])
		}
	}
	// best[i][j] is the maximal score for dels[i:] against ins[j:].
	best := make([][]float64, n+1)
	for i := range best {
		best[i] = make([]float64, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			v := max(best[i+1][j], best[i][j+1])
			if sim[i][j] >= e.opts.PairThreshold {
				v = max(v, best[i+1][j+1]+sim[i][j])
			}
			best[i][j] = v
		}
	}

	out := make([]op, 0, n+m)
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case sim[i][j] >= e.opts.PairThreshold && best[i][j] == best[i+1][j+1]+sim[i][j]:
			out = append(out, op{kind: opModify, t: dels[i], c: ins[j], sim: sim[i][j]})
			i++
			j++
		case best[i][j] == best[i+1][j]:
			out = append(out, op{kind: opDelete, t: dels[i], c: -1})
			i++
		default:
			out = append(out, op{kind: opInsert, t: -1, c: ins[j]})
			j++
		}
	}
	for ; i < n; i++ {
		out = append(out, op{kind: opDelete, t: dels[i], c: -1})
	}
	for ; j < m; j++ {
		out = append(out, op{kind: opInsert, t: -1, c: ins[j]})
	}
	return out
}

// similarity is the Dice coefficient over word tokens, in [0,1].
func similarity(a, b string) float64 {
	ta, tb := tokens(a), tokens(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	counts := make(map[string]int, len(ta))
	for _, tok := range ta {
		counts[tok]++
	}
	common := 0
	for _, tok := range tb {
		if counts[tok] > 0 {
			counts[tok]--
			common++
		}
	}
	return 2 * float64(common) / float64(len(ta)+len(tb))
}

// sequenceSimilarity is 2*LCS/(len(a)+len(b)) over word sequences, so
// reordered words score below 1.
func sequenceSimilarity(a, b []string) float64 {
	if len(a)+len(b) == 0 {
		return 1
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := range a {
		for j := range b {
			if a[i] == b[j] {
				cur[j+1] = prev[j] + 1
			} else {
				cur[j+1] = max(prev[j+1], cur[j])
			}
		}
		prev, cur = cur, prev
	}
	return 2 * float64(prev[len(b)]) / float64(len(a)+len(b))
}

func tokens(s string) []string {
	return words(strings.ToLower(s))
}

// words splits s on everything but letters, digits, '$' and brackets.
func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '$' && r != '[' && r != ']'
	})
}

// figurePattern matches amounts, percentages and section references with
// their separators, so "$50,000" and "$50.000" differ.
var figurePattern = regexp.MustCompile(`[$€£¥§]?\d+(?:[.,]\d+)*%?`)

// figures returns the figures in s in document order.
func figures(s string) []string {
	return figurePattern.FindAllString(s, -1)
}

var (
	headingWord   = regexp.MustCompile(`(?i)^(section|article|clause|schedule|exhibit|annex|appendix|part)\s+[\w.]+`)
	headingNumber = regexp.MustCompile(`^(\d+(\.\d+)*\.|\d+(\.\d+)+)\s+\S`)
)

const maxHeadingLen = 80

// isHeading reports whether a paragraph looks like a section title.
func isHeading(p string) bool {
	if p == "" || len([]rune(p)) > maxHeadingLen {
		return false
	}
	if isUpper(p) {
		return true
	}
	if strings.HasSuffix(p, ".") || strings.HasSuffix(p, ";") || strings.HasSuffix(p, ",") {
		return false
	}
	return headingWord.MatchString(p) || headingNumber.MatchString(p)
}

func isUpper(p string) bool {
	letters := 0
	for _, r := range p {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 2
}
