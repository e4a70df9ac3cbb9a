package classifier

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/kamilpajak/redline/internal/rules"
	"github.com/kamilpajak/redline/pkg/models"
)

// Signals recorded on a change by the heuristic tier.
const (
	SignalLegal               = "legal_terms"
	SignalPlaceholderFilled   = "placeholder_filled"
	SignalPlaceholderAdded    = "placeholder_introduced"
	SignalPlaceholderUnfilled = "placeholder_unfilled"
	SignalMoneyFilled         = "money_filled"
	SignalMoneyChanged        = "money_changed"
	SignalEntityChanged       = "entity_changed"
	SignalUnreadable          = "unreadable"
)

// verdict is the heuristic outcome. floor is what the evidence proves; the
// LLM tier may move the classification but never below floor.
type verdict struct {
	class       models.Classification
	floor       models.Classification
	explanation string
	reviews     []string
	signals     []string
}

func (v *verdict) escalate(signal, review, reason string) {
	v.class = models.ClassificationCritical
	v.floor = models.ClassificationCritical
	v.signals = append(v.signals, signal)
	if review != "" && !slices.Contains(v.reviews, review) {
		v.reviews = append(v.reviews, review)
	}
	v.explanation = joinReason(v.explanation, reason)
}

func joinReason(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}

type heuristics struct {
	rules  *rules.Rules
	entity *regexp.Regexp
}

func newHeuristics(r *rules.Rules) *heuristics {
	return &heuristics{rules: r, entity: entityPattern(r.CorporateSuffixes)}
}

// entityPattern matches capitalised names ending in a corporate suffix, such
// as "Acme Widgets Ltd". Matching is case-sensitive.
func entityPattern(suffixes []string) *regexp.Regexp {
	seen := map[string]bool{}
	var alts []string
	for _, s := range suffixes {
		s = strings.TrimSuffix(strings.TrimSpace(s), ".")
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		alts = append(alts, regexp.QuoteMeta(s))
	}
	if len(alts) == 0 {
		return nil
	}
	sort.Slice(alts, func(i, j int) bool { return len(alts[i]) > len(alts[j]) })
	return regexp.MustCompile(`\b(?:[A-Z][\w&'-]*\s+){1,4}(?:` + strings.Join(alts, "|") + `)\b`)
}

func (h *heuristics) evaluate(ch models.Change) verdict {
	if ch.Synthetic {
		return verdict{
			class:       models.ClassificationCritical,
			floor:       models.ClassificationCritical,
			explanation: "The document could not be read, so no clause could be compared. Manual review required.",
			reviews:     []string{models.ReviewLegal},
			signals:     []string{SignalUnreadable},
		}
	}

	var v verdict
	switch ch.Kind {
	case models.KindModification:
		v = h.modification(ch.BeforeText, ch.AfterText)
	case models.KindInsertion:
		v = h.addedOrRemoved(ch.AfterText, true)
	default:
		v = h.addedOrRemoved(ch.BeforeText, false)
	}

	if terms := h.legalTerms(ch.BeforeText + "\n" + ch.AfterText); len(terms) > 0 {
		v.escalate(SignalLegal, models.ReviewLegal,
			fmt.Sprintf("Touches legal terms (%s).", strings.Join(terms, ", ")))
	}
	return v
}

func (h *heuristics) modification(before, after string) verdict {
	pb := rules.MatchAny(h.rules.Placeholders, before)
	pa := rules.MatchAny(h.rules.Placeholders, after)

	switch {
	case pb && !pa:
		if amounts := h.amounts(after); len(amounts) > 0 {
			v := verdict{}
			v.escalate(SignalMoneyFilled, models.ReviewFinance,
				fmt.Sprintf("Monetary amount filled in: %s.", strings.Join(amounts, ", ")))
			return v
		}
		return verdict{
			class:       models.ClassificationInconsequential,
			floor:       models.ClassificationInconsequential,
			explanation: "Template placeholder filled in with contract-specific details.",
			signals:     []string{SignalPlaceholderFilled},
		}
	case !pb && pa:
		return verdict{
			class:       models.ClassificationSignificant,
			floor:       models.ClassificationSignificant,
			explanation: "Concrete template content was replaced with a placeholder.",
			signals:     []string{SignalPlaceholderAdded},
		}
	case pb && pa:
		return verdict{
			class:       models.ClassificationSignificant,
			floor:       models.ClassificationInconsequential,
			explanation: "Placeholder text was changed but is still not filled in.",
			signals:     []string{SignalPlaceholderUnfilled},
		}
	}

	v := verdict{
		class:       models.ClassificationSignificant,
		floor:       models.ClassificationInconsequential,
		explanation: "Wording differs from the template.",
	}
	mb, ma := h.amounts(before), h.amounts(after)
	if !sameSet(mb, ma) {
		v.escalate(SignalMoneyChanged, models.ReviewFinance,
			fmt.Sprintf("Monetary amounts changed from %s to %s.", listOrNone(mb), listOrNone(ma)))
	}
	eb, ea := h.entities(before), h.entities(after)
	if !sameSet(eb, ea) {
		v.escalate(SignalEntityChanged, models.ReviewProcurement,
			fmt.Sprintf("Named parties changed from %s to %s.", listOrNone(eb), listOrNone(ea)))
	}
	return v
}

func (h *heuristics) addedOrRemoved(text string, inserted bool) verdict {
	verb := "removed from"
	if inserted {
		verb = "added to"
	}
	if rules.MatchAny(h.rules.Placeholders, text) {
		if inserted {
			return verdict{
				class:       models.ClassificationSignificant,
				floor:       models.ClassificationSignificant,
				explanation: "Unfilled placeholder text added to the contract.",
				signals:     []string{SignalPlaceholderAdded},
			}
		}
		return verdict{
			class:       models.ClassificationInconsequential,
			floor:       models.ClassificationInconsequential,
			explanation: "Unused template placeholder paragraph removed.",
			signals:     []string{SignalPlaceholderFilled},
		}
	}

	v := verdict{
		class:       models.ClassificationSignificant,
		floor:       models.ClassificationInconsequential,
		explanation: fmt.Sprintf("Paragraph %s the contract.", verb),
	}
	if amounts := h.amounts(text); len(amounts) > 0 {
		v.escalate(SignalMoneyChanged, models.ReviewFinance,
			fmt.Sprintf("Includes monetary amounts (%s).", strings.Join(amounts, ", ")))
	}
	if entities := h.entities(text); len(entities) > 0 {
		v.escalate(SignalEntityChanged, models.ReviewProcurement,
			fmt.Sprintf("Names parties (%s).", strings.Join(entities, ", ")))
	}
	return v
}

func (h *heuristics) legalTerms(text string) []string {
	var out []string
	for _, m := range rules.FindAll(h.rules.Legal, text) {
		m = strings.ToLower(m)
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return out
}

// amounts returns the monetary amounts in text, normalised for comparison.
func (h *heuristics) amounts(text string) []string {
	var out []string
	for _, m := range rules.FindAll(h.rules.Money, text) {
		m = strings.Join(strings.Fields(m), "")
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return out
}

func (h *heuristics) entities(text string) []string {
	if h.entity == nil {
		return nil
	}
	var out []string
	for _, m := range h.entity.FindAllString(text, -1) {
		words := strings.Fields(m)
		for len(words) > 0 && determiners[words[0]] {
			words = words[1:]
		}
		// "the Company" is a defined term, not a name.
		if len(words) < 2 {
			continue
		}
		name := strings.Join(words, " ")
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

var determiners = map[string]bool{
	"The": true, "This": true, "That": true, "Such": true, "Each": true, "Any": true, "Said": true,
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, s := range a {
		if !slices.Contains(b, s) {
			return false
		}
	}
	return true
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
