package violation

import (
	"strings"
	"unicode"
)

// Translator turns one backend's category scores into domains.
type Translator interface {
	Provider() string
	Translate(scores map[string]float64) List
}

// LabelTable is a Translator driven by a fixed label to domain table.
// Lookups ignore case. A label mapped to "" is informational and dropped;
// a label missing from the table becomes its own slugged domain.
type LabelTable struct {
	provider string
	labels   map[string]Domain
}

// NewLabelTable builds a LabelTable for provider.
func NewLabelTable(provider string, labels map[string]Domain) *LabelTable {
	m := make(map[string]Domain, len(labels))
	for label, d := range labels {
		m[strings.ToLower(label)] = d
	}
	return &LabelTable{provider: provider, labels: m}
}

func (t *LabelTable) Provider() string { return t.provider }

// Translate returns one Violation per domain, highest confidence first.
func (t *LabelTable) Translate(scores map[string]float64) List {
	var list List
	for label, score := range scores {
		d, ok := t.labels[strings.ToLower(label)]
		if !ok {
			d = Domain(Slug(label))
		}
		if d == "" {
			continue
		}
		list = append(list, Violation{
			Domain:     d,
			Confidence: score,
			Providers:  []string{t.provider},
			Labels:     []string{label},
		})
	}
	return Merge(list)
}

// Slug lower-cases a label and joins its words with underscores:
// "Death, Harm & Tragedy" becomes "death_harm_tragedy".
func Slug(label string) string {
	var b strings.Builder
	gap := false
	for _, r := range label {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			gap = true
			continue
		}
		if gap && b.Len() > 0 {
			b.WriteByte('_')
		}
		gap = false
		b.WriteRune(unicode.ToLower(r))
	}
	if b.Len() == 0 {
		return string(DomainOther)
	}
	return b.String()
}
