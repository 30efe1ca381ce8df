package pcfg

import "sort"

// GrammarEntry is one concrete fill for a non-letter token, paired with its
// probability.
type GrammarEntry struct {
	Substring   string
	Probability float64
}

// Grammar maps a non-letter token's textual form (e.g. "D3") to its
// probability distribution over concrete fills, sorted probability
// descending with ties broken lexicographically ascending on the
// substring, per the classifier's determinism contract.
type Grammar map[string][]GrammarEntry

// NewGrammar builds a Grammar from raw per-token substring counts,
// normalizing each token's counts into a probability distribution and
// sorting it deterministically.
func NewGrammar(counts map[string]map[string]float64) Grammar {
	g := make(Grammar, len(counts))
	for token, hist := range counts {
		var total float64
		for _, c := range hist {
			total += c
		}
		entries := make([]GrammarEntry, 0, len(hist))
		for sub, c := range hist {
			entries = append(entries, GrammarEntry{Substring: sub, Probability: c / total})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Probability != entries[j].Probability {
				return entries[i].Probability > entries[j].Probability
			}
			return entries[i].Substring < entries[j].Substring
		})
		g[token] = entries
	}
	return g
}

// Tokens returns the grammar's token keys in ascending lexicographic order.
func (g Grammar) Tokens() []string {
	toks := make([]string, 0, len(g))
	for t := range g {
		toks = append(toks, t)
	}
	sort.Strings(toks)
	return toks
}
