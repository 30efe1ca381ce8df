package pcfg

import "fmt"

// Rule is a deterministic, total rewrite of a guess string. Rules must
// never fail; they are applied blindly across all 2^k subsets of the
// registered rule set.
type Rule func(string) string

// MaxRules bounds the number of rules a ManglingEngine may hold, since the
// engine enumerates 2^k subsets; the mask and its 2^k limit are held in an
// int, which holds 2^32 on 64-bit platforms.
const MaxRules = 32

// ManglingEngine holds an ordered list of rewrite rules and, for any input
// word, enumerates the 2^k transformed variants obtained by applying every
// subset of the registered rules in registration order. Enumeration order
// interprets a counter 0..2^k-1 as a big-endian bitmask over the rule list:
// bit 0 (the most significant bit of the mask) controls the first
// registered rule.
type ManglingEngine struct {
	rules []Rule
}

// NewManglingEngine constructs an engine with the given rules, applied in
// the order given.
func NewManglingEngine(rules ...Rule) (*ManglingEngine, error) {
	if len(rules) > MaxRules {
		return nil, fmt.Errorf("mangling engine: %d rules exceeds max of %d", len(rules), MaxRules)
	}
	return &ManglingEngine{rules: append([]Rule(nil), rules...)}, nil
}

// Len reports the number of registered rules.
func (m *ManglingEngine) Len() int { return len(m.rules) }

// Variants returns, in bitmask order, every transformation of word obtained
// by applying some subset of the registered rules. For k=0 registered
// rules the sole result is word unchanged.
func (m *ManglingEngine) Variants(word string) []string {
	k := len(m.rules)
	n := 1 << uint(k)
	out := make([]string, 0, n)
	for mask := 0; mask < n; mask++ {
		out = append(out, m.apply(word, mask))
	}
	return out
}

// apply transforms word by applying the rules selected by mask, a
// big-endian bitmask over the rule list.
func (m *ManglingEngine) apply(word string, mask int) string {
	k := len(m.rules)
	guess := word
	for i, rule := range m.rules {
		bit := (mask >> uint(k-1-i)) & 1
		if bit == 1 {
			guess = rule(guess)
		}
	}
	return guess
}

// ManglingIterator is a restartable lazy sequence over a ManglingEngine's
// variants of a single word, matching the Next (item | end) iterator
// capability shared with the preterminal guesser and enumerator.
type ManglingIterator struct {
	engine *ManglingEngine
	word   string
	mask   int
	limit  int
}

// Iterate returns a fresh iterator over word's variants.
func (m *ManglingEngine) Iterate(word string) *ManglingIterator {
	return &ManglingIterator{engine: m, word: word, mask: 0, limit: 1 << uint(len(m.rules))}
}

// Next returns the next variant and true, or "" and false once all 2^k
// variants have been produced.
func (it *ManglingIterator) Next() (string, bool) {
	if it.mask >= it.limit {
		return "", false
	}
	v := it.engine.apply(it.word, it.mask)
	it.mask++
	return v, true
}
