package pcfg

import (
	"regexp"
	"strings"
)

var letterSlotRe = regexp.MustCompile(`\|L(\d+)\|`)

// PreterminalGuesser expands a preterminal into every concrete guess
// obtainable by substituting glossary words for its letter slots. The
// ordered list of letter-slot lengths is extracted from the preterminal and
// treated as a mixed-radix counter over the corresponding glossary
// buckets, incrementing little-endian from the last slot with carry.
type PreterminalGuesser struct {
	glossary Glossary
	lens     []int
	fmtParts []string // literal segments; len(fmtParts) == len(lens)+1
	idxs     []int
	exhausted bool
	first     bool
}

// NewPreterminalGuesser builds a guesser for preterminal over glossary.
func NewPreterminalGuesser(preterminal string, glossary Glossary) *PreterminalGuesser {
	var lens []int
	matches := letterSlotRe.FindAllStringSubmatchIndex(preterminal, -1)
	parts := make([]string, 0, len(matches)+1)
	last := 0
	for _, m := range matches {
		parts = append(parts, preterminal[last:m[0]])
		lenStr := preterminal[m[2]:m[3]]
		n := 0
		for _, c := range lenStr {
			n = n*10 + int(c-'0')
		}
		lens = append(lens, n)
		last = m[1]
	}
	parts = append(parts, preterminal[last:])

	g := &PreterminalGuesser{
		glossary: glossary,
		lens:     lens,
		fmtParts: parts,
	}
	g.Reset()
	return g
}

// Reset rewinds the guesser to its first guess.
func (g *PreterminalGuesser) Reset() {
	g.idxs = make([]int, len(g.lens))
	g.exhausted = false
	g.first = true
}

// render builds the guess string for the current index vector.
func (g *PreterminalGuesser) render() string {
	var sb strings.Builder
	for i, part := range g.fmtParts {
		sb.WriteString(part)
		if i < len(g.lens) {
			bucket := g.glossary[g.lens[i]]
			sb.WriteString(bucket[g.idxs[i]])
		}
	}
	return sb.String()
}

// Next returns the next guess and true, or "" and false once every
// combination has been produced. A preterminal with no letter slots yields
// exactly one guess: the preterminal with its delimiters stripped. A
// preterminal with a letter slot whose glossary bucket is empty yields
// nothing.
func (g *PreterminalGuesser) Next() (string, bool) {
	if g.exhausted {
		return "", false
	}
	for _, l := range g.lens {
		if len(g.glossary[l]) == 0 {
			g.exhausted = true
			return "", false
		}
	}

	if len(g.lens) == 0 {
		if !g.first {
			g.exhausted = true
			return "", false
		}
		g.first = false
		g.exhausted = true
		return g.render(), true
	}

	if g.first {
		g.first = false
		return g.render(), true
	}

	// Increment the mixed-radix counter little-endian from the last slot.
	i := len(g.idxs) - 1
	for {
		g.idxs[i]++
		if g.idxs[i] < len(g.glossary[g.lens[i]]) {
			break
		}
		g.idxs[i] = 0
		i--
		if i < 0 {
			g.exhausted = true
			return "", false
		}
	}
	return g.render(), true
}

// Count returns the total number of distinct guesses this preterminal
// would produce, the product of each letter slot's glossary-bucket size
// (or 1 if there are no letter slots), provided every bucket is non-empty.
func (g *PreterminalGuesser) Count() int {
	if len(g.lens) == 0 {
		return 1
	}
	total := 1
	for _, l := range g.lens {
		n := len(g.glossary[l])
		if n == 0 {
			return 0
		}
		total *= n
	}
	return total
}
