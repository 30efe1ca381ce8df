package pcfg

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// ClassifyResult holds the three artifacts produced by classifying a
// training corpus: the base-structure distribution, the probabilistic
// grammar, and the glossary.
type ClassifyResult struct {
	Bases    BaseStructureDistribution
	Grammar  Grammar
	Glossary Glossary

	// LinesSkipped counts non-UTF-8 lines that were skipped rather than
	// causing a fatal error.
	LinesSkipped int
}

// Classify reads one password per line from r (lines are trimmed of
// leading/trailing whitespace; blank lines are permitted but contribute no
// counts) and returns the glossary, grammar, and base-structure
// distribution derived from it.
//
// A corpus with zero contributing lines is a fatal error: no empty
// distribution can satisfy the probability-mass invariant.
func Classify(r io.Reader, logger *slog.Logger) (ClassifyResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	baseCounts := make(map[string]float64)
	baseShapes := make(map[string]BaseStructure)
	glossBuckets := make(map[int]map[string]struct{})
	grammarCounts := make(map[string]map[string]float64)

	total := 0
	linesSkipped := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !utf8.ValidString(line) {
			logger.Warn("skipping non-UTF-8 line during classification")
			linesSkipped++
			continue
		}

		word := strings.TrimSpace(line)
		if word == "" {
			continue
		}
		total++

		tok := Tokenize(word)
		if len(tok.Base) == 0 {
			continue
		}

		baseText := tok.Base.String()
		baseCounts[baseText]++
		baseShapes[baseText] = tok.Base

		for i, t := range tok.Base {
			sub := tok.Substrings[i]
			if t.IsLetter() {
				bucket, ok := glossBuckets[t.Run]
				if !ok {
					bucket = make(map[string]struct{})
					glossBuckets[t.Run] = bucket
				}
				bucket[sub] = struct{}{}
			} else {
				label := t.String()
				hist, ok := grammarCounts[label]
				if !ok {
					hist = make(map[string]float64)
					grammarCounts[label] = hist
				}
				hist[sub]++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return ClassifyResult{}, fmt.Errorf("reading corpus: %w", err)
	}
	if total == 0 {
		return ClassifyResult{}, fmt.Errorf("corpus contained zero contributing lines")
	}

	return ClassifyResult{
		Bases:        NewBaseStructureDistribution(baseCounts, baseShapes, total),
		Grammar:      NewGrammar(grammarCounts),
		Glossary:     NewGlossary(glossBuckets),
		LinesSkipped: linesSkipped,
	}, nil
}
