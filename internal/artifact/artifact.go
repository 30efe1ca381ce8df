// Package artifact reads and writes the three classifier-emitted files
// that are the on-disk contract between the classifier and everything
// downstream of it: the base-structures file, the grammar file, and the
// glossary file. All three are UTF-8, LF-terminated, whitespace-separated
// text, written deterministically so two classifier runs on the same
// corpus produce byte-identical output.
package artifact

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fiddeb/cracken-go/pkg/pcfg"
)

// WriteBaseStructures writes the base-structures file: one
// "<base-structure> <probability>" record per line, ordered probability
// descending with ties broken by ascending base-structure text.
func WriteBaseStructures(w io.Writer, dist pcfg.BaseStructureDistribution) error {
	bw := bufio.NewWriter(w)
	for _, bp := range dist {
		if _, err := fmt.Fprintf(bw, "%-20s %s\n", bp.Base.String(), formatProb(bp.Probability)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteBaseStructuresFile creates/truncates path and writes the
// base-structures file to it.
func WriteBaseStructuresFile(path string, dist pcfg.BaseStructureDistribution) error {
	return writeToFile(path, func(w io.Writer) error { return WriteBaseStructures(w, dist) })
}

// ReadBaseStructures reads a base-structures file. Reading is
// whitespace-tolerant regardless of the padding used on write.
func ReadBaseStructures(r io.Reader) (pcfg.BaseStructureDistribution, error) {
	scanner := bufio.NewScanner(r)
	var dist pcfg.BaseStructureDistribution
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("artifact: malformed base-structures line %q", line)
		}
		base, err := parseBaseStructure(fields[0])
		if err != nil {
			return nil, err
		}
		prob, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("artifact: malformed probability %q: %w", fields[1], err)
		}
		dist = append(dist, pcfg.BaseStructureProb{Base: base, Probability: prob})
	}
	return dist, scanner.Err()
}

// ReadBaseStructuresFile opens path and reads it as a base-structures file.
func ReadBaseStructuresFile(path string) (pcfg.BaseStructureDistribution, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening base structures file: %w", err)
	}
	defer f.Close()
	return ReadBaseStructures(f)
}

// WriteGrammar writes the grammar file: "<token> <substring> <probability>"
// records, grouped and ordered by token ascending, then probability
// descending, then substring ascending (the ordering NewGrammar already
// produces per token; tokens themselves are iterated in sorted order).
func WriteGrammar(w io.Writer, g pcfg.Grammar) error {
	bw := bufio.NewWriter(w)
	for _, token := range g.Tokens() {
		for _, entry := range g[token] {
			if _, err := fmt.Fprintf(bw, "%-3s %-10s %s\n", token, entry.Substring, formatProb(entry.Probability)); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WriteGrammarFile creates/truncates path and writes the grammar file to it.
func WriteGrammarFile(path string, g pcfg.Grammar) error {
	return writeToFile(path, func(w io.Writer) error { return WriteGrammar(w, g) })
}

// ReadGrammar reads a grammar file.
func ReadGrammar(r io.Reader) (pcfg.Grammar, error) {
	scanner := bufio.NewScanner(r)
	g := make(pcfg.Grammar)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("artifact: malformed grammar line %q", line)
		}
		prob, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("artifact: malformed probability %q: %w", fields[2], err)
		}
		g[fields[0]] = append(g[fields[0]], pcfg.GrammarEntry{Substring: fields[1], Probability: prob})
	}
	return g, scanner.Err()
}

// ReadGrammarFile opens path and reads it as a grammar file.
func ReadGrammarFile(path string) (pcfg.Grammar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening grammar file: %w", err)
	}
	defer f.Close()
	return ReadGrammar(f)
}

// WriteGlossary writes the glossary file: "<length> <word>" records
// ordered by length ascending, then word ascending. Words have no embedded
// whitespace.
func WriteGlossary(w io.Writer, g pcfg.Glossary) error {
	bw := bufio.NewWriter(w)
	for _, length := range g.Lengths() {
		for _, word := range g[length] {
			if _, err := fmt.Fprintf(bw, "%-3d %s\n", length, word); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WriteGlossaryFile creates/truncates path and writes the glossary file to it.
func WriteGlossaryFile(path string, g pcfg.Glossary) error {
	return writeToFile(path, func(w io.Writer) error { return WriteGlossary(w, g) })
}

// ReadGlossary reads a glossary file.
func ReadGlossary(r io.Reader) (pcfg.Glossary, error) {
	scanner := bufio.NewScanner(r)
	g := make(pcfg.Glossary)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("artifact: malformed glossary line %q", line)
		}
		length, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("artifact: malformed length %q: %w", fields[0], err)
		}
		g[length] = append(g[length], fields[1])
	}
	return g, scanner.Err()
}

// ReadGlossaryFile opens path and reads it as a glossary file.
func ReadGlossaryFile(path string) (pcfg.Glossary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening glossary file: %w", err)
	}
	defer f.Close()
	return ReadGlossary(f)
}

// formatProb renders a probability in the shortest form that round-trips
// exactly through strconv.ParseFloat; very small values use exponent
// notation (e.g. "1e-07").
func formatProb(p float64) string {
	return strconv.FormatFloat(p, 'g', -1, 64)
}

// parseBaseStructure parses the "|"-delimited textual form of a base
// structure, e.g. "L4|D3|S1", back into tokens.
func parseBaseStructure(s string) (pcfg.BaseStructure, error) {
	parts := strings.Split(s, "|")
	base := make(pcfg.BaseStructure, 0, len(parts))
	for _, p := range parts {
		if len(p) < 2 {
			return nil, fmt.Errorf("artifact: malformed token %q", p)
		}
		run, err := strconv.Atoi(p[1:])
		if err != nil {
			return nil, fmt.Errorf("artifact: malformed token run length %q: %w", p, err)
		}
		base = append(base, pcfg.Token{Class: pcfg.Class(p[0]), Run: run})
	}
	return base, nil
}

func writeToFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
