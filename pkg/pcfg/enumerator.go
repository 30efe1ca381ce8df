package pcfg

import (
	"container/heap"
	"fmt"
	"math"
	"strings"
)

// OrderingMode selects the sort surrogate the enumerator's heap is keyed
// by. Ordering by 1 - prod P(t_j, i_j) alone does not compare correctly across
// base structures, since it ignores each base structure's own
// probability; NegLogProb corrects this.
type OrderingMode int

const (
	// NegLogProb keys the heap by -log(P(B) * prod P(t_j, i_j)), which
	// orders correctly across base structures. This is the default and
	// recommended mode.
	NegLogProb OrderingMode = iota
	// OneMinusProb keys the heap by 1 - prod P(t_j, i_j) alone. It ignores
	// the base structure's own probability and therefore does not
	// correctly order preterminals that come from different base
	// structures against each other, but is kept for callers that want
	// that exact ordering behavior.
	OneMinusProb
)

// pqItem is one entry in the enumerator's frontier: a base-structure index
// plus a per-non-letter-token index vector into that base structure's
// grammar fills.
type pqItem struct {
	key      float64 // smaller is better (min-heap)
	baseIdx  int
	idxs     []int
}

type pqueue []pqItem

func (q pqueue) Len() int            { return len(q) }
func (q pqueue) Less(i, j int) bool  { return q[i].key < q[j].key }
func (q pqueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *pqueue) Push(x interface{}) { *q = append(*q, x.(pqItem)) }
func (q *pqueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// visitedKey uniquely identifies a (base structure, index-vector) pair for
// the enumerator's duplicate-suppression set.
func visitedKey(baseIdx int, idxs []int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d:", baseIdx)
	for _, i := range idxs {
		fmt.Fprintf(&sb, "%d,", i)
	}
	return sb.String()
}

// Enumerator produces preterminals from a base-structure distribution and a
// grammar in strictly non-increasing probability order, via a best-first
// heap search that never materializes the full cross product. Memory is
// bounded by an optional max-heap-size cap; when capped, the lowest
// priority frontier entries are dropped, trading bounded suboptimality for
// bounded memory.
type Enumerator struct {
	bases   BaseStructureDistribution
	grammar Grammar
	mode    OrderingMode
	maxHeap int // 0 means unbounded

	queue   pqueue
	visited map[string]struct{}
	started bool
}

// NewEnumerator constructs an Enumerator over the given artifacts. maxHeap
// of 0 means the frontier is never capped.
func NewEnumerator(bases BaseStructureDistribution, grammar Grammar, mode OrderingMode, maxHeap int) *Enumerator {
	return &Enumerator{
		bases:   bases,
		grammar: grammar,
		mode:    mode,
		maxHeap: maxHeap,
		visited: make(map[string]struct{}),
	}
}

// ptProbability returns P(B, i-vector) for the given base structure index
// and non-letter-token index vector.
func (e *Enumerator) ptProbability(baseIdx int, idxs []int) float64 {
	bp := e.bases[baseIdx]
	prod := bp.Probability
	nonLetter := bp.Base.NonLetterTokens()
	for j, tok := range nonLetter {
		entries := e.grammar[tok.String()]
		prod *= entries[idxs[j]].Probability
	}
	return prod
}

// key computes the ordering surrogate for the given state under the
// configured OrderingMode.
func (e *Enumerator) key(baseIdx int, idxs []int) float64 {
	switch e.mode {
	case OneMinusProb:
		// Only the fills' probabilities; P(B) is left out of this key.
		fills := 1.0
		for j, tok := range e.bases[baseIdx].Base.NonLetterTokens() {
			fills *= e.grammar[tok.String()][idxs[j]].Probability
		}
		return 1 - fills
	default:
		return negLog(e.ptProbability(baseIdx, idxs))
	}
}

func negLog(p float64) float64 {
	if p <= 0 {
		return math.Inf(1)
	}
	return -math.Log(p)
}

// buildPreterminal walks the base structure in order, emitting |L<n>|
// placeholders for letter tokens and the chosen grammar substring inline
// (no delimiters) for every other token.
func (e *Enumerator) buildPreterminal(baseIdx int, idxs []int) string {
	bp := e.bases[baseIdx]
	var sb strings.Builder
	nonLetterPos := 0
	for _, t := range bp.Base {
		if t.IsLetter() {
			sb.WriteByte('|')
			sb.WriteString(t.String())
			sb.WriteByte('|')
		} else {
			entries := e.grammar[t.String()]
			sb.WriteString(entries[idxs[nonLetterPos]].Substring)
			nonLetterPos++
		}
	}
	return sb.String()
}

// ensureStarted seeds the heap with one entry per base structure at index
// vector (0,...,0), the maximizer for that base structure since each
// per-token grammar list is sorted probability-descending.
func (e *Enumerator) ensureStarted() {
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	for idx, bp := range e.bases {
		idxs := make([]int, len(bp.Base.NonLetterTokens()))
		e.pushIfNew(idx, idxs)
	}
}

func (e *Enumerator) pushIfNew(baseIdx int, idxs []int) {
	vk := visitedKey(baseIdx, idxs)
	if _, ok := e.visited[vk]; ok {
		return
	}
	e.visited[vk] = struct{}{}
	heap.Push(&e.queue, pqItem{key: e.key(baseIdx, idxs), baseIdx: baseIdx, idxs: idxs})

	if e.maxHeap > 0 && e.queue.Len() > e.maxHeap {
		// Drop the current worst (max-key) entry to bound memory,
		// accepting bounded suboptimality in exchange.
		worst := 0
		for i := 1; i < e.queue.Len(); i++ {
			if e.queue[i].key > e.queue[worst].key {
				worst = i
			}
		}
		heap.Remove(&e.queue, worst)
	}
}

// Next returns the next preterminal in non-increasing probability order,
// and true, or "", false once the frontier is exhausted.
func (e *Enumerator) Next() (string, bool) {
	e.ensureStarted()
	if e.queue.Len() == 0 {
		return "", false
	}

	item := heap.Pop(&e.queue).(pqItem)

	nonLetter := e.bases[item.baseIdx].Base.NonLetterTokens()
	for i, tok := range nonLetter {
		if item.idxs[i]+1 < len(e.grammar[tok.String()]) {
			next := append([]int(nil), item.idxs...)
			next[i]++
			e.pushIfNew(item.baseIdx, next)
		}
	}

	return e.buildPreterminal(item.baseIdx, item.idxs), true
}
