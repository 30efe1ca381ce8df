package pcfg

import "sort"

// BaseStructureProb pairs a base structure with its corpus probability.
type BaseStructureProb struct {
	Base        BaseStructure
	Probability float64
}

// BaseStructureDistribution is the ordered list of base structures and
// their probabilities, ordered probability descending with ties broken by
// ascending base-structure text, per the classifier's determinism
// contract. Probabilities sum to 1 over the training set.
type BaseStructureDistribution []BaseStructureProb

// NewBaseStructureDistribution builds a distribution from raw occurrence
// counts, normalizing by totalLines and sorting deterministically.
func NewBaseStructureDistribution(counts map[string]float64, bases map[string]BaseStructure, totalLines int) BaseStructureDistribution {
	dist := make(BaseStructureDistribution, 0, len(counts))
	for text, c := range counts {
		dist = append(dist, BaseStructureProb{
			Base:        bases[text],
			Probability: c / float64(totalLines),
		})
	}
	sort.Slice(dist, func(i, j int) bool {
		if dist[i].Probability != dist[j].Probability {
			return dist[i].Probability > dist[j].Probability
		}
		return dist[i].Base.String() < dist[j].Base.String()
	})
	return dist
}
