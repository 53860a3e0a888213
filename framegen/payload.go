package framegen

import "math/rand"

// PayloadGenerator builds random nested item values out of dictionary words and numbers
type PayloadGenerator struct {
	dict     *Dictionary
	maxDepth int
	maxNodes int
	rng      *rand.Rand
}

func NewPayloadGenerator(dict *Dictionary, maxDepth, maxNodes int, rng *rand.Rand) *PayloadGenerator {
	if maxDepth == 0 {
		maxDepth = 2
	}
	if maxNodes == 0 {
		maxNodes = 6
	}
	return &PayloadGenerator{
		dict:     dict,
		maxDepth: maxDepth,
		maxNodes: maxNodes,
		rng:      rng,
	}
}

// Object creates a random object; at max depth it is a single key-value pair
func (pg *PayloadGenerator) Object(depth int) map[string]any {
	if depth >= pg.maxDepth {
		return map[string]any{pg.dict.RandomWord(pg.rng): pg.scalar()}
	}

	nodeCount := pg.rng.Intn(pg.maxNodes) + 1
	obj := make(map[string]any, nodeCount)
	for i := 0; i < nodeCount; i++ {
		key := pg.dict.RandomWord(pg.rng)
		// 30% chance of nesting deeper
		if depth < pg.maxDepth-1 && pg.rng.Float32() < 0.3 {
			obj[key] = pg.Object(depth + 1)
		} else {
			obj[key] = pg.scalar()
		}
	}
	return obj
}

// Samples creates a digitizer-style series of n readings
func (pg *PayloadGenerator) Samples(n int) []float64 {
	samples := make([]float64, n)
	baseline := pg.rng.Float64() * 10
	for i := range samples {
		samples[i] = baseline + pg.rng.NormFloat64()
	}
	return samples
}

func (pg *PayloadGenerator) scalar() any {
	switch pg.rng.Intn(3) {
	case 0:
		return pg.rng.Intn(10000)
	case 1:
		return pg.rng.Float64() * 1000
	default:
		return pg.dict.RandomWord(pg.rng)
	}
}
