package srs

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"

	"github.com/phrazzld/scry-srs/internal/domain"
)

// fuzzRange describes how much of an interval band may be perturbed.
type fuzzRange struct {
	start, end, factor float64
}

var fuzzRanges = []fuzzRange{
	{start: 2.5, end: 7, factor: 0.15},
	{start: 7, end: 20, factor: 0.1},
	{start: 20, end: math.Inf(1), factor: 0.05},
}

// fuzzer perturbs day intervals with a factor derived from the review inputs,
// so identical inputs always produce identical intervals.
type fuzzer struct {
	enabled bool
	factor  float64
	maxIvl  int
}

func newFuzzer(card *domain.Card, now time.Time, params *Params) fuzzer {
	if !params.EnableFuzz {
		return fuzzer{maxIvl: params.MaximumInterval}
	}
	h := fnv.New64a()
	_, _ = h.Write(card.ID[:])
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(card.Reps))
	binary.LittleEndian.PutUint64(buf[8:], uint64(now.UnixNano()))
	_, _ = h.Write(buf[:])
	seed := h.Sum64()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return fuzzer{enabled: true, factor: rng.Float64(), maxIvl: params.MaximumInterval}
}

// apply returns a fuzzed interval. Intervals below 2.5 days are returned as is,
// so same-day steps and one- or two-day graduations are never perturbed.
func (f fuzzer) apply(interval, elapsedDays int) int {
	ivl := float64(interval)
	if !f.enabled || ivl < 2.5 {
		return interval
	}

	delta := 1.0
	for _, r := range fuzzRanges {
		delta += r.factor * math.Max(math.Min(ivl, r.end)-r.start, 0)
	}

	minIvl := max(2, int(math.Round(ivl-delta)))
	maxIvl := min(int(math.Round(ivl+delta)), f.maxIvl)
	if interval > elapsedDays {
		minIvl = max(minIvl, elapsedDays+1)
	}
	minIvl = min(minIvl, maxIvl)

	fuzzed := int(math.Floor(f.factor*float64(maxIvl-minIvl+1))) + minIvl
	return min(max(fuzzed, 1), f.maxIvl)
}
