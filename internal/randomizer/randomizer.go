// Package randomizer builds the shuffled trial order and the per-trial
// left/right assignment. The generator is seedable so tests can exercise
// distributional properties without flaking.
package randomizer

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/pkoster/pairchoice/internal/models"
)

// Randomizer wraps a seeded source. Safe for use from timer callbacks and
// HTTP handlers interleaving on the sequencer.
type Randomizer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a randomizer seeded with the given value.
func New(seed int64) *Randomizer {
	return &Randomizer{rng: rand.New(rand.NewSource(seed))}
}

// BuildTrialOrder pairs a permutation of the left list against the right
// list in its given order. Every stimulus appears in exactly one trial on
// its side. The two lists must be the same non-zero length.
func (r *Randomizer) BuildTrialOrder(left, right []string) ([]models.TrialSpec, error) {
	if len(left) == 0 {
		return nil, fmt.Errorf("no stimuli to order")
	}
	if len(left) != len(right) {
		return nil, fmt.Errorf("stimulus lists differ in length: %d vs %d", len(left), len(right))
	}

	r.mu.Lock()
	perm := r.rng.Perm(len(left))
	r.mu.Unlock()

	trials := make([]models.TrialSpec, len(left))
	for i, p := range perm {
		trials[i] = models.TrialSpec{
			StimulusA: left[p],
			StimulusB: right[i],
		}
	}
	return trials, nil
}

// ChooseLayout assigns the trial's stimuli to screen sides, picking
// uniformly between the two possible arrangements.
func (r *Randomizer) ChooseLayout(spec models.TrialSpec) models.Layout {
	r.mu.Lock()
	flip := r.rng.Intn(2) == 1
	r.mu.Unlock()

	if flip {
		return models.Layout{Left: spec.StimulusB, Right: spec.StimulusA}
	}
	return models.Layout{Left: spec.StimulusA, Right: spec.StimulusB}
}
