// Package dice implements the dice rolls used by combat resolution.
package dice

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrInvalidSpec indicates a roll with non-positive sides or count.
var ErrInvalidSpec = errors.New("dice must have positive sides and count")

// Roll captures the results of rolling count dice with the same number of
// sides. Results appear in the order the dice were rolled.
type Roll struct {
	Sides   int
	Results []int
	Total   int
}

// Roller produces dice rolls from a single random source. It is safe
// for concurrent use; rolls are serialized.
//
// A Roller built with NewSeeded is deterministic: the same seed and the
// same sequence of calls always produce the same results, which is what
// the combat tests rely on.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a time-seeded Roller.
func New() *Roller {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a deterministic Roller.
func NewSeeded(seed int64) *Roller {
	return &Roller{rng: rand.New(rand.NewSource(seed))}
}

// Roll rolls count dice with the given number of sides.
func (r *Roller) Roll(count, sides int) (Roll, error) {
	if count <= 0 || sides <= 0 {
		return Roll{}, ErrInvalidSpec
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := Roll{Sides: sides, Results: make([]int, 0, count)}
	for i := 0; i < count; i++ {
		v := r.rng.Intn(sides) + 1
		out.Results = append(out.Results, v)
		out.Total += v
	}
	return out, nil
}

// Sum is a convenience wrapper for callers that only need the total of a
// known-valid roll.
func (r *Roller) Sum(count, sides int) int {
	roll, err := r.Roll(count, sides)
	if err != nil {
		return 0
	}
	return roll.Total
}
