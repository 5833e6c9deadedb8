package dice_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/PabloGalante/arcana-engine/internal/dice"
)

func TestRollBounds(t *testing.T) {
	r := dice.New()

	for i := 0; i < 200; i++ {
		roll, err := r.Roll(2, 6)
		if err != nil {
			t.Fatalf("Roll failed: %v", err)
		}
		if len(roll.Results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(roll.Results))
		}
		if roll.Total < 2 || roll.Total > 12 {
			t.Fatalf("2d6 total out of range: %d", roll.Total)
		}
		for _, v := range roll.Results {
			if v < 1 || v > 6 {
				t.Fatalf("d6 result out of range: %d", v)
			}
		}
	}
}

func TestRollDeterministicWithSeed(t *testing.T) {
	a := dice.NewSeeded(42)
	b := dice.NewSeeded(42)

	for i := 0; i < 20; i++ {
		ra, _ := a.Roll(1, 8)
		rb, _ := b.Roll(1, 8)
		if ra.Total != rb.Total {
			t.Fatalf("seeded rollers diverged at roll %d: %d vs %d", i, ra.Total, rb.Total)
		}
	}
}

func TestRollConcurrentUse(t *testing.T) {
	r := dice.NewSeeded(42)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if total := r.Sum(2, 6); total < 2 || total > 12 {
					t.Errorf("2d6 total out of range under concurrency: %d", total)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestRollInvalidSpec(t *testing.T) {
	r := dice.New()

	if _, err := r.Roll(0, 6); !errors.Is(err, dice.ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec for zero count, got %v", err)
	}
	if _, err := r.Roll(1, 0); !errors.Is(err, dice.ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec for zero sides, got %v", err)
	}
}
