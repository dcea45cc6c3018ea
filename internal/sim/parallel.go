package sim

import (
	"context"
	"sync"
)

// Builder returns a fresh simulator for one replica.
type Builder func(replica int, seed uint64) (*Simulator, error)

// Ensemble runs independent replicas of a system, each with its own seed,
// concurrently.
type Ensemble struct {
	build     Builder
	numRuns   int
	seedStart uint64
}

func NewEnsemble(build Builder, numRuns int, seedStart uint64) *Ensemble {
	return &Ensemble{build: build, numRuns: numRuns, seedStart: seedStart}
}

// Run returns the result of every replica in replica order. The first
// error of any replica is returned after all of them stopped.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			sim, err := e.build(idx, e.seedStart+uint64(idx))
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = sim.Run(ctx)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}

	return results, nil
}
