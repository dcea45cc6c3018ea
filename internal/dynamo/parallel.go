package dynamo

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// ParallelFor executes fn once per range and returns the first error.
// When parallel is false the ranges are visited in index order on the
// calling goroutine, which keeps any sequential side effect (a shared
// random number stream) independent of the partitioning.
func ParallelFor(ranges []Range, parallel bool, fn func(i int, r Range) error) error {
	if !parallel || len(ranges) <= 1 {
		for i, r := range ranges {
			if err := fn(i, r); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	for i, r := range ranges {
		g.Go(func() error {
			return fn(i, r)
		})
	}
	return g.Wait()
}

// ForEachRange is ParallelFor for callbacks that cannot fail.
func ForEachRange(ranges []Range, parallel bool, fn func(i int, r Range)) {
	if !parallel || len(ranges) <= 1 {
		for i, r := range ranges {
			fn(i, r)
		}
		return
	}

	var wg sync.WaitGroup
	for i, r := range ranges {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(i, r)
		}()
	}
	wg.Wait()
}

// ReduceTensors sums the per-range partial tensors into dst, slot by slot.
func ReduceTensors(dst []Tensor, partials [][]Tensor) {
	for g := range dst {
		dst[g] = Tensor{}
	}
	for _, p := range partials {
		for g := range dst {
			dst[g] = dst[g].Add(p[g])
		}
	}
}

// ReduceVecs sums the per-range partial vectors into dst, slot by slot.
func ReduceVecs(dst []Vec3, partials [][]Vec3) {
	for g := range dst {
		dst[g] = Vec3{}
	}
	for _, p := range partials {
		for g := range dst {
			dst[g] = dst[g].Add(p[g])
		}
	}
}
