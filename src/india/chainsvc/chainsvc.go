// Package chainsvc folds a chain of N sequential deltas
// D1: V0->V1, D2: V1->V2, ..., DN: V(N-1)->VN into a single delta
// V0->VN via repeated delta/merge.Merge calls, bounding peak memory by
// merging in a pairwise tree rather than one long left-to-right fold:
// each round merges adjacent pairs independently and concurrently,
// halving the chain's length, the same "parallelism only across
// disjoint wholestate.State values, never by sharing one" model
// spec.md's concurrency section requires.
package chainsvc

import (
	"sync"

	"github.com/morfoh/xdelta3/src/alfa/errors"
	"github.com/morfoh/xdelta3/src/delta/merge"
	"github.com/morfoh/xdelta3/src/delta/wholestate"
)

// ChainOrderStrategy decides the order in which a round's independent
// pairwise merges are submitted to the worker pool. It does not affect
// correctness (every pair in a round is merged regardless of order);
// it only affects which merges a bounded pool starts first, the same
// role SizeBasedSelector's grouping plays in choosing delta bases.
type ChainOrderStrategy interface {
	// Order returns a permutation of [0, len(costs)) describing
	// submission order, given each round pair's size-based cost.
	Order(costs []uint64) []int
}

// SmallestFirst submits the cheapest (smallest combined length) pairs
// first, so a bounded worker pool finishes short merges and frees
// workers for the larger pairs sooner rather than starving behind them.
type SmallestFirst struct{}

var _ ChainOrderStrategy = SmallestFirst{}

func (SmallestFirst) Order(costs []uint64) []int {
	order := make([]int, len(costs))
	for i := range order {
		order[i] = i
	}

	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && costs[order[j]] < costs[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	return order
}

// ProgressFunc is called after each pairwise merge completes, reporting
// the number of pairwise merges in the current round and how many of
// them have completed so far; india/mergesvc uses this
// to expose in-flight chain-compaction progress over HTTP.
type ProgressFunc func(roundTotal, roundDone int)

// Options configures Compact.
type Options struct {
	// Workers bounds the number of concurrent merges per round. A
	// value <= 1 runs strictly sequentially.
	Workers int
	Strategy ChainOrderStrategy
	OnProgress ProgressFunc
}

// Compact folds deltas down to a single equivalent whole-state delta.
// deltas must already be in chain order (deltas[i] maps V_i -> V_(i+1));
// Compact does not reorder them, only the independent pairwise merges
// within a round.
func Compact(deltas []*wholestate.State, opts Options) (*wholestate.State, error) {
	if len(deltas) == 0 {
		return nil, errors.Errorf("chainsvc: Compact requires at least one delta")
	}

	if opts.Strategy == nil {
		opts.Strategy = SmallestFirst{}
	}

	if opts.Workers < 1 {
		opts.Workers = 1
	}

	level := make([]*wholestate.State, len(deltas))
	copy(level, deltas)

	for len(level) > 1 {
		next, err := mergeRound(level, opts)
		if err != nil {
			return nil, err
		}

		level = next
	}

	return level[0], nil
}

type pairJob struct {
	index int
	a, b  *wholestate.State
}

// mergeRound merges adjacent pairs of level concurrently, carrying a
// trailing odd element over unmerged, and returns the next, roughly
// half-length level.
func mergeRound(level []*wholestate.State, opts Options) ([]*wholestate.State, error) {
	pairCount := len(level) / 2
	next := make([]*wholestate.State, (len(level)+1)/2)

	if len(level)%2 == 1 {
		next[pairCount] = level[len(level)-1]
	}

	if pairCount == 0 {
		return next, nil
	}

	costs := make([]uint64, pairCount)
	jobs := make([]pairJob, pairCount)

	for i := 0; i < pairCount; i++ {
		a, b := level[2*i], level[2*i+1]
		jobs[i] = pairJob{index: i, a: a, b: b}
		costs[i] = a.Length + b.Length
	}

	order := opts.Strategy.Order(costs)

	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
		done     int
	)

	sem := make(chan struct{}, opts.Workers)

	for _, oi := range order {
		job := jobs[oi]

		wg.Add(1)
		sem <- struct{}{}

		go func(job pairJob) {
			defer wg.Done()
			defer func() { <-sem }()

			merged, err := merge.Merge(job.a, job.b)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}

			next[job.index] = merged

			done++
			if opts.OnProgress != nil {
				opts.OnProgress(pairCount, done)
			}
		}(job)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	return next, nil
}
