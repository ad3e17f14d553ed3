// Package simrun drives many independent replications of the factory
// engine concurrently and aggregates their terminal summaries. It plays
// the role an external controller's batch-evaluation harness would: each
// replication is a fresh, differently seeded Simulator run to completion
// with no intervening decisions, useful for estimating steady-state
// throughput and utilization across runs rather than stepping one engine
// interactively (that is simserver's job).
package simrun

import (
	"context"
	"fmt"

	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"

	"factorysim/atomicfloat"
	"factorysim/sim"
)

// ReplicationResult pairs a replication's seed with its terminal summary.
type ReplicationResult struct {
	Seed    uint64
	Summary sim.Summary
}

// Aggregate holds the mean of each summary statistic across replications.
type Aggregate struct {
	Replications      int
	MeanMakespan      float64
	MeanThroughput    float64
	MeanJobsCompleted float64
	MeanUtil          float64
}

// RunReplications runs len(seeds) independent replications of cfg, each for
// jobsPerRun jobs, bounded to concurrency simultaneous workers. Workers fan
// their results into a single channel via channerics.Merge, mirroring the
// agent-worker/estimator split used for Monte Carlo training episodes: many
// producers, one consumer. Unlike that fire-and-forget training loop,
// replications are bounded, finite work with a real result to wait on, so
// an errgroup bounds concurrency and surfaces the first error instead of
// running unsupervised until canceled.
func RunReplications(ctx context.Context, cfg sim.Config, seeds []uint64, jobsPerRun, concurrency int) (*Aggregate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if len(seeds) == 0 {
		return &Aggregate{}, nil
	}

	done := ctx.Done()
	sem := make(chan struct{}, concurrency)

	grp, grpCtx := errgroup.WithContext(ctx)
	workers := make([]<-chan ReplicationResult, len(seeds))

	for i, seed := range seeds {
		i, seed := i, seed
		out := make(chan ReplicationResult, 1)
		workers[i] = out

		grp.Go(func() error {
			defer close(out)

			select {
			case sem <- struct{}{}:
			case <-grpCtx.Done():
				return grpCtx.Err()
			}
			defer func() { <-sem }()

			s, err := sim.NewSimulator(cfg)
			if err != nil {
				return fmt.Errorf("replication %d (seed %d): %w", i, seed, err)
			}
			s.Reset(&seed, jobsPerRun)
			summary := s.RunToFinish()

			select {
			case out <- ReplicationResult{Seed: seed, Summary: summary}:
			case <-grpCtx.Done():
			}
			return nil
		})
	}

	merged := channerics.Merge(done, workers...)

	sumMakespan := atomicfloat.NewAtomicFloat64(0)
	sumThroughput := atomicfloat.NewAtomicFloat64(0)
	sumJobs := atomicfloat.NewAtomicFloat64(0)
	sumUtil := atomicfloat.NewAtomicFloat64(0)
	n := 0
	for result := range channerics.OrDone(done, merged) {
		n++
		addRetrying(sumMakespan, result.Summary.Makespan)
		addRetrying(sumThroughput, result.Summary.ThroughputRate)
		addRetrying(sumJobs, float64(result.Summary.JobsCompleted))
		addRetrying(sumUtil, result.Summary.AvgUtil)
	}

	if err := grp.Wait(); err != nil {
		return nil, err
	}
	if n == 0 {
		return &Aggregate{}, nil
	}

	return &Aggregate{
		Replications:      n,
		MeanMakespan:      sumMakespan.AtomicRead() / float64(n),
		MeanThroughput:    sumThroughput.AtomicRead() / float64(n),
		MeanJobsCompleted: sumJobs.AtomicRead() / float64(n),
		MeanUtil:          sumUtil.AtomicRead() / float64(n),
	}, nil
}

// addRetrying spins AtomicAdd until it lands; contention here is brief
// since the accumulator is only ever touched by this single consumer loop,
// but the compare-and-swap failure path still has to be handled.
func addRetrying(af *atomicfloat.AtomicFloat64, delta float64) {
	for {
		if _, ok := af.AtomicAdd(delta); ok {
			return
		}
	}
}

// Seeds generates n sequential seeds starting at base, a convenience for
// callers who just want n reproducible-but-distinct replications.
func Seeds(base uint64, n int) []uint64 {
	seeds := make([]uint64, n)
	for i := 0; i < n; i++ {
		seeds[i] = base + uint64(i)
	}
	return seeds
}
