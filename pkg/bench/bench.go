// Package bench runs manual benchmarks of the radix engines (not managed by
// Go's benchmarking tool) and aggregates timings for reporting.
package bench

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mikegeo98/cloud-sort/pkg/device"
	"github.com/mikegeo98/cloud-sort/pkg/radix"
)

// Simulated device profile used by the benchmarks
const (
	DevUnits = 8
	DevMem   = 1 << 30
)

func totalTimer(stats SortStats) *PerfTimer {
	timer, ok := stats["TTotal"]
	if !ok {
		timer = &PerfTimer{}
		stats["TTotal"] = timer
	}
	return timer
}

// Time one sort on the single-group local engine
func BenchLocal(keys []uint64, cfg radix.Config, stats SortStats) error {
	timer := totalTimer(stats)

	eng, err := radix.NewLocalEngine(cfg)
	if err != nil {
		return errors.Wrap(err, "Couldn't build local engine")
	}

	orch, err := radix.NewOrchestrator(cfg, eng)
	if err != nil {
		return errors.Wrap(err, "Couldn't build orchestrator")
	}

	timer.Start()
	_, err = orch.Sort(context.Background(), keys)
	timer.Record()

	return err
}

// Time one sort on the group-parallel device engine
func BenchDevice(keys []uint64, cfg radix.Config, dctx *device.Context, stats SortStats) error {
	timer := totalTimer(stats)

	eng, err := device.NewEngine(dctx, cfg)
	if err != nil {
		return errors.Wrap(err, "Couldn't build device engine")
	}

	orch, err := radix.NewOrchestrator(cfg, eng)
	if err != nil {
		return errors.Wrap(err, "Couldn't build orchestrator")
	}

	timer.Start()
	_, err = orch.Sort(context.Background(), keys)
	timer.Record()

	return err
}

// RunBenchmarks times both engines over nrepeat sorts of nelem random keys.
// Even if an error is returned, the returned stats may be non-nil and
// contain valid results up until the error.
func RunBenchmarks(nelem int, nrepeat int) (map[string]SortStats, error) {
	stats := make(map[string]SortStats)

	orig := radix.RandomInputs(nelem)
	cfg := radix.DefaultConfig()

	iterIn := make([]uint64, len(orig))

	stats["Local"] = make(SortStats)
	for i := 0; i < nrepeat; i++ {
		copy(iterIn, orig)
		if err := BenchLocal(iterIn, cfg, stats["Local"]); err != nil {
			return stats, errors.Wrap(err, "Failed to benchmark the local engine")
		}
	}

	dctx, err := device.NewContext(DevUnits, DevMem)
	if err != nil {
		return stats, errors.Wrap(err, "Couldn't create device context")
	}

	stats["Device"] = make(SortStats)
	for i := 0; i < nrepeat; i++ {
		copy(iterIn, orig)
		if err := BenchDevice(iterIn, cfg, dctx, stats["Device"]); err != nil {
			return stats, errors.Wrap(err, "Failed to benchmark the device engine")
		}
	}

	return stats, nil
}
