package extsim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func testStore(seed uint64) *ObjectStore {
	// S3-like profile
	return NewObjectStore(50, 100, 0.2, 0.023, 0.000005, 64, seed)
}

func testNode(seed uint64) *ComputeNode {
	// Lambda-like profile
	return NewComputeNode(100, 6, 0.1, 4, seed)
}

func TestRunSizes(t *testing.T) {
	datasetMB := 10.0 * 1024
	sizes := RunSizes(datasetMB, 512, 1.1)

	require.Equal(t, 20, len(sizes), "Wrong number of runs")

	total := 0.0
	for i, sz := range sizes {
		require.Greaterf(t, sz, 0.0, "Run %v has a non-positive size", i)
		if i > 0 {
			require.LessOrEqualf(t, sz, sizes[i-1], "Skewed run sizes must be non-increasing (run %v)", i)
		}
		total += sz
	}
	require.InDelta(t, datasetMB, total, 1e-6, "Run sizes must sum to the dataset size")
}

func TestObjectStoreChunking(t *testing.T) {
	store := testStore(1)

	// One chunk: exactly one request cost and one latency hit
	_, cost := store.Read(1.0)
	expCost := 1.0*store.CostPerGB/1024.0 + store.CostPerRequest
	require.InDelta(t, expCost, cost, 1e-12, "Single-chunk read cost is wrong")

	// 130MB over 64MB chunks -> 3 requests
	tm, cost := store.Write(130.0)
	expCost = 130.0*store.CostPerGB/1024.0 + 3*store.CostPerRequest
	require.InDelta(t, expCost, cost, 1e-12, "Multi-chunk write cost is wrong")
	require.Greater(t, tm, 3*store.LatencyMS/1000.0, "Write time must include per-chunk latency")
}

func TestComputeNode(t *testing.T) {
	node := NewComputeNode(100, 6, 0, 4, 1) // no stragglers

	tm, cost := node.Sort(1000)
	require.InDelta(t, 10.0, tm, 1e-12, "1000MB at 100MBps must take 10s")
	require.InDelta(t, 10.0*6/3600.0, cost, 1e-12, "Compute cost is wrong")
}

func TestVariants(t *testing.T) {
	variants := Variants(4)
	require.Equal(t, 4, len(variants), "The variant set is closed at four members")

	for _, v := range variants {
		v := v
		t.Run(v.Name(), func(t *testing.T) {
			tm, cost := v.Run(10*1024, testStore(42), testNode(42))
			require.Greater(t, tm, 0.0, "Simulated time must be positive")
			require.Greater(t, cost, 0.0, "Simulated cost must be positive")
			require.False(t, math.IsNaN(tm) || math.IsInf(tm, 0), "Simulated time must be finite")
		})
	}
}

func TestDeterministic(t *testing.T) {
	v := Variant{Topology: KWay, Skew: Skewed, K: 4}

	t1, c1 := v.Run(10*1024, testStore(7), testNode(7))
	t2, c2 := v.Run(10*1024, testStore(7), testNode(7))

	require.Equal(t, t1, t2, "Same seeds must reproduce the same time")
	require.Equal(t, c1, c2, "Same seeds must reproduce the same cost")
}
