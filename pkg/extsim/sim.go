// Package extsim models the time and dollar cost of external merge-sort
// topologies over cloud object storage. It is pure arithmetic over sampled
// distributions: nothing here sorts data or touches the radix engine, it
// answers "which merge topology is cheapest" for a given store and compute
// profile.
package extsim

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// ObjectStore models per-operation latency, jittered per-stream throughput,
// and transfer/request pricing of an S3-like store. I/O happens in chunks of
// ChunkSizeMB; each chunk pays the latency and samples its own throughput.
type ObjectStore struct {
	LatencyMS          float64 // base latency per operation
	MeanThroughputMBps float64 // nominal throughput per stream
	ThroughputJitter   float64 // fractional jitter (0.2 means +-20%)
	CostPerGB          float64
	CostPerRequest     float64
	ChunkSizeMB        float64

	thr distuv.Normal
}

func NewObjectStore(latencyMS, throughputMBps, jitter, costPerGB, costPerRequest, chunkMB float64, seed uint64) *ObjectStore {
	return &ObjectStore{
		LatencyMS:          latencyMS,
		MeanThroughputMBps: throughputMBps,
		ThroughputJitter:   jitter,
		CostPerGB:          costPerGB,
		CostPerRequest:     costPerRequest,
		ChunkSizeMB:        chunkMB,
		thr: distuv.Normal{
			Mu:    throughputMBps,
			Sigma: throughputMBps * jitter,
			Src:   rand.NewSource(seed),
		},
	}
}

func (self *ObjectStore) sampleThroughput() float64 {
	t := self.thr.Rand()
	if t < 1.0 {
		t = 1.0
	}
	return t
}

func (self *ObjectStore) transfer(sizeMB float64) (timeSec float64, cost float64) {
	nchunk := (int)(math.Ceil(sizeMB / self.ChunkSizeMB))
	remaining := sizeMB
	for i := 0; i < nchunk; i++ {
		chunk := math.Min(self.ChunkSizeMB, remaining)
		remaining -= chunk

		thr := self.sampleThroughput()
		timeSec += self.LatencyMS/1000.0 + chunk/thr
		cost += chunk*self.CostPerGB/1024.0 + self.CostPerRequest
	}
	return timeSec, cost
}

// Read returns the simulated time (sec) and cost ($) of reading sizeMB
func (self *ObjectStore) Read(sizeMB float64) (float64, float64) {
	return self.transfer(sizeMB)
}

// Write returns the simulated time (sec) and cost ($) of writing sizeMB
func (self *ObjectStore) Write(sizeMB float64) (float64, float64) {
	return self.transfer(sizeMB)
}

// ComputeNode models a sorting worker with a straggler probability: a slowed
// task runs at speed/StragglerFactor.
type ComputeNode struct {
	ComputeSpeedMBps float64
	CostPerHour      float64
	StragglerProb    float64
	StragglerFactor  float64

	uni distuv.Uniform
}

func NewComputeNode(speedMBps, costPerHour, stragglerProb, stragglerFactor float64, seed uint64) *ComputeNode {
	return &ComputeNode{
		ComputeSpeedMBps: speedMBps,
		CostPerHour:      costPerHour,
		StragglerProb:    stragglerProb,
		StragglerFactor:  stragglerFactor,
		uni:              distuv.Uniform{Min: 0, Max: 1, Src: rand.NewSource(seed)},
	}
}

// Sort returns the simulated time (sec) and cost ($) of sorting sizeMB
func (self *ComputeNode) Sort(sizeMB float64) (float64, float64) {
	speed := self.ComputeSpeedMBps
	if self.uni.Rand() < self.StragglerProb {
		speed /= self.StragglerFactor
	}

	timeSec := sizeMB / speed
	return timeSec, timeSec * (self.CostPerHour / 3600.0)
}

// RunSizes splits a dataset into initial run sizes following a Zipf-like
// skew: run i gets weight 1/i^alpha, normalized so the sizes sum to the
// dataset size.
func RunSizes(datasetMB float64, avgRunMB float64, skewAlpha float64) []float64 {
	nrun := (int)(math.Ceil(datasetMB / avgRunMB))

	weights := make([]float64, nrun)
	sumW := 0.0
	for i := 1; i <= nrun; i++ {
		weights[i-1] = 1.0 / math.Pow((float64)(i), skewAlpha)
		sumW += weights[i-1]
	}

	sizes := make([]float64, nrun)
	for i := 0; i < nrun; i++ {
		sizes[i] = weights[i] / sumW * datasetMB
	}
	return sizes
}

const (
	defaultRunMB     = 512.0
	defaultSkewAlpha = 1.1
)

type Topology int

const (
	TwoPhase Topology = iota
	KWay
)

type SkewModel int

const (
	Uniform SkewModel = iota
	Skewed
)

// Variant is one member of the closed set of simulated algorithms: a merge
// topology crossed with a data-skew model. Dispatch goes through a function
// table keyed on topology, there is no algorithm hierarchy.
type Variant struct {
	Topology Topology
	Skew     SkewModel
	K        int // fan-in, KWay only
}

// The closed set of simulated algorithm variants
func Variants(k int) []Variant {
	return []Variant{
		{Topology: TwoPhase, Skew: Uniform},
		{Topology: TwoPhase, Skew: Skewed},
		{Topology: KWay, Skew: Uniform, K: k},
		{Topology: KWay, Skew: Skewed, K: k},
	}
}

func (self Variant) Name() string {
	skew := "no skew"
	if self.Skew == Skewed {
		skew = "skewed"
	}

	switch self.Topology {
	case TwoPhase:
		return fmt.Sprintf("Two-Phase Merge Sort (%v)", skew)
	case KWay:
		return fmt.Sprintf("K-Way Merge Sort (%v, k=%v)", skew, self.K)
	default:
		return "Unknown"
	}
}

type topologyFunc func(v Variant, datasetMB float64, runs []float64, store *ObjectStore, node *ComputeNode) (float64, float64)

var topologies = map[Topology]topologyFunc{
	TwoPhase: runTwoPhase,
	KWay:     runKWay,
}

func (self Variant) runSizes(datasetMB float64) []float64 {
	if self.Skew == Skewed {
		return RunSizes(datasetMB, defaultRunMB, defaultSkewAlpha)
	}

	nrun := (int)(math.Ceil(datasetMB / defaultRunMB))
	runs := make([]float64, nrun)
	for i := range runs {
		runs[i] = defaultRunMB
	}
	return runs
}

// Run simulates sorting datasetMB with this variant. Returns total time
// (sec) and total cost ($).
func (self Variant) Run(datasetMB float64, store *ObjectStore, node *ComputeNode) (float64, float64) {
	return topologies[self.Topology](self, datasetMB, self.runSizes(datasetMB), store, node)
}

// Each initial run is read, sorted and written back
func runPhaseOne(runs []float64, store *ObjectStore, node *ComputeNode) (timeSec float64, cost float64) {
	for _, sz := range runs {
		rt, rc := store.Read(sz)
		st, sc := node.Sort(sz)
		wt, wc := store.Write(sz)
		timeSec += rt + st + wt
		cost += rc + sc + wc
	}
	return timeSec, cost
}

// One full pass over the dataset: read everything, merge, write everything
func runMergePass(datasetMB float64, store *ObjectStore, node *ComputeNode) (float64, float64) {
	rt, rc := store.Read(datasetMB)
	st, sc := node.Sort(datasetMB)
	wt, wc := store.Write(datasetMB)
	return rt + st + wt, rc + sc + wc
}

func runTwoPhase(v Variant, datasetMB float64, runs []float64, store *ObjectStore, node *ComputeNode) (float64, float64) {
	t, c := runPhaseOne(runs, store, node)

	mt, mc := runMergePass(datasetMB, store, node)
	return t + mt, c + mc
}

func runKWay(v Variant, datasetMB float64, runs []float64, store *ObjectStore, node *ComputeNode) (float64, float64) {
	t, c := runPhaseOne(runs, store, node)

	passes := (int)(math.Ceil(math.Log((float64)(len(runs))) / math.Log((float64)(v.K))))
	for p := 0; p < passes; p++ {
		mt, mc := runMergePass(datasetMB, store, node)
		t += mt
		c += mc
	}
	return t, c
}
