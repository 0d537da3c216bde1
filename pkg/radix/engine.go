package radix

import (
	"github.com/pkg/errors"
)

// An Engine owns the ping-pong key buffers for a single sort invocation and
// executes the histogram and scatter stages over them. Offsets are always
// computed on the host by the orchestrator, which hands them back to the
// engine for scatter (see the cross-boundary handoff in pkg/device).
//
// Call order per sort: Load, then per pass Histogram -> Scatter -> Swap,
// then Unload. Release must be called on every exit path and must be safe
// to call more than once.
type Engine interface {
	// Load copies the keys into the engine's source buffer and sizes the
	// per-pass storage. Groups() is only meaningful after Load.
	Load(keys []uint64) error

	// Number of work groups covering the loaded keys
	Groups() int

	// Histogram counts the current source buffer's digits at the given bit
	// position. Returns flat per-group histograms ([Groups()*nbucket]),
	// resident in host memory.
	Histogram(shift uint) ([]uint32, error)

	// Scatter permutes source into destination using host-computed offsets.
	// global holds each bucket's start position, local each group's offset
	// within its bucket (flat, same layout as the histograms).
	Scatter(shift uint, global []uint32, local []uint32) error

	// Swap exchanges the source and destination buffer roles for the next
	// pass. Only the orchestrator may call it, after scatter has committed.
	Swap()

	// Unload reads back the current source buffer (the sorted result after
	// the final Swap) into a fresh host slice.
	Unload() ([]uint64, error)

	// Release frees everything the engine acquired. Idempotent.
	Release()
}

// LocalEngine is the sequential baseline: one group covering all keys,
// buffers in ordinary host memory. It exists both as the simplest correct
// implementation of the stage contracts and as the reference the parallel
// device engine is tested against.
type LocalEngine struct {
	cfg    Config
	src    []uint64
	dst    []uint64
	cursor []uint32
	loaded bool
}

func NewLocalEngine(cfg Config) (*LocalEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &LocalEngine{cfg: cfg}, nil
}

func (self *LocalEngine) Load(keys []uint64) error {
	if self.loaded {
		return errors.Wrap(ErrExecution, "Engine already has keys loaded")
	}

	self.src = make([]uint64, len(keys))
	copy(self.src, keys)
	self.dst = make([]uint64, len(keys))
	self.cursor = make([]uint32, self.cfg.Buckets())
	self.loaded = true
	return nil
}

func (self *LocalEngine) Groups() int {
	return 1
}

func (self *LocalEngine) Histogram(shift uint) ([]uint32, error) {
	if !self.loaded {
		return nil, errors.Wrap(ErrExecution, "Histogram invoked before Load")
	}

	hist := make([]uint32, self.cfg.Buckets())
	HistogramGroup(self.src, shift, self.cfg.Mask(), hist)
	return hist, nil
}

func (self *LocalEngine) Scatter(shift uint, global []uint32, local []uint32) error {
	if !self.loaded {
		return errors.Wrap(ErrExecution, "Scatter invoked before Load")
	}

	for i := range self.cursor {
		self.cursor[i] = 0
	}
	ScatterGroup(self.src, self.dst, shift, self.cfg.Mask(), global, local, self.cursor)
	return nil
}

func (self *LocalEngine) Swap() {
	self.src, self.dst = self.dst, self.src
}

func (self *LocalEngine) Unload() ([]uint64, error) {
	if !self.loaded {
		return nil, errors.Wrap(ErrExecution, "Unload invoked before Load")
	}

	out := make([]uint64, len(self.src))
	copy(out, self.src)
	return out, nil
}

func (self *LocalEngine) Release() {
	self.src = nil
	self.dst = nil
	self.cursor = nil
	self.loaded = false
}
