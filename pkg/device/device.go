// Package device provides a simulated accelerator backend for the radix
// engine. Buffers live in device-resident allocations that host code may
// only touch through explicit transfers; every transfer is counted so the
// host/device traffic of a sort can be reported and pinned in tests. The
// split mirrors the real accelerator path: histograms and scatter run on
// device work groups, prefix sums stay on the host.
package device

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/mikegeo98/cloud-sort/pkg/radix"
)

// Cumulative bytes moved across the host/device boundary. Purely
// observational, nothing schedules off these.
type TransferStats struct {
	HostToDevice uint64
	DeviceToHost uint64
}

// Context models one accelerator: a fixed number of compute units that
// execute work groups, and a fixed amount of device memory that engines
// reserve from. Multiple engines may share a context; the semaphore keeps
// no more groups in flight than there are units.
type Context struct {
	nunit int
	units *semaphore.Weighted

	memMu     sync.Mutex
	freeBytes int64

	h2d uint64
	d2h uint64
}

func NewContext(nunit int, memBytes int64) (*Context, error) {
	if nunit < 1 {
		return nil, errors.Wrapf(radix.ErrBadConfig, "Device needs at least one compute unit, got %v", nunit)
	}
	if memBytes < 1 {
		return nil, errors.Wrapf(radix.ErrBadConfig, "Device needs a positive memory size, got %v", memBytes)
	}

	return &Context{
		nunit:     nunit,
		units:     semaphore.NewWeighted((int64)(nunit)),
		freeBytes: memBytes,
	}, nil
}

func (self *Context) Units() int {
	return self.nunit
}

// Device memory not currently reserved by an engine
func (self *Context) FreeBytes() int64 {
	self.memMu.Lock()
	defer self.memMu.Unlock()
	return self.freeBytes
}

func (self *Context) Stats() TransferStats {
	return TransferStats{
		HostToDevice: atomic.LoadUint64(&self.h2d),
		DeviceToHost: atomic.LoadUint64(&self.d2h),
	}
}

func (self *Context) reserve(nbyte int64) error {
	self.memMu.Lock()
	defer self.memMu.Unlock()

	if nbyte > self.freeBytes {
		return errors.Wrapf(radix.ErrAllocation, "Device out of memory: need %v bytes, %v free", nbyte, self.freeBytes)
	}
	self.freeBytes -= nbyte
	return nil
}

func (self *Context) release(nbyte int64) {
	self.memMu.Lock()
	defer self.memMu.Unlock()
	self.freeBytes += nbyte
}

func (self *Context) countH2D(nbyte int64) {
	atomic.AddUint64(&self.h2d, (uint64)(nbyte))
}

func (self *Context) countD2H(nbyte int64) {
	atomic.AddUint64(&self.d2h, (uint64)(nbyte))
}

// Engine is the group-parallel radix.Engine backed by a Context. For a sort
// of n keys with bucket count R and group count G it reserves two key
// buffers (8n each), the per-group histogram and group-offset tables (4GR
// each) and the global offset table (4R), and releases them all when the
// orchestrator calls Release.
//
// Transfer accounting per sort:
//   H->D: 8n (load) + passes * (4GR zero-fill + 4R + 4GR offset upload)
//   D->H: passes * 4GR (histogram readback) + 8n (unload)
// Keys never cross the boundary between passes, they ping-pong on device.
type Engine struct {
	ctx *Context
	cfg radix.Config

	n      int
	ngroup int

	// Device-resident
	src    []uint64
	dst    []uint64
	gh     []uint32
	local  []uint32
	global []uint32

	reserved int64
	loaded   bool
}

func NewEngine(ctx *Context, cfg radix.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{ctx: ctx, cfg: cfg}, nil
}

func (self *Engine) Load(keys []uint64) error {
	if self.loaded {
		return errors.Wrap(radix.ErrExecution, "Engine already has keys loaded")
	}

	n := len(keys)
	ngroup := self.cfg.Groups(n)
	nbucket := self.cfg.Buckets()

	need := 2*8*(int64)(n) + 4*(2*(int64)(ngroup)*(int64)(nbucket)+(int64)(nbucket))
	if err := self.ctx.reserve(need); err != nil {
		return errors.Wrapf(err, "Couldn't reserve device memory for %v keys", n)
	}
	self.reserved = need

	self.n = n
	self.ngroup = ngroup
	self.src = make([]uint64, n)
	self.dst = make([]uint64, n)
	self.gh = make([]uint32, ngroup*nbucket)
	self.local = make([]uint32, ngroup*nbucket)
	self.global = make([]uint32, nbucket)

	copy(self.src, keys)
	self.ctx.countH2D(8 * (int64)(n))

	self.loaded = true

	logrus.WithFields(logrus.Fields{
		"keys":    n,
		"groups":  ngroup,
		"buckets": nbucket,
		"bytes":   need,
	}).Debug("Device engine loaded")
	return nil
}

func (self *Engine) Groups() int {
	return self.ngroup
}

// Slice of the source buffer owned by group g
func (self *Engine) groupKeys(g int) []uint64 {
	start := g * self.cfg.GroupSize
	end := start + self.cfg.GroupSize
	if end > self.n {
		end = self.n
	}
	return self.src[start:end]
}

// Run one kernel invocation per group, each gated on a free compute unit.
// Groups are independent within a stage so there is no ordering between
// them, only the implicit barrier of waiting for all of them.
func (self *Engine) runGroups(kernel func(g int)) error {
	var wg sync.WaitGroup
	errChan := make(chan error, self.ngroup)
	for g := 0; g < self.ngroup; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			if err := self.ctx.units.Acquire(context.Background(), 1); err != nil {
				errChan <- errors.Wrapf(radix.ErrExecution, "Couldn't acquire a compute unit for group %v: %v", g, err)
				return
			}
			defer self.ctx.units.Release(1)
			kernel(g)
		}(g)
	}
	wg.Wait()

	select {
	case firstErr := <-errChan:
		return firstErr
	default:
	}
	return nil
}

func (self *Engine) Histogram(shift uint) ([]uint32, error) {
	if !self.loaded {
		return nil, errors.Wrap(radix.ErrExecution, "Histogram invoked before Load")
	}

	nbucket := self.cfg.Buckets()
	mask := self.cfg.Mask()

	// Host zero-fills the device-resident table before the kernel runs
	for i := range self.gh {
		self.gh[i] = 0
	}
	self.ctx.countH2D(4 * (int64)(len(self.gh)))

	err := self.runGroups(func(g int) {
		radix.HistogramGroup(self.groupKeys(g), shift, mask, self.gh[g*nbucket:(g+1)*nbucket])
	})
	if err != nil {
		return nil, errors.Wrap(err, "Histogram kernel failed")
	}

	// Read the histograms back for the host-side prefix sums
	out := make([]uint32, len(self.gh))
	copy(out, self.gh)
	self.ctx.countD2H(4 * (int64)(len(self.gh)))
	return out, nil
}

func (self *Engine) Scatter(shift uint, global []uint32, local []uint32) error {
	if !self.loaded {
		return errors.Wrap(radix.ErrExecution, "Scatter invoked before Load")
	}

	nbucket := self.cfg.Buckets()
	mask := self.cfg.Mask()

	// Upload the host-computed offsets
	copy(self.global, global)
	copy(self.local, local)
	self.ctx.countH2D(4 * ((int64)(len(global)) + (int64)(len(local))))

	err := self.runGroups(func(g int) {
		// Cursors live in group-private memory and never cross the boundary
		cursor := make([]uint32, nbucket)
		radix.ScatterGroup(self.groupKeys(g), self.dst, shift, mask, self.global, self.local[g*nbucket:(g+1)*nbucket], cursor)
	})
	if err != nil {
		return errors.Wrap(err, "Scatter kernel failed")
	}
	return nil
}

func (self *Engine) Swap() {
	self.src, self.dst = self.dst, self.src
}

func (self *Engine) Unload() ([]uint64, error) {
	if !self.loaded {
		return nil, errors.Wrap(radix.ErrExecution, "Unload invoked before Load")
	}

	out := make([]uint64, self.n)
	copy(out, self.src)
	self.ctx.countD2H(8 * (int64)(self.n))
	return out, nil
}

func (self *Engine) Release() {
	if self.reserved > 0 {
		self.ctx.release(self.reserved)
		self.reserved = 0
	}
	self.src = nil
	self.dst = nil
	self.gh = nil
	self.local = nil
	self.global = nil
	self.loaded = false
}
