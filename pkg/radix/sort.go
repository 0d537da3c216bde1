package radix

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type State int

const (
	StateIdle State = iota
	StateRunning
	StateDone
	StateFailed
)

func (self State) String() string {
	switch self {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Orchestrator drives the per-pass stages over an engine: for each pass,
// histogram on the engine, prefix sums on the host, scatter on the engine,
// then a buffer-role swap. An orchestrator runs exactly one sort; Failed is
// terminal and a fresh orchestrator must be built to retry.
type Orchestrator struct {
	cfg   Config
	eng   Engine
	state State
	pass  int
}

func NewOrchestrator(cfg Config, eng Engine) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{cfg: cfg, eng: eng, state: StateIdle}, nil
}

func (self *Orchestrator) State() State {
	return self.state
}

// Sort returns the keys in ascending order as a fresh slice; the input is
// never mutated and equal keys keep their relative order. ctx is only
// checked at pass boundaries, a cancelled mid-pass stage always runs to
// completion first. On any error the engine's resources are released and no
// output is produced.
func (self *Orchestrator) Sort(ctx context.Context, keys []uint64) (out []uint64, err error) {
	if self.state != StateIdle {
		return nil, errors.Wrapf(ErrExecution, "Sort invoked in state %v", self.state)
	}

	// Zero-length input is a no-op success, no stage or engine involvement
	if len(keys) == 0 {
		self.state = StateDone
		return []uint64{}, nil
	}

	// Counts and offsets are uint32 as on the device
	if (uint64)(len(keys)) > (uint64)(math.MaxUint32) {
		self.state = StateFailed
		return nil, errors.Wrapf(ErrBadConfig, "Input of %v keys overflows 32-bit counts", len(keys))
	}

	self.state = StateRunning
	defer self.eng.Release()
	defer func() {
		if err != nil {
			self.state = StateFailed
		}
	}()

	if err := self.eng.Load(keys); err != nil {
		return nil, errors.Wrap(err, "Couldn't load keys into the engine")
	}

	nbucket := self.cfg.Buckets()
	ngroup := self.eng.Groups()

	// Offset tables are pass-scoped but the backing storage is reusable
	totals := make([]uint32, nbucket)
	global := make([]uint32, nbucket)
	local := make([]uint32, ngroup*nbucket)

	npass := self.cfg.Passes()
	for pass := 0; pass < npass; pass++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrapf(ErrExecution, "Cancelled before pass %v: %v", pass, ctxErr)
		}
		self.pass = pass
		shift := self.cfg.Shift(pass)

		gh, err := self.eng.Histogram(shift)
		if err != nil {
			return nil, errors.Wrapf(err, "Histogram stage failed on pass %v", pass)
		}

		// Both offset tables must be final before any scatter write
		BucketTotals(gh, ngroup, nbucket, totals)
		GlobalOffsets(totals, global)
		GroupOffsets(gh, ngroup, nbucket, local)

		if err := self.eng.Scatter(shift, global, local); err != nil {
			return nil, errors.Wrapf(err, "Scatter stage failed on pass %v", pass)
		}

		// Destination becomes the next pass's source
		self.eng.Swap()

		logrus.WithFields(logrus.Fields{
			"pass":   pass,
			"shift":  shift,
			"groups": ngroup,
		}).Debug("Radix pass complete")
	}

	out, err = self.eng.Unload()
	if err != nil {
		return nil, errors.Wrap(err, "Couldn't read back the sorted result")
	}

	self.state = StateDone
	return out, nil
}

// Sort is the convenience entry point: default configuration on the
// single-group local engine.
func Sort(keys []uint64) ([]uint64, error) {
	return SortConfig(keys, DefaultConfig())
}

// SortConfig sorts on the local engine with an explicit configuration.
func SortConfig(keys []uint64, cfg Config) ([]uint64, error) {
	eng, err := NewLocalEngine(cfg)
	if err != nil {
		return nil, err
	}

	orch, err := NewOrchestrator(cfg, eng)
	if err != nil {
		return nil, err
	}

	return orch.Sort(context.Background(), keys)
}
