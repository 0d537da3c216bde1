package radix

import (
	"github.com/pkg/errors"
)

const (
	// Width of a sort key in bits
	KeyWidth = 64

	// Number of bits consumed per sort pass unless overridden
	DefaultDigitWidth = 8

	// Number of keys assigned to one unit of parallel work unless overridden
	DefaultGroupSize = 256

	// Wider digits than this would need histogram rows of more than 64k
	// entries per group, which defeats the point of bucketing
	MaxDigitWidth = 16
)

// Tuning parameters for a sort. The digit width decides how many buckets and
// passes are needed; the group size only matters to engines that split the
// input across parallel workers.
type Config struct {
	DigitWidth int // bits consumed per pass
	GroupSize  int // keys per work group
}

func DefaultConfig() Config {
	return Config{DigitWidth: DefaultDigitWidth, GroupSize: DefaultGroupSize}
}

func (self Config) Validate() error {
	if self.DigitWidth < 1 || self.DigitWidth > MaxDigitWidth {
		return errors.Wrapf(ErrBadConfig, "Digit width %v is not in [1, %v]", self.DigitWidth, MaxDigitWidth)
	}
	if self.GroupSize < 1 {
		return errors.Wrapf(ErrBadConfig, "Group size %v is not positive", self.GroupSize)
	}
	return nil
}

// Number of possible digit values (2^DigitWidth)
func (self Config) Buckets() int {
	return 1 << uint(self.DigitWidth)
}

// Number of passes needed to consume every bit of a key. The last pass may
// cover fewer than DigitWidth meaningful bits (e.g. width 11 over 64-bit
// keys), the shift simply runs off the top and the mask zero-fills.
func (self Config) Passes() int {
	return (KeyWidth + self.DigitWidth - 1) / self.DigitWidth
}

// Bit position of the digit consumed by the given pass
func (self Config) Shift(pass int) uint {
	return uint(pass * self.DigitWidth)
}

func (self Config) Mask() uint64 {
	return (uint64)(self.Buckets() - 1)
}

// The digit codec: maps a key to its bucket for the given pass. Every
// execution unit must use this same mapping or histograms and scatter
// destinations would disagree.
func (self Config) Digit(key uint64, pass int) int {
	return (int)((key >> self.Shift(pass)) & self.Mask())
}

// Number of work groups needed to cover n keys
func (self Config) Groups(n int) int {
	return (n + self.GroupSize - 1) / self.GroupSize
}
