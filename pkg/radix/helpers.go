package radix

import (
	"fmt"
	"math/rand"
	"sort"
)

func PrintHex(a []uint64) {
	for i, v := range a {
		fmt.Printf("%3v: 0x%016x\n", i, v)
	}
}

// Generate len pseudorandom keys, deterministic across runs
func RandomInputs(len int) []uint64 {
	rng := rand.New(rand.NewSource(0))
	out := make([]uint64, len)
	for i := 0; i < len; i++ {
		out[i] = rng.Uint64()
	}
	return out
}

// CheckSort compares new against a trusted sequential sort of orig. This is
// an equality check, not a stability check; it is for tests and never runs
// on the production path.
func CheckSort(orig []uint64, new []uint64) error {
	if len(orig) != len(new) {
		return fmt.Errorf("Lengths do not match: Expected %v, Got %v", len(orig), len(new))
	}

	origCpy := make([]uint64, len(orig))
	copy(origCpy, orig)
	sort.Slice(origCpy, func(i, j int) bool { return origCpy[i] < origCpy[j] })
	for i := 0; i < len(orig); i++ {
		if origCpy[i] != new[i] {
			return fmt.Errorf("Response doesn't match reference at %v: Expected %v, Got %v", i, origCpy[i], new[i])
		}
	}
	return nil
}
