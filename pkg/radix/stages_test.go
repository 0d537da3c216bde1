package radix

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Build histograms and both offset tables for one pass over groups of size
// groupSz, the way an engine would.
func passTables(keys []uint64, cfg Config, pass int) (gh []uint32, global []uint32, local []uint32, ngroup int) {
	nbucket := cfg.Buckets()
	ngroup = cfg.Groups(len(keys))

	gh = make([]uint32, ngroup*nbucket)
	for g := 0; g < ngroup; g++ {
		start := g * cfg.GroupSize
		end := start + cfg.GroupSize
		if end > len(keys) {
			end = len(keys)
		}
		HistogramGroup(keys[start:end], cfg.Shift(pass), cfg.Mask(), gh[g*nbucket:(g+1)*nbucket])
	}

	totals := make([]uint32, nbucket)
	global = make([]uint32, nbucket)
	local = make([]uint32, ngroup*nbucket)
	BucketTotals(gh, ngroup, nbucket, totals)
	GlobalOffsets(totals, global)
	GroupOffsets(gh, ngroup, nbucket, local)
	return gh, global, local, ngroup
}

func TestHistogramConservation(t *testing.T) {
	cfg := Config{DigitWidth: 8, GroupSize: 64}
	keys := RandomInputs(1000) // deliberately not a multiple of the group size

	for pass := 0; pass < cfg.Passes(); pass++ {
		gh, _, _, ngroup := passTables(keys, cfg, pass)

		total := (uint32)(0)
		for _, c := range gh {
			total += c
		}
		require.Equalf(t, (uint32)(len(keys)), total, "Histogram entries don't sum to N on pass %v", pass)

		// The short final group still sums to its own key count
		lastLen := len(keys) - (ngroup-1)*cfg.GroupSize
		lastSum := (uint32)(0)
		for _, c := range gh[(ngroup-1)*cfg.Buckets():] {
			lastSum += c
		}
		require.Equalf(t, (uint32)(lastLen), lastSum, "Last group histogram doesn't sum to its key count on pass %v", pass)
	}
}

func TestGlobalOffsets(t *testing.T) {
	totals := []uint32{3, 0, 5, 1}
	offsets := make([]uint32, len(totals))
	GlobalOffsets(totals, offsets)
	require.Equal(t, []uint32{0, 3, 3, 8}, offsets, "Exclusive prefix sum over buckets is wrong")
}

func TestGroupOffsets(t *testing.T) {
	// 3 groups x 2 buckets, flat g*nbucket+b
	gh := []uint32{
		2, 1,
		0, 4,
		3, 2,
	}
	out := make([]uint32, len(gh))
	GroupOffsets(gh, 3, 2, out)

	// Per bucket, exclusive prefix sum across groups
	require.Equal(t, []uint32{
		0, 0,
		2, 1,
		2, 5,
	}, out, "Exclusive prefix sum across groups is wrong")
}

// The offsets must agree with the direct definition: local[g][b] is the sum
// of histogram[g'][b] for g' < g, global[b] the sum of all earlier buckets.
func TestOffsetsMatchDefinition(t *testing.T) {
	cfg := Config{DigitWidth: 4, GroupSize: 32}
	keys := RandomInputs(517)
	nbucket := cfg.Buckets()

	gh, global, local, ngroup := passTables(keys, cfg, 2)

	for b := 0; b < nbucket; b++ {
		expGlobal := (uint32)(0)
		for bb := 0; bb < b; bb++ {
			for g := 0; g < ngroup; g++ {
				expGlobal += gh[g*nbucket+bb]
			}
		}
		require.Equalf(t, expGlobal, global[b], "Global offset wrong for bucket %v", b)

		expLocal := (uint32)(0)
		for g := 0; g < ngroup; g++ {
			require.Equalf(t, expLocal, local[g*nbucket+b], "Local offset wrong for group %v bucket %v", g, b)
			expLocal += gh[g*nbucket+b]
		}
	}
}

// One scatter pass over the second byte must keep equal-digit keys in input
// order. The low byte tags each key so equal "values" stay distinguishable.
func TestScatterStable(t *testing.T) {
	vals := []uint64{5, 1, 5, 3, 1}
	tags := []uint64{'a', 'b', 'c', 'd', 'e'}

	keys := make([]uint64, len(vals))
	for i := range vals {
		keys[i] = vals[i]<<8 | tags[i]
	}

	cfg := DefaultConfig()
	_, global, local, _ := passTables(keys, cfg, 1)

	dst := make([]uint64, len(keys))
	cursor := make([]uint32, cfg.Buckets())
	ScatterGroup(keys, dst, cfg.Shift(1), cfg.Mask(), global, local, cursor)

	exp := []uint64{
		1<<8 | 'b',
		1<<8 | 'e',
		3<<8 | 'd',
		5<<8 | 'a',
		5<<8 | 'c',
	}
	require.Equal(t, exp, dst, "Equal keys did not keep their input order")
}

// Groups own disjoint destination sub-ranges per bucket: after a multi-group
// scatter, keys with the same digit must appear grouped in group order, and
// in input order within a group.
func TestScatterMultiGroupStable(t *testing.T) {
	cfg := Config{DigitWidth: 8, GroupSize: 4}

	// Two groups, every key has digit 0x01 on pass 0; high bytes record the
	// original position.
	keys := make([]uint64, 8)
	for i := range keys {
		keys[i] = (uint64)(i)<<8 | 0x01
	}

	_, global, local, ngroup := passTables(keys, cfg, 0)
	require.Equal(t, 2, ngroup, "Expected two groups")

	dst := make([]uint64, len(keys))
	nbucket := cfg.Buckets()
	for g := 0; g < ngroup; g++ {
		cursor := make([]uint32, nbucket)
		ScatterGroup(keys[g*4:(g+1)*4], dst, cfg.Shift(0), cfg.Mask(), global, local[g*nbucket:(g+1)*nbucket], cursor)
	}

	require.Equal(t, keys, dst, "All-equal-digit scatter must be the identity permutation")
}

func TestDigitCodec(t *testing.T) {
	cfg := DefaultConfig()

	key := (uint64)(0xfedcba9876543210)
	exp := []int{0x10, 0x32, 0x54, 0x76, 0x98, 0xba, 0xdc, 0xfe}
	for pass := 0; pass < cfg.Passes(); pass++ {
		require.Equalf(t, exp[pass], cfg.Digit(key, pass), "Wrong digit on pass %v", pass)
	}

	// Width 11 doesn't divide 64, the last pass covers the leftover 9 bits
	cfg11 := Config{DigitWidth: 11, GroupSize: 256}
	require.Equal(t, 6, cfg11.Passes(), "ceil(64/11) should be 6 passes")
	require.Equal(t, 0x1ff, cfg11.Digit(^(uint64)(0), 5), "Top pass should only see the leftover bits")
}

func TestConfigValidate(t *testing.T) {
	require.Nil(t, DefaultConfig().Validate(), "Default config must be valid")
	require.Nil(t, Config{DigitWidth: 11, GroupSize: 1}.Validate(), "Width 11 is a legitimate tuning")

	require.NotNil(t, Config{DigitWidth: 0, GroupSize: 256}.Validate(), "Zero width must be rejected")
	require.NotNil(t, Config{DigitWidth: 17, GroupSize: 256}.Validate(), "Oversized width must be rejected")
	require.NotNil(t, Config{DigitWidth: 8, GroupSize: 0}.Validate(), "Zero group size must be rejected")
}
