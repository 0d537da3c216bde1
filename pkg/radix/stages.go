package radix

// Per-pass stage primitives. These are the "kernels" of the sort: every
// engine (the single-group local engine here, the group-parallel device
// engine in pkg/device) runs these same loops so that bucket assignment is
// identical everywhere.
//
// Per-group histograms and offsets use a flat [ngroup*nbucket] layout
// indexed as g*nbucket+b.

// HistogramGroup accumulates one group's digit counts into hist. hist must
// hold one entry per bucket and arrive zeroed. After the call the entries
// sum to len(keys), even for a short final group.
func HistogramGroup(keys []uint64, shift uint, mask uint64, hist []uint32) {
	for _, k := range keys {
		hist[(k>>shift)&mask]++
	}
}

// BucketTotals sums each bucket's count across all group histograms.
func BucketTotals(gh []uint32, ngroup int, nbucket int, totals []uint32) {
	for b := 0; b < nbucket; b++ {
		sum := (uint32)(0)
		for g := 0; g < ngroup; g++ {
			sum += gh[g*nbucket+b]
		}
		totals[b] = sum
	}
}

// GlobalOffsets computes the exclusive prefix sum over bucket totals: the
// starting position of each bucket's region in the pass output.
func GlobalOffsets(totals []uint32, offsets []uint32) {
	sum := (uint32)(0)
	for b, t := range totals {
		offsets[b] = sum
		sum += t
	}
}

// GroupOffsets computes, for each bucket, the exclusive prefix sum of that
// bucket's counts across groups: where each group's run begins within the
// bucket's global region. Together with GlobalOffsets this predetermines
// every key's destination, so scatter needs no atomics.
func GroupOffsets(gh []uint32, ngroup int, nbucket int, out []uint32) {
	for b := 0; b < nbucket; b++ {
		sum := (uint32)(0)
		for g := 0; g < ngroup; g++ {
			out[g*nbucket+b] = sum
			sum += gh[g*nbucket+b]
		}
	}
}

// ScatterGroup writes one group's keys to their final positions for this
// pass: global bucket start + this group's offset within the bucket + a
// running count of same-bucket keys already seen in this group. Keys are
// visited in original order, which is what makes the pass stable. local is
// this group's row of the group offsets; cursor is scratch of nbucket
// entries and must arrive zeroed.
func ScatterGroup(keys []uint64, dst []uint64, shift uint, mask uint64, global []uint32, local []uint32, cursor []uint32) {
	for _, k := range keys {
		b := (k >> shift) & mask
		dst[global[b]+local[b]+cursor[b]] = k
		cursor[b]++
	}
}
