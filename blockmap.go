package ospfs

// Block-map arithmetic (C3): three pure functions of a logical block count n,
// used both to locate the slot holding block n and to detect the boundary
// crossings where a meta-block must be created or vacated. See DESIGN.md for
// how these are derived from the (somewhat telegraphic) functions named in
// spec §4.3.

// dirIdx returns the slot within whichever block directly holds the data
// pointer for logical block n: the inode's direct array if n is in the
// direct region, the indirect block if n is in the singly-indirect region,
// or the currently-selected doubly-indirect sub-block otherwise.
func dirIdx(n uint32) int {
	switch {
	case n < NDirect:
		return int(n)
	case n < NDirect+NIndirect:
		return int(n - NDirect)
	default:
		return int((n - NDirect - NIndirect) % NIndirect)
	}
}

// indirIdx reports which indirect block governs n: -1 if n is in the direct
// region, 0 if n is governed by the inode's singly-indirect block, or the
// slot within the indirect² block naming the governing sub-indirect block
// otherwise.
func indirIdx(n uint32) int {
	switch {
	case n < NDirect:
		return -1
	case n < NDirect+NIndirect:
		return 0
	default:
		return int((n - NDirect - NIndirect) / NIndirect)
	}
}

// indir2Idx reports whether n is governed by the doubly-indirect region: -1
// if not, 0 if so. The indirect² pointer is a single inode field, not an
// array, so there is only ever one such "slot" per inode.
func indir2Idx(n uint32) int {
	if n < NDirect+NIndirect {
		return -1
	}
	return 0
}
