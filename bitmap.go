package ospfs

// bitmap is the free-block allocator (C2): one bit per block in the image,
// bit=1 meaning free, stored LSB-first within each 32-bit word as the
// external layout specifies. It aliases the image's own bitmap blocks, so
// every read/write goes straight through to the live structure — allocation
// of a *reserved* index is deferred to journal apply (see resize.go); only
// AllocateBlockno/FreeBlock actually flip bits, and both are only ever
// called from Journal.Apply.
type bitmap struct {
	img       *Image
	firstData uint32
	nblocks   uint32
}

func newBitmap(img *Image) *bitmap {
	return &bitmap{img: img, firstData: img.sb.FirstDataB, nblocks: img.sb.NBlocks}
}

func (b *bitmap) wordFor(k uint32) []byte {
	blk := firstBitmapBlock + k/(BlockSize*8)
	within := (k % (BlockSize * 8)) / 8 / 4 * 4
	return b.img.rawBlock(blk)[within : within+4]
}

func (b *bitmap) free(k uint32) bool {
	word := readSlot(b.wordFor(k), 0)
	bit := k % 32
	return word&(1<<bit) != 0
}

func (b *bitmap) setFree(k uint32, free bool) {
	buf := b.wordFor(k)
	word := readSlot(buf, 0)
	bit := k % 32
	if free {
		word |= 1 << bit
	} else {
		word &^= 1 << bit
	}
	writeSlot(buf, 0, word)
}

// AllocateBlockno clears bit k unconditionally, realizing a pre-selected
// allocation at journal-apply time.
func (b *bitmap) AllocateBlockno(k uint32) {
	b.setFree(k, false)
}

// FreeBlock sets bit k, but only if k falls within the data region;
// out-of-range indices are silently ignored (defensive, per §4.2).
func (b *bitmap) FreeBlock(k uint32) {
	if k < b.firstData || k >= b.nblocks {
		return
	}
	b.setFree(k, true)
}

// FindFreeBlock returns the smallest index >= hi (modulo nblocks) that is
// free, wrapping once and stopping when lo is reached; ok=false means full.
// (lo, hi) is the locality hint: callers bias successive allocations within
// one batch toward a contiguous run by advancing hi := k+1 after each pick,
// and fixing lo at the batch's first pick.
//
// spec.md §9 notes a source variant that swaps the roles of these bounds,
// with the initial window (firstdatab-1, firstdatab) wrapping through the
// whole disk on the very first call. This implementation does not swap
// them: the search starts at hi and stops at lo. Passing that window
// explicitly still yields the full-disk sweep — see DESIGN.md.
func (b *bitmap) FindFreeBlock(lo, hi uint32) (uint32, bool) {
	if b.nblocks == 0 {
		return 0, false
	}
	i := hi % b.nblocks
	for {
		if i >= b.firstData && b.free(i) {
			return i, true
		}
		i = (i + 1) % b.nblocks
		if i == lo%b.nblocks {
			return 0, false
		}
	}
}
