package ospfs

// resizeType bitmask values, per the journal header's resize_type field.
const (
	resizeTouchedIndirect uint32 = 1 << iota
	resizeTouchedIndirect2
)

// StagedBatch is the pure, immutable value a resize plan (or a write/create/
// link operation) produces: everything Journal.Stage needs to write into the
// journal region and everything Journal.Apply needs to realize against the
// live structures. Per the "transactional state as explicit value" redesign
// note, journal.Run (Stage, commit, apply, clear) is the only mutation
// point; nothing here touches the live image.
type StagedBatch struct {
	Kind      execType
	TargetIno uint32
	Inode     Inode

	// Affected lists the data-block indices this batch allocates (ALLOC),
	// frees (FREE), or rewrites (WRITE, CREATE, HARDLINK). A freshly required indirect or
	// indirect² meta-block's own index is never mixed into this list: it
	// is tracked separately via IndirectBlockno/Indirect2Blockno and
	// ResizeType, the same way the on-disk journal header keeps them as
	// dedicated fields rather than folding them into the generic affected
	// list. The first-of-batch rule still governs *when* such a meta-block
	// may be created (see planAddBlock).
	Affected []uint32

	// Data holds, for WRITE, CREATE and HARDLINK batches, the new contents
	// of each block named by Affected (same length, same order). Unused
	// otherwise.
	Data [][]byte

	ResizeType       uint32
	IndirectBlockno  uint32
	Indirect2Blockno uint32
	IndirectSnapshot  *[BlockSize]byte
	Indirect2Snapshot *[BlockSize]byte

	// DirDataBlockno/DirData are not read by Stage or apply: CREATE and
	// HARDLINK batches carry their rewritten directory block in
	// Affected/Data instead.
	DirDataBlockno uint32
	DirData        []byte
}

// plannedInode is the resize planner's scratch state (C4): a working copy of
// the target inode plus scratch copies of whichever single indirect and
// indirect² block this batch may touch. Ownership of meta-blocks is
// expressed purely as index values recorded here; nothing aliases the live
// image until the batch is staged and applied.
type plannedInode struct {
	ino Inode

	indirectBlockNo uint32
	indirect        [NIndirect]uint32
	indirectLoaded  bool
	indirectDirty   bool

	indirect2BlockNo uint32
	indirect2        [NIndirect]uint32
	indirect2Loaded  bool
	indirect2Dirty   bool

	affected []uint32
	lo, hi   uint32
}

func newPlannedInode(ino *Inode) *plannedInode {
	return &plannedInode{ino: *ino.clone()}
}

func (p *plannedInode) loadIndirect(img *Image, blockNo uint32) {
	p.indirectBlockNo = blockNo
	if blockNo != 0 {
		decodeIndirect(&p.indirect, img.Block(blockNo))
	}
	p.indirectLoaded = true
}

func (p *plannedInode) loadIndirect2(img *Image, blockNo uint32) {
	p.indirect2BlockNo = blockNo
	if blockNo != 0 {
		decodeIndirect(&p.indirect2, img.Block(blockNo))
	}
	p.indirect2Loaded = true
}

func decodeIndirect(dst *[NIndirect]uint32, buf []byte) {
	for i := range dst {
		dst[i] = readSlot(buf, i)
	}
}

func encodeIndirect(src *[NIndirect]uint32) *[BlockSize]byte {
	var out [BlockSize]byte
	for i, v := range src {
		writeSlot(out[:], i, v)
	}
	return &out
}

// planAddBlock reserves and wires in one more data block for the file,
// implementing add_block_file (§4.4). ok=false, err=nil signals the batch
// must stop here (a fresh meta-block boundary was reached after other
// blocks were already planned this batch); the caller starts a new batch and
// retries the same logical block. A meta-block created in this call is
// always the first reservation of its batch (firstOfBatch), guaranteeing
// its index lands within the batch's own locality window; it is recorded in
// IndirectBlockno/Indirect2Blockno, not appended to the data-block affected
// list.
func planAddBlock(img *Image, p *plannedInode) (ok bool, err error) {
	n := p.ino.Size / BlockSize
	k, found := img.bm.FindFreeBlock(p.lo, p.hi)
	if !found {
		return false, ErrNoSpace
	}
	firstOfBatch := len(p.affected) == 0

	di := dirIdx(n)
	ii := indirIdx(n)
	i2 := indir2Idx(n)

	switch {
	case ii == -1:
		// Direct region: no meta-block involved.
		if firstOfBatch {
			p.lo = k
		}
		p.hi = k + 1
		p.ino.Direct[di] = k
		p.affected = append(p.affected, k)
		p.ino.Size += BlockSize
		return true, nil

	case i2 == -1:
		// Singly-indirect region.
		freshIndirect := n == NDirect
		if freshIndirect && !firstOfBatch {
			return false, nil
		}
		if firstOfBatch {
			p.lo = k
		}
		p.hi = k + 1

		if freshIndirect {
			mb, found2 := img.bm.FindFreeBlock(p.lo, p.hi)
			if !found2 {
				return false, ErrNoSpace
			}
			p.hi = mb + 1
			p.ino.Indirect = mb
			p.indirect = [NIndirect]uint32{}
			p.indirectBlockNo = mb
			p.indirectLoaded = true
		} else if !p.indirectLoaded {
			p.loadIndirect(img, p.ino.Indirect)
		}
		p.indirect[di] = k
		p.indirectDirty = true
		p.affected = append(p.affected, k)
		p.ino.Size += BlockSize
		return true, nil

	default:
		// Doubly-indirect region.
		freshSubIndirect := di == 0
		if freshSubIndirect && !firstOfBatch {
			return false, nil
		}
		if firstOfBatch {
			p.lo = k
		}
		p.hi = k + 1

		if freshSubIndirect {
			mb, found2 := img.bm.FindFreeBlock(p.lo, p.hi)
			if !found2 {
				return false, ErrNoSpace
			}
			p.hi = mb + 1
			p.indirectBlockNo = mb
			p.indirect = [NIndirect]uint32{}
			p.indirectLoaded = true
			p.indirectDirty = true

			if p.ino.Indirect2 == 0 {
				ib2, found3 := img.bm.FindFreeBlock(p.lo, p.hi)
				if !found3 {
					return false, ErrNoSpace
				}
				p.hi = ib2 + 1
				p.ino.Indirect2 = ib2
				p.indirect2 = [NIndirect]uint32{}
				p.indirect2BlockNo = ib2
				p.indirect2Loaded = true
			} else if !p.indirect2Loaded {
				p.loadIndirect2(img, p.ino.Indirect2)
			}
			p.indirect2[ii] = mb
			p.indirect2Dirty = true
		} else if !p.indirectLoaded {
			if !p.indirect2Loaded {
				p.loadIndirect2(img, p.ino.Indirect2)
			}
			p.loadIndirect(img, p.indirect2[ii])
		}
		p.indirect[di] = k
		p.indirectDirty = true
		p.affected = append(p.affected, k)
		p.ino.Size += BlockSize
		return true, nil
	}
}

// planFreeBlock releases the file's last data block, implementing
// free_block_file (§4.4). Callers must not invoke this when size is 0.
func planFreeBlock(img *Image, p *plannedInode) error {
	if p.ino.Size == 0 {
		return ErrIO
	}
	n := p.ino.Size/BlockSize - 1

	di := dirIdx(n)
	ii := indirIdx(n)
	i2 := indir2Idx(n)

	switch {
	case ii == -1:
		k := p.ino.Direct[di]
		p.affected = append(p.affected, k)
		p.ino.Direct[di] = 0
		p.ino.Size -= BlockSize
		return nil

	case i2 == -1:
		if !p.indirectLoaded {
			p.loadIndirect(img, p.ino.Indirect)
		}
		k := p.indirect[di]
		p.affected = append(p.affected, k)
		p.indirect[di] = 0
		p.indirectDirty = true
		if di == 0 {
			p.ino.Indirect = 0
		}
		p.ino.Size -= BlockSize
		return nil

	default:
		if !p.indirect2Loaded {
			p.loadIndirect2(img, p.ino.Indirect2)
		}
		if !p.indirectLoaded {
			p.loadIndirect(img, p.indirect2[ii])
		}
		k := p.indirect[di]
		p.affected = append(p.affected, k)
		p.indirect[di] = 0
		p.indirectDirty = true
		if di == 0 {
			p.indirect2[ii] = 0
			p.indirect2Dirty = true
			if ii == 0 {
				p.ino.Indirect2 = 0
			}
		}
		p.ino.Size -= BlockSize
		return nil
	}
}

// finish converts a plannedInode's accumulated work into an immutable
// StagedBatch ready for Journal.Stage.
func (p *plannedInode) finish(kind execType, targetIno uint32) *StagedBatch {
	b := &StagedBatch{
		Kind:            kind,
		TargetIno:       targetIno,
		Inode:           p.ino,
		Affected:        p.affected,
		IndirectBlockno: p.indirectBlockNo,
	}
	if p.indirectDirty {
		b.ResizeType |= resizeTouchedIndirect
		b.IndirectSnapshot = encodeIndirect(&p.indirect)
	}
	if p.indirect2Dirty {
		b.ResizeType |= resizeTouchedIndirect2
		b.Indirect2Snapshot = encodeIndirect(&p.indirect2)
	}
	if b.ResizeType&resizeTouchedIndirect2 != 0 {
		b.Indirect2Blockno = p.indirect2BlockNo
	}
	return b
}
