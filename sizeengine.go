package ospfs

// changeSize implements the file size engine (C6): grows or shrinks ino's
// block map to hold newSize bytes, one journal batch at a time. Each batch
// holds at most JMax data blocks. planAddBlock signals a batch boundary (a
// fresh meta-block) by returning ok=false with no error; shrinkOnce ends a
// batch once a meta-block has just been vacated. The batch in hand is then
// run and a new one started for the same logical block. The planner works
// in whole blocks; a final batch sets the exact byte size.
func (img *Image) changeSize(ino uint32, newSize uint64) error {
	if newSize > MaxFileSize {
		return ErrNoSpace
	}

	want := (newSize + BlockSize - 1) / BlockSize * BlockSize
	cur := img.InodeAt(ino)
	cur.Size = cur.NBlocks() * BlockSize
	for uint64(cur.Size) < want {
		if err := img.growOnce(ino, cur, want); err != nil {
			return err
		}
		cur = img.InodeAt(ino)
	}
	for uint64(cur.Size) > want {
		if err := img.shrinkOnce(ino, cur, want); err != nil {
			return err
		}
		cur = img.InodeAt(ino)
	}
	if uint64(cur.Size) != newSize {
		cur.Size = uint32(newSize)
		return img.jnl.Run(&StagedBatch{Kind: execAlloc, TargetIno: ino, Inode: *cur})
	}
	return nil
}

func (img *Image) growOnce(ino uint32, cur *Inode, target uint64) error {
	p := newPlannedInode(cur)
	for uint64(p.ino.Size) < target && len(p.affected) < JMax {
		ok, err := planAddBlock(img, p)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	if len(p.affected) == 0 {
		// A lone meta-block boundary was hit with nothing planned yet:
		// force exactly one block through regardless.
		ok, err := planAddBlock(img, p)
		if err != nil {
			return err
		}
		if !ok {
			return ErrIO
		}
	}
	batch := p.finish(execAlloc, ino)
	return img.jnl.Run(batch)
}

func (img *Image) shrinkOnce(ino uint32, cur *Inode, target uint64) error {
	p := newPlannedInode(cur)
	for uint64(p.ino.Size) > target && len(p.affected) < JMax {
		if err := planFreeBlock(img, p); err != nil {
			return err
		}
		// A header can only ever name one indirect and one indirect2
		// block per batch; once this call has just vacated the one it
		// was touching, any further free in the same batch would need a
		// different meta-block, so stop here. p.indirect2Dirty covers the
		// doubly-indirect region's own sub-indirect collapse (freeing the
		// last entry of the current indirect2[ii] block), symmetric to
		// planAddBlock's freshSubIndirect-and-not-firstOfBatch stop: the
		// next logical block lives under a different sub-indirect block
		// that this batch's loaded p.indirect/p.indirectBlockNo scratch
		// does not describe.
		if (p.indirectDirty && p.ino.Indirect == 0) || p.indirect2Dirty {
			break
		}
	}
	batch := p.finish(execFree, ino)
	return img.jnl.Run(batch)
}
