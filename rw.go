package ospfs

// ReadFile implements the read half of C7: copy up to len(p) bytes starting
// at off from ino's data into p, stopping at EOF. It never journals;
// reading never mutates structure.
func (img *Image) ReadFile(ino uint32, off int64, p []byte) (int, error) {
	img.mu.RLock()
	defer img.mu.RUnlock()

	inode := img.InodeAt(ino)
	if inode.IsDir() {
		return 0, ErrNotDirectory
	}
	if off < 0 {
		return 0, ErrFault
	}
	if uint64(off) >= uint64(inode.Size) {
		return 0, nil
	}

	n := 0
	for n < len(p) {
		curOff := off + int64(n)
		if uint64(curOff) >= uint64(inode.Size) {
			break
		}
		blk, err := img.BlockAtOffset(inode, curOff)
		if err != nil {
			return n, err
		}
		within := int(curOff % BlockSize)
		avail := BlockSize - within
		want := len(p) - n
		if want > avail {
			want = avail
		}
		remain := int64(inode.Size) - curOff
		if int64(want) > remain {
			want = int(remain)
		}
		if blk == 0 {
			for i := 0; i < want; i++ {
				p[n+i] = 0
			}
		} else {
			copy(p[n:n+want], img.Block(blk)[within:within+want])
		}
		n += want
	}
	return n, nil
}

// WriteFile implements the write half of C7: write p at offset off,
// growing ino via changeSize first if the write extends past the current
// end of file, then staging WRITE batches of at most JMax blocks each.
func (img *Image) WriteFile(ino uint32, off int64, p []byte) (int, error) {
	img.mu.Lock()
	defer img.mu.Unlock()

	inode := img.InodeAt(ino)
	if inode.IsDir() {
		return 0, ErrNotDirectory
	}
	if off < 0 {
		return 0, ErrFault
	}
	end := uint64(off) + uint64(len(p))
	if end > MaxFileSize {
		return 0, ErrNoSpace
	}
	if end > uint64(inode.Size) {
		if err := img.changeSize(ino, end); err != nil {
			return 0, err
		}
		inode = img.InodeAt(ino)
	}

	n := 0
	for n < len(p) {
		batchInode := *inode
		var affected []uint32
		var data [][]byte

		for n < len(p) && len(affected) < JMax {
			curOff := off + int64(n)
			blk, err := img.BlockAtOffset(&batchInode, curOff)
			if err != nil {
				return n, err
			}
			if blk == 0 {
				return n, ErrIO
			}
			within := int(curOff % BlockSize)
			want := BlockSize - within
			if want > len(p)-n {
				want = len(p) - n
			}

			buf := append([]byte(nil), img.Block(blk)...)
			copy(buf[within:within+want], p[n:n+want])

			affected = append(affected, blk)
			data = append(data, buf)
			n += want
		}

		batch := &StagedBatch{
			Kind:      execWrite,
			TargetIno: ino,
			Inode:     batchInode,
			Affected:  affected,
			Data:      data,
		}
		if err := img.jnl.Run(batch); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Truncate implements the size-changing half of C6/C7 as exposed to
// callers: set ino's size to newSize, freeing or zero-growing blocks as
// needed. Setting the size of a directory fails with ErrNotPermitted.
func (img *Image) Truncate(ino uint32, newSize uint64) error {
	img.mu.Lock()
	defer img.mu.Unlock()
	inode := img.InodeAt(ino)
	if inode.IsDir() {
		return ErrNotPermitted
	}
	return img.changeSize(ino, newSize)
}
