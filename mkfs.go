package ospfs

// Mkfs formats a fresh image of nblocks blocks and ninodes inodes into data,
// which must already be sized at least nblocks*BlockSize. It lays out the
// boot block, superblock, bitmap, inode table, and journal region, marks
// every reserved block as allocated, and creates the root directory (ino
// RootIno) with "." and ".." both pointing at itself.
func Mkfs(data []byte, nblocks, ninodes uint32) (*Image, error) {
	if uint64(len(data)) < uint64(nblocks)*BlockSize {
		return nil, ErrFault
	}
	for i := range data {
		data[i] = 0
	}

	sb := &Superblock{
		NBlocks: nblocks,
		NInodes: ninodes,
	}
	lo := sb.diskLayout()
	sb.FirstInoB = firstBitmapBlock + lo.bitmapBlocks
	sb.FirstJournalB = sb.FirstInoB + lo.inodeBlocks
	sb.NJournalB = JournalBlocks
	sb.FirstDataB = sb.FirstJournalB + sb.NJournalB
	if sb.FirstDataB >= nblocks {
		return nil, ErrNoSpace
	}
	sb.Magic = uint32('o') | uint32('s')<<8 | uint32('p')<<16 | uint32('j')<<24

	img := NewImage(data)
	img.sb = sb
	img.bm = newBitmap(img)
	img.jnl = newJournal(img)

	copy(img.rawBlock(superBlock), sb.MarshalBinary())

	// Every block starts allocated (bitmap bytes are zero == allocated, per
	// §4.2's bit=1-means-free convention); mark only the data region free,
	// so the reserved blocks below it stay allocated.
	for i := sb.FirstDataB; i < sb.NBlocks; i++ {
		img.bm.setFree(i, true)
	}

	root := &Inode{Ftype: TypeDirectory, Nlink: 2, Mode: 0755}
	img.PutInode(RootIno, root)

	blk, slot, err := img.findBlankDirEntry(RootIno, img.InodeAt(RootIno))
	if err != nil {
		return nil, err
	}
	self := &dirent{Ino: RootIno}
	self.setName(".")
	self.encode(img.Block(blk)[slot*directEntrySize : (slot+1)*directEntrySize])

	root = img.InodeAt(RootIno)
	blk, slot, err = img.findBlankDirEntry(RootIno, root)
	if err != nil {
		return nil, err
	}
	parent := &dirent{Ino: RootIno}
	parent.setName("..")
	parent.encode(img.Block(blk)[slot*directEntrySize : (slot+1)*directEntrySize])

	return img, nil
}
