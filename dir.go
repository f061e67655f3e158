package ospfs

import (
	"io/fs"
)

// dirent is the fixed 32-byte on-disk directory entry record (C8): a uint32
// inode number followed by a NUL-terminated name field. An entry with Ino
// == 0 is a blank (free) slot.
type dirent struct {
	Ino  uint32
	Name [MaxNameLen + 1]byte
}

func (d *dirent) name() string {
	n := 0
	for n < len(d.Name) && d.Name[n] != 0 {
		n++
	}
	return string(d.Name[:n])
}

func (d *dirent) setName(name string) error {
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	d.Name = [MaxNameLen + 1]byte{}
	copy(d.Name[:], name)
	return nil
}

func decodeDirent(buf []byte) *dirent {
	d := &dirent{Ino: readSlot(buf, 0)}
	copy(d.Name[:], buf[4:4+MaxNameLen+1])
	return d
}

func (d *dirent) encode(buf []byte) {
	writeSlot(buf, 0, d.Ino)
	copy(buf[4:4+MaxNameLen+1], d.Name[:])
}

func direntAt(blockBuf []byte, slot int) *dirent {
	off := slot * directEntrySize
	return decodeDirent(blockBuf[off : off+directEntrySize])
}

// forEachDirEntry walks every occupied slot of a directory inode, calling fn
// with the entry and its (block, slot) location; fn returning false stops
// the walk early.
func (img *Image) forEachDirEntry(ino *Inode, fn func(d *dirent, blk uint32, slot int) bool) error {
	nblocks := ino.NBlocks()
	for bi := uint32(0); bi < nblocks; bi++ {
		blk, err := img.BlockAtOffset(ino, int64(bi)*BlockSize)
		if err != nil {
			return err
		}
		if blk == 0 {
			continue
		}
		buf := img.Block(blk)
		for s := 0; s < entriesPerBlock; s++ {
			d := direntAt(buf, s)
			if d.Ino == 0 {
				continue
			}
			if !fn(d, blk, s) {
				return nil
			}
		}
	}
	return nil
}

// findDirEntry implements the name-lookup half of C8/C9: the directory
// entry named name within dir, or ErrNotFound.
func (img *Image) findDirEntry(dir *Inode, name string) (*dirent, error) {
	var found *dirent
	err := img.forEachDirEntry(dir, func(d *dirent, blk uint32, slot int) bool {
		if d.name() == name {
			cp := *d
			found = &cp
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// findBlankDirEntry implements create_blank_direntry (§4.8): locate the
// first free slot in dir, growing the directory by one block via the size
// engine if every existing slot is occupied. Returns the block holding the
// slot and the slot index; the caller is responsible for staging the
// encoded entry through a journal batch.
func (img *Image) findBlankDirEntry(dirIno uint32, dir *Inode) (blk uint32, slot int, err error) {
	foundBlk, foundSlot := uint32(0), -1
	err = img.forEachDirEntry2(dir, func(d *dirent, blkNo uint32, s int) bool {
		if d.Ino == 0 {
			foundBlk, foundSlot = blkNo, s
			return false
		}
		return true
	})
	if err != nil {
		return 0, 0, err
	}
	if foundSlot >= 0 {
		return foundBlk, foundSlot, nil
	}

	// No free slot anywhere, including trailing holes: grow by one block.
	oldSize := uint64(dir.Size)
	if err := img.changeSize(dirIno, oldSize+BlockSize); err != nil {
		return 0, 0, err
	}
	grown := img.InodeAt(dirIno)
	blk, err = img.BlockAtOffset(grown, int64(oldSize))
	if err != nil {
		return 0, 0, err
	}
	zeroed := img.Block(blk)
	for i := range zeroed {
		zeroed[i] = 0
	}
	return blk, 0, nil
}

// forEachDirEntry2 walks every slot, occupied or not, unlike
// forEachDirEntry which skips blanks; used to find a free slot.
func (img *Image) forEachDirEntry2(ino *Inode, fn func(d *dirent, blk uint32, slot int) bool) error {
	nblocks := ino.NBlocks()
	for bi := uint32(0); bi < nblocks; bi++ {
		blk, err := img.BlockAtOffset(ino, int64(bi)*BlockSize)
		if err != nil {
			return err
		}
		if blk == 0 {
			continue
		}
		buf := img.Block(blk)
		for s := 0; s < entriesPerBlock; s++ {
			d := direntAt(buf, s)
			if !fn(d, blk, s) {
				return nil
			}
		}
	}
	return nil
}

// direntry adapts one occupied directory slot to fs.DirEntry, for fsview.go.
type direntry struct {
	nm   string
	ino  *Inode
	inum uint32
}

func (de *direntry) Name() string { return de.nm }

func (de *direntry) IsDir() bool { return de.ino.IsDir() }

func (de *direntry) Type() fs.FileMode { return de.ino.FileMode().Type() }

func (de *direntry) Info() (fs.FileInfo, error) {
	return &fileinfo{name: de.nm, ino: de.ino}, nil
}

// Readdir implements the listing half of C9: every entry of dirIno. "." and
// ".." are ordinary stored entries, written by Mkdir like any other UNIX
// directory, so no synthesis is needed here.
func (img *Image) Readdir(dirIno uint32) ([]fs.DirEntry, error) {
	img.mu.RLock()
	defer img.mu.RUnlock()

	dir := img.InodeAt(dirIno)
	if !dir.IsDir() {
		return nil, ErrNotDirectory
	}

	var res []fs.DirEntry
	err := img.forEachDirEntry(dir, func(d *dirent, blk uint32, slot int) bool {
		childIno := img.InodeAt(d.Ino)
		res = append(res, &direntry{nm: d.name(), ino: childIno, inum: d.Ino})
		return true
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ErrEndOfDirectory is the END sentinel §6's cursor-paged readdir returns
// once cursor has walked past the last occupied slot.
var ErrEndOfDirectory = errEndOfDirectory{}

type errEndOfDirectory struct{}

func (errEndOfDirectory) Error() string { return "ospfs: end of directory" }

// ReaddirCursor implements §4.9/§6's cursor-paged readdir(dir, cursor) →
// (name, ino, kind, next_cursor) | END. Because "." and ".." are ordinary
// stored entries here (Mkdir writes them like any other UNIX directory, see
// Readdir above), cursor is simply the dense directory-entry-array index:
// the synthesized cursor 0/1 slots spec.md describes for a from-scratch
// synthesis scheme fall out for free, since Mkdir always places "." and
// ".." in the first two slots it allocates. Tombstoned slots are skipped by
// advancing cursor past them; the walk terminates once cursor reaches the
// directory's total slot count (size/entry_size), the same terminal
// condition as spec.md's "size / entry_size + 2" once no separate +2 of
// synthesized slots exists to account for.
func (img *Image) ReaddirCursor(dirIno uint32, cursor int) (name string, ino uint32, kind fs.FileMode, next int, err error) {
	img.mu.RLock()
	defer img.mu.RUnlock()

	dir := img.InodeAt(dirIno)
	if !dir.IsDir() {
		return "", 0, 0, 0, ErrNotDirectory
	}
	if cursor < 0 {
		return "", 0, 0, 0, ErrFault
	}

	total := int(dir.NBlocks()) * entriesPerBlock
	for cursor < total {
		blkOff := int64(cursor/entriesPerBlock) * BlockSize
		blk, err := img.BlockAtOffset(dir, blkOff)
		if err != nil {
			return "", 0, 0, 0, err
		}
		if blk != 0 {
			d := direntAt(img.Block(blk), cursor%entriesPerBlock)
			if d.Ino != 0 {
				child := img.InodeAt(d.Ino)
				return d.name(), d.Ino, child.FileMode().Type(), cursor + 1, nil
			}
		}
		cursor++
	}
	return "", 0, 0, cursor, ErrEndOfDirectory
}
