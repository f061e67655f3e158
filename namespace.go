package ospfs

import "strings"

// allocInode scans the inode table for the first free (Nlink == 0) slot,
// implementing the inode half of allocation that the block bitmap (C2)
// doesn't cover. Inode 0 is never returned; it is reserved as the "no
// inode" sentinel.
func (img *Image) allocInode() (uint32, error) {
	for i := uint32(1); i < img.sb.NInodes; i++ {
		if !img.InodeAt(i).Live() {
			return i, nil
		}
	}
	return 0, ErrNoSpace
}

// writeDirEntry stages and runs a single CREATE/HARDLINK batch that writes
// one directory slot and updates the target inode in the same transaction.
func (img *Image) writeDirEntry(kind execType, blk uint32, slot int, entry *dirent, targetIno uint32, targetInode *Inode) error {
	buf := append([]byte(nil), img.Block(blk)...)
	entry.encode(buf[slot*directEntrySize : (slot+1)*directEntrySize])

	batch := &StagedBatch{
		Kind:      kind,
		TargetIno: targetIno,
		Inode:     *targetInode,
		Affected:  []uint32{blk},
		Data:      [][]byte{buf},
	}
	return img.jnl.Run(batch)
}

// Lookup implements the name resolution half of C9: the inode number named
// by name within dirIno.
func (img *Image) Lookup(dirIno uint32, name string) (uint32, error) {
	img.mu.RLock()
	defer img.mu.RUnlock()

	dir := img.InodeAt(dirIno)
	if !dir.IsDir() {
		return 0, ErrNotDirectory
	}
	d, err := img.findDirEntry(dir, name)
	if err != nil {
		return 0, err
	}
	return d.Ino, nil
}

// Create implements ospfs_create (§4.9): allocate a fresh regular-file
// inode and link it into dirIno under name.
func (img *Image) Create(dirIno uint32, name string, mode uint32) (uint32, error) {
	img.mu.Lock()
	defer img.mu.Unlock()
	return img.createInode(dirIno, name, TypeRegular, mode)
}

// Mkdir implements directory creation: a fresh directory inode, linked into
// dirIno under name, pre-populated with "." and ".." entries.
func (img *Image) Mkdir(dirIno uint32, name string, mode uint32) (uint32, error) {
	img.mu.Lock()
	defer img.mu.Unlock()

	newIno, err := img.createInode(dirIno, name, TypeDirectory, mode)
	if err != nil {
		return 0, err
	}

	blk, slot, err := img.findBlankDirEntry(newIno, img.InodeAt(newIno))
	if err != nil {
		return 0, err
	}
	self := &dirent{Ino: newIno}
	self.setName(".")
	inode := img.InodeAt(newIno)
	inode.Nlink++
	if err := img.writeDirEntry(execHardlink, blk, slot, self, newIno, inode); err != nil {
		return 0, err
	}

	blk, slot, err = img.findBlankDirEntry(newIno, img.InodeAt(newIno))
	if err != nil {
		return 0, err
	}
	parent := &dirent{Ino: dirIno}
	parent.setName("..")
	parentInode := img.InodeAt(dirIno)
	parentInode.Nlink++
	if err := img.writeDirEntry(execHardlink, blk, slot, parent, dirIno, parentInode); err != nil {
		return 0, err
	}

	return newIno, nil
}

func (img *Image) createInode(dirIno uint32, name string, ftype FileType, mode uint32) (uint32, error) {
	if len(name) > MaxNameLen {
		return 0, ErrNameTooLong
	}
	dir := img.InodeAt(dirIno)
	if !dir.IsDir() {
		return 0, ErrNotDirectory
	}
	if _, err := img.findDirEntry(dir, name); err == nil {
		return 0, ErrExists
	} else if err != ErrNotFound {
		return 0, err
	}

	newIno, err := img.allocInode()
	if err != nil {
		return 0, err
	}
	newInode := &Inode{Ftype: ftype, Nlink: 1, Mode: mode}

	blk, slot, err := img.findBlankDirEntry(dirIno, dir)
	if err != nil {
		return 0, err
	}
	entry := &dirent{Ino: newIno}
	if err := entry.setName(name); err != nil {
		return 0, err
	}
	if err := img.writeDirEntry(execCreate, blk, slot, entry, newIno, newInode); err != nil {
		return 0, err
	}
	return newIno, nil
}

// HardLink implements ospfs_link (§4.9): add another name pointing at an
// existing inode, incrementing its link count in the same batch as the new
// directory entry.
func (img *Image) HardLink(dirIno uint32, name string, targetIno uint32) error {
	img.mu.Lock()
	defer img.mu.Unlock()

	dir := img.InodeAt(dirIno)
	if !dir.IsDir() {
		return ErrNotDirectory
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	if _, err := img.findDirEntry(dir, name); err == nil {
		return ErrExists
	} else if err != ErrNotFound {
		return err
	}

	target := img.InodeAt(targetIno)
	if !target.Live() {
		return ErrNotFound
	}
	if target.IsDir() {
		return ErrNotPermitted
	}

	blk, slot, err := img.findBlankDirEntry(dirIno, dir)
	if err != nil {
		return err
	}
	entry := &dirent{Ino: targetIno}
	if err := entry.setName(name); err != nil {
		return err
	}
	target.Nlink++
	return img.writeDirEntry(execHardlink, blk, slot, entry, targetIno, target)
}

// clearDirEntry stages a WRITE batch that blanks one directory slot,
// without touching the target inode (that half is staged separately so the
// two can fail or recover independently at the journal granularity).
func (img *Image) clearDirEntry(dirIno uint32, dir *Inode, blk uint32, slot int, empty *dirent) error {
	buf := append([]byte(nil), img.Block(blk)...)
	empty.encode(buf[slot*directEntrySize : (slot+1)*directEntrySize])
	batch := &StagedBatch{
		Kind:      execWrite,
		TargetIno: dirIno,
		Inode:     *dir,
		Affected:  []uint32{blk},
		Data:      [][]byte{buf},
	}
	return img.jnl.Run(batch)
}

// Unlink implements ospfs_unlink (§4.9): remove name from dirIno and drop
// the target inode's link count, freeing its blocks and marking it free
// once the count reaches zero.
func (img *Image) Unlink(dirIno uint32, name string) error {
	img.mu.Lock()
	defer img.mu.Unlock()

	dir := img.InodeAt(dirIno)
	if !dir.IsDir() {
		return ErrNotDirectory
	}
	var targetBlk uint32
	var targetSlot int = -1
	var targetIno uint32
	err := img.forEachDirEntry(dir, func(d *dirent, blk uint32, slot int) bool {
		if d.name() == name {
			targetBlk, targetSlot, targetIno = blk, slot, d.Ino
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	if targetSlot < 0 {
		return ErrNotFound
	}

	target := img.InodeAt(targetIno)
	empty := &dirent{}
	if err := img.clearDirEntry(dirIno, dir, targetBlk, targetSlot, empty); err != nil {
		return err
	}

	if target.Nlink > 0 {
		target.Nlink--
	}
	if target.Nlink == 0 {
		if target.IsSymlink() {
			// A symlink's Size is its inline target length, not a block
			// count: changeSize's block-map arithmetic does not apply.
			// Zero the record wholesale, per §4.9.
			target = &Inode{}
		} else {
			if err := img.changeSize(targetIno, 0); err != nil {
				return err
			}
			target = img.InodeAt(targetIno)
			target.Nlink = 0
			target.Ftype = TypeFree
		}
	}
	batch := &StagedBatch{Kind: execUnlink, TargetIno: targetIno, Inode: *target}
	return img.jnl.Run(batch)
}

// Symlink implements ospfs_symlink (§4.9), including the conditional
// "root?A:B" convention: the inline target is rewritten at write time so
// the NUL terminator falls after whichever branch name resolution ends up
// selecting.
func (img *Image) Symlink(dirIno uint32, name, target string) error {
	img.mu.Lock()
	defer img.mu.Unlock()

	if len(target) > MaxSymlinkLen {
		return ErrNameTooLong
	}
	dir := img.InodeAt(dirIno)
	if !dir.IsDir() {
		return ErrNotDirectory
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	if _, err := img.findDirEntry(dir, name); err == nil {
		return ErrExists
	} else if err != ErrNotFound {
		return err
	}

	encoded, err := encodeSymlinkTarget(target)
	if err != nil {
		return err
	}

	newIno, err := img.allocInode()
	if err != nil {
		return ErrNoSpace
	}
	newInode := &Inode{
		Ftype:     TypeSymlink,
		Nlink:     1,
		Size:      uint32(len(encoded)),
		SymTarget: encoded,
	}

	blk, slot, err := img.findBlankDirEntry(dirIno, dir)
	if err != nil {
		return err
	}
	entry := &dirent{Ino: newIno}
	if err := entry.setName(name); err != nil {
		return err
	}
	return img.writeDirEntry(execCreate, blk, slot, entry, newIno, newInode)
}

// conditionalPrefix is the literal marker §4.9/§6 give special meaning to:
// a symlink target beginning with it is a conditional "root?A:B" link.
const conditionalPrefix = "root?"

// encodeSymlinkTarget rewrites a "root?A:B" conditional target into its
// on-disk form: the ':' separator is replaced by a NUL so FollowSymlink can
// split the two branches with a single byte scan. A target that starts with
// the "root?" prefix but carries no ':' is the malformed case spec.md §9
// flags as undefined in the source; this implementation rejects it with
// ErrNameTooLong rather than silently storing an unsplittable target (see
// DESIGN.md's Open Question decision).
func encodeSymlinkTarget(target string) ([]byte, error) {
	if !strings.HasPrefix(target, conditionalPrefix) {
		return []byte(target), nil
	}
	rest := target[len(conditionalPrefix):]
	sep := strings.IndexByte(rest, ':')
	if sep < 0 {
		return nil, ErrNameTooLong
	}
	out := []byte(target[:len(conditionalPrefix)] + rest)
	out[len(conditionalPrefix)+sep] = 0
	return out, nil
}

// FollowSymlink implements symlink resolution (§4.9): for a plain target,
// the stored string; for a conditional "root?A:B" target, branch A if the
// caller is uid 0, otherwise branch B.
func FollowSymlink(ino *Inode, uid uint32) string {
	raw := ino.SymTarget
	if !hasRawPrefix(raw, conditionalPrefix) {
		return string(raw)
	}
	rest := raw[len(conditionalPrefix):]
	sep := -1
	for i, b := range rest {
		if b == 0 {
			sep = i
			break
		}
	}
	if sep < 0 {
		// No live encoder produces this; treat the text as a literal
		// path rather than panicking on a corrupt/foreign image.
		return string(raw)
	}
	if uid == 0 {
		return string(rest[:sep])
	}
	return string(rest[sep+1:])
}

func hasRawPrefix(raw []byte, prefix string) bool {
	if len(raw) < len(prefix) {
		return false
	}
	return string(raw[:len(prefix)]) == prefix
}
