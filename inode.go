package ospfs

import (
	"encoding/binary"
	"io/fs"
)

// FileType is the tagged type of an inode record: regular, directory, or
// symlink. Re-expressed as a tagged sum rather than the function-pointer
// tables the source dispatches through (see DESIGN.md), so every name-space
// operation matches on Type and refuses disallowed combinations directly.
type FileType uint32

const (
	// TypeFree marks an inode slot with no live record (Nlink == 0).
	TypeFree FileType = iota
	TypeRegular
	TypeDirectory
	TypeSymlink
)

func (t FileType) String() string {
	switch t {
	case TypeFree:
		return "free"
	case TypeRegular:
		return "regular"
	case TypeDirectory:
		return "directory"
	case TypeSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Inode is the decoded, in-memory form of an on-disk inode record. For
// TypeSymlink inodes, Mode/Direct/Indirect/Indirect2 are meaningless; the
// on-disk bytes they would occupy hold SymTarget instead.
type Inode struct {
	Size      uint32
	Ftype     FileType
	Nlink     uint32
	Mode      uint32
	Direct    [NDirect]uint32
	Indirect  uint32
	Indirect2 uint32

	// SymTarget holds the inline symlink target; valid only when
	// Ftype == TypeSymlink, length always equal to Size.
	SymTarget []byte
}

// Live reports whether this inode slot currently holds a live file.
func (ino *Inode) Live() bool {
	return ino.Nlink != 0
}

// IsDir reports whether this inode is a directory.
func (ino *Inode) IsDir() bool {
	return ino.Ftype == TypeDirectory
}

// IsSymlink reports whether this inode is a symbolic link.
func (ino *Inode) IsSymlink() bool {
	return ino.Ftype == TypeSymlink
}

// NBlocks returns the number of logical blocks currently reachable through
// this inode's block map, i.e. ceil(Size/BlockSize).
func (ino *Inode) NBlocks() uint32 {
	return uint32((uint64(ino.Size) + BlockSize - 1) / BlockSize)
}

// FileMode returns an fs.FileMode combining the inode's permission bits with
// its type, in the same spirit as the teacher's Type.Mode()/UnixToMode
// helpers.
func (ino *Inode) FileMode() fs.FileMode {
	perm := fs.FileMode(ino.Mode & 0777)
	switch ino.Ftype {
	case TypeDirectory:
		return perm | fs.ModeDir
	case TypeSymlink:
		return perm | fs.ModeSymlink
	default:
		return perm
	}
}

// clone returns a deep copy of ino, safe to mutate without affecting the
// live structures until it is written back through PutInode or a journal
// apply. This is the copy the resize planner works against (§4.4/§5).
func (ino *Inode) clone() *Inode {
	cp := *ino
	if len(ino.SymTarget) > 0 {
		cp.SymTarget = append([]byte(nil), ino.SymTarget...)
	}
	return &cp
}

// MarshalBinary encodes the inode into its fixed 64-byte on-disk form.
func (ino *Inode) MarshalBinary() []byte {
	buf := make([]byte, InodeSize)
	binary.LittleEndian.PutUint32(buf[0:4], ino.Size)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(ino.Ftype))
	binary.LittleEndian.PutUint32(buf[8:12], ino.Nlink)

	if ino.Ftype == TypeSymlink {
		copy(buf[inodeHeaderSize:], ino.SymTarget)
		return buf
	}

	binary.LittleEndian.PutUint32(buf[12:16], ino.Mode)
	off := 16
	for _, d := range ino.Direct {
		binary.LittleEndian.PutUint32(buf[off:off+4], d)
		off += 4
	}
	binary.LittleEndian.PutUint32(buf[off:off+4], ino.Indirect)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], ino.Indirect2)
	return buf
}

// UnmarshalInode decodes a 64-byte on-disk inode record.
func UnmarshalInode(buf []byte) *Inode {
	ino := &Inode{}
	ino.Size = binary.LittleEndian.Uint32(buf[0:4])
	ino.Ftype = FileType(binary.LittleEndian.Uint32(buf[4:8]))
	ino.Nlink = binary.LittleEndian.Uint32(buf[8:12])

	if ino.Ftype == TypeSymlink {
		n := ino.Size
		if n > MaxSymlinkLen {
			n = MaxSymlinkLen
		}
		ino.SymTarget = append([]byte(nil), buf[inodeHeaderSize:inodeHeaderSize+n]...)
		return ino
	}

	ino.Mode = binary.LittleEndian.Uint32(buf[12:16])
	off := 16
	for i := range ino.Direct {
		ino.Direct[i] = binary.LittleEndian.Uint32(buf[off : off+4])
		off += 4
	}
	ino.Indirect = binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4
	ino.Indirect2 = binary.LittleEndian.Uint32(buf[off : off+4])
	return ino
}
