package ospfs

// On-disk layout constants. BlockSize, NDirect and the journal geometry are
// chosen so the inode record lands on the "64 bytes suggested" size and the
// journal region lands on the "260 blocks" total named by the external
// interface: header(1) + affected-list(1) + indirect2 snapshot(1) + indirect
// snapshot(1) + JMax data payload blocks(256).
const (
	// BlockSize is the fixed size in bytes of every block in the image.
	BlockSize = 1024

	// NDirect is the number of direct block-map slots in an inode.
	NDirect = 10

	// NIndirect is the number of block indices that fit in one indirect
	// block (BlockSize / 4 bytes per uint32).
	NIndirect = BlockSize / 4

	// NIndirect2 is the number of data blocks reachable purely through the
	// doubly-indirect region.
	NIndirect2 = NIndirect * NIndirect

	// MaxFileSize is the largest size representable by the block map.
	MaxFileSize = uint64(NDirect+NIndirect+NIndirect2) * BlockSize

	// JMax is the maximum number of data blocks staged in a single journal
	// batch.
	JMax = 256

	// InodeSize is the fixed on-disk size of one inode record.
	InodeSize = 64

	// inodeHeaderSize is the {size, ftype, nlink} prefix shared by both the
	// regular-file/directory interpretation and the symlink reinterpretation
	// of an inode record.
	inodeHeaderSize = 12

	// MaxSymlinkLen is the longest inline symlink target, leaving one byte
	// in the 64-byte record for the mandatory NUL terminator.
	MaxSymlinkLen = InodeSize - inodeHeaderSize - 1

	// directEntrySize is the fixed on-disk size of one directory entry:
	// a uint32 inode number plus a 28-byte name field. 1024/32 = 32 entries
	// per block, matching the illustrative arithmetic of the "64 files
	// crossing a block boundary at 32 entries per block" scenario.
	directEntrySize = 32

	// MaxNameLen is the longest name storable in a directory entry,
	// reserving one byte for the mandatory NUL terminator.
	MaxNameLen = directEntrySize - 4 - 1

	// entriesPerBlock is the number of directory entries in one block.
	entriesPerBlock = BlockSize / directEntrySize

	// The journal*BlockOff constants are the block offsets, within the
	// journal region, of each fixed sub-region.
	journalHeaderBlockOff    = 0
	journalListBlockOff      = 1
	journalIndirect2BlockOff = 2
	journalIndirectBlockOff  = 3
	journalDataBlockOff      = 4

	// JournalBlocks is the total size in blocks of the journal region.
	JournalBlocks = journalDataBlockOff + JMax

	// bootBlock and superBlock are the fixed low block indices.
	bootBlock  = 0
	superBlock = 1
	// firstBitmapBlock is the first block of the free-block bitmap.
	firstBitmapBlock = 2

	// diskMagic is the 4-byte ASCII signature stored in the superblock.
	diskMagic = "ospj"

	// RootIno is the inode number of the file system's root directory.
	RootIno = 1
)
