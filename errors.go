package ospfs

import "errors"

// Package-specific error variables that can be used with errors.Is() for error handling.
var (
	// ErrNoSpace is returned when no free block or inode is available, or a
	// requested size exceeds MaxFileSize.
	ErrNoSpace = errors.New("ospfs: no space left on device")

	// ErrNotFound is returned when a named directory entry is absent.
	ErrNotFound = errors.New("ospfs: no such file or directory")

	// ErrExists is returned when a name is already present in a directory.
	ErrExists = errors.New("ospfs: file exists")

	// ErrNameTooLong is returned when an entry name or symlink target
	// exceeds its on-disk limit.
	ErrNameTooLong = errors.New("ospfs: name too long")

	// ErrNotPermitted is returned for operations disallowed by an inode's
	// type, such as setting a size on a directory.
	ErrNotPermitted = errors.New("ospfs: operation not permitted")

	// ErrIO is returned when a structural invariant is violated mid
	// operation, e.g. a block-map pointer is zero where a live block was
	// expected. Surfaced without attempting repair.
	ErrIO = errors.New("ospfs: i/o error")

	// ErrFault is returned when a caller-supplied buffer could not be
	// copied to or from.
	ErrFault = errors.New("ospfs: bad address")

	// ErrOutOfMemory is returned when the host could not allocate an
	// in-memory inode shadow.
	ErrOutOfMemory = errors.New("ospfs: cannot allocate memory")

	// ErrNotDirectory is returned when a directory-only operation is
	// attempted against a non-directory inode, and by ReadFile/WriteFile
	// when the target inode is a directory.
	ErrNotDirectory = errors.New("ospfs: not a directory")

	// ErrInvalidImage is returned when a disk image fails superblock
	// validation at mount time.
	ErrInvalidImage = errors.New("ospfs: invalid or corrupt disk image")
)
