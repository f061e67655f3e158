package ospfs

import (
	"io"
	"io/fs"
	"path"
	"time"
)

// File is a convenience object exposing a regular-file inode through
// io.ReaderAt/io.Seeker/fs.File, analogous to the teacher's read-only File.
type File struct {
	img  *Image
	ino  uint32
	name string
	off  int64
}

// FileDir exposes a directory inode as an fs.ReadDirFile.
type FileDir struct {
	img     *Image
	ino     uint32
	name    string
	entries []fs.DirEntry
	pos     int
}

type fileinfo struct {
	ino  *Inode
	name string
}

var _ fs.File = (*File)(nil)
var _ io.ReaderAt = (*File)(nil)
var _ io.Seeker = (*File)(nil)

var _ fs.ReadDirFile = (*FileDir)(nil)

var _ fs.FileInfo = (*fileinfo)(nil)

// OpenFile returns an fs.File for inode num within img. Directories return
// an *FileDir (fs.ReadDirFile); everything else an *File.
func (img *Image) OpenFile(num uint32, name string) fs.File {
	ino := img.InodeAt(num)
	if ino.IsDir() {
		return &FileDir{img: img, ino: num, name: name}
	}
	return &File{img: img, ino: num, name: name}
}

func (f *File) ReadAt(p []byte, off int64) (int, error) {
	n, err := f.img.ReadFile(f.ino, off, p)
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

func (f *File) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.off)
	f.off += int64(n)
	return n, err
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	ino := f.img.InodeAt(f.ino)
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = f.off
	case io.SeekEnd:
		base = int64(ino.Size)
	}
	f.off = base + offset
	return f.off, nil
}

func (f *File) Stat() (fs.FileInfo, error) {
	return &fileinfo{name: path.Base(f.name), ino: f.img.InodeAt(f.ino)}, nil
}

func (f *File) Sys() any { return f.img.InodeAt(f.ino) }

func (f *File) Close() error { return nil }

func (d *FileDir) Read(p []byte) (int, error) {
	return 0, fs.ErrInvalid
}

func (d *FileDir) Stat() (fs.FileInfo, error) {
	return &fileinfo{name: path.Base(d.name), ino: d.img.InodeAt(d.ino)}, nil
}

func (d *FileDir) Sys() any { return d.img.InodeAt(d.ino) }

func (d *FileDir) Close() error {
	d.entries = nil
	return nil
}

func (d *FileDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if d.entries == nil {
		ents, err := d.img.Readdir(d.ino)
		if err != nil {
			return nil, err
		}
		d.entries = filterDotEntries(ents)
		d.pos = 0
	}
	remaining := len(d.entries) - d.pos
	if n <= 0 {
		res := d.entries[d.pos:]
		d.pos = len(d.entries)
		return res, nil
	}
	if remaining == 0 {
		return nil, io.EOF
	}
	if n > remaining {
		n = remaining
	}
	res := d.entries[d.pos : d.pos+n]
	d.pos += n
	return res, nil
}

func (fi *fileinfo) Name() string { return fi.name }

func (fi *fileinfo) Size() int64 { return int64(fi.ino.Size) }

func (fi *fileinfo) Mode() fs.FileMode { return fi.ino.FileMode() }

// ModTime is always the zero time: ospfs inodes carry no on-disk timestamp
// field (§0), unlike the teacher's squashfs ModTime.
func (fi *fileinfo) ModTime() time.Time { return time.Time{} }

func (fi *fileinfo) IsDir() bool { return fi.ino.IsDir() }

func (fi *fileinfo) Sys() any { return fi.ino }
