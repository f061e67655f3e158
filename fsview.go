package ospfs

import (
	"io/fs"
	"strings"
)

// FSView adapts a mounted Image to fs.FS, resolving slash-separated paths
// through successive Lookup calls starting at RootIno. It is a read-only
// convenience; mutating operations go through Create/Unlink/etc. directly.
type FSView struct {
	img *Image
}

var _ fs.FS = (*FSView)(nil)
var _ fs.ReadDirFS = (*FSView)(nil)
var _ fs.StatFS = (*FSView)(nil)

// NewFSView wraps img as an fs.FS.
func NewFSView(img *Image) *FSView {
	return &FSView{img: img}
}

func (v *FSView) resolve(name string) (uint32, error) {
	if !fs.ValidPath(name) {
		return 0, fs.ErrInvalid
	}
	if name == "." {
		return RootIno, nil
	}
	cur := uint32(RootIno)
	for _, part := range strings.Split(name, "/") {
		next, err := v.img.Lookup(cur, part)
		if err != nil {
			return 0, err
		}
		cur = next
	}
	return cur, nil
}

func (v *FSView) Open(name string) (fs.File, error) {
	ino, err := v.resolve(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return v.img.OpenFile(ino, name), nil
}

func (v *FSView) ReadDir(name string) ([]fs.DirEntry, error) {
	ino, err := v.resolve(name)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}
	ents, err := v.img.Readdir(ino)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}
	return filterDotEntries(ents), nil
}

// filterDotEntries drops "." and ".." from a raw Readdir result: fs.FS
// implementations must not report them (fs.WalkDir would otherwise recurse
// into the directory through its own "." entry forever), unlike the stored
// on-disk entries Mkdir actually writes for POSIX-style Readdir callers.
func filterDotEntries(ents []fs.DirEntry) []fs.DirEntry {
	out := ents[:0]
	for _, e := range ents {
		if e.Name() == "." || e.Name() == ".." {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (v *FSView) Stat(name string) (fs.FileInfo, error) {
	ino, err := v.resolve(name)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	f := v.img.OpenFile(ino, name)
	defer f.Close()
	return f.Stat()
}
