//go:build fuse

package ospfs

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// fuseNode adapts one ospfs inode to go-fuse's InodeEmbedder, the kernel
// -VFS-adaptor role the core file system deliberately treats as an external
// collaborator (§3).
type fuseNode struct {
	fs.Inode
	img *Image
	ino uint32
}

var _ fs.NodeLookuper = (*fuseNode)(nil)
var _ fs.NodeReaddirer = (*fuseNode)(nil)
var _ fs.NodeGetattrer = (*fuseNode)(nil)
var _ fs.NodeOpener = (*fuseNode)(nil)
var _ fs.NodeReader = (*fuseNode)(nil)
var _ fs.NodeWriter = (*fuseNode)(nil)
var _ fs.NodeCreater = (*fuseNode)(nil)
var _ fs.NodeMkdirer = (*fuseNode)(nil)
var _ fs.NodeUnlinker = (*fuseNode)(nil)
var _ fs.NodeSetattrer = (*fuseNode)(nil)
var _ fs.NodeLinker = (*fuseNode)(nil)
var _ fs.NodeSymlinker = (*fuseNode)(nil)
var _ fs.NodeReadlinker = (*fuseNode)(nil)

// MountFUSE attaches img as a FUSE file system rooted at mountpoint,
// returning the live *fuse.Server the caller must Wait() on. Named distinctly
// from Image's own Mount (image.go) since both live in this package and a
// "fuse"-tagged build compiles both files together.
func MountFUSE(mountpoint string, img *Image) (*fuse.Server, error) {
	root := &fuseNode{img: img, ino: RootIno}
	server, err := fs.Mount(mountpoint, root, &fs.Options{})
	if err != nil {
		return nil, err
	}
	return server.Server, nil
}

func (n *fuseNode) child(ino uint32) *fuseNode {
	return &fuseNode{img: n.img, ino: ino}
}

func (n *fuseNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	child, err := n.img.Lookup(n.ino, name)
	if err != nil {
		return nil, errToErrno(err)
	}
	ino := n.img.InodeAt(child)
	out.Attr.Mode = uint32(ino.FileMode())
	out.Attr.Size = uint64(ino.Size)
	stable := fs.StableAttr{Ino: uint64(child), Mode: modeToFuseType(ino)}
	return n.NewInode(ctx, n.child(child), stable), fs.OK
}

func (n *fuseNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	ents, err := n.img.Readdir(n.ino)
	if err != nil {
		return nil, errToErrno(err)
	}
	var list []fuse.DirEntry
	for _, e := range ents {
		list = append(list, fuse.DirEntry{Name: e.Name(), Mode: uint32(e.Type())})
	}
	return fs.NewListDirStream(list), fs.OK
}

func (n *fuseNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	ino := n.img.InodeAt(n.ino)
	out.Attr.Mode = uint32(ino.FileMode())
	out.Attr.Size = uint64(ino.Size)
	return fs.OK
}

func (n *fuseNode) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if sz, ok := in.GetSize(); ok {
		if err := n.img.Truncate(n.ino, sz); err != nil {
			return errToErrno(err)
		}
	}
	ino := n.img.InodeAt(n.ino)
	out.Attr.Mode = uint32(ino.FileMode())
	out.Attr.Size = uint64(ino.Size)
	return fs.OK
}

func (n *fuseNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_KEEP_CACHE, fs.OK
}

func (n *fuseNode) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	nr, err := n.img.ReadFile(n.ino, off, dest)
	if err != nil {
		return nil, errToErrno(err)
	}
	return fuse.ReadResultData(dest[:nr]), fs.OK
}

func (n *fuseNode) Write(ctx context.Context, f fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	nw, err := n.img.WriteFile(n.ino, off, data)
	if err != nil {
		return uint32(nw), errToErrno(err)
	}
	return uint32(nw), fs.OK
}

func (n *fuseNode) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	newIno, err := n.img.Create(n.ino, name, mode)
	if err != nil {
		return nil, nil, 0, errToErrno(err)
	}
	ino := n.img.InodeAt(newIno)
	out.Attr.Mode = uint32(ino.FileMode())
	stable := fs.StableAttr{Ino: uint64(newIno), Mode: modeToFuseType(ino)}
	return n.NewInode(ctx, n.child(newIno), stable), nil, 0, fs.OK
}

func (n *fuseNode) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	newIno, err := n.img.Mkdir(n.ino, name, mode)
	if err != nil {
		return nil, errToErrno(err)
	}
	ino := n.img.InodeAt(newIno)
	stable := fs.StableAttr{Ino: uint64(newIno), Mode: modeToFuseType(ino)}
	return n.NewInode(ctx, n.child(newIno), stable), fs.OK
}

func (n *fuseNode) Unlink(ctx context.Context, name string) syscall.Errno {
	if err := n.img.Unlink(n.ino, name); err != nil {
		return errToErrno(err)
	}
	return fs.OK
}

// Link implements hard-linking: target must already be a *fuseNode rooted
// in the same image (cross-image links aren't meaningful).
func (n *fuseNode) Link(ctx context.Context, target fs.InodeEmbedder, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	src, ok := target.(*fuseNode)
	if !ok {
		return nil, syscall.EXDEV
	}
	if err := n.img.HardLink(n.ino, name, src.ino); err != nil {
		return nil, errToErrno(err)
	}
	ino := n.img.InodeAt(src.ino)
	out.Attr.Mode = uint32(ino.FileMode())
	stable := fs.StableAttr{Ino: uint64(src.ino), Mode: modeToFuseType(ino)}
	return n.NewInode(ctx, n.child(src.ino), stable), fs.OK
}

func (n *fuseNode) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if err := n.img.Symlink(n.ino, name, target); err != nil {
		return nil, errToErrno(err)
	}
	child, err := n.img.Lookup(n.ino, name)
	if err != nil {
		return nil, errToErrno(err)
	}
	ino := n.img.InodeAt(child)
	out.Attr.Mode = uint32(ino.FileMode())
	stable := fs.StableAttr{Ino: uint64(child), Mode: modeToFuseType(ino)}
	return n.NewInode(ctx, n.child(child), stable), fs.OK
}

// Readlink resolves a symlink's target, including the conditional
// "root?A:B" form (§4.9). go-fuse's NodeReadlinker hook does not carry the
// calling uid through to this layer, so the conditional form always
// resolves as effective-uid 0 would; callers needing per-caller resolution
// should call FollowSymlink directly against the core API instead of going
// through this adaptor.
func (n *fuseNode) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	ino := n.img.InodeAt(n.ino)
	if !ino.IsSymlink() {
		return nil, syscall.EINVAL
	}
	return []byte(FollowSymlink(ino, 0)), fs.OK
}

func modeToFuseType(ino *Inode) uint32 {
	switch ino.Ftype {
	case TypeDirectory:
		return fuse.S_IFDIR
	case TypeSymlink:
		return fuse.S_IFLNK
	default:
		return fuse.S_IFREG
	}
}

func errToErrno(err error) syscall.Errno {
	switch err {
	case ErrNotFound:
		return syscall.ENOENT
	case ErrExists:
		return syscall.EEXIST
	case ErrNoSpace:
		return syscall.ENOSPC
	case ErrNameTooLong:
		return syscall.ENAMETOOLONG
	case ErrNotDirectory:
		return syscall.ENOTDIR
	case ErrNotPermitted:
		return syscall.EPERM
	default:
		return syscall.EIO
	}
}
