package ospfs_test

import (
	"testing"

	"github.com/KarpelesLab/ospfs"
)

// newTestImage formats and mounts a fresh nblocks-block, ninodes-inode
// image, failing the test immediately on any error.
func newTestImage(t *testing.T, nblocks, ninodes uint32) *ospfs.Image {
	t.Helper()
	data := make([]byte, uint64(nblocks)*ospfs.BlockSize)
	img, err := ospfs.Mkfs(data, nblocks, ninodes)
	if err != nil {
		t.Fatalf("Mkfs: %v", err)
	}
	return img
}

func TestMkfsLayout(t *testing.T) {
	img := newTestImage(t, 4096, 256)
	sb := img.Superblock()

	if sb.NBlocks != 4096 {
		t.Errorf("NBlocks = %d, want 4096", sb.NBlocks)
	}
	if sb.NInodes != 256 {
		t.Errorf("NInodes = %d, want 256", sb.NInodes)
	}
	if sb.NJournalB != ospfs.JournalBlocks {
		t.Errorf("NJournalB = %d, want %d", sb.NJournalB, ospfs.JournalBlocks)
	}
	if sb.FirstDataB <= sb.FirstJournalB {
		t.Errorf("FirstDataB (%d) must be past FirstJournalB (%d)", sb.FirstDataB, sb.FirstJournalB)
	}
}

func TestMkfsRootDirectory(t *testing.T) {
	img := newTestImage(t, 4096, 256)

	ino := img.InodeAt(ospfs.RootIno)
	if !ino.IsDir() {
		t.Fatalf("root inode is not a directory")
	}
	if ino.Nlink != 2 {
		t.Errorf("root Nlink = %d, want 2 (self + '..')", ino.Nlink)
	}

	ents, err := img.Readdir(ospfs.RootIno)
	if err != nil {
		t.Fatalf("Readdir(root): %v", err)
	}
	var names []string
	for _, e := range ents {
		names = append(names, e.Name())
	}
	wantSelf, wantParent := false, false
	for _, n := range names {
		if n == "." {
			wantSelf = true
		}
		if n == ".." {
			wantParent = true
		}
	}
	if !wantSelf || !wantParent {
		t.Errorf("root entries = %v, want '.' and '..' present", names)
	}
}

func TestMkfsRejectsUndersizedData(t *testing.T) {
	data := make([]byte, 10) // far too small for even the reserved regions
	if _, err := ospfs.Mkfs(data, 4096, 256); err == nil {
		t.Errorf("expected error formatting undersized buffer, got none")
	}
}
