package ospfs_test

import (
	"testing"

	"github.com/KarpelesLab/ospfs"
)

// TestCreateLookup covers spec.md §8 scenario 4: creating 64 files in a
// directory that starts with only "." and ".." must grow the directory
// across block boundaries and leave every name resolvable.
func TestCreateLookup(t *testing.T) {
	img := newTestImage(t, 16384, 512)

	for i := 0; i < 64; i++ {
		name := "a" + itoa(i)
		if _, err := img.Create(ospfs.RootIno, name, 0644); err != nil {
			t.Fatalf("Create(%q): %v", name, err)
		}
	}

	dir := img.InodeAt(ospfs.RootIno)
	// "." and ".." occupy two of the 32 slots in the first block Mkfs
	// allocates; directory size always rounds up to a whole number of
	// blocks (invariant 4), so 66 total entries need ceil(66/32)=3 blocks.
	const entriesPerBlock = ospfs.BlockSize / 32 // directEntrySize
	totalEntries := uint64(64 + 2)
	wantBlocks := (totalEntries + entriesPerBlock - 1) / entriesPerBlock
	wantSize := wantBlocks * ospfs.BlockSize
	if uint64(dir.Size) != wantSize {
		t.Errorf("root directory size = %d, want %d (%d blocks)", dir.Size, wantSize, wantBlocks)
	}

	for i := 0; i < 64; i++ {
		name := "a" + itoa(i)
		if _, err := img.Lookup(ospfs.RootIno, name); err != nil {
			t.Errorf("Lookup(%q): %v", name, err)
		}
	}
}

func TestCreateDuplicateNameFails(t *testing.T) {
	img := newTestImage(t, 4096, 256)
	if _, err := img.Create(ospfs.RootIno, "dup", 0644); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := img.Create(ospfs.RootIno, "dup", 0644); err != ospfs.ErrExists {
		t.Errorf("second Create(dup) = %v, want ErrExists", err)
	}
}

func TestCreateNameTooLong(t *testing.T) {
	img := newTestImage(t, 4096, 256)
	longName := make([]byte, ospfs.MaxNameLen+1)
	for i := range longName {
		longName[i] = 'x'
	}
	if _, err := img.Create(ospfs.RootIno, string(longName), 0644); err != ospfs.ErrNameTooLong {
		t.Errorf("Create(too-long name) = %v, want ErrNameTooLong", err)
	}
}

// TestHardLinkThenUnlinkOriginal covers spec.md §8 scenario 5: linking f as
// g, unlinking f, then reading g must still return f's original contents,
// and nlink must reflect the single surviving name.
func TestHardLinkThenUnlinkOriginal(t *testing.T) {
	img := newTestImage(t, 4096, 256)
	f, err := img.Create(ospfs.RootIno, "f", 0644)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := img.WriteFile(f, 0, []byte("original contents")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := img.HardLink(ospfs.RootIno, "g", f); err != nil {
		t.Fatalf("HardLink: %v", err)
	}
	if err := img.Unlink(ospfs.RootIno, "f"); err != nil {
		t.Fatalf("Unlink(f): %v", err)
	}

	g, err := img.Lookup(ospfs.RootIno, "g")
	if err != nil {
		t.Fatalf("Lookup(g): %v", err)
	}
	buf := make([]byte, 32)
	n, err := img.ReadFile(g, 0, buf)
	if err != nil {
		t.Fatalf("ReadFile(g): %v", err)
	}
	if string(buf[:n]) != "original contents" {
		t.Errorf("ReadFile(g) = %q, want %q", buf[:n], "original contents")
	}

	gIno := img.InodeAt(g)
	if gIno.Nlink != 1 {
		t.Errorf("Nlink = %d, want 1", gIno.Nlink)
	}
}

func TestUnlinkLastLinkFreesBlocks(t *testing.T) {
	img := newTestImage(t, 4096, 256)
	f, err := img.Create(ospfs.RootIno, "f", 0644)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := img.WriteFile(f, 0, []byte("some data")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := img.Unlink(ospfs.RootIno, "f"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}

	ino := img.InodeAt(f)
	if ino.Live() {
		t.Errorf("inode still live after last unlink, Nlink = %d", ino.Nlink)
	}
	if ino.Size != 0 {
		t.Errorf("Size = %d after last unlink, want 0", ino.Size)
	}

	if _, err := img.Lookup(ospfs.RootIno, "f"); err != ospfs.ErrNotFound {
		t.Errorf("Lookup(f) after unlink = %v, want ErrNotFound", err)
	}
}

func TestUnlinkUnknownNameFails(t *testing.T) {
	img := newTestImage(t, 4096, 256)
	if err := img.Unlink(ospfs.RootIno, "nope"); err != ospfs.ErrNotFound {
		t.Errorf("Unlink(nope) = %v, want ErrNotFound", err)
	}
}

// TestSymlinkConditional covers spec.md §8 scenario 6: a conditional
// "root?A:B" symlink resolves to A for uid 0 and B otherwise.
func TestSymlinkConditional(t *testing.T) {
	img := newTestImage(t, 4096, 256)
	if err := img.Symlink(ospfs.RootIno, "s", "root?/a:/b"); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	sIno, err := img.Lookup(ospfs.RootIno, "s")
	if err != nil {
		t.Fatalf("Lookup(s): %v", err)
	}
	ino := img.InodeAt(sIno)
	if !ino.IsSymlink() {
		t.Fatalf("s is not a symlink")
	}

	if got := ospfs.FollowSymlink(ino, 0); got != "/a" {
		t.Errorf("FollowSymlink(uid=0) = %q, want /a", got)
	}
	if got := ospfs.FollowSymlink(ino, 1000); got != "/b" {
		t.Errorf("FollowSymlink(uid=1000) = %q, want /b", got)
	}
}

func TestSymlinkPlainTarget(t *testing.T) {
	img := newTestImage(t, 4096, 256)
	if err := img.Symlink(ospfs.RootIno, "s", "/plain/path"); err != nil {
		t.Fatalf("Symlink: %v", err)
	}
	sIno, _ := img.Lookup(ospfs.RootIno, "s")
	ino := img.InodeAt(sIno)
	if got := ospfs.FollowSymlink(ino, 0); got != "/plain/path" {
		t.Errorf("FollowSymlink = %q, want /plain/path", got)
	}
	if got := ospfs.FollowSymlink(ino, 1000); got != "/plain/path" {
		t.Errorf("FollowSymlink(non-root) = %q, want /plain/path", got)
	}
}

// TestSymlinkConditionalMissingColonRejected exercises the Open Question
// decision in DESIGN.md: a "root?" target with no ':' is malformed and must
// be rejected, not silently stored.
func TestSymlinkConditionalMissingColonRejected(t *testing.T) {
	img := newTestImage(t, 4096, 256)
	err := img.Symlink(ospfs.RootIno, "s", "root?nosep")
	if err != ospfs.ErrNameTooLong {
		t.Errorf("Symlink(malformed conditional) = %v, want ErrNameTooLong", err)
	}
}

// TestUnlinkSymlinkLastLink is a regression test: a symlink's Size holds
// its inline target length, not a block count, so the last-link Unlink path
// must zero the inode record directly rather than route it through
// changeSize's block-map arithmetic (which would underflow Size/BlockSize-1
// for any symlink and panic on an out-of-range indirect2 index).
func TestUnlinkSymlinkLastLink(t *testing.T) {
	img := newTestImage(t, 4096, 256)
	if err := img.Symlink(ospfs.RootIno, "s", "/a"); err != nil {
		t.Fatalf("Symlink: %v", err)
	}
	if err := img.Unlink(ospfs.RootIno, "s"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if _, err := img.Lookup(ospfs.RootIno, "s"); err != ospfs.ErrNotFound {
		t.Errorf("Lookup(s) after unlink = %v, want ErrNotFound", err)
	}
}

func TestHardLinkDirectoryRejected(t *testing.T) {
	img := newTestImage(t, 4096, 256)
	dirIno, err := img.Mkdir(ospfs.RootIno, "d", 0755)
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := img.HardLink(ospfs.RootIno, "d2", dirIno); err != ospfs.ErrNotPermitted {
		t.Errorf("HardLink(directory) = %v, want ErrNotPermitted", err)
	}
}

// itoa avoids importing strconv just for small non-negative integers in
// test name generation.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
