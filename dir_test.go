package ospfs_test

import (
	"testing"

	"github.com/KarpelesLab/ospfs"
)

// TestReaddirSkipsTombstones checks that unlinking a file in the middle of
// a directory removes it from Readdir's output without disturbing its
// siblings (§3's dirent tombstone: a zeroed inode number, not a compacted
// array).
func TestReaddirSkipsTombstones(t *testing.T) {
	img := newTestImage(t, 4096, 256)

	for _, name := range []string{"a", "b", "c"} {
		if _, err := img.Create(ospfs.RootIno, name, 0644); err != nil {
			t.Fatalf("Create(%s): %v", name, err)
		}
	}
	if err := img.Unlink(ospfs.RootIno, "b"); err != nil {
		t.Fatalf("Unlink(b): %v", err)
	}

	ents, err := img.Readdir(ospfs.RootIno)
	if err != nil {
		t.Fatalf("Readdir: %v", err)
	}
	var names []string
	for _, e := range ents {
		names = append(names, e.Name())
	}

	wantAbsent := map[string]bool{"b": true}
	wantPresent := map[string]bool{".": true, "..": true, "a": true, "c": true}
	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
		if wantAbsent[n] {
			t.Errorf("Readdir still lists unlinked name %q", n)
		}
	}
	for n := range wantPresent {
		if !seen[n] {
			t.Errorf("Readdir missing expected name %q", n)
		}
	}

	// "a" and "c" must still resolve after "b"'s slot was tombstoned.
	if _, err := img.Lookup(ospfs.RootIno, "a"); err != nil {
		t.Errorf("Lookup(a) after sibling unlink: %v", err)
	}
	if _, err := img.Lookup(ospfs.RootIno, "c"); err != nil {
		t.Errorf("Lookup(c) after sibling unlink: %v", err)
	}
}

// TestCreateReusesTombstoneSlot checks that a name created after an unlink
// lands in the vacated slot rather than growing the directory further.
func TestCreateReusesTombstoneSlot(t *testing.T) {
	img := newTestImage(t, 4096, 256)
	if _, err := img.Create(ospfs.RootIno, "a", 0644); err != nil {
		t.Fatalf("Create(a): %v", err)
	}
	if err := img.Unlink(ospfs.RootIno, "a"); err != nil {
		t.Fatalf("Unlink(a): %v", err)
	}
	before := img.InodeAt(ospfs.RootIno).Size

	if _, err := img.Create(ospfs.RootIno, "a2", 0644); err != nil {
		t.Fatalf("Create(a2): %v", err)
	}
	after := img.InodeAt(ospfs.RootIno).Size

	if after != before {
		t.Errorf("directory grew (%d -> %d) when a tombstoned slot was available", before, after)
	}
}

// TestReaddirCursorWalksAllEntries checks §6's cursor-paged readdir
// contract: repeatedly calling ReaddirCursor with the previous call's
// next_cursor must enumerate every live entry exactly once (in the same
// order Readdir reports them) and finish with ErrEndOfDirectory.
func TestReaddirCursorWalksAllEntries(t *testing.T) {
	img := newTestImage(t, 4096, 256)
	for _, name := range []string{"a", "b", "c"} {
		if _, err := img.Create(ospfs.RootIno, name, 0644); err != nil {
			t.Fatalf("Create(%s): %v", name, err)
		}
	}
	if err := img.Unlink(ospfs.RootIno, "b"); err != nil {
		t.Fatalf("Unlink(b): %v", err)
	}

	want, err := img.Readdir(ospfs.RootIno)
	if err != nil {
		t.Fatalf("Readdir: %v", err)
	}

	var got []string
	cursor := 0
	for {
		name, ino, _, next, err := img.ReaddirCursor(ospfs.RootIno, cursor)
		if err == ospfs.ErrEndOfDirectory {
			break
		}
		if err != nil {
			t.Fatalf("ReaddirCursor(%d): %v", cursor, err)
		}
		if ino == 0 {
			t.Fatalf("ReaddirCursor(%d) returned inode 0 for name %q", cursor, name)
		}
		if next <= cursor {
			t.Fatalf("ReaddirCursor(%d) returned non-advancing next_cursor %d", cursor, next)
		}
		got = append(got, name)
		cursor = next
	}

	if len(got) != len(want) {
		t.Fatalf("ReaddirCursor produced %d names, Readdir reports %d", len(got), len(want))
	}
	for i, e := range want {
		if got[i] != e.Name() {
			t.Errorf("entry %d = %q, want %q", i, got[i], e.Name())
		}
	}
}

// TestReaddirCursorNotDirectory checks that ReaddirCursor rejects a
// non-directory inode the same way Readdir does.
func TestReaddirCursorNotDirectory(t *testing.T) {
	img := newTestImage(t, 4096, 256)
	f, err := img.Create(ospfs.RootIno, "f", 0644)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, _, _, err := img.ReaddirCursor(f, 0); err != ospfs.ErrNotDirectory {
		t.Errorf("ReaddirCursor(file) = %v, want ErrNotDirectory", err)
	}
}

func TestMkdirPopulatesDotEntries(t *testing.T) {
	img := newTestImage(t, 4096, 256)
	d, err := img.Mkdir(ospfs.RootIno, "sub", 0755)
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	self, err := img.Lookup(d, ".")
	if err != nil || self != d {
		t.Errorf("Lookup(sub, '.') = (%d, %v), want (%d, nil)", self, err, d)
	}
	parent, err := img.Lookup(d, "..")
	if err != nil || parent != ospfs.RootIno {
		t.Errorf("Lookup(sub, '..') = (%d, %v), want (%d, nil)", parent, err, ospfs.RootIno)
	}

	rootIno := img.InodeAt(ospfs.RootIno)
	if rootIno.Nlink != 3 {
		t.Errorf("root Nlink = %d, want 3 (self + '..' + sub's '..')", rootIno.Nlink)
	}
}
