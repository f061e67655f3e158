package ospfs

import (
	"bytes"
	"testing"
)

// TestJournalStageDoesNotMutateLiveBlocksUntilCommit checks the
// payload-first, flag-last contract (§4.5): after Stage alone, the target
// block must be untouched and the header must read as uncommitted.
func TestJournalStageDoesNotMutateLiveBlocksUntilCommit(t *testing.T) {
	img := newTestBitmapImage(t, 8192, 64)
	f, err := img.Create(RootIno, "f", 0644)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := img.WriteFile(f, 0, []byte("original")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ino := img.InodeAt(f)
	blk, err := img.BlockAtOffset(ino, 0)
	if err != nil {
		t.Fatalf("BlockAtOffset: %v", err)
	}
	before := append([]byte(nil), img.Block(blk)...)

	payload := make([]byte, BlockSize)
	copy(payload, []byte("clobbered"))
	batch := &StagedBatch{
		Kind:      execWrite,
		TargetIno: f,
		Inode:     *ino,
		Affected:  []uint32{blk},
		Data:      [][]byte{payload},
	}
	if err := img.jnl.Stage(batch); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	if !bytes.Equal(img.Block(blk), before) {
		t.Errorf("live block mutated by Stage alone, before commit/apply")
	}
	h, err := img.jnl.readHeader()
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if h.Committed != 0 {
		t.Errorf("Committed = %d after Stage alone, want 0", h.Committed)
	}
}

// TestJournalApplyIdempotent covers spec.md §8 P6: applying the same staged
// batch twice in succession must yield the same image as applying it once.
func TestJournalApplyIdempotent(t *testing.T) {
	img := newTestBitmapImage(t, 8192, 64)
	f, err := img.Create(RootIno, "f", 0644)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := img.WriteFile(f, 0, []byte("hello")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ino := img.InodeAt(f)
	blk, _ := img.BlockAtOffset(ino, 0)
	payload := make([]byte, BlockSize)
	copy(payload, []byte("world"))
	batch := &StagedBatch{
		Kind:      execWrite,
		TargetIno: f,
		Inode:     *ino,
		Affected:  []uint32{blk},
		Data:      [][]byte{payload},
	}
	if err := img.jnl.Stage(batch); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := img.jnl.commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	h, err := img.jnl.readHeader()
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if err := img.jnl.apply(h); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	once := append([]byte(nil), img.Block(blk)...)

	if err := img.jnl.apply(h); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	twice := append([]byte(nil), img.Block(blk)...)

	if !bytes.Equal(once, twice) {
		t.Errorf("applying the same batch twice produced different results")
	}
}

// TestRecoveryReplaysCommittedBatch covers spec.md §8 P7's "crash after
// commit, before clear" branch: a header left committed=1 must be replayed
// and cleared at the next mount.
func TestRecoveryReplaysCommittedBatch(t *testing.T) {
	img := newTestBitmapImage(t, 8192, 64)
	f, err := img.Create(RootIno, "f", 0644)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ino := img.InodeAt(f)
	if err := img.changeSize(f, BlockSize); err != nil {
		t.Fatalf("changeSize: %v", err)
	}
	ino = img.InodeAt(f)
	blk, err := img.BlockAtOffset(ino, 0)
	if err != nil {
		t.Fatalf("BlockAtOffset: %v", err)
	}

	payload := make([]byte, BlockSize)
	copy(payload, []byte("recovered"))
	batch := &StagedBatch{
		Kind:      execWrite,
		TargetIno: f,
		Inode:     *ino,
		Affected:  []uint32{blk},
		Data:      [][]byte{payload},
	}
	if err := img.jnl.Stage(batch); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := img.jnl.commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	// Simulate a crash here: nothing has been applied yet, but the
	// committed flag is set. A fresh Recover (as Mount would run) must
	// replay it.

	if err := img.Recover(); err != nil {
		t.Fatalf("Recover: %v", err)
	}

	if !bytes.HasPrefix(img.Block(blk), []byte("recovered")) {
		t.Errorf("Recover did not replay the committed batch")
	}
	h, err := img.jnl.readHeader()
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if h.Committed != 0 {
		t.Errorf("journal still committed after Recover")
	}
}

// TestRecoveryNoOpWhenIdle checks that Recover does nothing when the
// journal's committed flag is already clear.
func TestRecoveryNoOpWhenIdle(t *testing.T) {
	img := newTestBitmapImage(t, 8192, 64)
	f, err := img.Create(RootIno, "f", 0644)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := img.WriteFile(f, 0, []byte("steady")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	before := img.InodeAt(f)
	if err := img.Recover(); err != nil {
		t.Fatalf("Recover: %v", err)
	}
	after := img.InodeAt(f)
	if before.Size != after.Size {
		t.Errorf("Recover changed inode state when journal was idle")
	}
}
