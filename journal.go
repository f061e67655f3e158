package ospfs

import (
	"bytes"
	"encoding/binary"
	"reflect"
)

// execType tags what kind of transaction a journal batch records.
type execType uint32

const (
	execAlloc execType = iota + 1
	execFree
	execWrite
	execCreate
	execHardlink
	execUnlink
)

// journalHeader is the fixed first block of the journal region (C5). Field
// order matches the external layout; NewInode carries the marshaled,
// post-batch form of the target inode so apply can write it back without
// recomputing anything the planner already decided.
type journalHeader struct {
	Committed        uint32
	ExecType         uint32
	TargetIno        uint32
	Count            uint32
	ResizeType       uint32
	IndirectBlockno  uint32
	Indirect2Blockno uint32
	NewInode         [InodeSize]byte
}

func (h *journalHeader) MarshalBinary() []byte {
	var buf bytes.Buffer
	v := reflect.ValueOf(h).Elem()
	for i := 0; i < v.NumField(); i++ {
		binary.Write(&buf, binary.LittleEndian, v.Field(i).Interface())
	}
	return buf.Bytes()
}

func (h *journalHeader) UnmarshalBinary(data []byte) error {
	v := reflect.ValueOf(h).Elem()
	r := bytes.NewReader(data)
	for i := 0; i < v.NumField(); i++ {
		if err := binary.Read(r, binary.LittleEndian, v.Field(i).Addr().Interface()); err != nil {
			return err
		}
	}
	return nil
}

// journal is the write-ahead log (C5): stage writes the payload and a
// not-yet-committed header, commit flips the committed flag, apply replays
// the batch into the live structures, and clear zeroes the header so the
// region reads as idle again. Recovery (C10) replays a committed-but-not-yet
// -cleared header found at mount time; it shares the same apply/clear code.
type journal struct {
	img *Image
}

func newJournal(img *Image) *journal {
	return &journal{img: img}
}

func (j *journal) blockOf(off uint32) []byte {
	return j.img.rawBlock(j.img.sb.FirstJournalB + off)
}

// Stage writes a batch's payload (list, snapshots, data) and an
// uncommitted header (Committed == 0), in that order: the committed flag is
// always the last word written, so a crash mid-stage leaves an idle-looking
// journal rather than a half-written one that would be replayed.
func (j *journal) Stage(b *StagedBatch) error {
	if len(b.Affected) > JMax {
		return ErrNoSpace
	}

	listBuf := j.blockOf(journalListBlockOff)
	for i := range listBuf {
		listBuf[i] = 0
	}
	for i, blk := range b.Affected {
		writeSlot(listBuf, i, blk)
	}

	if b.IndirectSnapshot != nil {
		copy(j.blockOf(journalIndirectBlockOff), b.IndirectSnapshot[:])
	}
	if b.Indirect2Snapshot != nil {
		copy(j.blockOf(journalIndirect2BlockOff), b.Indirect2Snapshot[:])
	}
	for i, data := range b.Data {
		dst := j.blockOf(journalDataBlockOff + uint32(i))
		for k := range dst {
			dst[k] = 0
		}
		copy(dst, data)
	}

	h := &journalHeader{
		Committed:        0,
		ExecType:         uint32(b.Kind),
		TargetIno:        b.TargetIno,
		Count:            uint32(len(b.Affected)),
		ResizeType:       b.ResizeType,
		IndirectBlockno:  b.IndirectBlockno,
		Indirect2Blockno: b.Indirect2Blockno,
	}
	copy(h.NewInode[:], b.Inode.MarshalBinary())
	copy(j.blockOf(journalHeaderBlockOff), h.MarshalBinary())
	return nil
}

// commit flips the committed flag: the single atomic-in-spirit write after
// which a mount-time crash recovery must replay the batch.
func (j *journal) commit() error {
	hdrBlk := j.blockOf(journalHeaderBlockOff)
	writeSlot(hdrBlk, 0, 1)
	return nil
}

// Run performs a full stage/commit/apply/clear cycle for one batch. This is
// the only path through which ALLOC, FREE, WRITE, CREATE, HARDLINK and
// UNLINK batches reach the live structures.
func (j *journal) Run(b *StagedBatch) error {
	if err := j.Stage(b); err != nil {
		return err
	}
	if err := j.commit(); err != nil {
		return err
	}
	if err := j.applyCurrent(); err != nil {
		return err
	}
	return j.clear()
}

func (j *journal) readHeader() (*journalHeader, error) {
	h := &journalHeader{}
	if err := h.UnmarshalBinary(j.blockOf(journalHeaderBlockOff)); err != nil {
		return nil, err
	}
	return h, nil
}

// applyCurrent replays whatever batch is currently staged in the journal
// region, using the list/snapshot/data blocks written by the preceding
// Stage call.
func (j *journal) applyCurrent() error {
	h, err := j.readHeader()
	if err != nil {
		return err
	}
	if h.Committed == 0 {
		return nil
	}
	return j.apply(h)
}

// Recover implements C10: replay a committed-but-unapplied batch found at
// mount time, otherwise do nothing.
func (img *Image) Recover() error {
	h, err := img.jnl.readHeader()
	if err != nil {
		return err
	}
	if h.Committed == 0 {
		return nil
	}
	if err := img.jnl.apply(h); err != nil {
		return err
	}
	return img.jnl.clear()
}

func (j *journal) apply(h *journalHeader) error {
	img := j.img
	kind := execType(h.ExecType)

	listBuf := j.blockOf(journalListBlockOff)
	affected := make([]uint32, h.Count)
	for i := range affected {
		affected[i] = readSlot(listBuf, i)
	}

	newIno := UnmarshalInode(h.NewInode[:])

	switch kind {
	case execAlloc:
		for _, blk := range affected {
			img.bm.AllocateBlockno(blk)
		}
		if h.ResizeType&resizeTouchedIndirect != 0 {
			img.bm.AllocateBlockno(h.IndirectBlockno)
			copy(img.rawBlock(h.IndirectBlockno), j.blockOf(journalIndirectBlockOff))
		}
		if h.ResizeType&resizeTouchedIndirect2 != 0 {
			img.bm.AllocateBlockno(h.Indirect2Blockno)
			copy(img.rawBlock(h.Indirect2Blockno), j.blockOf(journalIndirect2BlockOff))
		}
		img.PutInode(h.TargetIno, newIno)

	case execFree:
		for _, blk := range affected {
			img.bm.FreeBlock(blk)
		}
		switch {
		case h.ResizeType&resizeTouchedIndirect2 != 0:
			img.bm.FreeBlock(h.IndirectBlockno)
			copy(img.rawBlock(h.Indirect2Blockno), j.blockOf(journalIndirect2BlockOff))
			if newIno.Indirect2 == 0 {
				img.bm.FreeBlock(h.Indirect2Blockno)
			}
		case h.ResizeType&resizeTouchedIndirect != 0:
			copy(img.rawBlock(h.IndirectBlockno), j.blockOf(journalIndirectBlockOff))
			if newIno.Indirect == 0 {
				img.bm.FreeBlock(h.IndirectBlockno)
			}
		}
		img.PutInode(h.TargetIno, newIno)

	case execWrite:
		for i, blk := range affected {
			copy(img.rawBlock(blk), j.blockOf(journalDataBlockOff+uint32(i)))
		}
		img.PutInode(h.TargetIno, newIno)

	case execCreate, execHardlink:
		for i, blk := range affected {
			copy(img.rawBlock(blk), j.blockOf(journalDataBlockOff+uint32(i)))
		}
		img.PutInode(h.TargetIno, newIno)

	case execUnlink:
		img.PutInode(h.TargetIno, newIno)
	}
	return nil
}

// clear zeroes the committed flag, leaving the journal region idle.
func (j *journal) clear() error {
	hdrBlk := j.blockOf(journalHeaderBlockOff)
	for i := range hdrBlk {
		hdrBlk[i] = 0
	}
	return nil
}
