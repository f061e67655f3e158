package ospfs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
)

// Superblock is the immutable-after-mount geometry of an ospfs image,
// decoded from block 1. Field order matches the external on-disk layout
// exactly (little-endian, packed).
type Superblock struct {
	Magic         uint32
	NBlocks       uint32
	NInodes       uint32
	FirstInoB     uint32
	FirstJournalB uint32
	NJournalB     uint32
	FirstDataB    uint32
}

// binarySize returns the packed on-disk size of the superblock, using the
// same reflect-driven field walk the teacher's Superblock.binarySize uses.
func (sb *Superblock) binarySize() int {
	v := reflect.ValueOf(sb).Elem()
	sz := uintptr(0)
	for i := 0; i < v.NumField(); i++ {
		sz += v.Field(i).Type().Size()
	}
	return int(sz)
}

// UnmarshalBinary decodes a superblock from its packed on-disk form, in the
// same reflect-loop idiom as the teacher's Superblock.UnmarshalBinary.
func (sb *Superblock) UnmarshalBinary(data []byte) error {
	if len(data) < 4 || string(data[:4]) != diskMagic {
		return ErrInvalidImage
	}

	v := reflect.ValueOf(sb).Elem()
	r := bytes.NewReader(data)
	for i := 0; i < v.NumField(); i++ {
		if err := binary.Read(r, binary.LittleEndian, v.Field(i).Addr().Interface()); err != nil {
			return err
		}
	}
	return nil
}

// MarshalBinary encodes the superblock into its packed on-disk form.
func (sb *Superblock) MarshalBinary() []byte {
	var buf bytes.Buffer
	v := reflect.ValueOf(sb).Elem()
	for i := 0; i < v.NumField(); i++ {
		binary.Write(&buf, binary.LittleEndian, v.Field(i).Interface())
	}
	return buf.Bytes()
}

// layout holds the sizes in blocks of the bitmap and inode-table regions
// implied by the superblock's block and inode counts.
type layout struct {
	bitmapBlocks uint32
	inodeBlocks  uint32
}

func (sb *Superblock) diskLayout() layout {
	bitmapBytes := (sb.NBlocks + 7) / 8
	bitmapBlocks := (bitmapBytes + BlockSize - 1) / BlockSize
	inodeBytes := sb.NInodes * InodeSize
	inodeBlocks := (inodeBytes + BlockSize - 1) / BlockSize
	return layout{bitmapBlocks: bitmapBlocks, inodeBlocks: inodeBlocks}
}

// validate checks the superblock's internal consistency against the
// invariants of §3: the reserved regions must not overlap and must fit
// inside NBlocks.
func (sb *Superblock) validate() error {
	if sb.Magic != binary.LittleEndian.Uint32([]byte(diskMagic)) {
		return ErrInvalidImage
	}
	lo := sb.diskLayout()
	wantFirstIno := firstBitmapBlock + lo.bitmapBlocks
	if sb.FirstInoB != wantFirstIno {
		return errors.New("ospfs: superblock inode region offset mismatch")
	}
	wantFirstJournal := sb.FirstInoB + lo.inodeBlocks
	if sb.FirstJournalB != wantFirstJournal {
		return errors.New("ospfs: superblock journal region offset mismatch")
	}
	if sb.NJournalB != JournalBlocks {
		return errors.New("ospfs: superblock journal size mismatch")
	}
	wantFirstData := sb.FirstJournalB + sb.NJournalB
	if sb.FirstDataB != wantFirstData {
		return errors.New("ospfs: superblock data region offset mismatch")
	}
	if sb.FirstDataB >= sb.NBlocks {
		return errors.New("ospfs: superblock leaves no data region")
	}
	return nil
}
