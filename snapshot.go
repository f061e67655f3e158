package ospfs

import (
	"fmt"
	"io"
)

// SnapshotCodec names a whole-image compression scheme, in the same
// registry-of-codecs shape the teacher uses for SquashComp.
type SnapshotCodec uint16

const (
	CodecNone SnapshotCodec = iota
	CodecZstd
	CodecXZ
)

func (c SnapshotCodec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	case CodecXZ:
		return "xz"
	default:
		return fmt.Sprintf("SnapshotCodec(%d)", c)
	}
}

type snapshotHandler struct {
	Compress   func(w io.Writer, data []byte) error
	Decompress func(r io.Reader) (io.ReadCloser, error)
}

var snapshotRegistry = map[SnapshotCodec]*snapshotHandler{}

// RegisterSnapshotCodec installs a codec's compress/decompress pair. Build
// -tag-gated files (snapshot_zstd.go, snapshot_xz.go) call this from init so
// a binary only links the compressors it was built with.
func RegisterSnapshotCodec(c SnapshotCodec, h *snapshotHandler) {
	snapshotRegistry[c] = h
}

// ExportSnapshot writes img's entire backing image to w, compressed with
// codec. The out-of-scope "external collaborator" role named for
// compressed image transport is implemented here rather than in the core
// mount/operate path.
func ExportSnapshot(w io.Writer, img *Image, codec SnapshotCodec) error {
	if codec == CodecNone {
		_, err := w.Write(img.data)
		return err
	}
	h, ok := snapshotRegistry[codec]
	if !ok {
		return fmt.Errorf("ospfs: snapshot codec %s not registered (missing build tag)", codec)
	}
	return h.Compress(w, img.data)
}

// ImportSnapshot reads a codec-compressed image from r into data (which must
// already be sized for the target image) and mounts it.
func ImportSnapshot(r io.Reader, data []byte, codec SnapshotCodec) (*Image, error) {
	if codec == CodecNone {
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, err
		}
		return Mount(data)
	}
	h, ok := snapshotRegistry[codec]
	if !ok {
		return nil, fmt.Errorf("ospfs: snapshot codec %s not registered (missing build tag)", codec)
	}
	rc, err := h.Decompress(r)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	if _, err := io.ReadFull(rc, data); err != nil {
		return nil, err
	}
	return Mount(data)
}
