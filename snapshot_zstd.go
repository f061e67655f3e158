//go:build zstd

package ospfs

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

func init() {
	RegisterSnapshotCodec(CodecZstd, &snapshotHandler{
		Compress: func(w io.Writer, data []byte) error {
			zw, err := zstd.NewWriter(w)
			if err != nil {
				return err
			}
			if _, err := zw.Write(data); err != nil {
				zw.Close()
				return err
			}
			return zw.Close()
		},
		Decompress: func(r io.Reader) (io.ReadCloser, error) {
			zr, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return zr.IOReadCloser(), nil
		},
	})
}
