//go:build xz

package ospfs

import (
	"io"

	"github.com/ulikunitz/xz"
)

func init() {
	RegisterSnapshotCodec(CodecXZ, &snapshotHandler{
		Compress: func(w io.Writer, data []byte) error {
			xw, err := xz.NewWriter(w)
			if err != nil {
				return err
			}
			if _, err := xw.Write(data); err != nil {
				xw.Close()
				return err
			}
			return xw.Close()
		},
		Decompress: func(r io.Reader) (io.ReadCloser, error) {
			xr, err := xz.NewReader(r)
			if err != nil {
				return nil, err
			}
			return io.NopCloser(xr), nil
		},
	})
}
