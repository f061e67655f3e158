//go:build !unix

package ospfs

import "os"

// LoadImageFile reads path fully into memory and mounts it. Platforms
// without the unix build tag don't get mmap-backed writeback; Sync/Close
// are no-ops and callers must re-write the file themselves if needed.
func LoadImageFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Mount(data)
}

func (img *Image) Sync() error { return nil }

func (img *Image) Close() error { return nil }
