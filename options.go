package ospfs

// Option configures a mount, in the same functional-options shape the
// teacher uses for superblock construction.
type Option func(img *Image) error

// WithReadOnly mounts the image without running C10 crash recovery,
// leaving a committed-but-unapplied journal entry untouched. Useful for
// inspecting a crashed image before deciding whether to repair it.
func WithReadOnly() Option {
	return func(img *Image) error {
		img.readOnly = true
		return nil
	}
}

// MountWithOptions is Mount with functional options applied before recovery
// runs (or is skipped, for WithReadOnly).
func MountWithOptions(data []byte, opts ...Option) (*Image, error) {
	img := NewImage(data)
	sb := &Superblock{}
	if err := sb.UnmarshalBinary(img.rawBlock(superBlock)); err != nil {
		return nil, err
	}
	if err := sb.validate(); err != nil {
		return nil, err
	}
	if uint32(len(data)) < sb.NBlocks*BlockSize {
		return nil, ErrInvalidImage
	}
	img.sb = sb
	img.bm = newBitmap(img)
	img.jnl = newJournal(img)

	for _, opt := range opts {
		if err := opt(img); err != nil {
			return nil, err
		}
	}

	if !img.readOnly {
		if err := img.Recover(); err != nil {
			return nil, err
		}
	}
	return img, nil
}
