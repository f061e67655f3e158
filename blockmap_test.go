package ospfs

import "testing"

// TestBlockMapArithmetic exercises dirIdx/indirIdx/indir2Idx at the
// boundaries §4.3 cares about: within the direct region, the first and last
// singly-indirect slot, and the first doubly-indirect slot.
func TestBlockMapArithmetic(t *testing.T) {
	cases := []struct {
		n                  uint32
		wantDir            int
		wantIndir          int
		wantIndir2         int
		name               string
	}{
		{0, 0, -1, -1, "first direct block"},
		{NDirect - 1, int(NDirect - 1), -1, -1, "last direct block"},
		{NDirect, 0, 0, -1, "first indirect block"},
		{NDirect + NIndirect - 1, int(NIndirect - 1), 0, -1, "last indirect block"},
		{NDirect + NIndirect, 0, 0, 0, "first indirect2 block"},
		{NDirect + NIndirect + NIndirect, 0, 1, 0, "first block of second indirect2 sub-block"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := dirIdx(c.n); got != c.wantDir {
				t.Errorf("dirIdx(%d) = %d, want %d", c.n, got, c.wantDir)
			}
			if got := indirIdx(c.n); got != c.wantIndir {
				t.Errorf("indirIdx(%d) = %d, want %d", c.n, got, c.wantIndir)
			}
			if got := indir2Idx(c.n); got != c.wantIndir2 {
				t.Errorf("indir2Idx(%d) = %d, want %d", c.n, got, c.wantIndir2)
			}
		})
	}
}
