package point

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MaxDepth bounds the octree's addressable depth. It sizes the Clipper's
// fast-tier array; a point that would descend deeper is a fatal error, not
// a silent truncation (spec §9: "this must be enforced explicitly").
const MaxDepth = 64

// Xyz is an octree grid position at some implicit depth: 0 <= each < 2^d.
type Xyz struct {
	X, Y, Z uint64
}

// Less orders Xyz lexicographically on (x, y, z).
func (a Xyz) Less(b Xyz) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

func (a Xyz) String() string {
	return fmt.Sprintf("%d-%d-%d", a.X, a.Y, a.Z)
}

// Key identifies both a chunk and, during descent, the grid cell a point
// currently occupies. Depth plus Xyz together are the chunk's identity
// string form "d-x-y-z"; Xyz alone is the "x-y-z" form used within a depth.
type Key struct {
	Depth uint64
	Xyz
}

// RootKey is the key of the root chunk, depth 0 at the origin.
func RootKey() Key { return Key{} }

// Bounds returns the cube bounds of this key by descending from root. The
// chunk cache calls it each time it creates a chunk.
func (k Key) Bounds(root Bounds) Bounds {
	// Reconstruct the octant sequence from the bit-packed coordinates: bit i
	// (from the top) of x/y/z at depth d gives the direction taken at step i.
	b := root
	for i := int64(k.Depth) - 1; i >= 0; i-- {
		shift := uint(i)
		dir := Dir(0)
		if (k.X>>shift)&1 == 1 {
			dir |= eastBit
		}
		if (k.Y>>shift)&1 == 1 {
			dir |= northBit
		}
		if (k.Z>>shift)&1 == 1 {
			dir |= upBit
		}
		b = b.Step(dir)
	}
	return b
}

// Step descends one level in direction dir, left-shifting each coordinate
// and OR-ing in the corresponding bit.
func (k Key) Step(dir Dir) Key {
	x := k.X << 1
	y := k.Y << 1
	z := k.Z << 1
	if dir.East() {
		x |= 1
	}
	if dir.North() {
		y |= 1
	}
	if dir.Up() {
		z |= 1
	}
	return Key{k.Depth + 1, Xyz{x, y, z}}
}

// Child is an alias for Step read from the chunk's point of view: the key
// of the child chunk in direction dir.
func (k Key) Child(dir Dir) Key { return k.Step(dir) }

// String renders the canonical "d-x-y-z" file-name form, matching the
// ept-data/ept-hierarchy naming convention (depth zero-padded to two
// digits, as the reference implementation does).
func (k Key) String() string {
	d := strconv.FormatUint(k.Depth, 10)
	if k.Depth < 10 {
		d = "0" + d
	}
	return d + "-" + k.Xyz.String()
}

// ParseKey parses the canonical "d-x-y-z" form back into a Key.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 4 {
		return Key{}, errors.Errorf("malformed key %q", s)
	}
	vals := make([]uint64, 4)
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return Key{}, errors.Wrapf(err, "malformed key %q", s)
		}
		vals[i] = n
	}
	return Key{vals[0], Xyz{vals[1], vals[2], vals[3]}}, nil
}
