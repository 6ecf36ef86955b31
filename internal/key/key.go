// Package key implements the content-addressed Key type: a fixed-width
// cryptographic digest identifying a Value. See spec.md §3/§4.2.
package key

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// Width is the digest width in bytes for this process's key instantiation.
// It is a parameter of the instantiation (spec.md §1/§6 "hash.width"), not
// a runtime-pluggable strategy: changing it requires Of/Concat to still
// agree on the same underlying digest function. It must not exceed
// maxWidth.
var Width = 20

// maxWidth bounds the backing array so Key stays a comparable value type
// (usable directly as a map key in internal/store) instead of wrapping a
// slice.
const maxWidth = 32

// Key is an opaque, fixed-width content digest. The zero Key is not a valid
// digest of anything; it only appears as a sentinel for "no key".
type Key struct {
	data [maxWidth]byte
	n    int
}

// Zero is the sentinel empty key. The wire encoding of option<K> does not
// use it: an absent key there is a nil *Key (see codec.WriteOptionKey).
var Zero = Key{}

// Of computes the content key of an arbitrary byte string, i.e. the
// `of_string` operation of spec.md §4.2.
func Of(data []byte) Key {
	sum := sha1.Sum(data)
	var k Key
	k.n = copy(k.data[:], sum[:Width])
	return k
}

// FromBytes wraps a raw digest, e.g. one just read off the wire. It does not
// recompute or validate the digest; the caller is asserting these bytes are
// already a valid Key of the configured Width.
func FromBytes(raw []byte) Key {
	var k Key
	k.n = copy(k.data[:], raw)
	return k
}

// Concat derives a single key from the concatenation of a sequence of keys:
// concat([k1,...,kn]) = hash(k1‖...‖kn), spec.md §4.2.
func Concat(keys ...Key) Key {
	buf := make([]byte, 0, len(keys)*Width)
	for _, k := range keys {
		buf = append(buf, k.Bytes()...)
	}
	return Of(buf)
}

// Bytes returns the raw digest bytes as a fresh slice copy.
func (k Key) Bytes() []byte {
	out := make([]byte, k.n)
	copy(out, k.data[:k.n])
	return out
}

// IsZero reports whether k is the sentinel empty key.
func (k Key) IsZero() bool { return k.n == 0 }

// Len returns the digest width in bytes (constant for a given
// instantiation), spec.md §4.2 `length(k)`.
func (k Key) Len() int { return k.n }

// Equal reports byte-wise equality.
func (k Key) Equal(o Key) bool { return k.n == o.n && k.data == o.data }

// Less implements the total lexicographic-on-bytes ordering spec.md §4.2
// requires of Key.
func (k Key) Less(o Key) bool { return bytes.Compare(k.data[:k.n], o.data[:o.n]) < 0 }

// Compare returns -1, 0, or 1 per the same lexicographic ordering as Less,
// for use with sort.Slice-free sorting helpers.
func (k Key) Compare(o Key) int { return bytes.Compare(k.data[:k.n], o.data[:o.n]) }

// Hash returns a machine-word hash suitable for hash-table bucketing
// (spec.md §4.2: "typically the first machine-word of the digest"). xxhash
// is used instead of truncating the cryptographic digest so the bucket
// distribution doesn't depend on which cryptographic primitive backs Key.
func (k Key) Hash() uint64 { return xxhash.Sum64(k.data[:k.n]) }

// String returns the lowercase hex encoding of the digest, used for display
// and as a map/log-friendly representation. It is not the wire format.
func (k Key) String() string { return hex.EncodeToString(k.data[:k.n]) }

// ParseHex parses the hex encoding produced by String back into a Key.
func ParseHex(s string) (Key, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, err
	}
	return FromBytes(b), nil
}

// SortKeys sorts a slice of Keys in place by the canonical byte ordering.
// This is used to make merge's predecessor list order-independent
// (spec.md §4.3: "the predecessor list is sorted before hashing to make
// merge commutative at the key level").
func SortKeys(ks []Key) {
	// Small-n insertion sort keeps this allocation-free and avoids pulling
	// in sort.Slice's reflection-based comparator for what is almost always
	// a 0-2 element predecessor list.
	for i := 1; i < len(ks); i++ {
		for j := i; j > 0 && ks[j].Less(ks[j-1]); j-- {
			ks[j], ks[j-1] = ks[j-1], ks[j]
		}
	}
}
