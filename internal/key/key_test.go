package key

import (
	"sort"
	"testing"
)

func TestOfDeterministic(t *testing.T) {
	a := Of([]byte("hello"))
	b := Of([]byte("hello"))
	if !a.Equal(b) {
		t.Fatalf("Of is not deterministic: %s != %s", a, b)
	}
	if a.Len() != Width {
		t.Fatalf("expected length %d, got %d", Width, a.Len())
	}
}

func TestOfDistinct(t *testing.T) {
	a := Of([]byte("hello"))
	b := Of([]byte("world"))
	if a.Equal(b) {
		t.Fatalf("expected distinct keys for distinct inputs")
	}
}

func TestConcatMatchesManualHash(t *testing.T) {
	a := Of([]byte("a"))
	b := Of([]byte("b"))
	got := Concat(a, b)
	want := Of(append(append([]byte{}, a.Bytes()...), b.Bytes()...))
	if !got.Equal(want) {
		t.Fatalf("Concat mismatch: got %s want %s", got, want)
	}
}

func TestOrderingTotalAndConsistent(t *testing.T) {
	keys := []Key{Of([]byte("c")), Of([]byte("a")), Of([]byte("b"))}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	for i := 1; i < len(keys); i++ {
		if !keys[i-1].Less(keys[i]) && !keys[i-1].Equal(keys[i]) {
			t.Fatalf("ordering not monotonic at index %d", i)
		}
	}
}

func TestSortKeysStableUnderPermutation(t *testing.T) {
	a, b := Of([]byte("x")), Of([]byte("y"))
	p1 := []Key{a, b}
	p2 := []Key{b, a}
	SortKeys(p1)
	SortKeys(p2)
	if !p1[0].Equal(p2[0]) || !p1[1].Equal(p2[1]) {
		t.Fatalf("SortKeys did not normalize permutations to the same order")
	}
}

func TestHashStableAndBucketable(t *testing.T) {
	k := Of([]byte("hello"))
	if k.Hash() != k.Hash() {
		t.Fatalf("Hash must be deterministic")
	}
	other := Of([]byte("goodbye"))
	if k.Hash() == other.Hash() {
		t.Logf("hash collision between distinct keys (permitted, just unlikely): %d", k.Hash())
	}
}

func TestStringRoundTrip(t *testing.T) {
	k := Of([]byte("roundtrip"))
	parsed, err := ParseHex(k.String())
	if err != nil {
		t.Fatalf("ParseHex: %v", err)
	}
	if !parsed.Equal(k) {
		t.Fatalf("round trip mismatch: %s != %s", parsed, k)
	}
}

func TestZeroKeyIsZero(t *testing.T) {
	if !Zero.IsZero() {
		t.Fatalf("Zero must report IsZero")
	}
	if Of([]byte("x")).IsZero() {
		t.Fatalf("a real key must not report IsZero")
	}
}
