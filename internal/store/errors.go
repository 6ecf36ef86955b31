package store

import (
	"fmt"

	"github.com/nymote/irminsule/internal/key"
)

// IntegrityError indicates key(read(k)) != k (spec.md §7 point 2): a Value
// Store backend decoded a record at k's indexed location whose own content
// key does not match k, signalling on-disk or index corruption. It is
// fatal and surfaced to the caller rather than retried or silently
// substituted.
type IntegrityError struct {
	Want key.Key
	Got  key.Key
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("store: integrity error: want key %s, decoded value hashes to %s", e.Want, e.Got)
}
