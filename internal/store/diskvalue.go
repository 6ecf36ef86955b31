package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/golang/snappy"
	"github.com/sirupsen/logrus"

	"github.com/nymote/irminsule/internal/codec"
	"github.com/nymote/irminsule/internal/key"
	"github.com/nymote/irminsule/internal/value"
)

// DiskValueStore is a log-structured, append-only ValueStore backend: every
// written Value is appended to a single file as a
// [4-byte length][snappy-compressed canonical bytes] record, and an
// in-memory offset index maps each Key to its record's file offset. The
// index is rebuilt by a sequential scan on open, in the style of a
// write-ahead-log replay.
//
// There is no compaction: since writes are idempotent and content-addressed,
// the file only grows with genuinely new values, not rewrites of existing
// ones.
type DiskValueStore struct {
	mu     sync.Mutex
	file   *os.File
	offset map[key.Key]int64
	cache  map[key.Key]*value.Value // values decoded this session, avoids re-reading from disk
}

// OpenDiskValueStore opens (creating if absent) the log file at path and
// replays it to rebuild the offset index.
func OpenDiskValueStore(path string) (*DiskValueStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open value log: %w", err)
	}
	s := &DiskValueStore{
		file:   f,
		offset: make(map[key.Key]int64),
		cache:  make(map[key.Key]*value.Value),
	}
	if err := s.replay(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

func (s *DiskValueStore) replay() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek value log: %w", err)
	}
	r := bufio.NewReader(s.file)
	var offset int64
	count := 0
	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("replay value log: %w", err)
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		compressed := make([]byte, n)
		if _, err := io.ReadFull(r, compressed); err != nil {
			return fmt.Errorf("replay value log record: %w", err)
		}
		raw, err := snappy.Decode(nil, compressed)
		if err != nil {
			return fmt.Errorf("replay value log decompress: %w", err)
		}
		v, err := decodeCanonicalValue(raw)
		if err != nil {
			return fmt.Errorf("replay value log decode: %w", err)
		}
		s.offset[v.Key()] = offset
		offset += int64(4 + n)
		count++
	}
	logrus.WithField("records", count).Info("replayed value log")
	if _, err := s.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek value log end: %w", err)
	}
	return nil
}

// Write implements ValueStore.
func (s *DiskValueStore) Write(v *value.Value) (key.Key, error) {
	k := v.Key()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.offset[k]; ok {
		return k, nil
	}
	raw := canonicalBytes(v)
	compressed := snappy.Encode(nil, raw)

	info, err := s.file.Stat()
	if err != nil {
		return key.Key{}, fmt.Errorf("stat value log: %w", err)
	}
	offset := info.Size()

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(compressed)))
	// WriteAt the end offset: Read seeks the shared file handle, so a plain
	// Write would land wherever the last Read left it.
	if _, err := s.file.WriteAt(lenBuf[:], offset); err != nil {
		return key.Key{}, fmt.Errorf("append value log length: %w", err)
	}
	if _, err := s.file.WriteAt(compressed, offset+4); err != nil {
		return key.Key{}, fmt.Errorf("append value log record: %w", err)
	}
	s.offset[k] = offset
	s.cache[k] = v
	return k, nil
}

// Read implements ValueStore.
func (s *DiskValueStore) Read(k key.Key) (*value.Value, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache[k]; ok {
		return v, true, nil
	}
	offset, ok := s.offset[k]
	if !ok {
		return nil, false, nil
	}
	if _, err := s.file.Seek(offset, io.SeekStart); err != nil {
		return nil, false, fmt.Errorf("seek value log record: %w", err)
	}
	var lenBuf [4]byte
	if _, err := io.ReadFull(s.file, lenBuf[:]); err != nil {
		return nil, false, fmt.Errorf("read value log length: %w", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	compressed := make([]byte, n)
	if _, err := io.ReadFull(s.file, compressed); err != nil {
		return nil, false, fmt.Errorf("read value log record: %w", err)
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, false, fmt.Errorf("decompress value log record: %w", err)
	}
	v, err := decodeCanonicalValue(raw)
	if err != nil {
		return nil, false, fmt.Errorf("decode value log record: %w", err)
	}
	if got := v.Key(); !got.Equal(k) {
		return nil, false, &IntegrityError{Want: k, Got: got}
	}
	s.cache[k] = v
	return v, true, nil
}

// Close closes the underlying log file.
func (s *DiskValueStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// canonicalBytes and decodeCanonicalValue persist/parse the same bit-exact
// format internal/codec writes to the wire (spec.md §4.1), not the JSON
// debug mirror: on-disk size and the wire protocol's size should agree.
func canonicalBytes(v *value.Value) []byte {
	var buf bytes.Buffer
	v.AppendCanonical(&buf)
	return buf.Bytes()
}

func decodeCanonicalValue(raw []byte) (*value.Value, error) {
	w := codec.NewReadWindow(bytes.NewReader(raw), len(raw))
	return codec.ReadValue(context.Background(), w)
}
