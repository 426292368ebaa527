// Package segment implements the immutable, sorted on-disk run (SSTable)
// that a flush or a compaction produces: a flat file of newline-delimited
// records plus an in-memory sparse index and membership filter.
package segment

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/kalyanm/lsmkv/filter"
)

// Record is a single key/value pair as stored in a segment.
type Record struct {
	Key   string
	Value string
}

type indexEntry struct {
	key    string
	offset uint64
}

// Segment is an immutable sorted run on disk plus its in-memory metadata.
// A Segment owns its read handle and the underlying file for its lifetime;
// callers transfer ownership by moving the pointer, never by copying it.
type Segment struct {
	path      string
	file      *os.File
	index     []indexEntry
	filter    *filter.Filter
	blockSize int
	count     int
}

// Path returns the on-disk location of the segment file.
func (s *Segment) Path() string { return s.path }

// Len returns the number of records in the segment.
func (s *Segment) Len() int { return s.count }

// BuildFromMemtable writes records (already sorted ascending by key, with
// unique keys) to path as a new segment, with one sparse-index entry per
// blockSize records.
func BuildFromMemtable(records []Record, path string, blockSize int) (*Segment, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("segment: create %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	idx := make([]indexEntry, 0, (len(records)/blockSize)+1)
	flt := filter.NewDefault()
	var offset uint64

	for i, rec := range records {
		if i%blockSize == 0 {
			idx = append(idx, indexEntry{key: rec.Key, offset: offset})
		}

		buf := recordBytes(rec.Key, rec.Value)
		if _, err := w.Write(buf); err != nil {
			f.Close()
			return nil, fmt.Errorf("segment: write %s: %w", path, err)
		}
		offset += uint64(len(buf))
		flt.Add([]byte(rec.Key))
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("segment: close %s: %w", path, err)
	}

	rf, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("segment: reopen %s: %w", path, err)
	}

	return &Segment{
		path:      path,
		file:      rf,
		index:     idx,
		filter:    flt,
		blockSize: blockSize,
		count:     len(records),
	}, nil
}

// Lookup returns the value for key, whether it was found, and an error if
// a read failed for a reason other than encountering a malformed record
// (which is treated as end-of-segment, not an error).
func (s *Segment) Lookup(key string) (string, bool, error) {
	if !s.filter.Contains([]byte(key)) {
		return "", false, nil
	}

	if len(s.index) == 0 {
		return "", false, nil
	}

	i := sort.Search(len(s.index), func(i int) bool { return s.index[i].key > key })
	if i == 0 {
		return "", false, nil
	}
	block := s.index[i-1]

	records, err := s.readBlock(block.offset)
	if err != nil {
		return "", false, err
	}

	j := sort.Search(len(records), func(j int) bool { return records[j].Key > key })
	if j == 0 {
		return "", false, nil
	}
	if records[j-1].Key == key {
		return records[j-1].Value, true, nil
	}
	return "", false, nil
}

// readBlock reads up to blockSize records starting at offset. A malformed
// or truncated record ends the block early without error rather than
// surfacing a corruption error to the lookup caller.
func (s *Segment) readBlock(offset uint64) ([]Record, error) {
	if _, err := s.file.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("segment: seek %s: %w", s.path, err)
	}

	r := bufio.NewReader(s.file)
	records := make([]Record, 0, s.blockSize)

	for len(records) < s.blockSize {
		key, value, outcome, err := readRecord(r)
		switch outcome {
		case outcomeEOF:
			return records, nil
		case outcomeCorrupt:
			if err == ErrCorruptRecord {
				return records, nil
			}
			return records, fmt.Errorf("segment: block read %s: %w", s.path, err)
		default:
			records = append(records, Record{Key: key, Value: value})
		}
	}

	return records, nil
}

// Close releases the segment's open read handle. It does not remove the
// underlying file; call Remove for that.
func (s *Segment) Close() error {
	return s.file.Close()
}

// Remove closes the segment's read handle and deletes its file. It is used
// after a compaction has consumed this segment into its successor.
func (s *Segment) Remove() error {
	closeErr := s.file.Close()
	removeErr := os.Remove(s.path)
	if closeErr != nil {
		return fmt.Errorf("segment: close %s: %w", s.path, closeErr)
	}
	if removeErr != nil {
		return fmt.Errorf("segment: remove %s: %w", s.path, removeErr)
	}
	return nil
}
