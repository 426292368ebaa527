package segment

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kalyanm/lsmkv/filter"
)

// ErrEmptyCompactionInput is returned when Compact is called with no
// sources.
var ErrEmptyCompactionInput = errors.New("segment: compact requires at least one source")

// Compact performs a k-way merge of sources, ordered oldest-first (the last
// element is the newest), into a single new segment at path. Duplicate keys
// across sources collapse to the value from the newest source that wrote
// them; ties among sources carrying the same minimum key are broken toward
// the highest source index. Output keys are strictly ascending.
//
// Compact reads each source from its start; callers must not use a source
// for lookups concurrently with a compaction that includes it.
func Compact(sources []*Segment, path string, blockSize int) (*Segment, error) {
	if len(sources) == 0 {
		return nil, ErrEmptyCompactionInput
	}

	readers := make([]*bufio.Reader, len(sources))
	for i, s := range sources {
		if _, err := s.file.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("segment: seek source %s: %w", s.path, err)
		}
		readers[i] = bufio.NewReader(s.file)
	}

	current := make([]Record, len(sources))
	exhausted := make([]bool, len(sources))

	advance := func(i int) error {
		key, value, outcome, err := readRecord(readers[i])
		switch outcome {
		case outcomeEOF:
			exhausted[i] = true
		case outcomeCorrupt:
			return fmt.Errorf("segment: merge: corrupt source %s: %w", sources[i].path, err)
		default:
			current[i] = Record{Key: key, Value: value}
		}
		return nil
	}

	for i := range sources {
		if err := advance(i); err != nil {
			return nil, err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("segment: create %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	idx := make([]indexEntry, 0)
	flt := filter.NewDefault()
	var offset uint64
	ind := 0

	for {
		winner := -1
		for i := len(sources) - 1; i >= 0; i-- {
			if exhausted[i] {
				continue
			}
			if winner == -1 || current[i].Key < current[winner].Key {
				winner = i
			}
		}
		if winner == -1 {
			break
		}

		emitted := current[winner]

		if ind%blockSize == 0 {
			idx = append(idx, indexEntry{key: emitted.Key, offset: offset})
		}

		buf := recordBytes(emitted.Key, emitted.Value)
		if _, err := w.Write(buf); err != nil {
			f.Close()
			return nil, fmt.Errorf("segment: write %s: %w", path, err)
		}
		offset += uint64(len(buf))
		flt.Add([]byte(emitted.Key))
		ind++

		for i := range sources {
			if exhausted[i] || current[i].Key != emitted.Key {
				continue
			}
			if err := advance(i); err != nil {
				f.Close()
				return nil, err
			}
		}
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
		count:     ind,
	}, nil
}
