package segment

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrCorruptRecord indicates a record that is truncated or otherwise
// unparsable: an unterminated key or value line, or a value line missing
// entirely after a key line. Encountered during a lookup's block read, it
// is treated as end-of-segment; encountered during compaction, it is
// surfaced to the caller.
var ErrCorruptRecord = errors.New("segment: corrupt record")

// readOutcome classifies the result of reading one record.
type readOutcome int

const (
	outcomeOK readOutcome = iota
	// outcomeEOF means the stream ended cleanly between records: no bytes
	// were consumed attempting to read the next key line.
	outcomeEOF
	// outcomeCorrupt means a partial record was found: either a malformed,
	// unterminated line, or a genuine I/O failure while reading one.
	outcomeCorrupt
)

// readRecord reads one "key\nvalue\n" pair from r.
func readRecord(r *bufio.Reader) (key, value string, outcome readOutcome, err error) {
	keyLine, kerr := r.ReadString('\n')
	switch {
	case kerr == nil:
		// full line, fall through
	case errors.Is(kerr, io.EOF) && keyLine == "":
		return "", "", outcomeEOF, nil
	case errors.Is(kerr, io.EOF):
		return "", "", outcomeCorrupt, ErrCorruptRecord
	default:
		return "", "", outcomeCorrupt, fmt.Errorf("segment: read key: %w", kerr)
	}
	key = strings.TrimSuffix(keyLine, "\n")

	valLine, verr := r.ReadString('\n')
	switch {
	case verr == nil:
	case errors.Is(verr, io.EOF):
		return "", "", outcomeCorrupt, ErrCorruptRecord
	default:
		return "", "", outcomeCorrupt, fmt.Errorf("segment: read value: %w", verr)
	}
	value = strings.TrimSuffix(valLine, "\n")

	return key, value, outcomeOK, nil
}

// recordBytes encodes a record in the on-disk "key\nvalue\n" framing.
func recordBytes(key, value string) []byte {
	buf := make([]byte, 0, len(key)+len(value)+2)
	buf = append(buf, key...)
	buf = append(buf, '\n')
	buf = append(buf, value...)
	buf = append(buf, '\n')
	return buf
}
