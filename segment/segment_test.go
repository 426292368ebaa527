package segment

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/kalyanm/lsmkv/filter"
)

func newFullFilter(keys []string) *filter.Filter {
	f := filter.NewDefault()
	for _, k := range keys {
		f.Add([]byte(k))
	}
	return f
}

func buildSorted(t *testing.T, dir, name string, blockSize int, keys []string) *Segment {
	t.Helper()
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	records := make([]Record, len(sorted))
	for i, k := range sorted {
		records[i] = Record{Key: k, Value: "v-" + k}
	}
	seg, err := BuildFromMemtable(records, filepath.Join(dir, name), blockSize)
	if err != nil {
		t.Fatalf("BuildFromMemtable: %v", err)
	}
	t.Cleanup(func() { seg.Close() })
	return seg
}

func TestBuildAndLookupPresentKeys(t *testing.T) {
	dir := t.TempDir()
	keys := []string{"a", "b", "c", "d", "e", "f", "g"}
	seg := buildSorted(t, dir, "seg.sst", 2, keys)

	for _, k := range keys {
		v, ok, err := seg.Lookup(k)
		if err != nil {
			t.Fatalf("Lookup(%s): %v", k, err)
		}
		if !ok || v != "v-"+k {
			t.Fatalf("Lookup(%s) = (%q, %v), want (v-%s, true)", k, v, ok, k)
		}
	}
}

func TestLookupAbsentKeys(t *testing.T) {
	dir := t.TempDir()
	seg := buildSorted(t, dir, "seg.sst", 3, []string{"b", "d", "f"})

	for _, k := range []string{"a", "c", "e", "g", "z"} {
		_, ok, err := seg.Lookup(k)
		if err != nil {
			t.Fatalf("Lookup(%s): %v", k, err)
		}
		if ok {
			t.Fatalf("Lookup(%s) unexpectedly found", k)
		}
	}
}

func TestEmptySegmentLookupIsAbsent(t *testing.T) {
	dir := t.TempDir()
	seg := buildSorted(t, dir, "empty.sst", 4, nil)

	_, ok, err := seg.Lookup("anything")
	if err != nil {
		t.Fatalf("Lookup on empty segment: %v", err)
	}
	if ok {
		t.Fatal("expected absent on empty segment")
	}
}

func TestDeterministicBuild(t *testing.T) {
	dir := t.TempDir()
	keys := []string{"k1", "k2", "k3", "k4", "k5"}

	records := func() []Record {
		recs := make([]Record, len(keys))
		for i, k := range keys {
			recs[i] = Record{Key: k, Value: "val-" + k}
		}
		return recs
	}

	seg1, err := BuildFromMemtable(records(), filepath.Join(dir, "a.sst"), 2)
	if err != nil {
		t.Fatal(err)
	}
	defer seg1.Close()

	seg2, err := BuildFromMemtable(records(), filepath.Join(dir, "b.sst"), 2)
	if err != nil {
		t.Fatal(err)
	}
	defer seg2.Close()

	b1, err := os.ReadFile(seg1.Path())
	if err != nil {
		t.Fatal(err)
	}
	b2, err := os.ReadFile(seg2.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b1, b2) {
		t.Fatal("expected byte-identical segment files for identical input")
	}
}

func TestTruncatedRecordTreatedAsEndOfSegment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.sst")

	// Hand-craft a file with one full record followed by an unterminated
	// key line, simulating a torn write.
	if err := os.WriteFile(path, []byte("a\n1\nb"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	seg := &Segment{
		path:      path,
		file:      f,
		index:     []indexEntry{{key: "a", offset: 0}},
		filter:    newFullFilter([]string{"a", "b"}),
		blockSize: 10,
		count:     2,
	}
	defer seg.Close()

	v, ok, err := seg.Lookup("a")
	if err != nil || !ok || v != "1" {
		t.Fatalf("Lookup(a) = (%q, %v, %v)", v, ok, err)
	}

	_, ok, err = seg.Lookup("b")
	if err != nil {
		t.Fatalf("expected no error for truncated record, got %v", err)
	}
	if ok {
		t.Fatal("expected absent for key hidden behind a truncated record")
	}
}
