package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestWriteReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settled.snap.zst")
	in := SnapshotV1{
		Header: Header{Version: Version, RunID: "run-1", Phase: "stable", Slabs: 2},
		Slabs: []SlabV1{
			{Label: 0, Cells: [][3]int{{1, 0, 1}, {1, 1, 1}, {1, 2, 1}}},
			{Label: 1, Cells: [][3]int{{1, 1, 2}, {1, 1, 3}}},
		},
	}
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Header != in.Header {
		t.Fatalf("header=%+v want %+v", out.Header, in.Header)
	}
	if len(out.Slabs) != 2 || len(out.Slabs[1].Cells) != 2 || out.Slabs[1].Cells[1] != [3]int{1, 1, 3} {
		t.Fatalf("unexpected slabs: %+v", out.Slabs)
	}
}

func TestReadSnapshotRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.snap.zst")
	if err := WriteSnapshot(path, SnapshotV1{Header: Header{Version: 99}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestSnapshotHeaderLineIsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.snap.zst")
	if err := WriteSnapshot(path, SnapshotV1{Header: Header{Version: Version, RunID: "abc"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()
	buf := make([]byte, 64)
	n, _ := dec.Read(buf)
	if n == 0 || buf[0] != '{' {
		t.Fatalf("expected JSON header line, got %q", buf[:n])
	}
}
