package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "checkpoint.json")

	want := Checkpoint{ChainID: 137, OracleAddress: "0xABC", NextScanBlock: 12345}
	if err := Save(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, found, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found {
		t.Fatalf("expected checkpoint to be found")
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	_, found, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatalf("expected not found")
	}
}

func TestLoad_EmptyPathIsNoop(t *testing.T) {
	_, found, err := Load("")
	if err != nil || found {
		t.Fatalf("empty path: found=%v err=%v", found, err)
	}
	if err := Save("", Checkpoint{}); err != nil {
		t.Fatalf("empty path save: %v", err)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestCheckpoint_Compatible(t *testing.T) {
	c := Checkpoint{ChainID: 137, OracleAddress: "0xAbCd"}
	if !c.Compatible(137, "0xabcd") {
		t.Fatalf("address comparison must be case-insensitive")
	}
	if c.Compatible(1, "0xabcd") {
		t.Fatalf("different chain must be incompatible")
	}
	if c.Compatible(137, "0xother") {
		t.Fatalf("different oracle must be incompatible")
	}
}
