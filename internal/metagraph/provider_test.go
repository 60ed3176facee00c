package metagraph

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

const sample = `{
  "hotkeyToUid": {"X": 1, "Y": 2},
  "uidToHotkey": {"1": "X", "2": "Y"},
  "incentives": {"X": 0.4},
  "totalNeurons": 2
}`

func TestDecode(t *testing.T) {
	snap, err := Decode([]byte(sample))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if snap.TotalNeurons != 2 || snap.HotkeyToUID["Y"] != 2 || snap.Incentives["X"] != 0.4 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.Stakes == nil || snap.IsValidator == nil {
		t.Error("missing maps should be initialised")
	}
	if len(snap.ActiveMiners()) != 2 {
		t.Errorf("expected 2 active miners")
	}
}

func TestLoaderFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metagraph.json")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	snap, err := NewLoader(Options{File: path}).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.HotkeyToUID) != 2 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestLoaderFailsOpen(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"missing file", Options{File: filepath.Join(t.TempDir(), "nope.json")}},
		{"bad command", Options{Command: "/definitely/not/a/binary"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := NewLoader(tt.opts).Snapshot(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if snap == nil || snap.Error == "" {
				t.Fatalf("expected empty snapshot with error, got %+v", snap)
			}
			if snap.ActiveMiners() != nil {
				t.Error("failed snapshot must not filter miners")
			}
		})
	}
}

func TestLoaderInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metagraph.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	snap, err := NewLoader(Options{File: path}).Snapshot(context.Background())
	if err == nil || snap.ActiveMiners() != nil {
		t.Errorf("expected fail-open on invalid JSON, got %+v, %v", snap, err)
	}
}

func TestLoaderUnconfigured(t *testing.T) {
	snap, err := NewLoader(Options{}).Snapshot(context.Background())
	if err != nil || snap == nil || snap.ActiveMiners() != nil {
		t.Errorf("unconfigured loader should return empty snapshot, got %+v, %v", snap, err)
	}
}

func TestLoaderCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "metagraph.json")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	snap, err := NewLoader(Options{Command: "cat " + path}).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.HotkeyToUID["X"] != 1 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestLoaderCommandTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	l := NewLoader(Options{Command: "sleep 5", Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := l.Snapshot(context.Background())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 3*time.Second {
		t.Error("command was not cancelled on timeout")
	}
}
