package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestOpString(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{OpCreate, "CREATE"},
		{OpWrite, "WRITE"},
		{OpCreate | OpWrite, "CREATE|WRITE"},
		{OpRemove, "REMOVE"},
		{OpRename, "RENAME"},
		{0, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Op(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestConvertOp(t *testing.T) {
	if got := convertOp(fsnotify.Create | fsnotify.Write); got != OpCreate|OpWrite {
		t.Errorf("convertOp() = %v", got)
	}
	if got := convertOp(fsnotify.Chmod); got != 0 {
		t.Errorf("chmod should be dropped, got %v", got)
	}
}

func TestAddMissingPath(t *testing.T) {
	w, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Add(filepath.Join(t.TempDir(), "missing")); err != ErrPathNotExist {
		t.Errorf("Add() error = %v, want ErrPathNotExist", err)
	}
}

func TestAddRecursive(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "a", "b"), 0755); err != nil {
		t.Fatal(err)
	}

	w, err := New(nil, WithRecursive())
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		t.Fatal(err)
	}
	if got := len(w.Paths()); got != 3 {
		t.Errorf("Paths() = %v, want 3 directories", w.Paths())
	}
}

func TestRunDeliversFilteredBatch(t *testing.T) {
	dir := t.TempDir()

	w, err := New(nil, WithExtensions(".json"), WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches := make(chan []Event, 4)
	go func() {
		_ = w.Run(ctx, func(events []Event) { batches <- events })
	}()

	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "theme.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case batch := <-batches:
		if len(batch) != 1 || filepath.Base(batch[0].Path) != "theme.json" {
			t.Errorf("batch = %+v", batch)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no batch delivered")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	w, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx, func([]Event) {}); err != context.Canceled {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	w, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := w.addOne(t.TempDir()); err != ErrWatcherClosed {
		t.Errorf("addOne() after close = %v", err)
	}
}
