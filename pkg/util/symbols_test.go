package util

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestReadSymbolsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.txt")
	if err := os.WriteFile(path, []byte("aapl\n\n  msft  \nTSLA\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadSymbolsFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []string{"AAPL", "MSFT", "TSLA"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestReadSymbolsFileMissing(t *testing.T) {
	if _, err := ReadSymbolsFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestMergeSymbols(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.txt")
	if err := os.WriteFile(path, []byte("msft\naapl\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := MergeSymbols(path, []string{"tsla", " aapl ", ""})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	want := []string{"AAPL", "MSFT", "TSLA"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestMergeSymbolsEmpty(t *testing.T) {
	if _, err := MergeSymbols("", []string{" ", ""}); err == nil {
		t.Fatalf("expected error when no symbols resolve")
	}
}
