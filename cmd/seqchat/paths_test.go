package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/samcharles93/seqchat/internal/seq2seq"
)

func makeModelDir(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, seq2seq.ConfigFile), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestDiscoverModelDirsSorted(t *testing.T) {
	root := t.TempDir()
	makeModelDir(t, filepath.Join(root, "b"))
	makeModelDir(t, filepath.Join(root, "a"))
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := discoverModelDirs(root)
	if err != nil {
		t.Fatalf("discoverModelDirs returned error: %v", err)
	}
	want := []string{filepath.Join(root, "a"), filepath.Join(root, "b")}
	if len(got) != len(want) {
		t.Fatalf("unexpected model count: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected ordering at %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestDiscoverModelDirsSelf(t *testing.T) {
	dir := t.TempDir()
	makeModelDir(t, dir)
	got, err := discoverModelDirs(dir)
	if err != nil {
		t.Fatalf("discoverModelDirs returned error: %v", err)
	}
	if len(got) != 1 || got[0] != filepath.Clean(dir) {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestDiscoverModelDirsRejectsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := discoverModelDirs(f); err == nil {
		t.Fatalf("expected error for a file path")
	}
}

func TestResolveModelDir(t *testing.T) {
	t.Run("flag bypasses env", func(t *testing.T) {
		t.Setenv(envModelsDir, "")
		got, err := resolveModelDir("/tmp/models/chatbot/", "", bytes.NewBuffer(nil), io.Discard)
		if err != nil {
			t.Fatalf("resolveModelDir returned error: %v", err)
		}
		if got != filepath.Clean("/tmp/models/chatbot") {
			t.Fatalf("unexpected model dir: got %q", got)
		}
	})

	t.Run("nothing configured", func(t *testing.T) {
		t.Setenv(envModelsDir, "")
		if _, err := resolveModelDir("", "", bytes.NewBuffer(nil), io.Discard); err == nil {
			t.Fatalf("expected error without any model location")
		}
	})

	t.Run("single model selects automatically", func(t *testing.T) {
		root := t.TempDir()
		only := filepath.Join(root, "only")
		makeModelDir(t, only)
		t.Setenv(envModelsDir, root)

		prevTTY := stdinIsTTY
		stdinIsTTY = func() bool { return false }
		defer func() { stdinIsTTY = prevTTY }()

		got, err := resolveModelDir("", "", bytes.NewBuffer(nil), io.Discard)
		if err != nil {
			t.Fatalf("resolveModelDir returned error: %v", err)
		}
		if got != only {
			t.Fatalf("unexpected model dir: got %q want %q", got, only)
		}
	})

	t.Run("models-path flag wins over env", func(t *testing.T) {
		root := t.TempDir()
		only := filepath.Join(root, "flagged")
		makeModelDir(t, only)
		t.Setenv(envModelsDir, filepath.Join(t.TempDir(), "missing"))

		got, err := resolveModelDir("", root, bytes.NewBuffer(nil), io.Discard)
		if err != nil {
			t.Fatalf("resolveModelDir returned error: %v", err)
		}
		if got != only {
			t.Fatalf("unexpected model dir: got %q want %q", got, only)
		}
	})

	t.Run("multiple models requires tty", func(t *testing.T) {
		root := t.TempDir()
		makeModelDir(t, filepath.Join(root, "a"))
		makeModelDir(t, filepath.Join(root, "b"))
		t.Setenv(envModelsDir, root)

		prevTTY := stdinIsTTY
		stdinIsTTY = func() bool { return false }
		defer func() { stdinIsTTY = prevTTY }()

		if _, err := resolveModelDir("", "", bytes.NewBuffer(nil), io.Discard); err == nil {
			t.Fatalf("expected error when multiple models and stdin is not a tty")
		}
	})

	t.Run("interactive selection chooses sorted index", func(t *testing.T) {
		root := t.TempDir()
		a := filepath.Join(root, "a")
		b := filepath.Join(root, "b")
		makeModelDir(t, b)
		makeModelDir(t, a)
		t.Setenv(envModelsDir, root)

		prevTTY := stdinIsTTY
		stdinIsTTY = func() bool { return true }
		defer func() { stdinIsTTY = prevTTY }()

		got, err := resolveModelDir("", "", bytes.NewBufferString("7\n2\n"), io.Discard)
		if err != nil {
			t.Fatalf("resolveModelDir returned error: %v", err)
		}
		if got != b {
			t.Fatalf("unexpected model selection: got %q want %q", got, b)
		}
	})

	t.Run("interactive selection on closed stdin", func(t *testing.T) {
		root := t.TempDir()
		makeModelDir(t, filepath.Join(root, "a"))
		makeModelDir(t, filepath.Join(root, "b"))
		t.Setenv(envModelsDir, root)

		prevTTY := stdinIsTTY
		stdinIsTTY = func() bool { return true }
		defer func() { stdinIsTTY = prevTTY }()

		if _, err := resolveModelDir("", "", bytes.NewBuffer(nil), io.Discard); err == nil {
			t.Fatalf("expected error when no selection is provided")
		}
	})
}
